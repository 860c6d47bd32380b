// Package api is the transport layer over the remote marketplace
// service: one method per REST endpoint, bearer credentials attached to
// every authenticated request, and service failures mapped to the
// client's error taxonomy.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tutorlink/internal/models"
)

// TokenSource supplies the current access token. An empty string means
// no session; the request goes out unauthenticated.
type TokenSource interface {
	AccessToken() string
}

// Client calls the remote marketplace service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource

	limiter  *rate.Limiter
	redis    *redis.Client
	cacheTTL time.Duration

	onAuthFailure func()
	logger        zerolog.Logger
}

// New constructs a client for the service at baseURL.
func New(baseURL string, tokens TokenSource, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}
}

// UseRedisCache configures optional Redis caching for read-mostly GET
// endpoints (subjects, tutors).
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// UseRateLimit paces outgoing requests.
func (c *Client) UseRateLimit(rps float64, burst int) {
	if rps > 0 && burst > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// OnAuthFailure registers the hook invoked when the service answers 401.
// The hook runs before ErrUnauthorized is returned to the caller.
func (c *Client) OnAuthFailure(fn func()) {
	c.onAuthFailure = fn
}

// --- auth ---

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User    models.User `json:"user"`
	Access  string      `json:"access"`
	Refresh string      `json:"refresh,omitempty"`
}

type RegisterRequest struct {
	Email                string      `json:"email"`
	Password             string      `json:"password"`
	PasswordConfirmation string      `json:"password_confirmation"`
	FirstName            string      `json:"first_name"`
	LastName             string      `json:"last_name"`
	Role                 models.Role `json:"role"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.doPost(ctx, "/auth/login/", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("login response missing access token")
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	var user models.User
	if err := c.doPost(ctx, "/auth/register/", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// --- subjects ---

func (c *Client) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if c.readCache(ctx, "subjects", &subjects) {
		return subjects, nil
	}
	if err := c.doGet(ctx, "/education/subjects/", &subjects); err != nil {
		return nil, err
	}
	c.writeCache(ctx, "subjects", subjects)
	return subjects, nil
}

func (c *Client) GetSubject(ctx context.Context, id int64) (*models.Subject, error) {
	var subject models.Subject
	if err := c.doGet(ctx, fmt.Sprintf("/education/subjects/%d/", id), &subject); err != nil {
		return nil, err
	}
	return &subject, nil
}

// --- tutors ---

// TutorFilter narrows the tutor listing. Zero values are omitted.
type TutorFilter struct {
	SubjectID int64
	Search    string
}

func (f TutorFilter) query() string {
	q := url.Values{}
	if f.SubjectID > 0 {
		q.Set("subject", fmt.Sprintf("%d", f.SubjectID))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListTutors(ctx context.Context, filter TutorFilter) ([]models.TutorProfile, error) {
	var tutors []models.TutorProfile
	cacheKey := "tutors" + filter.query()
	if c.readCache(ctx, cacheKey, &tutors) {
		return tutors, nil
	}
	if err := c.doGet(ctx, "/education/tutors/"+filter.query(), &tutors); err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, tutors)
	return tutors, nil
}

func (c *Client) GetTutor(ctx context.Context, id int64) (*models.TutorProfile, error) {
	var tutor models.TutorProfile
	if err := c.doGet(ctx, fmt.Sprintf("/education/tutors/%d/", id), &tutor); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// TutorProfileInput is the mutable subset of a tutor profile.
type TutorProfileInput struct {
	ExperienceYears int     `json:"experience_years,omitempty"`
	PricePerHour    string  `json:"price_per_hour,omitempty"`
	Description     string  `json:"description,omitempty"`
	Education       string  `json:"education,omitempty"`
	IsOnline        bool    `json:"is_online"`
	IsOffline       bool    `json:"is_offline"`
	SubjectIDs      []int64 `json:"subject_ids,omitempty"`
}

func (c *Client) CreateTutorProfile(ctx context.Context, in TutorProfileInput) (*models.TutorProfile, error) {
	var tutor models.TutorProfile
	if err := c.doPost(ctx, "/education/tutors/", in, &tutor); err != nil {
		return nil, err
	}
	return &tutor, nil
}

func (c *Client) UpdateTutorProfile(ctx context.Context, id int64, in TutorProfileInput) (*models.TutorProfile, error) {
	var tutor models.TutorProfile
	if err := c.doPatch(ctx, fmt.Sprintf("/education/tutors/%d/", id), in, &tutor); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// --- students ---

func (c *Client) ListStudents(ctx context.Context) ([]models.StudentProfile, error) {
	var students []models.StudentProfile
	if err := c.doGet(ctx, "/education/students/", &students); err != nil {
		return nil, err
	}
	return students, nil
}

func (c *Client) GetStudent(ctx context.Context, id int64) (*models.StudentProfile, error) {
	var student models.StudentProfile
	if err := c.doGet(ctx, fmt.Sprintf("/education/students/%d/", id), &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// StudentProfileInput is the mutable subset of a student profile.
type StudentProfileInput struct {
	Age           int    `json:"age,omitempty"`
	LearningGoals string `json:"learning_goals,omitempty"`
}

func (c *Client) CreateStudentProfile(ctx context.Context, in StudentProfileInput) (*models.StudentProfile, error) {
	var student models.StudentProfile
	if err := c.doPost(ctx, "/education/students/", in, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

func (c *Client) UpdateStudentProfile(ctx context.Context, id int64, in StudentProfileInput) (*models.StudentProfile, error) {
	var student models.StudentProfile
	if err := c.doPatch(ctx, fmt.Sprintf("/education/students/%d/", id), in, &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// --- schedules ---

func (c *Client) ListSchedules(ctx context.Context) ([]models.Schedule, error) {
	var schedules []models.Schedule
	if err := c.doGet(ctx, "/education/schedules/", &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

func (c *Client) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := c.doGet(ctx, fmt.Sprintf("/education/schedules/%d/", id), &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) CreateSchedule(ctx context.Context) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := c.doPost(ctx, "/education/schedules/", struct{}{}, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (c *Client) UpdateSchedule(ctx context.Context, id int64, in any) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := c.doPatch(ctx, fmt.Sprintf("/education/schedules/%d/", id), in, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// TimeSlotInput describes a slot to add to a schedule.
type TimeSlotInput struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (c *Client) AddTimeSlots(ctx context.Context, scheduleID int64, slots []TimeSlotInput) error {
	return c.doPost(ctx, fmt.Sprintf("/education/schedules/%d/add-time-slots/", scheduleID), slots, nil)
}

func (c *Client) AvailableSlots(ctx context.Context, scheduleID int64) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	if err := c.doGet(ctx, fmt.Sprintf("/education/schedules/%d/available-slots/", scheduleID), &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// --- time slots ---

func (c *Client) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	var slots []models.TimeSlot
	if err := c.doGet(ctx, "/education/time-slots/", &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *Client) CreateTimeSlot(ctx context.Context, in TimeSlotInput) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := c.doPost(ctx, "/education/time-slots/", in, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (c *Client) UpdateTimeSlot(ctx context.Context, id int64, in TimeSlotInput) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := c.doPatch(ctx, fmt.Sprintf("/education/time-slots/%d/", id), in, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

func (c *Client) DeleteTimeSlot(ctx context.Context, id int64) error {
	return c.doDelete(ctx, fmt.Sprintf("/education/time-slots/%d/", id))
}

// --- bookings ---

// CreateBookingRequest books a slot with a tutor. Slot and tutor are
// keyed by id only.
type CreateBookingRequest struct {
	SlotID  int64  `json:"slot"`
	TutorID int64  `json:"tutor"`
	Comment string `json:"comment,omitempty"`
}

func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.doGet(ctx, "/education/bookings/", &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	var booking models.Booking
	if err := c.doPost(ctx, "/education/bookings/", req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) UpdateBooking(ctx context.Context, id int64, in any) (*models.Booking, error) {
	var booking models.Booking
	if err := c.doPatch(ctx, fmt.Sprintf("/education/bookings/%d/", id), in, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *Client) ConfirmBooking(ctx context.Context, id int64) error {
	return c.doPost(ctx, fmt.Sprintf("/education/bookings/%d/confirm/", id), struct{}{}, nil)
}

func (c *Client) CancelBooking(ctx context.Context, id int64) error {
	return c.doPost(ctx, fmt.Sprintf("/education/bookings/%d/cancel/", id), struct{}{}, nil)
}

func (c *Client) CompleteBooking(ctx context.Context, id int64) error {
	return c.doPost(ctx, fmt.Sprintf("/education/bookings/%d/complete/", id), struct{}{}, nil)
}

// --- reviews ---

// ReviewInput creates or updates a review. Tutor is the numeric profile
// id.
type ReviewInput struct {
	TutorID int64  `json:"tutor"`
	Rating  int    `json:"rating"`
	Text    string `json:"text"`
}

func (c *Client) ListReviews(ctx context.Context, tutorID int64) ([]models.Review, error) {
	path := "/education/reviews/"
	if tutorID > 0 {
		path += fmt.Sprintf("?tutor=%d", tutorID)
	}
	var reviews []models.Review
	if err := c.doGet(ctx, path, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *Client) CreateReview(ctx context.Context, in ReviewInput) (*models.Review, error) {
	var review models.Review
	if err := c.doPost(ctx, "/education/reviews/", in, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) UpdateReview(ctx context.Context, id int64, in ReviewInput) (*models.Review, error) {
	var review models.Review
	if err := c.doPatch(ctx, fmt.Sprintf("/education/reviews/%d/", id), in, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (c *Client) DeleteReview(ctx context.Context, id int64) error {
	return c.doDelete(ctx, fmt.Sprintf("/education/reviews/%d/", id))
}

// HealthCheck probes the service.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: %d", resp.StatusCode)
	}
	return nil
}

// --- transport plumbing ---

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doPost(ctx context.Context, path string, body, out any) error {
	return c.doSend(ctx, http.MethodPost, path, body, out)
}

func (c *Client) doPatch(ctx context.Context, path string, body, out any) error {
	return c.doSend(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) doSend(ctx context.Context, method, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)
	return c.do(req, out)
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	c.addHeaders(req)
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.Warn().Str("path", req.URL.Path).Msg("credential rejected by service")
		if c.onAuthFailure != nil {
			c.onAuthFailure()
		}
		return ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return c.validationError(resp)
	case resp.StatusCode >= 300:
		return fmt.Errorf("http %d from %s", resp.StatusCode, req.URL.Path)
	}

	if out == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// validationError extracts the service's rejection message. The service
// answers either {"detail": "..."} or a field-error map of string
// lists.
func (c *Client) validationError(resp *http.Response) error {
	ve := &ValidationError{Status: resp.StatusCode}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ve
	}

	if detail, ok := body["detail"].(string); ok {
		ve.Detail = detail
		return ve
	}

	var parts []string
	for _, v := range body {
		switch msg := v.(type) {
		case string:
			parts = append(parts, msg)
		case []any:
			for _, m := range msg {
				if s, ok := m.(string); ok {
					parts = append(parts, s)
				}
			}
		}
	}
	ve.Detail = strings.Join(parts, ", ")
	return ve
}

func (c *Client) addHeaders(req *http.Request) {
	if c.tokens == nil {
		return
	}
	if token := c.tokens.AccessToken(); token != "" {
		req.Header.Set("Authorization", "JWT "+token)
	}
}
