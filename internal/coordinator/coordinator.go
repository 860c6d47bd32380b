// Package coordinator issues state-changing requests against the
// remote service and reconciles the shared read cache afterwards.
//
// Policy: the client never splices a predicted state into the cache. An
// accepted mutation marks its declared collections stale and re-fetches
// them, so side effects the service applied beyond the requested field
// (a slot flipping to booked, say) are picked up too. A rejected
// mutation leaves the cache untouched and surfaces a notice.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"tutorlink/internal/api"
	"tutorlink/internal/cache"
	"tutorlink/internal/metrics"
	"tutorlink/internal/models"
)

// ErrMutationInFlight means a mutation for the same target is still
// outstanding. The second request is refused, not queued: double
// confirm/cancel races are prevented client-side.
var ErrMutationInFlight = errors.New("coordinator: mutation already in flight for target")

// Service is the slice of the API client the coordinator drives.
type Service interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListSchedules(ctx context.Context) ([]models.Schedule, error)
	ListTutors(ctx context.Context, filter api.TutorFilter) ([]models.TutorProfile, error)
	ListStudents(ctx context.Context) ([]models.StudentProfile, error)
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListReviews(ctx context.Context, tutorID int64) ([]models.Review, error)
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)

	ConfirmBooking(ctx context.Context, id int64) error
	CancelBooking(ctx context.Context, id int64) error
	CompleteBooking(ctx context.Context, id int64) error
	CreateBooking(ctx context.Context, req api.CreateBookingRequest) (*models.Booking, error)

	CreateReview(ctx context.Context, in api.ReviewInput) (*models.Review, error)
	UpdateReview(ctx context.Context, id int64, in api.ReviewInput) (*models.Review, error)
	DeleteReview(ctx context.Context, id int64) error

	CreateSchedule(ctx context.Context) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, in any) (*models.Schedule, error)
	AddTimeSlots(ctx context.Context, scheduleID int64, slots []api.TimeSlotInput) error

	CreateTimeSlot(ctx context.Context, in api.TimeSlotInput) (*models.TimeSlot, error)
	UpdateTimeSlot(ctx context.Context, id int64, in api.TimeSlotInput) (*models.TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, id int64) error

	CreateTutorProfile(ctx context.Context, in api.TutorProfileInput) (*models.TutorProfile, error)
	UpdateTutorProfile(ctx context.Context, id int64, in api.TutorProfileInput) (*models.TutorProfile, error)
	CreateStudentProfile(ctx context.Context, in api.StudentProfileInput) (*models.StudentProfile, error)
	UpdateStudentProfile(ctx context.Context, id int64, in api.StudentProfileInput) (*models.StudentProfile, error)
}

// mutation declares a mutation's name and the collections it
// invalidates on acceptance. The sets are fixed at build time; there is
// no string-keyed convention to get out of sync.
type mutation struct {
	name        string
	label       string
	invalidates []cache.Key
}

var (
	mutConfirmBooking  = mutation{"confirm_booking", "confirm booking", []cache.Key{cache.KeyBookings}}
	mutCancelBooking   = mutation{"cancel_booking", "cancel booking", []cache.Key{cache.KeyBookings, cache.KeySchedules, cache.KeyTimeSlots}}
	mutCompleteBooking = mutation{"complete_booking", "complete booking", []cache.Key{cache.KeyBookings}}
	mutCreateBooking   = mutation{"create_booking", "create booking", []cache.Key{cache.KeyBookings, cache.KeySchedules, cache.KeyTimeSlots}}

	mutCreateReview = mutation{"create_review", "create review", []cache.Key{cache.KeyReviews, cache.KeyTutors}}
	mutUpdateReview = mutation{"update_review", "update review", []cache.Key{cache.KeyReviews, cache.KeyTutors}}
	mutDeleteReview = mutation{"delete_review", "delete review", []cache.Key{cache.KeyReviews, cache.KeyTutors}}

	mutCreateSchedule = mutation{"create_schedule", "create schedule", []cache.Key{cache.KeySchedules}}
	mutUpdateSchedule = mutation{"update_schedule", "update schedule", []cache.Key{cache.KeySchedules, cache.KeyTimeSlots}}
	mutAddTimeSlots   = mutation{"add_time_slots", "add time slots", []cache.Key{cache.KeySchedules, cache.KeyTimeSlots}}

	mutCreateTimeSlot = mutation{"create_time_slot", "create time slot", []cache.Key{cache.KeySchedules, cache.KeyTimeSlots}}
	mutUpdateTimeSlot = mutation{"update_time_slot", "update time slot", []cache.Key{cache.KeySchedules, cache.KeyTimeSlots}}
	mutDeleteTimeSlot = mutation{"delete_time_slot", "delete time slot", []cache.Key{cache.KeySchedules, cache.KeyTimeSlots}}

	mutSaveTutorProfile   = mutation{"save_tutor_profile", "save profile", []cache.Key{cache.KeyTutors}}
	mutSaveStudentProfile = mutation{"save_student_profile", "save profile", []cache.Key{cache.KeyStudents}}
)

// target identifies the entity a mutation is aimed at, for the
// at-most-one-in-flight advisory lock.
type target struct {
	kind string
	id   int64
}

// Coordinator owns all cache refreshes and all mutations.
type Coordinator struct {
	svc     Service
	cache   *cache.Store
	notices *NoticeBus
	logger  zerolog.Logger

	mu       sync.Mutex
	inflight map[target]struct{}

	loaders map[cache.Key]func(context.Context) (any, error)
}

func New(svc Service, store *cache.Store, notices *NoticeBus, logger zerolog.Logger) *Coordinator {
	c := &Coordinator{
		svc:      svc,
		cache:    store,
		notices:  notices,
		logger:   logger,
		inflight: make(map[target]struct{}),
	}
	c.loaders = map[cache.Key]func(context.Context) (any, error){
		cache.KeyBookings:  func(ctx context.Context) (any, error) { return svc.ListBookings(ctx) },
		cache.KeySchedules: func(ctx context.Context) (any, error) { return svc.ListSchedules(ctx) },
		cache.KeyTutors:    func(ctx context.Context) (any, error) { return svc.ListTutors(ctx, api.TutorFilter{}) },
		cache.KeyStudents:  func(ctx context.Context) (any, error) { return svc.ListStudents(ctx) },
		cache.KeySubjects:  func(ctx context.Context) (any, error) { return svc.ListSubjects(ctx) },
		cache.KeyReviews:   func(ctx context.Context) (any, error) { return svc.ListReviews(ctx, 0) },
		cache.KeyTimeSlots: func(ctx context.Context) (any, error) { return svc.ListTimeSlots(ctx) },
	}
	return c
}

// Load fetches a collection into the cache. A result arriving after the
// collection was invalidated or cleared mid-flight is discarded.
func (c *Coordinator) Load(ctx context.Context, key cache.Key) error {
	loader, ok := c.loaders[key]
	if !ok {
		return fmt.Errorf("no loader for collection %q", key)
	}

	gen := c.cache.BeginFetch(key)
	data, err := loader(ctx)
	applied := c.cache.Complete(key, gen, data, err)

	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return err
		}
		c.notices.Publish(noticeFor("load "+string(key), err))
		return err
	}
	if !applied {
		c.logger.Debug().Str("collection", string(key)).Msg("stale fetch result discarded")
	}
	return nil
}

// Snapshot returns the current read handle for a collection.
func (c *Coordinator) Snapshot(key cache.Key) cache.Snapshot {
	return c.cache.Get(key)
}

// --- booking lifecycle mutations ---

func (c *Coordinator) ConfirmBooking(ctx context.Context, id int64) error {
	return c.run(ctx, mutConfirmBooking, target{"booking", id}, func(ctx context.Context) error {
		return c.svc.ConfirmBooking(ctx, id)
	})
}

func (c *Coordinator) CancelBooking(ctx context.Context, id int64) error {
	return c.run(ctx, mutCancelBooking, target{"booking", id}, func(ctx context.Context) error {
		return c.svc.CancelBooking(ctx, id)
	})
}

func (c *Coordinator) CompleteBooking(ctx context.Context, id int64) error {
	return c.run(ctx, mutCompleteBooking, target{"booking", id}, func(ctx context.Context) error {
		return c.svc.CompleteBooking(ctx, id)
	})
}

// CreateBooking targets the slot: a second create for the same slot is
// refused while the first is outstanding.
func (c *Coordinator) CreateBooking(ctx context.Context, req api.CreateBookingRequest) error {
	return c.run(ctx, mutCreateBooking, target{"slot", req.SlotID}, func(ctx context.Context) error {
		_, err := c.svc.CreateBooking(ctx, req)
		return err
	})
}

// --- review mutations ---

func (c *Coordinator) CreateReview(ctx context.Context, in api.ReviewInput) error {
	return c.run(ctx, mutCreateReview, target{"tutor_review", in.TutorID}, func(ctx context.Context) error {
		_, err := c.svc.CreateReview(ctx, in)
		return err
	})
}

func (c *Coordinator) UpdateReview(ctx context.Context, id int64, in api.ReviewInput) error {
	return c.run(ctx, mutUpdateReview, target{"review", id}, func(ctx context.Context) error {
		_, err := c.svc.UpdateReview(ctx, id, in)
		return err
	})
}

func (c *Coordinator) DeleteReview(ctx context.Context, id int64) error {
	return c.run(ctx, mutDeleteReview, target{"review", id}, func(ctx context.Context) error {
		return c.svc.DeleteReview(ctx, id)
	})
}

// --- schedule and slot mutations ---

func (c *Coordinator) CreateSchedule(ctx context.Context) error {
	return c.run(ctx, mutCreateSchedule, target{"schedule", 0}, func(ctx context.Context) error {
		_, err := c.svc.CreateSchedule(ctx)
		return err
	})
}

func (c *Coordinator) UpdateSchedule(ctx context.Context, id int64, in any) error {
	return c.run(ctx, mutUpdateSchedule, target{"schedule", id}, func(ctx context.Context) error {
		_, err := c.svc.UpdateSchedule(ctx, id, in)
		return err
	})
}

func (c *Coordinator) AddTimeSlots(ctx context.Context, scheduleID int64, in []api.TimeSlotInput) error {
	return c.run(ctx, mutAddTimeSlots, target{"schedule", scheduleID}, func(ctx context.Context) error {
		return c.svc.AddTimeSlots(ctx, scheduleID, in)
	})
}

func (c *Coordinator) CreateTimeSlot(ctx context.Context, in api.TimeSlotInput) error {
	return c.run(ctx, mutCreateTimeSlot, target{"time_slot", 0}, func(ctx context.Context) error {
		_, err := c.svc.CreateTimeSlot(ctx, in)
		return err
	})
}

func (c *Coordinator) UpdateTimeSlot(ctx context.Context, id int64, in api.TimeSlotInput) error {
	return c.run(ctx, mutUpdateTimeSlot, target{"time_slot", id}, func(ctx context.Context) error {
		_, err := c.svc.UpdateTimeSlot(ctx, id, in)
		return err
	})
}

func (c *Coordinator) DeleteTimeSlot(ctx context.Context, id int64) error {
	return c.run(ctx, mutDeleteTimeSlot, target{"time_slot", id}, func(ctx context.Context) error {
		return c.svc.DeleteTimeSlot(ctx, id)
	})
}

// --- profile mutations ---

func (c *Coordinator) SaveTutorProfile(ctx context.Context, id int64, in api.TutorProfileInput) error {
	return c.run(ctx, mutSaveTutorProfile, target{"tutor_profile", id}, func(ctx context.Context) error {
		var err error
		if id > 0 {
			_, err = c.svc.UpdateTutorProfile(ctx, id, in)
		} else {
			_, err = c.svc.CreateTutorProfile(ctx, in)
		}
		return err
	})
}

func (c *Coordinator) SaveStudentProfile(ctx context.Context, id int64, in api.StudentProfileInput) error {
	return c.run(ctx, mutSaveStudentProfile, target{"student_profile", id}, func(ctx context.Context) error {
		var err error
		if id > 0 {
			_, err = c.svc.UpdateStudentProfile(ctx, id, in)
		} else {
			_, err = c.svc.CreateStudentProfile(ctx, in)
		}
		return err
	})
}

// --- machinery ---

func (c *Coordinator) run(ctx context.Context, m mutation, tgt target, call func(context.Context) error) error {
	if !c.acquire(tgt) {
		metrics.IncMutation(m.name, "refused")
		return ErrMutationInFlight
	}
	defer c.release(tgt)

	if err := call(ctx); err != nil {
		metrics.IncMutation(m.name, "rejected")
		if !errors.Is(err, api.ErrUnauthorized) {
			c.notices.Publish(noticeFor(m.label, err))
		}
		c.logger.Warn().Err(err).Str("mutation", m.name).Msg("mutation rejected")
		return err
	}

	metrics.IncMutation(m.name, "accepted")
	c.refresh(ctx, m.invalidates)
	c.notices.Publish(Notice{Level: NoticeInfo, Message: m.label + ": done"})
	return nil
}

// refresh marks the declared collections stale and re-fetches each one.
// A failed re-fetch leaves the collection marked stale with its error
// recorded; it is not retried here.
func (c *Coordinator) refresh(ctx context.Context, keys []cache.Key) {
	for _, key := range keys {
		c.cache.Invalidate(key)
		metrics.IncCacheInvalidation(string(key))
		if err := c.Load(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("collection", string(key)).Msg("re-fetch after mutation failed")
		}
	}
}

func (c *Coordinator) acquire(tgt target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.inflight[tgt]; held {
		return false
	}
	c.inflight[tgt] = struct{}{}
	return true
}

func (c *Coordinator) release(tgt target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, tgt)
}
