package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"tutorlink/internal/api"
	"tutorlink/internal/booking"
	"tutorlink/internal/cache"
	"tutorlink/internal/export"
	"tutorlink/internal/models"
	"tutorlink/internal/session"
	"tutorlink/internal/view"
)

const usage = `usage: tutorlink <command> [args]

  login <email> <password>
  register <email> <password> <first> <last> <student|tutor>
  logout
  whoami
  subjects
  tutors [subject-id]
  tutor <id>
  bookings
  book <slot-id> <tutor-id> [comment]
  confirm <booking-id>
  cancel <booking-id>
  complete <booking-id>
  schedule
  create-schedule
  add-slot <date> <start> <end>
  reviews [tutor-id]
  review <tutor-id> <rating> <text>
  delete-review <review-id>
  export [path]
  watch [interval]
  status
`

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.cmdLogin(ctx, rest)
	case "register":
		return a.cmdRegister(ctx, rest)
	case "logout":
		return a.session.Logout(ctx)
	case "whoami":
		return a.cmdWhoami()
	case "subjects":
		return a.cmdSubjects(ctx)
	case "tutors":
		return a.cmdTutors(ctx, rest)
	case "tutor":
		return a.cmdTutorDetail(ctx, rest)
	case "bookings":
		return a.cmdBookings(ctx)
	case "book":
		return a.cmdBook(ctx, rest)
	case "confirm":
		return a.cmdTransition(ctx, booking.ActionConfirm, rest)
	case "cancel":
		return a.cmdTransition(ctx, booking.ActionCancel, rest)
	case "complete":
		return a.cmdTransition(ctx, booking.ActionComplete, rest)
	case "schedule":
		return a.cmdSchedule(ctx)
	case "create-schedule":
		return a.requireRole(models.RoleTutor, func() error { return a.coord.CreateSchedule(ctx) })
	case "add-slot":
		return a.cmdAddSlot(ctx, rest)
	case "reviews":
		return a.cmdReviews(ctx, rest)
	case "review":
		return a.cmdReview(ctx, rest)
	case "delete-review":
		return a.cmdDeleteReview(ctx, rest)
	case "export":
		return a.cmdExport(ctx, rest)
	case "watch":
		return a.cmdWatch(ctx, rest)
	case "status":
		return a.client.HealthCheck(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}
	resp, err := a.client.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.session.Establish(ctx, session.Identity{
		User:    resp.User,
		Access:  resp.Access,
		Refresh: resp.Refresh,
	}); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", resp.User.FullName(), resp.User.Role)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: register <email> <password> <first> <last> <student|tutor>")
	}
	role, err := models.ParseRole(args[4])
	if err != nil {
		return err
	}
	_, err = a.client.Register(ctx, api.RegisterRequest{
		Email:                args[0],
		Password:             args[1],
		PasswordConfirmation: args[1],
		FirstName:            args[2],
		LastName:             args[3],
		Role:                 role,
	})
	if err != nil {
		return err
	}
	fmt.Println("registered; now log in")
	return nil
}

func (a *app) cmdWhoami() error {
	id, ok := a.session.Identity()
	if !ok {
		fmt.Println("not logged in")
		return nil
	}
	fmt.Printf("%s <%s> role=%s\n", id.User.FullName(), id.User.Email, id.User.Role)
	return nil
}

func (a *app) cmdSubjects(ctx context.Context) error {
	if err := a.coord.Load(ctx, cache.KeySubjects); err != nil {
		return err
	}
	subjects, _ := a.coord.Snapshot(cache.KeySubjects).Data.([]models.Subject)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, s := range subjects {
		fmt.Fprintf(tw, "%d\t%s\n", s.ID, s.Name)
	}
	return tw.Flush()
}

func (a *app) cmdTutors(ctx context.Context, args []string) error {
	var filter api.TutorFilter
	if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("subject id: %w", err)
		}
		filter.SubjectID = id
	}
	tutors, err := a.client.ListTutors(ctx, filter)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRATING\tYEARS\tPRICE/H")
	for _, t := range tutors {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%d\t%s\n",
			t.ID, t.User.FullName(), t.AverageRating, t.ExperienceYears, t.PricePerHour)
	}
	return tw.Flush()
}

func (a *app) cmdTutorDetail(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tutor <id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("tutor id: %w", err)
	}

	tutor, err := a.client.GetTutor(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %.1f★, %d years, %s/h\n",
		tutor.User.FullName(), tutor.AverageRating, tutor.ExperienceYears, tutor.PricePerHour)
	if tutor.Description != "" {
		fmt.Println(tutor.Description)
	}

	schedules, err := a.client.ListSchedules(ctx)
	if err != nil {
		return err
	}
	for _, sch := range schedules {
		if sch.TutorID != tutor.ID {
			continue
		}
		slots, err := a.client.AvailableSlots(ctx, sch.ID)
		if err != nil {
			return err
		}
		fmt.Println("available slots:")
		for _, s := range slots {
			fmt.Printf("  #%d %s %s-%s\n", s.ID, s.Date, s.StartTime, s.EndTime)
		}
	}
	return nil
}

func (a *app) loadBoard(ctx context.Context) (view.BookingBoard, error) {
	if err := a.coord.Load(ctx, cache.KeyBookings); err != nil {
		return view.BookingBoard{}, err
	}
	snap := a.coord.Snapshot(cache.KeyBookings)
	return view.BuildBookingBoard(snap, a.session.Role()), nil
}

func (a *app) cmdBookings(ctx context.Context) error {
	board, err := a.loadBoard(ctx)
	if err != nil {
		return err
	}
	printBoard(board)
	return nil
}

func printBoard(board view.BookingBoard) {
	sections := []struct {
		title string
		rows  []view.BookingRow
	}{
		{"pending", board.Pending},
		{"confirmed", board.Confirmed},
		{"completed", board.Completed},
		{"cancelled", board.Cancelled},
	}
	for _, sec := range sections {
		if len(sec.rows) == 0 {
			continue
		}
		fmt.Printf("%s:\n", sec.title)
		for _, row := range sec.rows {
			b := row.Booking
			line := fmt.Sprintf("  #%d %s %s-%s", b.ID, b.Slot.Date, b.Slot.StartTime, b.Slot.EndTime)
			if len(row.Actions) > 0 {
				acts := make([]string, len(row.Actions))
				for i, act := range row.Actions {
					acts[i] = string(act)
				}
				line += " [" + strings.Join(acts, ", ") + "]"
			}
			fmt.Println(line)
		}
	}
	for _, b := range board.Unrecognized {
		fmt.Printf("warning: booking #%d has unrecognized status %q\n", b.ID, b.Status)
	}
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: book <slot-id> <tutor-id> [comment]")
	}
	slotID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("slot id: %w", err)
	}
	tutorID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("tutor id: %w", err)
	}
	return a.coord.CreateBooking(ctx, api.CreateBookingRequest{
		SlotID:  slotID,
		TutorID: tutorID,
		Comment: strings.Join(args[2:], " "),
	})
}

// cmdTransition gates the request on the transition table before
// sending it: an action the table does not offer for the booking's
// current status and the session's role is refused locally.
func (a *app) cmdTransition(ctx context.Context, action booking.Action, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <booking-id>", action)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("booking id: %w", err)
	}

	board, err := a.loadBoard(ctx)
	if err != nil {
		return err
	}
	b, ok := findBooking(board, id)
	if !ok {
		return fmt.Errorf("booking #%d not found", id)
	}
	if !booking.CanApply(b.Status, action, a.session.Role()) {
		return fmt.Errorf("%s not offered for booking #%d (status %s, role %s)",
			action, id, b.Status, a.session.Role())
	}

	switch action {
	case booking.ActionConfirm:
		err = a.coord.ConfirmBooking(ctx, id)
	case booking.ActionCancel:
		err = a.coord.CancelBooking(ctx, id)
	case booking.ActionComplete:
		err = a.coord.CompleteBooking(ctx, id)
	default:
		return fmt.Errorf("%s is not a status transition", action)
	}
	return err
}

func findBooking(board view.BookingBoard, id int64) (models.Booking, bool) {
	for _, rows := range [][]view.BookingRow{board.Pending, board.Confirmed, board.Completed, board.Cancelled} {
		for _, row := range rows {
			if row.Booking.ID == id {
				return row.Booking, true
			}
		}
	}
	return models.Booking{}, false
}

func (a *app) cmdSchedule(ctx context.Context) error {
	if err := a.coord.Load(ctx, cache.KeySchedules); err != nil {
		return err
	}
	sv := view.BuildScheduleView(a.coord.Snapshot(cache.KeySchedules))
	if !sv.Exists {
		fmt.Println("no schedule yet; run create-schedule")
		return nil
	}
	fmt.Printf("schedule #%d, %d slots (%d available)\n",
		sv.Schedule.ID, len(sv.Slots), sv.AvailableCount)
	for _, s := range sv.Slots {
		fmt.Printf("  #%d %s %s-%s %s\n", s.ID, s.Date, s.StartTime, s.EndTime, s.Status)
	}
	return nil
}

func (a *app) cmdAddSlot(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: add-slot <date> <start> <end>")
	}
	return a.requireRole(models.RoleTutor, func() error {
		if err := a.coord.Load(ctx, cache.KeySchedules); err != nil {
			return err
		}
		sv := view.BuildScheduleView(a.coord.Snapshot(cache.KeySchedules))
		if !sv.Exists {
			return fmt.Errorf("no schedule yet; run create-schedule first")
		}
		return a.coord.AddTimeSlots(ctx, sv.Schedule.ID, []api.TimeSlotInput{
			{Date: args[0], StartTime: args[1], EndTime: args[2]},
		})
	})
}

func (a *app) cmdReviews(ctx context.Context, args []string) error {
	var tutorID int64
	if len(args) > 0 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("tutor id: %w", err)
		}
		tutorID = id
	}
	reviews, err := a.client.ListReviews(ctx, tutorID)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		fmt.Printf("#%d tutor=%d %d★ %s\n", r.ID, r.TutorID, r.Rating, r.Text)
	}
	return nil
}

func (a *app) cmdReview(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: review <tutor-id> <rating> <text>")
	}
	tutorID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("tutor id: %w", err)
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil || rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be 1..5")
	}
	return a.requireRole(models.RoleStudent, func() error {
		return a.coord.CreateReview(ctx, api.ReviewInput{
			TutorID: tutorID,
			Rating:  rating,
			Text:    strings.Join(args[2:], " "),
		})
	})
}

func (a *app) cmdDeleteReview(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete-review <review-id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("review id: %w", err)
	}
	return a.coord.DeleteReview(ctx, id)
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	path := a.cfg.Export.Path
	if len(args) > 0 {
		path = args[0]
	}

	if err := a.coord.Load(ctx, cache.KeyBookings); err != nil {
		return err
	}
	bookings, _ := a.coord.Snapshot(cache.KeyBookings).Data.([]models.Booking)

	w := export.NewExcelizeWriter()
	if err := export.WriteBookings(w, booking.Group(bookings)); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := w.SaveTo(f); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func (a *app) cmdWatch(ctx context.Context, args []string) error {
	interval := 30 * time.Second
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			return fmt.Errorf("interval: %w", err)
		}
		interval = d
	}

	a.startMonitoring(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		board, err := a.loadBoard(ctx)
		if err != nil {
			if _, ok := a.session.Identity(); !ok {
				return err
			}
		} else {
			fmt.Printf("[%s] pending=%d confirmed=%d completed=%d cancelled=%d\n",
				time.Now().Format("15:04:05"),
				len(board.Pending), len(board.Confirmed), len(board.Completed), len(board.Cancelled))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *app) requireRole(role models.Role, fn func() error) error {
	if a.session.Role() != role {
		return fmt.Errorf("requires %s role", role)
	}
	return fn()
}
