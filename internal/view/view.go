// Package view derives render-ready structures from cached collections
// and the current identity. Derivations are recomputed fresh from the
// cache on every call and never write back; a view must tolerate any
// collection that is still loading.
package view

import (
	"time"

	"tutorlink/internal/booking"
	"tutorlink/internal/cache"
	"tutorlink/internal/metrics"
	"tutorlink/internal/models"
	"tutorlink/internal/slots"
)

// BookingRow pairs a booking with the actions the client may offer the
// current user for it. Advisory only: the service remains the authority
// and may still reject any request.
type BookingRow struct {
	Booking models.Booking
	Actions []booking.Action
}

// BookingBoard is the grouped booking view. Unrecognized carries
// entries whose status fell outside the known set; the caller surfaces
// them as a data-integrity warning.
type BookingBoard struct {
	Pending      []BookingRow
	Confirmed    []BookingRow
	Completed    []BookingRow
	Cancelled    []BookingRow
	Unrecognized []models.Booking

	IsLoading bool
	Err       error
}

// BuildBookingBoard groups the cached bookings and computes offered
// actions per row for the given role.
func BuildBookingBoard(snap cache.Snapshot, role models.Role) BookingBoard {
	board := BookingBoard{IsLoading: snap.IsLoading, Err: snap.Err}

	bookings, ok := snap.Data.([]models.Booking)
	if !ok {
		return board
	}

	groups := booking.Group(bookings)
	for range groups.Unrecognized {
		metrics.IncUnrecognizedStatus()
	}

	board.Pending = rows(groups.Pending, role)
	board.Confirmed = rows(groups.Confirmed, role)
	board.Completed = rows(groups.Completed, role)
	board.Cancelled = rows(groups.Cancelled, role)
	board.Unrecognized = groups.Unrecognized
	return board
}

func rows(bookings []models.Booking, role models.Role) []BookingRow {
	out := make([]BookingRow, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingRow{
			Booking: b,
			Actions: booking.AllowedActions(b.Status, role),
		})
	}
	return out
}

// ScheduleView is a tutor's schedule with slots in chronological order.
type ScheduleView struct {
	Schedule       models.Schedule
	Slots          []models.TimeSlot
	AvailableCount int

	Exists    bool
	IsLoading bool
	Err       error
}

// BuildScheduleView derives the schedule page from the cached schedule
// list. One schedule per tutor; the first entry is the tutor's own.
func BuildScheduleView(snap cache.Snapshot) ScheduleView {
	sv := ScheduleView{IsLoading: snap.IsLoading, Err: snap.Err}

	schedules, ok := snap.Data.([]models.Schedule)
	if !ok || len(schedules) == 0 {
		return sv
	}

	sv.Schedule = schedules[0]
	sv.Exists = true
	sv.Slots = slots.SortChronological(sv.Schedule.TimeSlots)
	for _, s := range sv.Slots {
		if s.Status == models.SlotAvailable {
			sv.AvailableCount++
		}
	}
	return sv
}

// DashboardSummary is the landing-page digest: counts per status and
// the next confirmed lessons.
type DashboardSummary struct {
	PendingCount   int
	ConfirmedCount int
	CompletedCount int
	CancelledCount int

	Upcoming []models.Booking

	IsLoading bool
	Err       error
}

// BuildDashboard derives the summary from the cached bookings. Upcoming
// lists confirmed lessons whose slot starts after now, soonest first,
// capped at limit.
func BuildDashboard(snap cache.Snapshot, now time.Time, limit int) DashboardSummary {
	d := DashboardSummary{IsLoading: snap.IsLoading, Err: snap.Err}

	bookings, ok := snap.Data.([]models.Booking)
	if !ok {
		return d
	}

	groups := booking.Group(bookings)
	d.PendingCount = len(groups.Pending)
	d.ConfirmedCount = len(groups.Confirmed)
	d.CompletedCount = len(groups.Completed)
	d.CancelledCount = len(groups.Cancelled)

	var slotList []models.TimeSlot
	bySlot := make(map[int64]models.Booking, len(groups.Confirmed))
	for _, b := range groups.Confirmed {
		start, err := b.Slot.StartsAt(now.Location())
		if err != nil || !start.After(now) {
			continue
		}
		slotList = append(slotList, b.Slot)
		bySlot[b.Slot.ID] = b
	}

	for _, s := range slots.SortChronological(slotList) {
		d.Upcoming = append(d.Upcoming, bySlot[s.ID])
		if limit > 0 && len(d.Upcoming) >= limit {
			break
		}
	}
	return d
}
