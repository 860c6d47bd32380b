// Package booking implements the booking lifecycle: the status
// transition table, the role-gated set of actions the client may offer,
// and the status-bucket grouping of fetched bookings.
//
// The remote service is the authority over every transition. Nothing
// here mutates a booking's status; the table answers only which actions
// are legal to offer for a given status and role.
package booking

import (
	"tutorlink/internal/models"
)

// Action is a lifecycle action the client can request from the service.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCancel   Action = "cancel"
	ActionComplete Action = "complete"

	// ActionLeaveReview is a side action on a completed booking. It
	// does not change the booking's status.
	ActionLeaveReview Action = "leave_review"
)

// edge is one row of the transition table.
type edge struct {
	action Action
	to     models.BookingStatus
	roles  []models.Role
	side   bool // side action: offered but not a status transition
}

// transitions enumerates every edge the service accepts. pending may be
// confirmed or cancelled; confirmed may be completed or cancelled;
// completed and cancelled are terminal. Admin holds no lifecycle
// actions.
var transitions = map[models.BookingStatus][]edge{
	models.BookingPending: {
		{action: ActionConfirm, to: models.BookingConfirmed, roles: []models.Role{models.RoleTutor}},
		{action: ActionCancel, to: models.BookingCancelled, roles: []models.Role{models.RoleTutor, models.RoleStudent}},
	},
	models.BookingConfirmed: {
		{action: ActionComplete, to: models.BookingCompleted, roles: []models.Role{models.RoleTutor}},
		{action: ActionCancel, to: models.BookingCancelled, roles: []models.Role{models.RoleTutor, models.RoleStudent}},
	},
	models.BookingCompleted: {
		{action: ActionLeaveReview, to: models.BookingCompleted, roles: []models.Role{models.RoleStudent}, side: true},
	},
}

func (e edge) permits(role models.Role) bool {
	for _, r := range e.roles {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedActions returns the actions the client may offer for a booking
// in the given status to a user with the given role. Unknown statuses
// and roles yield nothing.
func AllowedActions(status models.BookingStatus, role models.Role) []Action {
	var actions []Action
	for _, e := range transitions[status] {
		if e.permits(role) {
			actions = append(actions, e.action)
		}
	}
	return actions
}

// CanApply reports whether the action is a legal offer for the status
// and role.
func CanApply(status models.BookingStatus, action Action, role models.Role) bool {
	for _, e := range transitions[status] {
		if e.action == action && e.permits(role) {
			return true
		}
	}
	return false
}

// Next returns the status the service would move to if it accepts the
// action. Side actions return the unchanged status. The second result
// is false when no such edge exists. Callers must never write this
// value into the cache; it exists for table introspection and tests.
func Next(status models.BookingStatus, action Action) (models.BookingStatus, bool) {
	for _, e := range transitions[status] {
		if e.action == action {
			return e.to, true
		}
	}
	return status, false
}

// Groups is the partition of a fetched booking list by status. The four
// buckets are pairwise disjoint and preserve arrival order.
// Unrecognized holds entries whose status is outside the closed set;
// they are surfaced to the caller, never silently dropped.
type Groups struct {
	Pending      []models.Booking
	Confirmed    []models.Booking
	Completed    []models.Booking
	Cancelled    []models.Booking
	Unrecognized []models.Booking
}

// Group partitions bookings into status buckets.
func Group(bookings []models.Booking) Groups {
	var g Groups
	for _, b := range bookings {
		switch b.Status {
		case models.BookingPending:
			g.Pending = append(g.Pending, b)
		case models.BookingConfirmed:
			g.Confirmed = append(g.Confirmed, b)
		case models.BookingCompleted:
			g.Completed = append(g.Completed, b)
		case models.BookingCancelled:
			g.Cancelled = append(g.Cancelled, b)
		default:
			g.Unrecognized = append(g.Unrecognized, b)
		}
	}
	return g
}

// Total counts the bookings across the four recognized buckets.
func (g Groups) Total() int {
	return len(g.Pending) + len(g.Confirmed) + len(g.Completed) + len(g.Cancelled)
}
