package booking

import (
	"testing"

	"tutorlink/internal/models"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name        string
		status      models.BookingStatus
		action      Action
		role        models.Role
		shouldAllow bool
	}{
		{"tutor confirms pending", models.BookingPending, ActionConfirm, models.RoleTutor, true},
		{"tutor cancels pending", models.BookingPending, ActionCancel, models.RoleTutor, true},
		{"student cancels pending", models.BookingPending, ActionCancel, models.RoleStudent, true},
		{"tutor completes confirmed", models.BookingConfirmed, ActionComplete, models.RoleTutor, true},
		{"student cancels confirmed", models.BookingConfirmed, ActionCancel, models.RoleStudent, true},
		{"student reviews completed", models.BookingCompleted, ActionLeaveReview, models.RoleStudent, true},
		// Edges outside the table
		{"student confirms pending", models.BookingPending, ActionConfirm, models.RoleStudent, false},
		{"student completes confirmed", models.BookingConfirmed, ActionComplete, models.RoleStudent, false},
		{"tutor reviews completed", models.BookingCompleted, ActionLeaveReview, models.RoleTutor, false},
		{"confirm on completed", models.BookingCompleted, ActionConfirm, models.RoleTutor, false},
		{"cancel on completed", models.BookingCompleted, ActionCancel, models.RoleStudent, false},
		{"anything on cancelled", models.BookingCancelled, ActionConfirm, models.RoleTutor, false},
		{"complete on pending", models.BookingPending, ActionComplete, models.RoleTutor, false},
		{"admin confirms pending", models.BookingPending, ActionConfirm, models.RoleAdmin, false},
		{"admin cancels confirmed", models.BookingConfirmed, ActionCancel, models.RoleAdmin, false},
		{"unknown status", models.BookingStatus("archived"), ActionCancel, models.RoleTutor, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed := CanApply(tt.status, tt.action, tt.role)
			if allowed != tt.shouldAllow {
				t.Errorf("%s on %s as %s: expected allowed=%v, got %v",
					tt.action, tt.status, tt.role, tt.shouldAllow, allowed)
			}
		})
	}
}

func TestNext(t *testing.T) {
	tests := []struct {
		status models.BookingStatus
		action Action
		want   models.BookingStatus
		ok     bool
	}{
		{models.BookingPending, ActionConfirm, models.BookingConfirmed, true},
		{models.BookingPending, ActionCancel, models.BookingCancelled, true},
		{models.BookingConfirmed, ActionComplete, models.BookingCompleted, true},
		{models.BookingConfirmed, ActionCancel, models.BookingCancelled, true},
		// leave_review is a side action: status stays put
		{models.BookingCompleted, ActionLeaveReview, models.BookingCompleted, true},
		// completed -> confirmed does not exist
		{models.BookingCompleted, ActionConfirm, models.BookingCompleted, false},
		{models.BookingCancelled, ActionComplete, models.BookingCancelled, false},
	}

	for _, tt := range tests {
		got, ok := Next(tt.status, tt.action)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Next(%s, %s) = (%s, %v), want (%s, %v)",
				tt.status, tt.action, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAllowedActions(t *testing.T) {
	tests := []struct {
		status models.BookingStatus
		role   models.Role
		want   []Action
	}{
		{models.BookingPending, models.RoleTutor, []Action{ActionConfirm, ActionCancel}},
		{models.BookingPending, models.RoleStudent, []Action{ActionCancel}},
		{models.BookingConfirmed, models.RoleTutor, []Action{ActionComplete, ActionCancel}},
		{models.BookingConfirmed, models.RoleStudent, []Action{ActionCancel}},
		{models.BookingCompleted, models.RoleStudent, []Action{ActionLeaveReview}},
		{models.BookingCompleted, models.RoleTutor, nil},
		{models.BookingCancelled, models.RoleTutor, nil},
		{models.BookingCancelled, models.RoleStudent, nil},
		{models.BookingPending, models.RoleAdmin, nil},
	}

	for _, tt := range tests {
		got := AllowedActions(tt.status, tt.role)
		if len(got) != len(tt.want) {
			t.Errorf("AllowedActions(%s, %s) = %v, want %v", tt.status, tt.role, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("AllowedActions(%s, %s) = %v, want %v", tt.status, tt.role, got, tt.want)
				break
			}
		}
	}
}

func TestGroupIsPartition(t *testing.T) {
	bookings := []models.Booking{
		{ID: 1, Status: models.BookingPending},
		{ID: 2, Status: models.BookingConfirmed},
		{ID: 3, Status: models.BookingPending},
		{ID: 4, Status: models.BookingCompleted},
		{ID: 5, Status: models.BookingCancelled},
		{ID: 6, Status: models.BookingStatus("archived")},
		{ID: 7, Status: models.BookingConfirmed},
	}

	g := Group(bookings)

	if g.Total() != 6 {
		t.Errorf("expected 6 recognized bookings, got %d", g.Total())
	}
	if len(g.Unrecognized) != 1 || g.Unrecognized[0].ID != 6 {
		t.Errorf("expected booking 6 in Unrecognized, got %v", g.Unrecognized)
	}

	// Buckets are disjoint: every id appears exactly once
	seen := make(map[int64]int)
	for _, bucket := range [][]models.Booking{g.Pending, g.Confirmed, g.Completed, g.Cancelled, g.Unrecognized} {
		for _, b := range bucket {
			seen[b.ID]++
		}
	}
	if len(seen) != len(bookings) {
		t.Errorf("union has %d ids, want %d", len(seen), len(bookings))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("booking %d appears %d times across buckets", id, n)
		}
	}

	// Arrival order preserved within buckets
	if g.Pending[0].ID != 1 || g.Pending[1].ID != 3 {
		t.Errorf("pending bucket out of arrival order: %v", g.Pending)
	}
	if g.Confirmed[0].ID != 2 || g.Confirmed[1].ID != 7 {
		t.Errorf("confirmed bucket out of arrival order: %v", g.Confirmed)
	}
}

func TestGroupEmpty(t *testing.T) {
	g := Group(nil)
	if g.Total() != 0 || len(g.Unrecognized) != 0 {
		t.Errorf("expected empty groups, got %+v", g)
	}
}
