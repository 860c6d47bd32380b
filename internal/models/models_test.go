package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"student", "tutor", "admin"} {
		role, err := ParseRole(s)
		if err != nil {
			t.Errorf("ParseRole(%q) unexpected error: %v", s, err)
		}
		if string(role) != s {
			t.Errorf("ParseRole(%q) = %q", s, role)
		}
	}

	for _, s := range []string{"", "teacher", "ADMIN", "superuser"} {
		if _, err := ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q) expected error", s)
		}
	}
}

func TestBookingStatus(t *testing.T) {
	known := []BookingStatus{BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled}
	for _, s := range known {
		if !s.Known() {
			t.Errorf("%s should be known", s)
		}
	}
	if BookingStatus("archived").Known() {
		t.Error("archived should not be known")
	}

	if BookingPending.Terminal() || BookingConfirmed.Terminal() {
		t.Error("pending and confirmed are not terminal")
	}
	if !BookingCompleted.Terminal() || !BookingCancelled.Terminal() {
		t.Error("completed and cancelled are terminal")
	}
}

func TestTimeSlotStartsAt(t *testing.T) {
	slot := TimeSlot{Date: "2024-06-01", StartTime: "10:00:00"}
	got, err := slot.StartsAt(time.UTC)
	if err != nil {
		t.Fatalf("StartsAt: %v", err)
	}
	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", got, want)
	}

	bad := TimeSlot{Date: "June 1st", StartTime: "10:00:00"}
	if _, err := bad.StartsAt(time.UTC); err == nil {
		t.Error("expected parse error for malformed date")
	}
}

func TestBookingUnmarshal(t *testing.T) {
	raw := `{
		"id": 7, "status": "pending", "tutor": 3, "student": 12, "comment": "algebra",
		"slot": {"id": 41, "date": "2024-06-01", "start_time": "10:00:00", "end_time": "11:00:00", "status": "booked"}
	}`

	var b Booking
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.ID != 7 || b.Status != BookingPending || b.TutorID != 3 || b.StudentID != 12 {
		t.Errorf("unexpected booking: %+v", b)
	}
	if b.Slot.EndTime != "11:00:00" || b.Slot.Status != SlotBooked {
		t.Errorf("unexpected slot: %+v", b.Slot)
	}
}
