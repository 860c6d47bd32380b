package slots

import (
	"reflect"
	"testing"

	"tutorlink/internal/models"
)

func TestSortChronological(t *testing.T) {
	in := []models.TimeSlot{
		{ID: 1, Date: "2024-06-02", StartTime: "09:00:00", EndTime: "10:00:00"},
		{ID: 2, Date: "2024-06-01", StartTime: "14:00:00", EndTime: "15:00:00"},
		{ID: 3, Date: "2024-06-01", StartTime: "09:00:00", EndTime: "10:00:00"},
	}

	got := SortChronological(in)

	wantOrder := []int64{3, 2, 1}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Fatalf("position %d: got slot %d, want %d (order %v)", i, got[i].ID, id, got)
		}
	}

	// Input untouched
	if in[0].ID != 1 {
		t.Error("input slice was reordered in place")
	}
}

func TestSortTieBreaks(t *testing.T) {
	in := []models.TimeSlot{
		{ID: 9, Date: "2024-06-01", StartTime: "09:00:00", EndTime: "10:30:00"},
		{ID: 4, Date: "2024-06-01", StartTime: "09:00:00", EndTime: "10:00:00"},
		{ID: 2, Date: "2024-06-01", StartTime: "09:00:00", EndTime: "10:00:00"},
	}

	got := SortChronological(in)

	// Same date+start: end_time ascending, then id ascending
	wantOrder := []int64{2, 4, 9}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Fatalf("position %d: got slot %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestSortIdempotent(t *testing.T) {
	in := []models.TimeSlot{
		{ID: 1, Date: "2024-06-03", StartTime: "10:00:00"},
		{ID: 2, Date: "2024-06-01", StartTime: "10:00:00"},
		{ID: 3, Date: "2024-06-01", StartTime: "10:00:00"},
		{ID: 4, Date: "2024-06-02", StartTime: "08:00:00"},
	}

	once := SortChronological(in)
	twice := SortChronological(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("sorting twice changed the order:\nonce:  %v\ntwice: %v", once, twice)
	}
}

func TestAvailable(t *testing.T) {
	in := []models.TimeSlot{
		{ID: 1, Status: models.SlotAvailable},
		{ID: 2, Status: models.SlotBooked},
		{ID: 3, Status: models.SlotAvailable},
		{ID: 4, Status: models.SlotUnavailable},
	}

	got := Available(in)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("Available = %v, want slots 1 and 3", got)
	}
}
