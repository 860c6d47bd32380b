// Package slots derives ordered views over a tutor's time slots.
package slots

import (
	"sort"

	"tutorlink/internal/models"
)

// SortChronological returns a new slice ordered ascending by
// (date, start_time, end_time, id). Date and time strings are
// zero-padded ISO formats, so lexicographic comparison is
// chronological. The sort is stable: equal keys never swap relative
// order, and sorting an already-sorted list is a no-op.
func SortChronological(in []models.TimeSlot) []models.TimeSlot {
	out := make([]models.TimeSlot, len(in))
	copy(out, in)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.EndTime != b.EndTime {
			return a.EndTime < b.EndTime
		}
		return a.ID < b.ID
	})
	return out
}

// Available filters to slots open for booking, preserving order.
func Available(in []models.TimeSlot) []models.TimeSlot {
	var out []models.TimeSlot
	for _, s := range in {
		if s.Status == models.SlotAvailable {
			out = append(out, s)
		}
	}
	return out
}
