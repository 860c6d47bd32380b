// Package export writes booking reports to spreadsheet files.
package export

import (
	"fmt"
	"io"

	"tutorlink/internal/booking"
	"tutorlink/internal/models"
)

// SheetWriter abstracts the spreadsheet backend.
type SheetWriter interface {
	AddSheet(name string) error
	WriteHeader(columns []string) error
	WriteRow(row []interface{}) error
	SaveTo(w io.Writer) error
}

var bookingColumns = []string{"ID", "Date", "Start", "End", "Tutor", "Student", "Comment"}

// WriteBookings writes one sheet per non-empty status bucket, rows in
// arrival order. Unrecognized entries get their own sheet so they stay
// visible.
func WriteBookings(w SheetWriter, groups booking.Groups) error {
	sections := []struct {
		name     string
		bookings []models.Booking
	}{
		{"Pending", groups.Pending},
		{"Confirmed", groups.Confirmed},
		{"Completed", groups.Completed},
		{"Cancelled", groups.Cancelled},
		{"Unrecognized", groups.Unrecognized},
	}

	wrote := false
	for _, sec := range sections {
		if len(sec.bookings) == 0 {
			continue
		}
		if err := w.AddSheet(sec.name); err != nil {
			return fmt.Errorf("add sheet %s: %w", sec.name, err)
		}
		if err := w.WriteHeader(bookingColumns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for _, b := range sec.bookings {
			row := []interface{}{
				b.ID,
				b.Slot.Date,
				b.Slot.StartTime,
				b.Slot.EndTime,
				b.TutorID,
				b.StudentID,
				b.Comment,
			}
			if err := w.WriteRow(row); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
		wrote = true
	}

	if !wrote {
		if err := w.AddSheet("Bookings"); err != nil {
			return err
		}
		if err := w.WriteHeader(bookingColumns); err != nil {
			return err
		}
	}
	return nil
}
