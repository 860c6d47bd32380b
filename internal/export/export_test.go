package export

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorlink/internal/booking"
	"tutorlink/internal/models"
)

type fakeWriter struct {
	sheets  []string
	headers int
	rows    [][]interface{}
}

func (f *fakeWriter) AddSheet(name string) error {
	f.sheets = append(f.sheets, name)
	return nil
}

func (f *fakeWriter) WriteHeader([]string) error {
	f.headers++
	return nil
}

func (f *fakeWriter) WriteRow(row []interface{}) error {
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeWriter) SaveTo(io.Writer) error { return nil }

func TestWriteBookingsOneSheetPerNonEmptyBucket(t *testing.T) {
	groups := booking.Group([]models.Booking{
		{ID: 1, Status: models.BookingPending, Slot: models.TimeSlot{Date: "2024-06-01"}},
		{ID: 2, Status: models.BookingCompleted},
		{ID: 3, Status: models.BookingPending},
	})

	w := &fakeWriter{}
	require.NoError(t, WriteBookings(w, groups))

	assert.Equal(t, []string{"Pending", "Completed"}, w.sheets)
	assert.Equal(t, 2, w.headers)
	assert.Len(t, w.rows, 3)
	assert.Equal(t, int64(1), w.rows[0][0])
	assert.Equal(t, "2024-06-01", w.rows[0][1])
}

func TestWriteBookingsUnrecognizedGetOwnSheet(t *testing.T) {
	groups := booking.Group([]models.Booking{
		{ID: 6, Status: models.BookingStatus("archived")},
	})

	w := &fakeWriter{}
	require.NoError(t, WriteBookings(w, groups))
	assert.Equal(t, []string{"Unrecognized"}, w.sheets)
}

func TestWriteBookingsEmpty(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, WriteBookings(w, booking.Groups{}))
	assert.Equal(t, []string{"Bookings"}, w.sheets, "empty export still produces a workbook")
}

func TestExcelizeWriterProducesWorkbook(t *testing.T) {
	w := NewExcelizeWriter()
	require.NoError(t, w.AddSheet("Pending"))
	require.NoError(t, w.WriteHeader([]string{"ID", "Date"}))
	require.NoError(t, w.WriteRow([]interface{}{int64(7), "2024-06-01"}))

	var buf bytes.Buffer
	require.NoError(t, w.SaveTo(&buf))
	assert.Greater(t, buf.Len(), 0)
}
