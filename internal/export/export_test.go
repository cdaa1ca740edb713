package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stellaris/internal/model"
)

type mockTables struct {
	mock.Mock
}

func (m *mockTables) GetTableNames(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockTables) GetTableData(ctx context.Context, name string) ([]map[string]interface{}, []string, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]map[string]interface{}), args.Get(1).([]string), args.Error(2)
}

func TestWriteBookings(t *testing.T) {
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	company := "Acme"
	bookings := []model.Booking{
		{ID: "b1", Name: "Ada", Email: "ada@example.com", Company: &company, SlotStart: start, SlotEnd: start.Add(30 * time.Minute), Status: model.StatusPending},
		{ID: "b2", Name: "Bob", SlotStart: start.Add(time.Hour), SlotEnd: start.Add(90 * time.Minute), Status: model.StatusConfirmed, ConfirmedAt: &start},
	}

	tables := &mockTables{}
	tables.On("GetTableNames", mock.Anything).Return([]string{"audit_log"}, nil)
	tables.On("GetTableData", mock.Anything, "audit_log").Return(
		[]map[string]interface{}{{"id": int64(1), "event_type": []byte("booking.requested")}},
		[]string{"id", "event_type"},
		nil,
	)

	var buf bytes.Buffer
	require.NoError(t, WriteBookings(context.Background(), &buf, bookings, tables))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Bookings", "audit_log"}, f.GetSheetList())

	rows, err := f.GetRows("Bookings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "b1", rows[1][0])
	assert.Equal(t, "pending", rows[1][1])
	assert.Equal(t, "2024-06-10T09:00:00Z", rows[1][2])
	assert.Equal(t, "Acme", rows[1][7])
	assert.Equal(t, "2024-06-10T09:00:00Z", rows[2][11])

	audit, err := f.GetRows("audit_log")
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, "booking.requested", audit[1][1])
	tables.AssertExpectations(t)
}

func TestWriter_NoActiveSheet(t *testing.T) {
	w := NewWriter()
	defer w.Close()
	assert.Error(t, w.WriteRow([]interface{}{"x"}))
	assert.Error(t, w.WriteHeader([]string{"x"}))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "bookings_2024-06-10_0930.xlsx", Filename(time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)))
}
