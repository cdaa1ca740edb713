package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"stellaris/internal/model"
)

// ContentType is the media type of the produced workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// TableExporter provides audit tables to append to the workbook.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]interface{}, []string, error)
}

// BookingColumns are the headers of the bookings sheet.
var BookingColumns = []string{
	"ID", "Status", "Slot start", "Slot end", "Name", "Email", "Phone",
	"Company", "Sector", "Description", "Created at", "Confirmed at",
	"Rejected at", "Rejection reason", "Created by",
}

// BookingRow renders one booking as a sheet row.
func BookingRow(b model.Booking) []interface{} {
	return []interface{}{
		b.ID,
		string(b.Status),
		model.FormatInstant(b.SlotStart),
		model.FormatInstant(b.SlotEnd),
		b.Name,
		b.Email,
		b.Phone,
		deref(b.Company),
		b.Sector,
		deref(b.Description),
		model.FormatInstant(b.CreatedAt),
		formatOptional(b.ConfirmedAt),
		formatOptional(b.RejectedAt),
		deref(b.RejectionReason),
		b.CreatedBy,
	}
}

// Filename names an export produced at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("bookings_%s.xlsx", t.Format("2006-01-02_1504"))
}

// WriteBookings writes a workbook with a bookings sheet and, when tables is set, one sheet per audit table.
func WriteBookings(ctx context.Context, out io.Writer, bookings []model.Booking, tables TableExporter) error {
	w := NewWriter()
	defer w.Close()

	if err := w.AddSheet("Bookings"); err != nil {
		return err
	}
	if err := w.WriteHeader(BookingColumns); err != nil {
		return err
	}
	for _, b := range bookings {
		if err := w.WriteRow(BookingRow(b)); err != nil {
			return fmt.Errorf("write booking %s: %w", b.ID, err)
		}
	}

	if tables != nil {
		if err := writeTables(ctx, w, tables); err != nil {
			return err
		}
	}

	return w.Save(out)
}

func writeTables(ctx context.Context, w *Writer, tables TableExporter) error {
	names, err := tables.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}
	for _, name := range names {
		rows, columns, err := tables.GetTableData(ctx, name)
		if err != nil {
			return fmt.Errorf("get table %s: %w", name, err)
		}
		if err := w.AddSheet(name); err != nil {
			return err
		}
		if err := w.WriteHeader(columns); err != nil {
			return err
		}
		for _, row := range rows {
			values := make([]interface{}, len(columns))
			for i, col := range columns {
				values[i] = cellValue(row[col])
			}
			if err := w.WriteRow(values); err != nil {
				return err
			}
		}
	}
	return nil
}

func cellValue(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return model.FormatInstant(*t)
}
