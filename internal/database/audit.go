package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"stellaris/internal/events"
)

// AuditTableNames lists the tables exported in audit reports.
var AuditTableNames = []string{"audit_log"}

// AuditEntry is one recorded admin or booking action.
type AuditEntry struct {
	ID        int64     `json:"id"`
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	BookingID string    `json:"bookingId,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordAudit stores an entry.
func (db *DB) RecordAudit(ctx context.Context, e *AuditEntry) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (event_id, event_type, booking_id, subject, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, e.EventType, nullString(e.BookingID), nullString(e.Subject), nullString(e.Detail), e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// ListAudit returns the latest entries, newest first.
func (db *DB) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, event_id, event_type, booking_id, subject, detail, created_at
		 FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var (
			e                          AuditEntry
			bookingID, subject, detail sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.EventType, &bookingID, &subject, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.BookingID = bookingID.String
		e.Subject = subject.String
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetTableNames returns list of table names to export.
func (db *DB) GetTableNames(ctx context.Context) ([]string, error) {
	return AuditTableNames, nil
}

// GetTableData returns all rows from a table as maps.
func (db *DB) GetTableData(ctx context.Context, tableName string) (result []map[string]interface{}, columns []string, err error) {
	// Validate table name to prevent SQL injection
	validTable := false
	for _, t := range AuditTableNames {
		if t == tableName {
			validTable = true
			break
		}
	}
	if !validTable {
		return nil, nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY id", tableName))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err = rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if errScan := rows.Scan(valuePtrs...); errScan != nil {
			return nil, nil, errScan
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	return result, columns, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// AuditRecorder writes every published domain event to the audit log.
type AuditRecorder struct {
	db  *DB
	log zerolog.Logger
}

// NewAuditRecorder creates a recorder.
func NewAuditRecorder(db *DB, logger zerolog.Logger) *AuditRecorder {
	return &AuditRecorder{db: db, log: logger.With().Str("component", "audit").Logger()}
}

// Register subscribes the recorder to every event type.
func (r *AuditRecorder) Register(bus *events.EventBus) {
	bus.Subscribe(r.Handle,
		events.BookingRequested,
		events.BookingCreated,
		events.BookingConfirmed,
		events.BookingRejected,
		events.ScheduleUpdated,
		events.SlotBlocked,
		events.SlotUnblocked,
	)
}

// Handle records one event.
func (r *AuditRecorder) Handle(e events.Event) error {
	entry := AuditEntry{
		EventID:   e.ID,
		EventType: e.Type,
		Detail:    string(e.Payload),
		CreatedAt: e.CreatedAt,
	}

	switch e.Type {
	case events.SlotBlocked, events.SlotUnblocked:
		var p events.SlotPayload
		if err := json.Unmarshal(e.Payload, &p); err == nil {
			entry.Subject = p.Start
		}
	case events.ScheduleUpdated:
		var p events.SchedulePayload
		if err := json.Unmarshal(e.Payload, &p); err == nil {
			entry.Subject = p.Timezone
		}
	default:
		var p events.BookingPayload
		if err := json.Unmarshal(e.Payload, &p); err == nil {
			entry.BookingID = p.Booking.ID
			entry.Subject = p.Booking.Email
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.db.RecordAudit(ctx, &entry); err != nil {
		return err
	}
	r.log.Debug().Str("event", e.Type).Int64("id", entry.ID).Msg("Audit entry recorded")
	return nil
}
