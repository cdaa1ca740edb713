package model

import "time"

// BookingStatus represents booking status.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
)

// CreatedByAdmin marks bookings entered from the admin surface.
const CreatedByAdmin = "admin"

// Booking is a visitor's appointment for one slot.
type Booking struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone"`
	Sector          string        `json:"sector"`
	Company         *string       `json:"company"`
	Description     *string       `json:"description"`
	SlotStart       time.Time     `json:"slotStart"`
	SlotEnd         time.Time     `json:"slotEnd"`
	CreatedAt       time.Time     `json:"createdAt"`
	Status          BookingStatus `json:"status"`
	ConfirmedAt     *time.Time    `json:"confirmedAt"`
	RejectedAt      *time.Time    `json:"rejectedAt,omitempty"`
	RejectionReason *string       `json:"rejectionReason,omitempty"`
	CreatedBy       string        `json:"createdBy,omitempty"`
}

// Duration returns the booked slot length.
func (b *Booking) Duration() time.Duration {
	return b.SlotEnd.Sub(b.SlotStart)
}

// StringPtr returns nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
