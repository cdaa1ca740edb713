package notify

import (
	"fmt"
	"strings"

	"stellaris/internal/model"
)

const slotFormat = "Monday 2 January 2006 at 15:04 -07:00"

// Message is one outgoing notification.
type Message struct {
	Channel string
	To      string
	Subject string
	Body    string
}

const (
	ChannelMail     = "mail"
	ChannelTelegram = "telegram"
)

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// RequestedBody tells the admin about a new pending request.
func RequestedBody(b model.Booking) string {
	return strings.Join([]string{
		"New slot request",
		"",
		"Name: " + b.Name,
		"Email: " + b.Email,
		"Phone: " + b.Phone,
		"Company: " + orDash(b.Company),
		"Sector: " + b.Sector,
		"Slot: " + b.SlotStart.Format(slotFormat),
		"",
		"Please confirm this slot in the admin.",
	}, "\n")
}

// ConfirmedBody tells the visitor their booking is confirmed.
func ConfirmedBody(b model.Booking) string {
	head := "Your appointment is confirmed!"
	if b.CreatedBy == model.CreatedByAdmin {
		head = "Your appointment is confirmed (added by the administrator)."
	}
	return strings.Join([]string{
		head,
		"",
		"Slot: " + b.SlotStart.Format(slotFormat),
		"Sector: " + b.Sector,
		"",
		"Thank you and see you soon.",
	}, "\n")
}

// RejectedBody tells the visitor their request was declined.
func RejectedBody(b model.Booking) string {
	lines := []string{
		"Your appointment request was declined",
		"",
		"Requested slot: " + b.SlotStart.Format(slotFormat),
	}
	if b.RejectionReason != nil && *b.RejectionReason != "" {
		lines = append(lines, "Reason: "+*b.RejectionReason)
	}
	lines = append(lines, "", "You can pick another slot from the booking page.")
	return strings.Join(lines, "\n")
}

// TelegramRequestedText is the short admin chat variant of RequestedBody.
func TelegramRequestedText(b model.Booking) string {
	return fmt.Sprintf("New request: %s (%s, %s)\n%s",
		b.Name, b.Sector, b.Phone, b.SlotStart.Format(slotFormat))
}

// ReminderBody reminds the visitor of tomorrow's appointment.
func ReminderBody(b model.Booking) string {
	return strings.Join([]string{
		"Reminder: your appointment is tomorrow",
		"",
		"Slot: " + b.SlotStart.Format(slotFormat),
		"Sector: " + b.Sector,
		"",
		"If you cannot come, please reply to this message.",
	}, "\n")
}
