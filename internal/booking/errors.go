package booking

import "errors"

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidSlot      = errors.New("invalid slot start")
	ErrSlotTooSoon      = errors.New("slot is within the minimum notice")
	ErrSlotUnavailable  = errors.New("slot is not available")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidRange     = errors.New("invalid range")
	ErrInvalidSlotStart = errors.New("invalid blocked slot start")
)

// errUnchanged aborts an update without rewriting the file.
var errUnchanged = errors.New("unchanged")
