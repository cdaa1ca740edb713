package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"stellaris/internal/booking"
	"stellaris/internal/slots"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeServiceError maps service errors to responses. Anything unrecognised is a 500 carrying op.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error, op string) {
	var verr *slots.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, booking.ErrSlotTooSoon):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":          "slot_too_soon",
			"minNoticeHours": s.svc.MinNoticeHours(),
		})
	case errors.Is(err, booking.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "missing_fields")
	case errors.Is(err, booking.ErrInvalidSlot):
		writeError(w, http.StatusBadRequest, "invalid_slot")
	case errors.Is(err, booking.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range")
	case errors.Is(err, booking.ErrInvalidSlotStart):
		writeError(w, http.StatusBadRequest, "invalid_slot_start")
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found")
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable")
	default:
		s.log.Error().Err(err).Str("op", op).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, op)
	}
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}
