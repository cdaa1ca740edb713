package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"stellaris/internal/booking"
	"stellaris/internal/database"
	"stellaris/internal/export"
	"stellaris/internal/metrics"
	"stellaris/internal/model"
)

// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("create_booking")
	var req booking.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	b, err := s.svc.CreateBooking(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, "booking_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"booking": b})
}

// POST /api/admin/bookings
func (s *HTTPServer) handleAdminCreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("admin_create_booking")
	var req booking.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	b, err := s.svc.CreateAdminBooking(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err, "admin_booking_failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"booking": b})
}

// GET /api/admin/bookings
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("list_bookings")
	bookings, err := s.svc.ListBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "bookings_read_failed")
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": bookings})
}

// POST /api/admin/bookings/:id/confirm
func (s *HTTPServer) handleConfirmBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	metrics.IncHTTP("confirm_booking")
	b, err := s.svc.ConfirmBooking(r.Context(), ps.ByName("id"))
	if err != nil {
		s.writeServiceError(w, err, "confirm_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": b})
}

// POST /api/admin/bookings/:id/reject
func (s *HTTPServer) handleRejectBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	metrics.IncHTTP("reject_booking")
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	b, err := s.svc.RejectBooking(r.Context(), ps.ByName("id"), body.Reason)
	if err != nil {
		s.writeServiceError(w, err, "reject_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"booking": b})
}

// handleExportBookings streams every booking as an xlsx workbook, audit tables included.
// GET /api/admin/bookings/export
func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("export_bookings")
	bookings, err := s.svc.ListBookings(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "export_failed")
		return
	}

	var tables export.TableExporter
	if s.opts.Audit != nil {
		tables = s.opts.Audit
	}

	var buf bytes.Buffer
	if err := export.WriteBookings(r.Context(), &buf, bookings, tables); err != nil {
		s.writeServiceError(w, err, "export_failed")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(s.now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GET /api/admin/audit?limit=N
func (s *HTTPServer) handleAudit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("audit")
	if s.opts.Audit == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": []database.AuditEntry{}})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.opts.Audit.ListAudit(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err, "audit_read_failed")
		return
	}
	if entries == nil {
		entries = []database.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
