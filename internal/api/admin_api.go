package api

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"stellaris/internal/metrics"
)

type slotBody struct {
	Start string `json:"start"`
}

// GET /api/admin/schedule
func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("get_schedule")
	sched, err := s.svc.Schedule(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "read_schedule_failed")
		return
	}
	writeJSON(w, http.StatusOK, sched)
}

// PUT /api/admin/schedule
func (s *HTTPServer) handlePutSchedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("put_schedule")
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	sched, err := s.svc.UpdateSchedule(r.Context(), raw)
	if err != nil {
		s.writeServiceError(w, err, "write_schedule_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "schedule": sched})
}

// POST /api/admin/slots/block
func (s *HTTPServer) handleBlockSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("block_slot")
	var body slotBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_start")
		return
	}
	if err := s.svc.BlockSlot(r.Context(), body.Start); err != nil {
		s.writeServiceError(w, err, "block_slot_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// POST /api/admin/slots/unblock
func (s *HTTPServer) handleUnblockSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("unblock_slot")
	var body slotBody
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_start")
		return
	}
	if err := s.svc.UnblockSlot(r.Context(), body.Start); err != nil {
		s.writeServiceError(w, err, "unblock_slot_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GET /api/admin/slots/blocked
func (s *HTTPServer) handleBlockedSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("blocked_slots")
	blocked, err := s.svc.ListBlocked(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "blocked_list_failed")
		return
	}
	if blocked == nil {
		blocked = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blocked": blocked})
}
