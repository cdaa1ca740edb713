package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"stellaris/internal/booking"
	"stellaris/internal/metrics"
	"stellaris/internal/model"
)

// handleSlots lists public slots, grouped per day when grouped=1|true.
// GET /api/slots
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("slots")
	q := r.URL.Query()
	s.writeSlots(w, r, booking.SlotQuery{From: q.Get("from"), To: q.Get("to")}, isTrue(q.Get("grouped")), "slots_failed")
}

// GET /api/slots/grouped
func (s *HTTPServer) handleSlotsGrouped(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("slots_grouped")
	q := r.URL.Query()
	s.writeSlots(w, r, booking.SlotQuery{From: q.Get("from"), To: q.Get("to")}, true, "slots_grouped_failed")
}

// handleAdminSlots lists slots without the minimum notice.
// GET /api/admin/slots
func (s *HTTPServer) handleAdminSlots(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("admin_slots")
	q := r.URL.Query()
	s.writeSlots(w, r, booking.SlotQuery{From: q.Get("from"), To: q.Get("to"), Admin: true}, isTrue(q.Get("grouped")), "admin_slots_failed")
}

func (s *HTTPServer) writeSlots(w http.ResponseWriter, r *http.Request, q booking.SlotQuery, grouped bool, op string) {
	list, err := s.svc.ListSlots(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err, op)
		return
	}
	if grouped {
		writeJSON(w, http.StatusOK, list.Grouped())
		return
	}
	out := list.Slots
	if out == nil {
		out = []model.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": out})
}

// GET /api/slots/next
func (s *HTTPServer) handleNextSlot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	metrics.IncHTTP("next_slot")
	next, err := s.svc.NextSlot(r.Context())
	if err != nil {
		s.writeServiceError(w, err, "next_slot_failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"next": next})
}
