package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/clock"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// ========== Punch admin handlers ==========

// HandleListPunches lists punches across the tenant
func (s *RESTServer) HandleListPunches(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)
	limit, offset := pagination(r)

	filters := storage.PunchFilters{}
	if id, err := uuid.Parse(r.URL.Query().Get("employee")); err == nil {
		filters.EmployeeID = &id
	}
	if from, ok := parseDate(r.URL.Query().Get("from")); ok {
		filters.From = &from
	}
	if to, ok := parseDate(r.URL.Query().Get("to")); ok {
		filters.To = &to
	}

	punches, total, err := s.store.ListPunches(r.Context(), tc.Scope(), filters, limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"punches": punches,
		"total":   total,
	})
}

// HandleListOpenPunches lists punches still open today
func (s *RESTServer) HandleListOpenPunches(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	date, ok := parseDate(r.URL.Query().Get("date"))
	if !ok {
		date = dateutil.Today(s.config.Location())
	}

	punches, err := s.store.ListOpenPunchesForDate(r.Context(), tc.Scope(), date)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"punches": punches})
}

// HandleGetPunch returns one punch with its breaks
func (s *RESTServer) HandleGetPunch(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid punch id")
		return
	}

	punch, err := s.store.GetPunch(r.Context(), tc.Scope(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	breaks, err := s.store.ListBreaksForPunch(r.Context(), tc.Scope(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"punch":  punch,
		"breaks": breaks,
	})
}

// HandleUpdatePunch lets an admin correct a punch. Edits leave the
// original seals in place, so a later audit reports the mismatch.
func (s *RESTServer) HandleUpdatePunch(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid punch id")
		return
	}

	var req struct {
		CheckIn    *time.Time `json:"checkIn"`
		CheckOut   *time.Time `json:"checkOut"`
		Notes      *string    `json:"notes"`
		AdminNotes *string    `json:"adminNotes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	punch, err := s.store.GetPunch(r.Context(), tc.Scope(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if req.CheckIn != nil {
		punch.CheckIn = req.CheckIn.UTC()
		punch.Date = dateutil.Day(*req.CheckIn, s.config.Location())
	}
	if req.CheckOut != nil {
		out := req.CheckOut.UTC()
		punch.CheckOut = &out
	}
	if req.Notes != nil {
		punch.Notes = clock.Sanitize(*req.Notes)
	}
	if req.AdminNotes != nil {
		punch.AdminNotes = clock.Sanitize(*req.AdminNotes)
	}
	if punch.CheckOut != nil && punch.CheckOut.Before(punch.CheckIn) {
		s.respondError(w, http.StatusBadRequest, "checkOut before checkIn")
		return
	}

	adminID := tc.EmployeeID
	punch.ModifiedBy = &adminID
	if err := s.store.UpdatePunch(r.Context(), tc.Scope(), punch); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, punch)
}

// HandleDeletePunch removes a punch and its breaks and seals
func (s *RESTServer) HandleDeletePunch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid punch id")
		return
	}
	if err := s.store.DeletePunch(r.Context(), s.tenantContext(r).Scope(), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleClosePunchNow closes an open punch at the current time
func (s *RESTServer) HandleClosePunchNow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid punch id")
		return
	}

	punch, err := s.services.Clock.CloseNow(r.Context(), s.tenantContext(r), id, clockMeta(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, punch)
}

// HandleListPunchSeals returns the seal trail of a punch
func (s *RESTServer) HandleListPunchSeals(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid punch id")
		return
	}

	seals, err := s.store.ListSealsForPunch(r.Context(), tc.Scope(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"seals": seals})
}
