package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// ========== Clock handlers ==========

// HandleCheckIn opens a punch for the calling employee
func (s *RESTServer) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	punch, err := s.services.Clock.CheckIn(r.Context(), s.tenantContext(r), req.Notes, clockMeta(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, punch)
}

// HandleCheckOut closes the calling employee's open punch
func (s *RESTServer) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Notes string `json:"notes"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	punch, err := s.services.Clock.CheckOut(r.Context(), s.tenantContext(r), req.Notes, clockMeta(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, punch)
}

// HandleClockStatus returns the employee's current clock state
func (s *RESTServer) HandleClockStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services.Clock.Status(r.Context(), s.tenantContext(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// HandleClockHistory lists the employee's own punches
func (s *RESTServer) HandleClockHistory(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)
	limit, offset := pagination(r)

	filters := storage.PunchFilters{EmployeeID: &tc.EmployeeID}
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

// ---- query helpers shared by the handler files ----

func pagination(r *http.Request) (int, int) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// parseDate parses a YYYY-MM-DD query value into a pure date
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return dateutil.Day(t, time.UTC), true
}
