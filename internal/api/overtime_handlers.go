package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
)

// ========== Overtime handlers ==========

// HandleOvertimeList lists overtime entries
func (s *RESTServer) HandleOvertimeList(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)
	limit, offset := pagination(r)

	filters := storage.OvertimeFilters{}
	if id, err := uuid.Parse(r.URL.Query().Get("employee")); err == nil {
		filters.EmployeeID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.OvertimeStatus(v)
		filters.Status = &status
	}
	if ws, ok := parseDate(r.URL.Query().Get("week")); ok {
		filters.WeekStart = &ws
	}

	entries, total, err := s.store.ListOvertimeEntries(r.Context(), tc.Scope(), filters, limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}

// HandleOvertimeGenerate runs aggregation for the week of the given
// date, defaulting to last week.
func (s *RESTServer) HandleOvertimeGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	ref := time.Now().AddDate(0, 0, -7)
	if d, ok := parseDate(req.Date); ok {
		ref = d
	}

	touched, err := s.services.Overtime.GenerateWeek(r.Context(), s.tenantContext(r), ref)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"entries": touched})
}

// HandleOvertimeApprove accepts a pending entry
func (s *RESTServer) HandleOvertimeApprove(w http.ResponseWriter, r *http.Request) {
	s.decideOvertime(w, r, "approve")
}

// HandleOvertimeReject discards a pending entry
func (s *RESTServer) HandleOvertimeReject(w http.ResponseWriter, r *http.Request) {
	s.decideOvertime(w, r, "reject")
}

// HandleOvertimeAutoBalance shifts the week's last check-out to match
// the contract hours
func (s *RESTServer) HandleOvertimeAutoBalance(w http.ResponseWriter, r *http.Request) {
	s.decideOvertime(w, r, "balance")
}

func (s *RESTServer) decideOvertime(w http.ResponseWriter, r *http.Request, action string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	tc := s.tenantContext(r)
	var entry *models.OvertimeEntry
	switch action {
	case "approve":
		entry, err = s.services.Overtime.Approve(r.Context(), tc, id, req.Notes)
	case "reject":
		entry, err = s.services.Overtime.Reject(r.Context(), tc, id, req.Notes)
	default:
		entry, err = s.services.Overtime.AutoBalance(r.Context(), tc, id, req.Notes)
	}
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, entry)
}
