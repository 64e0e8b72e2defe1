package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// validClockPtr accepts nil or a well-formed "HH:MM" value
func validClockPtr(s *string) bool {
	if s == nil || *s == "" {
		return true
	}
	_, _, ok := dateutil.ParseClock(*s)
	return ok
}

// ========== Leave handlers (employee side) ==========

// HandleLeaveCreate files a new leave request
func (s *RESTServer) HandleLeaveCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind      string `json:"kind" validate:"required"`
		StartDate string `json:"startDate" validate:"required"`
		EndDate   string `json:"endDate" validate:"required"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, ok := parseDate(req.StartDate)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid startDate, want YYYY-MM-DD")
		return
	}
	end, ok := parseDate(req.EndDate)
	if !ok {
		s.respondError(w, http.StatusBadRequest, "invalid endDate, want YYYY-MM-DD")
		return
	}

	request, err := s.services.Leave.Create(r.Context(), s.tenantContext(r),
		models.LeaveKind(req.Kind), start, end, req.Reason, nil)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, request)
}

// HandleLeaveListMine lists the caller's own requests
func (s *RESTServer) HandleLeaveListMine(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)
	limit, offset := pagination(r)

	filters := storage.LeaveFilters{EmployeeID: &tc.EmployeeID}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.LeaveStatus(v)
		filters.Status = &status
	}

	requests, total, err := s.store.ListLeaveRequests(r.Context(), tc.Scope(), filters, limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
	})
}

// HandleLeaveCancel withdraws the caller's pending request
func (s *RESTServer) HandleLeaveCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := s.services.Leave.Cancel(r.Context(), s.tenantContext(r), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, request)
}

// HandleLeaveAttach uploads a justification document for a request
func (s *RESTServer) HandleLeaveAttach(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	request, err := s.store.GetLeaveRequest(r.Context(), tc.Scope(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	if request.EmployeeID != tc.EmployeeID && !tc.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	filename, data, err := readUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	att, err := s.services.Files.Upload(r.Context(), tc.TenantID, request.EmployeeID, "leave", filename, data)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	request.Attachment = att
	if err := s.store.UpdateLeaveRequest(r.Context(), tc.Scope(), request); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, request)
}

// ========== Reminder preference handlers ==========

// HandleReminderPrefsGet returns the caller's reminder settings
func (s *RESTServer) HandleReminderPrefsGet(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	emp, err := s.store.GetEmployee(r.Context(), tc.Scope(), tc.EmployeeID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": emp.RemindersEnabled,
		"days":    emp.ReminderDays,
		"entryAt": emp.ReminderEntryAt,
		"exitAt":  emp.ReminderExitAt,
		"extraTo": emp.ReminderExtraTo,
	})
}

// HandleReminderPrefsSet updates the caller's reminder settings.
// Reminders are a pro-plan feature; lite tenants get 403.
func (s *RESTServer) HandleReminderPrefsSet(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)
	if !tc.Plan.Features().EmailNotifications {
		s.respondError(w, http.StatusForbidden, "email notifications are not available on this plan")
		return
	}

	var req struct {
		Enabled bool    `json:"enabled"`
		Days    string  `json:"days"`
		EntryAt *string `json:"entryAt"`
		ExitAt  *string `json:"exitAt"`
		ExtraTo string  `json:"extraTo" validate:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validClockPtr(req.EntryAt) || !validClockPtr(req.ExitAt) {
		s.respondError(w, http.StatusBadRequest, "reminder times must be HH:MM")
		return
	}

	emp, err := s.store.GetEmployee(r.Context(), tc.Scope(), tc.EmployeeID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	emp.RemindersEnabled = req.Enabled
	emp.ReminderDays = req.Days
	emp.ReminderEntryAt = req.EntryAt
	emp.ReminderExitAt = req.ExitAt
	emp.ReminderExtraTo = req.ExtraTo
	if err := s.store.UpdateEmployee(r.Context(), tc.Scope(), emp); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, emp)
}
