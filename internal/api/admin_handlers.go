package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
	"github.com/timeclock-server/timeclock-server-pro/pkg/crypto"
	"github.com/timeclock-server/timeclock-server-pro/pkg/dateutil"
)

// ========== Employee admin handlers ==========

type employeeRequest struct {
	Username        string  `json:"username" validate:"required,min=3,max=60"`
	Email           string  `json:"email" validate:"required,email"`
	FullName        string  `json:"fullName" validate:"required,max=120"`
	Password        string  `json:"password"`
	Role            *string `json:"role"`
	WeeklyHours     int     `json:"weeklyHours"`
	CenterID        *string `json:"centerId"`
	CategoryID      *string `json:"categoryId"`
	HireDate        *string `json:"hireDate"`
	TerminationDate *string `json:"terminationDate"`
	ThemePreference string  `json:"themePreference"`
}

// HandleListEmployees lists the tenant's employees
func (s *RESTServer) HandleListEmployees(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)
	limit, offset := pagination(r)

	filters := storage.EmployeeFilters{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	if id, err := uuid.Parse(r.URL.Query().Get("center")); err == nil {
		filters.CenterID = &id
	}
	if id, err := uuid.Parse(r.URL.Query().Get("category")); err == nil {
		filters.CategoryID = &id
	}
	// a center-scoped admin only sees their own center
	if tc.CenterID != nil {
		filters.CenterID = tc.CenterID
	}

	employees, total, err := s.store.ListEmployees(r.Context(), tc.Scope(), filters, limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"employees": employees,
		"total":     total,
	})
}

// HandleCreateEmployee creates an employee, enforcing the plan cap
func (s *RESTServer) HandleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		s.respondError(w, http.StatusBadRequest, "password is required")
		return
	}

	if cap := tc.Plan.Features().MaxEmployees; cap > 0 {
		count, err := s.store.CountEmployees(r.Context(), tc.Scope())
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		if count >= int64(cap) {
			s.respondError(w, http.StatusForbidden, "employee limit reached for this plan")
			return
		}
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	emp := &models.Employee{
		Username:        req.Username,
		Email:           req.Email,
		FullName:        req.FullName,
		PasswordHash:    hash,
		IsActive:        true,
		WeeklyHours:     req.WeeklyHours,
		ThemePreference: req.ThemePreference,
	}
	if err := applyEmployeeRefs(emp, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateEmployee(r.Context(), tc.Scope(), emp); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, emp)
}

// HandleGetEmployee gets one employee
func (s *RESTServer) HandleGetEmployee(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	emp, ok := s.managedEmployee(w, r, tc)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, emp)
}

// HandleUpdateEmployee updates an employee
func (s *RESTServer) HandleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	emp, ok := s.managedEmployee(w, r, tc)
	if !ok {
		return
	}

	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	emp.Username = req.Username
	emp.Email = req.Email
	emp.FullName = req.FullName
	emp.WeeklyHours = req.WeeklyHours
	emp.ThemePreference = req.ThemePreference
	if req.Password != "" {
		hash, err := crypto.HashPassword(req.Password)
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		emp.PasswordHash = hash
	}
	if err := applyEmployeeRefs(emp, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpdateEmployee(r.Context(), tc.Scope(), emp); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, emp)
}

// HandleDeleteEmployee deletes an employee and their records
func (s *RESTServer) HandleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	emp, ok := s.managedEmployee(w, r, tc)
	if !ok {
		return
	}
	if emp.ID == tc.EmployeeID {
		s.respondError(w, http.StatusUnprocessableEntity, "cannot delete own account")
		return
	}

	if err := s.store.DeleteEmployee(r.Context(), tc.Scope(), emp.ID); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleToggleEmployeeActive flips the active flag
func (s *RESTServer) HandleToggleEmployeeActive(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	emp, ok := s.managedEmployee(w, r, tc)
	if !ok {
		return
	}
	if emp.ID == tc.EmployeeID {
		s.respondError(w, http.StatusUnprocessableEntity, "cannot deactivate own account")
		return
	}

	emp.IsActive = !emp.IsActive
	if err := s.store.UpdateEmployee(r.Context(), tc.Scope(), emp); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, emp)
}

// HandleListDailyStatuses lists an employee's daily statuses in a range
func (s *RESTServer) HandleListDailyStatuses(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	emp, ok := s.managedEmployee(w, r, tc)
	if !ok {
		return
	}

	from, ok := parseDate(r.URL.Query().Get("from"))
	if !ok {
		from = dateutil.Day(time.Now().AddDate(0, -1, 0), time.UTC)
	}
	to, ok := parseDate(r.URL.Query().Get("to"))
	if !ok {
		to = dateutil.Day(time.Now(), time.UTC)
	}

	statuses, err := s.store.ListDailyStatuses(r.Context(), tc.Scope(), emp.ID, from, to)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"statuses": statuses})
}

// managedEmployee loads the {id} employee and enforces the admin's
// center scope. Out-of-scope employees read as not found.
func (s *RESTServer) managedEmployee(w http.ResponseWriter, r *http.Request, tc *tenant.Context) (*models.Employee, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid employee id")
		return nil, false
	}

	emp, err := s.store.GetEmployee(r.Context(), tc.Scope(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return nil, false
	}
	if !tc.ManagesEmployee(emp) {
		s.respondError(w, http.StatusNotFound, "not found")
		return nil, false
	}
	return emp, true
}

func applyEmployeeRefs(emp *models.Employee, req *employeeRequest) error {
	if req.Role != nil && *req.Role != "" {
		role := models.Role(*req.Role)
		if !role.Valid() {
			return errors.New("invalid role")
		}
		emp.Role = &role
	} else {
		emp.Role = nil
	}

	emp.CenterID = nil
	if req.CenterID != nil && *req.CenterID != "" {
		id, err := uuid.Parse(*req.CenterID)
		if err != nil {
			return errors.New("invalid centerId")
		}
		emp.CenterID = &id
	}

	emp.CategoryID = nil
	if req.CategoryID != nil && *req.CategoryID != "" {
		id, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			return errors.New("invalid categoryId")
		}
		emp.CategoryID = &id
	}

	emp.HireDate = nil
	if req.HireDate != nil && *req.HireDate != "" {
		d, ok := parseDate(*req.HireDate)
		if !ok {
			return errors.New("invalid hireDate, want YYYY-MM-DD")
		}
		emp.HireDate = &d
	}

	emp.TerminationDate = nil
	if req.TerminationDate != nil && *req.TerminationDate != "" {
		d, ok := parseDate(*req.TerminationDate)
		if !ok {
			return errors.New("invalid terminationDate, want YYYY-MM-DD")
		}
		emp.TerminationDate = &d
	}

	return nil
}

// ========== Center / Category handlers ==========

// HandleListCenters lists centers
func (s *RESTServer) HandleListCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := s.store.ListCenters(r.Context(), s.tenantContext(r).Scope())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"centers": centers})
}

// HandleCreateCenter creates a center. Multi-center is a pro feature;
// lite tenants stay on their single default center.
func (s *RESTServer) HandleCreateCenter(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	if !tc.Plan.Features().MultiCenter {
		centers, err := s.store.ListCenters(r.Context(), tc.Scope())
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		if len(centers) >= 1 {
			s.respondError(w, http.StatusForbidden, "multiple centers are not available on this plan")
			return
		}
	}

	name, ok := s.decodeName(w, r)
	if !ok {
		return
	}

	center := &models.Center{Name: name}
	if err := s.store.CreateCenter(r.Context(), tc.Scope(), center); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, center)
}

// HandleUpdateCenter renames a center
func (s *RESTServer) HandleUpdateCenter(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid center id")
		return
	}
	name, ok := s.decodeName(w, r)
	if !ok {
		return
	}

	center := &models.Center{ID: id, Name: name}
	if err := s.store.UpdateCenter(r.Context(), tc.Scope(), center); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, center)
}

// HandleDeleteCenter deletes a center unless employees reference it
func (s *RESTServer) HandleDeleteCenter(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid center id")
		return
	}
	if err := s.store.DeleteCenter(r.Context(), s.tenantContext(r).Scope(), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HandleListCategories lists categories
func (s *RESTServer) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context(), s.tenantContext(r).Scope())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"categories": categories})
}

// HandleCreateCategory creates a category
func (s *RESTServer) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	name, ok := s.decodeName(w, r)
	if !ok {
		return
	}

	category := &models.Category{Name: name}
	if err := s.store.CreateCategory(r.Context(), s.tenantContext(r).Scope(), category); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, category)
}

// HandleUpdateCategory renames a category
func (s *RESTServer) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	name, ok := s.decodeName(w, r)
	if !ok {
		return
	}

	category := &models.Category{ID: id, Name: name}
	if err := s.store.UpdateCategory(r.Context(), s.tenantContext(r).Scope(), category); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, category)
}

// HandleDeleteCategory deletes a category unless referenced
func (s *RESTServer) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	if err := s.store.DeleteCategory(r.Context(), s.tenantContext(r).Scope(), id); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *RESTServer) decodeName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req struct {
		Name string `json:"name" validate:"required,min=2,max=100"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return "", false
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return req.Name, true
}

// ========== Leave admin handlers ==========

// HandleLeaveListAdmin lists requests for the tenant and marks the
// unread ones as seen.
func (s *RESTServer) HandleLeaveListAdmin(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)
	limit, offset := pagination(r)

	filters := storage.LeaveFilters{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.LeaveStatus(v)
		filters.Status = &status
	}
	if id, err := uuid.Parse(r.URL.Query().Get("employee")); err == nil {
		filters.EmployeeID = &id
	}

	requests, total, err := s.services.Leave.ListForAdmin(r.Context(), tc, filters, limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
	})
}

// HandleLeavePendingCount is the badge poll endpoint
func (s *RESTServer) HandleLeavePendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountPendingLeaveRequests(r.Context(), s.tenantContext(r).Scope())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int64{"pending": count})
}

// HandleLeaveApprove approves a pending request
func (s *RESTServer) HandleLeaveApprove(w http.ResponseWriter, r *http.Request) {
	s.decideLeave(w, r, true)
}

// HandleLeaveReject rejects a pending request
func (s *RESTServer) HandleLeaveReject(w http.ResponseWriter, r *http.Request) {
	s.decideLeave(w, r, false)
}

func (s *RESTServer) decideLeave(w http.ResponseWriter, r *http.Request, approve bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	var req struct {
		Notes string `json:"notes"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	var request *models.LeaveRequest
	if approve {
		request, err = s.services.Leave.Approve(r.Context(), s.tenantContext(r), id, req.Notes)
	} else {
		request, err = s.services.Leave.Reject(r.Context(), s.tenantContext(r), id, req.Notes)
	}
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, request)
}
