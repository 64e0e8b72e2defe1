package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

// ========== Platform tenant handlers (super admin) ==========

// HandleListTenants lists all tenants on the platform
func (s *RESTServer) HandleListTenants(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	tenants, total, err := s.store.ListTenants(r.Context(), limit, offset)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tenants": tenants,
		"total":   total,
	})
}

// HandleGetTenant returns one tenant
func (s *RESTServer) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	t, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}

// HandleUpdateTenant updates a tenant's plan, branding or active flag.
// The slug is fixed at creation; it is part of login URLs.
func (s *RESTServer) HandleUpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid tenant id")
		return
	}

	var req struct {
		Name           *string `json:"name"`
		Plan           *string `json:"plan"`
		LogoURL        *string `json:"logoUrl"`
		PrimaryColor   *string `json:"primaryColor"`
		SecondaryColor *string `json:"secondaryColor"`
		IsActive       *bool   `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.store.GetTenant(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	if req.Name != nil && *req.Name != "" {
		t.Name = *req.Name
	}
	if req.Plan != nil {
		plan := models.Plan(*req.Plan)
		if !plan.Valid() {
			s.respondError(w, http.StatusBadRequest, "invalid plan")
			return
		}
		t.Plan = plan
	}
	if req.LogoURL != nil {
		t.LogoURL = *req.LogoURL
	}
	if req.PrimaryColor != nil {
		t.PrimaryColor = *req.PrimaryColor
	}
	if req.SecondaryColor != nil {
		t.SecondaryColor = *req.SecondaryColor
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if err := s.store.UpdateTenant(r.Context(), t); err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, t)
}
