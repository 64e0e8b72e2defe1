package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// ========== Auth handlers ==========

// HandleHealth reports liveness
func (s *RESTServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"name":    s.config.Server.Name,
		"version": s.config.Server.Version,
	})
}

// HandleLogin authenticates an employee within a tenant
func (s *RESTServer) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tenant   string `json:"tenant" validate:"required"`
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := s.store.GetTenantBySlug(r.Context(), req.Tenant)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	emp, err := s.store.GetEmployeeByUsername(r.Context(), tenant.Scope{TenantID: t.ID}, req.Username)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !s.auth.VerifyPassword(req.Password, emp.PasswordHash) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if _, err := tenant.New(emp, t); err != nil {
		s.respondServiceError(w, err)
		return
	}

	token, err := s.auth.GenerateToken(emp)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.config.JWT.TokenTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(s.config.JWT.TokenTTL.Seconds()),
		"employee":   emp,
		"tenant":     t,
	})
}

// HandleLogout clears the session cookie
func (s *RESTServer) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// HandleMe returns the calling employee and tenant
func (s *RESTServer) HandleMe(w http.ResponseWriter, r *http.Request) {
	tc := s.tenantContext(r)

	emp, err := s.store.GetEmployee(r.Context(), tc.Scope(), tc.EmployeeID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	t, err := s.store.GetTenant(r.Context(), tc.TenantID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"employee": emp,
		"tenant":   t,
		"features": t.Features(),
	})
}
