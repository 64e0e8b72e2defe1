package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/timeclock-server/timeclock-server-pro/internal/attachment"
	"github.com/timeclock-server/timeclock-server-pro/internal/breaks"
	"github.com/timeclock-server/timeclock-server-pro/internal/clock"
	"github.com/timeclock-server/timeclock-server-pro/internal/leave"
	"github.com/timeclock-server/timeclock-server-pro/internal/overtime"
	"github.com/timeclock-server/timeclock-server-pro/internal/storage"
	"github.com/timeclock-server/timeclock-server-pro/internal/tenant"
)

// respondJSON writes a JSON response
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

// respondError writes a JSON error response
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors to HTTP statuses. This is the
// single place where the service error taxonomy meets HTTP.
func (s *RESTServer) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrUnauthenticated):
		s.respondError(w, http.StatusUnauthorized, "unauthenticated")

	case errors.Is(err, tenant.ErrTenantInactive):
		s.respondError(w, http.StatusForbidden, "tenant is inactive")

	case errors.Is(err, leave.ErrNotOwner), errors.Is(err, breaks.ErrNotOwner):
		s.respondError(w, http.StatusForbidden, "forbidden")

	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")

	case errors.Is(err, storage.ErrDuplicateKey):
		s.respondError(w, http.StatusConflict, "already exists")

	case errors.Is(err, storage.ErrReferenced):
		s.respondError(w, http.StatusConflict, "still referenced")

	case errors.Is(err, leave.ErrInvalidKind),
		errors.Is(err, leave.ErrInvalidRange),
		errors.Is(err, breaks.ErrInvalidKind),
		errors.Is(err, storage.ErrInvalidData),
		errors.Is(err, attachment.ErrTooLarge),
		errors.Is(err, attachment.ErrBadExtension),
		errors.Is(err, attachment.ErrBadContent):
		s.respondError(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, clock.ErrAlreadyOpen),
		errors.Is(err, clock.ErrNotOpen),
		errors.Is(err, clock.ErrDayBlocked),
		errors.Is(err, breaks.ErrNoOpenPunch),
		errors.Is(err, breaks.ErrBreakActive),
		errors.Is(err, breaks.ErrNotActive),
		errors.Is(err, leave.ErrNotPending),
		errors.Is(err, overtime.ErrNotPending),
		errors.Is(err, overtime.ErrNoClosedPunch):
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, storage.ErrLockBusy):
		w.Header().Set("Retry-After", "1")
		s.respondError(w, http.StatusServiceUnavailable, "concurrent transition in progress, retry")

	case errors.Is(err, attachment.ErrUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, "file storage unavailable")

	default:
		log.Error().Err(err).Msg("Unhandled service error")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}
