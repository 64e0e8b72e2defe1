package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/timeclock-server/timeclock-server-pro/internal/attachment"
	"github.com/timeclock-server/timeclock-server-pro/internal/models"
)

// ========== Break handlers ==========

// HandleBreakStart opens a break on the employee's open punch
func (s *RESTServer) HandleBreakStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind  string `json:"kind" validate:"required"`
		Notes string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	br, err := s.services.Breaks.Start(r.Context(), s.tenantContext(r), models.BreakKind(req.Kind), req.Notes)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, br)
}

// HandleBreakEnd closes the employee's active break
func (s *RESTServer) HandleBreakEnd(w http.ResponseWriter, r *http.Request) {
	br, err := s.services.Breaks.End(r.Context(), s.tenantContext(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, br)
}

// HandleBreakActive returns the running break, null when none
func (s *RESTServer) HandleBreakActive(w http.ResponseWriter, r *http.Request) {
	br, err := s.services.Breaks.Active(r.Context(), s.tenantContext(r))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"break": br})
}

// HandleBreakAttach uploads a justification file for a break
func (s *RESTServer) HandleBreakAttach(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid break id")
		return
	}

	filename, data, err := readUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	br, err := s.services.Breaks.Attach(r.Context(), s.tenantContext(r), id, filename, data)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, br)
}

// readUpload pulls the "file" part of a multipart form, capped at the
// attachment size limit plus form overhead.
func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(attachment.MaxSize + 1<<20); err != nil {
		return "", nil, err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, attachment.MaxSize+1))
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}
