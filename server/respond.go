package server

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dentatrack/console/api"
	apperrors "github.com/dentatrack/console/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps SDK errors onto local statuses. Upstream *APIError
// statuses pass through so feature screens can message them faithfully.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var apiErr *api.APIError
	switch {
	case apperrors.As(err, &apiErr):
		status = apiErr.Status
	case apperrors.Is(err, apperrors.ErrSessionExpired),
		apperrors.Is(err, apperrors.ErrNotAuthenticated),
		apperrors.Is(err, apperrors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrNoActiveClinic):
		status = http.StatusConflict
	case apperrors.Is(err, apperrors.ErrInvalidInvitation),
		apperrors.Is(err, apperrors.ErrInvitationUsed):
		status = http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrNotFound),
		apperrors.Is(err, apperrors.ErrClinicNotFound):
		status = http.StatusNotFound
	}

	s.writeJSON(w, status, map[string]string{"message": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
