package server

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-social-server/internal/errors"
	"github.com/jrsteele09/go-social-server/users"
	"github.com/rs/zerolog/log"
)

// ErrorResponse is the uniform body of every failed API call.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Message    string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError maps the error taxonomy onto an HTTP status. Internal failures are
// logged and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		logError(r.Method, r.URL.Path, err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	}
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
		Message:    message,
	})
}

func statusFor(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case apperrors.Is(err, apperrors.ErrUnknownProvider):
		return http.StatusNotFound, "Unknown login provider"
	case apperrors.Is(err, apperrors.ErrUserNotFound), apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case apperrors.Is(err, users.ErrNicknameTaken):
		return http.StatusConflict, "Nickname already in use"
	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
