package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/UkralStul/chirp/internal/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrEmptyPost),
		errors.Is(err, domain.ErrEmptyComment),
		errors.Is(err, domain.ErrCommentTooLong),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrSelfFollow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Unexpected errors are logged and
// their text is kept out of the response.
func (a *api) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error", "")
		return
	}
	writeError(w, status, err.Error(), "")
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
