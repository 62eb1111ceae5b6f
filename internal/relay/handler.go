package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/UkralStul/chirp/internal/domain"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler serves POST /api/chat. Every failure is answered with a JSON body.
func Handler(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("relay handler panic", "panic", rec)
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error:   ErrorMessage,
					Details: fmt.Sprint(rec),
				})
			}
		}()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
			return
		}

		reply, err := svc.Reply(r.Context(), req.Message)
		if errors.Is(err, domain.ErrEmptyMessage) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   ErrorMessage,
				Details: err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
