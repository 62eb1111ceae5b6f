package httpapi

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/UkralStul/chirp/internal/domain"
)

// Identity headers set by the trusted auth gateway in front of the service.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderUserEmail = "X-User-Email"
)

type identityKey struct{}

// requireIdentity rejects requests without a signed-in user and puts the
// identity into the request context.
func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := domain.Identity{
			UserID:      r.Header.Get(HeaderUserID),
			DisplayName: r.Header.Get(HeaderUserName),
			Email:       r.Header.Get(HeaderUserEmail),
		}
		if id.Anonymous() {
			writeError(w, http.StatusUnauthorized, domain.ErrUnauthenticated.Error(), "")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey{}).(domain.Identity)
	return id
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets websocket upgrades through the logging wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
