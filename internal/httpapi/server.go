// Package httpapi exposes the chat relay, chat sessions and social
// operations over HTTP and websockets.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/UkralStul/chirp/internal/blob"
	"github.com/UkralStul/chirp/internal/chat"
	"github.com/UkralStul/chirp/internal/dataloader"
	"github.com/UkralStul/chirp/internal/relay"
	"github.com/UkralStul/chirp/internal/social"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// Deps are the services the router dispatches to.
type Deps struct {
	Relay  *relay.Service
	Chat   *chat.Service
	Social *social.Service
	Users  dataloader.UserSource
	Blobs  blob.Store

	// SearchDebounce delays live search after the last query message.
	SearchDebounce time.Duration
}

type api struct {
	Deps
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewRouter builds the HTTP handler for all routes.
func NewRouter(deps Deps, logger *slog.Logger) http.Handler {
	a := &api{
		Deps:   deps,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/health", a.handleHealth)
	router.Post("/api/chat", relay.Handler(deps.Relay, logger))
	router.Get("/blobs/*", a.handleBlob)

	router.Group(func(r chi.Router) {
		r.Use(requireIdentity)
		r.Use(func(next http.Handler) http.Handler {
			return dataloader.Middleware(deps.Users, next)
		})

		r.Post("/api/session", a.handleSession)

		r.Get("/api/feed", a.handleFeed)
		r.Post("/api/posts", a.handleCreatePost)
		r.Delete("/api/posts/{id}", a.handleDeletePost)
		r.Post("/api/posts/{id}/like", a.handleToggleLike)
		r.Post("/api/posts/{id}/comments", a.handleAddComment)

		r.Get("/api/users/suggested", a.handleSuggestedUsers)
		r.Patch("/api/users/me", a.handleUpdateProfile)
		r.Get("/api/users/{id}", a.handleProfile)
		r.Get("/api/users/{id}/posts", a.handleUserPosts)
		r.Post("/api/users/{id}/follow", a.handleFollow)

		r.Get("/api/notifications", a.handleNotifications)

		r.Get("/api/messages", a.handleHistory)
		r.Post("/api/messages", a.handleSendMessage)
		r.Get("/api/messages/ws", a.handleChatStream)

		r.Get("/api/search", a.handleSearch)
		r.Get("/api/search/ws", a.handleLiveSearch)
	})

	return withLogging(logger, router)
}

// Server is the HTTP server.
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a server on addr. Only the request header read is time
// limited: relay calls and websocket streams may run as long as they need.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (a *api) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
