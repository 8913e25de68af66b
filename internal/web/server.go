// Package web wires the HTTP API: health probe, application send endpoints
// and the auth/profile routes.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/applymail/applymail/internal/auth"
	"github.com/applymail/applymail/internal/web/handlers"
)

// Config holds server configuration.
type Config struct {
	Port int
}

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
}

// NewServer creates the HTTP server and mounts all routes.
func NewServer(
	cfg *Config,
	tokens *auth.TokenManager,
	apps *handlers.ApplicationsHandler,
	authHandler *handlers.AuthHandler,
) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// basic cors for the browser form client
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	// liveness probe, no auth
	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
			_ = err // client disconnected
		}
	})

	router.Route("/applications", func(r chi.Router) {
		r.Use(tokens.Middleware)
		r.Post("/send", apps.Send)
		r.Post("/send-batch", apps.SendBatch)
	})

	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/google", authHandler.Google)

		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware)
			r.Get("/profile", authHandler.GetProfile)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Post("/upload-cv", authHandler.UploadCV)
			r.Post("/smtp-config", authHandler.SaveSMTPConfig)
			r.Get("/smtp-config", authHandler.GetSMTPConfig)
		})
	})

	return &Server{
		router: router,
		config: cfg,
	}
}

// Start starts the HTTP server. Batch sends can run for minutes because of
// the deliberate pacing waits, so no request timeout middleware is applied
// to the send routes.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Router returns the underlying chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
