// Package web serves the catalog over HTTP.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/compatdb/internal/config"
	"github.com/JonMunkholm/compatdb/internal/core"
	mw "github.com/JonMunkholm/compatdb/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the compatibility catalog.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(mw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Reads
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			r.Get("/records/search", s.handleSearch)
			r.Get("/records/sample", s.handleSample)
			r.Get("/records/{id}", s.handleGetRecord)
		})

		// Mutations need an authenticated caller
		r.Group(func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
				r.Patch("/records/{id}/content", s.handleUpdateContent)
				r.Post("/index/rebuild", s.handleRebuildIndex)
			})

			// Imports are bounded by the import timeout inside the service
			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(mw.NewRateLimiter(s.cfg.Rate.UploadLimit).Middleware)
				}
				r.Post("/import/preview", s.handleImportPreview)
				r.Post("/import/commit", s.handleImportCommit)
			})
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		// The API serves JSON only; presentation HTML is rendered by clients.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
