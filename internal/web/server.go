// Package web provides the HTTP API for buyer leads.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/leadbook/internal/auth"
	"github.com/JonMunkholm/leadbook/internal/config"
	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/web/middleware"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the optional collaborators of a Server.
type Options struct {
	// RateStore backs rate limiting. nil uses an in-memory store.
	RateStore middleware.RateStore

	// Tokens validates bearer tokens. nil accepts no tokens, which only
	// works with authentication disabled.
	Tokens *auth.TokenProvider

	// Health is pinged by /healthz. nil reports healthy.
	Health Pinger
}

// Server is the HTTP server for the buyer API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	opts    Options
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with its middleware and routes installed.
func NewServer(service *core.Service, cfg *config.Config, opts Options) *Server {
	if opts.RateStore == nil {
		opts.RateStore = middleware.NewMemoryRateStore()
	}
	s := &Server{
		service: service,
		cfg:     cfg,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(middleware.Metrics)
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.RateLimit(s.opts.RateStore, "all", s.cfg.Rate.RequestsPerMinute, time.Minute))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.opts.Tokens, s.cfg.Security.RequireAuth))

		r.Route("/buyers", func(r chi.Router) {
			r.Get("/", s.handleListBuyers)
			r.Post("/", s.handleCreateBuyer)

			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(middleware.RateLimit(s.opts.RateStore, "import", s.cfg.Rate.ImportLimit, time.Minute))
				}
				r.Post("/import", s.handleImport)
				r.Post("/import/preview", s.handleImportPreview)
			})

			r.Get("/export", s.handleExport)
			r.Post("/export/archive", s.handleArchiveExport)

			r.Get("/{buyerID}", s.handleGetBuyer)
			r.Put("/{buyerID}", s.handleUpdateBuyer)
			r.Delete("/{buyerID}", s.handleDeleteBuyer)
		})
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
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

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status  string                   `json:"status"`
	Imports core.ImportLimiterStatus `json:"imports"`
	Error   string                   `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Imports: s.service.Limiter().Status()}

	if s.opts.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Health.Ping(ctx); err != nil {
			slog.Warn("health check failed", "error", err)
			resp.Status = "unavailable"
			resp.Error = "database unreachable"
			writeJSONStatus(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, resp)
}
