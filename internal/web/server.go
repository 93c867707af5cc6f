// Package web provides the HTTP server for grid sessions, the backend data
// port and the viewer bridge.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/ElementGrid/internal/config"
	"github.com/JonMunkholm/ElementGrid/internal/core"
	"github.com/JonMunkholm/ElementGrid/internal/observability/metrics"
	"github.com/JonMunkholm/ElementGrid/internal/viewer"
	mw "github.com/JonMunkholm/ElementGrid/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the server routes to. Service and Hub are
// required; the rest are optional.
type Deps struct {
	Service *core.Service
	Hub     *viewer.Hub

	// Data serves /api/data. Nil disables the endpoint.
	Data core.Backend

	// Health is checked by /healthz, typically a database ping.
	Health func(ctx context.Context) error

	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

// Server is the HTTP server for the grid service.
type Server struct {
	service *core.Service
	hub     *viewer.Hub
	data    core.Backend
	health  func(ctx context.Context) error
	cfg     *config.Config
	deps    Deps

	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(deps Deps, cfg *config.Config) *Server {
	s := &Server{
		service: deps.Service,
		hub:     deps.Hub,
		data:    deps.Data,
		health:  deps.Health,
		cfg:     cfg,
		deps:    deps,
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
	if s.deps.HTTPMetrics != nil {
		s.router.Use(mw.Metrics(s.deps.HTTPMetrics))
	}
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics.Enabled && s.deps.Gatherer != nil {
		s.router.Handle(s.cfg.Metrics.Path, promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	// Pull and push hit the backend, so they get a tighter per-client budget.
	syncLimit := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled && s.cfg.Rate.SyncLimit > 0 {
		syncLimit = s.newLimiter(s.cfg.Rate.SyncLimit).middleware
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		// Event streams stay open, so they skip the timeout and compression.
		r.Get("/grid/{gridID}/viewer/events", s.handleViewerEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Compress(5))
			if s.cfg.Server.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
			}

			// Backend data port
			r.Get("/data", s.handleDataPull)
			r.Post("/data", s.handleDataPush)
			r.Delete("/data", s.handleDataDelete)

			// Grid sessions
			r.Post("/grid", s.handleCreateGrid)
			r.Route("/grid/{gridID}", func(r chi.Router) {
				r.Delete("/", s.handleCloseGrid)
				r.With(syncLimit).Post("/pull", s.handlePull)
				r.With(syncLimit).Post("/push", s.handlePush)

				r.Get("/view", s.handleView)
				r.Post("/options", s.handleOptions)
				r.Post("/collapse", s.handleCollapse)
				r.Post("/page", s.handlePage)

				r.Get("/selection", s.handleSelection)
				r.Post("/click", s.handleClick)
				r.Post("/search", s.handleSearch)
				r.Post("/sync", s.handleSync)

				r.Post("/edit", s.handleEdit)
				r.Post("/elements", s.handleInsert)
				r.Delete("/elements", s.handleRemove)

				// Viewer bridge
				r.Post("/viewer/selection", s.handleViewerSelection)
				r.Post("/viewer/{command}", s.handleViewerCommand)
			})
		})
	})
}

func (s *Server) newLimiter(perMinute int) *rateLimiter {
	rl := newRateLimiter(perMinute, time.Minute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps event streams open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// elementCounter is implemented by data ports that can count stored records.
type elementCounter interface {
	Count(ctx context.Context) (int64, error)
}

// handleHealth reports liveness, the number of open sessions and, when the
// data port can count them, the number of stored elements.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":   "ok",
		"sessions": s.service.Sessions(),
	}
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			slog.Warn("health check failed", "error", err)
			status = http.StatusServiceUnavailable
			body["status"] = "unavailable"
			writeJSONStatus(w, status, body)
			return
		}
	}
	if c, ok := s.data.(elementCounter); ok {
		n, err := c.Count(r.Context())
		if err != nil {
			slog.Warn("element count failed", "error", err)
		} else {
			body["elements"] = n
		}
	}
	writeJSONStatus(w, status, body)
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
