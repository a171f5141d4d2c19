package http

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"fl-status-panel/internal/config"
	"fl-status-panel/internal/panel"
	"fl-status-panel/internal/probe"
	"fl-status-panel/internal/settings"
)

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	Config     config.Config
	Controller *panel.Controller
	Document   *panel.Document
	Store      settings.Store
	Prober     *probe.Client
	Logger     zerolog.Logger
}

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer      *nethttp.Server
	controller      *panel.Controller
	refreshInterval time.Duration
	runCancel       context.CancelFunc
	log             zerolog.Logger
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Controller == nil || deps.Document == nil {
		return nil, errors.New("panel controller and document are required")
	}
	logger := deps.Logger.With().Str("component", "http").Logger()
	deps.Config = cfg

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer:      httpServer,
		controller:      deps.Controller,
		refreshInterval: cfg.RefreshInterval,
		log:             logger,
	}, nil
}

// NewRouter builds the route table. It is separate from NewServer so tests can
// drive it with httptest.
func NewRouter(deps Deps) nethttp.Handler {
	logger := deps.Logger.With().Str("component", "http").Logger()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(logger))
	r.Use(observabilityMiddleware)

	r.Get("/", dashboardHandler)
	r.Get("/favicon.ico", faviconHandler)
	r.Handle("/metrics", metricsHandler())
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler)

	r.Route("/api/v1/panel", func(r chi.Router) {
		r.Get("/", panelSnapshotHandler(deps.Controller, deps.Document))
		r.Post("/init", panelInitHandler(deps.Controller, deps.Document))
		r.Post("/port", savePortHandler(deps.Controller, deps.Document))
		r.Post("/port/input", portInputHandler(deps.Controller, deps.Document))
		r.Post("/refresh", panelRefreshHandler(deps.Controller, deps.Document))
		r.Get("/ws", panelSocketHandler(deps.Document, logger))
		r.Get("/config", panelConfigHandler(deps.Config))
	})
	r.Get("/api/v1/status/services", servicesStatusHandler(deps.Store, deps.Prober, deps.Controller.State()))
	r.Get("/api/v1/metrics/summary", appMetricsSummaryHandler())

	return r
}

// ListenAndServe starts the periodic refresh loop, if configured, and the HTTP
// server.
func (s *Server) ListenAndServe() error {
	if s.refreshInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		s.runCancel = cancel
		go s.controller.Run(ctx, s.refreshInterval)
	}
	s.log.Info().Str("addr", s.httpServer.Addr).Dur("refresh_interval", s.refreshInterval).Msg("listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.runCancel != nil {
		s.runCancel()
	}
	return s.httpServer.Shutdown(ctx)
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ready",
	})
}

func loggingMiddleware(logger zerolog.Logger) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
