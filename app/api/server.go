// Package api serves the admin HTTP API: guild settings, level roles,
// leaderboards and XP administration, plus health and metrics endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Config configures the HTTP server.
type Config struct {
	ListenAddr string
	// JWTSecret signs admin bearer tokens. An empty secret disables /api.
	JWTSecret string
	// RateLimit is the sustained requests per second allowed per client IP.
	RateLimit float64
	RateBurst int
}

// Server is the admin HTTP server.
type Server struct {
	router chi.Router
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds the router. registry may be nil, in which case /metrics is not served.
func NewServer(cfg Config, h *Handlers, registry *prometheus.Registry, logger *slog.Logger) *Server {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 20
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}

	if cfg.JWTSecret != "" && h != nil {
		verifier := NewTokenVerifier(cfg.JWTSecret)
		limiter := NewIPRateLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

		r.Route("/api/guilds/{guildID}", func(r chi.Router) {
			r.Use(RateLimitMiddleware(limiter))
			r.Use(GuildAuthMiddleware(verifier))
			h.Routes(r)
		})
	} else {
		logger.Warn("Admin API disabled: no JWT secret configured")
	}

	return &Server{
		router: r,
		srv: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Admin API listening", attr.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: serve: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "HTTP request",
				attr.String("method", r.Method),
				attr.String("path", r.URL.Path),
				attr.Int("status", ww.Status()),
				attr.Duration("duration", time.Since(start)),
				attr.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
