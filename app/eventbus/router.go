package eventbus

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterConfig tunes the shared watermill router.
type RouterConfig struct {
	// PoisonTopic receives messages that still fail after MaxRetries.
	PoisonTopic     string
	MaxRetries      int
	InitialInterval time.Duration
	CloseTimeout    time.Duration
	// Registry, when set, receives watermill's handler metrics.
	Registry *prometheus.Registry
}

// NewRouter builds the router every module registers its handlers on. The
// middleware chain is installed once here: correlation ids, poison queue,
// retry with backoff, then panic recovery closest to the handler.
func NewRouter(cfg RouterConfig, publisher message.Publisher, logger *slog.Logger) (*message.Router, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 250 * time.Millisecond
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 30 * time.Second
	}

	wmLogger := watermill.NewSlogLogger(logger)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: cfg.CloseTimeout}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("eventbus: create router: %w", err)
	}

	if cfg.Registry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(cfg.Registry, "levelbot", "events")
		builder.AddPrometheusRouterMetrics(router)
	}

	router.AddMiddleware(middleware.CorrelationID)

	if cfg.PoisonTopic != "" {
		poison, err := middleware.PoisonQueue(publisher, cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("eventbus: poison queue: %w", err)
		}
		router.AddMiddleware(poison)
	}

	router.AddMiddleware(
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.InitialInterval,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)
	return router, nil
}
