package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
)

// Pass outcomes recorded in SchedulerMetrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomePanic   = "panic"
)

// Pass runs one named job at a time. A trigger that arrives while the
// previous run is still in flight is dropped.
type Pass struct {
	name    string
	running atomic.Bool
	logger  *slog.Logger
	metrics observability.SchedulerMetrics
}

// NewPass creates a guard for the named job.
func NewPass(name string, logger *slog.Logger, metrics observability.SchedulerMetrics) *Pass {
	if metrics == nil {
		metrics = &observability.NoOpMetrics{}
	}
	return &Pass{name: name, logger: logger, metrics: metrics}
}

// Running reports whether a run is in flight.
func (p *Pass) Running() bool { return p.running.Load() }

// Run executes fn unless a previous run is still in flight. ran is false
// when the trigger was skipped.
func (p *Pass) Run(ctx context.Context, fn func(context.Context) error) (ran bool, err error) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.WarnContext(ctx, "Skipping pass, previous run still in flight", attr.String("job", p.name))
		p.metrics.RecordPassRun(p.name, OutcomeSkipped)
		return false, nil
	}
	defer p.running.Store(false)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", p.name, r)
			p.logger.ErrorContext(ctx, "Pass panicked", attr.String("job", p.name), attr.Any("panic", r))
			p.metrics.RecordPassRun(p.name, OutcomePanic)
		}
		p.metrics.RecordPassDuration(p.name, time.Since(start))
	}()

	p.logger.InfoContext(ctx, "Pass started", attr.String("job", p.name))
	err = fn(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Pass finished with errors",
			attr.String("job", p.name),
			attr.Duration("duration", time.Since(start)),
			attr.Error(err),
		)
		p.metrics.RecordPassRun(p.name, OutcomeFailure)
		return true, err
	}

	p.logger.InfoContext(ctx, "Pass finished",
		attr.String("job", p.name),
		attr.Duration("duration", time.Since(start)),
	)
	p.metrics.RecordPassRun(p.name, OutcomeSuccess)
	return true, nil
}
