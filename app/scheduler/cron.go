package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/robfig/cron/v3"
)

// CronScheduler triggers the passes from an in-process cron. With the River
// backend it only sweeps cooldowns, which are process-local.
type CronScheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *slog.Logger
	ctx    context.Context
}

// NewCronScheduler registers the jobs for cfg.Backend.
func NewCronScheduler(cfg Config, jobs *Jobs, logger *slog.Logger) (*CronScheduler, error) {
	cfg = cfg.withDefaults()
	cl := cronLogger{logger: logger}
	s := &CronScheduler{
		cron: cron.New(
			cron.WithParser(specParser),
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		jobs:   jobs,
		logger: logger,
		ctx:    context.Background(),
	}

	if cfg.Backend == BackendCron {
		entries := []struct {
			spec string
			run  func(context.Context) error
		}{
			{cfg.VoiceTickSpec, jobs.VoiceTick},
			{cfg.DecaySpec, jobs.DecayPass},
			{cfg.GraceRecheckSpec, jobs.GraceRecheck},
		}
		for _, e := range entries {
			if _, err := s.cron.AddFunc(e.spec, s.trigger(e.run)); err != nil {
				return nil, fmt.Errorf("scheduler: add %q: %w", e.spec, err)
			}
		}
	}
	s.cron.Schedule(cron.Every(cfg.CooldownSweepInterval), cron.FuncJob(s.trigger(jobs.SweepCooldowns)))
	return s, nil
}

func (s *CronScheduler) trigger(run func(context.Context) error) func() {
	return func() {
		// Errors are logged and counted by the pass itself.
		_ = run(s.ctx)
	}
}

// Start starts the cron. Passes keep running after ctx is cancelled; Stop waits for them.
func (s *CronScheduler) Start(ctx context.Context) {
	s.ctx = context.WithoutCancel(ctx)
	s.cron.Start()
	s.logger.InfoContext(ctx, "Cron scheduler started", attr.Int("entries", len(s.cron.Entries())))
}

// Stop stops scheduling and waits for running passes until ctx is done.
func (s *CronScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.InfoContext(ctx, "Cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
