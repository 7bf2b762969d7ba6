package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

// QueuePasses is the River queue the periodic passes run on.
const QueuePasses = "levelbot_passes"

type VoiceTickArgs struct{}

func (VoiceTickArgs) Kind() string { return "levelbot_" + JobVoiceTick }

type DecayPassArgs struct{}

func (DecayPassArgs) Kind() string { return "levelbot_" + JobDecayPass }

type GraceRecheckArgs struct{}

func (GraceRecheckArgs) Kind() string { return "levelbot_" + JobGraceRecheck }

// passWorker runs one pass per job.
type passWorker[T river.JobArgs] struct {
	river.WorkerDefaults[T]
	run     func(context.Context) error
	timeout time.Duration
}

func (w *passWorker[T]) Work(ctx context.Context, _ *river.Job[T]) error {
	return w.run(ctx)
}

func (w *passWorker[T]) Timeout(*river.Job[T]) time.Duration {
	return w.timeout
}

// RiverScheduler enqueues the passes as River periodic jobs. River elects a
// leader among replicas, so each trigger is enqueued once.
type RiverScheduler struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRiverScheduler connects a pgx pool to dsn, migrates the River schema
// and builds the client with one periodic job per pass.
func NewRiverScheduler(ctx context.Context, dsn string, cfg Config, jobs *Jobs, logger *slog.Logger) (*RiverScheduler, error) {
	cfg = cfg.withDefaults()

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("scheduler: parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("scheduler: create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("scheduler: ping database: %w", err)
	}

	if err := MigrateRiver(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	periodic, err := periodicJobs(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &passWorker[VoiceTickArgs]{run: jobs.VoiceTick, timeout: 50 * time.Second})
	river.AddWorker(workers, &passWorker[DecayPassArgs]{run: jobs.DecayPass, timeout: -1})
	river.AddWorker(workers, &passWorker[GraceRecheckArgs]{run: jobs.GraceRecheck, timeout: -1})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: logger,
		Queues: map[string]river.QueueConfig{
			QueuePasses: {MaxWorkers: 3},
		},
		Workers:      workers,
		PeriodicJobs: periodic,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("scheduler: create River client: %w", err)
	}

	return &RiverScheduler{client: client, pool: pool, logger: logger}, nil
}

// MigrateRiver applies River's schema migrations.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("scheduler: create River migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{})
	if err != nil {
		return fmt.Errorf("scheduler: migrate River schema: %w", err)
	}
	for _, v := range res.Versions {
		logger.InfoContext(ctx, "Applied River migration", attr.Int("version", v.Version))
	}
	return nil
}

// periodicJobs builds one periodic job per pass. Passes are never retried:
// a repeated voice tick or decay pass would apply twice.
func periodicJobs(cfg Config) ([]*river.PeriodicJob, error) {
	specs := []struct {
		spec string
		args river.JobArgs
	}{
		{cfg.VoiceTickSpec, VoiceTickArgs{}},
		{cfg.DecaySpec, DecayPassArgs{}},
		{cfg.GraceRecheckSpec, GraceRecheckArgs{}},
	}

	out := make([]*river.PeriodicJob, 0, len(specs))
	for _, s := range specs {
		schedule, err := ParseSchedule(s.spec)
		if err != nil {
			return nil, err
		}
		args := s.args
		out = append(out, river.NewPeriodicJob(schedule, func() (river.JobArgs, *river.InsertOpts) {
			return args, &river.InsertOpts{Queue: QueuePasses, MaxAttempts: 1}
		}, &river.PeriodicJobOpts{}))
	}
	return out, nil
}

// Start starts the River client.
func (s *RiverScheduler) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "River scheduler started")
	return nil
}

// Stop waits for running jobs, then closes the pool.
func (s *RiverScheduler) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("scheduler: stop River client: %w", err)
	}
	s.logger.InfoContext(ctx, "River scheduler stopped")
	return nil
}
