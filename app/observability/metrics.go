package observability

import (
	"context"
	"strings"
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// OperationMetrics is the attempt/success/failure/duration shape every service records.
type OperationMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
}

// ScoreMetrics records XP accrual and decay.
type ScoreMetrics interface {
	OperationMetrics
	RecordXPAwarded(ctx context.Context, source sharedtypes.XPSource, amount int64)
	RecordAwardSkipped(ctx context.Context, source sharedtypes.XPSource, reason string)
	RecordLevelChange(ctx context.Context, direction string)
	RecordDecayApplied(ctx context.Context, users int, xpRemoved int64)
}

// RoleMetrics records role synchronization outcomes.
type RoleMetrics interface {
	OperationMetrics
	RecordRoleAction(ctx context.Context, action, outcome string)
}

// SettingsMetrics records settings store operations.
type SettingsMetrics interface {
	OperationMetrics
}

// SchedulerMetrics records scheduled pass runs.
type SchedulerMetrics interface {
	RecordPassRun(job, outcome string)
	RecordPassDuration(job string, d time.Duration)
}

// Registry owns the prometheus registry and the per-module metric sets.
type Registry struct {
	Prometheus *prometheus.Registry
	Score      ScoreMetrics
	Roles      RoleMetrics
	Settings   SettingsMetrics
	Scheduler  SchedulerMetrics
}

// NewRegistry registers every collector on a fresh prometheus registry.
func NewRegistry(namespace string) *Registry {
	namespace = strings.ReplaceAll(namespace, "-", "_")
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	score := &promScoreMetrics{
		promOperationMetrics: newPromOperationMetrics(reg, namespace, "score"),
		awarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "score", Name: "xp_awarded_total",
			Help: "XP awarded, by source.",
		}, []string{"source"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "score", Name: "awards_skipped_total",
			Help: "Award events that did not qualify, by source and reason.",
		}, []string{"source", "reason"}),
		levels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "score", Name: "level_changes_total",
			Help: "Level changes, by direction.",
		}, []string{"direction"}),
		decayUsers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "score", Name: "decay_users_total",
			Help: "Users whose XP was reduced by decay.",
		}),
		decayXP: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "score", Name: "decay_xp_removed_total",
			Help: "XP removed by decay.",
		}),
	}
	reg.MustRegister(score.awarded, score.skipped, score.levels, score.decayUsers, score.decayXP)

	roles := &promRoleMetrics{
		promOperationMetrics: newPromOperationMetrics(reg, namespace, "levelroles"),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "levelroles", Name: "role_actions_total",
			Help: "Role grant/revoke outcomes.",
		}, []string{"action", "outcome"}),
	}
	reg.MustRegister(roles.actions)

	sched := &promSchedulerMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "pass_runs_total",
			Help: "Scheduled pass runs, by job and outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler", Name: "pass_duration_seconds",
			Help:    "Scheduled pass duration.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 300},
		}, []string{"job"}),
	}
	reg.MustRegister(sched.runs, sched.duration)

	return &Registry{
		Prometheus: reg,
		Score:      score,
		Roles:      roles,
		Settings:   newPromOperationMetrics(reg, namespace, "settings"),
		Scheduler:  sched,
	}
}

// NewNoopRegistry returns a registry whose metric sets drop everything.
func NewNoopRegistry() *Registry {
	return &Registry{
		Prometheus: prometheus.NewRegistry(),
		Score:      &NoOpMetrics{},
		Roles:      &NoOpMetrics{},
		Settings:   &NoOpMetrics{},
		Scheduler:  &NoOpMetrics{},
	}
}

type promOperationMetrics struct {
	attempts *prometheus.CounterVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newPromOperationMetrics(reg *prometheus.Registry, namespace, subsystem string) *promOperationMetrics {
	m := &promOperationMetrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "operation_attempts_total",
			Help: "Service operation attempts.",
		}, []string{"operation"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "operation_success_total",
			Help: "Service operations that completed.",
		}, []string{"operation"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "operation_failure_total",
			Help: "Service operations that returned an error.",
		}, []string{"operation"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: "operation_duration_seconds",
			Help:    "Service operation duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.attempts, m.success, m.failure, m.duration)
	return m
}

func (m *promOperationMetrics) RecordOperationAttempt(_ context.Context, op string) {
	m.attempts.WithLabelValues(op).Inc()
}

func (m *promOperationMetrics) RecordOperationSuccess(_ context.Context, op string) {
	m.success.WithLabelValues(op).Inc()
}

func (m *promOperationMetrics) RecordOperationFailure(_ context.Context, op string) {
	m.failure.WithLabelValues(op).Inc()
}

func (m *promOperationMetrics) RecordOperationDuration(_ context.Context, op string, d time.Duration) {
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}

type promScoreMetrics struct {
	*promOperationMetrics
	awarded    *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	levels     *prometheus.CounterVec
	decayUsers prometheus.Counter
	decayXP    prometheus.Counter
}

func (m *promScoreMetrics) RecordXPAwarded(_ context.Context, source sharedtypes.XPSource, amount int64) {
	m.awarded.WithLabelValues(string(source)).Add(float64(amount))
}

func (m *promScoreMetrics) RecordAwardSkipped(_ context.Context, source sharedtypes.XPSource, reason string) {
	m.skipped.WithLabelValues(string(source), reason).Inc()
}

func (m *promScoreMetrics) RecordLevelChange(_ context.Context, direction string) {
	m.levels.WithLabelValues(direction).Inc()
}

func (m *promScoreMetrics) RecordDecayApplied(_ context.Context, users int, xpRemoved int64) {
	m.decayUsers.Add(float64(users))
	m.decayXP.Add(float64(xpRemoved))
}

type promRoleMetrics struct {
	*promOperationMetrics
	actions *prometheus.CounterVec
}

func (m *promRoleMetrics) RecordRoleAction(_ context.Context, action, outcome string) {
	m.actions.WithLabelValues(action, outcome).Inc()
}

type promSchedulerMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func (m *promSchedulerMetrics) RecordPassRun(job, outcome string) {
	m.runs.WithLabelValues(job, outcome).Inc()
}

func (m *promSchedulerMetrics) RecordPassDuration(job string, d time.Duration) {
	m.duration.WithLabelValues(job).Observe(d.Seconds())
}

// NoOpMetrics satisfies every metrics interface and records nothing.
type NoOpMetrics struct{}

func (*NoOpMetrics) RecordOperationAttempt(context.Context, string) {}
func (*NoOpMetrics) RecordOperationSuccess(context.Context, string) {}
func (*NoOpMetrics) RecordOperationFailure(context.Context, string) {}
func (*NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (*NoOpMetrics) RecordXPAwarded(context.Context, sharedtypes.XPSource, int64) {}
func (*NoOpMetrics) RecordAwardSkipped(context.Context, sharedtypes.XPSource, string) {}
func (*NoOpMetrics) RecordLevelChange(context.Context, string) {}
func (*NoOpMetrics) RecordDecayApplied(context.Context, int, int64) {}
func (*NoOpMetrics) RecordRoleAction(context.Context, string, string) {}
func (*NoOpMetrics) RecordPassRun(string, string) {}
func (*NoOpMetrics) RecordPassDuration(string, time.Duration) {}
