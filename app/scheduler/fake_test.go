package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FakeMetrics records pass outcomes.
type FakeMetrics struct {
	mu   sync.Mutex
	runs map[string][]string
}

func (m *FakeMetrics) RecordPassRun(job, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = map[string][]string{}
	}
	m.runs[job] = append(m.runs[job], outcome)
}

func (m *FakeMetrics) RecordPassDuration(string, time.Duration) {}

func (m *FakeMetrics) Outcomes(job string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.runs[job]...)
}

// FakeScore is a programmable ScoreRunner.
type FakeScore struct {
	RunVoiceTickFunc func(ctx context.Context, snap scoredomain.VoiceSnapshot, now time.Time) (scoreservice.VoiceTickResult, error)
	RunDecayPassFunc func(ctx context.Context, guildID sharedtypes.GuildID, now time.Time) (scoreservice.DecayResult, error)
	GetStandingFunc  func(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error)

	mu    sync.Mutex
	trace []string
}

func (f *FakeScore) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeScore) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.trace...)
}

func (f *FakeScore) RunVoiceTick(ctx context.Context, snap scoredomain.VoiceSnapshot, now time.Time) (scoreservice.VoiceTickResult, error) {
	f.record("voice:" + string(snap.GuildID))
	if f.RunVoiceTickFunc != nil {
		return f.RunVoiceTickFunc(ctx, snap, now)
	}
	return results.SuccessResult[[]scoreservice.VoiceAward, error](nil), nil
}

func (f *FakeScore) RunDecayPass(ctx context.Context, guildID sharedtypes.GuildID, now time.Time) (scoreservice.DecayResult, error) {
	f.record("decay:" + string(guildID))
	if f.RunDecayPassFunc != nil {
		return f.RunDecayPassFunc(ctx, guildID, now)
	}
	return results.SuccessResult[[]scoreservice.DecayChange, error](nil), nil
}

func (f *FakeScore) GetStanding(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error) {
	f.record("standing:" + string(guildID) + "/" + string(userID))
	if f.GetStandingFunc != nil {
		return f.GetStandingFunc(ctx, guildID, userID)
	}
	return results.SuccessResult[scoreservice.Standing, error](scoreservice.Standing{GuildID: guildID, UserID: userID}), nil
}

type fakeGuilds []sharedtypes.GuildID

func (g fakeGuilds) ListGuildIDs(context.Context) ([]sharedtypes.GuildID, error) {
	return g, nil
}

// FakeVoice serves canned snapshots.
type FakeVoice struct {
	Snapshots map[sharedtypes.GuildID]scoredomain.VoiceSnapshot
	Err       map[sharedtypes.GuildID]error
}

func (v *FakeVoice) GuildIDs() []sharedtypes.GuildID {
	var ids []sharedtypes.GuildID
	for id := range v.Snapshots {
		ids = append(ids, id)
	}
	for id := range v.Err {
		ids = append(ids, id)
	}
	return ids
}

func (v *FakeVoice) VoiceSnapshot(guildID sharedtypes.GuildID) (scoredomain.VoiceSnapshot, error) {
	if err := v.Err[guildID]; err != nil {
		return scoredomain.VoiceSnapshot{}, err
	}
	return v.Snapshots[guildID], nil
}

// FakeRoles is a programmable RoleReconciler.
type FakeRoles struct {
	Pending       map[sharedtypes.GuildID][]sharedtypes.UserID
	ReconcileFunc func(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, level int64) (levelrolesservice.ReconcileResult, error)

	mu         sync.Mutex
	reconciled []string
}

func (r *FakeRoles) PendingUsers(_ context.Context, guildID sharedtypes.GuildID) ([]sharedtypes.UserID, error) {
	return r.Pending[guildID], nil
}

func (r *FakeRoles) Reconcile(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, level int64) (levelrolesservice.ReconcileResult, error) {
	r.mu.Lock()
	r.reconciled = append(r.reconciled, string(guildID)+"/"+string(userID))
	r.mu.Unlock()
	if r.ReconcileFunc != nil {
		return r.ReconcileFunc(ctx, guildID, userID, level)
	}
	return results.SuccessResult[[]levelrolesservice.RoleActionResult, error](nil), nil
}

type fakeSweeper struct {
	swept []time.Time
	left  int
}

func (s *fakeSweeper) Sweep(now time.Time) int {
	s.swept = append(s.swept, now)
	return 1
}

func (s *fakeSweeper) Len() int { return s.left }
