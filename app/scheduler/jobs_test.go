package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)

func newTestJobs(score *FakeScore, guilds fakeGuilds, voice VoiceSource, roles RoleReconciler, sweeper CooldownSweeper, metrics *FakeMetrics) *Jobs {
	j := NewJobs(score, guilds, voice, roles, sweeper, discardLogger(), metrics)
	j.now = func() time.Time { return testNow }
	return j
}

func TestVoiceTick(t *testing.T) {
	pair := []scoredomain.VoiceMember{
		{UserID: "u1", ChannelID: "v1"},
		{UserID: "u2", ChannelID: "v1"},
	}
	voice := &FakeVoice{
		Snapshots: map[sharedtypes.GuildID]scoredomain.VoiceSnapshot{
			"g1":    {GuildID: "g1", Members: pair},
			"g2":    {GuildID: "g2", Members: pair},
			"alone": {GuildID: "alone", Members: pair[:1]},
		},
		Err: map[sharedtypes.GuildID]error{"gone": errors.New("guild not cached")},
	}

	var seenAt time.Time
	score := &FakeScore{RunVoiceTickFunc: func(_ context.Context, snap scoredomain.VoiceSnapshot, now time.Time) (scoreservice.VoiceTickResult, error) {
		seenAt = now
		if snap.GuildID == "g2" {
			return scoreservice.VoiceTickResult{}, &apperrors.StorageError{Op: "add_xp", Err: errors.New("db down")}
		}
		return results.SuccessResult[[]scoreservice.VoiceAward, error]([]scoreservice.VoiceAward{{UserID: "u1"}, {UserID: "u2"}}), nil
	}}
	metrics := &FakeMetrics{}
	j := newTestJobs(score, nil, voice, nil, nil, metrics)

	err := j.VoiceTick(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsStorage(err))
	assert.Equal(t, testNow, seenAt)

	trace := score.Trace()
	sort.Strings(trace)
	// A guild with a single connected member is not worth a tick; a failed
	// guild does not stop the others.
	assert.Equal(t, []string{"voice:g1", "voice:g2"}, trace)
	assert.Equal(t, []string{OutcomeFailure}, metrics.Outcomes(JobVoiceTick))
}

func TestVoiceTickWithoutPlatform(t *testing.T) {
	score := &FakeScore{}
	j := newTestJobs(score, nil, nil, nil, nil, &FakeMetrics{})
	require.NoError(t, j.VoiceTick(context.Background()))
	assert.Empty(t, score.Trace())
}

func TestDecayPassContinuesAfterGuildFailure(t *testing.T) {
	score := &FakeScore{RunDecayPassFunc: func(_ context.Context, guildID sharedtypes.GuildID, _ time.Time) (scoreservice.DecayResult, error) {
		switch guildID {
		case "g1":
			return scoreservice.DecayResult{}, errors.New("db down")
		case "g2":
			return results.FailureResult[[]scoreservice.DecayChange, error](apperrors.NewValidationError("guildId", "is required")), nil
		}
		return results.SuccessResult[[]scoreservice.DecayChange, error]([]scoreservice.DecayChange{{UserID: "u1", OldXP: 1000, NewXP: 900}}), nil
	}}
	metrics := &FakeMetrics{}
	j := newTestJobs(score, fakeGuilds{"g1", "g2", "g3"}, nil, nil, nil, metrics)

	err := j.DecayPass(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guild g1")
	assert.Equal(t, []string{"decay:g1", "decay:g2", "decay:g3"}, score.Trace())
}

func TestDecayGuildSharesGuardWithScheduledPass(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	score := &FakeScore{RunDecayPassFunc: func(_ context.Context, guildID sharedtypes.GuildID, _ time.Time) (scoreservice.DecayResult, error) {
		if guildID == "g1" {
			close(entered)
			<-release
		}
		return results.SuccessResult[[]scoreservice.DecayChange, error]([]scoreservice.DecayChange{{UserID: "u1", OldXP: 1000, NewXP: 900}}), nil
	}}
	metrics := &FakeMetrics{}
	j := newTestJobs(score, fakeGuilds{"g1"}, nil, nil, nil, metrics)

	done := make(chan error, 1)
	go func() { done <- j.DecayPass(context.Background()) }()
	<-entered

	_, ran, err := j.DecayGuild(context.Background(), "g2")
	require.NoError(t, err)
	assert.False(t, ran, "manual decay must not overlap the scheduled pass")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"decay:g1"}, score.Trace())

	result, ran, err := j.DecayGuild(context.Background(), "g2")
	require.NoError(t, err)
	require.True(t, ran)
	require.True(t, result.IsSuccess())
	assert.Len(t, *result.Success, 1)
	assert.Equal(t, []string{"decay:g1", "decay:g2"}, score.Trace())
}

func TestGraceRecheckReconcilesPendingUsers(t *testing.T) {
	score := &FakeScore{GetStandingFunc: func(_ context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error) {
		return results.SuccessResult[scoreservice.Standing, error](scoreservice.Standing{GuildID: guildID, UserID: userID, Level: 2}), nil
	}}
	var levels []int64
	roles := &FakeRoles{
		Pending: map[sharedtypes.GuildID][]sharedtypes.UserID{"g1": {"u1", "u2"}},
		ReconcileFunc: func(_ context.Context, _ sharedtypes.GuildID, _ sharedtypes.UserID, level int64) (levelrolesservice.ReconcileResult, error) {
			levels = append(levels, level)
			return results.SuccessResult[[]levelrolesservice.RoleActionResult, error](nil), nil
		},
	}
	j := newTestJobs(score, fakeGuilds{"g1", "g2"}, nil, roles, nil, &FakeMetrics{})

	require.NoError(t, j.GraceRecheck(context.Background()))
	assert.Equal(t, []string{"g1/u1", "g1/u2"}, roles.reconciled)
	assert.Equal(t, []int64{2, 2}, levels)
}

func TestGraceRecheckSkipsUserOnStandingError(t *testing.T) {
	score := &FakeScore{GetStandingFunc: func(_ context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error) {
		if userID == "u1" {
			return scoreservice.StandingResult{}, errors.New("db down")
		}
		return results.SuccessResult[scoreservice.Standing, error](scoreservice.Standing{Level: 1}), nil
	}}
	roles := &FakeRoles{Pending: map[sharedtypes.GuildID][]sharedtypes.UserID{"g1": {"u1", "u2"}}}
	j := newTestJobs(score, fakeGuilds{"g1"}, nil, roles, nil, &FakeMetrics{})

	err := j.GraceRecheck(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"g1/u2"}, roles.reconciled)
}

func TestSweepCooldowns(t *testing.T) {
	sweeper := &fakeSweeper{}
	j := newTestJobs(&FakeScore{}, nil, nil, nil, sweeper, &FakeMetrics{})

	require.NoError(t, j.SweepCooldowns(context.Background()))
	assert.Equal(t, []time.Time{testNow}, sweeper.swept)
}
