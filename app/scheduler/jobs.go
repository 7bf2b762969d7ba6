// Package scheduler triggers the timer-driven passes: the per-minute voice
// tick, the daily decay pass, the grace timer recheck and the cooldown sweep.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// Job names, used in logs, metrics and River job kinds.
const (
	JobVoiceTick     = "voice_tick"
	JobDecayPass     = "decay_pass"
	JobGraceRecheck  = "grace_recheck"
	JobCooldownSweep = "cooldown_sweep"
)

// ScoreRunner is the part of the score service the passes drive.
type ScoreRunner interface {
	RunVoiceTick(ctx context.Context, snapshot scoredomain.VoiceSnapshot, now time.Time) (scoreservice.VoiceTickResult, error)
	RunDecayPass(ctx context.Context, guildID sharedtypes.GuildID, now time.Time) (scoreservice.DecayResult, error)
	GetStanding(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error)
}

// GuildLister lists every guild with stored settings.
type GuildLister interface {
	ListGuildIDs(ctx context.Context) ([]sharedtypes.GuildID, error)
}

// VoiceSource reads live voice state from the chat platform.
type VoiceSource interface {
	GuildIDs() []sharedtypes.GuildID
	VoiceSnapshot(guildID sharedtypes.GuildID) (scoredomain.VoiceSnapshot, error)
}

// RoleReconciler re-evaluates users whose grace timers are running.
type RoleReconciler interface {
	PendingUsers(ctx context.Context, guildID sharedtypes.GuildID) ([]sharedtypes.UserID, error)
	Reconcile(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, level int64) (levelrolesservice.ReconcileResult, error)
}

// CooldownSweeper drops idle cooldown entries.
type CooldownSweeper interface {
	Sweep(now time.Time) int
	Len() int
}

// Jobs holds the pass implementations shared by both backends.
type Jobs struct {
	score     ScoreRunner
	guilds    GuildLister
	voice     VoiceSource
	roles     RoleReconciler
	cooldowns CooldownSweeper
	logger    *slog.Logger
	now       func() time.Time

	voicePass *Pass
	decayPass *Pass
	gracePass *Pass
	sweepPass *Pass
}

// NewJobs wires the passes. voice and roles may be nil when the bot runs
// without a platform session; their passes then do nothing.
func NewJobs(
	score ScoreRunner,
	guilds GuildLister,
	voice VoiceSource,
	roles RoleReconciler,
	cooldowns CooldownSweeper,
	logger *slog.Logger,
	metrics observability.SchedulerMetrics,
) *Jobs {
	return &Jobs{
		score:     score,
		guilds:    guilds,
		voice:     voice,
		roles:     roles,
		cooldowns: cooldowns,
		logger:    logger,
		now:       time.Now,
		voicePass: NewPass(JobVoiceTick, logger, metrics),
		decayPass: NewPass(JobDecayPass, logger, metrics),
		gracePass: NewPass(JobGraceRecheck, logger, metrics),
		sweepPass: NewPass(JobCooldownSweep, logger, metrics),
	}
}

// VoiceTick awards voice XP in every guild the platform reports.
func (j *Jobs) VoiceTick(ctx context.Context) error {
	_, err := j.voicePass.Run(ctx, j.voiceTick)
	return err
}

// DecayPass decays inactive members in every guild with stored settings.
func (j *Jobs) DecayPass(ctx context.Context) error {
	_, err := j.decayPass.Run(ctx, j.decay)
	return err
}

// DecayGuild runs a decay pass for one guild under the same in-flight guard
// as DecayPass. ran is false when another decay pass was already running.
func (j *Jobs) DecayGuild(ctx context.Context, guildID sharedtypes.GuildID) (result scoreservice.DecayResult, ran bool, err error) {
	ran, err = j.decayPass.Run(ctx, func(ctx context.Context) error {
		var runErr error
		result, runErr = j.score.RunDecayPass(ctx, guildID, j.now())
		return runErr
	})
	return result, ran, err
}

// GraceRecheck reconciles users with running grace timers so expired timers
// revoke even when the user has no new activity.
func (j *Jobs) GraceRecheck(ctx context.Context) error {
	_, err := j.gracePass.Run(ctx, j.graceRecheck)
	return err
}

// SweepCooldowns drops idle cooldown entries.
func (j *Jobs) SweepCooldowns(ctx context.Context) error {
	_, err := j.sweepPass.Run(ctx, func(ctx context.Context) error {
		if j.cooldowns == nil {
			return nil
		}
		if n := j.cooldowns.Sweep(j.now()); n > 0 {
			j.logger.DebugContext(ctx, "Swept idle cooldown entries",
				attr.Int("removed", n),
				attr.Int("remaining", j.cooldowns.Len()),
			)
		}
		return nil
	})
	return err
}

func (j *Jobs) voiceTick(ctx context.Context) error {
	if j.voice == nil {
		return nil
	}
	now := j.now()

	var errs []error
	awarded := 0
	for _, guildID := range j.voice.GuildIDs() {
		snap, err := j.voice.VoiceSnapshot(guildID)
		if err != nil {
			j.logger.WarnContext(ctx, "Voice snapshot unavailable", attr.GuildID(guildID), attr.Error(err))
			continue
		}
		if len(snap.Members) < scoredomain.MinVoicePeers {
			continue
		}
		result, err := j.score.RunVoiceTick(ctx, snap, now)
		if err != nil {
			j.logger.ErrorContext(ctx, "Voice tick failed for guild", attr.GuildID(guildID), attr.Error(err))
			errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
			continue
		}
		if result.IsSuccess() {
			awarded += len(*result.Success)
		}
	}

	if awarded > 0 {
		j.logger.InfoContext(ctx, "Voice tick awarded", attr.Int("members", awarded))
	}
	return errors.Join(errs...)
}

func (j *Jobs) decay(ctx context.Context) error {
	guilds, err := j.guilds.ListGuildIDs(ctx)
	if err != nil {
		return fmt.Errorf("list guilds: %w", err)
	}
	now := j.now()

	var errs []error
	for _, guildID := range guilds {
		result, err := j.score.RunDecayPass(ctx, guildID, now)
		if err != nil {
			j.logger.ErrorContext(ctx, "Decay pass failed for guild", attr.GuildID(guildID), attr.Error(err))
			errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
			continue
		}
		if result.IsFailure() {
			j.logger.WarnContext(ctx, "Decay pass rejected", attr.GuildID(guildID), attr.Error(*result.Failure))
			continue
		}
		if n := len(*result.Success); n > 0 {
			j.logger.InfoContext(ctx, "Decay applied", attr.GuildID(guildID), attr.Int("users", n))
		}
	}
	return errors.Join(errs...)
}

func (j *Jobs) graceRecheck(ctx context.Context) error {
	if j.roles == nil {
		return nil
	}
	guilds, err := j.guilds.ListGuildIDs(ctx)
	if err != nil {
		return fmt.Errorf("list guilds: %w", err)
	}

	var errs []error
	for _, guildID := range guilds {
		users, err := j.roles.PendingUsers(ctx, guildID)
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
			continue
		}
		for _, userID := range users {
			if err := j.recheckUser(ctx, guildID, userID); err != nil {
				j.logger.ErrorContext(ctx, "Grace recheck failed for user",
					attr.GuildID(guildID),
					attr.UserID(userID),
					attr.Error(err),
				)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (j *Jobs) recheckUser(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) error {
	standing, err := j.score.GetStanding(ctx, guildID, userID)
	if err != nil {
		return fmt.Errorf("standing %s/%s: %w", guildID, userID, err)
	}
	if standing.IsFailure() {
		return fmt.Errorf("standing %s/%s: %w", guildID, userID, *standing.Failure)
	}

	result, err := j.roles.Reconcile(ctx, guildID, userID, standing.Success.Level)
	if err != nil {
		return fmt.Errorf("reconcile %s/%s: %w", guildID, userID, err)
	}
	if result.IsFailure() {
		j.logger.WarnContext(ctx, "Grace recheck reconcile rejected",
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.Error(*result.Failure),
		)
	}
	return nil
}
