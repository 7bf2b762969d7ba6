package scoreservice

import (
	"context"
	"time"

	"github.com/Black-And-White-Club/levelbot/app/eventbus"
	"github.com/Black-And-White-Club/levelbot/app/events"
	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// award describes one cooldown-gated award attempt.
type award struct {
	kind     sharedtypes.ActivityKind
	source   sharedtypes.XPSource
	guildID  sharedtypes.GuildID
	userID   sharedtypes.UserID
	isBot    bool
	at       time.Time
	amount   func(s settingsdomain.GuildSettings) int64
	cooldown func(s settingsdomain.GuildSettings) time.Duration
}

// RecordMessage awards msgXp for a guild message when the author is off cooldown.
func (s *ScoreService) RecordMessage(ctx context.Context, event MessageEvent) (AwardResult, error) {
	return withTelemetry(s, ctx, "RecordMessage", event.GuildID, event.UserID, func(ctx context.Context) (AwardResult, error) {
		return s.recordAward(ctx, award{
			kind:     sharedtypes.ActivityMessage,
			source:   sharedtypes.SourceMessage,
			guildID:  event.GuildID,
			userID:   event.UserID,
			isBot:    event.IsBot,
			at:       event.At,
			amount:   func(v settingsdomain.GuildSettings) int64 { return v.MsgXP },
			cooldown: func(v settingsdomain.GuildSettings) time.Duration { return v.MsgCooldown() },
		})
	})
}

// RecordReactionAdd awards reactionXp for an added reaction. Removals never reach here.
func (s *ScoreService) RecordReactionAdd(ctx context.Context, event ReactionEvent) (AwardResult, error) {
	return withTelemetry(s, ctx, "RecordReactionAdd", event.GuildID, event.UserID, func(ctx context.Context) (AwardResult, error) {
		return s.recordAward(ctx, award{
			kind:     sharedtypes.ActivityReaction,
			source:   sharedtypes.SourceReaction,
			guildID:  event.GuildID,
			userID:   event.UserID,
			isBot:    event.IsBot,
			at:       event.At,
			amount:   func(v settingsdomain.GuildSettings) int64 { return v.ReactionXP },
			cooldown: func(v settingsdomain.GuildSettings) time.Duration { return v.ReactionCooldown() },
		})
	})
}

func (s *ScoreService) recordAward(ctx context.Context, a award) (AwardResult, error) {
	if a.isBot || a.guildID == "" || a.userID == "" {
		s.metrics.RecordAwardSkipped(ctx, a.source, SkipIgnored)
		return skipped(SkipIgnored), nil
	}
	at := a.at
	if at.IsZero() {
		at = s.now()
	}

	settings, err := s.guildSettings(ctx, a.guildID)
	if err != nil {
		return AwardResult{}, err
	}

	amount := a.amount(settings)
	if amount <= 0 {
		s.metrics.RecordAwardSkipped(ctx, a.source, SkipDisabled)
		return skipped(SkipDisabled), nil
	}
	if !s.cooldowns.Allow(a.kind, a.guildID, a.userID, at, a.cooldown(settings)) {
		s.metrics.RecordAwardSkipped(ctx, a.source, SkipCooldown)
		return skipped(SkipCooldown), nil
	}

	change, err := s.repo.AddXP(ctx, nil, a.guildID, a.userID, amount, at)
	if err != nil {
		// The award never landed, so the user must not be left on cooldown.
		s.cooldowns.Release(a.kind, a.guildID, a.userID, at)
		return AwardResult{}, apperrors.Storage("score.add_xp", err)
	}

	s.logActivity(ctx, a.guildID, a.userID, a.kind, 1, at)

	outcome := AwardOutcome{
		Awarded:  true,
		OldXP:    change.OldXP,
		NewXP:    change.NewXP,
		OldLevel: scoredomain.LevelFromXP(change.OldXP, settings.LevelCurveFactor),
		NewLevel: scoredomain.LevelFromXP(change.NewXP, settings.LevelCurveFactor),
	}
	s.metrics.RecordXPAwarded(ctx, a.source, change.NewXP-change.OldXP)
	s.recordLevelChange(ctx, outcome.OldLevel, outcome.NewLevel)
	s.publishXPChanged(ctx, a.guildID, a.userID, change, outcome.OldLevel, outcome.NewLevel, a.source, at)

	return results.SuccessResult[AwardOutcome, error](outcome), nil
}

func skipped(reason string) AwardResult {
	return results.SuccessResult[AwardOutcome, error](AwardOutcome{Reason: reason})
}

// logActivity appends to the activity log. Failures are logged and never
// undo the XP change that preceded them.
func (s *ScoreService) logActivity(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, kind sharedtypes.ActivityKind, amount int64, at time.Time) {
	err := s.repo.LogActivity(ctx, nil, &scoredb.ActivityRecord{
		GuildID:    guildID,
		UserID:     userID,
		Kind:       kind,
		Amount:     amount,
		OccurredAt: at,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to log activity",
			attr.ExtractCorrelationID(ctx),
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.String("kind", string(kind)),
			attr.Error(err),
		)
	}
}

func (s *ScoreService) recordLevelChange(ctx context.Context, oldLevel, newLevel int64) {
	switch {
	case newLevel > oldLevel:
		s.metrics.RecordLevelChange(ctx, "up")
	case newLevel < oldLevel:
		s.metrics.RecordLevelChange(ctx, "down")
	}
}

// publishXPChanged announces a ledger mutation. Publishing is best-effort:
// the XP change is already durable, and the role reconciler catches up on
// the user's next change.
func (s *ScoreService) publishXPChanged(
	ctx context.Context,
	guildID sharedtypes.GuildID,
	userID sharedtypes.UserID,
	change scoredb.XPChange,
	oldLevel, newLevel int64,
	source sharedtypes.XPSource,
	at time.Time,
) {
	if s.publisher == nil {
		return
	}
	payload := events.XPChangedPayloadV1{
		GuildID:    guildID,
		UserID:     userID,
		OldXP:      change.OldXP,
		NewXP:      change.NewXP,
		OldLevel:   oldLevel,
		NewLevel:   newLevel,
		Source:     source,
		OccurredAt: at.UTC(),
	}
	if err := eventbus.PublishJSON(ctx, s.publisher, events.XPChangedV1, payload); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish xp changed event",
			attr.ExtractCorrelationID(ctx),
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.String("source", string(source)),
			attr.Error(err),
		)
	}
}
