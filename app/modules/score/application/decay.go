package scoreservice

import (
	"context"
	"time"

	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/google/uuid"
)

const day = 24 * time.Hour

// RunDecayPass reduces the XP of every user in the guild whose message count
// over the decay window is below the guild's floor. Only message activity
// counts toward the floor. Per-user failures are logged and the pass continues.
func (s *ScoreService) RunDecayPass(ctx context.Context, guildID sharedtypes.GuildID, now time.Time) (DecayResult, error) {
	return withTelemetry(s, ctx, "RunDecayPass", guildID, "", func(ctx context.Context) (DecayResult, error) {
		if guildID == "" {
			return results.FailureResult[[]DecayChange, error](errMissingGuild), nil
		}

		settings, err := s.guildSettings(ctx, guildID)
		if err != nil {
			return DecayResult{}, err
		}
		if !settings.DecayEnabled {
			return results.SuccessResult[[]DecayChange, error]([]DecayChange{}), nil
		}

		scores, err := s.repo.ListUserScores(ctx, nil, guildID)
		if err != nil {
			return DecayResult{}, apperrors.Storage("score.decay.list", err)
		}

		runID := uuid.NewString()
		window := time.Duration(settings.DecayWindowDays) * day
		changes := make([]DecayChange, 0)
		var removed int64

		for _, score := range scores {
			messages, err := s.repo.CountInWindow(ctx, nil, guildID, score.UserID, sharedtypes.ActivityMessage, window, now)
			if err != nil {
				s.logDecayFailure(ctx, runID, guildID, score.UserID, err)
				continue
			}
			if !scoredomain.ShouldDecay(messages, settings.DecayMinMessages) {
				continue
			}

			target := scoredomain.DecayedXP(score.XP, settings.DecayPercent)
			if target == score.XP {
				continue
			}

			change, err := s.repo.SetXP(ctx, nil, guildID, score.UserID, target, now)
			if err != nil {
				s.logDecayFailure(ctx, runID, guildID, score.UserID, err)
				continue
			}

			oldLevel := scoredomain.LevelFromXP(change.OldXP, settings.LevelCurveFactor)
			newLevel := scoredomain.LevelFromXP(change.NewXP, settings.LevelCurveFactor)
			s.recordLevelChange(ctx, oldLevel, newLevel)
			s.publishXPChanged(ctx, guildID, score.UserID, change, oldLevel, newLevel, sharedtypes.SourceDecay, now)

			removed += change.OldXP - change.NewXP
			changes = append(changes, DecayChange{
				UserID: score.UserID,
				OldXP:  change.OldXP,
				NewXP:  change.NewXP,
			})
		}

		s.metrics.RecordDecayApplied(ctx, len(changes), removed)
		s.logger.InfoContext(ctx, "Decay pass complete",
			attr.String("run_id", runID),
			attr.GuildID(guildID),
			attr.Int("users_scanned", len(scores)),
			attr.Int("users_decayed", len(changes)),
			attr.Int64("xp_removed", removed),
		)
		return results.SuccessResult[[]DecayChange, error](changes), nil
	})
}

func (s *ScoreService) logDecayFailure(ctx context.Context, runID string, guildID sharedtypes.GuildID, userID sharedtypes.UserID, err error) {
	s.logger.ErrorContext(ctx, "Decay failed for user, continuing pass",
		attr.ExtractCorrelationID(ctx),
		attr.String("run_id", runID),
		attr.GuildID(guildID),
		attr.UserID(userID),
		attr.Error(err),
	)
}
