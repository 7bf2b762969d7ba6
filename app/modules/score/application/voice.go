package scoreservice

import (
	"context"
	"time"

	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// RunVoiceTick awards voiceXpPerMinute to every member of the snapshot that
// shares a channel with at least one other eligible member. A member whose
// award fails is logged and skipped; the rest of the tick proceeds.
func (s *ScoreService) RunVoiceTick(ctx context.Context, snapshot scoredomain.VoiceSnapshot, now time.Time) (VoiceTickResult, error) {
	return withTelemetry(s, ctx, "RunVoiceTick", snapshot.GuildID, "", func(ctx context.Context) (VoiceTickResult, error) {
		if snapshot.GuildID == "" {
			return results.FailureResult[[]VoiceAward, error](errMissingGuild), nil
		}

		eligible := scoredomain.EligibleVoiceMembers(snapshot)
		if len(eligible) == 0 {
			return results.SuccessResult[[]VoiceAward, error]([]VoiceAward{}), nil
		}

		settings, err := s.guildSettings(ctx, snapshot.GuildID)
		if err != nil {
			return VoiceTickResult{}, err
		}
		if settings.VoiceXPPerMinute <= 0 {
			s.metrics.RecordAwardSkipped(ctx, sharedtypes.SourceVoice, SkipDisabled)
			return results.SuccessResult[[]VoiceAward, error]([]VoiceAward{}), nil
		}

		awards := make([]VoiceAward, 0, len(eligible))
		for _, member := range eligible {
			change, err := s.repo.AddXP(ctx, nil, snapshot.GuildID, member.UserID, settings.VoiceXPPerMinute, now)
			if err != nil {
				s.logger.ErrorContext(ctx, "Voice award failed, skipping member",
					attr.ExtractCorrelationID(ctx),
					attr.GuildID(snapshot.GuildID),
					attr.UserID(member.UserID),
					attr.Error(err),
				)
				continue
			}
			s.logActivity(ctx, snapshot.GuildID, member.UserID, sharedtypes.ActivityVoiceMinute, 1, now)

			oldLevel := scoredomain.LevelFromXP(change.OldXP, settings.LevelCurveFactor)
			newLevel := scoredomain.LevelFromXP(change.NewXP, settings.LevelCurveFactor)
			s.metrics.RecordXPAwarded(ctx, sharedtypes.SourceVoice, change.NewXP-change.OldXP)
			s.recordLevelChange(ctx, oldLevel, newLevel)
			s.publishXPChanged(ctx, snapshot.GuildID, member.UserID, change, oldLevel, newLevel, sharedtypes.SourceVoice, now)

			awards = append(awards, VoiceAward{
				UserID:   member.UserID,
				NewXP:    change.NewXP,
				NewLevel: newLevel,
			})
		}

		s.logger.InfoContext(ctx, "Voice tick complete",
			attr.GuildID(snapshot.GuildID),
			attr.Int("eligible", len(eligible)),
			attr.Int("awarded", len(awards)),
		)
		return results.SuccessResult[[]VoiceAward, error](awards), nil
	})
}
