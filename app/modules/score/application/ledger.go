package scoreservice

import (
	"context"
	"errors"

	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

var (
	errMissingGuild = apperrors.NewValidationError("guildId", "is required")
	errMissingUser  = apperrors.NewValidationError("userId", "is required")
)

// GetXP returns the user's XP, zero when they have no row. A stored value
// outside [0, MaxSafeXP] is normalized and written back.
func (s *ScoreService) GetXP(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int64, error) {
	score, err := s.repo.GetScore(ctx, nil, guildID, userID)
	if errors.Is(err, scoredb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.Storage("score.get_xp", err)
	}

	normalized := scoredomain.ClampXP(score.XP)
	if normalized != score.XP {
		s.logger.WarnContext(ctx, "Repairing out-of-range xp",
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.Int64("stored_xp", score.XP),
			attr.Int64("normalized_xp", normalized),
		)
		if err := s.repo.RepairXP(ctx, nil, guildID, userID, score.XP, normalized); err != nil {
			return 0, apperrors.Storage("score.repair_xp", err)
		}
	}
	return normalized, nil
}

// SetXP overwrites the user's XP. Values are clamped to [0, MaxSafeXP].
func (s *ScoreService) SetXP(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64) (XPChangeResult, error) {
	return withTelemetry(s, ctx, "SetXP", guildID, userID, func(ctx context.Context) (XPChangeResult, error) {
		if guildID == "" {
			return results.FailureResult[scoredb.XPChange, error](errMissingGuild), nil
		}
		if userID == "" {
			return results.FailureResult[scoredb.XPChange, error](errMissingUser), nil
		}

		settings, err := s.guildSettings(ctx, guildID)
		if err != nil {
			return XPChangeResult{}, err
		}

		now := s.now()
		change, err := s.repo.SetXP(ctx, nil, guildID, userID, xp, now)
		if err != nil {
			return XPChangeResult{}, apperrors.Storage("score.set_xp", err)
		}

		oldLevel := scoredomain.LevelFromXP(change.OldXP, settings.LevelCurveFactor)
		newLevel := scoredomain.LevelFromXP(change.NewXP, settings.LevelCurveFactor)
		s.recordLevelChange(ctx, oldLevel, newLevel)
		s.publishXPChanged(ctx, guildID, userID, change, oldLevel, newLevel, sharedtypes.SourceAdmin, now)

		return results.SuccessResult[scoredb.XPChange, error](change), nil
	})
}

// TopUsers lists the guild leaderboard. limit is clamped to [1, MaxLeaderboardLimit];
// zero or less selects DefaultLeaderboardLimit.
func (s *ScoreService) TopUsers(ctx context.Context, guildID sharedtypes.GuildID, limit int) (LeaderboardResult, error) {
	return withTelemetry(s, ctx, "TopUsers", guildID, "", func(ctx context.Context) (LeaderboardResult, error) {
		if guildID == "" {
			return results.FailureResult[[]scoredb.RankedScore, error](errMissingGuild), nil
		}
		rows, err := s.repo.TopUsers(ctx, nil, guildID, clampLimit(limit))
		if err != nil {
			return LeaderboardResult{}, apperrors.Storage("score.top_users", err)
		}
		if rows == nil {
			rows = []scoredb.RankedScore{}
		}
		return results.SuccessResult[[]scoredb.RankedScore, error](rows), nil
	})
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLeaderboardLimit
	case limit > MaxLeaderboardLimit:
		return MaxLeaderboardLimit
	}
	return limit
}

// GetStanding returns the user's XP with its level, progress toward the next
// level and leaderboard rank.
func (s *ScoreService) GetStanding(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (StandingResult, error) {
	return withTelemetry(s, ctx, "GetStanding", guildID, userID, func(ctx context.Context) (StandingResult, error) {
		if guildID == "" {
			return results.FailureResult[Standing, error](errMissingGuild), nil
		}
		if userID == "" {
			return results.FailureResult[Standing, error](errMissingUser), nil
		}

		settings, err := s.guildSettings(ctx, guildID)
		if err != nil {
			return StandingResult{}, err
		}
		xp, err := s.GetXP(ctx, guildID, userID)
		if err != nil {
			return StandingResult{}, err
		}

		rank, err := s.repo.Rank(ctx, nil, guildID, userID)
		if errors.Is(err, scoredb.ErrNotFound) {
			rank = 0
		} else if err != nil {
			return StandingResult{}, apperrors.Storage("score.rank", err)
		}

		level := scoredomain.LevelFromXP(xp, settings.LevelCurveFactor)
		return results.SuccessResult[Standing, error](Standing{
			GuildID:  guildID,
			UserID:   userID,
			XP:       xp,
			Level:    level,
			Progress: scoredomain.ProgressWithinLevel(xp, level, settings.LevelCurveFactor),
			Rank:     rank,
		}), nil
	})
}
