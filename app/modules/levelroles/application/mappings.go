package levelrolesservice

import (
	"context"
	"errors"

	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	levelrolesdb "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/repositories"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// UpsertLevelRole creates or replaces the mapping for (guild, role).
func (s *LevelRolesService) UpsertLevelRole(ctx context.Context, mapping levelrolesdomain.Mapping) (MappingResult, error) {
	return withTelemetry(s, ctx, "UpsertLevelRole", mapping.GuildID, func(ctx context.Context) (MappingResult, error) {
		if err := mapping.Validate(); err != nil {
			return results.FailureResult[levelrolesdomain.Mapping, error](err), nil
		}
		if err := s.repo.UpsertMapping(ctx, nil, mapping); err != nil {
			return MappingResult{}, apperrors.Storage("levelroles.upsert", err)
		}
		return results.SuccessResult[levelrolesdomain.Mapping, error](mapping), nil
	})
}

// DeleteLevelRole removes the mapping and every grace timer for the role in
// one transaction, so no orphaned timer can outlive its mapping.
func (s *LevelRolesService) DeleteLevelRole(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) (DeleteResult, error) {
	return withTelemetry(s, ctx, "DeleteLevelRole", guildID, func(ctx context.Context) (DeleteResult, error) {
		if guildID == "" {
			return results.FailureResult[int, error](errMissingGuild), nil
		}
		if roleID == "" {
			return results.FailureResult[int, error](apperrors.NewValidationError("roleId", "is required")), nil
		}

		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (DeleteResult, error) {
			err := s.repo.DeleteMapping(ctx, db, guildID, roleID)
			if errors.Is(err, levelrolesdb.ErrNoRowsAffected) {
				return results.FailureResult[int, error](ErrMappingNotFound), nil
			}
			if err != nil {
				return DeleteResult{}, apperrors.Storage("levelroles.delete", err)
			}

			cleared, err := s.repo.ClearRoleDropStates(ctx, db, guildID, roleID)
			if err != nil {
				return DeleteResult{}, apperrors.Storage("levelroles.delete", err)
			}
			s.logger.InfoContext(ctx, "Level role deleted",
				attr.GuildID(guildID),
				attr.RoleID(roleID),
				attr.Int("timers_cleared", cleared),
			)
			return results.SuccessResult[int, error](cleared), nil
		})
	})
}

// ListLevelRoles returns the guild's mappings by ascending required level.
func (s *LevelRolesService) ListLevelRoles(ctx context.Context, guildID sharedtypes.GuildID) (MappingsResult, error) {
	return withTelemetry(s, ctx, "ListLevelRoles", guildID, func(ctx context.Context) (MappingsResult, error) {
		if guildID == "" {
			return results.FailureResult[[]levelrolesdomain.Mapping, error](errMissingGuild), nil
		}
		mappings, err := s.repo.ListMappings(ctx, nil, guildID)
		if err != nil {
			return MappingsResult{}, apperrors.Storage("levelroles.list", err)
		}
		return results.SuccessResult[[]levelrolesdomain.Mapping, error](mappings), nil
	})
}
