package levelrolesservice

import (
	"context"
	"time"

	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// SyncRoles evaluates every mapping of the guild for a member at level who
// holds held, persists grace timer starts and clears, and returns the roles
// the caller should grant and revoke.
func (s *LevelRolesService) SyncRoles(
	ctx context.Context,
	guildID sharedtypes.GuildID,
	userID sharedtypes.UserID,
	level int64,
	held []sharedtypes.RoleID,
	now time.Time,
) (SyncResult, error) {
	return withTelemetry(s, ctx, "SyncRoles", guildID, func(ctx context.Context) (SyncResult, error) {
		if guildID == "" {
			return results.FailureResult[levelrolesdomain.SyncDecision, error](errMissingGuild), nil
		}
		if userID == "" {
			return results.FailureResult[levelrolesdomain.SyncDecision, error](errMissingUser), nil
		}

		plan, err := s.plan(ctx, guildID, userID, level, held, now)
		if err != nil {
			return SyncResult{}, err
		}
		return results.SuccessResult[levelrolesdomain.SyncDecision, error](plan.SyncDecision), nil
	})
}

// plan runs the state machine and persists its timer writes in one transaction.
func (s *LevelRolesService) plan(
	ctx context.Context,
	guildID sharedtypes.GuildID,
	userID sharedtypes.UserID,
	level int64,
	held []sharedtypes.RoleID,
	now time.Time,
) (levelrolesdomain.Plan, error) {
	res, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[levelrolesdomain.Plan, error], error) {
		mappings, err := s.repo.ListMappings(ctx, db, guildID)
		if err != nil {
			return results.OperationResult[levelrolesdomain.Plan, error]{}, apperrors.Storage("levelroles.sync", err)
		}
		states, err := s.repo.GetDropStates(ctx, db, guildID, userID)
		if err != nil {
			return results.OperationResult[levelrolesdomain.Plan, error]{}, apperrors.Storage("levelroles.sync", err)
		}

		plan := levelrolesdomain.Decide(mappings, states, level, held, now)

		if err := s.repo.StartDropStates(ctx, db, guildID, userID, plan.Start, now); err != nil {
			return results.OperationResult[levelrolesdomain.Plan, error]{}, apperrors.Storage("levelroles.sync", err)
		}
		if err := s.repo.ClearDropStates(ctx, db, guildID, userID, plan.Clear); err != nil {
			return results.OperationResult[levelrolesdomain.Plan, error]{}, apperrors.Storage("levelroles.sync", err)
		}
		return results.SuccessResult[levelrolesdomain.Plan, error](plan), nil
	})
	if err != nil {
		return levelrolesdomain.Plan{}, err
	}
	return *res.Success, nil
}

// ConfirmGrant clears any grace timer after the platform granted roleID.
func (s *LevelRolesService) ConfirmGrant(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error {
	return s.confirm(ctx, "levelroles.confirm_grant", guildID, userID, roleID)
}

// ConfirmRevoke clears the grace timer after the platform revoked roleID.
func (s *LevelRolesService) ConfirmRevoke(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error {
	return s.confirm(ctx, "levelroles.confirm_revoke", guildID, userID, roleID)
}

func (s *LevelRolesService) confirm(ctx context.Context, op string, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error {
	if err := s.repo.ClearDropStates(ctx, nil, guildID, userID, []sharedtypes.RoleID{roleID}); err != nil {
		return apperrors.Storage(op, err)
	}
	return nil
}

// PendingUsers lists users of the guild with a running grace timer.
func (s *LevelRolesService) PendingUsers(ctx context.Context, guildID sharedtypes.GuildID) ([]sharedtypes.UserID, error) {
	users, err := s.repo.ListUsersWithDropStates(ctx, nil, guildID)
	if err != nil {
		return nil, apperrors.Storage("levelroles.pending_users", err)
	}
	return users, nil
}
