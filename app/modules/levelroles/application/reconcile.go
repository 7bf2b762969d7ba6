package levelrolesservice

import (
	"context"
	"errors"

	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// Reconcile brings the member's platform roles in line with level. Each
// requested mutation is reported as a RoleActionResult; a failed grant or
// revoke leaves the grace timer untouched so the next pass retries it.
func (s *LevelRolesService) Reconcile(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, level int64) (ReconcileResult, error) {
	return withTelemetry(s, ctx, "Reconcile", guildID, func(ctx context.Context) (ReconcileResult, error) {
		if guildID == "" {
			return results.FailureResult[[]RoleActionResult, error](errMissingGuild), nil
		}
		if userID == "" {
			return results.FailureResult[[]RoleActionResult, error](errMissingUser), nil
		}

		mappings, err := s.repo.ListMappings(ctx, nil, guildID)
		if err != nil {
			return ReconcileResult{}, apperrors.Storage("levelroles.reconcile", err)
		}
		if len(mappings) == 0 {
			return results.SuccessResult[[]RoleActionResult, error]([]RoleActionResult{}), nil
		}
		if s.members == nil || s.gateway == nil {
			return results.FailureResult[[]RoleActionResult, error](ErrPlatformUnavailable), nil
		}

		held, err := s.members.MemberRoles(ctx, guildID, userID)
		if errors.Is(err, apperrors.ErrMemberNotFound) {
			s.logger.InfoContext(ctx, "Member left guild, skipping role reconcile",
				attr.GuildID(guildID),
				attr.UserID(userID),
			)
			return results.SuccessResult[[]RoleActionResult, error]([]RoleActionResult{}), nil
		}
		if err != nil {
			return results.FailureResult[[]RoleActionResult, error](err), nil
		}

		now := s.now()
		plan, err := s.plan(ctx, guildID, userID, level, held, now)
		if err != nil {
			return ReconcileResult{}, err
		}

		out := make([]RoleActionResult, 0, len(plan.ToGrant)+len(plan.ToRevoke)+len(plan.Pending))
		for _, roleID := range plan.ToGrant {
			out = append(out, s.apply(ctx, apperrors.RoleActionGrant, guildID, userID, roleID))
		}
		for _, roleID := range plan.ToRevoke {
			out = append(out, s.apply(ctx, apperrors.RoleActionRevoke, guildID, userID, roleID))
		}
		for _, roleID := range plan.Pending {
			s.metrics.RecordRoleAction(ctx, string(apperrors.RoleActionRevoke), string(OutcomeSkipped))
			out = append(out, RoleActionResult{
				RoleID:  roleID,
				Action:  apperrors.RoleActionRevoke,
				Outcome: OutcomeSkipped,
				Reason:  "grace period running",
			})
		}
		return results.SuccessResult[[]RoleActionResult, error](out), nil
	})
}

// apply performs one platform mutation and confirms it on success.
func (s *LevelRolesService) apply(
	ctx context.Context,
	action apperrors.RoleAction,
	guildID sharedtypes.GuildID,
	userID sharedtypes.UserID,
	roleID sharedtypes.RoleID,
) RoleActionResult {
	var (
		err     error
		outcome Outcome
	)
	switch action {
	case apperrors.RoleActionGrant:
		err = s.gateway.AddRole(ctx, guildID, userID, roleID)
		outcome = OutcomeGranted
	default:
		err = s.gateway.RemoveRole(ctx, guildID, userID, roleID)
		outcome = OutcomeRevoked
	}

	if err != nil {
		var pae *apperrors.PlatformActionError
		if !errors.As(err, &pae) {
			pae = &apperrors.PlatformActionError{GuildID: guildID, UserID: userID, RoleID: roleID, Action: action, Err: err}
		}
		attrs := []any{
			attr.ExtractCorrelationID(ctx),
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.RoleID(roleID),
			attr.String("action", string(action)),
			attr.Error(err),
		}
		// Only the platform adapter knows whether a failure was a permission denial.
		if pae.Hint != "" {
			attrs = append(attrs, attr.String("likely_cause", pae.Hint))
		}
		s.logger.ErrorContext(ctx, "Role mutation failed", attrs...)
		s.metrics.RecordRoleAction(ctx, string(action), string(OutcomeFailed))
		return RoleActionResult{RoleID: roleID, Action: action, Outcome: OutcomeFailed, Reason: pae.Error()}
	}

	var confirmErr error
	if action == apperrors.RoleActionGrant {
		confirmErr = s.ConfirmGrant(ctx, guildID, userID, roleID)
	} else {
		confirmErr = s.ConfirmRevoke(ctx, guildID, userID, roleID)
	}
	if confirmErr != nil {
		// The next sync clears the leftover timer; the platform change stands.
		s.logger.WarnContext(ctx, "Failed to clear grace timer after role mutation",
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.RoleID(roleID),
			attr.Error(confirmErr),
		)
	}

	s.metrics.RecordRoleAction(ctx, string(action), string(outcome))
	s.logger.InfoContext(ctx, "Role mutation applied",
		attr.GuildID(guildID),
		attr.UserID(userID),
		attr.RoleID(roleID),
		attr.String("action", string(action)),
	)
	return RoleActionResult{RoleID: roleID, Action: action, Outcome: outcome}
}
