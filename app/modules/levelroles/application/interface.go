package levelrolesservice

import (
	"context"
	"time"

	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

type (
	MappingResult   = results.OperationResult[levelrolesdomain.Mapping, error]
	MappingsResult  = results.OperationResult[[]levelrolesdomain.Mapping, error]
	SyncResult      = results.OperationResult[levelrolesdomain.SyncDecision, error]
	ReconcileResult = results.OperationResult[[]RoleActionResult, error]
)

// DeleteResult reports how many grace timers were cleared with the mapping.
type DeleteResult = results.OperationResult[int, error]

// Outcome is the result of one requested role mutation.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeRevoked Outcome = "revoked"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// RoleActionResult reports what happened to one role during a reconcile.
type RoleActionResult struct {
	RoleID  sharedtypes.RoleID   `json:"roleId"`
	Action  apperrors.RoleAction `json:"action"`
	Outcome Outcome              `json:"outcome"`
	Reason  string               `json:"reason,omitempty"`
}

// RoleGateway mutates member roles on the chat platform.
type RoleGateway interface {
	AddRole(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error
	RemoveRole(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error
}

// MemberRoleReader reads a member's current roles. It returns
// apperrors.ErrMemberNotFound when the user has left the guild.
type MemberRoleReader interface {
	MemberRoles(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) ([]sharedtypes.RoleID, error)
}

// Service is the level roles module contract.
type Service interface {
	UpsertLevelRole(ctx context.Context, mapping levelrolesdomain.Mapping) (MappingResult, error)
	DeleteLevelRole(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) (DeleteResult, error)
	ListLevelRoles(ctx context.Context, guildID sharedtypes.GuildID) (MappingsResult, error)

	// SyncRoles decides which roles to grant and revoke and persists the
	// grace timer changes. It never calls the platform.
	SyncRoles(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, level int64, held []sharedtypes.RoleID, now time.Time) (SyncResult, error)

	// ConfirmGrant and ConfirmRevoke clear the grace timer after the platform
	// applied the mutation.
	ConfirmGrant(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error
	ConfirmRevoke(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleID sharedtypes.RoleID) error

	// Reconcile reads the member's roles, syncs them and applies the decision.
	Reconcile(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, level int64) (ReconcileResult, error)

	// PendingUsers lists users with a running grace timer.
	PendingUsers(ctx context.Context, guildID sharedtypes.GuildID) ([]sharedtypes.UserID, error)
}
