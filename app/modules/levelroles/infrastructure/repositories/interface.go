package levelrolesdb

import (
	"context"
	"time"

	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for level-role mappings and grace timers.
// A nil db argument means the repository's own connection.
type Repository interface {
	// UpsertMapping inserts or replaces the mapping for (guild, role).
	UpsertMapping(ctx context.Context, db bun.IDB, mapping levelrolesdomain.Mapping) error

	// DeleteMapping removes the mapping. ErrNoRowsAffected when none existed.
	DeleteMapping(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error

	// ListMappings returns the guild's mappings by required level, then role id.
	ListMappings(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]levelrolesdomain.Mapping, error)

	// GetDropStates returns the user's running timers keyed by role.
	GetDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (map[sharedtypes.RoleID]time.Time, error)

	// StartDropStates starts timers at since. Existing timers keep their start.
	StartDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleIDs []sharedtypes.RoleID, since time.Time) error

	// ClearDropStates removes the user's timers for roleIDs.
	ClearDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleIDs []sharedtypes.RoleID) error

	// ClearRoleDropStates removes every user's timer for one role.
	ClearRoleDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) (int, error)

	// ListUsersWithDropStates returns the distinct users of the guild with a running timer.
	ListUsersWithDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]sharedtypes.UserID, error)
}
