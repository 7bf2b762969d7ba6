package scoredb

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for the XP ledger and activity log.
// A nil db argument means the repository's own connection.
//
// Error semantics:
//   - ErrNotFound: record does not exist
//   - Other errors: infrastructure failures
type Repository interface {
	// AddXP applies delta to the user's XP in one atomic statement, creating
	// the row at zero first if needed. The result is clamped to [0, MaxSafeXP].
	AddXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, delta int64, now time.Time) (XPChange, error)

	// SetXP overwrites the user's XP with a value clamped to [0, MaxSafeXP].
	SetXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64, now time.Time) (XPChange, error)

	// GetScore returns the stored row without normalization. ErrNotFound when absent.
	GetScore(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*UserScore, error)

	// RepairXP rewrites a stored value that is outside [0, MaxSafeXP]. It only
	// writes when the row still holds corrupt.
	RepairXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, corrupt, normalized int64) error

	// TopUsers lists the guild's users by XP descending, ties by user id ascending.
	TopUsers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, limit int) ([]RankedScore, error)

	// Rank returns the 1-based leaderboard position of the user. ErrNotFound when the user has no row.
	Rank(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int, error)

	// ListUserScores returns every score row in the guild, ordered by user id.
	ListUserScores(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]UserScore, error)

	// LogActivity appends an activity record.
	LogActivity(ctx context.Context, db bun.IDB, record *ActivityRecord) error

	// CountInWindow sums activity amounts of kind within [now - window, now].
	CountInWindow(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, kind sharedtypes.ActivityKind, window time.Duration, now time.Time) (int64, error)
}
