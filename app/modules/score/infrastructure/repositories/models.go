package scoredb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// UserScore is the XP counter of one user in one guild.
type UserScore struct {
	bun.BaseModel `bun:"table:user_scores,alias:us"`

	GuildID sharedtypes.GuildID `bun:"guild_id,pk"`
	UserID  sharedtypes.UserID  `bun:"user_id,pk"`
	XP      int64               `bun:"xp,notnull,default:0"`
	// PreviousXP is the value XP held before the latest mutation; AddXP
	// returns it from the same statement that changes XP.
	PreviousXP int64     `bun:"previous_xp,notnull,default:0"`
	UpdatedAt  time.Time `bun:"updated_at,notnull"`
}

// ActivityRecord is one append-only activity entry used for windowed counts.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:activity_records,alias:ar"`

	ID         int64                    `bun:"id,pk,autoincrement"`
	GuildID    sharedtypes.GuildID      `bun:"guild_id,notnull"`
	UserID     sharedtypes.UserID       `bun:"user_id,notnull"`
	Kind       sharedtypes.ActivityKind `bun:"kind,notnull"`
	Amount     int64                    `bun:"amount,notnull"`
	OccurredAt time.Time                `bun:"occurred_at,notnull"`
}

// XPChange is the before/after value of one ledger mutation.
type XPChange struct {
	OldXP int64
	NewXP int64
}

// RankedScore is one leaderboard row.
type RankedScore struct {
	UserID sharedtypes.UserID `bun:"user_id" json:"userId"`
	XP     int64              `bun:"xp" json:"xp"`
}
