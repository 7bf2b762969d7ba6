package levelrolesdb

import (
	"time"

	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// LevelRoleMapping is one (guild, role) level threshold.
type LevelRoleMapping struct {
	bun.BaseModel `bun:"table:level_role_mappings,alias:lrm"`

	GuildID       sharedtypes.GuildID `bun:"guild_id,pk"`
	RoleID        sharedtypes.RoleID  `bun:"role_id,pk"`
	RequiredLevel int64               `bun:"required_level,notnull"`
	DropGraceDays int                 `bun:"drop_grace_days,notnull,default:0"`
	CreatedAt     time.Time           `bun:"created_at,notnull"`
	UpdatedAt     time.Time           `bun:"updated_at,notnull"`
}

// RoleDropState is a running grace timer. A missing row means no timer.
type RoleDropState struct {
	bun.BaseModel `bun:"table:role_drop_states,alias:rds"`

	GuildID    sharedtypes.GuildID `bun:"guild_id,pk"`
	UserID     sharedtypes.UserID  `bun:"user_id,pk"`
	RoleID     sharedtypes.RoleID  `bun:"role_id,pk"`
	BelowSince time.Time           `bun:"below_since,notnull"`
}

func (m *LevelRoleMapping) toDomain() levelrolesdomain.Mapping {
	return levelrolesdomain.Mapping{
		GuildID:       m.GuildID,
		RoleID:        m.RoleID,
		RequiredLevel: m.RequiredLevel,
		DropGraceDays: m.DropGraceDays,
	}
}
