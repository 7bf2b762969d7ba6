package settingsdb

import (
	"time"

	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// GuildSettings is the persisted settings row, one per guild.
type GuildSettings struct {
	bun.BaseModel `bun:"table:guild_settings,alias:gs"`

	GuildID                 sharedtypes.GuildID `bun:"guild_id,pk"`
	MsgXP                   int64               `bun:"msg_xp,notnull"`
	ReactionXP              int64               `bun:"reaction_xp,notnull"`
	VoiceXPPerMinute        int64               `bun:"voice_xp_per_minute,notnull"`
	MsgCooldownSeconds      int                 `bun:"msg_cooldown_seconds,notnull"`
	ReactionCooldownSeconds int                 `bun:"reaction_cooldown_seconds,notnull"`
	DecayEnabled            bool                `bun:"decay_enabled,notnull"`
	DecayWindowDays         int                 `bun:"decay_window_days,notnull"`
	DecayMinMessages        int                 `bun:"decay_min_messages,notnull"`
	DecayPercent            float64             `bun:"decay_percent,notnull"`
	LevelCurveFactor        int64               `bun:"level_curve_factor,notnull"`
	CreatedAt               time.Time           `bun:"created_at,notnull"`
	UpdatedAt               time.Time           `bun:"updated_at,notnull"`
}

// AllowedCommandChannel is one channel in a guild's command allow-list.
type AllowedCommandChannel struct {
	bun.BaseModel `bun:"table:allowed_command_channels,alias:acc"`

	GuildID   sharedtypes.GuildID   `bun:"guild_id,pk"`
	ChannelID sharedtypes.ChannelID `bun:"channel_id,pk"`
	CreatedAt time.Time             `bun:"created_at,notnull"`
}

func toDomain(row *GuildSettings) *settingsdomain.GuildSettings {
	if row == nil {
		return nil
	}
	return &settingsdomain.GuildSettings{
		GuildID:                 row.GuildID,
		MsgXP:                   row.MsgXP,
		ReactionXP:              row.ReactionXP,
		VoiceXPPerMinute:        row.VoiceXPPerMinute,
		MsgCooldownSeconds:      row.MsgCooldownSeconds,
		ReactionCooldownSeconds: row.ReactionCooldownSeconds,
		DecayEnabled:            row.DecayEnabled,
		DecayWindowDays:         row.DecayWindowDays,
		DecayMinMessages:        row.DecayMinMessages,
		DecayPercent:            row.DecayPercent,
		LevelCurveFactor:        row.LevelCurveFactor,
		UpdatedAt:               row.UpdatedAt,
	}
}

func toRow(s settingsdomain.GuildSettings) *GuildSettings {
	return &GuildSettings{
		GuildID:                 s.GuildID,
		MsgXP:                   s.MsgXP,
		ReactionXP:              s.ReactionXP,
		VoiceXPPerMinute:        s.VoiceXPPerMinute,
		MsgCooldownSeconds:      s.MsgCooldownSeconds,
		ReactionCooldownSeconds: s.ReactionCooldownSeconds,
		DecayEnabled:            s.DecayEnabled,
		DecayWindowDays:         s.DecayWindowDays,
		DecayMinMessages:        s.DecayMinMessages,
		DecayPercent:            s.DecayPercent,
		LevelCurveFactor:        s.LevelCurveFactor,
		UpdatedAt:               s.UpdatedAt,
	}
}
