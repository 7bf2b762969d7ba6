package scoreservice

import (
	"context"
	"time"

	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// Skip reasons reported in AwardOutcome.Reason and the awards-skipped metric.
const (
	SkipIgnored  = "ignored"
	SkipDisabled = "disabled"
	SkipCooldown = "cooldown"
)

// MessageEvent is a chat message seen in a guild.
type MessageEvent struct {
	GuildID   sharedtypes.GuildID
	ChannelID sharedtypes.ChannelID
	UserID    sharedtypes.UserID
	IsBot     bool
	At        time.Time
}

// ReactionEvent is a reaction added to a message.
type ReactionEvent struct {
	GuildID   sharedtypes.GuildID
	ChannelID sharedtypes.ChannelID
	UserID    sharedtypes.UserID
	IsBot     bool
	At        time.Time
}

// AwardOutcome reports whether an event earned XP and the resulting balance.
// When Awarded is false the XP and level fields are zero and Reason says why.
type AwardOutcome struct {
	Awarded  bool   `json:"awarded"`
	Reason   string `json:"reason,omitempty"`
	OldXP    int64  `json:"oldXp"`
	NewXP    int64  `json:"newXp"`
	OldLevel int64  `json:"oldLevel"`
	NewLevel int64  `json:"newLevel"`
}

// LeveledUp reports whether the award crossed into a higher level.
func (o AwardOutcome) LeveledUp() bool {
	return o.Awarded && o.NewLevel > o.OldLevel
}

// VoiceAward is one member's voice-minute award.
type VoiceAward struct {
	UserID   sharedtypes.UserID `json:"userId"`
	NewXP    int64              `json:"newXp"`
	NewLevel int64              `json:"newLevel"`
}

// DecayChange is one user's XP reduction in a decay pass.
type DecayChange struct {
	UserID sharedtypes.UserID `json:"userId"`
	OldXP  int64              `json:"oldXp"`
	NewXP  int64              `json:"newXp"`
}

// Standing is a user's XP with its derived level, progress and leaderboard rank.
type Standing struct {
	GuildID  sharedtypes.GuildID `json:"guildId"`
	UserID   sharedtypes.UserID  `json:"userId"`
	XP       int64               `json:"xp"`
	Level    int64               `json:"level"`
	Progress float64             `json:"progress"`
	// Rank is 1-based; zero means the user has no score row yet.
	Rank int `json:"rank"`
}

type (
	AwardResult       = results.OperationResult[AwardOutcome, error]
	VoiceTickResult   = results.OperationResult[[]VoiceAward, error]
	DecayResult       = results.OperationResult[[]DecayChange, error]
	XPChangeResult    = results.OperationResult[scoredb.XPChange, error]
	LeaderboardResult = results.OperationResult[[]scoredb.RankedScore, error]
	StandingResult    = results.OperationResult[Standing, error]
)

// SettingsReader supplies guild settings; the settings service satisfies it.
type SettingsReader interface {
	GetGuildSettings(ctx context.Context, guildID sharedtypes.GuildID) (results.OperationResult[settingsdomain.GuildSettings, error], error)
}

// Service is the score module contract.
type Service interface {
	RecordMessage(ctx context.Context, event MessageEvent) (AwardResult, error)
	RecordReactionAdd(ctx context.Context, event ReactionEvent) (AwardResult, error)
	RunVoiceTick(ctx context.Context, snapshot scoredomain.VoiceSnapshot, now time.Time) (VoiceTickResult, error)
	RunDecayPass(ctx context.Context, guildID sharedtypes.GuildID, now time.Time) (DecayResult, error)

	GetXP(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int64, error)
	SetXP(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64) (XPChangeResult, error)
	TopUsers(ctx context.Context, guildID sharedtypes.GuildID, limit int) (LeaderboardResult, error)
	GetStanding(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (StandingResult, error)
}
