package settingsservice

import (
	"context"

	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// SettingsResult carries the settings on success, or the validation error that rejected the call.
type SettingsResult = results.OperationResult[settingsdomain.GuildSettings, error]

// ChannelsResult carries a guild's command allow-list.
type ChannelsResult = results.OperationResult[[]sharedtypes.ChannelID, error]

// Service is the settings store contract used by the other modules and the admin API.
type Service interface {
	// GetGuildSettings returns the guild's settings, persisting defaults first if none exist.
	GetGuildSettings(ctx context.Context, guildID sharedtypes.GuildID) (SettingsResult, error)

	// UpdateGuildSettings validates and applies patch. A rejected patch leaves the stored row unchanged.
	UpdateGuildSettings(ctx context.Context, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) (SettingsResult, error)

	ListGuildIDs(ctx context.Context) ([]sharedtypes.GuildID, error)

	AddAllowedChannel(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (ChannelsResult, error)
	RemoveAllowedChannel(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (ChannelsResult, error)
	ListAllowedChannels(ctx context.Context, guildID sharedtypes.GuildID) (ChannelsResult, error)

	// IsCommandAllowed reports whether commands may run in channelID. An empty allow-list permits every channel.
	IsCommandAllowed(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (bool, error)
}
