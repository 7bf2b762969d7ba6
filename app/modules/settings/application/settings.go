package settingsservice

import (
	"context"
	"errors"

	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	settingsdb "github.com/Black-And-White-Club/levelbot/app/modules/settings/infrastructure/repositories"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

var errMissingGuild = apperrors.NewValidationError("guildId", "is required")

// GetGuildSettings returns the guild's settings, creating and persisting defaults on first access.
func (s *SettingsService) GetGuildSettings(ctx context.Context, guildID sharedtypes.GuildID) (SettingsResult, error) {
	return withTelemetry(s, ctx, "GetGuildSettings", guildID, func(ctx context.Context) (SettingsResult, error) {
		if guildID == "" {
			return results.FailureResult[settingsdomain.GuildSettings, error](errMissingGuild), nil
		}
		settings, err := s.repo.EnsureSettings(ctx, nil, settingsdomain.Defaults(guildID))
		if err != nil {
			return SettingsResult{}, apperrors.Storage("settings.get", err)
		}
		return results.SuccessResult[settingsdomain.GuildSettings, error](*settings), nil
	})
}

// UpdateGuildSettings validates patch, then applies it inside one transaction.
func (s *SettingsService) UpdateGuildSettings(ctx context.Context, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) (SettingsResult, error) {
	return withTelemetry(s, ctx, "UpdateGuildSettings", guildID, func(ctx context.Context) (SettingsResult, error) {
		if guildID == "" {
			return results.FailureResult[settingsdomain.GuildSettings, error](errMissingGuild), nil
		}
		if err := patch.Validate(); err != nil {
			return results.FailureResult[settingsdomain.GuildSettings, error](err), nil
		}

		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (SettingsResult, error) {
			current, err := s.repo.EnsureSettings(ctx, db, settingsdomain.Defaults(guildID))
			if err != nil {
				return SettingsResult{}, apperrors.Storage("settings.update", err)
			}
			if patch.IsEmpty() {
				return results.SuccessResult[settingsdomain.GuildSettings, error](*current), nil
			}

			if err := s.repo.UpdateSettings(ctx, db, guildID, patch); err != nil {
				return SettingsResult{}, apperrors.Storage("settings.update", err)
			}
			updated, err := s.repo.EnsureSettings(ctx, db, settingsdomain.Defaults(guildID))
			if err != nil {
				return SettingsResult{}, apperrors.Storage("settings.update", err)
			}
			return results.SuccessResult[settingsdomain.GuildSettings, error](*updated), nil
		})
	})
}

// ListGuildIDs returns every guild that has a settings row.
func (s *SettingsService) ListGuildIDs(ctx context.Context) ([]sharedtypes.GuildID, error) {
	ids, err := s.repo.ListGuildIDs(ctx, nil)
	if err != nil {
		return nil, apperrors.Storage("settings.list_guilds", err)
	}
	return ids, nil
}

func (s *SettingsService) AddAllowedChannel(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (ChannelsResult, error) {
	return withTelemetry(s, ctx, "AddAllowedChannel", guildID, func(ctx context.Context) (ChannelsResult, error) {
		if guildID == "" || channelID == "" {
			return results.FailureResult[[]sharedtypes.ChannelID, error](apperrors.NewValidationError("channelId", "guild and channel are required")), nil
		}
		if err := s.repo.AddAllowedChannel(ctx, nil, guildID, channelID); err != nil {
			return ChannelsResult{}, apperrors.Storage("settings.add_channel", err)
		}
		return s.listChannels(ctx, guildID)
	})
}

func (s *SettingsService) RemoveAllowedChannel(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (ChannelsResult, error) {
	return withTelemetry(s, ctx, "RemoveAllowedChannel", guildID, func(ctx context.Context) (ChannelsResult, error) {
		err := s.repo.RemoveAllowedChannel(ctx, nil, guildID, channelID)
		if errors.Is(err, settingsdb.ErrNoRowsAffected) {
			return results.FailureResult[[]sharedtypes.ChannelID, error](ErrChannelNotAllowed), nil
		}
		if err != nil {
			return ChannelsResult{}, apperrors.Storage("settings.remove_channel", err)
		}
		return s.listChannels(ctx, guildID)
	})
}

func (s *SettingsService) ListAllowedChannels(ctx context.Context, guildID sharedtypes.GuildID) (ChannelsResult, error) {
	return withTelemetry(s, ctx, "ListAllowedChannels", guildID, func(ctx context.Context) (ChannelsResult, error) {
		return s.listChannels(ctx, guildID)
	})
}

func (s *SettingsService) IsCommandAllowed(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (bool, error) {
	channels, err := s.repo.ListAllowedChannels(ctx, nil, guildID)
	if err != nil {
		return false, apperrors.Storage("settings.is_command_allowed", err)
	}
	if len(channels) == 0 {
		return true, nil
	}
	for _, c := range channels {
		if c == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (s *SettingsService) listChannels(ctx context.Context, guildID sharedtypes.GuildID) (ChannelsResult, error) {
	channels, err := s.repo.ListAllowedChannels(ctx, nil, guildID)
	if err != nil {
		return ChannelsResult{}, apperrors.Storage("settings.list_channels", err)
	}
	if channels == nil {
		channels = []sharedtypes.ChannelID{}
	}
	return results.SuccessResult[[]sharedtypes.ChannelID, error](channels), nil
}
