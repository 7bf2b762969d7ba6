package api

import (
	"context"
	"slices"

	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	settingsservice "github.com/Black-And-White-Club/levelbot/app/modules/settings/application"
	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// FakeSettings is a programmable SettingsService. Unset funcs return defaults.
type FakeSettings struct {
	UpdateFunc func(ctx context.Context, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) (settingsservice.SettingsResult, error)
	RemoveFunc func(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (settingsservice.ChannelsResult, error)

	channels []sharedtypes.ChannelID
}

func (f *FakeSettings) GetGuildSettings(_ context.Context, guildID sharedtypes.GuildID) (settingsservice.SettingsResult, error) {
	return results.SuccessResult[settingsdomain.GuildSettings, error](settingsdomain.Defaults(guildID)), nil
}

func (f *FakeSettings) UpdateGuildSettings(ctx context.Context, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) (settingsservice.SettingsResult, error) {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, guildID, patch)
	}
	return results.SuccessResult[settingsdomain.GuildSettings, error](patch.Apply(settingsdomain.Defaults(guildID))), nil
}

func (f *FakeSettings) AddAllowedChannel(_ context.Context, _ sharedtypes.GuildID, channelID sharedtypes.ChannelID) (settingsservice.ChannelsResult, error) {
	f.channels = append(f.channels, channelID)
	return results.SuccessResult[[]sharedtypes.ChannelID, error](f.channels), nil
}

func (f *FakeSettings) RemoveAllowedChannel(ctx context.Context, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) (settingsservice.ChannelsResult, error) {
	if f.RemoveFunc != nil {
		return f.RemoveFunc(ctx, guildID, channelID)
	}
	return results.SuccessResult[[]sharedtypes.ChannelID, error](nil), nil
}

func (f *FakeSettings) ListAllowedChannels(context.Context, sharedtypes.GuildID) (settingsservice.ChannelsResult, error) {
	return results.SuccessResult[[]sharedtypes.ChannelID, error](f.channels), nil
}

func (f *FakeSettings) IsCommandAllowed(_ context.Context, _ sharedtypes.GuildID, channelID sharedtypes.ChannelID) (bool, error) {
	return len(f.channels) == 0 || slices.Contains(f.channels, channelID), nil
}

// FakeScore is a programmable ScoreService.
type FakeScore struct {
	Top        []scoredb.RankedScore
	SetXPFunc  func(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64) (scoreservice.XPChangeResult, error)
	gotLimit   int
	standingOf sharedtypes.UserID
}

func (f *FakeScore) TopUsers(_ context.Context, _ sharedtypes.GuildID, limit int) (scoreservice.LeaderboardResult, error) {
	f.gotLimit = limit
	return results.SuccessResult[[]scoredb.RankedScore, error](f.Top), nil
}

func (f *FakeScore) GetStanding(_ context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error) {
	f.standingOf = userID
	return results.SuccessResult[scoreservice.Standing, error](scoreservice.Standing{
		GuildID: guildID, UserID: userID, XP: 150, Level: 1, Progress: 0.16, Rank: 3,
	}), nil
}

func (f *FakeScore) SetXP(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64) (scoreservice.XPChangeResult, error) {
	if f.SetXPFunc != nil {
		return f.SetXPFunc(ctx, guildID, userID, xp)
	}
	return results.SuccessResult[scoredb.XPChange, error](scoredb.XPChange{OldXP: 0, NewXP: xp}), nil
}

// FakeDecay is a programmable DecayRunner. Busy simulates a pass in flight.
type FakeDecay struct {
	DecayFunc func(ctx context.Context, guildID sharedtypes.GuildID) (scoreservice.DecayResult, error)
	Busy      bool
	calls     int
}

func (f *FakeDecay) DecayGuild(ctx context.Context, guildID sharedtypes.GuildID) (scoreservice.DecayResult, bool, error) {
	if f.Busy {
		return scoreservice.DecayResult{}, false, nil
	}
	f.calls++
	if f.DecayFunc != nil {
		result, err := f.DecayFunc(ctx, guildID)
		return result, true, err
	}
	return results.SuccessResult[[]scoreservice.DecayChange, error](nil), true, nil
}

// FakeRoles is a programmable LevelRolesService.
type FakeRoles struct {
	DeleteFunc func(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) (levelrolesservice.DeleteResult, error)
	upserted   []levelrolesdomain.Mapping
}

func (f *FakeRoles) UpsertLevelRole(_ context.Context, m levelrolesdomain.Mapping) (levelrolesservice.MappingResult, error) {
	if err := m.Validate(); err != nil {
		return results.FailureResult[levelrolesdomain.Mapping, error](err), nil
	}
	f.upserted = append(f.upserted, m)
	return results.SuccessResult[levelrolesdomain.Mapping, error](m), nil
}

func (f *FakeRoles) DeleteLevelRole(ctx context.Context, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) (levelrolesservice.DeleteResult, error) {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, guildID, roleID)
	}
	return results.SuccessResult[int, error](0), nil
}

func (f *FakeRoles) ListLevelRoles(context.Context, sharedtypes.GuildID) (levelrolesservice.MappingsResult, error) {
	return results.SuccessResult[[]levelrolesdomain.Mapping, error](f.upserted), nil
}
