package settingsservice

import (
	"context"

	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// FakeSettingsRepository provides a programmable stub for the settingsdb.Repository interface.
type FakeSettingsRepository struct {
	trace []string
	// stored is the row the default EnsureSettings returns once an update
	// has been applied.
	stored *settingsdomain.GuildSettings

	EnsureSettingsFunc       func(ctx context.Context, db bun.IDB, defaults settingsdomain.GuildSettings) (*settingsdomain.GuildSettings, error)
	UpdateSettingsFunc       func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) error
	ListGuildIDsFunc         func(ctx context.Context, db bun.IDB) ([]sharedtypes.GuildID, error)
	AddAllowedChannelFunc    func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error
	RemoveAllowedChannelFunc func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error
	ListAllowedChannelsFunc  func(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]sharedtypes.ChannelID, error)
}

// NewFakeSettingsRepository initializes a new FakeSettingsRepository with an empty trace.
func NewFakeSettingsRepository() *FakeSettingsRepository {
	return &FakeSettingsRepository{trace: []string{}}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeSettingsRepository) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeSettingsRepository) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeSettingsRepository) EnsureSettings(ctx context.Context, db bun.IDB, defaults settingsdomain.GuildSettings) (*settingsdomain.GuildSettings, error) {
	f.record("EnsureSettings")
	if f.EnsureSettingsFunc != nil {
		return f.EnsureSettingsFunc(ctx, db, defaults)
	}
	if f.stored != nil {
		out := *f.stored
		return &out, nil
	}
	return &defaults, nil
}

func (f *FakeSettingsRepository) UpdateSettings(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) error {
	f.record("UpdateSettings")
	if f.UpdateSettingsFunc != nil {
		return f.UpdateSettingsFunc(ctx, db, guildID, patch)
	}
	base := settingsdomain.Defaults(guildID)
	if f.stored != nil {
		base = *f.stored
	}
	updated := patch.Apply(base)
	f.stored = &updated
	return nil
}

func (f *FakeSettingsRepository) ListGuildIDs(ctx context.Context, db bun.IDB) ([]sharedtypes.GuildID, error) {
	f.record("ListGuildIDs")
	if f.ListGuildIDsFunc != nil {
		return f.ListGuildIDsFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeSettingsRepository) AddAllowedChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error {
	f.record("AddAllowedChannel")
	if f.AddAllowedChannelFunc != nil {
		return f.AddAllowedChannelFunc(ctx, db, guildID, channelID)
	}
	return nil
}

func (f *FakeSettingsRepository) RemoveAllowedChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error {
	f.record("RemoveAllowedChannel")
	if f.RemoveAllowedChannelFunc != nil {
		return f.RemoveAllowedChannelFunc(ctx, db, guildID, channelID)
	}
	return nil
}

func (f *FakeSettingsRepository) ListAllowedChannels(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]sharedtypes.ChannelID, error) {
	f.record("ListAllowedChannels")
	if f.ListAllowedChannelsFunc != nil {
		return f.ListAllowedChannelsFunc(ctx, db, guildID)
	}
	return nil, nil
}
