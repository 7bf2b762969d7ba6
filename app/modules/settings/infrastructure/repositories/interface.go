package settingsdb

import (
	"context"

	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for settings persistence.
// A nil db argument means the repository's own connection.
//
// Error semantics:
//   - ErrNotFound: record does not exist
//   - ErrNoRowsAffected: UPDATE/DELETE matched no rows
//   - Other errors: infrastructure failures
type Repository interface {
	// EnsureSettings inserts defaults for the guild when no row exists and
	// returns the persisted row either way.
	EnsureSettings(ctx context.Context, db bun.IDB, defaults settingsdomain.GuildSettings) (*settingsdomain.GuildSettings, error)

	// UpdateSettings writes only the columns patch sets, so concurrent
	// updates to different fields do not overwrite each other.
	UpdateSettings(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) error

	// ListGuildIDs returns every guild with a settings row, ascending.
	ListGuildIDs(ctx context.Context, db bun.IDB) ([]sharedtypes.GuildID, error)

	AddAllowedChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error

	// RemoveAllowedChannel returns ErrNoRowsAffected when the channel was not in the set.
	RemoveAllowedChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error

	ListAllowedChannels(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]sharedtypes.ChannelID, error)
}
