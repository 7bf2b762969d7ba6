package settingsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db  *bun.DB
	now func() time.Time
}

// NewRepository creates a new settings repository.
func NewRepository(db *bun.DB) Repository {
	return &Impl{db: db, now: time.Now}
}

func (r *Impl) idb(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) EnsureSettings(ctx context.Context, db bun.IDB, defaults settingsdomain.GuildSettings) (*settingsdomain.GuildSettings, error) {
	db = r.idb(db)

	now := r.now().UTC()
	row := toRow(defaults)
	row.CreatedAt = now
	row.UpdatedAt = now

	if _, err := db.NewInsert().
		Model(row).
		On("CONFLICT (guild_id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("settingsdb.EnsureSettings: %w", err)
	}

	got := new(GuildSettings)
	err := db.NewSelect().
		Model(got).
		Where("guild_id = ?", defaults.GuildID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("settingsdb.EnsureSettings: %w", err)
	}
	return toDomain(got), nil
}

func (r *Impl) UpdateSettings(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, patch settingsdomain.SettingsPatch) error {
	db = r.idb(db)

	q := db.NewUpdate().
		Model((*GuildSettings)(nil)).
		Where("guild_id = ?", guildID)
	for _, c := range patchColumns(patch) {
		q = q.Set(fmt.Sprintf("%s = ?", c.name), c.value)
	}
	res, err := q.Set("updated_at = ?", r.now().UTC()).Exec(ctx)
	if err != nil {
		return fmt.Errorf("settingsdb.UpdateSettings: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

type columnValue struct {
	name  string
	value any
}

// patchColumns lists the columns a patch sets, in table order.
func patchColumns(p settingsdomain.SettingsPatch) []columnValue {
	var cols []columnValue
	if p.MsgXP != nil {
		cols = append(cols, columnValue{"msg_xp", *p.MsgXP})
	}
	if p.ReactionXP != nil {
		cols = append(cols, columnValue{"reaction_xp", *p.ReactionXP})
	}
	if p.VoiceXPPerMinute != nil {
		cols = append(cols, columnValue{"voice_xp_per_minute", *p.VoiceXPPerMinute})
	}
	if p.MsgCooldownSeconds != nil {
		cols = append(cols, columnValue{"msg_cooldown_seconds", *p.MsgCooldownSeconds})
	}
	if p.ReactionCooldownSeconds != nil {
		cols = append(cols, columnValue{"reaction_cooldown_seconds", *p.ReactionCooldownSeconds})
	}
	if p.DecayEnabled != nil {
		cols = append(cols, columnValue{"decay_enabled", *p.DecayEnabled})
	}
	if p.DecayWindowDays != nil {
		cols = append(cols, columnValue{"decay_window_days", *p.DecayWindowDays})
	}
	if p.DecayMinMessages != nil {
		cols = append(cols, columnValue{"decay_min_messages", *p.DecayMinMessages})
	}
	if p.DecayPercent != nil {
		cols = append(cols, columnValue{"decay_percent", *p.DecayPercent})
	}
	if p.LevelCurveFactor != nil {
		cols = append(cols, columnValue{"level_curve_factor", *p.LevelCurveFactor})
	}
	return cols
}

func (r *Impl) ListGuildIDs(ctx context.Context, db bun.IDB) ([]sharedtypes.GuildID, error) {
	db = r.idb(db)

	var ids []sharedtypes.GuildID
	err := db.NewSelect().
		Model((*GuildSettings)(nil)).
		Column("guild_id").
		Order("guild_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("settingsdb.ListGuildIDs: %w", err)
	}
	return ids, nil
}

func (r *Impl) AddAllowedChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error {
	db = r.idb(db)

	row := &AllowedCommandChannel{GuildID: guildID, ChannelID: channelID, CreatedAt: r.now().UTC()}
	if _, err := db.NewInsert().
		Model(row).
		On("CONFLICT (guild_id, channel_id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("settingsdb.AddAllowedChannel: %w", err)
	}
	return nil
}

func (r *Impl) RemoveAllowedChannel(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, channelID sharedtypes.ChannelID) error {
	db = r.idb(db)

	res, err := db.NewDelete().
		Model((*AllowedCommandChannel)(nil)).
		Where("guild_id = ?", guildID).
		Where("channel_id = ?", channelID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("settingsdb.RemoveAllowedChannel: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) ListAllowedChannels(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]sharedtypes.ChannelID, error) {
	db = r.idb(db)

	var ids []sharedtypes.ChannelID
	err := db.NewSelect().
		Model((*AllowedCommandChannel)(nil)).
		Column("channel_id").
		Where("guild_id = ?", guildID).
		Order("channel_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("settingsdb.ListAllowedChannels: %w", err)
	}
	return ids, nil
}
