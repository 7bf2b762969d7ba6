package levelrolesdb

import (
	"context"
	"fmt"
	"time"

	levelrolesdomain "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db  *bun.DB
	now func() time.Time
}

// NewRepository creates a new level roles repository.
func NewRepository(db *bun.DB) Repository {
	return &Impl{db: db, now: time.Now}
}

func (r *Impl) idb(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) UpsertMapping(ctx context.Context, db bun.IDB, mapping levelrolesdomain.Mapping) error {
	db = r.idb(db)

	now := r.now().UTC()
	row := &LevelRoleMapping{
		GuildID:       mapping.GuildID,
		RoleID:        mapping.RoleID,
		RequiredLevel: mapping.RequiredLevel,
		DropGraceDays: mapping.DropGraceDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err := db.NewInsert().
		Model(row).
		On("CONFLICT (guild_id, role_id) DO UPDATE").
		Set("required_level = EXCLUDED.required_level").
		Set("drop_grace_days = EXCLUDED.drop_grace_days").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("levelrolesdb.UpsertMapping: %w", err)
	}
	return nil
}

func (r *Impl) DeleteMapping(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) error {
	db = r.idb(db)

	res, err := db.NewDelete().
		Model((*LevelRoleMapping)(nil)).
		Where("guild_id = ?", guildID).
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("levelrolesdb.DeleteMapping: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) ListMappings(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]levelrolesdomain.Mapping, error) {
	db = r.idb(db)

	var rows []LevelRoleMapping
	err := db.NewSelect().
		Model(&rows).
		Where("guild_id = ?", guildID).
		Order("required_level ASC", "role_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("levelrolesdb.ListMappings: %w", err)
	}

	out := make([]levelrolesdomain.Mapping, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *Impl) GetDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (map[sharedtypes.RoleID]time.Time, error) {
	db = r.idb(db)

	var rows []RoleDropState
	err := db.NewSelect().
		Model(&rows).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("levelrolesdb.GetDropStates: %w", err)
	}

	out := make(map[sharedtypes.RoleID]time.Time, len(rows))
	for _, row := range rows {
		out[row.RoleID] = row.BelowSince
	}
	return out, nil
}

func (r *Impl) StartDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleIDs []sharedtypes.RoleID, since time.Time) error {
	if len(roleIDs) == 0 {
		return nil
	}
	db = r.idb(db)

	rows := make([]RoleDropState, 0, len(roleIDs))
	for _, roleID := range roleIDs {
		rows = append(rows, RoleDropState{
			GuildID:    guildID,
			UserID:     userID,
			RoleID:     roleID,
			BelowSince: since.UTC(),
		})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (guild_id, user_id, role_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("levelrolesdb.StartDropStates: %w", err)
	}
	return nil
}

func (r *Impl) ClearDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, roleIDs []sharedtypes.RoleID) error {
	if len(roleIDs) == 0 {
		return nil
	}
	db = r.idb(db)

	_, err := db.NewDelete().
		Model((*RoleDropState)(nil)).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Where("role_id IN (?)", bun.In(roleIDs)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("levelrolesdb.ClearDropStates: %w", err)
	}
	return nil
}

func (r *Impl) ClearRoleDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, roleID sharedtypes.RoleID) (int, error) {
	db = r.idb(db)

	res, err := db.NewDelete().
		Model((*RoleDropState)(nil)).
		Where("guild_id = ?", guildID).
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("levelrolesdb.ClearRoleDropStates: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *Impl) ListUsersWithDropStates(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]sharedtypes.UserID, error) {
	db = r.idb(db)

	var ids []sharedtypes.UserID
	err := db.NewSelect().
		Model((*RoleDropState)(nil)).
		ColumnExpr("DISTINCT user_id").
		Where("guild_id = ?", guildID).
		Order("user_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("levelrolesdb.ListUsersWithDropStates: %w", err)
	}
	return ids, nil
}
