package scoredb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	scoredomain "github.com/Black-And-White-Club/levelbot/app/modules/score/domain"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

// Impl implements Repository using Bun ORM.
type Impl struct {
	db *bun.DB
}

// NewRepository creates a new score repository.
func NewRepository(db *bun.DB) Repository {
	return &Impl{db: db}
}

func (r *Impl) idb(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// addXPQuery clamps in SQL with CASE so it runs unchanged on postgres and sqlite.
// SET expressions read the pre-update row, so previous_xp receives the old value.
const addXPQuery = `
INSERT INTO user_scores (guild_id, user_id, xp, previous_xp, updated_at)
VALUES (?0, ?1, ?2, 0, ?3)
ON CONFLICT (guild_id, user_id) DO UPDATE SET
	previous_xp = user_scores.xp,
	xp = CASE
		WHEN user_scores.xp + ?4 < 0 THEN 0
		WHEN user_scores.xp + ?4 > ?5 THEN ?5
		ELSE user_scores.xp + ?4
	END,
	updated_at = excluded.updated_at
RETURNING previous_xp, xp`

func (r *Impl) AddXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, delta int64, now time.Time) (XPChange, error) {
	db = r.idb(db)

	delta = scoredomain.ClampDelta(delta)
	var change XPChange
	err := db.NewRaw(addXPQuery,
		guildID, userID, scoredomain.ClampXP(delta), now.UTC(),
		delta, scoredomain.MaxSafeXP,
	).Scan(ctx, &change.OldXP, &change.NewXP)
	if err != nil {
		return XPChange{}, fmt.Errorf("scoredb.AddXP: %w", err)
	}
	return change, nil
}

const setXPQuery = `
INSERT INTO user_scores (guild_id, user_id, xp, previous_xp, updated_at)
VALUES (?0, ?1, ?2, 0, ?3)
ON CONFLICT (guild_id, user_id) DO UPDATE SET
	previous_xp = user_scores.xp,
	xp = excluded.xp,
	updated_at = excluded.updated_at
RETURNING previous_xp, xp`

func (r *Impl) SetXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, xp int64, now time.Time) (XPChange, error) {
	db = r.idb(db)

	var change XPChange
	err := db.NewRaw(setXPQuery, guildID, userID, scoredomain.ClampXP(xp), now.UTC()).
		Scan(ctx, &change.OldXP, &change.NewXP)
	if err != nil {
		return XPChange{}, fmt.Errorf("scoredb.SetXP: %w", err)
	}
	return change, nil
}

func (r *Impl) GetScore(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (*UserScore, error) {
	db = r.idb(db)

	score := new(UserScore)
	err := db.NewSelect().
		Model(score).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scoredb.GetScore: %w", err)
	}
	return score, nil
}

func (r *Impl) RepairXP(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, corrupt, normalized int64) error {
	db = r.idb(db)

	_, err := db.NewUpdate().
		Model((*UserScore)(nil)).
		Set("xp = ?", normalized).
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Where("xp = ?", corrupt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("scoredb.RepairXP: %w", err)
	}
	return nil
}

func (r *Impl) TopUsers(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, limit int) ([]RankedScore, error) {
	db = r.idb(db)

	var rows []RankedScore
	err := db.NewSelect().
		Model((*UserScore)(nil)).
		Column("user_id", "xp").
		Where("guild_id = ?", guildID).
		OrderExpr("xp DESC, user_id ASC").
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("scoredb.TopUsers: %w", err)
	}
	return rows, nil
}

func (r *Impl) Rank(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (int, error) {
	db = r.idb(db)

	score, err := r.GetScore(ctx, db, guildID, userID)
	if err != nil {
		return 0, err
	}

	ahead, err := db.NewSelect().
		Model((*UserScore)(nil)).
		Where("guild_id = ?", guildID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("xp > ?", score.XP).
				WhereOr("xp = ? AND user_id < ?", score.XP, userID)
		}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("scoredb.Rank: %w", err)
	}
	return ahead + 1, nil
}

func (r *Impl) ListUserScores(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID) ([]UserScore, error) {
	db = r.idb(db)

	var scores []UserScore
	err := db.NewSelect().
		Model(&scores).
		Where("guild_id = ?", guildID).
		Order("user_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scoredb.ListUserScores: %w", err)
	}
	return scores, nil
}
