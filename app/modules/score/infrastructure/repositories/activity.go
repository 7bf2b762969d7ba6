package scoredb

import (
	"context"
	"fmt"
	"time"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
)

func (r *Impl) LogActivity(ctx context.Context, db bun.IDB, record *ActivityRecord) error {
	db = r.idb(db)

	record.OccurredAt = record.OccurredAt.UTC()
	if _, err := db.NewInsert().Model(record).Exec(ctx); err != nil {
		return fmt.Errorf("scoredb.LogActivity: %w", err)
	}
	return nil
}

func (r *Impl) CountInWindow(ctx context.Context, db bun.IDB, guildID sharedtypes.GuildID, userID sharedtypes.UserID, kind sharedtypes.ActivityKind, window time.Duration, now time.Time) (int64, error) {
	db = r.idb(db)

	now = now.UTC()
	var total int64
	err := db.NewSelect().
		Model((*ActivityRecord)(nil)).
		ColumnExpr("CAST(COALESCE(SUM(amount), 0) AS BIGINT)").
		Where("guild_id = ?", guildID).
		Where("user_id = ?", userID).
		Where("kind = ?", kind).
		Where("occurred_at >= ?", now.Add(-window)).
		Where("occurred_at <= ?", now).
		Scan(ctx, &total)
	if err != nil {
		return 0, fmt.Errorf("scoredb.CountInWindow: %w", err)
	}
	return total, nil
}
