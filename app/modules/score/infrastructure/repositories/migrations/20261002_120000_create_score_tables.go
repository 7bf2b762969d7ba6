package migrations

import (
	"context"
	"fmt"

	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating user_scores and activity_records tables...")
			if _, err := db.NewCreateTable().Model((*scoredb.UserScore)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create user_scores: %w", err)
			}
			if _, err := db.NewCreateIndex().
				Model((*scoredb.UserScore)(nil)).
				Index("idx_user_scores_leaderboard").
				Column("guild_id").
				ColumnExpr("xp DESC").
				ColumnExpr("user_id").
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create idx_user_scores_leaderboard: %w", err)
			}

			if _, err := db.NewCreateTable().Model((*scoredb.ActivityRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create activity_records: %w", err)
			}
			if _, err := db.NewCreateIndex().
				Model((*scoredb.ActivityRecord)(nil)).
				Index("idx_activity_records_window").
				Column("guild_id", "user_id", "kind", "occurred_at").
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create idx_activity_records_window: %w", err)
			}
			fmt.Println("Score tables created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping score tables...")
			if _, err := db.NewDropTable().Model((*scoredb.ActivityRecord)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewDropTable().Model((*scoredb.UserScore)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("Score tables dropped successfully!")
			return nil
		},
	)
}
