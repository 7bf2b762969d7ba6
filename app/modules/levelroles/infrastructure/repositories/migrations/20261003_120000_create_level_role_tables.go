package migrations

import (
	"context"
	"fmt"

	levelrolesdb "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating level_role_mappings and role_drop_states tables...")
			if _, err := db.NewCreateTable().Model((*levelrolesdb.LevelRoleMapping)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create level_role_mappings: %w", err)
			}
			if _, err := db.NewCreateTable().Model((*levelrolesdb.RoleDropState)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create role_drop_states: %w", err)
			}
			if _, err := db.NewCreateIndex().
				Model((*levelrolesdb.RoleDropState)(nil)).
				Index("idx_role_drop_states_role").
				Column("guild_id", "role_id").
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create idx_role_drop_states_role: %w", err)
			}
			fmt.Println("Level role tables created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping level role tables...")
			if _, err := db.NewDropTable().Model((*levelrolesdb.RoleDropState)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewDropTable().Model((*levelrolesdb.LevelRoleMapping)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("Level role tables dropped successfully!")
			return nil
		},
	)
}
