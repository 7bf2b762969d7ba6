package migrations

import (
	"context"
	"fmt"

	settingsdb "github.com/Black-And-White-Club/levelbot/app/modules/settings/infrastructure/repositories"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating guild_settings and allowed_command_channels tables...")
			if _, err := db.NewCreateTable().Model((*settingsdb.GuildSettings)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create guild_settings: %w", err)
			}
			if _, err := db.NewCreateTable().Model((*settingsdb.AllowedCommandChannel)(nil)).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create allowed_command_channels: %w", err)
			}
			fmt.Println("Settings tables created successfully!")
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping settings tables...")
			if _, err := db.NewDropTable().Model((*settingsdb.AllowedCommandChannel)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			if _, err := db.NewDropTable().Model((*settingsdb.GuildSettings)(nil)).IfExists().Exec(ctx); err != nil {
				return err
			}
			fmt.Println("Settings tables dropped successfully!")
			return nil
		},
	)
}
