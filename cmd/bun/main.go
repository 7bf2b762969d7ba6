package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/Black-And-White-Club/levelbot/app/db"
	levelrolesmigrations "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/repositories/migrations"
	scoremigrations "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories/migrations"
	settingsmigrations "github.com/Black-And-White-Club/levelbot/app/modules/settings/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/levelbot/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

// Modules migrate in this order and roll back in reverse.
var moduleOrder = []string{"settings", "score", "levelroles"}

func main() {
	cliApp := &cli.App{
		Name:  "bun",
		Usage: "levelbot database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
			&cli.StringFlag{Name: "module", Usage: "limit the command to one module"},
		},
		Commands: []*cli.Command{
			newMultiModuleDBCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openMigrators(c *cli.Context) (*bun.DB, map[string]*migrate.Migrator, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	database, err := db.Open(c.Context, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, err
	}

	migrators := map[string]*migrate.Migrator{
		"settings":   migrate.NewMigrator(database, settingsmigrations.Migrations),
		"score":      migrate.NewMigrator(database, scoremigrations.Migrations),
		"levelroles": migrate.NewMigrator(database, levelrolesmigrations.Migrations),
	}
	if only := c.String("module"); only != "" {
		m, ok := migrators[only]
		if !ok {
			_ = database.Close()
			return nil, nil, fmt.Errorf("invalid module name: %s", only)
		}
		migrators = map[string]*migrate.Migrator{only: m}
	}
	return database, migrators, nil
}

// forEach runs fn over the selected modules in dependency order, or reverse
// order when reverse is set.
func forEach(c *cli.Context, reverse bool, fn func(ctx context.Context, name string, m *migrate.Migrator) error) error {
	database, migrators, err := openMigrators(c)
	if err != nil {
		return err
	}
	defer database.Close()

	names := make([]string, 0, len(migrators))
	for _, name := range moduleOrder {
		if _, ok := migrators[name]; ok {
			names = append(names, name)
		}
	}
	if reverse {
		slices.Reverse(names)
	}
	for _, name := range names {
		if err := fn(c.Context, name, migrators[name]); err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
	}
	return nil
}

func newMultiModuleDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return forEach(c, false, func(ctx context.Context, name string, m *migrate.Migrator) error {
						fmt.Printf("Initializing migrations for module: %s\n", name)
						return m.Init(ctx)
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					return forEach(c, false, func(ctx context.Context, name string, m *migrate.Migrator) error {
						if err := m.Init(ctx); err != nil {
							return err
						}
						group, err := m.Migrate(ctx)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", name, group)
						}
						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					return forEach(c, true, func(ctx context.Context, name string, m *migrate.Migrator) error {
						group, err := m.Rollback(ctx)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", name, group)
						}
						return nil
					})
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<name words...>",
				Action: func(c *cli.Context) error {
					if c.String("module") == "" {
						return fmt.Errorf("--module is required")
					}
					name := strings.Join(c.Args().Slice(), "_")
					return forEach(c, false, func(ctx context.Context, module string, m *migrate.Migrator) error {
						mf, err := m.CreateGoMigration(ctx, name)
						if err != nil {
							return err
						}
						fmt.Printf("Created migration for module %s: %s (%s)\n", module, mf.Name, mf.Path)
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					return forEach(c, false, func(ctx context.Context, name string, m *migrate.Migrator) error {
						ms, err := m.MigrationsWithStatus(ctx)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", name)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
						return nil
					})
				},
			},
		},
	}
}
