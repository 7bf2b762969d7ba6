package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/levelbot/app"
	"github.com/Black-And-White-Club/levelbot/app/api"
	"github.com/Black-And-White-Club/levelbot/config"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "levelbot",
		Usage: "per-guild XP and level roles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"CONFIG_PATH"},
			},
		},
		Action: run,
		Commands: []*cli.Command{
			tokenCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := &app.App{}
	if err := application.Initialize(ctx, cfg); err != nil {
		_ = application.Close(context.Background())
		return fmt.Errorf("failed to initialize app: %w", err)
	}

	runErr := application.Run(ctx)
	closeErr := application.Close(context.Background())
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// tokenCommand issues an admin API bearer token scoped to one guild.
func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "issue an admin API token for a guild",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "guild", Required: true, Usage: "guild id the token is scoped to"},
			&cli.StringFlag{Name: "subject", Value: "admin", Usage: "token subject"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour, Usage: "token lifetime"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.API.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not configured")
			}
			token, err := api.NewTokenVerifier(cfg.API.JWTSecret).IssueToken(c.String("guild"), c.String("subject"), c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
