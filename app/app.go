// Package app wires the modules, the platform session, the scheduler and the
// admin API into one process.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/levelbot/app/api"
	"github.com/Black-And-White-Club/levelbot/app/db"
	"github.com/Black-And-White-Club/levelbot/app/eventbus"
	"github.com/Black-And-White-Club/levelbot/app/events"
	"github.com/Black-And-White-Club/levelbot/app/modules/levelroles"
	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	levelrolesmigrations "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/levelbot/app/modules/score"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scoremigrations "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/levelbot/app/modules/settings"
	settingsmigrations "github.com/Black-And-White-Club/levelbot/app/modules/settings/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/Black-And-White-Club/levelbot/app/platform/discord"
	"github.com/Black-And-White-Club/levelbot/app/scheduler"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// App holds every long-lived component of the bot.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	EventBus      eventbus.EventBus
	Router        *message.Router
	Cooldowns     *scoreservice.CooldownTracker

	SettingsModule   *settings.Module
	ScoreModule      *score.Module
	LevelRolesModule *levelroles.Module

	// Discord is nil when no bot token is configured.
	Discord *discord.Session

	Jobs *scheduler.Jobs
	Cron *scheduler.CronScheduler
	// River is nil unless the river scheduler backend is selected.
	River *scheduler.RiverScheduler
	API   *api.Server
}

// Initialize builds the application from cfg. Nothing is started; see Run.
func (app *App) Initialize(ctx context.Context, cfg *config.Config) error {
	app.Config = cfg
	app.Observability = observability.New(observability.Config{
		ServiceName: cfg.Observability.ServiceName,
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
	})
	logger := app.Observability.Logger

	database, err := db.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database
	if err := db.Migrate(ctx, database,
		settingsmigrations.Migrations,
		scoremigrations.Migrations,
		levelrolesmigrations.Migrations,
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.InfoContext(ctx, "Database ready", attr.String("driver", cfg.Database.Driver))

	bus, err := eventbus.New(ctx, eventbus.Config{
		URL:           cfg.NATS.URL,
		StreamName:    cfg.NATS.StreamName,
		ConsumerGroup: cfg.NATS.ConsumerGroup,
		NKeySeed:      cfg.NATS.NKeySeed,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	app.EventBus = bus

	router, err := eventbus.NewRouter(eventbus.RouterConfig{
		PoisonTopic: events.PoisonV1,
		Registry:    app.Observability.Registry.Prometheus,
	}, bus, logger)
	if err != nil {
		return fmt.Errorf("failed to create router: %w", err)
	}
	app.Router = router

	if cfg.Discord.Token != "" {
		session, err := discord.NewSession(discord.Config{
			Token:          cfg.Discord.Token,
			PublishTimeout: cfg.Discord.PublishTimeout,
		}, bus, logger)
		if err != nil {
			return fmt.Errorf("failed to create discord session: %w", err)
		}
		app.Discord = session
	} else {
		logger.WarnContext(ctx, "DISCORD_TOKEN empty, running without a platform session")
	}

	if err := app.initializeModules(ctx); err != nil {
		return err
	}
	if err := app.initializeScheduler(ctx); err != nil {
		return err
	}

	handlers := api.NewHandlers(
		app.SettingsModule.SettingsService,
		app.ScoreModule.ScoreService,
		app.LevelRolesModule.LevelRolesService,
		app.Jobs,
		logger,
	)
	app.API = api.NewServer(api.Config{
		ListenAddr: cfg.API.ListenAddr,
		JWTSecret:  cfg.API.JWTSecret,
		RateLimit:  cfg.API.RateLimit,
		RateBurst:  cfg.API.RateBurst,
	}, handlers, app.Observability.Registry.Prometheus, logger)

	return nil
}

func (app *App) initializeModules(ctx context.Context) error {
	obs := app.Observability

	app.SettingsModule = settings.NewSettingsModule(ctx, obs, app.DB)

	app.Cooldowns = scoreservice.NewCooldownTracker(app.Config.Score.CooldownMaxAge)
	scoreModule, err := score.NewScoreModule(ctx, obs, app.DB,
		app.SettingsModule.SettingsService, app.Cooldowns,
		app.EventBus, app.EventBus, app.Router)
	if err != nil {
		return fmt.Errorf("failed to initialize score module: %w", err)
	}
	app.ScoreModule = scoreModule

	// A nil *discord.Session must not reach the service as a non-nil interface.
	var (
		gateway levelrolesservice.RoleGateway
		members levelrolesservice.MemberRoleReader
	)
	if app.Discord != nil {
		gateway, members = app.Discord, app.Discord
	}
	levelRolesModule, err := levelroles.NewLevelRolesModule(ctx, obs, app.DB,
		gateway, members, app.ScoreModule.ScoreService,
		app.EventBus, app.EventBus, app.Router)
	if err != nil {
		return fmt.Errorf("failed to initialize level roles module: %w", err)
	}
	app.LevelRolesModule = levelRolesModule

	return nil
}

func (app *App) initializeScheduler(ctx context.Context) error {
	cfg := app.Config.Scheduler
	schedCfg := scheduler.Config{
		Backend:               scheduler.Backend(cfg.Backend),
		VoiceTickSpec:         cfg.VoiceTickSpec,
		DecaySpec:             cfg.DecaySpec,
		GraceRecheckSpec:      cfg.GraceRecheckSpec,
		CooldownSweepInterval: cfg.CooldownSweepInterval,
	}
	logger := app.Observability.Logger

	var (
		voice scheduler.VoiceSource
		roles scheduler.RoleReconciler
	)
	if app.Discord != nil {
		voice = app.Discord
		roles = app.LevelRolesModule.LevelRolesService
	}
	app.Jobs = scheduler.NewJobs(
		app.ScoreModule.ScoreService,
		app.SettingsModule.SettingsService,
		voice,
		roles,
		app.Cooldowns,
		logger,
		app.Observability.Registry.Scheduler,
	)

	cron, err := scheduler.NewCronScheduler(schedCfg, app.Jobs, logger)
	if err != nil {
		return fmt.Errorf("failed to create cron scheduler: %w", err)
	}
	app.Cron = cron

	if schedCfg.Backend == scheduler.BackendRiver {
		river, err := scheduler.NewRiverScheduler(ctx, app.Config.Database.DSN, schedCfg, app.Jobs, logger)
		if err != nil {
			return fmt.Errorf("failed to create river scheduler: %w", err)
		}
		app.River = river
	}
	return nil
}

// Close releases everything Initialize created. Safe to call on a partially
// initialized App.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	logger := app.Observability.Logger

	if app.Discord != nil {
		if err := app.Discord.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close discord session: %w", err))
		}
	}
	if app.Router != nil {
		if err := app.Router.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close router: %w", err))
		}
	}
	if app.LevelRolesModule != nil {
		errs = append(errs, app.LevelRolesModule.Close())
	}
	if app.ScoreModule != nil {
		errs = append(errs, app.ScoreModule.Close())
	}
	if app.SettingsModule != nil {
		errs = append(errs, app.SettingsModule.Close())
	}
	if app.EventBus != nil {
		if err := app.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	err := errors.Join(errs...)
	if logger != nil {
		if err != nil {
			logger.ErrorContext(ctx, "Shutdown finished with errors", attr.Error(err))
		} else {
			logger.InfoContext(ctx, "Application shut down")
		}
	}
	return err
}
