package settings

import (
	"context"

	settingsservice "github.com/Black-And-White-Club/levelbot/app/modules/settings/application"
	settingsdb "github.com/Black-And-White-Club/levelbot/app/modules/settings/infrastructure/repositories"
	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/uptrace/bun"
)

// Module represents the settings module. It has no event handlers; other
// modules and the admin API call its service directly.
type Module struct {
	SettingsService *settingsservice.SettingsService
	observability   observability.Observability
}

// NewSettingsModule creates a new instance of the settings module.
func NewSettingsModule(ctx context.Context, obs observability.Observability, db *bun.DB) *Module {
	obs.Logger.InfoContext(ctx, "settings.NewSettingsModule called")

	repo := settingsdb.NewRepository(db)
	svc := settingsservice.NewSettingsService(repo, obs.Logger, obs.Registry.Settings, obs.Tracer, db)

	return &Module{
		SettingsService: svc,
		observability:   obs,
	}
}

// Close stops the settings module.
func (m *Module) Close() error {
	m.observability.Logger.Info("Settings module stopped")
	return nil
}
