package levelroles

import (
	"context"
	"fmt"

	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	levelroleshandlers "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/handlers"
	levelrolesdb "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/repositories"
	levelrolesrouter "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/router"
	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Module represents the level roles module.
type Module struct {
	LevelRolesService *levelrolesservice.LevelRolesService
	LevelRolesRouter  *levelrolesrouter.LevelRolesRouter
	observability     observability.Observability
}

// NewLevelRolesModule creates the module and subscribes it to XP changes.
// gateway and members may be nil when the bot runs without a platform session.
// levels supplies the ledger level each sync targets.
func NewLevelRolesModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	gateway levelrolesservice.RoleGateway,
	members levelrolesservice.MemberRoleReader,
	levels levelroleshandlers.LevelReader,
	subscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "levelroles.NewLevelRolesModule called")

	repo := levelrolesdb.NewRepository(db)
	svc := levelrolesservice.NewLevelRolesService(repo, gateway, members, obs.Logger, obs.Registry.Roles, obs.Tracer, db)

	lrRouter := levelrolesrouter.NewLevelRolesRouter(obs.Logger, router, subscriber, publisher, obs.Tracer)
	if err := lrRouter.Configure(ctx, levelroleshandlers.NewLevelRolesHandlers(svc, levels, obs.Logger)); err != nil {
		return nil, fmt.Errorf("failed to configure level roles router: %w", err)
	}

	return &Module{
		LevelRolesService: svc,
		LevelRolesRouter:  lrRouter,
		observability:     obs,
	}, nil
}

// Close stops the level roles module.
func (m *Module) Close() error {
	m.observability.Logger.Info("Level roles module stopped")
	return nil
}
