package score

import (
	"context"
	"fmt"

	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	scorehandlers "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/handlers"
	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	scorerouter "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/router"
	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// Module represents the score module.
type Module struct {
	ScoreService  *scoreservice.ScoreService
	ScoreRouter   *scorerouter.ScoreRouter
	observability observability.Observability
}

// NewScoreModule creates the score module and registers its handlers on router.
func NewScoreModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	settings scoreservice.SettingsReader,
	cooldowns *scoreservice.CooldownTracker,
	subscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "score.NewScoreModule called")

	repo := scoredb.NewRepository(db)
	svc := scoreservice.NewScoreService(repo, settings, cooldowns, publisher, obs.Logger, obs.Registry.Score, obs.Tracer)

	scoreRouter := scorerouter.NewScoreRouter(obs.Logger, router, subscriber, publisher, obs.Tracer)
	if err := scoreRouter.Configure(ctx, scorehandlers.NewScoreHandlers(svc, obs.Logger)); err != nil {
		return nil, fmt.Errorf("failed to configure score router: %w", err)
	}

	return &Module{
		ScoreService:  svc,
		ScoreRouter:   scoreRouter,
		observability: obs,
	}, nil
}

// Close stops the score module. The shared router is closed by the app.
func (m *Module) Close() error {
	m.observability.Logger.Info("Score module stopped")
	return nil
}
