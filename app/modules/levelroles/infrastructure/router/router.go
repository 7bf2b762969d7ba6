package levelrolesrouter

import (
	"context"
	"log/slog"

	"github.com/Black-And-White-Club/levelbot/app/events"
	levelroleshandlers "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/handlers"
	"github.com/Black-And-White-Club/levelbot/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// LevelRolesRouter registers the level roles module's handlers on the shared router.
type LevelRolesRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
}

// NewLevelRolesRouter creates a new LevelRolesRouter.
func NewLevelRolesRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
) *LevelRolesRouter {
	return &LevelRolesRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		tracer:     tracer,
	}
}

// Configure registers every level roles handler.
func (r *LevelRolesRouter) Configure(ctx context.Context, handlers levelroleshandlers.Handlers) error {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	registerHandler(deps, events.XPChangedV1, handlers.HandleXPChanged)

	r.logger.InfoContext(ctx, "Level roles handlers registered")
	return nil
}

type handlerDeps struct {
	router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

// registerHandler registers a transformation-pattern handler with a typed payload.
func registerHandler[T any](
	deps handlerDeps,
	topic string,
	handler func(context.Context, *T) ([]handlerwrapper.Result, error),
) {
	handlerName := "levelroles." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"", // published messages carry their topic in metadata
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(handlerName, deps.logger, deps.tracer, handler),
	)
}
