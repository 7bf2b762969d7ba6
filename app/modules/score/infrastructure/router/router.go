package scorerouter

import (
	"context"
	"log/slog"

	"github.com/Black-And-White-Club/levelbot/app/events"
	scorehandlers "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/handlers"
	"github.com/Black-And-White-Club/levelbot/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"
)

// ScoreRouter registers the score module's handlers on the shared router.
type ScoreRouter struct {
	logger     *slog.Logger
	Router     *message.Router
	subscriber message.Subscriber
	publisher  message.Publisher
	tracer     trace.Tracer
}

// NewScoreRouter creates a new ScoreRouter.
func NewScoreRouter(
	logger *slog.Logger,
	router *message.Router,
	subscriber message.Subscriber,
	publisher message.Publisher,
	tracer trace.Tracer,
) *ScoreRouter {
	return &ScoreRouter{
		logger:     logger,
		Router:     router,
		subscriber: subscriber,
		publisher:  publisher,
		tracer:     tracer,
	}
}

// Configure registers every score handler.
func (r *ScoreRouter) Configure(ctx context.Context, handlers scorehandlers.Handlers) error {
	deps := handlerDeps{
		router:     r.Router,
		subscriber: r.subscriber,
		publisher:  r.publisher,
		logger:     r.logger,
		tracer:     r.tracer,
	}

	registerHandler(deps, events.MessageCreatedV1, handlers.HandleMessageCreated)
	registerHandler(deps, events.ReactionAddedV1, handlers.HandleReactionAdded)

	r.logger.InfoContext(ctx, "Score handlers registered")
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
	handlerName := "score." + topic

	deps.router.AddHandler(
		handlerName,
		topic,
		deps.subscriber,
		"", // published messages carry their topic in metadata
		deps.publisher,
		handlerwrapper.WrapTransformingTyped(handlerName, deps.logger, deps.tracer, handler),
	)
}
