package scorehandlers

import (
	"context"

	"github.com/Black-And-White-Club/levelbot/app/events"
	"github.com/Black-And-White-Club/levelbot/app/shared/handlerwrapper"
)

// Handlers defines the score module's event handlers.
type Handlers interface {
	HandleMessageCreated(ctx context.Context, payload *events.MessageCreatedPayloadV1) ([]handlerwrapper.Result, error)
	HandleReactionAdded(ctx context.Context, payload *events.ReactionAddedPayloadV1) ([]handlerwrapper.Result, error)
}
