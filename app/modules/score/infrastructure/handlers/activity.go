package scorehandlers

import (
	"context"
	"errors"

	"github.com/Black-And-White-Club/levelbot/app/events"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/handlerwrapper"
)

// HandleMessageCreated feeds a guild message into the award pipeline. The
// service publishes any resulting XP change itself, so the handler emits nothing.
func (h *ScoreHandlers) HandleMessageCreated(ctx context.Context, payload *events.MessageCreatedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload is nil")
	}

	result, err := h.service.RecordMessage(ctx, scoreservice.MessageEvent{
		GuildID:   payload.GuildID,
		ChannelID: payload.ChannelID,
		UserID:    payload.UserID,
		IsBot:     payload.IsBot,
		At:        payload.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	h.logOutcome(ctx, "message", result)
	return nil, nil
}

// HandleReactionAdded feeds a reaction addition into the award pipeline.
func (h *ScoreHandlers) HandleReactionAdded(ctx context.Context, payload *events.ReactionAddedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload is nil")
	}

	result, err := h.service.RecordReactionAdd(ctx, scoreservice.ReactionEvent{
		GuildID:   payload.GuildID,
		ChannelID: payload.ChannelID,
		UserID:    payload.UserID,
		IsBot:     payload.IsBot,
		At:        payload.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	h.logOutcome(ctx, "reaction", result)
	return nil, nil
}

func (h *ScoreHandlers) logOutcome(ctx context.Context, kind string, result scoreservice.AwardResult) {
	if result.IsFailure() {
		h.logger.WarnContext(ctx, "Award rejected",
			attr.ExtractCorrelationID(ctx),
			attr.String("kind", kind),
			attr.Error(*result.Failure),
		)
		return
	}
	if result.IsSuccess() && result.Success.LeveledUp() {
		h.logger.InfoContext(ctx, "User leveled up",
			attr.ExtractCorrelationID(ctx),
			attr.String("kind", kind),
			attr.Int64("old_level", result.Success.OldLevel),
			attr.Int64("new_level", result.Success.NewLevel),
		)
	}
}
