package levelroleshandlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Black-And-White-Club/levelbot/app/events"
	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/handlerwrapper"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// Handlers defines the level roles module's event handlers.
type Handlers interface {
	HandleXPChanged(ctx context.Context, payload *events.XPChangedPayloadV1) ([]handlerwrapper.Result, error)
}

// LevelReader reports a user's current level from the ledger; the score
// service satisfies it.
type LevelReader interface {
	GetStanding(ctx context.Context, guildID sharedtypes.GuildID, userID sharedtypes.UserID) (scoreservice.StandingResult, error)
}

// LevelRolesHandlers reconciles member roles after XP changes.
type LevelRolesHandlers struct {
	service levelrolesservice.Service
	levels  LevelReader
	logger  *slog.Logger
}

// NewLevelRolesHandlers creates a new LevelRolesHandlers. levels may be nil,
// in which case the level carried by the event is trusted.
func NewLevelRolesHandlers(service levelrolesservice.Service, levels LevelReader, logger *slog.Logger) Handlers {
	return &LevelRolesHandlers{service: service, levels: levels, logger: logger}
}

// HandleXPChanged reconciles the user's roles on every XP change. A same-level
// change still re-runs the sync so failed grants and due grace revocations
// are retried. The level comes from the ledger when a reader is configured,
// since events can arrive out of order.
func (h *LevelRolesHandlers) HandleXPChanged(ctx context.Context, payload *events.XPChangedPayloadV1) ([]handlerwrapper.Result, error) {
	if payload == nil {
		return nil, errors.New("payload is nil")
	}

	level, err := h.currentLevel(ctx, payload)
	if err != nil {
		return nil, err
	}

	result, err := h.service.Reconcile(ctx, payload.GuildID, payload.UserID, level)
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		h.logger.WarnContext(ctx, "Role reconcile not applied",
			attr.ExtractCorrelationID(ctx),
			attr.GuildID(payload.GuildID),
			attr.UserID(payload.UserID),
			attr.Error(*result.Failure),
		)
		return nil, nil
	}

	for _, action := range *result.Success {
		if action.Outcome == levelrolesservice.OutcomeFailed {
			h.logger.WarnContext(ctx, "Role action failed, will retry on next sync",
				attr.ExtractCorrelationID(ctx),
				attr.GuildID(payload.GuildID),
				attr.UserID(payload.UserID),
				attr.RoleID(action.RoleID),
				attr.String("reason", action.Reason),
			)
		}
	}
	return nil, nil
}

func (h *LevelRolesHandlers) currentLevel(ctx context.Context, payload *events.XPChangedPayloadV1) (int64, error) {
	if h.levels == nil {
		return payload.NewLevel, nil
	}
	standing, err := h.levels.GetStanding(ctx, payload.GuildID, payload.UserID)
	if err != nil {
		return 0, err
	}
	if standing.IsFailure() {
		h.logger.WarnContext(ctx, "Level lookup rejected, using event level",
			attr.ExtractCorrelationID(ctx),
			attr.GuildID(payload.GuildID),
			attr.UserID(payload.UserID),
			attr.Error(*standing.Failure),
		)
		return payload.NewLevel, nil
	}
	return standing.Success.Level, nil
}
