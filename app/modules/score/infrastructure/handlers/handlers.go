package scorehandlers

import (
	"log/slog"

	scoreservice "github.com/Black-And-White-Club/levelbot/app/modules/score/application"
)

// ScoreHandlers handles inbound platform activity events.
type ScoreHandlers struct {
	service scoreservice.Service
	logger  *slog.Logger
}

// NewScoreHandlers creates a new ScoreHandlers.
func NewScoreHandlers(service scoreservice.Service, logger *slog.Logger) Handlers {
	return &ScoreHandlers{
		service: service,
		logger:  logger,
	}
}
