package scoreservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	scoredb "github.com/Black-And-White-Club/levelbot/app/modules/score/infrastructure/repositories"
	settingsdomain "github.com/Black-And-White-Club/levelbot/app/modules/settings/domain"
	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ScoreService implements the Service interface.
type ScoreService struct {
	repo      scoredb.Repository
	settings  SettingsReader
	cooldowns *CooldownTracker
	publisher message.Publisher
	logger    *slog.Logger
	metrics   observability.ScoreMetrics
	tracer    trace.Tracer
	now       func() time.Time
}

// NewScoreService creates a new ScoreService.
func NewScoreService(
	repo scoredb.Repository,
	settings SettingsReader,
	cooldowns *CooldownTracker,
	publisher message.Publisher,
	logger *slog.Logger,
	metrics observability.ScoreMetrics,
	tracer trace.Tracer,
) *ScoreService {
	return &ScoreService{
		repo:      repo,
		settings:  settings,
		cooldowns: cooldowns,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		now:       time.Now,
	}
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *ScoreService,
	ctx context.Context,
	operationName string,
	guildID sharedtypes.GuildID,
	userID sharedtypes.UserID,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("guild_id", guildID.String()),
		attribute.String("user_id", userID.String()),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, operationName+" triggered",
		attr.String("operation", operationName),
		attr.GuildID(guildID),
		attr.UserID(userID),
		attr.ExtractCorrelationID(ctx),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.GuildID(guildID),
				attr.UserID(userID),
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName)
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.Error(wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName)
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.ExtractCorrelationID(ctx),
			attr.String("operation", operationName),
			attr.GuildID(guildID),
			attr.UserID(userID),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}
	return result, nil
}

// guildSettings loads settings, turning a business failure into an error:
// callers here only ever pass validated guild ids.
func (s *ScoreService) guildSettings(ctx context.Context, guildID sharedtypes.GuildID) (settingsdomain.GuildSettings, error) {
	res, err := s.settings.GetGuildSettings(ctx, guildID)
	if err != nil {
		return settingsdomain.GuildSettings{}, err
	}
	if res.IsFailure() {
		return settingsdomain.GuildSettings{}, *res.Failure
	}
	if !res.IsSuccess() {
		return settingsdomain.GuildSettings{}, apperrors.Storage("settings.get", fmt.Errorf("empty settings result for guild %s", guildID))
	}
	return *res.Success, nil
}
