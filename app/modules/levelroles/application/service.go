package levelrolesservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	levelrolesdb "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/infrastructure/repositories"
	"github.com/Black-And-White-Club/levelbot/app/observability"
	"github.com/Black-And-White-Club/levelbot/app/shared/attr"
	"github.com/Black-And-White-Club/levelbot/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LevelRolesService implements the Service interface.
type LevelRolesService struct {
	repo    levelrolesdb.Repository
	gateway RoleGateway
	members MemberRoleReader
	logger  *slog.Logger
	metrics observability.RoleMetrics
	tracer  trace.Tracer
	db      *bun.DB
	now     func() time.Time
}

// NewLevelRolesService creates a new LevelRolesService. gateway and members
// may be nil when no platform session is configured; Reconcile then fails
// without touching any state.
func NewLevelRolesService(
	repo levelrolesdb.Repository,
	gateway RoleGateway,
	members MemberRoleReader,
	logger *slog.Logger,
	metrics observability.RoleMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *LevelRolesService {
	return &LevelRolesService{
		repo:    repo,
		gateway: gateway,
		members: members,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		now:     time.Now,
	}
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *LevelRolesService,
	ctx context.Context,
	operationName string,
	guildID sharedtypes.GuildID,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("guild_id", guildID.String()),
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
		attr.ExtractCorrelationID(ctx),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.GuildID(guildID),
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
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}
	return result, nil
}

// runInTx runs fn inside a transaction when the service owns a database handle.
func runInTx[S any, F any](
	s *LevelRolesService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		result, err = fn(ctx, tx)
		return err
	})
	return result, err
}
