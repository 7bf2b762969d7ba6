package levelrolesservice

import (
	"errors"

	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
)

var (
	// ErrMappingNotFound is the failure returned when deleting an unmapped role.
	ErrMappingNotFound = errors.New("level role mapping not found")

	// ErrPlatformUnavailable is the failure returned by Reconcile without a platform session.
	ErrPlatformUnavailable = errors.New("chat platform session unavailable")

	errMissingGuild = apperrors.NewValidationError("guildId", "is required")
	errMissingUser  = apperrors.NewValidationError("userId", "is required")
)
