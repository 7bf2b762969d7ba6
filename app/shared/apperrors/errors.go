// Package apperrors defines the error taxonomy shared across modules.
package apperrors

import (
	"errors"
	"fmt"

	sharedtypes "github.com/Black-And-White-Club/levelbot/app/shared/types"
)

// ValidationError reports a caller-supplied value outside its allowed range.
// Operations returning it have not mutated any state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a failure of the durable store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it is nil or already one.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ErrMemberNotFound reports that the user is no longer a member of the guild.
var ErrMemberNotFound = errors.New("member not found")

// HintManageRoles is the usual cause of a rejected role mutation.
const HintManageRoles = "missing Manage Roles permission or role above bot in hierarchy"

// RoleAction names a platform role mutation.
type RoleAction string

const (
	RoleActionGrant  RoleAction = "grant"
	RoleActionRevoke RoleAction = "revoke"
)

// PlatformActionError reports a failed role grant or revoke on the chat platform.
type PlatformActionError struct {
	GuildID sharedtypes.GuildID
	UserID  sharedtypes.UserID
	RoleID  sharedtypes.RoleID
	Action  RoleAction
	// Hint names the likely misconfiguration, when one can be inferred.
	Hint string
	Err  error
}

func (e *PlatformActionError) Error() string {
	msg := fmt.Sprintf("%s role %s for user %s in guild %s: %v", e.Action, e.RoleID, e.UserID, e.GuildID, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *PlatformActionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStorage reports whether err is or wraps a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
