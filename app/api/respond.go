package api

import (
	"encoding/json"
	"errors"
	"net/http"

	levelrolesservice "github.com/Black-And-White-Club/levelbot/app/modules/levelroles/application"
	settingsservice "github.com/Black-And-White-Club/levelbot/app/modules/settings/application"
	"github.com/Black-And-White-Club/levelbot/app/shared/apperrors"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeFailure renders a business failure returned in an OperationResult.
func writeFailure(w http.ResponseWriter, err error) {
	var ve *apperrors.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, levelrolesservice.ErrMappingNotFound),
		errors.Is(err, settingsservice.ErrChannelNotAllowed):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, levelrolesservice.ErrPlatformUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}
