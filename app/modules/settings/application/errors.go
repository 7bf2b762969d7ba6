package settingsservice

import "errors"

// ErrChannelNotAllowed is the failure returned when removing a channel that is not in the allow-list.
var ErrChannelNotAllowed = errors.New("channel is not in the command allow-list")
