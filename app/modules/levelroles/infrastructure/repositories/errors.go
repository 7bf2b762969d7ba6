package levelrolesdb

import "errors"

// ErrNoRowsAffected indicates a DELETE matched no rows.
var ErrNoRowsAffected = errors.New("no rows affected")
