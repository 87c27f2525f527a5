package agenda

import "errors"

// Sentinel errors.
var (
	ErrUnknownCalendar = errors.New("unknown calendar")
)
