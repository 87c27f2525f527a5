package departures

import "errors"

// Sentinel errors.
var (
	ErrFilterIndex  = errors.New("filter index out of range")
	ErrUnknownBoard = errors.New("unknown board")
)
