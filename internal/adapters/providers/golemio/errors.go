package golemio

import "errors"

var (
	// ErrFetch indicates the API could not be reached or answered non-2xx.
	ErrFetch = errors.New("golemio fetch failed")
	// ErrDecode indicates the API answered with an unexpected payload.
	ErrDecode = errors.New("golemio payload malformed")
)
