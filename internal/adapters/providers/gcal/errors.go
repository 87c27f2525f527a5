package gcal

import "errors"

// ErrFetch indicates a Calendar API call failed.
var ErrFetch = errors.New("calendar fetch failed")
