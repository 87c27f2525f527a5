package openweather

import "errors"

// ErrFetch indicates the weather API could not be reached, answered non-2xx
// or sent an unreadable payload.
var ErrFetch = errors.New("openweather fetch failed")
