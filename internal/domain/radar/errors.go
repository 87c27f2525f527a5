package radar

import "errors"

// Sentinel errors.
var (
	ErrFrameIndex = errors.New("frame index out of range")
)
