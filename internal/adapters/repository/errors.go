package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound = errors.New("key not found")
	ErrSealed   = errors.New("value is sealed and cannot be opened")
)
