package poller

import "errors"

// Sentinel kinds for polling errors.
var (
	// ErrNotReady is returned by a fetch whose prerequisites are missing.
	// The invocation counts as skipped and nothing is published.
	ErrNotReady = errors.New("source not ready")

	ErrStopped       = errors.New("task stopped")
	ErrDuplicateTask = errors.New("task already registered")
)
