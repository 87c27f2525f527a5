package service

import "errors"

var (
	// ErrNotStarted is returned by operations that need Start to have run.
	ErrNotStarted = errors.New("service not started")
	// ErrStopped is returned by Start after Stop. A Service runs once.
	ErrStopped = errors.New("service stopped")
	// ErrUnknownView is returned for an unsupported agenda view name.
	ErrUnknownView = errors.New("unknown agenda view")
	// ErrUnknownTask is returned when triggering a task that does not exist.
	ErrUnknownTask = errors.New("unknown task")
)
