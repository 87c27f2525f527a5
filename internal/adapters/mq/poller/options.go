package poller

import (
	"time"

	"github.com/okian/homedash/pkg/logger"
)

type options struct {
	logger    logger.Logger
	dropStale bool
	now       func() time.Time
}

func defaultOptions() options {
	return options{
		dropStale: true,
		now:       time.Now,
	}
}

// Option configures a Task.
type Option func(*options)

// WithLogger sets a custom logger for the task.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOutOfOrderDrop controls whether a response older than the newest
// applied one is discarded. Enabled by default.
func WithOutOfOrderDrop(enabled bool) Option {
	return func(o *options) {
		o.dropStale = enabled
	}
}

// WithClock overrides the clock used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets a custom logger for the supervisor.
func WithSupervisorLogger(l logger.Logger) SupervisorOption {
	return func(s *Supervisor) {
		if l != nil {
			s.logger = l
		}
	}
}
