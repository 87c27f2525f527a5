package service

import (
	"time"

	"github.com/okian/homedash/internal/adapters/auth"
	"github.com/okian/homedash/internal/adapters/repository"
	"github.com/okian/homedash/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source of views and tasks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStore injects the credential store instead of opening storage.path.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithRelay injects the code-exchange relay.
func WithRelay(relay auth.Relay) Option {
	return func(s *Service) {
		s.relay = relay
	}
}

// WithCalendarSource injects the calendar provider.
func WithCalendarSource(src CalendarSource) Option {
	return func(s *Service) {
		s.calendarSrc = src
	}
}

// WithTransitSource injects the transit provider.
func WithTransitSource(src TransitSource) Option {
	return func(s *Service) {
		s.transitSrc = src
	}
}

// WithWeatherSource injects the weather provider.
func WithWeatherSource(src WeatherSource) Option {
	return func(s *Service) {
		s.weatherSrc = src
	}
}
