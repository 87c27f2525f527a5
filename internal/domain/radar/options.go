package radar

import (
	"time"

	"github.com/okian/homedash/pkg/logger"
)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithFrameCount sets how many frames are kept.
func WithFrameCount(n int) Option {
	return func(s *Sequencer) {
		if n > 0 {
			s.count = n
		}
	}
}

// WithStep sets the spacing between frames.
func WithStep(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.step = d
		}
	}
}

// WithRefreshInterval sets how often frames are regenerated.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.refresh = d
		}
	}
}

// WithAnimationInterval sets the cursor period.
func WithAnimationInterval(d time.Duration) Option {
	return func(s *Sequencer) {
		if d > 0 {
			s.animation = d
		}
	}
}

// WithTemplates overrides the image URL patterns.
func WithTemplates(t Templates) Option {
	return func(s *Sequencer) {
		s.templates = t
	}
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}
