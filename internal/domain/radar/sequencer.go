package radar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/homedash/internal/adapters/mq/poller"
	"github.com/okian/homedash/internal/adapters/mq/topic"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
)

const (
	defaultFrameCount = 10
	defaultRefresh    = 30 * time.Second
	defaultAnimation  = 350 * time.Millisecond
	lastFrameHold     = 3
	taskName          = "radar"
)

// View is the sequencer state shown to clients.
type View struct {
	Frames  []model.RadarFrame `json:"frames"`
	Cursor  int                `json:"cursor"`
	Current *model.RadarFrame  `json:"current,omitempty"`
	Animate bool               `json:"animate"`
	Bounds  [2][2]float64      `json:"bounds"`
}

// Sequencer regenerates radar frames periodically and advances a cursor
// through them on its own timer.
type Sequencer struct {
	count     int
	step      time.Duration
	refresh   time.Duration
	animation time.Duration
	templates Templates
	now       func() time.Time
	logger    logger.Logger

	frames *topic.Topic[[]model.RadarFrame]
	views  *topic.Topic[View]
	task   *poller.Task[[]model.RadarFrame]

	mu      sync.Mutex
	cursor  int
	animate bool

	shutdown chan struct{}
	stopOnce sync.Once
}

// NewSequencer creates a sequencer with animation enabled.
func NewSequencer(opts ...Option) *Sequencer {
	s := &Sequencer{
		count:     defaultFrameCount,
		step:      Grid,
		refresh:   defaultRefresh,
		animation: defaultAnimation,
		templates: DefaultTemplates,
		now:       time.Now,
		logger:    logger.Get().Named("radar"),
		frames:    topic.New[[]model.RadarFrame]("radar.frames"),
		views:     topic.New[View]("radar.view"),
		animate:   true,
		shutdown:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.task = poller.NewTask(taskName, s.refresh, s.generate, frameSink{s}, poller.WithLogger(s.logger))
	return s
}

// Name identifies the sequencer in a supervisor.
func (s *Sequencer) Name() string { return taskName }

// Refresh regenerates the frames now. It reports whether they changed.
func (s *Sequencer) Refresh() bool {
	frames, _ := s.generate(context.Background())
	return s.apply(frames)
}

// Frames returns the current frame sequence.
func (s *Sequencer) Frames() []model.RadarFrame {
	return s.frames.Snapshot().Value
}

// Run regenerates frames every refresh interval and advances the cursor
// until ctx is done or Stop is called.
func (s *Sequencer) Run(ctx context.Context) error {
	go func() { _ = s.task.Run(ctx) }()
	defer s.task.Stop()

	timer := time.NewTimer(s.delay())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.shutdown:
			return nil
		case <-timer.C:
			s.Advance()
			timer.Reset(s.delay())
		}
	}
}

// Stop halts regeneration and animation.
func (s *Sequencer) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdown)
		s.task.Stop()
	})
}

// Trigger regenerates frames immediately.
func (s *Sequencer) Trigger() { s.task.Trigger() }

// Status reports the regeneration task's counters.
func (s *Sequencer) Status() poller.Status { return s.task.Status() }

// Advance moves the cursor one frame forward, wrapping at the end, when
// animation is on.
func (s *Sequencer) Advance() {
	frames := s.Frames()
	s.mu.Lock()
	if !s.animate || len(frames) == 0 {
		s.mu.Unlock()
		return
	}
	s.cursor = (s.cursor + 1) % len(frames)
	s.mu.Unlock()
	s.publishView()
}

// Jump moves the cursor to frame i and stops the animation.
func (s *Sequencer) Jump(i int) error {
	frames := s.Frames()
	if i < 0 || i >= len(frames) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrFrameIndex, i, len(frames))
	}
	s.mu.Lock()
	s.cursor = i
	s.animate = false
	s.mu.Unlock()
	s.publishView()
	return nil
}

// ToggleAnimate flips the animation flag and returns the new value.
func (s *Sequencer) ToggleAnimate() bool {
	s.mu.Lock()
	s.animate = !s.animate
	on := s.animate
	s.mu.Unlock()
	s.publishView()
	return on
}

// View returns the current state.
func (s *Sequencer) View() View {
	frames := s.Frames()
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Frames:  frames,
		Cursor:  s.cursor,
		Animate: s.animate,
		Bounds:  Bounds,
	}
	if s.cursor < len(frames) {
		cur := frames[s.cursor]
		v.Current = &cur
	}
	return v
}

// Subscribe delivers the view after every change.
func (s *Sequencer) Subscribe(ctx context.Context) <-chan topic.Snapshot[View] {
	return s.views.Subscribe(ctx)
}

// delay is the animation period, held three times as long on the last frame.
func (s *Sequencer) delay() time.Duration {
	n := len(s.Frames())
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 && s.cursor == n-1 {
		return s.animation * lastFrameHold
	}
	return s.animation
}

func (s *Sequencer) generate(context.Context) ([]model.RadarFrame, error) {
	return Frames(s.now(), s.count, s.step, s.templates), nil
}

// apply publishes frames when they differ from the current ones and keeps
// the cursor inside the new range.
func (s *Sequencer) apply(frames []model.RadarFrame) bool {
	changed := s.frames.PublishIf(frames, func(old, next []model.RadarFrame) bool {
		return !Equal(old, next)
	})
	if !changed {
		return false
	}
	s.mu.Lock()
	if s.cursor >= len(frames) {
		s.cursor = max(len(frames)-1, 0)
	}
	s.mu.Unlock()
	s.logger.Debug(context.Background(), "radar frames replaced", logger.Int("frames", len(frames)))
	s.publishView()
	return true
}

func (s *Sequencer) publishView() {
	s.views.Publish(s.View())
}

// frameSink routes poller results through apply.
type frameSink struct{ s *Sequencer }

func (f frameSink) Publish(frames []model.RadarFrame) { f.s.apply(frames) }

func (f frameSink) Fail(err error) {
	f.s.logger.Warn(context.Background(), "radar refresh failed", logger.Error(err))
}
