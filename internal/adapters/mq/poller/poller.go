// Package poller runs recurring fetches and publishes their results.
//
// A Task invokes its fetch immediately and then on every tick until stopped.
// Invocations are not serialized: a slow fetch does not delay the next tick.
// Each invocation carries a sequence number so a response that completes
// after a newer one has been applied is dropped instead of overwriting it.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/homedash/pkg/logger"
	"github.com/okian/homedash/pkg/metrics"
)

// Sink receives fetch outcomes.
type Sink[T any] interface {
	Publish(v T)
	Fail(err error)
}

// FetchFunc produces the next value of a source.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Runner is the type-erased view of a Task used by the Supervisor.
type Runner interface {
	Name() string
	Run(ctx context.Context) error
	Stop()
	Trigger()
	Status() Status
}

// Status summarizes a task for diagnostics.
type Status struct {
	Name        string        `json:"name"`
	Interval    time.Duration `json:"interval"`
	Runs        uint64        `json:"runs"`
	Failures    uint64        `json:"failures"`
	Skipped     uint64        `json:"skipped"`
	Stale       uint64        `json:"stale"`
	LastRun     time.Time     `json:"lastRun"`
	LastSuccess time.Time     `json:"lastSuccess"`
	LastError   string        `json:"lastError,omitempty"`
	Stopped     bool          `json:"stopped"`
}

// Task polls one source on a fixed interval.
type Task[T any] struct {
	name     string
	interval time.Duration
	fetch    FetchFunc[T]
	sink     Sink[T]
	opts     options
	logger   logger.Logger

	issued atomic.Uint64

	mu      sync.Mutex
	applied uint64
	stopped bool
	status  Status

	trigger  chan struct{}
	shutdown chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// DefaultInterval replaces a non-positive task interval.
const DefaultInterval = time.Minute

// NewTask creates a task. It does nothing until Run or Start is called.
func NewTask[T any](name string, interval time.Duration, fetch FetchFunc[T], sink Sink[T], opts ...Option) *Task[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("poller")
	}
	if interval <= 0 {
		o.logger.Warn(context.Background(), "non-positive interval, using default",
			logger.String("task", name),
			logger.Duration("interval", interval),
			logger.Duration("default", DefaultInterval))
		interval = DefaultInterval
	}

	return &Task[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		sink:     sink,
		opts:     o,
		logger:   o.logger.With(logger.String("task", name)),
		status:   Status{Name: name, Interval: interval},
		trigger:  make(chan struct{}, 1),
		shutdown: make(chan struct{}),
	}
}

// Name returns the task name.
func (t *Task[T]) Name() string { return t.name }

// Start runs the task in a background goroutine.
func (t *Task[T]) Start(ctx context.Context) {
	go func() { _ = t.Run(ctx) }()
}

// Run fires the fetch immediately and then every interval. It blocks until
// ctx is done or Stop is called. Fetches receive ctx, so Stop does not
// cancel requests already in flight.
func (t *Task[T]) Run(ctx context.Context) error {
	if !t.started.CompareAndSwap(false, true) {
		return ErrDuplicateTask
	}
	select {
	case <-t.shutdown:
		return nil
	default:
	}

	metrics.AddActiveTasks(1)
	defer metrics.AddActiveTasks(-1)

	t.logger.Debug(ctx, "task started", logger.Duration("interval", t.interval))
	go t.invoke(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.markStopped()
			return nil
		case <-t.shutdown:
			return nil
		case <-ticker.C:
			go t.invoke(ctx)
		case <-t.trigger:
			go t.invoke(ctx)
		}
	}
}

// Trigger requests an immediate out-of-band invocation.
func (t *Task[T]) Trigger() {
	select {
	case t.trigger <- struct{}{}:
	default:
	}
}

// Stop halts future ticks. Results of in-flight fetches are discarded.
func (t *Task[T]) Stop() {
	t.stopOnce.Do(func() {
		t.markStopped()
		close(t.shutdown)
	})
}

// Status returns a copy of the task's counters.
func (t *Task[T]) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Task[T]) markStopped() {
	t.mu.Lock()
	t.stopped = true
	t.status.Stopped = true
	t.mu.Unlock()
}

// invoke performs one fetch and applies its outcome.
func (t *Task[T]) invoke(ctx context.Context) {
	seq := t.issued.Add(1)
	start := time.Now()
	v, err := t.fetch(ctx)
	metrics.RecordPollLatency(t.name, float64(time.Since(start).Milliseconds()))

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		metrics.RecordPoll(t.name, metrics.OutcomeDropped)
		return
	}
	t.status.LastRun = t.opts.now()

	if errors.Is(err, ErrNotReady) {
		t.status.Skipped++
		metrics.RecordPoll(t.name, metrics.OutcomeSkipped)
		t.logger.Debug(ctx, "source not ready, skipping")
		return
	}

	if t.opts.dropStale && seq < t.applied {
		t.status.Stale++
		metrics.RecordPoll(t.name, metrics.OutcomeStale)
		t.logger.Debug(ctx, "dropping out-of-order response",
			logger.Int64("seq", int64(seq)), //nolint:gosec // sequence numbers stay small
			logger.Int64("applied", int64(t.applied)), //nolint:gosec // sequence numbers stay small
		)
		return
	}
	t.applied = seq
	t.status.Runs++

	if err != nil {
		t.status.Failures++
		t.status.LastError = err.Error()
		metrics.RecordPoll(t.name, metrics.OutcomeFailure)
		t.logger.Error(ctx, "fetch failed",
			logger.String("invocation", uuid.NewString()),
			logger.Error(err),
		)
		t.sink.Fail(err)
		return
	}

	now := t.opts.now()
	t.status.LastSuccess = now
	t.status.LastError = ""
	metrics.RecordPoll(t.name, metrics.OutcomeSuccess)
	metrics.UpdatePollLastSuccess(t.name, now)
	t.sink.Publish(v)
}
