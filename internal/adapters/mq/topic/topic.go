// Package topic implements the published-value store consumers subscribe to.
//
// A Topic holds the last known good value of one data source together with
// the most recent error. Publishing never blocks: each subscriber owns a
// one-slot channel and a newer snapshot replaces an unread older one.
package topic

import (
	"context"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of a topic.
type Snapshot[T any] struct {
	Value     T
	HasValue  bool
	UpdatedAt time.Time
	Err       error
	ErrAt     time.Time
	Version   uint64
}

// Topic holds one published value.
type Topic[T any] struct {
	name string
	now  func() time.Time

	mu     sync.RWMutex
	snap   Snapshot[T]
	subs   map[uint64]chan Snapshot[T]
	nextID uint64
	closed bool
}

// Option configures a Topic.
type Option[T any] func(*Topic[T])

// WithClock overrides the timestamp source.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(t *Topic[T]) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates an empty topic.
func New[T any](name string, opts ...Option[T]) *Topic[T] {
	t := &Topic[T]{
		name: name,
		now:  time.Now,
		subs: make(map[uint64]chan Snapshot[T]),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the topic name.
func (t *Topic[T]) Name() string { return t.name }

// Publish stores v as the current value and clears the error.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.snap.Value = v
	t.snap.HasValue = true
	t.snap.UpdatedAt = t.now()
	t.snap.Err = nil
	t.snap.ErrAt = time.Time{}
	t.snap.Version++
	t.broadcastLocked()
}

// PublishIf publishes v only when there is no value yet or changed(old, v) is true.
// It reports whether v was published.
func (t *Topic[T]) PublishIf(v T, changed func(old, new T) bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	if t.snap.HasValue && t.snap.Err == nil && !changed(t.snap.Value, v) {
		return false
	}
	t.snap.Value = v
	t.snap.HasValue = true
	t.snap.UpdatedAt = t.now()
	t.snap.Err = nil
	t.snap.ErrAt = time.Time{}
	t.snap.Version++
	t.broadcastLocked()
	return true
}

// Fail records err and keeps the previous value.
func (t *Topic[T]) Fail(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.snap.Err = err
	t.snap.ErrAt = t.now()
	t.snap.Version++
	t.broadcastLocked()
}

// Snapshot returns the current state.
func (t *Topic[T]) Snapshot() Snapshot[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Subscribe returns a channel receiving snapshots after every change. The
// current state is delivered first when a value or error exists. The channel
// is closed when ctx is done or the topic is closed.
func (t *Topic[T]) Subscribe(ctx context.Context) <-chan Snapshot[T] {
	ch := make(chan Snapshot[T], 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		close(ch)
		return ch
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch
	if t.snap.Version > 0 {
		ch <- t.snap
	}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}()
	return ch
}

// Close closes all subscriber channels. Later publishes are ignored.
func (t *Topic[T]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
	return nil
}

// IsClosed reports whether Close was called.
func (t *Topic[T]) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// broadcastLocked replaces any unread snapshot with the current one.
func (t *Topic[T]) broadcastLocked() {
	for _, ch := range t.subs {
		select {
		case <-ch:
		default:
		}
		ch <- t.snap
	}
}
