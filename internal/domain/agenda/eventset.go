package agenda

import (
	"sync"
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// EventSet holds the latest events of every calendar, keyed by calendar id.
// Each calendar's entries are replaced wholesale.
type EventSet struct {
	mu      sync.RWMutex
	byCal   map[string][]model.Event
	errs    map[string]error
	updated map[string]time.Time
	version uint64
	now     func() time.Time
}

// NewEventSet creates an empty set.
func NewEventSet() *EventSet {
	return &EventSet{
		byCal:   make(map[string][]model.Event),
		errs:    make(map[string]error),
		updated: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Replace sets the events of calID, tagging each with the calendar id.
func (s *EventSet) Replace(calID string, events []model.Event) {
	tagged := make([]model.Event, len(events))
	for i, e := range events {
		e.CalendarID = calID
		tagged[i] = e
	}

	s.mu.Lock()
	s.byCal[calID] = tagged
	delete(s.errs, calID)
	s.updated[calID] = s.now()
	s.version++
	s.mu.Unlock()
}

// Fail records a fetch error for calID and keeps its previous events.
func (s *EventSet) Fail(calID string, err error) {
	s.mu.Lock()
	s.errs[calID] = err
	s.version++
	s.mu.Unlock()
}

// Drop forgets a calendar.
func (s *EventSet) Drop(calID string) {
	s.mu.Lock()
	delete(s.byCal, calID)
	delete(s.errs, calID)
	delete(s.updated, calID)
	s.version++
	s.mu.Unlock()
}

// Events returns a copy of calID's events.
func (s *EventSet) Events(calID string) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Event(nil), s.byCal[calID]...)
}

// Err returns the last fetch error of calID, if any.
func (s *EventSet) Err(calID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[calID]
}

// UpdatedAt returns when calID was last replaced.
func (s *EventSet) UpdatedAt(calID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated[calID]
}

// Version increases on every mutation.
func (s *EventSet) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Flatten concatenates events following the order of calendars. Calendars
// without events contribute nothing.
func (s *EventSet) Flatten(calendars []model.CalendarSource) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Event
	for _, c := range calendars {
		out = append(out, s.byCal[c.ID]...)
	}
	return out
}

// For adapts one calendar's slot to a poller sink.
func (s *EventSet) For(calID string) *CalendarSink {
	return &CalendarSink{set: s, calID: calID}
}

// CalendarSink publishes into one calendar's slot of an EventSet.
type CalendarSink struct {
	set   *EventSet
	calID string
}

// Publish replaces the calendar's events.
func (c *CalendarSink) Publish(events []model.Event) { c.set.Replace(c.calID, events) }

// Fail records a fetch error for the calendar.
func (c *CalendarSink) Fail(err error) { c.set.Fail(c.calID, err) }
