package agenda

import (
	"fmt"
	"sort"
	"sync"

	"github.com/okian/homedash/internal/domain/model"
)

// Selection is the set of calendars currently toggled on for multi-calendar views.
// It is independent of the ignore list.
type Selection struct {
	mu    sync.RWMutex
	known map[string]bool
	on    map[string]bool
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{
		known: make(map[string]bool),
		on:    make(map[string]bool),
	}
}

// Sync aligns the selection with the current calendar list. Calendars seen
// for the first time start enabled when marked selected by the provider, or
// when the provider marks none of them. Vanished calendars are forgotten.
func (s *Selection) Sync(calendars []model.CalendarSource) {
	anySelected := false
	for _, c := range calendars {
		if c.Selected {
			anySelected = true
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[string]bool, len(calendars))
	for _, c := range calendars {
		present[c.ID] = true
		if s.known[c.ID] {
			continue
		}
		s.known[c.ID] = true
		if c.Selected || !anySelected {
			s.on[c.ID] = true
		}
	}
	for id := range s.known {
		if !present[id] {
			delete(s.known, id)
			delete(s.on, id)
		}
	}
}

// Toggle flips calID and returns its new state.
func (s *Selection) Toggle(calID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known[calID] {
		return false, fmt.Errorf("%w: %s", ErrUnknownCalendar, calID)
	}
	if s.on[calID] {
		delete(s.on, calID)
		return false, nil
	}
	s.on[calID] = true
	return true, nil
}

// Enabled reports whether calID is toggled on.
func (s *Selection) Enabled(calID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.on[calID]
}

// IDs returns the enabled calendar ids, sorted.
func (s *Selection) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.on))
	for id := range s.on {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply keeps the calendars that are toggled on, preserving order.
func (s *Selection) Apply(calendars []model.CalendarSource) []model.CalendarSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CalendarSource, 0, len(calendars))
	for _, c := range calendars {
		if s.on[c.ID] {
			out = append(out, c)
		}
	}
	return out
}
