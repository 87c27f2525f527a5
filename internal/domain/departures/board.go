// Package departures holds per-board filtering and alert relevance for transit boards.
package departures

import (
	"fmt"
	"sort"
	"sync"

	"github.com/okian/homedash/internal/domain/model"
)

// Filter is one toggleable departure predicate. A zero criterion is ignored,
// so a filter matches when every criterion it specifies matches.
type Filter struct {
	Label     string
	RouteType model.RouteType
	Platform  string
	Route     string
	Active    bool
}

// Matches reports whether d satisfies every criterion of f.
func (f Filter) Matches(d model.Departure) bool {
	if f.RouteType != "" && d.RouteType != f.RouteType {
		return false
	}
	if f.Platform != "" && d.PlatformCode != f.Platform {
		return false
	}
	if f.Route != "" && d.RouteShortName != f.Route {
		return false
	}
	return true
}

// FilterState is a filter together with its toggle state.
type FilterState struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Active bool   `json:"active"`
}

// Board is one stop's display state: its filters and which are toggled on.
type Board struct {
	name    string
	count   int
	filters []Filter

	mu     sync.RWMutex
	active map[int]bool
}

// NewBoard creates a board whose active set starts as the indices of the
// filters marked Active.
func NewBoard(name string, count int, filters []Filter) *Board {
	b := &Board{
		name:    name,
		count:   count,
		filters: append([]Filter(nil), filters...),
		active:  make(map[int]bool),
	}
	for i, f := range b.filters {
		if f.Active {
			b.active[i] = true
		}
	}
	return b
}

// Name returns the stop name.
func (b *Board) Name() string { return b.name }

// Count returns the display cap.
func (b *Board) Count() int { return b.count }

// Toggle adds or removes filter i from the active set and returns its new state.
func (b *Board) Toggle(i int) (bool, error) {
	if i < 0 || i >= len(b.filters) {
		return false, fmt.Errorf("%w: %d not in [0,%d)", ErrFilterIndex, i, len(b.filters))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active[i] {
		delete(b.active, i)
		return false, nil
	}
	b.active[i] = true
	return true, nil
}

// Clear empties the active set, showing every departure.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = make(map[int]bool)
}

// Active returns the active filter indices, ascending.
func (b *Board) Active() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]int, 0, len(b.active))
	for i := range b.active {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Filters returns every filter with its toggle state.
func (b *Board) Filters() []FilterState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]FilterState, len(b.filters))
	for i, f := range b.filters {
		out[i] = FilterState{Index: i, Label: f.Label, Active: b.active[i]}
	}
	return out
}

// Display keeps departures matching any active filter, or all of them when
// no filter is active, capped at the board count.
func (b *Board) Display(deps []model.Departure) []model.Departure {
	b.mu.RLock()
	active := make([]Filter, 0, len(b.active))
	for i := range b.filters {
		if b.active[i] {
			active = append(active, b.filters[i])
		}
	}
	b.mu.RUnlock()

	out := make([]model.Departure, 0, min(len(deps), max(b.count, 0)))
	for _, d := range deps {
		if b.count > 0 && len(out) >= b.count {
			break
		}
		if len(active) == 0 || matchesAny(active, d) {
			out = append(out, d)
		}
	}
	return out
}

func matchesAny(filters []Filter, d model.Departure) bool {
	for _, f := range filters {
		if f.Matches(d) {
			return true
		}
	}
	return false
}
