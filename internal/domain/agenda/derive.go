// Package agenda merges per-calendar events into the views shown on the dashboard.
package agenda

import (
	"sort"
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// Predicate selects events for a view.
type Predicate func(model.Event) bool

// Options control Derive.
type Options struct {
	// Filter is optional; nil keeps every event.
	Filter Predicate
	// N caps a non-empty filtered result; zero or less means no cap.
	N int
	// NIfFilteredEmpty is how many unfiltered events to show when Filter matches nothing.
	NIfFilteredEmpty int
	// Location resolves all-day boundaries; nil means time.Local.
	Location *time.Location
}

// Derive flattens set in calendar order and applies opts.
func Derive(calendars []model.CalendarSource, set *EventSet, opts Options) []model.Event {
	return DeriveEvents(set.Flatten(calendars), opts)
}

// DeriveEvents filters, truncates and sorts events. When the filter leaves
// nothing, the first NIfFilteredEmpty input events are used instead.
// The input slice is not modified.
func DeriveEvents(events []model.Event, opts Options) []model.Event {
	var out []model.Event
	if opts.Filter == nil {
		out = append(out, events...)
	} else {
		for _, e := range events {
			if opts.Filter(e) {
				out = append(out, e)
			}
		}
	}

	if len(out) == 0 {
		n := min(max(opts.NIfFilteredEmpty, 0), len(events))
		out = append(out, events[:n]...)
	} else if opts.N > 0 && len(out) > opts.N {
		out = out[:opts.N]
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Instant(loc).Before(out[j].Start.Instant(loc))
	})
	return out
}

// And combines predicates; nil entries are ignored.
func And(preds ...Predicate) Predicate {
	return func(e model.Event) bool {
		for _, p := range preds {
			if p != nil && !p(e) {
				return false
			}
		}
		return true
	}
}
