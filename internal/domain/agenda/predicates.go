package agenda

import (
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// All-day boundaries are resolved in now's location.

// Ongoing matches events with start <= now < end.
func Ongoing(now time.Time) Predicate {
	loc := now.Location()
	return func(e model.Event) bool {
		start, end := e.Start.Instant(loc), e.End.Instant(loc)
		return !now.Before(start) && now.Before(end)
	}
}

// StartsWithin matches events with now <= start < now+d.
func StartsWithin(now time.Time, d time.Duration) Predicate {
	loc := now.Location()
	limit := now.Add(d)
	return func(e model.Event) bool {
		start := e.Start.Instant(loc)
		return !start.Before(now) && start.Before(limit)
	}
}

// ActiveToday matches events overlapping the local calendar day of now.
func ActiveToday(now time.Time) Predicate {
	loc := now.Location()
	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return func(e model.Event) bool {
		start, end := e.Start.Instant(loc), e.End.Instant(loc)
		if !end.After(start) {
			return !start.Before(dayStart) && start.Before(dayEnd)
		}
		return start.Before(dayEnd) && end.After(dayStart)
	}
}
