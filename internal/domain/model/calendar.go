package model

import "time"

// CalendarSource is one calendar of the signed-in account.
type CalendarSource struct {
	ID              string `json:"id"`
	Summary         string `json:"summary"`
	SummaryOverride string `json:"summaryOverride,omitempty"`
	Selected        bool   `json:"selected"`
	Hidden          bool   `json:"hidden"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
}

// DisplayName prefers the user's override.
func (c CalendarSource) DisplayName() string {
	if c.SummaryOverride != "" {
		return c.SummaryOverride
	}
	return c.Summary
}

// Boundary is either an all-day date or a precise instant, never both.
type Boundary struct {
	Date     string    `json:"date,omitempty"`
	DateTime time.Time `json:"dateTime,omitzero"`
}

// DateLayout is the all-day date format.
const DateLayout = "2006-01-02"

// AllDay reports whether the boundary is a date.
func (b Boundary) AllDay() bool {
	return b.Date != ""
}

// Valid reports whether exactly one kind is populated.
func (b Boundary) Valid() bool {
	return (b.Date != "") != !b.DateTime.IsZero()
}

// Instant returns the effective instant; all-day dates are midnight in loc.
func (b Boundary) Instant(loc *time.Location) time.Time {
	if b.Date == "" {
		return b.DateTime
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, b.Date, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Event is a single calendar entry.
type Event struct {
	ID          string   `json:"id"`
	CalendarID  string   `json:"calendarId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Start       Boundary `json:"start"`
	End         Boundary `json:"end"`
	HTMLLink    string   `json:"htmlLink,omitempty"`
}
