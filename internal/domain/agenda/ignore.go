package agenda

import "github.com/okian/homedash/internal/domain/model"

// IgnoreRule excludes a calendar by id or by display name. Empty fields never match.
type IgnoreRule struct {
	ID   string
	Name string
}

// IgnoreList is an ordered set of exclusion rules.
type IgnoreList []IgnoreRule

// Excludes reports whether any rule matches c by id or display name.
func (l IgnoreList) Excludes(c model.CalendarSource) bool {
	name := c.DisplayName()
	for _, r := range l {
		if r.ID != "" && r.ID == c.ID {
			return true
		}
		if r.Name != "" && (r.Name == name || r.Name == c.Summary) {
			return true
		}
	}
	return false
}

// Filter returns the calendars not excluded by the list, preserving order.
func (l IgnoreList) Filter(calendars []model.CalendarSource) []model.CalendarSource {
	out := make([]model.CalendarSource, 0, len(calendars))
	for _, c := range calendars {
		if !l.Excludes(c) {
			out = append(out, c)
		}
	}
	return out
}
