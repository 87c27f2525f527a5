package agenda_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/homedash/internal/domain/agenda"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func timed(id string, start time.Time, d time.Duration) model.Event {
	return model.Event{
		ID:    id,
		Title: id,
		Start: model.Boundary{DateTime: start},
		End:   model.Boundary{DateTime: start.Add(d)},
	}
}

func allDay(id, date, next string) model.Event {
	return model.Event{
		ID:    id,
		Title: id,
		Start: model.Boundary{Date: date},
		End:   model.Boundary{Date: next},
	}
}

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestIgnoreList(t *testing.T) {
	convey.Convey("Given an ignore list", t, func() {
		calendars := []model.CalendarSource{
			{ID: "a", Summary: "Work"},
			{ID: "b", Summary: "Birthdays"},
			{ID: "c", Summary: "Holidays", SummaryOverride: "Svátky"},
		}

		convey.Convey("When a rule names a calendar", func() {
			list := agenda.IgnoreList{{Name: "Birthdays"}}

			convey.Convey("Then only that calendar is excluded", func() {
				convey.So(list.Filter(calendars[:2]), convey.ShouldResemble, []model.CalendarSource{{ID: "a", Summary: "Work"}})
			})
		})

		convey.Convey("When rules match by id, by name, or by both", func() {
			list := agenda.IgnoreList{{ID: "a"}, {ID: "b", Name: "Birthdays"}, {Name: "Svátky"}}

			convey.Convey("Then every match is excluded", func() {
				convey.So(list.Filter(calendars), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a rule is empty", func() {
			list := agenda.IgnoreList{{}}

			convey.Convey("Then it matches nothing", func() {
				convey.So(list.Filter(calendars), convey.ShouldHaveLength, 3)
			})
		})
	})
}

func TestDerive(t *testing.T) {
	convey.Convey("Given five events across two calendars", t, func() {
		set := agenda.NewEventSet()
		set.Replace("work", []model.Event{
			timed("w1", base.Add(48*time.Hour), time.Hour),
			timed("w2", base.Add(72*time.Hour), time.Hour),
			timed("w3", base.Add(96*time.Hour), time.Hour),
		})
		set.Replace("home", []model.Event{
			timed("h1", base.Add(time.Hour), time.Hour),
			timed("h2", base.Add(5*time.Hour), time.Hour),
		})
		calendars := []model.CalendarSource{{ID: "work"}, {ID: "home"}}
		never := func(model.Event) bool { return false }

		convey.Convey("When the filter matches nothing", func() {
			out := agenda.Derive(calendars, set, agenda.Options{Filter: never, N: 10, NIfFilteredEmpty: 3, Location: time.UTC})

			convey.Convey("Then the first three unfiltered events are shown sorted", func() {
				convey.So(ids(out), convey.ShouldResemble, []string{"w1", "w2", "w3"})
			})
		})

		convey.Convey("When the filter matches more than n", func() {
			out := agenda.Derive(calendars, set, agenda.Options{N: 4, NIfFilteredEmpty: 1, Location: time.UTC})

			convey.Convey("Then the result is capped before sorting", func() {
				convey.So(ids(out), convey.ShouldResemble, []string{"h1", "w1", "w2", "w3"})
			})
		})

		convey.Convey("When filtering by start window", func() {
			out := agenda.Derive(calendars, set, agenda.Options{Filter: agenda.StartsWithin(base, 24*time.Hour), N: 10, Location: time.UTC})

			convey.Convey("Then only events starting within a day remain, ascending", func() {
				convey.So(ids(out), convey.ShouldResemble, []string{"h1", "h2"})
			})
		})

		convey.Convey("When events carry their calendar", func() {
			convey.So(set.Events("work")[0].CalendarID, convey.ShouldEqual, "work")
			convey.So(set.Events("home")[1].CalendarID, convey.ShouldEqual, "home")
		})

		convey.Convey("When a calendar is replaced", func() {
			set.Replace("work", []model.Event{timed("w9", base, time.Hour)})

			convey.Convey("Then its previous entries are gone entirely", func() {
				convey.So(ids(set.Flatten(calendars)), convey.ShouldResemble, []string{"w9", "h1", "h2"})
			})
		})

		convey.Convey("When a calendar fails through its sink", func() {
			boom := errors.New("boom")
			set.For("home").Fail(boom)

			convey.Convey("Then its events are kept and the error recorded", func() {
				convey.So(set.Events("home"), convey.ShouldHaveLength, 2)
				convey.So(errors.Is(set.Err("home"), boom), convey.ShouldBeTrue)
				set.For("home").Publish(nil)
				convey.So(set.Err("home"), convey.ShouldBeNil)
				convey.So(set.Events("home"), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a calendar is dropped", func() {
			before := set.Version()
			set.Drop("work")
			convey.So(ids(set.Flatten(calendars)), convey.ShouldResemble, []string{"h1", "h2"})
			convey.So(set.Version(), convey.ShouldBeGreaterThan, before)
			convey.So(set.UpdatedAt("work").IsZero(), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given all-day and timed events", t, func() {
		prague, _ := time.LoadLocation("Europe/Prague")
		events := []model.Event{
			timed("morning", time.Date(2024, 5, 2, 8, 0, 0, 0, prague), time.Hour),
			allDay("holiday", "2024-05-02", "2024-05-03"),
		}

		convey.Convey("Then the all-day event sorts as local midnight", func() {
			out := agenda.DeriveEvents(events, agenda.Options{Location: prague})
			convey.So(ids(out), convey.ShouldResemble, []string{"holiday", "morning"})
		})

		convey.Convey("Then an empty input stays empty", func() {
			out := agenda.DeriveEvents(nil, agenda.Options{NIfFilteredEmpty: 3})
			convey.So(out, convey.ShouldBeEmpty)
		})
	})
}

func TestPredicates(t *testing.T) {
	convey.Convey("Given a fixed now", t, func() {
		now := base

		convey.Convey("Ongoing includes the start and excludes the end", func() {
			convey.So(agenda.Ongoing(now)(timed("a", now, time.Hour)), convey.ShouldBeTrue)
			convey.So(agenda.Ongoing(now)(timed("b", now.Add(-time.Hour), time.Hour)), convey.ShouldBeFalse)
			convey.So(agenda.Ongoing(now)(timed("c", now.Add(time.Minute), time.Hour)), convey.ShouldBeFalse)
		})

		convey.Convey("ActiveToday covers overlaps and all-day events", func() {
			today := agenda.ActiveToday(now)
			convey.So(today(allDay("d", "2024-05-01", "2024-05-02")), convey.ShouldBeTrue)
			convey.So(today(allDay("e", "2024-04-30", "2024-05-01")), convey.ShouldBeFalse)
			convey.So(today(timed("f", now.Add(-36*time.Hour), 48*time.Hour)), convey.ShouldBeTrue)
			convey.So(today(timed("g", now.Add(13*time.Hour), time.Hour)), convey.ShouldBeFalse)
		})

		convey.Convey("And combines predicates", func() {
			p := agenda.And(agenda.StartsWithin(now, 48*time.Hour), nil, func(e model.Event) bool { return e.ID != "skip" })
			convey.So(p(timed("keep", now.Add(time.Hour), time.Hour)), convey.ShouldBeTrue)
			convey.So(p(timed("skip", now.Add(time.Hour), time.Hour)), convey.ShouldBeFalse)
		})
	})
}

func TestUrgency(t *testing.T) {
	convey.Convey("Given events at various distances", t, func() {
		convey.So(agenda.UrgencyOf(base, timed("past", base.Add(-time.Minute), time.Hour)), convey.ShouldEqual, agenda.UrgencyDanger)
		convey.So(agenda.UrgencyOf(base, timed("soon", base.Add(48*time.Hour), time.Hour)), convey.ShouldEqual, agenda.UrgencyWarning)
		convey.So(agenda.UrgencyOf(base, timed("week", base.Add(5*24*time.Hour), time.Hour)), convey.ShouldEqual, agenda.UrgencyInfo)
		convey.So(agenda.UrgencyOf(base, timed("later", base.Add(10*24*time.Hour), time.Hour)), convey.ShouldEqual, agenda.UrgencyNone)
	})
}

func TestSelection(t *testing.T) {
	convey.Convey("Given a selection", t, func() {
		sel := agenda.NewSelection()

		convey.Convey("When the provider marks some calendars selected", func() {
			sel.Sync([]model.CalendarSource{{ID: "a", Selected: true}, {ID: "b"}})

			convey.Convey("Then only those start enabled", func() {
				convey.So(sel.IDs(), convey.ShouldResemble, []string{"a"})
			})

			convey.Convey("Then toggling flips membership", func() {
				on, err := sel.Toggle("b")
				convey.So(err, convey.ShouldBeNil)
				convey.So(on, convey.ShouldBeTrue)
				on, err = sel.Toggle("a")
				convey.So(err, convey.ShouldBeNil)
				convey.So(on, convey.ShouldBeFalse)
				convey.So(sel.Apply([]model.CalendarSource{{ID: "a"}, {ID: "b"}}), convey.ShouldResemble, []model.CalendarSource{{ID: "b"}})
			})

			convey.Convey("Then unknown calendars cannot be toggled", func() {
				_, err := sel.Toggle("zzz")
				convey.So(errors.Is(err, agenda.ErrUnknownCalendar), convey.ShouldBeTrue)
			})

			convey.Convey("Then a later sync keeps user choices and forgets vanished calendars", func() {
				_, _ = sel.Toggle("a")
				sel.Sync([]model.CalendarSource{{ID: "a", Selected: true}, {ID: "c", Selected: true}})
				convey.So(sel.Enabled("a"), convey.ShouldBeFalse)
				convey.So(sel.IDs(), convey.ShouldResemble, []string{"c"})
			})
		})

		convey.Convey("When no calendar is marked selected", func() {
			sel.Sync([]model.CalendarSource{{ID: "a"}, {ID: "b"}})

			convey.Convey("Then all start enabled", func() {
				convey.So(sel.IDs(), convey.ShouldResemble, []string{"a", "b"})
			})
		})
	})
}
