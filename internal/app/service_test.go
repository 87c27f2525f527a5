package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/homedash/internal/adapters/auth"
	"github.com/okian/homedash/internal/adapters/repository"
	service "github.com/okian/homedash/internal/app"
	"github.com/okian/homedash/internal/config"
	"github.com/okian/homedash/internal/domain/departures"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type fakeRelay struct{}

func (fakeRelay) Exchange(_ context.Context, code string) (auth.TokenResponse, error) {
	if code != "good" {
		return auth.TokenResponse{}, auth.ErrAuthFailure
	}
	return auth.TokenResponse{
		AccessToken:  "a1",
		RefreshToken: "r1",
		ExpiryDate:   time.Now().Add(time.Hour).UnixMilli(),
	}, nil
}

func (fakeRelay) Refresh(context.Context, string) (auth.TokenResponse, error) {
	return auth.TokenResponse{AccessToken: "a2", ExpiryDate: time.Now().Add(time.Hour).UnixMilli()}, nil
}

type fakeCalendars struct {
	mu     sync.Mutex
	cals   []model.CalendarSource
	events map[string][]model.Event
	listed int
}

func (f *fakeCalendars) Calendars(context.Context) ([]model.CalendarSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed++
	return append([]model.CalendarSource(nil), f.cals...), nil
}

func (f *fakeCalendars) Events(_ context.Context, id string) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Event(nil), f.events[id]...), nil
}

func (f *fakeCalendars) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed
}

type fakeTransit struct {
	boards map[string][]model.Departure
	routes []model.Route
	alerts []model.Alert
}

func (f *fakeTransit) DepartureBoard(_ context.Context, stop string) (model.DepartureBoard, error) {
	deps, ok := f.boards[stop]
	if !ok {
		return model.DepartureBoard{}, errors.New("no such stop")
	}
	return model.DepartureBoard{StopName: stop, Departures: deps, FetchedAt: time.Now()}, nil
}

func (f *fakeTransit) Routes(context.Context) ([]model.Route, error) { return f.routes, nil }
func (f *fakeTransit) Alerts(context.Context) ([]model.Alert, error) { return f.alerts, nil }

type fakeWeather struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeWeather) Current(context.Context) (model.CurrentWeather, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > 1 {
		return model.CurrentWeather{}, errors.New("quota exceeded")
	}
	return model.CurrentWeather{Temperature: 21.5, Condition: model.Condition{Main: "Clear"}}, nil
}

func (f *fakeWeather) Forecast(context.Context) (model.Forecast, error) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return model.Forecast{Entries: []model.ForecastEntry{
		{At: at, TempMin: 10, TempMax: 15},
		{At: at.Add(3 * time.Hour), TempMin: 9, TempMax: 17},
	}}, nil
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func dep(route string, typ model.RouteType, platform string) model.Departure {
	return model.Departure{ScheduledTime: time.Now().Add(5 * time.Minute), RouteShortName: route, RouteType: typ, PlatformCode: platform}
}

func event(id, cal string, start time.Time) model.Event {
	return model.Event{
		ID:         id,
		CalendarID: cal,
		Title:      id,
		Start:      model.Boundary{DateTime: start},
		End:        model.Boundary{DateTime: start.Add(time.Hour)},
	}
}

func testConfig() *config.Config {
	cfg := config.New(context.Background())
	cfg.Timezone = "UTC"
	cfg.Auth.ClientID = "client"
	cfg.Calendar.ListInterval = time.Hour
	cfg.Calendar.EventsInterval = time.Hour
	cfg.Calendar.Ignore = []config.IgnoreEntry{{Name: "Birthdays"}}
	cfg.Transit.PollInterval = time.Hour
	cfg.Weather.Interval = time.Hour
	cfg.Transit.Boards = []config.Board{
		{Name: "A", Count: 5, Filters: []config.BoardFilter{
			{Label: "Tram", RouteType: "tram", Active: true},
			{Label: "Bus", RouteType: "bus"},
		}},
		{Name: "B", Count: 5},
	}
	return cfg
}

func openStore(withCredential bool) *repository.SQLiteStore {
	store, err := repository.Open(context.Background(), ":memory:", repository.WithLogger(logger.Nop()))
	convey.So(err, convey.ShouldBeNil)
	if withCredential {
		raw, _ := json.Marshal(model.Credential{
			AccessToken:   "a0",
			RefreshToken:  "r0",
			ExpiryEpochMs: time.Now().Add(time.Hour).UnixMilli(),
			Subject:       "ann@example.com",
		})
		convey.So(store.Put(context.Background(), model.CredentialKey, raw), convey.ShouldBeNil)
	}
	return store
}

func TestService(t *testing.T) {
	convey.Convey("Given a service with fake providers and a stored credential", t, func() {
		now := time.Now()
		cals := &fakeCalendars{
			cals: []model.CalendarSource{
				{ID: "a", Summary: "Work", Selected: true},
				{ID: "b", Summary: "Birthdays", Selected: true},
			},
			events: map[string][]model.Event{
				"a": {
					event("e5", "a", now.Add(120*time.Hour)),
					event("e1", "a", now.Add(48*time.Hour)),
					event("e4", "a", now.Add(96*time.Hour)),
					event("e2", "a", now.Add(60*time.Hour)),
					event("e3", "a", now.Add(72*time.Hour)),
				},
				"b": {event("bday", "b", now.Add(time.Hour))},
			},
		}
		transit := &fakeTransit{
			boards: map[string][]model.Departure{
				"A": {dep("101", model.RouteTram, "A"), dep("119", model.RouteBus, "B")},
				"B": {dep("22", model.RouteTram, "C")},
			},
			routes: []model.Route{
				{ID: "L101", ShortName: "101", Type: model.RouteTram},
				{ID: "L22", ShortName: "22", Type: model.RouteTram},
			},
			alerts: []model.Alert{{ID: "alert-101", AffectedRouteIDs: []string{"L101"}}},
		}
		weather := &fakeWeather{}
		store := openStore(true)

		svc := service.New(testConfig(),
			service.WithStore(store),
			service.WithRelay(fakeRelay{}),
			service.WithCalendarSource(cals),
			service.WithTransitSource(transit),
			service.WithWeatherSource(weather),
			service.WithLogger(logger.Nop()),
		)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		convey.Reset(func() {
			svc.Stop()
			_ = store.Close()
		})

		convey.Convey("Then ignored calendars are neither published nor polled", func() {
			convey.So(eventually(func() bool { return len(svc.Calendars().Calendars) == 1 }), convey.ShouldBeTrue)
			convey.So(svc.Calendars().Calendars[0].ID, convey.ShouldEqual, "a")
			convey.So(eventually(func() bool {
				for _, st := range svc.Statuses() {
					if st.Name == service.EventsTaskPrefix+"a" {
						return st.Runs > 0
					}
				}
				return false
			}), convey.ShouldBeTrue)
			for _, st := range svc.Statuses() {
				convey.So(st.Name, convey.ShouldNotEqual, service.EventsTaskPrefix+"b")
			}
		})

		convey.Convey("When no event is ongoing", func() {
			convey.So(eventually(func() bool { return svc.Calendars().Calendars[0].Events == 5 }), convey.ShouldBeTrue)
			view, err := svc.Agenda(service.AgendaQuery{View: service.ViewOngoing, Fallback: 3})

			convey.Convey("Then the first three unfiltered events are shown sorted by start", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(view.Events, convey.ShouldHaveLength, 3)
				convey.So(view.Events[0].ID, convey.ShouldEqual, "e1")
				convey.So(view.Events[1].ID, convey.ShouldEqual, "e4")
				convey.So(view.Events[2].ID, convey.ShouldEqual, "e5")
				convey.So(view.Events[0].Calendar, convey.ShouldEqual, "Work")
			})
		})

		convey.Convey("When the only calendar is toggled off", func() {
			convey.So(eventually(func() bool { return len(svc.Calendars().Calendars) == 1 }), convey.ShouldBeTrue)
			on, err := svc.ToggleCalendar("a")
			convey.So(err, convey.ShouldBeNil)
			convey.So(on, convey.ShouldBeFalse)
			view, err := svc.Agenda(service.AgendaQuery{View: service.ViewAll})

			convey.Convey("Then the agenda is empty", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(view.Events, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When an unknown agenda view is requested", func() {
			_, err := svc.Agenda(service.AgendaQuery{View: "yesterday"})

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, service.ErrUnknownView), convey.ShouldBeTrue)
			})
		})

		convey.Convey("Then board filters and alerts apply per board", func() {
			convey.So(eventually(func() bool {
				a, _ := svc.Board("A")
				return len(a.Alerts) == 1
			}), convey.ShouldBeTrue)

			a, err := svc.Board("A")
			convey.So(err, convey.ShouldBeNil)
			convey.So(a.Departures, convey.ShouldHaveLength, 1)
			convey.So(a.Departures[0].RouteShortName, convey.ShouldEqual, "101")
			convey.So(a.Fetched, convey.ShouldEqual, 2)
			convey.So(a.Active, convey.ShouldResemble, []int{0})

			b, err := svc.Board("B")
			convey.So(err, convey.ShouldBeNil)
			convey.So(b.Alerts, convey.ShouldBeEmpty)

			on, err := svc.ToggleBoardFilter("A", 0)
			convey.So(err, convey.ShouldBeNil)
			convey.So(on, convey.ShouldBeFalse)
			a, _ = svc.Board("A")
			convey.So(a.Departures, convey.ShouldHaveLength, 2)

			_, err = svc.ToggleBoardFilter("A", 7)
			convey.So(errors.Is(err, departures.ErrFilterIndex), convey.ShouldBeTrue)
			_, err = svc.Board("Z")
			convey.So(errors.Is(err, departures.ErrUnknownBoard), convey.ShouldBeTrue)
		})

		convey.Convey("When a weather refresh fails", func() {
			convey.So(eventually(func() bool { return svc.Weather().Current != nil }), convey.ShouldBeTrue)
			convey.So(svc.Trigger(service.TaskWeatherCurrent), convey.ShouldBeNil)

			convey.Convey("Then the last good observation is kept next to the error", func() {
				convey.So(eventually(func() bool { return svc.Weather().CurrentError != "" }), convey.ShouldBeTrue)
				w := svc.Weather()
				convey.So(w.Current.Temperature, convey.ShouldEqual, 21.5)
				convey.So(w.CurrentError, convey.ShouldContainSubstring, "quota")
			})
		})

		convey.Convey("Then the forecast is condensed per day", func() {
			convey.So(eventually(func() bool { return len(svc.Weather().Daily) == 1 }), convey.ShouldBeTrue)
			d := svc.Weather().Daily[0]
			convey.So(d.TempMin, convey.ShouldEqual, 9.0)
			convey.So(d.TempMax, convey.ShouldEqual, 17.0)
		})

		convey.Convey("Then the radar exposes a full frame sequence", func() {
			convey.So(eventually(func() bool { return len(svc.Radar().Frames) == 10 }), convey.ShouldBeTrue)
			convey.So(svc.RadarJump(2), convey.ShouldBeNil)
			v := svc.Radar()
			convey.So(v.Cursor, convey.ShouldEqual, 2)
			convey.So(v.Animate, convey.ShouldBeFalse)
			convey.So(svc.RadarToggleAnimate(), convey.ShouldBeTrue)
		})

		convey.Convey("Then stats report the running tasks", func() {
			stats := svc.GetStats()
			convey.So(stats["started"], convey.ShouldEqual, true)
			convey.So(stats["authenticated"], convey.ShouldEqual, true)
			convey.So(svc.AuthStatus().Subject, convey.ShouldEqual, "ann@example.com")
		})
	})
}

func TestServiceLogin(t *testing.T) {
	convey.Convey("Given a service without a credential", t, func() {
		cals := &fakeCalendars{cals: []model.CalendarSource{{ID: "a", Summary: "Work"}}}
		store := openStore(false)
		svc := service.New(testConfig(),
			service.WithStore(store),
			service.WithRelay(fakeRelay{}),
			service.WithCalendarSource(cals),
			service.WithTransitSource(&fakeTransit{}),
			service.WithWeatherSource(&fakeWeather{}),
			service.WithLogger(logger.Nop()),
		)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		convey.Reset(func() {
			svc.Stop()
			_ = store.Close()
		})

		convey.Convey("Then the calendar list is skipped while logged out", func() {
			convey.So(eventually(func() bool {
				for _, st := range svc.Statuses() {
					if st.Name == service.TaskCalendars {
						return st.Skipped > 0
					}
				}
				return false
			}), convey.ShouldBeTrue)
			convey.So(cals.listCalls(), convey.ShouldEqual, 0)
			convey.So(svc.AuthStatus().Ready, convey.ShouldBeFalse)
		})

		convey.Convey("When the user logs in", func() {
			state, url, err := svc.BeginLogin()
			convey.So(err, convey.ShouldBeNil)
			convey.So(url, convey.ShouldContainSubstring, "accounts.google.com")

			status, err := svc.CompleteLogin(context.Background(), state, "good")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the calendar list is fetched without waiting for the next tick", func() {
				convey.So(status.Ready, convey.ShouldBeTrue)
				convey.So(eventually(func() bool { return len(svc.Calendars().Calendars) == 1 }), convey.ShouldBeTrue)
				convey.So(cals.listCalls(), convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When stopped", func() {
			svc.Stop()

			convey.Convey("Then it refuses to start again", func() {
				convey.So(errors.Is(svc.Start(context.Background()), service.ErrStopped), convey.ShouldBeTrue)
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, false)
			})
		})

		convey.Convey("When the login state is forged", func() {
			_, err := svc.CompleteLogin(context.Background(), "forged", "good")

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, auth.ErrInvalidState), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServiceNotStarted(t *testing.T) {
	convey.Convey("Given a service that was never started", t, func() {
		svc := service.New(testConfig(), service.WithLogger(logger.Nop()))

		convey.Convey("Then login operations report it", func() {
			_, _, err := svc.BeginLogin()
			convey.So(errors.Is(err, service.ErrNotStarted), convey.ShouldBeTrue)
			convey.So(svc.AuthStatus().Ready, convey.ShouldBeFalse)
			convey.So(svc.GetStats()["started"], convey.ShouldEqual, false)
		})
	})
}
