package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/homedash/internal/adapters/auth"
	"github.com/okian/homedash/internal/adapters/mq/poller"
	"github.com/okian/homedash/internal/domain/agenda"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
)

// Agenda views.
const (
	ViewAll      = "all"
	ViewUpcoming = "upcoming"
	ViewOngoing  = "ongoing"
	ViewToday    = "today"
)

const defaultUpcomingWindow = 24 * time.Hour

// AuthStatus describes the credential without exposing tokens.
type AuthStatus struct {
	Ready   bool       `json:"ready"`
	Subject string     `json:"subject,omitempty"`
	Expiry  *time.Time `json:"expiry,omitzero"`
}

// CalendarView is one calendar with its selection and fetch state.
type CalendarView struct {
	model.CalendarSource
	Name      string    `json:"name"`
	Enabled   bool      `json:"enabled"`
	Events    int       `json:"events"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Error     string    `json:"error,omitempty"`
}

// CalendarsView is the filtered calendar list.
type CalendarsView struct {
	Calendars []CalendarView `json:"calendars"`
	UpdatedAt time.Time      `json:"updatedAt,omitzero"`
	Error     string         `json:"error,omitempty"`
}

// AgendaQuery selects an agenda view. Zero values take configured defaults.
type AgendaQuery struct {
	View     string
	Within   time.Duration
	N        int
	Fallback int
}

// AgendaItem is an event decorated for display.
type AgendaItem struct {
	model.Event
	Calendar string         `json:"calendar"`
	Color    string         `json:"color,omitempty"`
	Urgency  agenda.Urgency `json:"urgency"`
}

// AgendaView is a derived event list.
type AgendaView struct {
	View        string       `json:"view"`
	Events      []AgendaItem `json:"events"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// AuthStatus reports the credential state.
func (s *Service) AuthStatus() AuthStatus {
	m, _, err := s.runtime()
	if err != nil {
		return AuthStatus{}
	}
	cred, ok := m.Credential()
	if !ok {
		return AuthStatus{}
	}
	exp := cred.Expiry()
	return AuthStatus{Ready: true, Subject: cred.Subject, Expiry: &exp}
}

// BeginLogin starts the browser login flow.
func (s *Service) BeginLogin() (state, authURL string, err error) {
	m, _, err := s.runtime()
	if err != nil {
		return "", "", err
	}
	state, authURL = m.BeginLogin()
	return state, authURL, nil
}

// CompleteLogin finishes the browser login flow.
func (s *Service) CompleteLogin(ctx context.Context, state, code string) (AuthStatus, error) {
	m, _, err := s.runtime()
	if err != nil {
		return AuthStatus{}, err
	}
	if _, err := m.CompleteLoginWithState(ctx, state, code); err != nil {
		return AuthStatus{}, err
	}
	return s.AuthStatus(), nil
}

func (s *Service) fetchCalendars(ctx context.Context) ([]model.CalendarSource, error) {
	if !s.auth.Ready() {
		return nil, poller.ErrNotReady
	}
	cals, err := s.calendarSrc.Calendars(ctx)
	if errors.Is(err, auth.ErrNotReady) {
		return nil, poller.ErrNotReady
	}
	if err != nil {
		return nil, err
	}
	return s.ignore.Filter(cals), nil
}

// calendarListSink publishes the calendar list and keeps one events task
// per calendar.
type calendarListSink struct {
	s *Service
}

func (k calendarListSink) Publish(cals []model.CalendarSource) {
	k.s.calendars.Publish(cals)
	k.s.selection.Sync(cals)
	k.s.reconcileEvents(cals)
}

func (k calendarListSink) Fail(err error) {
	k.s.calendars.Fail(err)
}

func (s *Service) reconcileEvents(cals []model.CalendarSource) {
	ids := make([]string, 0, len(cals))
	for _, c := range cals {
		ids = append(ids, c.ID)
	}
	added, removed := s.supervisor.Reconcile(EventsTaskPrefix, ids, func(id string) poller.Runner {
		fetch := func(ctx context.Context) ([]model.Event, error) {
			if !s.auth.Ready() {
				return nil, poller.ErrNotReady
			}
			events, err := s.calendarSrc.Events(ctx, id)
			if errors.Is(err, auth.ErrNotReady) {
				return nil, poller.ErrNotReady
			}
			return events, err
		}
		return poller.NewTask[[]model.Event](EventsTaskPrefix+id, s.cfg.Calendar.EventsInterval, fetch, s.events.For(id), s.taskOptions()...)
	})
	for _, name := range removed {
		s.events.Drop(strings.TrimPrefix(name, EventsTaskPrefix))
	}
	if len(added) > 0 || len(removed) > 0 {
		s.logger.Info(context.Background(), "calendar tasks reconciled",
			logger.Any("added", added),
			logger.Any("removed", removed),
		)
	}
}

// Calendars returns the filtered calendar list with selection state.
func (s *Service) Calendars() CalendarsView {
	snap := s.calendars.Snapshot()
	view := CalendarsView{
		Calendars: make([]CalendarView, 0, len(snap.Value)),
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Err != nil {
		view.Error = snap.Err.Error()
	}
	for _, c := range snap.Value {
		cv := CalendarView{
			CalendarSource: c,
			Name:           c.DisplayName(),
			Enabled:        s.selection.Enabled(c.ID),
			Events:         len(s.events.Events(c.ID)),
			UpdatedAt:      s.events.UpdatedAt(c.ID),
		}
		if err := s.events.Err(c.ID); err != nil {
			cv.Error = err.Error()
		}
		view.Calendars = append(view.Calendars, cv)
	}
	return view
}

// ToggleCalendar flips whether a calendar's events are shown.
func (s *Service) ToggleCalendar(id string) (bool, error) {
	return s.selection.Toggle(id)
}

// Agenda derives an event list for q.
func (s *Service) Agenda(q AgendaQuery) (AgendaView, error) {
	now := s.now().In(s.loc)
	if q.View == "" {
		q.View = ViewUpcoming
	}
	if q.N <= 0 {
		q.N = s.cfg.Calendar.ViewLimit
	}
	if q.Fallback < 0 {
		q.Fallback = 0
	} else if q.Fallback == 0 {
		q.Fallback = s.cfg.Calendar.FallbackLimit
	}

	var pred agenda.Predicate
	switch q.View {
	case ViewAll:
	case ViewUpcoming:
		within := q.Within
		if within <= 0 {
			within = defaultUpcomingWindow
		}
		pred = agenda.StartsWithin(now, within)
	case ViewOngoing:
		pred = agenda.Ongoing(now)
	case ViewToday:
		pred = agenda.ActiveToday(now)
	default:
		return AgendaView{}, fmt.Errorf("%w: %q", ErrUnknownView, q.View)
	}

	cals := s.selection.Apply(s.calendars.Snapshot().Value)
	byID := make(map[string]model.CalendarSource, len(cals))
	for _, c := range cals {
		byID[c.ID] = c
	}
	events := agenda.Derive(cals, s.events, agenda.Options{
		Filter:           pred,
		N:                q.N,
		NIfFilteredEmpty: q.Fallback,
		Location:         s.loc,
	})

	view := AgendaView{View: q.View, Events: make([]AgendaItem, 0, len(events)), GeneratedAt: now}
	for _, e := range events {
		c := byID[e.CalendarID]
		view.Events = append(view.Events, AgendaItem{
			Event:    e,
			Calendar: c.DisplayName(),
			Color:    c.BackgroundColor,
			Urgency:  agenda.UrgencyOf(now, e),
		})
	}
	return view, nil
}
