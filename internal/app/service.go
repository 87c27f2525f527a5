// Package service wires the providers, the polling tasks and the derived
// views into one object consumed by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/okian/homedash/internal/adapters/auth"
	"github.com/okian/homedash/internal/adapters/mq/poller"
	"github.com/okian/homedash/internal/adapters/mq/topic"
	"github.com/okian/homedash/internal/adapters/providers/gcal"
	"github.com/okian/homedash/internal/adapters/providers/golemio"
	"github.com/okian/homedash/internal/adapters/providers/openweather"
	"github.com/okian/homedash/internal/adapters/repository"
	"github.com/okian/homedash/internal/config"
	"github.com/okian/homedash/internal/domain/agenda"
	"github.com/okian/homedash/internal/domain/departures"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/internal/domain/radar"
	"github.com/okian/homedash/pkg/logger"
	"github.com/okian/homedash/pkg/metrics"
)

// Task names and name prefixes.
const (
	TaskCalendars       = "calendars"
	TaskWeatherCurrent  = "weather:current"
	TaskWeatherForecast = "weather:forecast"
	EventsTaskPrefix    = "events:"
	BoardTaskPrefix     = "board:"
)

// Service owns every polling task and the state they publish.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	loc    *time.Location
	now    func() time.Time
	logger logger.Logger

	// Injected or built in Start
	store       repository.Store
	relay       auth.Relay
	calendarSrc CalendarSource
	transitSrc  TransitSource
	weatherSrc  WeatherSource
	closers     []io.Closer

	// Runtime
	auth       *auth.Manager
	supervisor *poller.Supervisor
	reference  *golemio.Reference

	// State
	ignore    agenda.IgnoreList
	calendars *topic.Topic[[]model.CalendarSource]
	selection *agenda.Selection
	events    *agenda.EventSet
	boards    []*boardState
	current   *topic.Topic[model.CurrentWeather]
	forecast  *topic.Topic[model.Forecast]
	radar     *radar.Sequencer

	started bool
	stopped bool
	cancel  context.CancelFunc
}

type boardState struct {
	board *departures.Board
	topic *topic.Topic[model.DepartureBoard]
}

// New constructs a Service from cfg. Nothing runs until Start.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		loc:       cfg.Location(),
		now:       time.Now,
		selection: agenda.NewSelection(),
		events:    agenda.NewEventSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	for _, e := range cfg.Calendar.Ignore {
		s.ignore = append(s.ignore, agenda.IgnoreRule{ID: e.ID, Name: e.Name})
	}
	s.calendars = topic.New[[]model.CalendarSource]("calendars", topic.WithClock[[]model.CalendarSource](s.now))
	s.current = topic.New[model.CurrentWeather]("weather.current", topic.WithClock[model.CurrentWeather](s.now))
	s.forecast = topic.New[model.Forecast]("weather.forecast", topic.WithClock[model.Forecast](s.now))

	for _, b := range cfg.Transit.Boards {
		filters := make([]departures.Filter, 0, len(b.Filters))
		for _, f := range b.Filters {
			filters = append(filters, departures.Filter{
				Label:     f.Label,
				RouteType: model.RouteType(f.RouteType),
				Platform:  f.Platform,
				Route:     f.Route,
				Active:    f.Active,
			})
		}
		s.boards = append(s.boards, &boardState{
			board: departures.NewBoard(b.Name, b.Count, filters),
			topic: topic.New[model.DepartureBoard](BoardTaskPrefix+b.Name, topic.WithClock[model.DepartureBoard](s.now)),
		})
	}

	tmpl := radar.Templates{Image: cfg.Radar.ImageTemplate, Lightning: cfg.Radar.LightningTemplate}
	if tmpl.Image == "" {
		tmpl.Image = radar.DefaultTemplates.Image
	}
	if tmpl.Lightning == "" {
		tmpl.Lightning = radar.DefaultTemplates.Lightning
	}
	s.radar = radar.NewSequencer(
		radar.WithFrameCount(cfg.Radar.Frames),
		radar.WithStep(cfg.Radar.Step),
		radar.WithRefreshInterval(cfg.Radar.Refresh),
		radar.WithAnimationInterval(cfg.Radar.Animation),
		radar.WithTemplates(tmpl),
		radar.WithClock(s.now),
		radar.WithLogger(s.logger.Named("radar")),
	)
	return s
}

// Start builds the missing providers, loads the credential and starts
// every polling task. A stopped Service cannot be started again; build a
// new one with New.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting homedash service...")

	if err := s.buildProviders(ctx); err != nil {
		s.closeAll()
		return err
	}

	s.auth = auth.NewManager(s.store, s.relay,
		auth.WithOAuthClient(s.cfg.Auth.ClientID, s.cfg.Auth.RedirectURL, s.cfg.Auth.Scopes),
		auth.WithRefreshMargin(s.cfg.Auth.RefreshMargin),
		auth.WithHTTPClient(&http.Client{Timeout: s.cfg.Auth.Timeout}),
		auth.WithClock(s.now),
		auth.WithLogger(s.logger.Named("auth")),
	)
	if err := s.auth.Load(ctx); err != nil {
		s.closeAll()
		return fmt.Errorf("load credential: %w", err)
	}

	if s.calendarSrc == nil {
		opts := []gcal.Option{
			gcal.WithWindow(s.cfg.Calendar.LookaheadMonths, s.cfg.Calendar.MaxResults),
			gcal.WithLocation(s.loc),
			gcal.WithClock(s.now),
			gcal.WithLogger(s.logger.Named("gcal")),
		}
		if s.cfg.Calendar.BaseURL != "" {
			opts = append(opts, gcal.WithEndpoint(s.cfg.Calendar.BaseURL))
		}
		cal, err := gcal.NewClient(ctx, s.auth.Client(), opts...)
		if err != nil {
			s.closeAll()
			return err
		}
		s.calendarSrc = cal
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.supervisor = poller.NewSupervisor(runCtx, poller.WithSupervisorLogger(s.logger.Named("supervisor")))

	s.reference = golemio.NewReference(s.transitSrc,
		golemio.WithTTL(s.cfg.Transit.ReferenceTTL),
		golemio.WithReferenceLogger(s.logger.Named("reference")),
	)
	go func() {
		if err := s.reference.Warm(runCtx); err != nil {
			s.logger.Warn(runCtx, "reference warm-up incomplete", logger.Error(err))
		}
	}()

	if err := s.addTasks(); err != nil {
		cancel()
		_ = s.supervisor.Stop()
		s.closeAll()
		return err
	}
	go s.watchCredential(runCtx)

	s.started = true
	s.logger.Info(ctx, "homedash service started",
		logger.Int("boards", len(s.boards)),
		logger.Bool("authenticated", s.auth.Ready()),
	)
	return nil
}

func (s *Service) buildProviders(ctx context.Context) error {
	if s.store == nil {
		store, err := repository.Open(ctx, s.cfg.Storage.Path,
			repository.WithSecret(s.cfg.Storage.Secret),
			repository.WithLogger(s.logger.Named("repository")),
		)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		s.store = store
		s.closers = append(s.closers, store)
	}
	if s.relay == nil {
		relay, err := auth.NewRelayClient(s.cfg.Auth.RelayURL,
			auth.WithRelayHTTPClient(&http.Client{Timeout: s.cfg.Auth.Timeout}),
			auth.WithRelayLogger(s.logger.Named("relay")),
		)
		if err != nil {
			return err
		}
		s.relay = relay
	}
	if s.transitSrc == nil {
		client, err := golemio.NewClient(s.cfg.Transit.BaseURL, s.cfg.Transit.APIKey,
			golemio.WithAlertsFormat(s.cfg.Transit.AlertsFormat),
			golemio.WithClock(s.now),
			golemio.WithLogger(s.logger.Named("golemio")),
		)
		if err != nil {
			return err
		}
		s.transitSrc = client
	}
	if s.weatherSrc == nil {
		client, err := openweather.NewClient(s.cfg.Weather.BaseURL, s.cfg.Weather.APIKey,
			s.cfg.Weather.Lat, s.cfg.Weather.Lon,
			openweather.WithUnits(s.cfg.Weather.Units),
			openweather.WithLogger(s.logger.Named("openweather")),
		)
		if err != nil {
			return err
		}
		s.weatherSrc = client
	}
	return nil
}

func (s *Service) taskOptions() []poller.Option {
	return []poller.Option{
		poller.WithLogger(s.logger.Named("poller")),
		poller.WithClock(s.now),
	}
}

func (s *Service) addTasks() error {
	runners := []poller.Runner{
		poller.NewTask[[]model.CalendarSource](TaskCalendars, s.cfg.Calendar.ListInterval, s.fetchCalendars, calendarListSink{s: s}, s.taskOptions()...),
		poller.NewTask[model.CurrentWeather](TaskWeatherCurrent, s.cfg.Weather.Interval, s.weatherSrc.Current, s.current, s.taskOptions()...),
		poller.NewTask[model.Forecast](TaskWeatherForecast, s.cfg.Weather.Interval, s.weatherSrc.Forecast, s.forecast, s.taskOptions()...),
		s.radar,
	}
	for _, b := range s.boards {
		stop := b.board.Name()
		fetch := func(ctx context.Context) (model.DepartureBoard, error) {
			return s.transitSrc.DepartureBoard(ctx, stop)
		}
		runners = append(runners, poller.NewTask[model.DepartureBoard](BoardTaskPrefix+stop, s.cfg.Transit.PollInterval, fetch, b.topic, s.taskOptions()...))
	}
	for _, r := range runners {
		if err := s.supervisor.Add(r); err != nil {
			return fmt.Errorf("add task %s: %w", r.Name(), err)
		}
	}
	return nil
}

// watchCredential triggers the calendar list when a credential first
// appears or its subject changes.
func (s *Service) watchCredential(ctx context.Context) {
	var subject string
	ready := s.auth.Ready()
	if cred, ok := s.auth.Credential(); ok {
		subject = cred.Subject
	}
	for snap := range s.auth.Subscribe(ctx) {
		if !snap.HasValue {
			continue
		}
		if ready && snap.Value.Subject == subject {
			continue
		}
		ready, subject = true, snap.Value.Subject
		s.logger.Info(ctx, "credential available, refreshing calendars", logger.String("subject", subject))
		if r, ok := s.supervisor.Get(TaskCalendars); ok {
			r.Trigger()
		}
	}
}

// Stop halts every task and releases owned resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping homedash service...")

	if err := s.supervisor.Stop(); err != nil {
		s.logger.Warn(ctx, "supervisor stop", logger.Error(err))
	}
	s.cancel()
	_ = s.auth.Close()
	s.closeAll()

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "homedash service stopped")
}

func (s *Service) closeAll() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.logger.Warn(context.Background(), "close resource", logger.Error(err))
		}
	}
	s.closers = nil
}

// Auth exposes the token manager; nil before Start.
func (s *Service) Auth() *auth.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.auth
}

func (s *Service) runtime() (*auth.Manager, *poller.Supervisor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.auth, s.supervisor, nil
}

// Statuses reports every task.
func (s *Service) Statuses() []poller.Status {
	_, sup, err := s.runtime()
	if err != nil {
		return nil
	}
	return sup.Statuses()
}

// Trigger runs the named task immediately.
func (s *Service) Trigger(name string) error {
	_, sup, err := s.runtime()
	if err != nil {
		return err
	}
	r, ok := sup.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	r.Trigger()
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": started,
		"boards":  len(s.boards),
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystemMemoryUsage(mem.HeapAlloc)
	metrics.UpdateSystemGoroutineCount(goroutines)
	stats["goroutines"] = goroutines
	stats["heapBytes"] = mem.HeapAlloc

	if started {
		stats["tasks"] = s.Statuses()
		stats["authenticated"] = s.auth.Ready()
		stats["reference"] = s.referenceData().Loaded()
	}
	return stats
}
