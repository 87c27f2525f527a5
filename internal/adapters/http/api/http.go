// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/homedash/internal/adapters/auth"
	service "github.com/okian/homedash/internal/app"
	"github.com/okian/homedash/internal/domain/agenda"
	"github.com/okian/homedash/internal/domain/departures"
	"github.com/okian/homedash/internal/domain/radar"
	"github.com/okian/homedash/pkg/logger"
)

// Dependencies required by HTTP handlers. Each handler only sees the
// subset it needs.
type Dependencies interface {
	AuthDependencies
	CalendarDependencies
	TransitDependencies
	WeatherDependencies
	TaskDependencies
	StatsProvider
}

// Server wires HTTP routes for the dashboard API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	authHandler     *AuthHandler
	calendarHandler *CalendarHandler
	transitHandler  *TransitHandler
	weatherHandler  *WeatherHandler
	taskHandler     *TaskHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		authHandler:     NewAuthHandler(deps),
		calendarHandler: NewCalendarHandler(deps),
		transitHandler:  NewTransitHandler(deps),
		weatherHandler:  NewWeatherHandler(deps),
		taskHandler:     NewTaskHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", MetricsMiddleware(s.authHandler.HandleLogin, "auth_login")).Methods(http.MethodGet)
	r.HandleFunc("/auth/callback", MetricsMiddleware(s.authHandler.HandleCallback, "auth_callback")).Methods(http.MethodGet)

	r.HandleFunc("/api/auth", MetricsMiddleware(s.authHandler.HandleStatus, "auth")).Methods(http.MethodGet)

	r.HandleFunc("/api/calendars", MetricsMiddleware(s.calendarHandler.HandleList, "calendars")).Methods(http.MethodGet)
	r.HandleFunc("/api/calendars/{id}/toggle", MetricsMiddleware(s.calendarHandler.HandleToggle, "calendar_toggle")).Methods(http.MethodPost)
	r.HandleFunc("/api/agenda", MetricsMiddleware(s.calendarHandler.HandleAgenda, "agenda")).Methods(http.MethodGet)

	r.HandleFunc("/api/boards", MetricsMiddleware(s.transitHandler.HandleList, "boards")).Methods(http.MethodGet)
	r.HandleFunc("/api/boards/{name}", MetricsMiddleware(s.transitHandler.HandleGet, "board")).Methods(http.MethodGet)
	r.HandleFunc("/api/boards/{name}/filters/clear", MetricsMiddleware(s.transitHandler.HandleClear, "board_filters_clear")).Methods(http.MethodPost)
	r.HandleFunc("/api/boards/{name}/filters/{index:[0-9]+}/toggle", MetricsMiddleware(s.transitHandler.HandleToggle, "board_filter_toggle")).Methods(http.MethodPost)

	r.HandleFunc("/api/weather", MetricsMiddleware(s.weatherHandler.HandleWeather, "weather")).Methods(http.MethodGet)
	r.HandleFunc("/api/radar", MetricsMiddleware(s.weatherHandler.HandleRadar, "radar")).Methods(http.MethodGet)
	r.HandleFunc("/api/radar/frames/{index:[0-9]+}", MetricsMiddleware(s.weatherHandler.HandleJump, "radar_jump")).Methods(http.MethodPost)
	r.HandleFunc("/api/radar/animate", MetricsMiddleware(s.weatherHandler.HandleAnimate, "radar_animate")).Methods(http.MethodPost)

	r.HandleFunc("/api/tasks", MetricsMiddleware(s.taskHandler.HandleList, "tasks")).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{name}/trigger", MetricsMiddleware(s.taskHandler.HandleTrigger, "task_trigger")).Methods(http.MethodPost)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps domain sentinels to a status and code.
func writeFailure(r *http.Request, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrUnknownView),
		errors.Is(err, departures.ErrFilterIndex),
		errors.Is(err, radar.ErrFrameIndex),
		errors.Is(err, auth.ErrInvalidState):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, departures.ErrUnknownBoard),
		errors.Is(err, agenda.ErrUnknownCalendar),
		errors.Is(err, service.ErrUnknownTask):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, auth.ErrAuthFailure), errors.Is(err, auth.ErrNotReady):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrNetwork):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
