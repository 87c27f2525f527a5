package service

import (
	"context"

	"github.com/okian/homedash/internal/domain/model"
)

// CalendarSource lists calendars and their events.
type CalendarSource interface {
	Calendars(ctx context.Context) ([]model.CalendarSource, error)
	Events(ctx context.Context, calendarID string) ([]model.Event, error)
}

// TransitSource fetches departure boards and the reference datasets.
type TransitSource interface {
	DepartureBoard(ctx context.Context, stop string) (model.DepartureBoard, error)
	Routes(ctx context.Context) ([]model.Route, error)
	Alerts(ctx context.Context) ([]model.Alert, error)
}

// WeatherSource fetches current conditions and the forecast.
type WeatherSource interface {
	Current(ctx context.Context) (model.CurrentWeather, error)
	Forecast(ctx context.Context) (model.Forecast, error)
}
