package service

import (
	"time"

	"github.com/okian/homedash/internal/domain/forecast"
	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/internal/domain/radar"
)

// WeatherView combines current conditions with the forecast.
type WeatherView struct {
	Current           *model.CurrentWeather `json:"current,omitempty"`
	CurrentUpdatedAt  time.Time             `json:"currentUpdatedAt,omitzero"`
	CurrentError      string                `json:"currentError,omitempty"`
	Forecast          []model.ForecastEntry `json:"forecast"`
	Daily             []forecast.Day        `json:"daily"`
	ForecastUpdatedAt time.Time             `json:"forecastUpdatedAt,omitzero"`
	ForecastError     string                `json:"forecastError,omitempty"`
}

// Weather returns the last known weather. A failed refresh keeps the
// previous values and reports the error next to them.
func (s *Service) Weather() WeatherView {
	cur := s.current.Snapshot()
	fc := s.forecast.Snapshot()

	view := WeatherView{
		CurrentUpdatedAt:  cur.UpdatedAt,
		Forecast:          fc.Value.Entries,
		Daily:             forecast.Daily(fc.Value.Entries, s.loc),
		ForecastUpdatedAt: fc.UpdatedAt,
	}
	if cur.HasValue {
		v := cur.Value
		view.Current = &v
	}
	if cur.Err != nil {
		view.CurrentError = cur.Err.Error()
	}
	if fc.Err != nil {
		view.ForecastError = fc.Err.Error()
	}
	return view
}

// Radar returns the frame sequencer state.
func (s *Service) Radar() radar.View {
	return s.radar.View()
}

// RadarJump shows frame i and stops the animation.
func (s *Service) RadarJump(i int) error {
	return s.radar.Jump(i)
}

// RadarToggleAnimate flips the animation and returns the new state.
func (s *Service) RadarToggleAnimate() bool {
	return s.radar.ToggleAnimate()
}
