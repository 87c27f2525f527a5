package model

import "time"

// Condition describes the weather state.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CurrentWeather is the latest observation.
type CurrentWeather struct {
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    int       `json:"humidity"`
	Pressure    int       `json:"pressure"`
	WindSpeed   float64   `json:"windSpeed"`
	WindDeg     int       `json:"windDeg"`
	Condition   Condition `json:"condition"`
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	ObservedAt  time.Time `json:"observedAt"`
}

// ForecastEntry is one 3-hour forecast slot.
type ForecastEntry struct {
	At                       time.Time `json:"at"`
	Temp                     float64   `json:"temp"`
	TempMin                  float64   `json:"tempMin"`
	TempMax                  float64   `json:"tempMax"`
	Condition                Condition `json:"condition"`
	PrecipitationProbability float64   `json:"pop"`
}

// Forecast is the provider's forecast list.
type Forecast struct {
	Entries []ForecastEntry `json:"entries"`
}
