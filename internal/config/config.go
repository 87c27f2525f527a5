// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New(ctx) builds a Config with defaults; Load(ctx) layers file and env on top.
// - Nested keys use "." in YAML and "__" in environment variables.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Timezone is used for day boundaries (agenda window, all-day events).
	Timezone string `koanf:"timezone"`

	Storage  Storage  `koanf:"storage"`
	Auth     Auth     `koanf:"auth"`
	Calendar Calendar `koanf:"calendar"`
	Transit  Transit  `koanf:"transit"`
	Weather  Weather  `koanf:"weather"`
	Radar    Radar    `koanf:"radar"`
}

// Storage configures the durable key/value store holding the credential.
type Storage struct {
	Path   string `koanf:"path" validate:"required"`
	Secret string `koanf:"secret"`
}

// Auth configures the Google OAuth client and the code-exchange relay.
type Auth struct {
	ClientID      string        `koanf:"client_id" validate:"required"`
	RelayURL      string        `koanf:"relay_url" validate:"required,url"`
	RedirectURL   string        `koanf:"redirect_url"`
	Scopes        []string      `koanf:"scopes"`
	RefreshMargin time.Duration `koanf:"refresh_margin"`
	Timeout       time.Duration `koanf:"timeout"`
}

// IgnoreEntry excludes a calendar by id or by display name.
type IgnoreEntry struct {
	ID   string `koanf:"id" json:"id"`
	Name string `koanf:"name" json:"name"`
}

// Calendar configures the calendar list and event loops.
type Calendar struct {
	BaseURL         string        `koanf:"base_url"`
	ListInterval    time.Duration `koanf:"list_interval" validate:"gt=0"`
	EventsInterval  time.Duration `koanf:"events_interval" validate:"gt=0"`
	LookaheadMonths int           `koanf:"lookahead_months" validate:"gt=0"`
	MaxResults      int64         `koanf:"max_results" validate:"gt=0"`
	Ignore          []IgnoreEntry `koanf:"ignore"`
	// IgnoreJSON carries the ignore list as a JSON array, for environments
	// that cannot express nested lists.
	IgnoreJSON    string `koanf:"ignore_json"`
	ViewLimit     int    `koanf:"view_limit" validate:"gt=0"`
	FallbackLimit int    `koanf:"fallback_limit" validate:"gte=0"`
}

// BoardFilter is one toggleable departure predicate of a board.
type BoardFilter struct {
	Label     string `koanf:"label" validate:"required"`
	RouteType string `koanf:"route_type" validate:"omitempty,oneof=tram metro bus train"`
	Platform  string `koanf:"platform"`
	Route     string `koanf:"route"`
	Active    bool   `koanf:"active"`
}

// Board is one stop's departure board.
type Board struct {
	Name    string        `koanf:"name" validate:"required"`
	Count   int           `koanf:"count" validate:"gt=0"`
	Filters []BoardFilter `koanf:"filters" validate:"dive"`
}

// Transit configures the Golemio client and the boards.
type Transit struct {
	BaseURL      string        `koanf:"base_url" validate:"required,url"`
	APIKey       string        `koanf:"api_key" validate:"required"`
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0"`
	ReferenceTTL time.Duration `koanf:"reference_ttl"`
	AlertsFormat string        `koanf:"alerts_format" validate:"oneof=json protobuf"`
	Boards       []Board       `koanf:"boards" validate:"dive"`
}

// Weather configures the OpenWeatherMap client.
type Weather struct {
	BaseURL  string        `koanf:"base_url" validate:"required,url"`
	APIKey   string        `koanf:"api_key" validate:"required"`
	Units    string        `koanf:"units"`
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
	Lat      float64       `koanf:"lat"`
	Lon      float64       `koanf:"lon"`
}

// Radar configures the radar frame sequencer.
type Radar struct {
	Frames            int           `koanf:"frames" validate:"gt=0"`
	Step              time.Duration `koanf:"step" validate:"gt=0"`
	Refresh           time.Duration `koanf:"refresh" validate:"gt=0"`
	Animation         time.Duration `koanf:"animation" validate:"gt=0"`
	ImageTemplate     string        `koanf:"image_template"`
	LightningTemplate string        `koanf:"lightning_template"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Timezone:  "Europe/Prague",
		Storage: Storage{
			Path: "homedash.db",
		},
		Auth: Auth{
			RelayURL:      "https://app.pecka.me",
			RefreshMargin: 5 * time.Second,
			Timeout:       15 * time.Second,
		},
		Calendar: Calendar{
			ListInterval:    5 * time.Minute,
			EventsInterval:  5 * time.Minute,
			LookaheadMonths: 3,
			MaxResults:      40,
			ViewLimit:       10,
			FallbackLimit:   3,
		},
		Transit: Transit{
			BaseURL:      "https://api.golemio.cz/v2/",
			PollInterval: 10 * time.Second,
			ReferenceTTL: time.Hour,
			AlertsFormat: "json",
		},
		Weather: Weather{
			BaseURL:  "https://api.openweathermap.org/data/2.5/",
			Units:    "metric",
			Interval: 30 * time.Second,
			Lat:      50.0988144,
			Lon:      14.3607961,
		},
		Radar: Radar{
			Frames:            10,
			Step:              10 * time.Minute,
			Refresh:           30 * time.Second,
			Animation:         350 * time.Millisecond,
			ImageTemplate:     "https://radar.bourky.cz/data/pacz2gmaps.z_max3d.%s.0.png",
			LightningTemplate: "https://radar.bourky.cz/data/celdn/pacz2gmaps6.blesk.%s.png",
		},
	}
}

// DefaultBoards returns the boards used when none are configured.
func DefaultBoards() []Board {
	return []Board{
		{
			Name:  "Sídliště Červený Vrch",
			Count: 6,
			Filters: []BoardFilter{
				{Label: "Tram A", RouteType: "tram", Platform: "A", Active: true},
				{Label: "Tram B", RouteType: "tram", Platform: "B"},
			},
		},
		{
			Name:  "Bořislavka",
			Count: 6,
			Filters: []BoardFilter{
				{Label: "Metro 1", RouteType: "metro", Platform: "1", Active: true},
				{Label: "Tram A", RouteType: "tram", Platform: "A", Active: true},
				{Label: "Bus", RouteType: "bus"},
				{Label: "Metro 2", RouteType: "metro", Platform: "2"},
				{Label: "Tram B", RouteType: "tram", Platform: "B"},
			},
		},
		{
			Name:  "Nádraží Veleslavín",
			Count: 7,
		},
	}
}

// DefaultScopes are requested when auth.scopes is empty.
func DefaultScopes() []string {
	return []string{"https://www.googleapis.com/auth/calendar.readonly", "openid", "email"}
}

// Location resolves Timezone, falling back to the process local zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
