// Package openweather fetches current conditions and the 5-day forecast from
// OpenWeatherMap.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
)

const (
	weatherPath    = "weather"
	forecastPath   = "forecast"
	defaultUnits   = "metric"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 256
)

// Client is an OpenWeatherMap client for one location.
type Client struct {
	base   *url.URL
	apiKey string
	units  string
	lat    float64
	lon    float64
	http   *http.Client
	logger logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUnits sets the unit system: standard, metric or imperial.
func WithUnits(units string) Option {
	return func(c *Client) {
		if units != "" {
			c.units = units
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the location lat/lon.
func NewClient(baseURL, apiKey string, lat, lon float64, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("openweather base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := &Client{
		base:   u,
		apiKey: apiKey,
		units:  defaultUnits,
		lat:    lat,
		lon:    lon,
		http:   &http.Client{Timeout: defaultTimeout},
		logger: logger.Get().Named("openweather"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type conditionPayload struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type mainPayload struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Pressure  int     `json:"pressure"`
	Humidity  int     `json:"humidity"`
}

type windPayload struct {
	Speed float64 `json:"speed"`
	Deg   int     `json:"deg"`
}

type weatherPayload struct {
	Weather []conditionPayload `json:"weather"`
	Main    mainPayload        `json:"main"`
	Wind    windPayload        `json:"wind"`
	Dt      int64              `json:"dt"`
	Sys     struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type forecastPayload struct {
	List []struct {
		Dt      int64              `json:"dt"`
		Main    mainPayload        `json:"main"`
		Weather []conditionPayload `json:"weather"`
		Pop     float64            `json:"pop"`
	} `json:"list"`
}

func condition(list []conditionPayload) model.Condition {
	if len(list) == 0 {
		return model.Condition{}
	}
	c := list[0]
	return model.Condition{ID: c.ID, Main: c.Main, Description: c.Description, Icon: c.Icon}
}

// Current fetches the current conditions.
func (c *Client) Current(ctx context.Context) (model.CurrentWeather, error) {
	var p weatherPayload
	if err := c.get(ctx, weatherPath, &p); err != nil {
		return model.CurrentWeather{}, err
	}
	return model.CurrentWeather{
		Temperature: p.Main.Temp,
		FeelsLike:   p.Main.FeelsLike,
		Humidity:    p.Main.Humidity,
		Pressure:    p.Main.Pressure,
		WindSpeed:   p.Wind.Speed,
		WindDeg:     p.Wind.Deg,
		Condition:   condition(p.Weather),
		Sunrise:     time.Unix(p.Sys.Sunrise, 0),
		Sunset:      time.Unix(p.Sys.Sunset, 0),
		ObservedAt:  time.Unix(p.Dt, 0),
	}, nil
}

// Forecast fetches the 3-hourly forecast.
func (c *Client) Forecast(ctx context.Context) (model.Forecast, error) {
	var p forecastPayload
	if err := c.get(ctx, forecastPath, &p); err != nil {
		return model.Forecast{}, err
	}
	out := model.Forecast{Entries: make([]model.ForecastEntry, 0, len(p.List))}
	for _, e := range p.List {
		out.Entries = append(out.Entries, model.ForecastEntry{
			At:                       time.Unix(e.Dt, 0),
			Temp:                     e.Main.Temp,
			TempMin:                  e.Main.TempMin,
			TempMax:                  e.Main.TempMax,
			Condition:                condition(e.Weather),
			PrecipitationProbability: e.Pop,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u := c.base.ResolveReference(&url.URL{Path: path})
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.lon, 'f', -1, 64))
	q.Set("units", c.units)
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", ErrFetch, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrFetch, path, err)
	}
	return nil
}
