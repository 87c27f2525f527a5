// Package golemio fetches Prague public transit data from the Golemio API.
package golemio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
)

const (
	departureBoardsPath = "pid/departureboards"
	routesPath          = "gtfs/routes"
	alertsJSONPath      = "vehiclepositions/gtfsrt/alerts.json"
	alertsProtoPath     = "vehiclepositions/gtfsrt/alerts.pb"
	defaultTimeout      = 15 * time.Second
	maxErrorBody        = 256
)

// Client is a Golemio API client.
type Client struct {
	base         *url.URL
	apiKey       string
	http         *http.Client
	alertsFormat string
	now          func() time.Time
	logger       logger.Logger
}

// NewClient creates a client rooted at baseURL, authenticating with apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("golemio base url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := &Client{
		base:         u,
		apiKey:       apiKey,
		http:         &http.Client{Timeout: defaultTimeout},
		alertsFormat: FormatJSON,
		now:          time.Now,
		logger:       logger.Get().Named("golemio"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// DepartureBoard fetches upcoming departures for the stop named stop.
func (c *Client) DepartureBoard(ctx context.Context, stop string) (model.DepartureBoard, error) {
	var payload boardPayload
	if err := c.getJSON(ctx, departureBoardsPath, url.Values{"names": {stop}}, &payload); err != nil {
		return model.DepartureBoard{}, err
	}

	board := model.DepartureBoard{
		StopName:   stop,
		Departures: make([]model.Departure, 0, len(payload.Departures)),
		Infotexts:  make([]model.Infotext, 0, len(payload.Infotexts)),
		FetchedAt:  c.now(),
	}
	for _, p := range payload.Departures {
		d, ok := p.toModel()
		if !ok {
			c.logger.Debug(ctx, "skipping departure without schedule", logger.String("stop", stop))
			continue
		}
		board.Departures = append(board.Departures, d)
	}
	for _, it := range payload.Infotexts {
		board.Infotexts = append(board.Infotexts, it.toModel())
	}
	return board, nil
}

// Routes fetches the GTFS route list.
func (c *Client) Routes(ctx context.Context) ([]model.Route, error) {
	var payload []routePayload
	if err := c.getJSON(ctx, routesPath, nil, &payload); err != nil {
		return nil, err
	}
	routes := make([]model.Route, 0, len(payload))
	for _, p := range payload {
		r := p.toModel()
		if r.ID == "" || r.ShortName == "" {
			continue
		}
		routes = append(routes, r)
	}
	return routes, nil
}

// Alerts fetches the GTFS-RT service alert feed.
func (c *Client) Alerts(ctx context.Context) ([]model.Alert, error) {
	path := alertsJSONPath
	if c.alertsFormat == FormatProtobuf {
		path = alertsProtoPath
	}
	body, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	feed, err := decodeFeed(body, c.alertsFormat)
	if err != nil {
		return nil, err
	}
	return alertsFromFeed(feed), nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w: %s: %w", ErrFetch, ErrDecode, path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	req.Header.Set("x-access-token", c.apiKey)
	req.Header.Set("Accept", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrFetch, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrFetch, path, err)
	}
	return body, nil
}
