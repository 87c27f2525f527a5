// Package gcal reads calendars and events from the Google Calendar API.
package gcal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/okian/homedash/internal/domain/model"
	"github.com/okian/homedash/pkg/logger"
)

const (
	defaultLookaheadMonths = 3
	defaultMaxResults      = 40
)

// Client lists calendars and their upcoming events.
type Client struct {
	svc             *gcal.Service
	lookaheadMonths int
	maxResults      int64
	loc             *time.Location
	now             func() time.Time
	endpoint        string
	logger          logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithWindow sets how many months ahead events are fetched and the page size.
func WithWindow(months int, maxResults int64) Option {
	return func(c *Client) {
		if months > 0 {
			c.lookaheadMonths = months
		}
		if maxResults > 0 {
			c.maxResults = maxResults
		}
	}
}

// WithLocation sets the zone defining "today".
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
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

// NewClient creates a client. httpClient must attach credentials; the auth
// manager's Client() does.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	c := &Client{
		lookaheadMonths: defaultLookaheadMonths,
		maxResults:      defaultMaxResults,
		loc:             time.Local,
		now:             time.Now,
		logger:          logger.Get().Named("gcal"),
	}
	for _, opt := range opts {
		opt(c)
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(c.endpoint))
	}
	svc, err := gcal.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// Calendars lists every calendar of the account.
func (c *Client) Calendars(ctx context.Context) ([]model.CalendarSource, error) {
	var out []model.CalendarSource
	err := c.svc.CalendarList.List().Pages(ctx, func(page *gcal.CalendarList) error {
		for _, item := range page.Items {
			out = append(out, model.CalendarSource{
				ID:              item.Id,
				Summary:         item.Summary,
				SummaryOverride: item.SummaryOverride,
				Selected:        item.Selected,
				Hidden:          item.Hidden,
				BackgroundColor: item.BackgroundColor,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: calendar list: %w", ErrFetch, err)
	}
	return out, nil
}

// Events lists expanded events of calendarID from the start of today to
// the lookahead horizon, ordered by start.
func (c *Client) Events(ctx context.Context, calendarID string) ([]model.Event, error) {
	now := c.now().In(c.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	to := from.AddDate(0, c.lookaheadMonths, 0)

	resp, err := c.svc.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(c.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: events of %s: %w", ErrFetch, calendarID, err)
	}

	events := make([]model.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		e, err := convertEvent(item)
		if err != nil {
			c.logger.Debug(ctx, "skipping event", logger.String("event", item.Id), logger.Error(err))
			continue
		}
		e.CalendarID = calendarID
		events = append(events, e)
	}
	return events, nil
}

func convertEvent(item *gcal.Event) (model.Event, error) {
	start, err := boundary(item.Start)
	if err != nil {
		return model.Event{}, fmt.Errorf("start: %w", err)
	}
	end, err := boundary(item.End)
	if err != nil {
		return model.Event{}, fmt.Errorf("end: %w", err)
	}
	return model.Event{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       start,
		End:         end,
		HTMLLink:    item.HtmlLink,
	}, nil
}

func boundary(dt *gcal.EventDateTime) (model.Boundary, error) {
	switch {
	case dt == nil:
		return model.Boundary{}, fmt.Errorf("missing")
	case dt.DateTime != "":
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return model.Boundary{}, err
		}
		return model.Boundary{DateTime: t}, nil
	case dt.Date != "":
		if _, err := time.Parse(model.DateLayout, dt.Date); err != nil {
			return model.Boundary{}, err
		}
		return model.Boundary{Date: dt.Date}, nil
	default:
		return model.Boundary{}, fmt.Errorf("neither date nor dateTime set")
	}
}
