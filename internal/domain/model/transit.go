package model

import (
	"strings"
	"time"
)

// RouteType classifies a route by vehicle.
type RouteType string

// Route types used by boards.
const (
	RouteTram  RouteType = "tram"
	RouteMetro RouteType = "metro"
	RouteTrain RouteType = "train"
	RouteBus   RouteType = "bus"
	RouteOther RouteType = "other"
)

// RouteTypeFromGTFS maps a GTFS route_type code.
func RouteTypeFromGTFS(code string) RouteType {
	switch strings.TrimSpace(code) {
	case "0":
		return RouteTram
	case "1":
		return RouteMetro
	case "2":
		return RouteTrain
	case "3":
		return RouteBus
	default:
		return RouteOther
	}
}

// Accessibility flags reported per departure.
type Accessibility struct {
	WheelchairAccessible bool `json:"wheelchairAccessible"`
	AirConditioned       bool `json:"airConditioned"`
}

// Departure is one upcoming departure from a stop.
type Departure struct {
	ScheduledTime  time.Time     `json:"scheduledTime"`
	PredictedTime  *time.Time    `json:"predictedTime,omitempty"`
	DelaySeconds   *int          `json:"delaySeconds,omitempty"`
	RouteShortName string        `json:"routeShortName"`
	RouteType      RouteType     `json:"routeType"`
	Headsign       string        `json:"headsign"`
	PlatformCode   string        `json:"platformCode"`
	LastStopName   string        `json:"lastStopName,omitempty"`
	AtStop         bool          `json:"atStop"`
	Canceled       bool          `json:"canceled"`
	Accessibility  Accessibility `json:"accessibility"`
}

// Delay returns the delay in seconds, deriving it from predicted vs scheduled
// time when the provider did not report it.
func (d Departure) Delay() (int, bool) {
	if d.DelaySeconds != nil {
		return *d.DelaySeconds, true
	}
	if d.PredictedTime != nil && !d.ScheduledTime.IsZero() {
		return int(d.PredictedTime.Sub(d.ScheduledTime) / time.Second), true
	}
	return 0, false
}

// Infotext is an informational notice shown with a board. ValidFrom and
// ValidTo are nil when the notice has no bound.
type Infotext struct {
	Text         string     `json:"text"`
	DisplayType  string     `json:"displayType,omitempty"`
	RelatedStops []string   `json:"relatedStops,omitempty"`
	ValidFrom    *time.Time `json:"validFrom,omitempty"`
	ValidTo      *time.Time `json:"validTo,omitempty"`
}

// DepartureBoard is one fetch of a stop's departures.
type DepartureBoard struct {
	StopName   string      `json:"stopName"`
	Departures []Departure `json:"departures"`
	Infotexts  []Infotext  `json:"infotexts"`
	FetchedAt  time.Time   `json:"fetchedAt"`
}

// Route is reference data for one line.
type Route struct {
	ID        string    `json:"id"`
	ShortName string    `json:"shortName"`
	LongName  string    `json:"longName,omitempty"`
	Type      RouteType `json:"type"`
}

// RouteTable indexes routes by short name.
type RouteTable map[string]Route

// NewRouteTable builds a table from a route list; later duplicates win.
func NewRouteTable(routes []Route) RouteTable {
	t := make(RouteTable, len(routes))
	for _, r := range routes {
		t[r.ShortName] = r
	}
	return t
}

// ActivePeriod is one interval of an alert. A zero From is unbounded in the
// past; a nil To is unbounded in the future.
type ActivePeriod struct {
	From time.Time  `json:"from,omitzero"`
	To   *time.Time `json:"to,omitempty"`
}

// Contains reports whether t falls in [From, To).
func (p ActivePeriod) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if p.To != nil && !t.Before(*p.To) {
		return false
	}
	return true
}

// Alert is an active service disruption notice. ActiveFrom and ActiveTo
// span every period.
type Alert struct {
	ID               string         `json:"id"`
	AffectedRouteIDs []string       `json:"affectedRouteIds"`
	ActiveFrom       time.Time      `json:"activeFrom"`
	ActiveTo         *time.Time     `json:"activeTo,omitempty"`
	Periods          []ActivePeriod `json:"periods,omitempty"`
	Headline         string         `json:"headline"`
	Description      string         `json:"description"`
	Cause            string         `json:"cause,omitempty"`
	Effect           string         `json:"effect,omitempty"`
}

// ActiveAt reports whether t falls in one of the alert's periods. Without
// periods the ActiveFrom and ActiveTo span decides; a zero ActiveFrom means
// active since forever.
func (a Alert) ActiveAt(t time.Time) bool {
	if len(a.Periods) == 0 {
		return ActivePeriod{From: a.ActiveFrom, To: a.ActiveTo}.Contains(t)
	}
	for _, p := range a.Periods {
		if p.Contains(t) {
			return true
		}
	}
	return false
}
