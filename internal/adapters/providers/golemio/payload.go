package golemio

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// scalar accepts a JSON string, number or bool and keeps its text.
// The API is inconsistent about quoting.
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = scalar(v)
	default:
		*s = scalar(b)
	}
	return nil
}

func (s scalar) String() string { return strings.TrimSpace(string(s)) }

func (s scalar) Bool() bool {
	v, err := strconv.ParseBool(s.String())
	return err == nil && v
}

func (s scalar) Int() (int, bool) {
	str := s.String()
	if str == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(str); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

func (s scalar) Time() (time.Time, bool) {
	str := s.String()
	if str == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type boardPayload struct {
	Departures []departurePayload `json:"departures"`
	Infotexts  []infotextPayload  `json:"infotexts"`
}

type departurePayload struct {
	DepartureTimestamp struct {
		Predicted scalar `json:"predicted"`
		Scheduled scalar `json:"scheduled"`
	} `json:"departure_timestamp"`
	Delay struct {
		IsAvailable scalar `json:"is_available"`
		Seconds     scalar `json:"seconds"`
	} `json:"delay"`
	LastStop struct {
		Name scalar `json:"name"`
	} `json:"last_stop"`
	Route struct {
		ShortName scalar `json:"short_name"`
		Type      scalar `json:"type"`
	} `json:"route"`
	Stop struct {
		PlatformCode scalar `json:"platform_code"`
	} `json:"stop"`
	Trip struct {
		Headsign               scalar `json:"headsign"`
		IsAtStop               scalar `json:"is_at_stop"`
		IsCanceled             scalar `json:"is_canceled"`
		IsWheelchairAccessible scalar `json:"is_wheelchair_accessible"`
		IsAirConditioned       scalar `json:"is_air_conditioned"`
	} `json:"trip"`
}

type infotextPayload struct {
	Text         scalar   `json:"text"`
	DisplayType  scalar   `json:"display_type"`
	RelatedStops []scalar `json:"related_stops"`
	ValidFrom    scalar   `json:"valid_from"`
	ValidTo      scalar   `json:"valid_to"`
}

type routePayload struct {
	RouteID        scalar `json:"route_id"`
	RouteShortName scalar `json:"route_short_name"`
	RouteLongName  scalar `json:"route_long_name"`
	RouteType      scalar `json:"route_type"`
}

func (p departurePayload) toModel() (model.Departure, bool) {
	scheduled, ok := p.DepartureTimestamp.Scheduled.Time()
	if !ok {
		return model.Departure{}, false
	}
	d := model.Departure{
		ScheduledTime:  scheduled,
		RouteShortName: p.Route.ShortName.String(),
		RouteType:      model.RouteTypeFromGTFS(p.Route.Type.String()),
		Headsign:       p.Trip.Headsign.String(),
		PlatformCode:   p.Stop.PlatformCode.String(),
		LastStopName:   p.LastStop.Name.String(),
		AtStop:         p.Trip.IsAtStop.Bool(),
		Canceled:       p.Trip.IsCanceled.Bool(),
		Accessibility: model.Accessibility{
			WheelchairAccessible: p.Trip.IsWheelchairAccessible.Bool(),
			AirConditioned:       p.Trip.IsAirConditioned.Bool(),
		},
	}
	if predicted, ok := p.DepartureTimestamp.Predicted.Time(); ok {
		d.PredictedTime = &predicted
	}
	if p.Delay.IsAvailable.Bool() {
		if sec, ok := p.Delay.Seconds.Int(); ok {
			d.DelaySeconds = &sec
		}
	}
	return d, true
}

func (p infotextPayload) toModel() model.Infotext {
	it := model.Infotext{
		Text:        p.Text.String(),
		DisplayType: p.DisplayType.String(),
	}
	for _, s := range p.RelatedStops {
		if v := s.String(); v != "" {
			it.RelatedStops = append(it.RelatedStops, v)
		}
	}
	if from, ok := p.ValidFrom.Time(); ok {
		it.ValidFrom = &from
	}
	if to, ok := p.ValidTo.Time(); ok {
		it.ValidTo = &to
	}
	return it
}

func (p routePayload) toModel() model.Route {
	return model.Route{
		ID:        p.RouteID.String(),
		ShortName: p.RouteShortName.String(),
		LongName:  p.RouteLongName.String(),
		Type:      model.RouteTypeFromGTFS(p.RouteType.String()),
	}
}
