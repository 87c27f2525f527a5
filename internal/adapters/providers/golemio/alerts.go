package golemio

import (
	"fmt"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/okian/homedash/internal/domain/model"
)

// decodeFeed parses a GTFS-RT FeedMessage in either encoding. The feed
// omits required proto2 fields at times, so partial messages are accepted.
func decodeFeed(body []byte, format string) (*gtfs.FeedMessage, error) {
	feed := &gtfs.FeedMessage{}
	var err error
	if format == FormatProtobuf {
		err = proto.UnmarshalOptions{AllowPartial: true, DiscardUnknown: true}.Unmarshal(body, feed)
	} else {
		err = protojson.UnmarshalOptions{AllowPartial: true, DiscardUnknown: true}.Unmarshal(body, feed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w: alerts feed: %w", ErrFetch, ErrDecode, err)
	}
	return feed, nil
}

func alertsFromFeed(feed *gtfs.FeedMessage) []model.Alert {
	alerts := make([]model.Alert, 0, len(feed.GetEntity()))
	for _, e := range feed.GetEntity() {
		a := e.GetAlert()
		if a == nil || e.GetIsDeleted() {
			continue
		}
		out := model.Alert{
			ID:          e.GetId(),
			Headline:    translated(a.GetHeaderText()),
			Description: translated(a.GetDescriptionText()),
			Cause:       a.GetCause().String(),
			Effect:      a.GetEffect().String(),
		}
		seen := make(map[string]struct{})
		for _, sel := range a.GetInformedEntity() {
			id := sel.GetRouteId()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out.AffectedRouteIDs = append(out.AffectedRouteIDs, id)
		}
		unbounded := false
		for i, p := range a.GetActivePeriod() {
			period := model.ActivePeriod{}
			if p.GetStart() > 0 {
				period.From = time.Unix(int64(p.GetStart()), 0)
			}
			if p.GetEnd() > 0 {
				to := time.Unix(int64(p.GetEnd()), 0)
				period.To = &to
			}
			out.Periods = append(out.Periods, period)

			if i == 0 || period.From.Before(out.ActiveFrom) {
				out.ActiveFrom = period.From
			}
			switch {
			case unbounded:
			case period.To == nil:
				unbounded, out.ActiveTo = true, nil
			case out.ActiveTo == nil || period.To.After(*out.ActiveTo):
				out.ActiveTo = period.To
			}
		}
		alerts = append(alerts, out)
	}
	return alerts
}

// translated picks the Czech text, then the untagged one, then the first.
func translated(ts *gtfs.TranslatedString) string {
	var untagged, first string
	for i, t := range ts.GetTranslation() {
		if i == 0 {
			first = t.GetText()
		}
		switch t.GetLanguage() {
		case "cs":
			return t.GetText()
		case "":
			if untagged == "" {
				untagged = t.GetText()
			}
		}
	}
	if untagged != "" {
		return untagged
	}
	return first
}
