package agenda

import (
	"time"

	"github.com/okian/homedash/internal/domain/model"
)

// Urgency grades how soon an event starts.
type Urgency string

// Urgency levels.
const (
	UrgencyNone    Urgency = "none"
	UrgencyInfo    Urgency = "info"
	UrgencyWarning Urgency = "warning"
	UrgencyDanger  Urgency = "danger"
)

const (
	warningHorizon = 3 * 24 * time.Hour
	infoHorizon    = 7 * 24 * time.Hour
)

// UrgencyOf classifies e relative to now: already started is danger,
// under three days is warning, under a week is info.
func UrgencyOf(now time.Time, e model.Event) Urgency {
	start := e.Start.Instant(now.Location())
	switch {
	case start.Before(now):
		return UrgencyDanger
	case start.Before(now.Add(warningHorizon)):
		return UrgencyWarning
	case start.Before(now.Add(infoHorizon)):
		return UrgencyInfo
	default:
		return UrgencyNone
	}
}
