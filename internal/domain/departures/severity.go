package departures

import "github.com/okian/homedash/internal/domain/model"

// Level grades a departure's delay.
type Level string

// Delay levels.
const (
	LevelNone    Level = "none"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

const dangerDelaySeconds = 180

// Severity classifies a delay: early is info, up to three minutes late is
// warning, beyond that is danger.
func Severity(delaySeconds int) Level {
	switch {
	case delaySeconds < 0:
		return LevelInfo
	case delaySeconds <= dangerDelaySeconds:
		return LevelWarning
	default:
		return LevelDanger
	}
}

// SeverityOf classifies d, or returns LevelNone when its delay is unknown.
func SeverityOf(d model.Departure) Level {
	delay, ok := d.Delay()
	if !ok {
		return LevelNone
	}
	return Severity(delay)
}
