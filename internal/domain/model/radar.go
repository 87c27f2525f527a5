package model

import "time"

// RadarFrame is one radar image slot.
type RadarFrame struct {
	ImageURL     string    `json:"imageUrl"`
	LightningURL string    `json:"lightningUrl,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
