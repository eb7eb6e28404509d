package models

import (
	"time"

	"github.com/google/uuid"
)

// RaceResult is the record of one completed race cycle. It is published to
// the results queue by the coordinator and persisted by the historian.
type RaceResult struct {
	RaceID     uuid.UUID  `json:"race_id"`
	RoomID     string     `json:"room_id"`
	Text       string     `json:"text"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Standings  []Standing `json:"standings"`
}

// Standing is one player's final placement. Rank is 1-based.
type Standing struct {
	ConnectionID string `json:"connection_id"`
	PlayerName   string `json:"player_name"`
	WPM          int    `json:"wpm"`
	Rank         int    `json:"rank"`
}
