package models

import "time"

type RoundStatus string

const (
	RoundOngoing  RoundStatus = "ongoing"
	RoundFinished RoundStatus = "finished"
)

// Round is one pairing cycle. Number is monotonic per tournament.
type Round struct {
	ID           int         `json:"id"`
	TournamentID int         `json:"tournament_id"`
	Number       int         `json:"number"`
	Status       RoundStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}
