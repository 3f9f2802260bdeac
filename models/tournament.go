package models

import "time"

type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusSeeding      TournamentStatus = "seeding"
	StatusSwiss        TournamentStatus = "swiss"
	StatusTop4Finals   TournamentStatus = "top4_finals"
	StatusFinished     TournamentStatus = "finished"
)

// Tournament is one Swiss event within a community. Status only moves
// forward through the state machine; rows are removed only by an explicit
// administrative purge.
type Tournament struct {
	ID          int              `json:"id"`
	CommunityID int64            `json:"community_id"`
	Name        string           `json:"name"`
	Status      TournamentStatus `json:"status"`
	OrganizerID int64            `json:"organizer_id"`
	CreatedAt   time.Time        `json:"created_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
	Archived    bool             `json:"archived"`
}
