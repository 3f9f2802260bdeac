package models

// Player is a tournament-scoped participant. External identity is the id of
// the user in whatever frontend registered them; (tournament_id, external_id)
// is unique. Players are never deleted, only deactivated, so match history
// stays intact. Score is a derived cache recomputed from match history.
type Player struct {
	ID           int     `json:"id"`
	TournamentID int     `json:"tournament_id"`
	ExternalID   string  `json:"external_id"`
	DisplayName  string  `json:"display_name"`
	Active       bool    `json:"active"`
	Banned       bool    `json:"banned"`
	Score        float64 `json:"score"`
	Deck1        *string `json:"deck1,omitempty"`
	Deck2        *string `json:"deck2,omitempty"`
	ActualClass  *string `json:"actual_class,omitempty"`
}

// RegistrationOutcome tells the caller what AddPlayer actually did.
type RegistrationOutcome string

const (
	RegistrationNew         RegistrationOutcome = "new"
	RegistrationReactivated RegistrationOutcome = "reactivated"
	RegistrationAlready     RegistrationOutcome = "already"
	RegistrationBanned      RegistrationOutcome = "banned"
)
