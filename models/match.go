package models

type MatchResult string

const (
	ResultP1Won MatchResult = "p1"
	ResultP2Won MatchResult = "p2"
	ResultBye   MatchResult = "bye"
	ResultVoid  MatchResult = "void"
)

// Note tags used to mark the two matches of the finals round.
const (
	NoteFinal      = "FINAL"
	NoteThirdPlace = "THIRD"
)

// Match is one table's pairing within a round. A bye has exactly one player
// reference and is persisted already resolved. Result transitions from unset
// to a terminal value exactly once under normal flow; administrative override
// is the only path that rewrites a terminal result.
type Match struct {
	ID           int          `json:"id"`
	TournamentID int          `json:"tournament_id"`
	RoundID      int          `json:"round_id"`
	TableNumber  int          `json:"table_number"`
	P1ID         *int         `json:"p1_id,omitempty"`
	P2ID         *int         `json:"p2_id,omitempty"`
	Result       *MatchResult `json:"result,omitempty"`
	WinnerID     *int         `json:"winner_id,omitempty"`
	Notes        *string      `json:"notes,omitempty"`
}

// IsBye reports whether exactly one side of the match is occupied.
func (m *Match) IsBye() bool {
	return (m.P1ID == nil) != (m.P2ID == nil)
}

// Resolved reports whether a terminal result has been recorded.
func (m *Match) Resolved() bool {
	return m.Result != nil
}

// MatchPlayerMeta records one player's declared class picks and the class
// actually played for a single match. Rows are created lazily and upserted
// field by field; (match_id, player_id) is unique.
type MatchPlayerMeta struct {
	ID       int     `json:"id"`
	MatchID  int     `json:"match_id"`
	PlayerID int     `json:"player_id"`
	Pick1    *string `json:"pick1,omitempty"`
	Pick2    *string `json:"pick2,omitempty"`
	Actual   *string `json:"actual,omitempty"`
}
