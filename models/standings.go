package models

// StandingRow is one line of the computed standings table.
type StandingRow struct {
	Position        int     `json:"position"`
	PlayerID        int     `json:"player_id"`
	Name            string  `json:"name"`
	Points          float64 `json:"points"`
	MatchWinPercent float64 `json:"match_win_percent"`
	OpponentMatchWin float64 `json:"opponent_match_win"`
	TieBreakScore   float64 `json:"tie_break_score"`
}

// FinalPlacements is the 1st–4th narrative produced when the finals round
// resolves. It is derived from the FINAL and THIRD matches, not from the
// standings sort.
type FinalPlacements struct {
	First  int `json:"first"`
	Second int `json:"second"`
	Third  int `json:"third"`
	Fourth int `json:"fourth"`
}
