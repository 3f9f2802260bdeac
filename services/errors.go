package services

import "errors"

// Caller/state errors: reported synchronously, no side effects, never retried.
var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrPlayerNotFound     = errors.New("player not found in tournament")
	ErrMatchNotFound      = errors.New("match not found")
	ErrRoundNotFound      = errors.New("round not found")

	ErrNotEnoughPlayers      = errors.New("not enough active players")
	ErrInvalidTransition     = errors.New("operation not allowed in current tournament status")
	ErrUnreportedMatches     = errors.New("unreported matches remain in the current round")
	ErrPlayerBanned          = errors.New("player is banned from this tournament")
	ErrPlayerNotInMatch      = errors.New("player is not part of this match")
	ErrMatchAlreadyResolved  = errors.New("match already has a recorded result")
	ErrInvalidResult         = errors.New("invalid match result")
	ErrInvalidClass          = errors.New("unknown class label")
	ErrDuplicateClassPick    = errors.New("the two class picks must differ")
	ErrPicksIncomplete       = errors.New("both class picks must be recorded first")
	ErrActualNotAmongPicks   = errors.New("actual class must be one of the two declared picks")
	ErrOverrideNotConfirmed  = errors.New("administrative override requires explicit confirmation")
	ErrMatchesNotInSameRound = errors.New("matches must belong to the same round")

	ErrAuthInvalidCredentials = errors.New("invalid organizer credentials")

	ErrArchiveUnavailable = errors.New("archive storage is not configured")
)
