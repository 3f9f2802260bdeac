package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
)

// WinnerSide identifies which seat of a match won, as reported by a caller.
type WinnerSide string

const (
	SideP1 WinnerSide = "p1"
	SideP2 WinnerSide = "p2"
)

// RecordOutcome is what a reporter gets back. When Applied is false the
// match was already resolved and CurrentResult/CurrentWinnerID carry the
// write that won the race; that is an outcome, not an error.
type RecordOutcome struct {
	Applied         bool                    `json:"applied"`
	CurrentResult   models.MatchResult      `json:"current_result"`
	CurrentWinnerID *int                    `json:"current_winner_id,omitempty"`
	RoundCompleted  bool                    `json:"round_completed"`
	RoundID         int                     `json:"round_id"`
	Placements      *models.FinalPlacements `json:"placements,omitempty"`
	Finished        bool                    `json:"finished"`
}

type ResultService interface {
	RecordResult(ctx context.Context, matchID int, side WinnerSide) (*RecordOutcome, error)
	// RecomputeScores rebuilds every player's cached score from match
	// history. Used after any administrative mutation; the cached score is
	// never the sole source of truth.
	RecomputeScores(ctx context.Context, tournamentID int) error
}

type resultService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	roundRepo  repositories.RoundRepository
	playerRepo repositories.PlayerRepository
	metaRepo   repositories.MetaRepository
	tourRepo   repositories.TournamentRepository
	logger     *slog.Logger
}

func NewResultService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	roundRepo repositories.RoundRepository,
	playerRepo repositories.PlayerRepository,
	metaRepo repositories.MetaRepository,
	tourRepo repositories.TournamentRepository,
	logger *slog.Logger,
) ResultService {
	return &resultService{
		db:         db,
		matchRepo:  matchRepo,
		roundRepo:  roundRepo,
		playerRepo: playerRepo,
		metaRepo:   metaRepo,
		tourRepo:   tourRepo,
		logger:     logger,
	}
}

func (s *resultService) RecordResult(ctx context.Context, matchID int, side WinnerSide) (*RecordOutcome, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	var result models.MatchResult
	var winnerID *int
	switch side {
	case SideP1:
		if match.P1ID == nil {
			return nil, ErrPlayerNotInMatch
		}
		result, winnerID = models.ResultP1Won, match.P1ID
	case SideP2:
		if match.P2ID == nil {
			return nil, ErrPlayerNotInMatch
		}
		result, winnerID = models.ResultP2Won, match.P2ID
	default:
		return nil, ErrInvalidResult
	}

	applied, err := s.matchRepo.SetResultIfUnset(ctx, matchID, result, winnerID, nil)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race. Re-read once to report what actually won.
		current, err := s.matchRepo.GetByID(ctx, matchID)
		if err != nil {
			return nil, err
		}
		outcome := &RecordOutcome{Applied: false, RoundID: match.RoundID}
		if current.Result != nil {
			outcome.CurrentResult = *current.Result
			outcome.CurrentWinnerID = current.WinnerID
		}
		return outcome, nil
	}

	// Only the winning write awards points and runs the completion hook.
	if err := s.playerRepo.AddScore(ctx, nil, *winnerID, PointsPerWin); err != nil {
		return nil, err
	}

	outcome := &RecordOutcome{
		Applied:         true,
		CurrentResult:   result,
		CurrentWinnerID: winnerID,
		RoundID:         match.RoundID,
	}
	if err := s.afterResultCommit(ctx, match.TournamentID, match.RoundID, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// afterResultCommit is the single round-completion hook: every successful
// result write funnels here instead of duplicating the check at call sites.
func (s *resultService) afterResultCommit(ctx context.Context, tournamentID, roundID int, outcome *RecordOutcome) error {
	unresolved, err := s.matchRepo.CountUnresolvedByRound(ctx, roundID)
	if err != nil {
		return err
	}
	if unresolved > 0 {
		return nil
	}

	if err := s.roundRepo.Close(ctx, nil, roundID); err != nil {
		return err
	}
	if err := s.syncRoundMetaToPlayers(ctx, roundID); err != nil {
		return err
	}
	if err := s.RecomputeScores(ctx, tournamentID); err != nil {
		return err
	}
	outcome.RoundCompleted = true

	tournament, err := s.tourRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.StatusTop4Finals {
		s.logger.Info("round completed",
			slog.Int("tournament_id", tournamentID),
			slog.Int("round_id", roundID))
		return nil
	}

	matches, err := s.matchRepo.ListByRound(ctx, roundID)
	if err != nil {
		return err
	}
	placements, err := ComputePlacements(matches)
	if err != nil {
		return err
	}
	if err := s.tourRepo.MarkFinished(ctx, nil, tournamentID, time.Now().UTC()); err != nil {
		return err
	}
	outcome.Placements = placements
	outcome.Finished = true
	s.logger.Info("tournament finished",
		slog.Int("tournament_id", tournamentID),
		slog.Int("first", placements.First),
		slog.Int("second", placements.Second))
	return nil
}

// syncRoundMetaToPlayers copies each player's last class picks for the round
// onto the player row, so the roster always reflects the latest declarations.
func (s *resultService) syncRoundMetaToPlayers(ctx context.Context, roundID int) error {
	matches, err := s.matchRepo.ListByRound(ctx, roundID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		for _, pid := range []*int{m.P1ID, m.P2ID} {
			if pid == nil {
				continue
			}
			meta, err := s.metaRepo.Get(ctx, m.ID, *pid)
			if err != nil {
				return err
			}
			if meta.Pick1 == nil && meta.Pick2 == nil && meta.Actual == nil {
				continue
			}
			if err := s.playerRepo.UpdateDecks(ctx, nil, *pid, meta.Pick1, meta.Pick2, meta.Actual); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *resultService) RecomputeScores(ctx context.Context, tournamentID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin score recompute transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.playerRepo.ResetScores(ctx, tx, tournamentID); err != nil {
		return err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.Result == nil || *m.Result == models.ResultVoid {
			continue
		}
		winner := m.WinnerID
		if winner == nil && *m.Result == models.ResultBye {
			winner = m.P1ID
			if winner == nil {
				winner = m.P2ID
			}
		}
		if winner == nil {
			continue
		}
		if err := s.playerRepo.AddScore(ctx, tx, *winner, PointsPerWin); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit score recompute: %w", err)
	}
	return nil
}

// ComputePlacements derives the 1st–4th placement narrative from a finals
// round. The result of the tagged matches decides placement; the Swiss
// standings sort plays no part.
func ComputePlacements(matches []*models.Match) (*models.FinalPlacements, error) {
	var final, third *models.Match
	for _, m := range matches {
		if m.Notes == nil {
			continue
		}
		switch *m.Notes {
		case models.NoteFinal:
			final = m
		case models.NoteThirdPlace:
			third = m
		}
	}
	if final == nil || third == nil {
		return nil, fmt.Errorf("finals round is missing its tagged matches: %w", ErrMatchNotFound)
	}
	if final.WinnerID == nil || third.WinnerID == nil {
		return nil, ErrUnreportedMatches
	}

	loserOf := func(m *models.Match) int {
		if m.P1ID != nil && *m.WinnerID == *m.P1ID {
			return *m.P2ID
		}
		return *m.P1ID
	}

	return &models.FinalPlacements{
		First:  *final.WinnerID,
		Second: loserOf(final),
		Third:  *third.WinnerID,
		Fourth: loserOf(third),
	}, nil
}
