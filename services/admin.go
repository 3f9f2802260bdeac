package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
)

// Administrative actions are typed requests, decoupled from whatever UI
// triggers them. Each mutates storage and is followed by a wholesale score
// recompute rather than incremental correction.

type OverrideResultRequest struct {
	MatchID  int                `json:"match_id"`
	Result   models.MatchResult `json:"result"`
	WinnerID *int               `json:"winner_id,omitempty"`
	Note     string             `json:"note"`
	// Confirm must be set explicitly; overriding a resolved match without it
	// is rejected so a stray retry can never silently rewrite history.
	Confirm bool `json:"confirm"`
}

type SwapTablesRequest struct {
	MatchAID int `json:"match_a_id"`
	MatchBID int `json:"match_b_id"`
}

type BanPlayerRequest struct {
	TournamentID int    `json:"tournament_id"`
	ExternalID   string `json:"external_id"`
	Note         string `json:"note"`
}

type PurgeTournamentRequest struct {
	TournamentID int  `json:"tournament_id"`
	Confirm      bool `json:"confirm"`
}

type AdminService interface {
	OverrideResult(ctx context.Context, req OverrideResultRequest) (*models.Match, error)
	SwapTables(ctx context.Context, req SwapTablesRequest) error
	BanPlayer(ctx context.Context, req BanPlayerRequest) (*models.Player, error)
	PurgeTournament(ctx context.Context, req PurgeTournamentRequest) error
}

type adminService struct {
	db         *sql.DB
	matchRepo  repositories.MatchRepository
	playerRepo repositories.PlayerRepository
	tourRepo   repositories.TournamentRepository
	results    ResultService
	logger     *slog.Logger
}

func NewAdminService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	playerRepo repositories.PlayerRepository,
	tourRepo repositories.TournamentRepository,
	results ResultService,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		db:         db,
		matchRepo:  matchRepo,
		playerRepo: playerRepo,
		tourRepo:   tourRepo,
		results:    results,
		logger:     logger,
	}
}

func (s *adminService) OverrideResult(ctx context.Context, req OverrideResultRequest) (*models.Match, error) {
	if !req.Confirm {
		return nil, ErrOverrideNotConfirmed
	}
	switch req.Result {
	case models.ResultP1Won, models.ResultP2Won, models.ResultBye, models.ResultVoid:
	default:
		return nil, ErrInvalidResult
	}

	match, err := s.matchRepo.GetByID(ctx, req.MatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	winnerID := req.WinnerID
	switch req.Result {
	case models.ResultP1Won:
		winnerID = match.P1ID
	case models.ResultP2Won:
		winnerID = match.P2ID
	case models.ResultVoid:
		winnerID = nil
	}

	note := req.Note
	if note == "" {
		note = "ADMIN_OVERRIDE"
	}
	if err := s.matchRepo.ForceResult(ctx, nil, req.MatchID, req.Result, winnerID, &note); err != nil {
		return nil, err
	}

	// Undoing a previous award correctly requires replaying full history.
	if err := s.results.RecomputeScores(ctx, match.TournamentID); err != nil {
		return nil, err
	}

	s.logger.Warn("match result overridden",
		slog.Int("match_id", req.MatchID),
		slog.String("result", string(req.Result)),
		slog.String("note", note))
	return s.matchRepo.GetByID(ctx, req.MatchID)
}

// SwapTables exchanges the seatings of two matches in one transaction, so a
// half-applied swap can never leave a player at two tables.
func (s *adminService) SwapTables(ctx context.Context, req SwapTablesRequest) error {
	a, err := s.matchRepo.GetByID(ctx, req.MatchAID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	b, err := s.matchRepo.GetByID(ctx, req.MatchBID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if a.RoundID != b.RoundID {
		return ErrMatchesNotInSameRound
	}
	if a.Resolved() || b.Resolved() {
		return ErrMatchAlreadyResolved
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin swap transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.matchRepo.UpdateTableAndPlayers(ctx, tx, a.ID, a.TableNumber, b.P1ID, b.P2ID); err != nil {
		return err
	}
	if err := s.matchRepo.UpdateTableAndPlayers(ctx, tx, b.ID, b.TableNumber, a.P1ID, a.P2ID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit swap: %w", err)
	}

	s.logger.Info("tables swapped",
		slog.Int("match_a", a.ID), slog.Int("match_b", b.ID),
		slog.Int("round_id", a.RoundID))
	return nil
}

func (s *adminService) BanPlayer(ctx context.Context, req BanPlayerRequest) (*models.Player, error) {
	player, err := s.playerRepo.GetByExternalID(ctx, req.TournamentID, req.ExternalID)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	if err := s.playerRepo.SetBanned(ctx, nil, player.ID, true); err != nil {
		return nil, err
	}
	s.logger.Warn("player banned",
		slog.Int("tournament_id", req.TournamentID),
		slog.Int("player_id", player.ID),
		slog.String("note", req.Note))
	return s.playerRepo.GetByID(ctx, player.ID)
}

func (s *adminService) PurgeTournament(ctx context.Context, req PurgeTournamentRequest) error {
	if !req.Confirm {
		return ErrOverrideNotConfirmed
	}
	err := s.tourRepo.Delete(ctx, req.TournamentID)
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	if err == nil {
		s.logger.Warn("tournament purged", slog.Int("tournament_id", req.TournamentID))
	}
	return err
}
