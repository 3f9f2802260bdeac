package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
)

// MetaService records per-match class picks and the class actually played.
// Picks are two distinct classes declared before a match; after the match the
// player reveals which of the two they actually brought.
type MetaService interface {
	RecordPick(ctx context.Context, matchID, playerID, slot int, class string) (*models.MatchPlayerMeta, error)
	RecordActual(ctx context.Context, matchID, playerID int, class string) (*models.MatchPlayerMeta, error)
	ResetPicks(ctx context.Context, matchID, playerID int) error
	MatchMeta(ctx context.Context, matchID int) ([]*models.MatchPlayerMeta, error)
}

type metaService struct {
	metaRepo  repositories.MetaRepository
	matchRepo repositories.MatchRepository
	logger    *slog.Logger
}

func NewMetaService(
	metaRepo repositories.MetaRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) MetaService {
	return &metaService{
		metaRepo:  metaRepo,
		matchRepo: matchRepo,
		logger:    logger,
	}
}

func (s *metaService) requireSeat(ctx context.Context, matchID, playerID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	seated := (match.P1ID != nil && *match.P1ID == playerID) ||
		(match.P2ID != nil && *match.P2ID == playerID)
	if !seated {
		return nil, ErrPlayerNotInMatch
	}
	return match, nil
}

func (s *metaService) RecordPick(ctx context.Context, matchID, playerID, slot int, class string) (*models.MatchPlayerMeta, error) {
	if slot != 1 && slot != 2 {
		return nil, ErrInvalidClass
	}
	if !models.IsValidClass(class) {
		return nil, ErrInvalidClass
	}
	if _, err := s.requireSeat(ctx, matchID, playerID); err != nil {
		return nil, err
	}

	meta, err := s.metaRepo.Get(ctx, matchID, playerID)
	if err != nil {
		return nil, err
	}
	other := meta.Pick2
	field := repositories.MetaPick1
	if slot == 2 {
		other = meta.Pick1
		field = repositories.MetaPick2
	}
	if other != nil && *other == class {
		return nil, ErrDuplicateClassPick
	}

	if err := s.metaRepo.UpsertField(ctx, matchID, playerID, field, &class); err != nil {
		return nil, err
	}
	return s.metaRepo.Get(ctx, matchID, playerID)
}

func (s *metaService) RecordActual(ctx context.Context, matchID, playerID int, class string) (*models.MatchPlayerMeta, error) {
	if !models.IsValidClass(class) {
		return nil, ErrInvalidClass
	}
	if _, err := s.requireSeat(ctx, matchID, playerID); err != nil {
		return nil, err
	}

	meta, err := s.metaRepo.Get(ctx, matchID, playerID)
	if err != nil {
		return nil, err
	}
	if meta.Pick1 == nil || meta.Pick2 == nil {
		return nil, ErrPicksIncomplete
	}
	if *meta.Pick1 != class && *meta.Pick2 != class {
		return nil, ErrActualNotAmongPicks
	}

	if err := s.metaRepo.UpsertField(ctx, matchID, playerID, repositories.MetaActual, &class); err != nil {
		return nil, err
	}
	s.logger.Debug("actual class revealed",
		slog.Int("match_id", matchID),
		slog.Int("player_id", playerID),
		slog.String("class", class))
	return s.metaRepo.Get(ctx, matchID, playerID)
}

func (s *metaService) ResetPicks(ctx context.Context, matchID, playerID int) error {
	if _, err := s.requireSeat(ctx, matchID, playerID); err != nil {
		return err
	}
	return s.metaRepo.ClearPicks(ctx, matchID, playerID)
}

func (s *metaService) MatchMeta(ctx context.Context, matchID int) ([]*models.MatchPlayerMeta, error) {
	return s.metaRepo.ListByMatch(ctx, matchID)
}
