package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
	"github.com/svleague/swiss-system/storage"
)

// TournamentArchive is the full exported record of a tournament, sufficient
// to rebuild standings offline.
type TournamentArchive struct {
	Tournament *models.Tournament        `json:"tournament"`
	Players    []*models.Player          `json:"players"`
	Rounds     []*models.Round           `json:"rounds"`
	Matches    []*models.Match           `json:"matches"`
	Meta       []*models.MatchPlayerMeta `json:"meta"`
	Standings  []models.StandingRow      `json:"standings"`
	ExportedAt time.Time                 `json:"exported_at"`
}

type ExportResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
}

type ExportService interface {
	BuildArchive(ctx context.Context, tournamentID int) (*TournamentArchive, error)
	ExportTournament(ctx context.Context, tournamentID int) (*ExportResult, error)
}

type exportService struct {
	tourRepo   repositories.TournamentRepository
	playerRepo repositories.PlayerRepository
	roundRepo  repositories.RoundRepository
	matchRepo  repositories.MatchRepository
	metaRepo   repositories.MetaRepository
	standings  StandingsService
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewExportService(
	tourRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	metaRepo repositories.MetaRepository,
	standings StandingsService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) ExportService {
	return &exportService{
		tourRepo:   tourRepo,
		playerRepo: playerRepo,
		roundRepo:  roundRepo,
		matchRepo:  matchRepo,
		metaRepo:   metaRepo,
		standings:  standings,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *exportService) BuildArchive(ctx context.Context, tournamentID int) (*TournamentArchive, error) {
	tournament, err := s.tourRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	players, err := s.playerRepo.ListByTournament(ctx, tournamentID, false)
	if err != nil {
		return nil, err
	}
	rounds, err := s.roundRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	meta, err := s.metaRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	// Finals matches are decided by placement, not points, so the archived
	// ranking uses Swiss rounds only.
	rows, err := s.standings.ComputeSwissStandings(ctx, tournamentID, false)
	if err != nil {
		return nil, err
	}

	return &TournamentArchive{
		Tournament: tournament,
		Players:    players,
		Rounds:     rounds,
		Matches:    matches,
		Meta:       meta,
		Standings:  rows,
		ExportedAt: time.Now().UTC(),
	}, nil
}

func (s *exportService) ExportTournament(ctx context.Context, tournamentID int) (*ExportResult, error) {
	if s.uploader == nil {
		return nil, ErrArchiveUnavailable
	}
	archive, err := s.BuildArchive(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tournament archive: %w", err)
	}

	key := fmt.Sprintf("archives/tournament-%d-%s.json", tournamentID, uuid.NewString())
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	if err := s.tourRepo.MarkArchived(ctx, tournamentID); err != nil {
		return nil, err
	}

	s.logger.Info("tournament archived",
		slog.Int("tournament_id", tournamentID),
		slog.String("key", result.Key),
		slog.String("location", result.Location))
	return &ExportResult{Key: result.Key, Location: result.Location}, nil
}
