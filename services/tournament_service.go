package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/svleague/swiss-system/models"
	"github.com/svleague/swiss-system/repositories"
)

type CreateTournamentInput struct {
	CommunityID int64  `json:"community_id"`
	OrganizerID int64  `json:"organizer_id"`
	Name        string `json:"name"`
}

type AddPlayerInput struct {
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
}

// RoundStart describes a freshly paired round for the caller to present.
type RoundStart struct {
	Round    *models.Round `json:"round"`
	Pairings []Pairing     `json:"pairings"`
}

// FinalsStart describes the seeded top-4 round.
type FinalsStart struct {
	Round      *models.Round        `json:"round"`
	Final      *models.Match        `json:"final"`
	ThirdPlace *models.Match        `json:"third_place"`
	Seeds      []models.StandingRow `json:"seeds"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, communityID int64, limit, offset int) ([]models.Tournament, error)

	AddPlayer(ctx context.Context, tournamentID int, input AddPlayerInput) (models.RegistrationOutcome, *models.Player, error)
	DropPlayer(ctx context.Context, tournamentID int, externalID string) error
	ListPlayers(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Player, error)

	StartFirstRound(ctx context.Context, tournamentID int) (*RoundStart, error)
	AdvanceRound(ctx context.Context, tournamentID int) (*RoundStart, error)
	CutToFinals(ctx context.Context, tournamentID int) (*FinalsStart, error)

	CurrentRound(ctx context.Context, tournamentID int) (*models.Round, []*models.Match, error)
}

type tournamentService struct {
	db         *sql.DB
	tourRepo   repositories.TournamentRepository
	playerRepo repositories.PlayerRepository
	roundRepo  repositories.RoundRepository
	matchRepo  repositories.MatchRepository
	pairing    PairingService
	standings  StandingsService
	results    ResultService
	logger     *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tourRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	roundRepo repositories.RoundRepository,
	matchRepo repositories.MatchRepository,
	pairing PairingService,
	standings StandingsService,
	results ResultService,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:         db,
		tourRepo:   tourRepo,
		playerRepo: playerRepo,
		roundRepo:  roundRepo,
		matchRepo:  matchRepo,
		pairing:    pairing,
		standings:  standings,
		results:    results,
		logger:     logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := input.Name
	if name == "" {
		name = time.Now().UTC().Format("2006-01-02")
	}
	t := &models.Tournament{
		CommunityID: input.CommunityID,
		Name:        name,
		Status:      models.StatusRegistration,
		OrganizerID: input.OrganizerID,
	}
	if err := s.tourRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("tournament created",
		slog.Int("tournament_id", t.ID),
		slog.Int64("community_id", t.CommunityID),
		slog.String("name", t.Name))
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tourRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, communityID int64, limit, offset int) ([]models.Tournament, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.tourRepo.ListByCommunity(ctx, communityID, limit, offset)
}

func (s *tournamentService) AddPlayer(ctx context.Context, tournamentID int, input AddPlayerInput) (models.RegistrationOutcome, *models.Player, error) {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return "", nil, err
	}

	existing, err := s.playerRepo.GetByExternalID(ctx, tournamentID, input.ExternalID)
	switch {
	case err == nil:
		if existing.Banned {
			return models.RegistrationBanned, existing, nil
		}
		if existing.Active {
			return models.RegistrationAlready, existing, nil
		}
		if err := s.playerRepo.SetActive(ctx, tournamentID, input.ExternalID, true); err != nil {
			return "", nil, err
		}
		existing.Active = true
		return models.RegistrationReactivated, existing, nil
	case errors.Is(err, repositories.ErrPlayerNotFound):
		// fall through to insert
	default:
		return "", nil, err
	}

	p := &models.Player{
		TournamentID: tournamentID,
		ExternalID:   input.ExternalID,
		DisplayName:  input.DisplayName,
		Active:       true,
	}
	if err := s.playerRepo.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrPlayerConflict) {
			// Raced with a concurrent registration of the same identity.
			return models.RegistrationAlready, nil, nil
		}
		return "", nil, err
	}
	return models.RegistrationNew, p, nil
}

func (s *tournamentService) DropPlayer(ctx context.Context, tournamentID int, externalID string) error {
	err := s.playerRepo.SetActive(ctx, tournamentID, externalID, false)
	if errors.Is(err, repositories.ErrPlayerNotFound) {
		return ErrPlayerNotFound
	}
	return err
}

func (s *tournamentService) ListPlayers(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Player, error) {
	return s.playerRepo.ListByTournament(ctx, tournamentID, activeOnly)
}

func (s *tournamentService) StartFirstRound(ctx context.Context, tournamentID int) (*RoundStart, error) {
	tournament, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusRegistration && tournament.Status != models.StatusSeeding {
		return nil, ErrInvalidTransition
	}

	players, err := s.playerRepo.ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, err
	}
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	if err := s.tourRepo.UpdateStatus(ctx, nil, tournamentID, models.StatusSwiss); err != nil {
		return nil, err
	}
	return s.openRound(ctx, tournamentID)
}

func (s *tournamentService) AdvanceRound(ctx context.Context, tournamentID int) (*RoundStart, error) {
	tournament, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusSwiss {
		return nil, ErrInvalidTransition
	}

	current, err := s.roundRepo.Current(ctx, tournamentID)
	if err != nil && !errors.Is(err, repositories.ErrRoundNotFound) {
		return nil, err
	}
	if current != nil && current.Status == models.RoundOngoing {
		unresolved, err := s.matchRepo.CountUnresolvedByRound(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if unresolved > 0 {
			return nil, ErrUnreportedMatches
		}
		if err := s.roundRepo.Close(ctx, nil, current.ID); err != nil {
			return nil, err
		}
	}

	players, err := s.playerRepo.ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, err
	}
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	return s.openRound(ctx, tournamentID)
}

// openRound creates the next round row and pairs it. Pairing is invoked
// exactly once per round created here; that is the at-most-once guarantee
// the pairing engine relies on.
func (s *tournamentService) openRound(ctx context.Context, tournamentID int) (*RoundStart, error) {
	round, err := s.roundRepo.CreateNext(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	pairings, err := s.pairing.PairRound(ctx, tournamentID, round.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("round paired",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round.Number),
		slog.Int("tables", len(pairings)))
	return &RoundStart{Round: round, Pairings: pairings}, nil
}

func (s *tournamentService) CutToFinals(ctx context.Context, tournamentID int) (*FinalsStart, error) {
	tournament, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.StatusSwiss {
		return nil, ErrInvalidTransition
	}

	// Scores are a derived cache; rebuild before seeding on them.
	if err := s.results.RecomputeScores(ctx, tournamentID); err != nil {
		return nil, err
	}
	rows, err := s.standings.ComputeStandings(ctx, tournamentID, true)
	if err != nil {
		return nil, err
	}
	if len(rows) < 4 {
		return nil, ErrNotEnoughPlayers
	}
	seeds := rows[:4]

	round, err := s.roundRepo.CreateNext(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}

	finalNote := models.NoteFinal
	final := &models.Match{
		TournamentID: tournamentID,
		RoundID:      round.ID,
		TableNumber:  1,
		P1ID:         &seeds[0].PlayerID,
		P2ID:         &seeds[1].PlayerID,
		Notes:        &finalNote,
	}
	thirdNote := models.NoteThirdPlace
	third := &models.Match{
		TournamentID: tournamentID,
		RoundID:      round.ID,
		TableNumber:  2,
		P1ID:         &seeds[2].PlayerID,
		P2ID:         &seeds[3].PlayerID,
		Notes:        &thirdNote,
	}
	if err := s.matchRepo.Create(ctx, nil, final); err != nil {
		return nil, err
	}
	if err := s.matchRepo.Create(ctx, nil, third); err != nil {
		return nil, err
	}
	if err := s.tourRepo.UpdateStatus(ctx, nil, tournamentID, models.StatusTop4Finals); err != nil {
		return nil, err
	}

	s.logger.Info("top-4 finals created",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round", round.Number))
	return &FinalsStart{Round: round, Final: final, ThirdPlace: third, Seeds: seeds}, nil
}

func (s *tournamentService) CurrentRound(ctx context.Context, tournamentID int) (*models.Round, []*models.Match, error) {
	round, err := s.roundRepo.Current(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, nil, ErrRoundNotFound
		}
		return nil, nil, err
	}
	matches, err := s.matchRepo.ListByRound(ctx, round.ID)
	if err != nil {
		return nil, nil, err
	}
	return round, matches, nil
}
