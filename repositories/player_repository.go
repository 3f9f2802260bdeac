package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/svleague/swiss-system/models"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerConflict = errors.New("player already registered for this tournament")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByExternalID(ctx context.Context, tournamentID int, externalID string) (*models.Player, error)
	ListByTournament(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Player, error)
	SetActive(ctx context.Context, tournamentID int, externalID string, active bool) error
	SetBanned(ctx context.Context, exec SQLExecutor, playerID int, banned bool) error
	AddScore(ctx context.Context, exec SQLExecutor, playerID int, delta float64) error
	ResetScores(ctx context.Context, exec SQLExecutor, tournamentID int) error
	UpdateDecks(ctx context.Context, exec SQLExecutor, playerID int, deck1, deck2, actual *string) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const playerColumns = `id, tournament_id, external_id, display_name, active, banned, score, deck1, deck2, actual_class`

func (r *postgresPlayerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (tournament_id, external_id, display_name, active, banned)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		p.TournamentID, p.ExternalID, p.DisplayName, p.Active, p.Banned,
	).Scan(&p.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "players_tournament_external_key" {
			return ErrPlayerConflict
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func scanPlayer(row interface{ Scan(...interface{}) error }) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(
		&p.ID, &p.TournamentID, &p.ExternalID, &p.DisplayName,
		&p.Active, &p.Banned, &p.Score, &p.Deck1, &p.Deck2, &p.ActualClass,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return scanPlayer(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByExternalID(ctx context.Context, tournamentID int, externalID string) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE tournament_id = $1 AND external_id = $2`
	return scanPlayer(r.db.QueryRowContext(ctx, query, tournamentID, externalID))
}

func (r *postgresPlayerRepository) ListByTournament(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE tournament_id = $1`
	if activeOnly {
		query += ` AND active = TRUE AND banned = FALSE`
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query players for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		var p models.Player
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.ExternalID, &p.DisplayName,
			&p.Active, &p.Banned, &p.Score, &p.Deck1, &p.Deck2, &p.ActualClass,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during player rows iteration: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) SetActive(ctx context.Context, tournamentID int, externalID string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET active = $1 WHERE tournament_id = $2 AND external_id = $3`,
		active, tournamentID, externalID)
	if err != nil {
		return fmt.Errorf("failed to update active flag: %w", err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) SetBanned(ctx context.Context, exec SQLExecutor, playerID int, banned bool) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE players SET banned = $1, active = active AND NOT $1 WHERE id = $2`,
		banned, playerID)
	if err != nil {
		return fmt.Errorf("failed to update banned flag for player %d: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) AddScore(ctx context.Context, exec SQLExecutor, playerID int, delta float64) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE players SET score = score + $1 WHERE id = $2`, delta, playerID)
	if err != nil {
		return fmt.Errorf("failed to add score for player %d: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ResetScores(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx,
		`UPDATE players SET score = 0 WHERE tournament_id = $1`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to reset scores for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresPlayerRepository) UpdateDecks(ctx context.Context, exec SQLExecutor, playerID int, deck1, deck2, actual *string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE players SET deck1 = $1, deck2 = $2, actual_class = $3 WHERE id = $4`,
		deck1, deck2, actual, playerID)
	if err != nil {
		return fmt.Errorf("failed to update decks for player %d: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
