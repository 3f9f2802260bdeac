package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svleague/swiss-system/models"
)

var ErrRoundNotFound = errors.New("round not found")

type RoundRepository interface {
	// CreateNext inserts a round with the next monotonic number for the
	// tournament and returns it.
	CreateNext(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Round, error)
	GetByID(ctx context.Context, id int) (*models.Round, error)
	Current(ctx context.Context, tournamentID int) (*models.Round, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Round, error)
	Close(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresRoundRepository struct {
	db *sql.DB
}

func NewPostgresRoundRepository(db *sql.DB) RoundRepository {
	return &postgresRoundRepository{db: db}
}

func (r *postgresRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRoundRepository) CreateNext(ctx context.Context, exec SQLExecutor, tournamentID int) (*models.Round, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO rounds (tournament_id, number, status)
		SELECT $1, COALESCE(MAX(number), 0) + 1, $2 FROM rounds WHERE tournament_id = $1
		RETURNING id, number, created_at`

	round := &models.Round{TournamentID: tournamentID, Status: models.RoundOngoing}
	err := executor.QueryRowContext(ctx, query, tournamentID, models.RoundOngoing).
		Scan(&round.ID, &round.Number, &round.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create round for tournament %d: %w", tournamentID, err)
	}
	return round, nil
}

func scanRound(row interface{ Scan(...interface{}) error }) (*models.Round, error) {
	round := &models.Round{}
	err := row.Scan(&round.ID, &round.TournamentID, &round.Number, &round.Status, &round.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to scan round: %w", err)
	}
	return round, nil
}

func (r *postgresRoundRepository) GetByID(ctx context.Context, id int) (*models.Round, error) {
	query := `SELECT id, tournament_id, number, status, created_at FROM rounds WHERE id = $1`
	return scanRound(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresRoundRepository) Current(ctx context.Context, tournamentID int) (*models.Round, error) {
	query := `
		SELECT id, tournament_id, number, status, created_at
		FROM rounds WHERE tournament_id = $1
		ORDER BY number DESC LIMIT 1`
	return scanRound(r.db.QueryRowContext(ctx, query, tournamentID))
}

func (r *postgresRoundRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Round, error) {
	query := `
		SELECT id, tournament_id, number, status, created_at
		FROM rounds WHERE tournament_id = $1 ORDER BY number`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0)
	for rows.Next() {
		var round models.Round
		if scanErr := rows.Scan(&round.ID, &round.TournamentID, &round.Number, &round.Status, &round.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", scanErr)
		}
		rounds = append(rounds, &round)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during round rows iteration: %w", err)
	}
	return rounds, nil
}

func (r *postgresRoundRepository) Close(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE rounds SET status = $1 WHERE id = $2`, models.RoundFinished, id)
	if err != nil {
		return fmt.Errorf("failed to close round %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}
