package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svleague/swiss-system/models"
)

var ErrMatchNotFound = errors.New("match not found")

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByRound(ctx context.Context, roundID int) ([]*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListByPlayer(ctx context.Context, tournamentID, playerID int) ([]*models.Match, error)
	// SetResultIfUnset performs the at-most-one result commit: a single
	// conditional UPDATE that applies only while result is NULL. It reports
	// whether this call won the write.
	SetResultIfUnset(ctx context.Context, id int, result models.MatchResult, winnerID *int, notes *string) (bool, error)
	// ForceResult overwrites any result unconditionally. Administrative
	// override path only.
	ForceResult(ctx context.Context, exec SQLExecutor, id int, result models.MatchResult, winnerID *int, notes *string) error
	UpdateTableAndPlayers(ctx context.Context, exec SQLExecutor, id int, tableNumber int, p1ID, p2ID *int) error
	CountUnresolvedByRound(ctx context.Context, roundID int) (int, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `id, tournament_id, round_id, table_number, p1_id, p2_id, result, winner_id, notes`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO matches (tournament_id, round_id, table_number, p1_id, p2_id, result, winner_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		m.TournamentID, m.RoundID, m.TableNumber, m.P1ID, m.P2ID, m.Result, m.WinnerID, m.Notes,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	var result sql.NullString
	err := row.Scan(&m.ID, &m.TournamentID, &m.RoundID, &m.TableNumber,
		&m.P1ID, &m.P2ID, &result, &m.WinnerID, &m.Notes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	if result.Valid {
		res := models.MatchResult(result.String)
		m.Result = &res
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	return scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) listQuery(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		var m models.Match
		var result sql.NullString
		if scanErr := rows.Scan(&m.ID, &m.TournamentID, &m.RoundID, &m.TableNumber,
			&m.P1ID, &m.P2ID, &result, &m.WinnerID, &m.Notes); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		if result.Valid {
			res := models.MatchResult(result.String)
			m.Result = &res
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, roundID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE round_id = $1 ORDER BY table_number`
	return r.listQuery(ctx, query, roundID)
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE tournament_id = $1 ORDER BY round_id, table_number`
	return r.listQuery(ctx, query, tournamentID)
}

func (r *postgresMatchRepository) ListByPlayer(ctx context.Context, tournamentID, playerID int) ([]*models.Match, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND (p1_id = $2 OR p2_id = $2)
		ORDER BY round_id, table_number`
	return r.listQuery(ctx, query, tournamentID, playerID)
}

func (r *postgresMatchRepository) SetResultIfUnset(ctx context.Context, id int, result models.MatchResult, winnerID *int, notes *string) (bool, error) {
	query := `
		UPDATE matches SET result = $1, winner_id = $2, notes = COALESCE($3, notes)
		WHERE id = $4 AND result IS NULL`

	res, err := r.db.ExecContext(ctx, query, result, winnerID, notes, id)
	if err != nil {
		return false, fmt.Errorf("failed conditional result update for match %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return affected == 1, nil
}

func (r *postgresMatchRepository) ForceResult(ctx context.Context, exec SQLExecutor, id int, result models.MatchResult, winnerID *int, notes *string) error {
	executor := r.getExecutor(exec)
	res, err := executor.ExecContext(ctx,
		`UPDATE matches SET result = $1, winner_id = $2, notes = $3 WHERE id = $4`,
		result, winnerID, notes, id)
	if err != nil {
		return fmt.Errorf("failed to force result for match %d: %w", id, err)
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateTableAndPlayers(ctx context.Context, exec SQLExecutor, id int, tableNumber int, p1ID, p2ID *int) error {
	executor := r.getExecutor(exec)
	res, err := executor.ExecContext(ctx,
		`UPDATE matches SET table_number = $1, p1_id = $2, p2_id = $3 WHERE id = $4`,
		tableNumber, p1ID, p2ID, id)
	if err != nil {
		return fmt.Errorf("failed to update players for match %d: %w", id, err)
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) CountUnresolvedByRound(ctx context.Context, roundID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM matches WHERE round_id = $1 AND result IS NULL`, roundID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unresolved matches for round %d: %w", roundID, err)
	}
	return n, nil
}
