package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/svleague/swiss-system/models"
)

// MetaField names a single column of match_player_meta for field-by-field
// upserts. A nil value clears the field.
type MetaField string

const (
	MetaPick1  MetaField = "pick1"
	MetaPick2  MetaField = "pick2"
	MetaActual MetaField = "actual"
)

type MetaRepository interface {
	Get(ctx context.Context, matchID, playerID int) (*models.MatchPlayerMeta, error)
	// UpsertField inserts the row if absent and sets exactly the named field.
	UpsertField(ctx context.Context, matchID, playerID int, field MetaField, value *string) error
	ClearPicks(ctx context.Context, matchID, playerID int) error
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchPlayerMeta, error)
	// ListByTournament returns meta rows joined to their match's tournament.
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.MatchPlayerMeta, error)
}

type postgresMetaRepository struct {
	db *sql.DB
}

func NewPostgresMetaRepository(db *sql.DB) MetaRepository {
	return &postgresMetaRepository{db: db}
}

func (r *postgresMetaRepository) Get(ctx context.Context, matchID, playerID int) (*models.MatchPlayerMeta, error) {
	query := `
		SELECT id, match_id, player_id, pick1, pick2, actual
		FROM match_player_meta
		WHERE match_id = $1 AND player_id = $2`

	meta := &models.MatchPlayerMeta{}
	err := r.db.QueryRowContext(ctx, query, matchID, playerID).Scan(
		&meta.ID, &meta.MatchID, &meta.PlayerID, &meta.Pick1, &meta.Pick2, &meta.Actual)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Absent meta is an empty record, not an error: rows are created
			// lazily on first pick.
			return &models.MatchPlayerMeta{MatchID: matchID, PlayerID: playerID}, nil
		}
		return nil, fmt.Errorf("failed to scan match meta: %w", err)
	}
	return meta, nil
}

func (r *postgresMetaRepository) UpsertField(ctx context.Context, matchID, playerID int, field MetaField, value *string) error {
	var query string
	switch field {
	case MetaPick1:
		query = `
			INSERT INTO match_player_meta (match_id, player_id, pick1) VALUES ($1, $2, $3)
			ON CONFLICT (match_id, player_id) DO UPDATE SET pick1 = EXCLUDED.pick1`
	case MetaPick2:
		query = `
			INSERT INTO match_player_meta (match_id, player_id, pick2) VALUES ($1, $2, $3)
			ON CONFLICT (match_id, player_id) DO UPDATE SET pick2 = EXCLUDED.pick2`
	case MetaActual:
		query = `
			INSERT INTO match_player_meta (match_id, player_id, actual) VALUES ($1, $2, $3)
			ON CONFLICT (match_id, player_id) DO UPDATE SET actual = EXCLUDED.actual`
	default:
		return fmt.Errorf("unknown meta field %q", field)
	}

	if _, err := r.db.ExecContext(ctx, query, matchID, playerID, value); err != nil {
		return fmt.Errorf("failed to upsert meta field %s for match %d player %d: %w", field, matchID, playerID, err)
	}
	return nil
}

func (r *postgresMetaRepository) ClearPicks(ctx context.Context, matchID, playerID int) error {
	query := `
		INSERT INTO match_player_meta (match_id, player_id) VALUES ($1, $2)
		ON CONFLICT (match_id, player_id) DO UPDATE SET pick1 = NULL, pick2 = NULL, actual = NULL`

	if _, err := r.db.ExecContext(ctx, query, matchID, playerID); err != nil {
		return fmt.Errorf("failed to clear picks for match %d player %d: %w", matchID, playerID, err)
	}
	return nil
}

func (r *postgresMetaRepository) listQuery(ctx context.Context, query string, args ...interface{}) ([]*models.MatchPlayerMeta, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match meta: %w", err)
	}
	defer rows.Close()

	metas := make([]*models.MatchPlayerMeta, 0)
	for rows.Next() {
		var meta models.MatchPlayerMeta
		if scanErr := rows.Scan(&meta.ID, &meta.MatchID, &meta.PlayerID, &meta.Pick1, &meta.Pick2, &meta.Actual); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match meta row: %w", scanErr)
		}
		metas = append(metas, &meta)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match meta rows iteration: %w", err)
	}
	return metas, nil
}

func (r *postgresMetaRepository) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchPlayerMeta, error) {
	query := `
		SELECT id, match_id, player_id, pick1, pick2, actual
		FROM match_player_meta WHERE match_id = $1 ORDER BY player_id`
	return r.listQuery(ctx, query, matchID)
}

func (r *postgresMetaRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.MatchPlayerMeta, error) {
	query := `
		SELECT mpm.id, mpm.match_id, mpm.player_id, mpm.pick1, mpm.pick2, mpm.actual
		FROM match_player_meta mpm
		JOIN matches m ON m.id = mpm.match_id
		WHERE m.tournament_id = $1
		ORDER BY mpm.match_id, mpm.player_id`
	return r.listQuery(ctx, query, tournamentID)
}
