package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database within %v: %w (close also failed: %v)", timeout, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// schemaStatements are ordered and individually idempotent. Migrations are
// additive only: new columns arrive via ADD COLUMN IF NOT EXISTS, never by
// rewriting existing ones.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS tournaments (
		id SERIAL PRIMARY KEY,
		community_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'registration',
		organizer_id BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE tournaments ADD COLUMN IF NOT EXISTS finished_at TIMESTAMPTZ`,
	`ALTER TABLE tournaments ADD COLUMN IF NOT EXISTS archived BOOLEAN NOT NULL DEFAULT FALSE`,

	`CREATE TABLE IF NOT EXISTS players (
		id SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		external_id TEXT NOT NULL,
		display_name TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		CONSTRAINT players_tournament_external_key UNIQUE (tournament_id, external_id)
	)`,
	`ALTER TABLE players ADD COLUMN IF NOT EXISTS banned BOOLEAN NOT NULL DEFAULT FALSE`,
	`ALTER TABLE players ADD COLUMN IF NOT EXISTS deck1 TEXT`,
	`ALTER TABLE players ADD COLUMN IF NOT EXISTS deck2 TEXT`,
	`ALTER TABLE players ADD COLUMN IF NOT EXISTS actual_class TEXT`,
	`CREATE INDEX IF NOT EXISTS idx_players_tournament ON players(tournament_id)`,

	`CREATE TABLE IF NOT EXISTS rounds (
		id SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		number INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'ongoing',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT rounds_tournament_number_key UNIQUE (tournament_id, number)
	)`,

	`CREATE TABLE IF NOT EXISTS matches (
		id SERIAL PRIMARY KEY,
		tournament_id INTEGER NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		round_id INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		table_number INTEGER NOT NULL,
		p1_id INTEGER REFERENCES players(id),
		p2_id INTEGER REFERENCES players(id),
		result TEXT,
		winner_id INTEGER REFERENCES players(id),
		notes TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_round ON matches(round_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_tournament ON matches(tournament_id)`,

	`CREATE TABLE IF NOT EXISTS match_player_meta (
		id SERIAL PRIMARY KEY,
		match_id INTEGER NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		pick1 TEXT,
		pick2 TEXT,
		actual TEXT,
		CONSTRAINT match_player_meta_match_player_key UNIQUE (match_id, player_id)
	)`,
}

// EnsureSchema creates or upgrades the five engine tables. It is idempotent
// and is invoked once at process start before any operation touches storage.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
