package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and verifies the database answers.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// schema is the minimal shape needed to record matches. Accounts are owned by
// the user service; the reserved rows keep bot results referentially valid.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS players (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		game_played INTEGER DEFAULT 0,
		game_won INTEGER DEFAULT 0,
		winrate REAL DEFAULT 0,
		tournaments_played INTEGER DEFAULT 0,
		tournaments_won INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS match_history (
		id BIGSERIAL PRIMARY KEY,
		player1_id BIGINT NOT NULL REFERENCES players(id),
		player2_id BIGINT NOT NULL REFERENCES players(id),
		score1 INTEGER NOT NULL,
		score2 INTEGER NOT NULL,
		winner_id BIGINT REFERENCES players(id),
		played_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS match_history_played_at_idx ON match_history (played_at DESC)`,
	`INSERT INTO players (id, username) VALUES (0, 'bot') ON CONFLICT DO NOTHING`,
}

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return nil
}
