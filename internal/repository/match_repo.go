package repository

import (
	"context"
	"errors"
	"fmt"

	"pong_server/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPlayerNotFound = errors.New("player not found")

// отвечает за историю матчей и счетчики игроков
type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Record inserts the match row and bumps both players' counters in one transaction.
func (r *MatchRepository) Record(ctx context.Context, m domain.MatchResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	p1, err := playerID(ctx, tx, m.Player1)
	if err != nil {
		return fmt.Errorf("player1 %q: %w", m.Player1, err)
	}
	p2, err := playerID(ctx, tx, m.Player2)
	if err != nil {
		return fmt.Errorf("player2 %q: %w", m.Player2, err)
	}
	winnerID := m.WinnerID(p1, p2)

	if _, err := tx.Exec(ctx, `
		INSERT INTO match_history (player1_id, player2_id, score1, score2, winner_id)
		VALUES ($1, $2, $3, $4, $5)
	`, p1, p2, m.Score1, m.Score2, winnerID); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	for _, id := range []int64{p1, p2} {
		// бот не ведет статистику
		if id == 0 {
			continue
		}
		won := winnerID != nil && *winnerID == id
		if err := bumpGameStats(ctx, tx, id, won); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func bumpGameStats(ctx context.Context, tx pgx.Tx, id int64, won bool) error {
	var played, wins int
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(game_played, 0), COALESCE(game_won, 0) FROM players WHERE id = $1 FOR UPDATE
	`, id).Scan(&played, &wins); err != nil {
		return fmt.Errorf("load stats %d: %w", id, err)
	}

	played++
	if won {
		wins++
	}
	if _, err := tx.Exec(ctx, `
		UPDATE players SET game_played = $2, game_won = $3, winrate = $4 WHERE id = $1
	`, id, played, wins, domain.Winrate(played, wins)); err != nil {
		return fmt.Errorf("update stats %d: %w", id, err)
	}
	return nil
}

func playerID(ctx context.Context, tx pgx.Tx, username string) (int64, error) {
	if username == domain.AIIdentity {
		return 0, nil
	}
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM players WHERE username = $1`, username).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrPlayerNotFound
	}
	return id, err
}

// IncrementTournamentsPlayed adds one entered tournament to the player.
func (r *MatchRepository) IncrementTournamentsPlayed(ctx context.Context, username string) error {
	return r.increment(ctx, `
		UPDATE players SET tournaments_played = COALESCE(tournaments_played, 0) + 1 WHERE username = $1
	`, username)
}

// IncrementTournamentsWon adds one won tournament to the player.
func (r *MatchRepository) IncrementTournamentsWon(ctx context.Context, username string) error {
	return r.increment(ctx, `
		UPDATE players SET tournaments_won = COALESCE(tournaments_won, 0) + 1 WHERE username = $1
	`, username)
}

func (r *MatchRepository) increment(ctx context.Context, query, username string) error {
	tag, err := r.db.Exec(ctx, query, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// GetStats returns the counters of one player, or nil when unknown.
func (r *MatchRepository) GetStats(ctx context.Context, username string) (*domain.PlayerStats, error) {
	var s domain.PlayerStats
	err := r.db.QueryRow(ctx, `
		SELECT id, username, COALESCE(game_played, 0), COALESCE(game_won, 0), COALESCE(winrate, 0),
		       COALESCE(tournaments_played, 0), COALESCE(tournaments_won, 0)
		FROM players
		WHERE username = $1
	`, username).Scan(&s.ID, &s.Username, &s.GamePlayed, &s.GameWon, &s.Winrate, &s.TournamentsPlayed, &s.TournamentsWon)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Recent returns the latest matches, newest first.
func (r *MatchRepository) Recent(ctx context.Context, limit int) ([]*domain.MatchHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, player1_id, player2_id, score1, score2, winner_id, played_at
		FROM match_history
		ORDER BY played_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.MatchHistory
	for rows.Next() {
		var m domain.MatchHistory
		if err := rows.Scan(&m.ID, &m.Player1ID, &m.Player2ID, &m.Score1, &m.Score2, &m.WinnerID, &m.PlayedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
