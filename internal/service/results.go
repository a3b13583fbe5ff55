package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"pong_server/internal/domain"
	"pong_server/internal/logger"
	"pong_server/internal/metrics"
)

// MatchStore is the durable side of the result sink. Implemented by
// repository.MatchRepository.
type MatchStore interface {
	Record(ctx context.Context, m domain.MatchResult) error
	IncrementTournamentsPlayed(ctx context.Context, username string) error
	IncrementTournamentsWon(ctx context.Context, username string) error
}

const writeTimeout = 5 * time.Second

// ResultService records finished matches and tournament credits. Every write
// runs in the background and failures are only logged: gameplay never waits
// for the database.
type ResultService struct {
	store MatchStore
	wg    sync.WaitGroup
}

// NewResultService wraps store. A nil store keeps the service log-only.
func NewResultService(store MatchStore) *ResultService {
	return &ResultService{store: store}
}

func (s *ResultService) RecordMatch(m domain.MatchResult) {
	winner := "<none>"
	if m.Winner != nil {
		winner = *m.Winner
	}
	logger.Info("match finished", "room", m.RoomID, "p1", m.Player1, "p2", m.Player2,
		"score1", m.Score1, "score2", m.Score2, "winner", winner)

	s.async("record_match", func(ctx context.Context) error {
		return s.store.Record(ctx, m)
	})
}

func (s *ResultService) IncrementTournamentsEntered(identity string) {
	if IsGuest(identity) {
		return
	}
	s.async("tournaments_played", func(ctx context.Context) error {
		return s.store.IncrementTournamentsPlayed(ctx, identity)
	})
}

func (s *ResultService) IncrementTournamentsWon(identity string) {
	if IsGuest(identity) {
		return
	}
	logger.Info("tournament won", "user", identity)
	s.async("tournaments_won", func(ctx context.Context) error {
		return s.store.IncrementTournamentsWon(ctx, identity)
	})
}

// Wait blocks until in-flight writes are done. Called on shutdown.
func (s *ResultService) Wait() {
	s.wg.Wait()
}

func (s *ResultService) async(op string, fn func(ctx context.Context) error) {
	if s.store == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			metrics.PersistFailures.WithLabelValues(op).Inc()
			if errors.Is(err, context.DeadlineExceeded) {
				logger.Error("persist timed out", "op", op)
				return
			}
			logger.Error("persist failed", "op", op, "error", err)
		}
	}()
}
