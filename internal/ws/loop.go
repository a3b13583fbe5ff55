package ws

import (
	"context"
	"time"

	"pong_server/internal/game"
	"pong_server/internal/logger"
	"pong_server/internal/metrics"
)

// Run drives every room at TickRate until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(game.TickInterval)
	defer ticker.Stop()

	logger.Info("game loop started", "tick", game.TickInterval)
	for {
		select {
		case <-ctx.Done():
			h.Shutdown()
			logger.Info("game loop stopped")
			return
		case <-ticker.C:
			h.Tick()
		}
	}
}

// Tick advances every room once, in registry order.
func (h *Hub) Tick() {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	// finishing a room never removes it, so the order is stable for this pass
	for _, id := range h.order {
		h.rooms[id].tick()
	}
	metrics.TickDuration.Observe(time.Since(start).Seconds())
}

func (r *Room) tick() {
	if !r.started {
		return
	}

	score := r.pong.State.Score
	scorer := game.Side("")
	if score.Left > r.lastScore.Left {
		scorer = game.Left
	}
	if score.Right > r.lastScore.Right {
		scorer = game.Right
	}

	switch {
	case score.Left >= game.WinScore:
		r.finish(game.Left, "score")
		return
	case score.Right >= game.WinScore:
		r.finish(game.Right, "score")
		return
	}

	if scorer != "" {
		r.goalPause(scorer)
	}
	r.lastScore = score

	if r.paused {
		return
	}

	r.pong.Update(game.FrameTime, r.inputs)
	r.broadcast(stateMsg{State: r.pong.State})
}
