package ws

import (
	"fmt"
	"time"

	"pong_server/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

// SweepInterval is how often abandoned rooms are collected.
const SweepInterval = time.Minute

// Sweep removes rooms that are no longer being played and have nobody
// connected. It returns how many were dropped.
func (h *Hub) Sweep() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	var stale []string
	for _, id := range h.order {
		r := h.rooms[id]
		if !r.started && r.connections() == 0 && len(r.spectators) == 0 {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		h.removeRoom(id)
	}
	return len(stale)
}

// StartSweeper runs Sweep every interval. The caller shuts the scheduler down.
func (h *Hub) StartSweeper(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if n := h.Sweep(); n > 0 {
				logger.Info("swept idle rooms", "count", n)
			}
		}),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule room sweep: %w", err)
	}
	sched.Start()
	return sched, nil
}
