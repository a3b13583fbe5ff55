package ws

import (
	"time"

	"pong_server/internal/game"
	"pong_server/internal/logger"
)

const spectatorRole = "spectator"

// ConnectGameplay attaches conn to room roomID. Declared participants are
// rebound to conn; anyone else watches. A missing room gets an error frame and
// the stream is closed.
func (h *Hub) ConnectGameplay(roomID, identity string, conn Conn) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.room(roomID)
	if r == nil {
		conn.Send(encode(errorMsg{Type: "error", Message: "room not found"}))
		conn.Close()
		logger.Warn("gameplay connect to unknown room", "room", roomID, "user", identity)
		return ErrRoomNotFound
	}

	role := spectatorRole
	if p := r.participant(identity); p != nil {
		p.Conn = conn
		role = string(p.Side)
		logger.Info("player connected", "room", r.ID, "user", identity, "side", role)
	} else {
		r.spectators[conn] = struct{}{}
	}
	r.send(conn, initMsg{Type: "init", Player: role})

	if role != spectatorRole {
		r.reconnected()
	}
	if r.paused && !r.pauseUntil.IsZero() {
		r.send(conn, pauseMsg{Type: "pause", Until: r.pauseUntil.UnixMilli()})
	}
	return nil
}

// HandleGameplayMessage applies one decoded frame from identity's stream.
// Spectators and frames for a side the sender does not hold are ignored.
func (h *Hub) HandleGameplayMessage(roomID, identity string, msg GameplayMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.room(roomID)
	if r == nil {
		return
	}
	p := r.participant(identity)
	if p == nil {
		return
	}

	switch m := msg.(type) {
	case ReadyMessage:
		r.ready[identity] = struct{}{}
		if len(r.ready) >= len(r.clients) {
			clear(r.ready)
			if r.paused {
				logger.Info("all players ready, resuming", "room", r.ID)
			}
			r.resume()
		}
	case InputMessage:
		if m.Player == p.Side {
			r.inputs.Set(p.Side, m.Input)
		}
	case DualInputMessage:
		for _, side := range game.Sides {
			in := m.Left
			if side == game.Right {
				in = m.Right
			}
			if in == nil {
				continue
			}
			if owner := r.bySide(side); owner != nil && owner.Identity == identity {
				r.inputs.Set(side, *in)
			}
		}
	}
}

// DisconnectGameplay handles a closed gameplay stream. Losing the last player
// who can keep the match going pauses it for the grace period.
func (h *Hub) DisconnectGameplay(roomID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := h.room(roomID)
	if r == nil {
		return
	}
	if _, ok := r.spectators[conn]; ok {
		delete(r.spectators, conn)
		return
	}

	var left *Participant
	for _, p := range r.clients {
		if p.Conn == conn {
			p.Conn = nil
			left = p
		}
	}
	if left == nil {
		// stale stream, already replaced
		return
	}
	logger.Info("player disconnected", "room", r.ID, "user", left.Identity, "side", string(left.Side))

	if r.started && r.connectedSides() == r.pauseThreshold() {
		r.disconnectPause()
	}
	if !r.started && r.connections() == 0 {
		h.removeRoom(r.ID)
	}
}

// PauseRemaining reports how long a room stays paused. Zero when running.
func (h *Hub) PauseRemaining(roomID string) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.room(roomID)
	if r == nil || !r.paused || r.pauseUntil.IsZero() {
		return 0
	}
	return time.Until(r.pauseUntil)
}
