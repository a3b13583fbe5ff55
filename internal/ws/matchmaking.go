package ws

import (
	"strings"

	"pong_server/internal/game"
	"pong_server/internal/logger"
	"pong_server/internal/metrics"
)

const (
	ModeAI  = "ai"
	ModePvP = "pvp"
)

// NormalizeMode maps the query value to a matchmaking mode; anything that is
// not an AI request means pvp.
func NormalizeMode(mode string) string {
	switch strings.ToLower(mode) {
	case "ai", "bot", "solo":
		return ModeAI
	}
	return ModePvP
}

// Join places identity in a match: it rebinds an existing room, starts a room
// against the AI, queues for pvp, or pairs with the oldest waiting player.
func (h *Hub) Join(identity, mode string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if NormalizeMode(mode) == ModeAI {
		h.joinAI(identity, conn)
		return
	}
	h.joinPvP(identity, conn)
}

func (h *Hub) joinAI(identity string, conn Conn) {
	if r, p := h.activeRoomOf(identity, PrefixSolo); r != nil {
		p.Conn = conn
		r.reconnected()
		logger.Info("matchmaking: back to solo room", "user", identity, "room", r.ID)
		r.send(conn, matchFoundMsg{Type: "match_found", RoomID: r.ID, Side: p.Side, Opponent: r.aiName, You: identity, Bot: true})
		return
	}

	aiSide := game.Left
	if h.rng.Float64() < 0.5 {
		aiSide = game.Right
	}
	human := &Participant{Side: aiSide.Opposite(), Identity: identity, Conn: conn}
	r := h.createRoom(PrefixSolo, []*Participant{human}, aiSide, "bot", "")
	r.send(conn, matchFoundMsg{Type: "match_found", RoomID: r.ID, Side: human.Side, Opponent: r.aiName, You: identity, Bot: true})
}

func (h *Hub) joinPvP(identity string, conn Conn) {
	// switching away from a solo game abandons it outright
	for _, id := range append([]string(nil), h.order...) {
		r := h.rooms[id]
		if strings.HasPrefix(id, PrefixSolo) && r.participant(identity) != nil {
			logger.Info("matchmaking: dropping solo room", "user", identity, "room", id)
			h.removeRoom(id)
		}
	}

	if r, p := h.activeRoomOf(identity, ""); r != nil {
		if p.Conn != nil && p.Conn != conn {
			p.Conn.Close()
		}
		p.Conn = conn
		r.reconnected()
		logger.Info("matchmaking: back to room", "user", identity, "room", r.ID)
		r.send(conn, matchFoundMsg{
			Type:     "match_found",
			RoomID:   r.ID,
			Side:     p.Side,
			Opponent: r.opponentOf(p.Side),
			You:      identity,
			Bot:      r.aiSide != "",
		})
		return
	}

	for i, w := range h.waiting {
		if w.identity == identity {
			// same player again: keep the queue slot, take the new stream
			h.waiting[i].conn = conn
			conn.Send(encode(typeMsg{Type: "waiting"}))
			return
		}
	}

	if len(h.waiting) == 0 {
		h.waiting = append(h.waiting, waiter{identity: identity, conn: conn})
		metrics.MatchmakingWaiting.Set(float64(len(h.waiting)))
		logger.Info("matchmaking: waiting", "user", identity)
		conn.Send(encode(typeMsg{Type: "waiting"}))
		return
	}

	opponent := h.waiting[0]
	h.waiting = h.waiting[1:]
	metrics.MatchmakingWaiting.Set(float64(len(h.waiting)))

	left := &Participant{Side: game.Left, Identity: opponent.identity, Conn: opponent.conn}
	right := &Participant{Side: game.Right, Identity: identity, Conn: conn}
	r := h.createRoom(PrefixPvP, []*Participant{left, right}, "", "", "")

	r.send(left.Conn, matchFoundMsg{Type: "match_found", RoomID: r.ID, Side: game.Left, Opponent: identity, You: opponent.identity})
	r.send(right.Conn, matchFoundMsg{Type: "match_found", RoomID: r.ID, Side: game.Right, Opponent: opponent.identity, You: identity})
}

// activeRoomOf finds a running room where identity plays. An empty prefix
// matches any room.
func (h *Hub) activeRoomOf(identity, prefix string) (*Room, *Participant) {
	for _, id := range h.order {
		r := h.rooms[id]
		if !r.started || !strings.HasPrefix(id, prefix) {
			continue
		}
		if p := r.participant(identity); p != nil {
			return r, p
		}
	}
	return nil, nil
}

// Leave forgets a closed matchmaking stream: it leaves the queue, and rooms
// drop the reference without being torn down.
func (h *Hub) Leave(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.waiting[:0]
	for _, w := range h.waiting {
		if w.conn != conn {
			kept = append(kept, w)
		}
	}
	h.waiting = kept
	metrics.MatchmakingWaiting.Set(float64(len(h.waiting)))

	for _, id := range h.order {
		for _, p := range h.rooms[id].clients {
			if p.Conn == conn {
				p.Conn = nil
			}
		}
	}
}
