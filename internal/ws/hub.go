package ws

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"pong_server/internal/bot"
	"pong_server/internal/domain"
	"pong_server/internal/game"
	"pong_server/internal/logger"
	"pong_server/internal/metrics"
	"pong_server/internal/tournament"

	"github.com/google/uuid"
)

const (
	PrefixSolo       = "solo-"
	PrefixPvP        = "room-"
	PrefixTournament = "tourn-"

	GoalPause       = 2 * time.Second
	DisconnectGrace = 30 * time.Second
)

var ErrRoomNotFound = errors.New("room not found")

// Conn is the outbound half of one client stream. Send never blocks.
type Conn interface {
	Send(msg []byte) bool
	Close()
}

// ResultSink receives finished matches. Implemented by service.ResultService.
type ResultSink interface {
	RecordMatch(m domain.MatchResult)
}

// MatchListener is told when a tournament room finishes. Called with the hub
// lock held.
type MatchListener interface {
	MatchFinished(matchID, winner string)
}

// Timings groups every delay the hub arms.
type Timings struct {
	GoalPause       time.Duration
	DisconnectGrace time.Duration
	AIPredict       time.Duration
	AIInput         time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		GoalPause:       GoalPause,
		DisconnectGrace: DisconnectGrace,
		AIPredict:       bot.PredictInterval,
		AIInput:         bot.InputInterval,
	}
}

type waiter struct {
	identity string
	conn     Conn
}

// Hub is the room registry and the matchmaking queue. A single mutex guards
// rooms, the waiting list and (through the shared lock) the tournament: every
// tick, message handler and timer callback holds it for its whole run.
type Hub struct {
	mu      sync.Mutex
	cfg     game.Config
	timings Timings
	rng     *rand.Rand
	results ResultSink
	matches MatchListener

	rooms   map[string]*Room
	order   []string // insertion order, the tick order
	waiting []waiter
}

type Option func(*Hub)

func WithTimings(t Timings) Option {
	return func(h *Hub) { h.timings = t }
}

func WithRand(rng *rand.Rand) Option {
	return func(h *Hub) {
		if rng != nil {
			h.rng = rng
		}
	}
}

func NewHub(cfg game.Config, results ResultSink, opts ...Option) *Hub {
	h := &Hub{
		cfg:     cfg,
		timings: DefaultTimings(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		results: results,
		rooms:   make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Locker exposes the arena lock so the tournament shares it.
func (h *Hub) Locker() sync.Locker {
	return &h.mu
}

func (h *Hub) SetMatchListener(l MatchListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.matches = l
}

func (h *Hub) newRoomID(prefix string) string {
	for {
		id := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if _, taken := h.rooms[id]; !taken {
			return id
		}
	}
}

// createRoom registers a started room. Caller holds h.mu.
func (h *Hub) createRoom(prefix string, clients []*Participant, aiSide game.Side, aiName, matchID string) *Room {
	r := newRoom(h, h.newRoomID(prefix), clients)
	r.matchID = matchID
	if aiSide != "" {
		r.aiSide = aiSide
		r.aiName = aiName
		r.startAI()
	}
	h.rooms[r.ID] = r
	h.order = append(h.order, r.ID)
	metrics.RoomsActive.WithLabelValues(r.Kind()).Inc()

	logger.Info("room created", "room", r.ID, "clients", r.identities(), "ai", string(aiSide))
	return r
}

// room returns the room with id, or nil. Caller holds h.mu.
func (h *Hub) room(id string) *Room {
	return h.rooms[id]
}

// removeRoom drops a room and everything it armed. Caller holds h.mu.
func (h *Hub) removeRoom(id string) {
	r, ok := h.rooms[id]
	if !ok {
		return
	}
	r.shutdown()
	delete(h.rooms, id)
	for i, rid := range h.order {
		if rid == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	metrics.RoomsActive.WithLabelValues(r.Kind()).Dec()
	logger.Info("room removed", "room", id)
}

// StartMatch opens a room for a tournament match. Bot seats are played by an
// AI opponent. Caller holds h.mu.
func (h *Hub) StartMatch(matchID string, left, right tournament.Seat) string {
	var (
		clients []*Participant
		aiSide  game.Side
		aiName  string
	)
	for side, seat := range map[game.Side]tournament.Seat{game.Left: left, game.Right: right} {
		if seat.Bot {
			aiSide, aiName = side, seat.Name
			continue
		}
		clients = append(clients, &Participant{Side: side, Identity: seat.Name})
	}
	sortBySide(clients)
	return h.createRoom(PrefixTournament, clients, aiSide, aiName, matchID).ID
}

func sortBySide(ps []*Participant) {
	if len(ps) == 2 && ps[0].Side == game.Right {
		ps[0], ps[1] = ps[1], ps[0]
	}
}

// RoomInfo is the public summary of a room.
type RoomInfo struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Started   bool       `json:"started"`
	Paused    bool       `json:"paused"`
	Score     game.Score `json:"score"`
	Players   []string   `json:"players"`
	Connected int        `json:"connected"`
	AI        game.Side  `json:"ai,omitempty"`
	MatchID   string     `json:"matchId,omitempty"`
}

// Snapshot lists every room in tick order.
func (h *Hub) Snapshot() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]RoomInfo, 0, len(h.order))
	for _, id := range h.order {
		r := h.rooms[id]
		out = append(out, RoomInfo{
			ID:        r.ID,
			Kind:      r.Kind(),
			Started:   r.started,
			Paused:    r.paused,
			Score:     r.pong.State.Score,
			Players:   r.identities(),
			Connected: r.connectedSides(),
			AI:        r.aiSide,
			MatchID:   r.matchID,
		})
	}
	return out
}

// Waiting returns the identities queued for pvp, oldest first.
func (h *Hub) Waiting() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.waiting))
	for _, w := range h.waiting {
		out = append(out, w.identity)
	}
	return out
}

// Shutdown stops every AI opponent and pending timer.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.order {
		h.rooms[id].shutdown()
	}
}
