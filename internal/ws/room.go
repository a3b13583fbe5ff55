package ws

import (
	"math/rand"
	"strings"
	"time"

	"pong_server/internal/bot"
	"pong_server/internal/domain"
	"pong_server/internal/game"
	"pong_server/internal/logger"
	"pong_server/internal/metrics"
	"pong_server/internal/timer"
)

// Participant is a declared player of a room. Conn is nil while disconnected.
// Side never changes after creation; only Conn is rebound.
type Participant struct {
	Side     game.Side
	Identity string
	Conn     Conn
}

// Room is the runtime state of one match. Every field is guarded by the hub lock.
type Room struct {
	ID  string
	hub *Hub

	pong    *game.Pong
	clients []*Participant
	inputs  game.Inputs

	spectators map[Conn]struct{}

	started    bool
	paused     bool
	finished   bool
	lastScore  game.Score
	lastScorer game.Side
	pauseUntil time.Time

	aiSide  game.Side
	aiName  string
	ai      *bot.Opponent
	matchID string

	ready           map[string]struct{}
	pauseTimer      *timer.Timeout
	disconnectTimer *timer.Timeout

	createdAt time.Time
}

func newRoom(h *Hub, id string, clients []*Participant) *Room {
	return &Room{
		ID:              id,
		hub:             h,
		pong:            game.NewPong(h.cfg, rand.New(rand.NewSource(h.rng.Int63()))),
		clients:         clients,
		spectators:      make(map[Conn]struct{}),
		started:         true,
		ready:           make(map[string]struct{}),
		pauseTimer:      timer.New(&h.mu),
		disconnectTimer: timer.New(&h.mu),
		createdAt:       time.Now(),
	}
}

func (r *Room) Kind() string {
	switch {
	case strings.HasPrefix(r.ID, PrefixSolo):
		return "solo"
	case strings.HasPrefix(r.ID, PrefixTournament):
		return "tournament"
	}
	return "pvp"
}

// bot.Table

func (r *Room) Ball() game.Ball { return r.pong.State.Ball }
func (r *Room) Paddle(side game.Side) game.Paddle { return *r.pong.State.Paddle(side) }
func (r *Room) Paused() bool { return r.paused }
func (r *Room) SetInput(side game.Side, in game.Input) { r.inputs.Set(side, in) }

func (r *Room) participant(identity string) *Participant {
	for _, p := range r.clients {
		if p.Identity == identity {
			return p
		}
	}
	return nil
}

func (r *Room) bySide(side game.Side) *Participant {
	for _, p := range r.clients {
		if p.Side == side {
			return p
		}
	}
	return nil
}

func (r *Room) identities() []string {
	out := make([]string, 0, len(r.clients))
	for _, p := range r.clients {
		out = append(out, p.Identity)
	}
	return out
}

// connectedSides counts distinct sides with a live connection.
func (r *Room) connectedSides() int {
	seen := map[game.Side]bool{}
	for _, p := range r.clients {
		if p.Conn != nil {
			seen[p.Side] = true
		}
	}
	return len(seen)
}

func (r *Room) connections() int {
	n := 0
	for _, p := range r.clients {
		if p.Conn != nil {
			n++
		}
	}
	return n
}

// pauseThreshold is the connected-side count at which play cannot go on.
func (r *Room) pauseThreshold() int {
	if r.aiSide != "" {
		return 0
	}
	return 1
}

// displayName is what clients see for side.
func (r *Room) displayName(side game.Side) string {
	if p := r.bySide(side); p != nil {
		return p.Identity
	}
	if side == r.aiSide {
		return r.aiName
	}
	return string(side)
}

func (r *Room) opponentOf(side game.Side) string {
	return r.displayName(side.Opposite())
}

func (r *Room) startAI() {
	r.stopAI()
	r.ai = bot.New(r.aiSide, r.hub.cfg, r, &r.hub.mu,
		bot.WithIntervals(r.hub.timings.AIPredict, r.hub.timings.AIInput))
	r.ai.Start()
}

func (r *Room) stopAI() {
	if r.ai != nil {
		r.ai.Stop()
		r.ai = nil
	}
}

func (r *Room) send(c Conn, v any) {
	if c != nil {
		c.Send(encode(v))
	}
}

// broadcast sends v to every connected participant and spectator.
func (r *Room) broadcast(v any) {
	msg := encode(v)
	for _, p := range r.clients {
		if p.Conn != nil {
			p.Conn.Send(msg)
		}
	}
	for c := range r.spectators {
		c.Send(msg)
	}
}

// goalPause freezes play for a short courtesy pause after a point.
func (r *Room) goalPause(scorer game.Side) {
	r.paused = true
	r.lastScorer = scorer
	r.pauseUntil = time.Now().Add(r.hub.timings.GoalPause)
	r.inputs = game.Inputs{}
	r.broadcast(pauseMsg{Type: "pause", Scorer: r.displayName(scorer)})

	r.pauseTimer.Arm(r.hub.timings.GoalPause, func() {
		r.paused = false
		r.pauseUntil = time.Time{}
		r.broadcast(typeMsg{Type: "resume"})
	})
}

// disconnectPause waits for a missing player before forfeiting the match.
func (r *Room) disconnectPause() {
	r.paused = true
	r.pauseUntil = time.Now().Add(r.hub.timings.DisconnectGrace)
	r.inputs = game.Inputs{}
	clear(r.ready)
	r.pauseTimer.Cancel()
	r.broadcast(pauseMsg{Type: "pause", Until: r.pauseUntil.UnixMilli()})
	logger.Info("room paused for reconnect", "room", r.ID, "until", r.pauseUntil)

	r.disconnectTimer.Arm(r.hub.timings.DisconnectGrace, r.graceExpired)
}

// resume ends any pause early. It is a no-op when the room is not paused.
func (r *Room) resume() {
	if !r.paused {
		return
	}
	r.pauseTimer.Cancel()
	r.disconnectTimer.Cancel()
	r.paused = false
	r.pauseUntil = time.Time{}
	clear(r.ready)
	r.broadcast(typeMsg{Type: "resume"})
}

// reconnected resumes a room waiting out a disconnect once enough sides are back.
func (r *Room) reconnected() {
	if r.disconnectTimer.Pending() && r.connectedSides() > r.pauseThreshold() {
		logger.Info("player back, resuming", "room", r.ID)
		r.resume()
	}
}

func (r *Room) graceExpired() {
	winner := game.Side("")
	for _, p := range r.clients {
		if p.Conn != nil {
			winner = p.Side
			break
		}
	}
	if winner == "" && r.aiSide != "" {
		winner = r.aiSide
	}
	if winner == "" && r.matchID != "" {
		// a bracket cannot wait on an abandoned match: the leader goes through
		winner = game.Left
		if r.pong.State.Score.Right > r.pong.State.Score.Left {
			winner = game.Right
		}
	}

	if winner != "" {
		r.finish(winner, "forfeit")
	} else {
		logger.Info("grace expired with nobody left", "room", r.ID)
		r.started = false
		r.paused = false
		r.pauseUntil = time.Time{}
		r.stopAI()
	}
	if r.connections() == 0 {
		r.hub.removeRoom(r.ID)
	}
}

// finish ends the match exactly once: end notice, one persisted result and
// tournament progression.
func (r *Room) finish(winner game.Side, reason string) {
	if r.finished {
		return
	}
	r.finished = true
	r.started = false
	r.paused = false
	r.pauseUntil = time.Time{}
	r.pauseTimer.Cancel()
	r.disconnectTimer.Cancel()
	r.stopAI()

	name := r.displayName(winner)
	r.broadcast(endMsg{Type: "end", Winner: name})
	metrics.MatchesFinished.WithLabelValues(r.Kind(), reason).Inc()
	logger.Info("match over", "room", r.ID, "winner", name, "reason", reason,
		"score_left", r.pong.State.Score.Left, "score_right", r.pong.State.Score.Right)

	if r.hub.results != nil {
		r.hub.results.RecordMatch(r.result(winner))
	}
	if r.matchID != "" && r.hub.matches != nil {
		r.hub.matches.MatchFinished(r.matchID, name)
	}
}

// result builds the persisted record. With an AI side the bot is player one
// under the AI identity, as the score history expects.
func (r *Room) result(winner game.Side) domain.MatchResult {
	score := r.pong.State.Score
	identity := func(side game.Side) string {
		if side == r.aiSide {
			return domain.AIIdentity
		}
		if p := r.bySide(side); p != nil {
			return p.Identity
		}
		return string(side)
	}

	first, second := game.Left, game.Right
	if r.aiSide == game.Right {
		first, second = game.Right, game.Left
	}
	w := identity(winner)
	return domain.MatchResult{
		RoomID:  r.ID,
		Player1: identity(first),
		Player2: identity(second),
		Score1:  score.Of(first),
		Score2:  score.Of(second),
		Winner:  &w,
	}
}

// shutdown releases the AI and every timer.
func (r *Room) shutdown() {
	r.stopAI()
	r.pauseTimer.Cancel()
	r.disconnectTimer.Cancel()
}
