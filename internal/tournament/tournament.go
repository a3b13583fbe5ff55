package tournament

import (
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"pong_server/internal/domain"
	"pong_server/internal/logger"
	"pong_server/internal/metrics"
	"pong_server/internal/timer"
)

const (
	LobbySize = 4

	// BotResolveDelay is how long a bot-vs-bot match "plays" before a winner is drawn.
	BotResolveDelay = time.Second
	// TeardownDelay keeps the finished bracket on screen before the reset.
	TeardownDelay = 5 * time.Second

	SemiOneID = "m1"
	SemiTwoID = "m2"
	FinalID   = "final"
)

var (
	ErrTournamentStarted = errors.New("tournament already started")
	ErrLobbyFull         = errors.New("lobby already has 4 players")
	ErrNotParticipant    = errors.New("only a tournament participant can do that")
	ErrNeedFourSlots     = errors.New("a tournament needs exactly 4 players")
	ErrNoHumans          = errors.New("cannot launch a tournament of bots only")
	ErrUnknownMatch      = errors.New("unknown match")
	ErrModeLocked        = errors.New("render mode can no longer be changed")
	ErrModesPending      = errors.New("every player must choose a render mode first")
	ErrNotDecided        = errors.New("match result is decided by the game server")
)

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusDone    Status = "done"
)

// Conn is the outbound half of a tournament stream.
type Conn interface {
	Send(msg []byte) bool
	Close()
}

// Rooms creates game rooms for bracket matches. Called with the shared lock
// held; at least one seat is a human.
type Rooms interface {
	StartMatch(matchID string, left, right Seat) (roomID string)
}

// Results is the best-effort persistence sink for tournament credits.
type Results interface {
	IncrementTournamentsEntered(identity string)
	IncrementTournamentsWon(identity string)
}

// Match is one bracket node.
type Match struct {
	ID          string
	P1, P2      Participant
	Status      Status
	Winner      string
	RoomID      string
	PlayerModes map[string]Mode // "" while not chosen

	resolve *timer.Timeout
}

func (m *Match) seats() [2]Participant {
	return [2]Participant{m.P1, m.P2}
}

func (m *Match) botOnly() bool {
	return m.P1.IsBot() && m.P2.IsBot()
}

// sharedMode is the mode every human seat agreed on. Bot-only matches are 2d.
// Nil while a choice is missing, the picks differ or a seat cannot play.
func (m *Match) sharedMode() *Mode {
	var shared Mode
	for _, p := range m.seats() {
		if !p.CanPlay() {
			return nil
		}
		if p.IsBot() {
			continue
		}
		mode := m.PlayerModes[p.Name()]
		if mode == "" || (shared != "" && mode != shared) {
			return nil
		}
		shared = mode
	}
	if shared == "" {
		shared = Mode2D
	}
	return &shared
}

func (m *Match) has(name string) (Participant, bool) {
	for _, p := range m.seats() {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

type spectator struct {
	identity string
	conn     Conn
}

// Tournament is the process-wide bracket. Every exported method except
// MatchFinished takes the shared lock itself; MatchFinished is called by the
// game loop, which already holds it.
type Tournament struct {
	mu      sync.Locker
	rooms   Rooms
	results Results
	rng     *rand.Rand

	botDelay      time.Duration
	teardownDelay time.Duration

	slots   []Participant
	semis   []*Match
	final   *Match
	started bool

	spectators []spectator
	// conns is the single identity -> live connection table; seats only
	// hold identities.
	conns    map[string]Conn
	teardown *timer.Timeout
}

type Option func(*Tournament)

func WithRand(rng *rand.Rand) Option {
	return func(t *Tournament) {
		if rng != nil {
			t.rng = rng
		}
	}
}

func WithDelays(botResolve, teardown time.Duration) Option {
	return func(t *Tournament) {
		if botResolve > 0 {
			t.botDelay = botResolve
		}
		if teardown > 0 {
			t.teardownDelay = teardown
		}
	}
}

func New(mu sync.Locker, rooms Rooms, results Results, opts ...Option) *Tournament {
	t := &Tournament{
		mu:            mu,
		rooms:         rooms,
		results:       results,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		botDelay:      BotResolveDelay,
		teardownDelay: TeardownDelay,
		conns:         make(map[string]Conn),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.teardown = timer.New(mu)
	return t
}

// Connect subscribes conn and binds it as identity's live connection.
func (t *Tournament) Connect(identity string, conn Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conns[identity] = conn
	t.spectators = append(t.spectators, spectator{identity: identity, conn: conn})
	logger.Debug("tournament connect", "user", identity, "spectators", len(t.spectators))

	conn.Send(encode(slotsMsg{Type: "slots", Slots: slotViews(t.slots)}))
	conn.Send(t.bracketFor(identity))
}

// Disconnect drops conn from the spectators and unbinds it.
func (t *Tournament) Disconnect(identity string, conn Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.spectators {
		if s.conn == conn {
			t.spectators = append(t.spectators[:i], t.spectators[i+1:]...)
			break
		}
	}
	if t.conns[identity] == conn {
		delete(t.conns, identity)
	}

	// before launch, bots only stay while some human in the lobby is around
	if !t.started && !t.humanConnected() {
		kept := t.slots[:0]
		for _, p := range t.slots {
			if !p.IsBot() {
				kept = append(kept, p)
			}
		}
		t.slots = kept
	}
	t.broadcastSlots()
}

func (t *Tournament) humanConnected() bool {
	for _, p := range t.slots {
		if isHuman(p) && t.conns[p.Name()] != nil {
			return true
		}
	}
	return false
}

// Handle applies one action on behalf of identity. A rejected action is
// reported to conn as an error frame and leaves the state unchanged.
func (t *Tournament) Handle(identity string, conn Conn, a Action) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var err error
	switch a := a.(type) {
	case JoinAction:
		err = t.join(identity)
	case QuitAction:
		err = t.quit(identity)
	case AddBotAction:
		err = t.addBot()
	case RemoveBotAction:
		err = t.removeBot()
	case LaunchAction:
		err = t.launch(identity)
	case ChooseModeAction:
		err = t.chooseMode(identity, a.MatchID, a.Mode)
	case StartMatchAction:
		err = t.startMatch(identity, a.MatchID)
	case DeclareWinnerAction:
		err = t.clientDeclare(a.MatchID, a.Winner)
	}
	if err != nil {
		logger.Debug("tournament action rejected", "user", identity, "action", a.action(), "error", err)
		conn.Send(encode(errorMsg{Type: "error", Message: err.Error()}))
	}
}

func (t *Tournament) slotIndex(name string) int {
	for i, p := range t.slots {
		if p.Name() == name {
			return i
		}
	}
	return -1
}

func (t *Tournament) join(identity string) error {
	if t.started {
		return ErrTournamentStarted
	}
	if len(t.slots) >= LobbySize {
		return ErrLobbyFull
	}
	if t.slotIndex(identity) >= 0 {
		return nil
	}
	t.slots = append(t.slots, Human(identity))
	t.broadcastSlots()
	return nil
}

func (t *Tournament) quit(identity string) error {
	if t.started {
		return ErrTournamentStarted
	}
	i := t.slotIndex(identity)
	if i < 0 || !isHuman(t.slots[i]) {
		return ErrNotParticipant
	}
	t.slots = append(t.slots[:i], t.slots[i+1:]...)
	t.broadcastSlots()
	return nil
}

func (t *Tournament) addBot() error {
	if t.started {
		return ErrTournamentStarted
	}
	if len(t.slots) >= LobbySize {
		return ErrLobbyFull
	}
	name := ""
	for i := 1; ; i++ {
		name = "Bot" + strconv.Itoa(i)
		if t.slotIndex(name) < 0 {
			break
		}
	}
	t.slots = append(t.slots, Bot(name))
	t.broadcastSlots()
	return nil
}

func (t *Tournament) removeBot() error {
	if t.started {
		return ErrTournamentStarted
	}
	for i := len(t.slots) - 1; i >= 0; i-- {
		if t.slots[i].IsBot() {
			t.slots = append(t.slots[:i], t.slots[i+1:]...)
			t.broadcastSlots()
			return nil
		}
	}
	return nil
}

func (t *Tournament) launch(identity string) error {
	i := t.slotIndex(identity)
	if i < 0 || !isHuman(t.slots[i]) {
		return ErrNotParticipant
	}
	humans := 0
	for _, p := range t.slots {
		if isHuman(p) {
			humans++
		}
	}
	if humans == 0 {
		return ErrNoHumans
	}
	if t.started {
		return ErrTournamentStarted
	}
	if len(t.slots) != LobbySize {
		return ErrNeedFourSlots
	}

	t.started = true
	shuffled := append([]Participant(nil), t.slots...)
	t.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	t.semis = []*Match{
		t.newMatch(SemiOneID, shuffled[0], shuffled[1]),
		t.newMatch(SemiTwoID, shuffled[2], shuffled[3]),
	}
	t.final = t.newMatch(FinalID, Unknown{}, Unknown{})
	metrics.Tournaments.WithLabelValues("launched").Inc()
	logger.Info("tournament launched", "by", identity,
		"m1", shuffled[0].Name()+" vs "+shuffled[1].Name(),
		"m2", shuffled[2].Name()+" vs "+shuffled[3].Name())
	t.broadcastBracket()

	for _, p := range t.slots {
		if isHuman(p) {
			t.results.IncrementTournamentsEntered(p.Name())
		}
	}
	for _, m := range t.semis {
		t.autoResolve(m)
	}
	return nil
}

func (t *Tournament) newMatch(id string, p1, p2 Participant) *Match {
	m := &Match{
		ID:          id,
		P1:          p1,
		P2:          p2,
		Status:      StatusWaiting,
		PlayerModes: make(map[string]Mode),
		resolve:     timer.New(t.mu),
	}
	for _, p := range m.seats() {
		switch {
		case p.IsBot():
			// bots are never rendered
			m.PlayerModes[p.Name()] = Mode2D
		case p.CanPlay():
			m.PlayerModes[p.Name()] = ""
		}
	}
	return m
}

func (t *Tournament) match(id string) *Match {
	for _, m := range t.semis {
		if m.ID == id {
			return m
		}
	}
	if t.final != nil && t.final.ID == id {
		return t.final
	}
	return nil
}

func (t *Tournament) chooseMode(identity, matchID string, mode Mode) error {
	m := t.match(matchID)
	if m == nil {
		return ErrUnknownMatch
	}
	current, ok := m.PlayerModes[identity]
	if !ok {
		return ErrNotParticipant
	}
	if m.Status != StatusWaiting || current != "" {
		return ErrModeLocked
	}
	m.PlayerModes[identity] = mode
	t.broadcastBracket()
	return nil
}

func (t *Tournament) startMatch(identity, matchID string) error {
	m := t.match(matchID)
	if m == nil {
		return ErrUnknownMatch
	}

	switch m.Status {
	case StatusPlaying:
		if m.RoomID == "" {
			return nil
		}
		// reconnect: hand the room back to a returning player
		if p, ok := m.has(identity); ok && isHuman(p) {
			t.sendTo(identity, encode(gotoGameMsg{Type: "goto_game", MatchID: m.ID, RoomID: m.RoomID, Mode: m.PlayerModes[identity]}))
		}
		return nil
	case StatusDone:
		return nil
	}

	if t.walkover(m) {
		return nil
	}
	for _, p := range m.seats() {
		if p.CanPlay() && !p.IsBot() && m.PlayerModes[p.Name()] == "" {
			return ErrModesPending
		}
	}

	m.Status = StatusPlaying
	if m.botOnly() {
		t.broadcastBracket()
		t.autoResolve(m)
		return nil
	}

	m.RoomID = t.rooms.StartMatch(m.ID, seatOf(m.P1), seatOf(m.P2))
	logger.Info("tournament match started", "match", m.ID, "room", m.RoomID)
	t.broadcastBracket()
	for _, p := range m.seats() {
		if isHuman(p) {
			t.sendTo(p.Name(), encode(gotoGameMsg{Type: "goto_game", MatchID: m.ID, RoomID: m.RoomID, Mode: m.PlayerModes[p.Name()]}))
		}
	}
	return nil
}

// clientDeclare accepts a client-reported winner only as an echo of what the
// game loop already decided.
func (t *Tournament) clientDeclare(matchID, winner string) error {
	m := t.match(matchID)
	if m == nil {
		return ErrUnknownMatch
	}
	if m.Status == StatusDone && m.Winner == resolveWinner(m, winner) {
		return nil
	}
	return ErrNotDecided
}

// MatchFinished records the winner reported by a finished room and drives the
// bracket forward. Caller holds the lock.
func (t *Tournament) MatchFinished(matchID, winner string) {
	m := t.match(matchID)
	if m == nil {
		logger.Warn("finished room for unknown tournament match", "match", matchID, "winner", winner)
		return
	}
	t.declareWinner(m, winner)
}

// resolveWinner maps the AI sentinel to the bot seat's name.
func resolveWinner(m *Match, winner string) string {
	if winner != domain.AIIdentity {
		return winner
	}
	for _, p := range m.seats() {
		if p.IsBot() {
			return p.Name()
		}
	}
	return winner
}

func (t *Tournament) declareWinner(m *Match, winner string) {
	if m.Status == StatusDone {
		return
	}
	m.resolve.Cancel()
	winner = resolveWinner(m, winner)
	m.Status = StatusDone
	m.Winner = winner
	logger.Info("tournament match decided", "match", m.ID, "winner", winner)

	t.broadcast(encode(declareWinnerMsg{Type: "declare_winner", MatchID: m.ID, Winner: winner}))
	t.broadcastBracket()
	t.progress(m)
}

func (t *Tournament) progress(m *Match) {
	if m == t.final {
		metrics.Tournaments.WithLabelValues("finished").Inc()
		t.teardown.Arm(t.teardownDelay, t.reset)
		return
	}

	seat, ok := m.has(m.Winner)
	if !ok {
		logger.Warn("bracket winner matches no seat", "match", m.ID, "winner", m.Winner)
		seat = Unknown{}
	}
	if m.ID == SemiOneID {
		t.final.P1 = seat
	} else {
		t.final.P2 = seat
	}
	if ok {
		t.final.PlayerModes[seat.Name()] = m.PlayerModes[seat.Name()]
	}
	t.broadcastBracket()

	for _, s := range t.semis {
		if s.Status != StatusDone {
			return
		}
	}
	t.final.Status = StatusWaiting
	t.final.Winner = ""
	t.final.RoomID = ""
	t.broadcastBracket()
	if t.walkover(t.final) {
		return
	}
	t.autoResolve(t.final)
}

// walkover decides a match with a placeholder seat in favour of the other seat,
// since nobody can ever play the placeholder. It reports whether it did.
func (t *Tournament) walkover(m *Match) bool {
	if m.P1.CanPlay() && m.P2.CanPlay() {
		return false
	}
	winner := m.P1
	if !winner.CanPlay() {
		winner = m.P2
	}
	logger.Warn("match has an unplayable seat, walkover", "match", m.ID, "winner", winner.Name())
	t.declareWinner(m, winner.Name())
	return true
}

// autoResolve draws a random winner for a bot-only match after a short delay.
func (t *Tournament) autoResolve(m *Match) {
	if !m.botOnly() || m.Status == StatusDone || m.resolve.Pending() {
		return
	}
	winner := m.P1.Name()
	if t.rng.Float64() < 0.5 {
		winner = m.P2.Name()
	}
	m.resolve.Arm(t.botDelay, func() {
		t.declareWinner(m, winner)
	})
}

func (t *Tournament) reset() {
	winner := ""
	if t.final != nil {
		winner = t.final.Winner
	}
	if i := t.slotIndex(winner); winner != "" && i >= 0 && isHuman(t.slots[i]) {
		t.results.IncrementTournamentsWon(winner)
	}

	for _, p := range t.slots {
		if c := t.conns[p.Name()]; c != nil && isHuman(p) {
			c.Close()
		}
	}
	for _, m := range t.semis {
		m.resolve.Cancel()
	}
	if t.final != nil {
		t.final.resolve.Cancel()
	}

	t.slots = nil
	t.semis = nil
	t.final = nil
	t.started = false
	logger.Info("tournament reset", "winner", winner)

	t.broadcastSlots()
	t.broadcastBracket()
}

func (t *Tournament) sendTo(identity string, msg []byte) {
	if c := t.conns[identity]; c != nil {
		c.Send(msg)
	}
}

func (t *Tournament) broadcast(msg []byte) {
	for _, s := range t.spectators {
		s.conn.Send(msg)
	}
}

func (t *Tournament) broadcastSlots() {
	t.broadcast(encode(slotsMsg{Type: "slots", Slots: slotViews(t.slots)}))
}

func (t *Tournament) broadcastBracket() {
	for _, s := range t.spectators {
		s.conn.Send(t.bracketFor(s.identity))
	}
}

// bracketFor renders the bracket with "you" set when identity sits in the lobby.
func (t *Tournament) bracketFor(identity string) []byte {
	msg := bracketMsg{Type: "bracket", Slots: slotViews(t.slots), Matches: []MatchView{}}
	for _, m := range t.semis {
		msg.Matches = append(msg.Matches, m.view())
	}
	if t.final != nil {
		v := t.final.view()
		msg.Final = &v
	}
	if i := t.slotIndex(identity); i >= 0 && isHuman(t.slots[i]) {
		msg.You = &identity
	}
	return encode(msg)
}

// Snapshot is a read-only copy of the bracket for diagnostics and tests.
type Snapshot struct {
	Started bool
	Slots   []SlotView
	Matches []MatchView
	Final   *MatchView
}

func (t *Tournament) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{Started: t.started, Slots: slotViews(t.slots)}
	for _, m := range t.semis {
		s.Matches = append(s.Matches, m.view())
	}
	if t.final != nil {
		v := t.final.view()
		s.Final = &v
	}
	return s
}
