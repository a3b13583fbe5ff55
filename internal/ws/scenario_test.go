package ws

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pong_server/internal/domain"
	"pong_server/internal/game"
	"pong_server/internal/tournament"
)

type arena struct {
	hub     *Hub
	cup     *tournament.Tournament
	results *fakeResults
	conns   map[string]*fakeConn
}

func newArena(t *testing.T) *arena {
	t.Helper()
	h, results := newTestHub(t, testTimings())
	cup := tournament.New(h.Locker(), h, results,
		tournament.WithRand(rand.New(rand.NewSource(3))),
		tournament.WithDelays(5*time.Millisecond, 30*time.Millisecond))
	h.SetMatchListener(cup)
	return &arena{hub: h, cup: cup, results: results, conns: map[string]*fakeConn{}}
}

func (a *arena) connect(identity string) {
	c := &fakeConn{}
	a.conns[identity] = c
	a.cup.Connect(identity, c)
}

func (a *arena) do(identity string, action tournament.Action) {
	a.cup.Handle(identity, a.conns[identity], action)
}

func (a *arena) match(id string) tournament.MatchView {
	s := a.cup.Snapshot()
	if id == tournament.FinalID {
		return *s.Final
	}
	for _, m := range s.Matches {
		if m.ID == id {
			return m
		}
	}
	return tournament.MatchView{}
}

// play starts match id for every human seat and makes side win it.
func (a *arena) play(t *testing.T, id string, winner game.Side) string {
	t.Helper()
	m := a.match(id)
	for _, seat := range []tournament.SlotView{m.P1, m.P2} {
		if !seat.IsBot {
			a.do(seat.Name, tournament.ChooseModeAction{MatchID: id, Mode: tournament.Mode2D})
		}
	}
	for _, seat := range []tournament.SlotView{m.P1, m.P2} {
		if !seat.IsBot {
			a.do(seat.Name, tournament.StartMatchAction{MatchID: id})
		}
	}

	m = a.match(id)
	require.Equal(t, tournament.StatusPlaying, m.Status)
	require.NotNil(t, m.RoomID)
	roomID := *m.RoomID
	assert.Contains(t, roomID, PrefixTournament)

	setScore(a.hub, roomID, winner, game.WinScore)
	a.hub.Tick()

	if winner == game.Left {
		return m.P1.Name
	}
	return m.P2.Name
}

func TestStartMatchSeatsBotAsAIOpponent(t *testing.T) {
	h, _ := newTestHub(t, testTimings())

	h.mu.Lock()
	roomID := h.StartMatch("m1", tournament.Seat{Name: "Bot2", Bot: true}, tournament.Seat{Name: "alice"})
	h.mu.Unlock()

	rooms := h.Snapshot()
	require.Len(t, rooms, 1)
	assert.Equal(t, roomID, rooms[0].ID)
	assert.Equal(t, "tournament", rooms[0].Kind)
	assert.Equal(t, game.Left, rooms[0].AI)
	assert.Equal(t, "m1", rooms[0].MatchID)
	assert.Equal(t, []string{"alice"}, rooms[0].Players)

	g := &fakeConn{}
	require.NoError(t, h.ConnectGameplay(roomID, "alice", g))
	assert.Equal(t, "right", g.last("init")["player"])
}

func TestTournamentWithFourHumans(t *testing.T) {
	a := newArena(t)
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		a.connect(name)
		a.do(name, tournament.JoinAction{})
	}
	a.do("alice", tournament.LaunchAction{})
	require.True(t, a.cup.Snapshot().Started)

	w1 := a.play(t, tournament.SemiOneID, game.Left)
	w2 := a.play(t, tournament.SemiTwoID, game.Right)

	final := a.match(tournament.FinalID)
	assert.Equal(t, w1, final.P1.Name)
	assert.Equal(t, w2, final.P2.Name)
	assert.Equal(t, tournament.StatusWaiting, final.Status)
	require.NotNil(t, final.PlayerModes[w1], "final keeps the semi mode")

	champion := a.play(t, tournament.FinalID, game.Left)
	assert.Equal(t, w1, champion)

	// a finished room pushes one result per match
	assert.Len(t, a.results.recorded(), 3)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol", "dave"}, a.results.enteredAll())

	require.Eventually(t, func() bool { return !a.cup.Snapshot().Started }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{champion}, a.results.wins())
	for name, c := range a.conns {
		assert.True(t, c.isClosed(), name)
	}
}

func TestTournamentHumanLosesToBot(t *testing.T) {
	a := newArena(t)
	a.connect("alice")
	a.do("alice", tournament.JoinAction{})
	for i := 0; i < 3; i++ {
		a.do("alice", tournament.AddBotAction{})
	}
	a.do("alice", tournament.LaunchAction{})

	s := a.cup.Snapshot()
	var aliceMatch tournament.MatchView
	for _, m := range s.Matches {
		if m.P1.Name == "alice" || m.P2.Name == "alice" {
			aliceMatch = m
		}
	}
	require.NotEmpty(t, aliceMatch.ID)

	// the bot-only semi resolves on its own without a room
	require.Eventually(t, func() bool {
		for _, m := range a.cup.Snapshot().Matches {
			if m.ID != aliceMatch.ID && m.Status == tournament.StatusDone {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	botSide := game.Left
	if aliceMatch.P1.Name == "alice" {
		botSide = game.Right
	}
	winner := a.play(t, aliceMatch.ID, botSide)
	assert.NotEqual(t, "alice", winner)

	got := a.results.recorded()
	require.Len(t, got, 1)
	assert.Equal(t, domain.AIIdentity, got[0].Player1)
	assert.Equal(t, "alice", got[0].Player2)

	// two bots in the final: it resolves and the lobby resets
	require.Eventually(t, func() bool { return !a.cup.Snapshot().Started }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, a.results.wins())
	assert.Equal(t, []string{"alice"}, a.results.enteredAll())
	assert.True(t, a.conns["alice"].isClosed())
}
