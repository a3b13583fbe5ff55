package bot

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pong_server/internal/game"
)

type fakeTable struct {
	ball    game.Ball
	paddles map[game.Side]game.Paddle
	paused  bool
	inputs  map[game.Side]game.Input
	sets    int
}

func newFakeTable(cfg game.Config) *fakeTable {
	pad := game.Paddle{Y: (cfg.Height - cfg.PaddleHeight) / 2, Height: cfg.PaddleHeight, Speed: cfg.PaddleSpeed}
	return &fakeTable{
		ball:    game.Ball{Position: game.Vec2{X: cfg.Width / 2, Y: cfg.Height / 2}, Radius: cfg.BallRadius},
		paddles: map[game.Side]game.Paddle{game.Left: pad, game.Right: pad},
		inputs:  map[game.Side]game.Input{},
	}
}

func (f *fakeTable) Ball() game.Ball { return f.ball }
func (f *fakeTable) Paddle(s game.Side) game.Paddle { return f.paddles[s] }
func (f *fakeTable) Paused() bool { return f.paused }
func (f *fakeTable) SetInput(s game.Side, in game.Input) { f.inputs[s] = in; f.sets++ }

func newTestOpponent(side game.Side, table *fakeTable, seed int64) *Opponent {
	return New(side, game.DefaultConfig(), table, &sync.Mutex{}, WithRand(rand.New(rand.NewSource(seed))))
}

func TestPredictRecomputesOnlyOnDirectionOrVerticalFlip(t *testing.T) {
	cfg := game.DefaultConfig()
	table := newFakeTable(cfg)
	o := newTestOpponent(game.Right, table, 1)

	// heading away from the bot: nothing to predict
	table.ball.Velocity = game.Vec2{X: -300, Y: 50}
	assert.False(t, o.predictTick())
	assert.False(t, o.hasTarget)

	// turns toward the bot
	table.ball.Velocity = game.Vec2{X: 300, Y: 50}
	assert.True(t, o.predictTick())
	assert.True(t, o.hasTarget)

	// same direction, same vertical sign, different magnitude: no recompute
	table.ball.Velocity = game.Vec2{X: 330, Y: 80}
	assert.False(t, o.predictTick())

	// wall bounce flips the vertical sign
	table.ball.Velocity = game.Vec2{X: 330, Y: -80}
	assert.True(t, o.predictTick())

	// unrelated tick
	table.ball.Position.X += 40
	assert.False(t, o.predictTick())

	// ball turns away: stale prediction is discarded
	table.ball.Velocity = game.Vec2{X: -330, Y: -80}
	assert.False(t, o.predictTick())
	assert.False(t, o.hasTarget)
}

func TestFirstPredictTickIgnoresMissingPreviousVelocity(t *testing.T) {
	table := newFakeTable(game.DefaultConfig())
	o := newTestOpponent(game.Left, table, 1)

	table.ball.Velocity = game.Vec2{X: 300, Y: -10}
	assert.False(t, o.predictTick(), "no previous vertical velocity to compare against")
}

func TestPredictYStraightShot(t *testing.T) {
	cfg := game.DefaultConfig()
	b := game.Ball{Position: game.Vec2{X: cfg.Width / 2, Y: 200}, Velocity: game.Vec2{X: 400, Y: 0}}
	assert.Equal(t, 200.0, PredictY(b, cfg, game.Right))
	b.Velocity.X = -400
	assert.Equal(t, 200.0, PredictY(b, cfg, game.Left))
}

func TestPredictYBouncesOffWalls(t *testing.T) {
	cfg := game.DefaultConfig()
	b := game.Ball{Position: game.Vec2{X: cfg.Width / 2, Y: 20}, Velocity: game.Vec2{X: 360, Y: -360}}

	y := PredictY(b, cfg, game.Right)
	assert.GreaterOrEqual(t, y, 0.0)
	assert.LessOrEqual(t, y, cfg.Height)
	// after bouncing off the top the ball travels downward for the rest of the flight
	assert.Greater(t, y, 20.0)
}

func TestPredictYTerminatesWhenBallNeverArrives(t *testing.T) {
	cfg := game.DefaultConfig()
	b := game.Ball{Position: game.Vec2{X: cfg.Width / 2, Y: 100}, Velocity: game.Vec2{X: 0, Y: 120}}

	done := make(chan float64, 1)
	go func() { done <- PredictY(b, cfg, game.Right) }()
	select {
	case y := <-done:
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, cfg.Height)
	case <-time.After(time.Second):
		t.Fatal("prediction did not terminate")
	}
}

func TestInputTickIdleWithoutPredictionOrWhenPaused(t *testing.T) {
	table := newFakeTable(game.DefaultConfig())
	o := newTestOpponent(game.Right, table, 1)

	table.inputs[game.Right] = game.Input{Up: true}
	o.inputTick()
	assert.Equal(t, game.Input{}, table.inputs[game.Right])

	o.target, o.hasTarget = 0, true
	table.paused = true
	table.inputs[game.Right] = game.Input{Down: true}
	o.inputTick()
	assert.Equal(t, game.Input{}, table.inputs[game.Right])
}

func TestInputTickMovesTowardTarget(t *testing.T) {
	cfg := game.DefaultConfig()
	table := newFakeTable(cfg)
	o := newTestOpponent(game.Left, table, 42)

	o.target, o.hasTarget = 10, true
	ups, downs := 0, 0
	for i := 0; i < 500; i++ {
		o.inputTick()
		in := table.inputs[game.Left]
		if in.Up {
			ups++
		}
		if in.Down {
			downs++
		}
	}
	assert.Zero(t, downs, "target above the paddle never yields a down input")
	// hesitation skips roughly one tick in ten
	assert.Greater(t, ups, 400)
	assert.Less(t, ups, 500)
}

func TestInputTickInsideDeadZoneMostlyIdle(t *testing.T) {
	cfg := game.DefaultConfig()
	table := newFakeTable(cfg)
	o := newTestOpponent(game.Left, table, 9)

	o.target, o.hasTarget = table.paddles[game.Left].Center()+DeadZone/2, true
	moves := 0
	for i := 0; i < 2000; i++ {
		o.inputTick()
		in := table.inputs[game.Left]
		if in.Up || in.Down {
			moves++
		}
	}
	// only jitter moves the paddle here
	assert.Greater(t, moves, 0)
	assert.Less(t, moves, 120)
}

func TestStopClearsStateAndHaltsTimers(t *testing.T) {
	cfg := game.DefaultConfig()
	table := newFakeTable(cfg)
	var mu sync.Mutex
	o := New(game.Right, cfg, table, &mu, WithIntervals(2*time.Millisecond, time.Millisecond))

	table.ball.Velocity = game.Vec2{X: 300, Y: 40}
	mu.Lock()
	o.Start()
	mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return o.hasTarget && table.sets > 0
	}, time.Second, time.Millisecond)

	mu.Lock()
	o.Stop()
	o.Stop()
	assert.False(t, o.hasTarget)
	assert.False(t, o.hasPrevVy)
	sets := table.sets
	mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, sets, table.sets, "no input may be emitted after Stop")
}
