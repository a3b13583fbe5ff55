package bot

import (
	"math/rand"
	"sync"
	"time"

	"pong_server/internal/game"
)

const (
	PredictInterval = time.Second
	InputInterval   = time.Second / 60

	// HesitationChance is the probability of skipping a reaction on an input tick.
	HesitationChance = 0.1
	// JitterChance is the probability of a spurious move when otherwise idle.
	JitterChance = 0.02
	// DeadZone is how close (px) the paddle center must be to the target to stop.
	DeadZone = 4.0
	// MaxPredictSteps bounds the trajectory simulation.
	MaxPredictSteps = 1000
)

// Table is the part of a room the opponent reads and drives. Every call is
// made while holding the lock passed to New.
type Table interface {
	Ball() game.Ball
	Paddle(side game.Side) game.Paddle
	Paused() bool
	SetInput(side game.Side, in game.Input)
}

// Opponent plays one side of a room as if it were a remote player.
type Opponent struct {
	side  game.Side
	cfg   game.Config
	table Table
	mu    sync.Locker
	rng   *rand.Rand

	predictEvery time.Duration
	inputEvery   time.Duration

	target     float64
	hasTarget  bool
	goingToBot bool
	prevVy     float64
	hasPrevVy  bool

	started bool
	stopped bool
	stop    chan struct{}
}

type Option func(*Opponent)

// WithRand makes the opponent's reactions reproducible.
func WithRand(rng *rand.Rand) Option {
	return func(o *Opponent) {
		if rng != nil {
			o.rng = rng
		}
	}
}

// WithIntervals overrides the prediction and input cadence.
func WithIntervals(predict, input time.Duration) Option {
	return func(o *Opponent) {
		if predict > 0 {
			o.predictEvery = predict
		}
		if input > 0 {
			o.inputEvery = input
		}
	}
}

func New(side game.Side, cfg game.Config, table Table, mu sync.Locker, opts ...Option) *Opponent {
	o := &Opponent{
		side:         side,
		cfg:          cfg,
		table:        table,
		mu:           mu,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		predictEvery: PredictInterval,
		inputEvery:   InputInterval,
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Opponent) Side() game.Side {
	return o.side
}

// Start launches both timers. Caller holds the lock.
func (o *Opponent) Start() {
	if o.started || o.stopped {
		return
	}
	o.started = true
	go o.run()
}

// Stop cancels both timers and drops the cached prediction. Caller holds the
// lock. Safe to call more than once.
func (o *Opponent) Stop() {
	if o.stopped {
		return
	}
	o.stopped = true
	o.hasTarget = false
	o.goingToBot = false
	o.hasPrevVy = false
	close(o.stop)
}

func (o *Opponent) run() {
	predict := time.NewTicker(o.predictEvery)
	input := time.NewTicker(o.inputEvery)
	defer predict.Stop()
	defer input.Stop()

	for {
		select {
		case <-o.stop:
			return
		case <-predict.C:
			if !o.locked(func() { o.predictTick() }) {
				return
			}
		case <-input.C:
			if !o.locked(o.inputTick) {
				return
			}
		}
	}
}

func (o *Opponent) locked(fn func()) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stopped {
		return false
	}
	fn()
	return true
}

func (o *Opponent) headingToBot(b game.Ball) bool {
	if o.side == game.Right {
		return b.Velocity.X > 0
	}
	return b.Velocity.X < 0
}

// predictTick refreshes the target when the ball turns toward the bot or
// its vertical direction flips. It reports whether a new target was computed.
func (o *Opponent) predictTick() bool {
	b := o.table.Ball()
	going := o.headingToBot(b)

	verticalFlip := o.hasPrevVy && sign(b.Velocity.Y) != sign(o.prevVy)
	o.prevVy, o.hasPrevVy = b.Velocity.Y, true

	if !going && o.goingToBot {
		o.hasTarget = false
	}

	recomputed := false
	if (going && !o.goingToBot) || verticalFlip {
		o.target = PredictY(b, o.cfg, o.side)
		o.hasTarget = true
		recomputed = true
	}
	o.goingToBot = going
	return recomputed
}

func (o *Opponent) inputTick() {
	if o.table.Paused() || !o.hasTarget {
		o.table.SetInput(o.side, game.Input{})
		return
	}
	if o.rng.Float64() < HesitationChance {
		o.table.SetInput(o.side, game.Input{})
		return
	}

	delta := o.target - o.table.Paddle(o.side).Center()
	var in game.Input
	if delta < -DeadZone {
		in.Up = true
	} else if delta > DeadZone {
		in.Down = true
	}

	if !in.Up && !in.Down && o.rng.Float64() < JitterChance {
		if o.rng.Float64() < 0.5 {
			in.Up = true
		} else {
			in.Down = true
		}
	}
	o.table.SetInput(o.side, in)
}

// PredictY forward-simulates the ball, bouncing off the walls, until it
// reaches the paddle plane of side, and returns the vertical intercept.
func PredictY(b game.Ball, cfg game.Config, side game.Side) float64 {
	x, y := b.Position.X, b.Position.Y
	vx, vy := b.Velocity.X, b.Velocity.Y

	targetX := cfg.PaddleWidth
	if side == game.Right {
		targetX = cfg.Width - cfg.PaddleWidth
	}

	for step := 0; step < MaxPredictSteps; step++ {
		if (side == game.Right && x >= targetX) || (side == game.Left && x <= targetX) {
			break
		}
		x += vx * game.FrameTime
		y += vy * game.FrameTime
		if y <= 0 || y >= cfg.Height {
			vy = -vy
			y = max(0, min(cfg.Height, y))
		}
	}
	return y
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
