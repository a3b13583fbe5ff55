package game

import (
	"math"
	"math/rand"
	"time"
)

const (
	// MaxBounceAngle is the steepest angle a paddle can send the ball back at.
	MaxBounceAngle = math.Pi / 3
	// ServeAngle bounds the random serve direction after a point.
	ServeAngle = math.Pi / 6
)

// Pong is the deterministic simulation of one match. It performs no I/O and
// holds no reference to connections or timers.
type Pong struct {
	cfg   Config
	rng   *rand.Rand
	State State
}

// NewPong creates a match in its initial state. A nil rng uses a time seeded source.
func NewPong(cfg Config, rng *rand.Rand) *Pong {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p := &Pong{cfg: cfg, rng: rng}
	p.State = State{
		Ball: Ball{
			Position: Vec2{X: cfg.Width / 2, Y: cfg.Height / 2},
			Velocity: Vec2{X: cfg.InitialBallSpeed, Y: 0},
			Radius:   cfg.BallRadius,
		},
		Paddles: Paddles{
			Left:  Paddle{Y: (cfg.Height - cfg.PaddleHeight) / 2, Height: cfg.PaddleHeight, Speed: cfg.PaddleSpeed},
			Right: Paddle{Y: (cfg.Height - cfg.PaddleHeight) / 2, Height: cfg.PaddleHeight, Speed: cfg.PaddleSpeed},
		},
	}
	return p
}

func (p *Pong) Config() Config {
	return p.cfg
}

// Update advances the match by dt seconds using the buffered inputs.
func (p *Pong) Update(dt float64, in Inputs) {
	p.moveBall(dt)
	p.movePaddle(Left, dt, in.Left)
	p.movePaddle(Right, dt, in.Right)
	p.checkWalls()
	p.checkPaddles()
	p.checkScore()
}

func (p *Pong) moveBall(dt float64) {
	b := &p.State.Ball
	b.Position.X += b.Velocity.X * dt
	b.Position.Y += b.Velocity.Y * dt
}

func (p *Pong) movePaddle(side Side, dt float64, in Input) {
	pad := p.State.Paddle(side)
	if in.Up {
		pad.Y -= p.cfg.PaddleSpeed * dt
	}
	if in.Down {
		pad.Y += p.cfg.PaddleSpeed * dt
	}
	pad.Y = clamp(pad.Y, 0, p.cfg.Height-pad.Height)
}

func (p *Pong) checkWalls() {
	b := &p.State.Ball
	if b.Position.Y-b.Radius <= 0 {
		b.Velocity.Y = math.Abs(b.Velocity.Y)
	} else if b.Position.Y+b.Radius >= p.cfg.Height {
		b.Velocity.Y = -math.Abs(b.Velocity.Y)
	} else {
		return
	}
	b.Position.Y = clamp(b.Position.Y, b.Radius, p.cfg.Height-b.Radius)
}

func (p *Pong) checkPaddles() {
	b := &p.State.Ball

	// only a ball travelling into a paddle plane can bounce off it
	if b.Velocity.X < 0 && b.Position.X-b.Radius <= p.cfg.PaddleWidth && p.withinSpan(Left) {
		p.reflect(Left)
		p.accelerate()
	}
	if b.Velocity.X > 0 && b.Position.X+b.Radius >= p.cfg.Width-p.cfg.PaddleWidth && p.withinSpan(Right) {
		p.reflect(Right)
		p.accelerate()
	}
}

func (p *Pong) withinSpan(side Side) bool {
	pad := p.State.Paddle(side)
	y := p.State.Ball.Position.Y
	return y >= pad.Y && y <= pad.Y+pad.Height
}

// BounceAngle maps the ball offset from the paddle center to a return angle
// within [-MaxBounceAngle, MaxBounceAngle].
func BounceAngle(ballY float64, pad Paddle) float64 {
	half := pad.Height / 2
	if half <= 0 {
		return 0
	}
	rel := clamp((ballY-pad.Center())/half, -1, 1)
	return rel * MaxBounceAngle
}

func (p *Pong) reflect(side Side) {
	b := &p.State.Ball
	angle := BounceAngle(b.Position.Y, *p.State.Paddle(side))
	speed := b.Speed()

	dir := 1.0
	if side == Right {
		dir = -1
	}
	b.Velocity.X = math.Cos(angle) * speed * dir
	b.Velocity.Y = math.Sin(angle) * speed
}

func (p *Pong) accelerate() {
	v := &p.State.Ball.Velocity
	v.X *= p.cfg.BallSpeedFactor
	v.Y *= p.cfg.BallSpeedFactor

	speed := hypot(v.X, v.Y)
	if speed > p.cfg.MaxBallSpeed {
		scale := p.cfg.MaxBallSpeed / speed
		v.X *= scale
		v.Y *= scale
	}
}

func (p *Pong) checkScore() {
	b := p.State.Ball
	switch {
	case b.Position.X+b.Radius < 0:
		p.State.Score.Right++
	case b.Position.X-b.Radius > p.cfg.Width:
		p.State.Score.Left++
	default:
		return
	}
	p.resetBall()
	p.resetPaddles()
}

func (p *Pong) resetBall() {
	b := &p.State.Ball
	b.Position = Vec2{X: p.cfg.Width / 2, Y: p.cfg.Height / 2}

	angle := p.rng.Float64()*2*ServeAngle - ServeAngle
	dir := 1.0
	if p.rng.Float64() < 0.5 {
		dir = -1
	}
	b.Velocity = Vec2{
		X: math.Cos(angle) * p.cfg.InitialBallSpeed * dir,
		Y: math.Sin(angle) * p.cfg.InitialBallSpeed,
	}
}

func (p *Pong) resetPaddles() {
	y := (p.cfg.Height - p.cfg.PaddleHeight) / 2
	p.State.Paddles.Left.Y = y
	p.State.Paddles.Right.Y = y
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func hypot(x, y float64) float64 {
	return math.Sqrt(x*x + y*y)
}
