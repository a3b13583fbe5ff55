package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPong(seed int64) *Pong {
	return NewPong(DefaultConfig(), rand.New(rand.NewSource(seed)))
}

func TestDefaultConfigTruncatesDerivedSizes(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1280.0, cfg.Width)
	assert.Equal(t, 640.0, cfg.Height)
	assert.Equal(t, 76.0, cfg.PaddleHeight)
	assert.Equal(t, 12.0, cfg.PaddleWidth)
	assert.Equal(t, 6.0, cfg.BallRadius)
}

func TestNewPongStartsCentered(t *testing.T) {
	p := newTestPong(1)
	cfg := p.Config()

	assert.Equal(t, Vec2{X: cfg.Width / 2, Y: cfg.Height / 2}, p.State.Ball.Position)
	assert.Equal(t, cfg.Height/2, p.State.Paddles.Left.Center())
	assert.Equal(t, cfg.Height/2, p.State.Paddles.Right.Center())
	assert.Equal(t, Score{}, p.State.Score)
}

func TestMoveBallIsExactVelocityTimesDelta(t *testing.T) {
	p := newTestPong(1)
	p.State.Ball.Position = Vec2{X: 101.25, Y: 77.5}
	p.State.Ball.Velocity = Vec2{X: -333.3, Y: 123.4}

	for i := 0; i < 10; i++ {
		before := p.State.Ball.Position
		v := p.State.Ball.Velocity
		p.moveBall(FrameTime)
		assert.Equal(t, before.X+v.X*FrameTime, p.State.Ball.Position.X)
		assert.Equal(t, before.Y+v.Y*FrameTime, p.State.Ball.Position.Y)
	}
}

func TestBounceAngleMonotonicAndBounded(t *testing.T) {
	pad := Paddle{Y: 100, Height: 80}
	prev := math.Inf(-1)
	for y := pad.Y; y <= pad.Y+pad.Height; y += 0.5 {
		a := BounceAngle(y, pad)
		assert.GreaterOrEqual(t, a, prev, "angle must not decrease at y=%v", y)
		assert.LessOrEqual(t, math.Abs(a), MaxBounceAngle+1e-12)
		prev = a
	}
	assert.InDelta(t, -MaxBounceAngle, BounceAngle(pad.Y, pad), 1e-12)
	assert.InDelta(t, 0, BounceAngle(pad.Center(), pad), 1e-12)
	assert.InDelta(t, MaxBounceAngle, BounceAngle(pad.Y+pad.Height, pad), 1e-12)
	assert.InDelta(t, MaxBounceAngle, BounceAngle(pad.Y+pad.Height+500, pad), 1e-12)
}

func TestLeftPaddleBounceAcceleratesBall(t *testing.T) {
	p := newTestPong(1)
	cfg := p.Config()
	pad := p.State.Paddles.Left

	p.State.Ball.Position = Vec2{X: cfg.PaddleWidth + cfg.BallRadius - 1, Y: pad.Center() + 10}
	p.State.Ball.Velocity = Vec2{X: -300, Y: 0}

	p.checkPaddles()

	v := p.State.Ball.Velocity
	require.Greater(t, v.X, 0.0, "ball must head away from the left paddle")
	assert.InDelta(t, 300*cfg.BallSpeedFactor, p.State.Ball.Speed(), 1e-9)
	assert.InDelta(t, BounceAngle(pad.Center()+10, pad), math.Atan2(v.Y, v.X), 1e-9)
}

func TestRightPaddleBounceClampsToMaxSpeed(t *testing.T) {
	p := newTestPong(1)
	cfg := p.Config()
	pad := p.State.Paddles.Right

	p.State.Ball.Position = Vec2{X: cfg.Width - cfg.PaddleWidth - cfg.BallRadius + 1, Y: pad.Center()}
	p.State.Ball.Velocity = Vec2{X: cfg.MaxBallSpeed - 10, Y: 0}

	p.checkPaddles()

	assert.Less(t, p.State.Ball.Velocity.X, 0.0)
	assert.InDelta(t, cfg.MaxBallSpeed, p.State.Ball.Speed(), 1e-9)
}

func TestBallMovingAwayFromPaddleDoesNotBounce(t *testing.T) {
	p := newTestPong(1)
	cfg := p.Config()
	pad := p.State.Paddles.Left

	p.State.Ball.Position = Vec2{X: cfg.PaddleWidth, Y: pad.Center()}
	p.State.Ball.Velocity = Vec2{X: 300, Y: 20}

	p.checkPaddles()
	assert.Equal(t, Vec2{X: 300, Y: 20}, p.State.Ball.Velocity)
}

func TestWallReflectionClampsPosition(t *testing.T) {
	p := newTestPong(1)
	cfg := p.Config()

	p.State.Ball.Position = Vec2{X: cfg.Width / 2, Y: -3}
	p.State.Ball.Velocity = Vec2{X: 100, Y: -200}
	p.checkWalls()
	assert.Equal(t, 200.0, p.State.Ball.Velocity.Y)
	assert.Equal(t, cfg.BallRadius, p.State.Ball.Position.Y)

	p.State.Ball.Position = Vec2{X: cfg.Width / 2, Y: cfg.Height + 4}
	p.State.Ball.Velocity = Vec2{X: 100, Y: 150}
	p.checkWalls()
	assert.Equal(t, -150.0, p.State.Ball.Velocity.Y)
	assert.Equal(t, cfg.Height-cfg.BallRadius, p.State.Ball.Position.Y)
}

func TestPaddleMovementGatedByInputAndClamped(t *testing.T) {
	p := newTestPong(1)
	cfg := p.Config()
	start := p.State.Paddles.Left.Y

	p.movePaddle(Left, FrameTime, Input{})
	assert.Equal(t, start, p.State.Paddles.Left.Y)

	p.movePaddle(Left, FrameTime, Input{Up: true})
	assert.InDelta(t, start-cfg.PaddleSpeed*FrameTime, p.State.Paddles.Left.Y, 1e-9)

	for i := 0; i < 1000; i++ {
		p.movePaddle(Left, FrameTime, Input{Up: true})
	}
	assert.Equal(t, 0.0, p.State.Paddles.Left.Y)

	for i := 0; i < 1000; i++ {
		p.movePaddle(Right, FrameTime, Input{Down: true})
	}
	assert.Equal(t, cfg.Height-cfg.PaddleHeight, p.State.Paddles.Right.Y)
}

func TestScoreIncrementsOnceAndResets(t *testing.T) {
	p := newTestPong(7)
	cfg := p.Config()

	p.State.Paddles.Left.Y = 0
	p.State.Paddles.Right.Y = cfg.Height - cfg.PaddleHeight
	p.State.Ball.Position = Vec2{X: -cfg.BallRadius - 1, Y: cfg.Height - 50}
	p.State.Ball.Velocity = Vec2{X: -400, Y: 0}

	p.Update(0, Inputs{})
	require.Equal(t, Score{Left: 0, Right: 1}, p.State.Score)

	assert.Equal(t, Vec2{X: cfg.Width / 2, Y: cfg.Height / 2}, p.State.Ball.Position)
	assert.Equal(t, cfg.Height/2, p.State.Paddles.Left.Center())
	assert.Equal(t, cfg.Height/2, p.State.Paddles.Right.Center())
	assert.InDelta(t, cfg.InitialBallSpeed, p.State.Ball.Speed(), 1e-9)
	serve := math.Atan2(p.State.Ball.Velocity.Y, math.Abs(p.State.Ball.Velocity.X))
	assert.LessOrEqual(t, math.Abs(serve), ServeAngle+1e-9)

	// a few more ticks right after the reset must not count the point again
	for i := 0; i < 5; i++ {
		p.Update(FrameTime, Inputs{})
	}
	assert.Equal(t, Score{Left: 0, Right: 1}, p.State.Score)
}

func TestLeftScoresWhenBallLeavesRightEdge(t *testing.T) {
	p := newTestPong(3)
	cfg := p.Config()

	p.State.Paddles.Right.Y = 0
	p.State.Ball.Position = Vec2{X: cfg.Width + cfg.BallRadius + 1, Y: cfg.Height - 20}
	p.State.Ball.Velocity = Vec2{X: 400, Y: 0}

	p.Update(0, Inputs{})
	assert.Equal(t, Score{Left: 1, Right: 0}, p.State.Score)
}

func TestSideHelpers(t *testing.T) {
	assert.Equal(t, Right, Left.Opposite())
	assert.Equal(t, Left, Right.Opposite())
	assert.True(t, Left.Valid())
	assert.False(t, Side("spectator").Valid())

	var in Inputs
	in.Set(Right, Input{Down: true})
	assert.Equal(t, Input{Down: true}, in.Get(Right))
	assert.Equal(t, Input{}, in.Get(Left))
}
