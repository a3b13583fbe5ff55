package game

import "time"

// Side is one of the two fixed player positions of a match.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Sides lists both sides in a stable order.
var Sides = [2]Side{Left, Right}

func (s Side) Valid() bool {
	return s == Left || s == Right
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Left {
		return Right
	}
	return Left
}

const (
	TickRate  = 60
	FrameTime = 1.0 / TickRate

	// TickInterval is the wall-clock cadence of the global game loop.
	TickInterval = time.Second / TickRate

	// WinScore ends a match as soon as one side reaches it.
	WinScore = 5
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Ball struct {
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Radius   float64 `json:"radius"`
}

// Speed returns the magnitude of the ball velocity.
func (b Ball) Speed() float64 {
	return hypot(b.Velocity.X, b.Velocity.Y)
}

// Paddle.Y is the top edge; the paddle spans [Y, Y+Height].
type Paddle struct {
	Y      float64 `json:"y"`
	Height float64 `json:"height"`
	Speed  float64 `json:"speed"`
}

// Center returns the vertical center of the paddle.
func (p Paddle) Center() float64 {
	return p.Y + p.Height/2
}

type Input struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// Inputs holds the buffered input of both sides.
type Inputs struct {
	Left  Input `json:"left"`
	Right Input `json:"right"`
}

func (in *Inputs) Get(s Side) Input {
	if s == Left {
		return in.Left
	}
	return in.Right
}

func (in *Inputs) Set(s Side, v Input) {
	if s == Left {
		in.Left = v
	} else {
		in.Right = v
	}
}

type Paddles struct {
	Left  Paddle `json:"left"`
	Right Paddle `json:"right"`
}

type Score struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

func (s Score) Of(side Side) int {
	if side == Left {
		return s.Left
	}
	return s.Right
}

// State is the full snapshot sent to clients every tick.
type State struct {
	Ball    Ball    `json:"ball"`
	Paddles Paddles `json:"paddles"`
	Score   Score   `json:"score"`
}

func (st *State) Paddle(s Side) *Paddle {
	if s == Left {
		return &st.Paddles.Left
	}
	return &st.Paddles.Right
}

// Config is the fixed playfield record shared read-only by every room.
type Config struct {
	Width            float64
	Height           float64
	PaddleHeight     float64
	PaddleWidth      float64
	PaddleSpeed      float64 // px/s
	BallRadius       float64
	InitialBallSpeed float64 // px/s
	BallSpeedFactor  float64
	MaxBallSpeed     float64 // px/s
}

// DefaultConfig returns the standard 1280x640 field.
func DefaultConfig() Config {
	width, height := 1280.0, 640.0
	return Config{
		Width:            width,
		Height:           height,
		PaddleHeight:     float64(int(height * 0.12)),
		PaddleWidth:      float64(int(width * 0.01)),
		PaddleSpeed:      420,
		BallRadius:       float64(int(height * 0.01)),
		InitialBallSpeed: 360,
		BallSpeedFactor:  1.1,
		MaxBallSpeed:     1280,
	}
}
