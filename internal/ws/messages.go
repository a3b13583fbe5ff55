package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"pong_server/internal/game"
)

// outbound frames

type typeMsg struct {
	Type string `json:"type"`
}

// matchFoundMsg.You echoes the identity the server seated, so a guest can
// present it again on the gameplay stream.
type matchFoundMsg struct {
	Type     string    `json:"type"`
	RoomID   string    `json:"roomId"`
	Side     game.Side `json:"side"`
	Opponent string    `json:"opponent"`
	You      string    `json:"you"`
	Bot      bool      `json:"bot,omitempty"`
}

type initMsg struct {
	Type   string `json:"type"`
	Player string `json:"player"`
}

// pauseMsg carries Scorer for a goal pause and Until (epoch ms) for a
// disconnect pause or a late joiner.
type pauseMsg struct {
	Type   string `json:"type"`
	Until  int64  `json:"until,omitempty"`
	Scorer string `json:"scorer,omitempty"`
}

type endMsg struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
}

type stateMsg struct {
	State game.State `json:"state"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// every outbound shape is a plain struct
		panic(err)
	}
	return b
}

// inbound gameplay frames

var ErrUnknownMessage = errors.New("unrecognized gameplay message")

// GameplayMessage is one decoded frame from a gameplay stream.
type GameplayMessage interface {
	gameplay()
}

type ReadyMessage struct{}

// InputMessage is sent by a client that controls a single side.
type InputMessage struct {
	Player game.Side
	Input  game.Input
}

// DualInputMessage carries both sides from a local two-player client. A nil
// side is left untouched.
type DualInputMessage struct {
	Left  *game.Input
	Right *game.Input
}

func (ReadyMessage) gameplay() {}
func (InputMessage) gameplay() {}
func (DualInputMessage) gameplay() {}

type gameplayFrame struct {
	Type   string      `json:"type"`
	Player game.Side   `json:"player"`
	Input  *game.Input `json:"input"`
	Inputs *struct {
		Left  *game.Input `json:"left"`
		Right *game.Input `json:"right"`
	} `json:"inputs"`
}

// DecodeGameplay parses a frame, rejecting anything that is not a ready
// notice, a single-side input or a dual input.
func DecodeGameplay(raw []byte) (GameplayMessage, error) {
	var f gameplayFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode gameplay frame: %w", err)
	}
	switch {
	case f.Type == "ready":
		return ReadyMessage{}, nil
	case f.Type != "":
		return nil, fmt.Errorf("%w: type %q", ErrUnknownMessage, f.Type)
	case f.Input != nil && f.Player.Valid():
		return InputMessage{Player: f.Player, Input: *f.Input}, nil
	case f.Inputs != nil && (f.Inputs.Left != nil || f.Inputs.Right != nil):
		return DualInputMessage{Left: f.Inputs.Left, Right: f.Inputs.Right}, nil
	}
	return nil, ErrUnknownMessage
}
