package tournament

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Mode string

const (
	Mode2D Mode = "2d"
	Mode3D Mode = "3d"
)

func (m Mode) Valid() bool {
	return m == Mode2D || m == Mode3D
}

var ErrUnknownAction = errors.New("unknown tournament action")

// Action is one decoded inbound tournament request.
type Action interface {
	action() string
}

type (
	JoinAction      struct{}
	QuitAction      struct{}
	AddBotAction    struct{}
	RemoveBotAction struct{}
	LaunchAction    struct{}

	ChooseModeAction struct {
		MatchID string
		Mode    Mode
	}
	StartMatchAction struct {
		MatchID string
	}
	DeclareWinnerAction struct {
		MatchID string
		Winner  string
	}
)

func (JoinAction) action() string { return "join" }
func (QuitAction) action() string { return "quit" }
func (AddBotAction) action() string { return "add_bot" }
func (RemoveBotAction) action() string { return "remove_bot" }
func (LaunchAction) action() string { return "launch" }
func (ChooseModeAction) action() string { return "choose_mode" }
func (StartMatchAction) action() string { return "start_match" }
func (DeclareWinnerAction) action() string { return "declare_winner" }

type inbound struct {
	Action  string `json:"action"`
	MatchID string `json:"matchId"`
	Mode    string `json:"mode"`
	Winner  string `json:"winner"`
}

// Decode turns a raw frame into an Action. Frames with a missing or unknown
// action, or missing required fields, are rejected.
func Decode(raw []byte) (Action, error) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode tournament frame: %w", err)
	}
	switch in.Action {
	case "join":
		return JoinAction{}, nil
	case "quit":
		return QuitAction{}, nil
	case "add_bot":
		return AddBotAction{}, nil
	case "remove_bot":
		return RemoveBotAction{}, nil
	case "launch":
		return LaunchAction{}, nil
	case "choose_mode":
		m := Mode(in.Mode)
		if in.MatchID == "" || !m.Valid() {
			return nil, fmt.Errorf("%w: choose_mode needs matchId and a 2d/3d mode", ErrUnknownAction)
		}
		return ChooseModeAction{MatchID: in.MatchID, Mode: m}, nil
	case "start_match":
		if in.MatchID == "" {
			return nil, fmt.Errorf("%w: start_match needs matchId", ErrUnknownAction)
		}
		return StartMatchAction{MatchID: in.MatchID}, nil
	case "declare_winner":
		if in.MatchID == "" || in.Winner == "" {
			return nil, fmt.Errorf("%w: declare_winner needs matchId and winner", ErrUnknownAction)
		}
		return DeclareWinnerAction{MatchID: in.MatchID, Winner: in.Winner}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, in.Action)
}

type SlotView struct {
	Name  string `json:"name"`
	IsBot bool   `json:"isBot"`
}

type MatchView struct {
	ID          string           `json:"id"`
	P1          SlotView         `json:"p1"`
	P2          SlotView         `json:"p2"`
	Status      Status           `json:"status"`
	Winner      *string          `json:"winner"`
	Mode        *Mode            `json:"mode"`
	RoomID      *string          `json:"roomId"`
	PlayerModes map[string]*Mode `json:"playerModes"`
}

type slotsMsg struct {
	Type  string     `json:"type"`
	Slots []SlotView `json:"slots"`
}

type bracketMsg struct {
	Type    string      `json:"type"`
	Slots   []SlotView  `json:"slots"`
	Matches []MatchView `json:"matches"`
	Final   *MatchView  `json:"final"`
	You     *string     `json:"you"`
}

type gotoGameMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	RoomID  string `json:"roomId"`
	Mode    Mode   `json:"mode"`
}

type declareWinnerMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
	Winner  string `json:"winner"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encode(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// only fixed, marshalable shapes are passed in
		panic(err)
	}
	return b
}

func slotViews(ps []Participant) []SlotView {
	out := make([]SlotView, 0, len(ps))
	for _, p := range ps {
		out = append(out, SlotView{Name: p.Name(), IsBot: p.IsBot()})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (m *Match) view() MatchView {
	modes := make(map[string]*Mode, len(m.PlayerModes))
	for name, mode := range m.PlayerModes {
		if mode == "" {
			modes[name] = nil
			continue
		}
		mode := mode
		modes[name] = &mode
	}
	return MatchView{
		ID:          m.ID,
		P1:          SlotView{Name: m.P1.Name(), IsBot: m.P1.IsBot()},
		P2:          SlotView{Name: m.P2.Name(), IsBot: m.P2.IsBot()},
		Status:      m.Status,
		Winner:      optional(m.Winner),
		Mode:        m.sharedMode(),
		RoomID:      optional(m.RoomID),
		PlayerModes: modes,
	}
}
