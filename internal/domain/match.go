package domain

import "time"

// AIIdentity stands in for the scripted opponent wherever a player identity is
// expected. It maps to the reserved player id 0.
const AIIdentity = "bot"

// MatchResult is the persisted outcome of one finished room.
type MatchResult struct {
	RoomID  string
	Player1 string
	Player2 string
	Score1  int
	Score2  int
	Winner  *string // nil when no winner could be determined
}

// WinnerID resolves the winner to one of the two player ids.
func (m MatchResult) WinnerID(p1ID, p2ID int64) *int64 {
	if m.Winner == nil {
		return nil
	}
	switch *m.Winner {
	case m.Player1:
		return &p1ID
	case m.Player2:
		return &p2ID
	}
	return nil
}

type MatchHistory struct {
	ID        int64     `db:"id" json:"id"`
	Player1ID int64     `db:"player1_id" json:"player1_id"`
	Player2ID int64     `db:"player2_id" json:"player2_id"`
	Score1    int       `db:"score1" json:"score1"`
	Score2    int       `db:"score2" json:"score2"`
	WinnerID  *int64    `db:"winner_id" json:"winner_id"`
	PlayedAt  time.Time `db:"played_at" json:"played_at"`
}
