package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWinnerID(t *testing.T) {
	b := "B"
	m := MatchResult{Player1: "A", Player2: "B", Score1: 2, Score2: 5, Winner: &b}
	id := m.WinnerID(10, 20)
	if assert.NotNil(t, id) {
		assert.Equal(t, int64(20), *id)
	}

	m.Winner = nil
	assert.Nil(t, m.WinnerID(10, 20))

	other := "C"
	m.Winner = &other
	assert.Nil(t, m.WinnerID(10, 20))
}

func TestWinrate(t *testing.T) {
	assert.Equal(t, 0.0, Winrate(0, 0))
	assert.Equal(t, 50.0, Winrate(2, 1))
	assert.Equal(t, 67.0, Winrate(3, 2))
	assert.Equal(t, 100.0, Winrate(1, 1))
}
