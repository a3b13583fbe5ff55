package domain

// PlayerStats mirrors the counters kept on the players table.
type PlayerStats struct {
	ID                int64   `db:"id" json:"id"`
	Username          string  `db:"username" json:"username"`
	GamePlayed        int     `db:"game_played" json:"game_played"`
	GameWon           int     `db:"game_won" json:"game_won"`
	Winrate           float64 `db:"winrate" json:"winrate"`
	TournamentsPlayed int     `db:"tournaments_played" json:"tournaments_played"`
	TournamentsWon    int     `db:"tournaments_won" json:"tournaments_won"`
}

// Winrate returns the rounded win percentage for the given counters.
func Winrate(played, won int) float64 {
	if played <= 0 {
		return 0
	}
	return float64((won*100 + played/2) / played)
}
