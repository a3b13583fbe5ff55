package tournament

// Participant is one seat holder: a connected human, a scripted bot, or the
// placeholder used when a bracket winner cannot be matched to a seat.
type Participant interface {
	Name() string
	IsBot() bool
	// CanPlay reports whether the participant can take part in a match.
	CanPlay() bool
}

type Human string

func (h Human) Name() string { return string(h) }
func (h Human) IsBot() bool { return false }
func (h Human) CanPlay() bool { return true }

type Bot string

func (b Bot) Name() string { return string(b) }
func (b Bot) IsBot() bool { return true }
func (b Bot) CanPlay() bool { return true }

// Unknown holds a final seat whose occupant could not be determined.
type Unknown struct{}

const UnknownName = "…"

func (Unknown) Name() string { return UnknownName }
func (Unknown) IsBot() bool { return false }
func (Unknown) CanPlay() bool { return false }

// Seat is what a room needs to know about a participant.
type Seat struct {
	Name string
	Bot  bool
}

func seatOf(p Participant) Seat {
	return Seat{Name: p.Name(), Bot: p.IsBot()}
}

func isHuman(p Participant) bool {
	_, ok := p.(Human)
	return ok
}
