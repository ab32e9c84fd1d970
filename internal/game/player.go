package game

import (
	"github.com/google/uuid"

	"github.com/lox/partydeck/internal/cards"
)

// Sender delivers one serialized frame to a connection. Implementations
// must not block: a frame that cannot be buffered is dropped and the
// client catches up on the next broadcast.
type Sender interface {
	Send(data []byte)
}

// Player is one seated participant. All fields are guarded by the owning
// Game's lock; nothing outside the game package mutates a Player.
type Player struct {
	ID     string
	Name   string
	Hand   []cards.Card
	Score  int
	Judge  bool
	Played *cards.Card

	conn     Sender
	lastView []byte // last frame sent, for changed-only broadcast
}

func newPlayer(conn Sender, name string) *Player {
	return &Player{
		ID:   uuid.NewString(),
		Name: name,
		conn: conn,
	}
}

// removeFromHand takes the named card out of the hand, matching by name.
func (p *Player) removeFromHand(name string) (cards.Card, bool) {
	for i, c := range p.Hand {
		if c.Name == name {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return c, true
		}
	}
	return cards.Card{}, false
}
