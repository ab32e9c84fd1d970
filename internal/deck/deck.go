// Package deck manages the live card pools: the noun draw and discard
// piles, recycled into each other when the draw pile empties, and the
// rotating adjective queue refilled from the full adjective universe on
// exhaustion. The multiset of nouns across both piles and all hands is
// conserved; cards are never created or destroyed here.
package deck

import (
	rand "math/rand/v2"

	"github.com/lox/partydeck/internal/cards"
)

// Deck holds the mutable card pools. It is not safe for concurrent use;
// the owning Game serializes access.
type Deck struct {
	rng        *rand.Rand
	draw       []cards.Card
	discard    []cards.Card
	adjectives []cards.Card // remainder of the current adjective rotation
	allAdj     []cards.Card // full adjective universe, source of refills
}

// New builds a deck over the given card set. All nouns start in the
// discard pile, so the first draw shuffles the full universe. The
// adjective queue starts empty and fills on the first reveal.
func New(set *cards.Set, rng *rand.Rand) *Deck {
	return &Deck{
		rng:     rng,
		discard: append([]cards.Card(nil), set.Nouns...),
		allAdj:  append([]cards.Card(nil), set.Adjectives...),
	}
}

// Draw removes and returns the top noun card. An empty draw pile is
// replaced by a shuffle of the discard pile. Both piles empty means the
// universe was sized below what the seated players can hold, which the
// card set validation rules out; treat it as a programming error.
func (d *Deck) Draw() cards.Card {
	if len(d.draw) == 0 {
		if len(d.discard) == 0 {
			panic("deck: draw and discard piles both empty")
		}
		d.draw = d.discard
		d.discard = nil
		d.shuffle(d.draw)
	}
	c := d.draw[0]
	d.draw = d.draw[1:]
	return c
}

// Discard appends a noun card to the discard pile. Called whenever a card
// leaves play: round resolution, player eviction, or a stale play being
// cleared from an incoming judge.
func (d *Deck) Discard(c cards.Card) {
	d.discard = append(d.discard, c)
}

// NextAdjective pops the head of the adjective queue, reshuffling the full
// adjective universe back in when the queue is exhausted. Adjectives are
// not tracked individually once revealed.
func (d *Deck) NextAdjective() cards.Card {
	if len(d.adjectives) == 0 {
		d.adjectives = append([]cards.Card(nil), d.allAdj...)
		d.shuffle(d.adjectives)
	}
	c := d.adjectives[0]
	d.adjectives = d.adjectives[1:]
	return c
}

// DrawCount returns the number of cards left in the draw pile.
func (d *Deck) DrawCount() int { return len(d.draw) }

// DiscardCount returns the number of cards in the discard pile.
func (d *Deck) DiscardCount() int { return len(d.discard) }

// Cards returns every noun currently held by the deck, draw pile first.
// Used by conservation checks.
func (d *Deck) Cards() []cards.Card {
	out := make([]cards.Card, 0, len(d.draw)+len(d.discard))
	out = append(out, d.draw...)
	return append(out, d.discard...)
}

// shuffle applies an unbiased Fisher-Yates permutation in place.
func (d *Deck) shuffle(cs []cards.Card) {
	d.rng.Shuffle(len(cs), func(i, j int) {
		cs[i], cs[j] = cs[j], cs[i]
	})
}
