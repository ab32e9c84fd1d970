package game

import (
	"fmt"
	"time"

	"github.com/lox/partydeck/internal/cards"
)

// JudgePlayPolicy decides what happens to a pending played card when its
// owner takes over as judge before the card was judged.
type JudgePlayPolicy string

const (
	// JudgePlayReturn puts the card back at the front of the owner's hand.
	JudgePlayReturn JudgePlayPolicy = "return"
	// JudgePlayDiscard sends the card to the discard pile. The replacement
	// was already drawn at play time, so the hand stays at hand size.
	JudgePlayDiscard JudgePlayPolicy = "discard"
)

// JudgePenaltyPolicy decides when an unjudged pending play costs its owner
// a point.
type JudgePenaltyPolicy string

const (
	// JudgePenaltyTimeout penalizes only when the rotation was forced by
	// the judging timeout.
	JudgePenaltyTimeout JudgePenaltyPolicy = "timeout"
	// JudgePenaltyAlways penalizes on every rotation that finds a pending
	// play, including judge departure.
	JudgePenaltyAlways JudgePenaltyPolicy = "always"
)

// Config carries the tunable rules of the turn engine.
type Config struct {
	HandSize     int
	MinPlayers   int
	MaxPlayers   int
	PlayTimeout  time.Duration
	JudgeTimeout time.Duration
	JudgePlay    JudgePlayPolicy
	JudgePenalty JudgePenaltyPolicy
}

// DefaultConfig returns the standard party rules: 7-card hands, rounds
// start at 3 players, a 7-seat table, 180 second windows for both phases.
func DefaultConfig() Config {
	return Config{
		HandSize:     7,
		MinPlayers:   3,
		MaxPlayers:   7,
		PlayTimeout:  180 * time.Second,
		JudgeTimeout: 180 * time.Second,
		JudgePlay:    JudgePlayReturn,
		JudgePenalty: JudgePenaltyTimeout,
	}
}

// Validate rejects configurations the state machine cannot run under.
func (c Config) Validate() error {
	if c.HandSize < 1 {
		return fmt.Errorf("hand size must be positive, got %d", c.HandSize)
	}
	if c.MinPlayers < 3 {
		return fmt.Errorf("min players must be at least 3, got %d", c.MinPlayers)
	}
	if c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("max players %d below min players %d", c.MaxPlayers, c.MinPlayers)
	}
	if c.PlayTimeout <= 0 || c.JudgeTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	switch c.JudgePlay {
	case JudgePlayReturn, JudgePlayDiscard:
	default:
		return fmt.Errorf("invalid judge play policy %q", c.JudgePlay)
	}
	switch c.JudgePenalty {
	case JudgePenaltyTimeout, JudgePenaltyAlways:
	default:
		return fmt.Errorf("invalid judge penalty policy %q", c.JudgePenalty)
	}
	return nil
}

// ValidateSet checks the noun universe is large enough that the draw and
// discard piles can never both be empty under a full roster. A player
// holds at most handSize+1 nouns at once (a topped-up hand plus a pending
// play, or a returned judge play), so the universe must cover
// (handSize+1) x maxPlayers.
func (c Config) ValidateSet(set *cards.Set) error {
	need := (c.HandSize + 1) * c.MaxPlayers
	if len(set.Nouns) < need {
		return fmt.Errorf("card set has %d nouns, need at least %d for %d players with %d-card hands",
			len(set.Nouns), need, c.MaxPlayers, c.HandSize)
	}
	return nil
}
