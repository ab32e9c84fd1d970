// Package cards defines the static card universe: the noun cards players
// hold in their hands and the adjective cards revealed as round prompts.
// The universe is loaded once at startup and never changes afterwards.
package cards

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

// Card is a single face in one of the two card universes. Nouns are played
// from hands against the revealed adjective; adjectives are the prompts.
// Two cards are the same card iff their names match.
type Card struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// Set is a complete card universe. Both slices are fixed for the lifetime
// of the process; the game engine conserves them as multisets.
type Set struct {
	Nouns      []Card `json:"nouns"`
	Adjectives []Card `json:"adjectives"`
}

// Sizing floors. The noun universe must sit comfortably above
// handSize x maxPlayers so the draw pile can never run dry while the
// discard pile is also empty.
const (
	MinNouns      = 30
	MinAdjectives = 5
)

//go:embed dataset.json
var defaultDataset []byte

// Default returns the embedded card set. The embedded data is validated at
// build time by the package tests, so a failure here is a programming error.
func Default() *Set {
	set, err := Parse(defaultDataset)
	if err != nil {
		panic("cards: embedded dataset invalid: " + err.Error())
	}
	return set
}

// Load reads and validates a card set from a JSON file.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card set: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON card set and validates it.
func Parse(data []byte) (*Set, error) {
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse card set: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Validate checks the sizing floors and that card names are non-empty and
// unique within each universe. Name collisions would break by-name hand
// removal and winner resolution.
func (s *Set) Validate() error {
	if len(s.Nouns) < MinNouns {
		return fmt.Errorf("card set has %d nouns, need at least %d", len(s.Nouns), MinNouns)
	}
	if len(s.Adjectives) < MinAdjectives {
		return fmt.Errorf("card set has %d adjectives, need at least %d", len(s.Adjectives), MinAdjectives)
	}
	if err := checkUnique("noun", s.Nouns); err != nil {
		return err
	}
	return checkUnique("adjective", s.Adjectives)
}

func checkUnique(kind string, cards []Card) error {
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		if c.Name == "" {
			return fmt.Errorf("%s card with empty name", kind)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate %s card %q", kind, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}
