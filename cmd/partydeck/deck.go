package main

import (
	"fmt"

	"github.com/lox/partydeck/internal/cards"
)

// DeckCmd groups card set tooling.
type DeckCmd struct {
	Check DeckCheckCmd `cmd:"" help:"Validate a card set file"`
}

// DeckCheckCmd validates a card set JSON file and reports its sizes.
type DeckCheckCmd struct {
	File string `kong:"arg,help='Path to card set JSON file'"`
}

func (c *DeckCheckCmd) Run() error {
	set, err := cards.Load(c.File)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d nouns, %d adjectives\n", c.File, len(set.Nouns), len(set.Adjectives))
	return nil
}
