package game

import (
	"bytes"
	"encoding/json"

	"github.com/lox/partydeck/internal/cards"
)

// PlayerView is the public slice of a player, visible to the whole table.
// Card identities never appear here; Played only reports that a card is
// down.
type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Judge  bool   `json:"judge"`
	Played bool   `json:"played"`
}

// LastRoundView summarizes the previous resolution for display.
type LastRoundView struct {
	Judge     PlayerView `json:"judge"`
	Adjective cards.Card `json:"adjective"`
	Noun      cards.Card `json:"noun"`
	Winner    PlayerView `json:"winner"`
}

// GameView is the shared observable state. Cards holds the anonymized
// plays on the table, sorted by name, and is present only while Judging.
type GameView struct {
	State     string         `json:"state"`
	Players   []PlayerView   `json:"players"`
	Adjective *cards.Card    `json:"adjective,omitempty"`
	Cards     []cards.Card   `json:"cards,omitempty"`
	Last      *LastRoundView `json:"last,omitempty"`
}

// View is one full frame for one connection: the shared game view plus
// the recipient's identity and private hand.
type View struct {
	Type string       `json:"type"`
	You  string       `json:"you"`
	Game GameView     `json:"game"`
	Hand []cards.Card `json:"hand"`
}

func publicView(p *Player) PlayerView {
	return PlayerView{
		ID:     p.ID,
		Name:   p.Name,
		Score:  p.Score,
		Judge:  p.Judge,
		Played: p.Played != nil,
	}
}

// view renders the shared game state. Callers hold the game lock.
func (g *Game) view() GameView {
	gv := GameView{
		State:   g.state.String(),
		Players: make([]PlayerView, len(g.players)),
	}
	for i, p := range g.players {
		gv.Players[i] = publicView(p)
	}
	if g.adjective != nil {
		gv.Adjective = g.adjective
	}
	if g.state == Judging {
		gv.Cards = g.judged
	}
	if g.last != nil {
		last := LastRoundView(*g.last)
		gv.Last = &last
	}
	return gv
}

// broadcast renders a frame per player and pushes it to their connection
// only when it differs from the last frame that connection received.
// Under the 100ms tick this is what keeps idle games silent on the wire.
// Callers hold the game lock; Send never blocks.
func (g *Game) broadcast() {
	gv := g.view()
	for _, p := range g.players {
		if p.conn == nil {
			continue
		}
		frame, err := json.Marshal(View{
			Type: "state",
			You:  p.ID,
			Game: gv,
			Hand: p.Hand,
		})
		if err != nil {
			g.logger.Error("failed to render view", "player", p.ID, "error", err)
			continue
		}
		if bytes.Equal(frame, p.lastView) {
			continue
		}
		p.lastView = frame
		p.conn.Send(frame)
	}
}
