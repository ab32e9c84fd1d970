// Package game implements the authoritative round state machine for the
// party game: a rotating judge reveals an adjective prompt, every other
// player submits a noun card from their hand, and the judge picks the
// winner. The engine owns all player and deck state; the transport layer
// calls in with per-connection events and a periodic tick.
package game

import (
	"errors"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/partydeck/internal/cards"
	"github.com/lox/partydeck/internal/deck"
)

// State is the phase of the round state machine.
type State int

const (
	// Waiting means fewer than the minimum players are seated and no
	// round is active.
	Waiting State = iota
	// Playing means an adjective is revealed and non-judge players are
	// submitting cards.
	Playing
	// Judging means the submitted cards are on the table and the judge is
	// picking a winner.
	Judging
)

// String returns the wire representation of the state.
func (s State) String() string {
	switch s {
	case Waiting:
		return "Waiting"
	case Playing:
		return "Playing"
	case Judging:
		return "Judging"
	default:
		return "Unknown"
	}
}

// Protocol violations. The transport layer ignores these: an out-of-turn
// or stale client message produces no state change, and the client's view
// is corrected on the next broadcast.
var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrWrongState    = errors.New("not valid in current state")
	ErrJudgeCannot   = errors.New("judge cannot play a card")
	ErrNotJudge      = errors.New("player is not the judge")
	ErrAlreadyPlayed = errors.New("player already played this round")
	ErrInvalidCard   = errors.New("card not available to player")
	// ErrGameFull is returned when the roster is at max players. The cap
	// is what keeps hand dealing within the noun universe; see
	// Config.ValidateSet.
	ErrGameFull = errors.New("game is full")
)

// Game is the single authoritative aggregate. One mutex serializes every
// mutation: inbound connection events and tick firings alike. No call
// blocks on I/O while the lock is held; broadcasts enqueue frames on
// non-blocking per-connection buffers.
type Game struct {
	mu     sync.Mutex
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger
	rng    *rand.Rand

	set  *cards.Set
	deck *deck.Deck

	state        State
	players      []*Player
	adjective    *cards.Card
	judged       []cards.Card // anonymized plays on the table, sorted by name
	roundStart   time.Time    // entry into Playing; origin of the play window
	judgingStart time.Time    // entry into Judging; origin of the judging window
	last         *LastRound
}

// LastRound is the snapshot of the most recently resolved round, kept for
// display until the next resolution.
type LastRound struct {
	Judge     PlayerView
	Adjective cards.Card
	Noun      cards.Card
	Winner    PlayerView
}

// New builds a game over the given card universe. The rng seeds shuffles
// and initial player names; the clock drives every timeout decision so
// tests can run on a mock.
func New(set *cards.Set, rng *rand.Rand, clock quartz.Clock, logger *log.Logger, cfg Config) *Game {
	return &Game{
		cfg:    cfg,
		clock:  clock,
		logger: logger.WithPrefix("game"),
		rng:    rng,
		set:    set,
		deck:   deck.New(set, rng),
		state:  Waiting,
	}
}

// AddPlayer seats a new participant, deals their opening hand and starts
// the first round if the table just reached the minimum. The returned
// Player carries the opaque ID the transport layer routes messages by.
// A full roster rejects the join with ErrGameFull; seating past the cap
// would eventually deal more cards than the noun universe holds.
func (g *Game) AddPlayer(conn Sender) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.players) >= g.cfg.MaxPlayers {
		g.logger.Warn("join rejected, roster full", "seated", len(g.players))
		return nil, ErrGameFull
	}

	p := newPlayer(conn, g.set.Nouns[g.rng.IntN(len(g.set.Nouns))].Name)
	g.topUp(p)
	g.players = append(g.players, p)

	g.logger.Info("player joined", "player", p.ID, "name", p.Name, "seated", len(g.players))

	if g.state == Waiting && len(g.players) >= g.cfg.MinPlayers {
		g.startRound(false)
	}
	g.broadcast()
	return p, nil
}

// RemovePlayer evicts a participant, returning all their cards to the
// discard pile. Safe in any state: the judge flag is advanced first if
// they held it, and the round collapses back to Waiting if the table
// drops below the minimum.
func (g *Game) RemovePlayer(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.indexOf(id)
	if i < 0 {
		return
	}
	p := g.players[i]

	for _, c := range p.Hand {
		g.deck.Discard(c)
	}
	p.Hand = nil
	if p.Played != nil {
		g.deck.Discard(*p.Played)
		p.Played = nil
	}

	if p.Judge && len(g.players) > 1 {
		g.rotateJudge(false)
	}
	p.Judge = false
	g.players = append(g.players[:i], g.players[i+1:]...)

	g.logger.Info("player left", "player", id, "seated", len(g.players))

	switch {
	case len(g.players) < g.cfg.MinPlayers:
		g.stop()
	case g.state == Playing:
		g.checkPlayingComplete()
	case g.state == Judging:
		g.rebuildJudged()
	}
	g.broadcast()
}

// Rename updates a display name. Pure data change; broadcasts only when
// the name actually changed.
func (g *Game) Rename(id, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.find(id)
	if p == nil || name == "" || p.Name == name {
		return
	}
	g.logger.Debug("player renamed", "player", id, "from", p.Name, "to", name)
	p.Name = name
	g.broadcast()
}

// SubmitPlay plays a noun card from the sender's hand against the current
// adjective. The hand is topped back up immediately, and the round may
// advance to Judging if this was the last awaited play.
func (g *Game) SubmitPlay(id, cardName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.find(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	if g.state != Playing {
		return ErrWrongState
	}
	if p.Judge {
		return ErrJudgeCannot
	}
	if p.Played != nil {
		return ErrAlreadyPlayed
	}
	c, ok := p.removeFromHand(cardName)
	if !ok {
		return ErrInvalidCard
	}
	p.Played = &c
	g.topUp(p)

	g.logger.Debug("card played", "player", id, "card", c.Name)

	g.checkPlayingComplete()
	g.broadcast()
	return nil
}

// SubmitJudgment resolves the round: the judge picks one of the cards on
// the table, its author scores a point, and the next round starts.
func (g *Game) SubmitJudgment(id, cardName string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.find(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	if g.state != Judging {
		return ErrWrongState
	}
	if !p.Judge {
		return ErrNotJudge
	}
	if !g.onTable(cardName) {
		return ErrInvalidCard
	}

	var winner *Player
	for _, pl := range g.players {
		if pl.Played != nil && pl.Played.Name == cardName {
			winner = pl
			break
		}
	}
	if winner == nil {
		// Every card on the table belongs to a seated player; eviction
		// removes its card from the table. Reaching here means the
		// aggregate is corrupt.
		panic("game: judged card has no author")
	}

	winner.Score++
	g.last = &LastRound{
		Judge:     publicView(p),
		Adjective: *g.adjective,
		Noun:      *winner.Played,
		Winner:    publicView(winner),
	}

	g.logger.Info("round won", "winner", winner.ID, "name", winner.Name,
		"card", cardName, "score", winner.Score)

	for _, pl := range g.players {
		if pl.Played != nil {
			g.deck.Discard(*pl.Played)
			pl.Played = nil
		}
	}
	g.startRound(false)
	g.broadcast()
	return nil
}

// Tick is the periodic entry point for time-based transitions. In Playing
// it re-checks the completion gate; in Judging it forces judge rotation
// once the judging window expires.
func (g *Game) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case Playing:
		g.checkPlayingComplete()
	case Judging:
		if g.clock.Since(g.judgingStart) >= g.cfg.JudgeTimeout {
			g.logger.Warn("judging window expired, rotating judge")
			g.startRound(true)
		}
	}
	g.broadcast()
}

// startRound begins the next round: rotate the judge, sweep unresolved
// plays to the discard pile, top hands back up, reveal a fresh adjective.
// forced marks a rotation caused by the judging timeout, which is what
// arms the judge penalty under the default policy.
func (g *Game) startRound(forced bool) {
	g.rotateJudge(forced)
	for _, p := range g.players {
		if p.Played != nil {
			g.deck.Discard(*p.Played)
			p.Played = nil
		}
		g.topUp(p)
	}
	g.judged = nil
	adj := g.deck.NextAdjective()
	g.adjective = &adj
	g.state = Playing
	g.roundStart = g.clock.Now()

	g.logger.Info("round started", "adjective", adj.Name, "judge", g.judgeName())
}

// rotateJudge hands the judge flag to the next player in roster order,
// wrapping. An incoming judge still holding an unjudged play has it
// resolved by policy: returned to the front of their hand or discarded,
// with a point deducted when the rotation was forced (or on every
// rotation under the always policy).
func (g *Game) rotateJudge(forced bool) {
	if len(g.players) == 0 {
		return
	}
	i := 0
	if cur := g.judgeIndex(); cur >= 0 {
		g.players[cur].Judge = false
		i = (cur + 1) % len(g.players)
	}
	in := g.players[i]
	in.Judge = true

	if in.Played != nil {
		switch g.cfg.JudgePlay {
		case JudgePlayReturn:
			in.Hand = append([]cards.Card{*in.Played}, in.Hand...)
		case JudgePlayDiscard:
			g.deck.Discard(*in.Played)
		}
		in.Played = nil
		if forced || g.cfg.JudgePenalty == JudgePenaltyAlways {
			in.Score--
			g.logger.Debug("judge penalty applied", "player", in.ID, "score", in.Score)
		}
	}
}

// checkPlayingComplete advances Playing to Judging when at least two
// non-judge players have played and either everyone eligible has played
// or the play window has expired. A round with fewer than two plays is
// extended, never judged.
func (g *Game) checkPlayingComplete() {
	if g.state != Playing {
		return
	}
	played, eligible := 0, 0
	for _, p := range g.players {
		if p.Judge {
			continue
		}
		eligible++
		if p.Played != nil {
			played++
		}
	}
	if played < 2 {
		return
	}
	if played < eligible && g.clock.Since(g.roundStart) < g.cfg.PlayTimeout {
		return
	}

	g.state = Judging
	g.judgingStart = g.clock.Now()
	g.rebuildJudged()
	g.logger.Info("judging started", "cards", len(g.judged), "judge", g.judgeName())
}

// rebuildJudged recomputes the card set on the table from live plays,
// sorted by name so card order betrays nothing about authorship. If
// evictions leave fewer than two cards mid-judging, the round falls back
// to Playing with a fresh window.
func (g *Game) rebuildJudged() {
	g.judged = g.judged[:0]
	for _, p := range g.players {
		if p.Played != nil {
			g.judged = append(g.judged, *p.Played)
		}
	}
	sort.Slice(g.judged, func(i, j int) bool {
		return g.judged[i].Name < g.judged[j].Name
	})

	if g.state == Judging && len(g.judged) < 2 {
		g.logger.Info("too few plays left on the table, resuming play")
		g.state = Playing
		g.judged = nil
		g.roundStart = g.clock.Now()
	}
}

// stop collapses the game back to Waiting: plays are swept to the discard
// pile, the judge flag and adjective are cleared. Hands are kept so
// returning to three players restarts quickly.
func (g *Game) stop() {
	for _, p := range g.players {
		if p.Played != nil {
			g.deck.Discard(*p.Played)
			p.Played = nil
		}
		p.Judge = false
	}
	g.adjective = nil
	g.judged = nil
	g.state = Waiting
	g.logger.Info("not enough players, waiting", "seated", len(g.players))
}

// topUp draws until the hand holds the configured hand size. A hand over
// size (a returned judge play) is left alone and plays back down.
func (g *Game) topUp(p *Player) {
	for len(p.Hand) < g.cfg.HandSize {
		p.Hand = append(p.Hand, g.deck.Draw())
	}
}

func (g *Game) onTable(cardName string) bool {
	for _, c := range g.judged {
		if c.Name == cardName {
			return true
		}
	}
	return false
}

func (g *Game) find(id string) *Player {
	if i := g.indexOf(id); i >= 0 {
		return g.players[i]
	}
	return nil
}

func (g *Game) indexOf(id string) int {
	for i, p := range g.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (g *Game) judgeIndex() int {
	for i, p := range g.players {
		if p.Judge {
			return i
		}
	}
	return -1
}

func (g *Game) judgeName() string {
	if i := g.judgeIndex(); i >= 0 {
		return g.players[i].Name
	}
	return ""
}
