package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/lox/partydeck/internal/cards"
	"github.com/lox/partydeck/internal/deck"
	"github.com/lox/partydeck/internal/game"
)

// stubSender collects frames without a network connection.
type stubSender struct {
	mu     sync.Mutex
	frames [][]byte
}

func (s *stubSender) Send(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, append([]byte(nil), data...))
}

func (s *stubSender) lastState() (frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		var f frame
		if err := json.Unmarshal(s.frames[i], &f); err != nil {
			continue
		}
		if f.Type == "state" {
			return f, true
		}
	}
	return frame{}, false
}

// TestTickDriverForcesJudgeRotation runs the real Start loop on a mock
// clock: once the judging window expires, a tick rotates the judge
// without any client activity.
func TestTickDriverForcesJudgeRotation(t *testing.T) {
	mock := quartz.NewMock(t)
	cfg := game.DefaultConfig()
	g := game.New(cards.Default(), deck.NewRNG(7), mock, testLogger(), cfg)

	// Seat three players directly; the transport is not under test here.
	senders := []*stubSender{{}, {}, {}}
	players := make([]*game.Player, len(senders))
	for i, s := range senders {
		p, err := g.AddPlayer(s)
		require.NoError(t, err)
		players[i] = p
	}
	require.NoError(t, g.SubmitPlay(players[1].ID, players[1].Hand[0].Name))
	require.NoError(t, g.SubmitPlay(players[2].ID, players[2].Hand[0].Name))

	srv := New("localhost:0", g, mock, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	// Walk the mock clock past the judging window; the server's ticker
	// picks up the expiry and starts the next round.
	mock.Advance(cfg.JudgeTimeout)
	require.Eventually(t, func() bool {
		mock.Advance(tickInterval)
		f, ok := senders[1].lastState()
		if !ok {
			return false
		}
		for _, p := range f.Game.Players {
			if p.ID == players[1].ID && p.Judge {
				return f.Game.State == "Playing"
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
