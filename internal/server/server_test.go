package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/partydeck/internal/cards"
	"github.com/lox/partydeck/internal/deck"
	"github.com/lox/partydeck/internal/game"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestServer(t *testing.T, cfgs ...game.Config) (*Server, *httptest.Server) {
	t.Helper()

	cfg := game.DefaultConfig()
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}
	g := game.New(cards.Default(), deck.NewRNG(42), quartz.NewReal(), testLogger(), cfg)
	srv := New("localhost:0", g, quartz.NewReal(), testLogger())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// frame is the union of everything the server sends: welcome envelopes
// and state views.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	You  string          `json:"you"`
	Game struct {
		State   string `json:"state"`
		Players []struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Judge  bool   `json:"judge"`
			Played bool   `json:"played"`
		} `json:"players"`
		Adjective *cards.Card  `json:"adjective"`
		Cards     []cards.Card `json:"cards"`
	} `json:"game"`
	Hand []cards.Card `json:"hand"`
}

// client is a test WebSocket client that buffers every received frame so
// assertions can match frames regardless of arrival interleaving. waitFor
// consumes frames in order; welcome peeks without consuming, since the
// welcome envelope interleaves with state frames later waits still need.
type client struct {
	t      *testing.T
	conn   *websocket.Conn
	frames []frame
	cursor int
	id     string
}

func dial(t *testing.T, ts *httptest.Server) *client {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

// readFrame pulls one frame off the socket into the buffer.
func (c *client) readFrame() {
	c.t.Helper()

	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := c.conn.ReadMessage()
	require.NoError(c.t, err, "waiting for frame")
	var f frame
	require.NoError(c.t, json.Unmarshal(data, &f))
	c.frames = append(c.frames, f)
}

// waitFor returns the first not-yet-consumed frame accepted by pred,
// reading more frames from the socket as needed. Everything up to the
// match is consumed with it.
func (c *client) waitFor(pred func(frame) bool) frame {
	c.t.Helper()

	for {
		for ; c.cursor < len(c.frames); c.cursor++ {
			if pred(c.frames[c.cursor]) {
				f := c.frames[c.cursor]
				c.cursor++
				return f
			}
		}
		c.readFrame()
	}
}

// welcome waits for the welcome envelope and records the player ID. It
// does not consume: state frames arriving around it stay available.
func (c *client) welcome() string {
	c.t.Helper()

	for {
		for _, f := range c.frames {
			if f.Type != "welcome" {
				continue
			}
			var data WelcomeData
			require.NoError(c.t, json.Unmarshal(f.Data, &data))
			require.NotEmpty(c.t, data.ID)
			c.id = data.ID
			return data.ID
		}
		c.readFrame()
	}
}

func (c *client) send(msgType MessageType, data interface{}) {
	c.t.Helper()

	msg, err := NewMessage(msgType, data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

// isJudge reports whether this client holds the judge flag in f.
func (c *client) isJudge(f frame) bool {
	for _, p := range f.Game.Players {
		if p.ID == c.id {
			return p.Judge
		}
	}
	return false
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.handleHealth(w, req)

	require.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestConnectReceivesStateAndWelcome(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	c := dial(t, ts)
	id := c.welcome()

	state := c.waitFor(func(f frame) bool { return f.Type == "state" })
	require.Equal(t, id, state.You)
	require.Equal(t, "Waiting", state.Game.State)
	require.Len(t, state.Hand, 7)
	require.Len(t, state.Game.Players, 1)
	require.NotEmpty(t, state.Game.Players[0].Name, "new players get a default name")
}

func TestThirdPlayerStartsRound(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	clients := []*client{dial(t, ts), dial(t, ts), dial(t, ts)}
	for _, c := range clients {
		c.welcome()
	}

	for _, c := range clients {
		state := c.waitFor(func(f frame) bool {
			return f.Type == "state" && f.Game.State == "Playing"
		})
		require.Len(t, state.Game.Players, 3)
		require.NotNil(t, state.Game.Adjective)
		require.Len(t, state.Hand, 7)

		judges := 0
		for _, p := range state.Game.Players {
			if p.Judge {
				judges++
			}
		}
		require.Equal(t, 1, judges)
	}
}

func TestPlayMessageMarksPlayerAsPlayed(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	clients := []*client{dial(t, ts), dial(t, ts), dial(t, ts)}
	for _, c := range clients {
		c.welcome()
	}

	// Find a non-judge client and play the first card from its hand.
	var player *client
	var state frame
	for _, c := range clients {
		state = c.waitFor(func(f frame) bool {
			return f.Type == "state" && f.Game.State == "Playing"
		})
		if !c.isJudge(state) {
			player = c
			break
		}
	}
	require.NotNil(t, player)

	played := state.Hand[0].Name
	player.send(MessageTypePlay, PlayData{Card: played})

	update := player.waitFor(func(f frame) bool {
		if f.Type != "state" {
			return false
		}
		for _, p := range f.Game.Players {
			if p.ID == player.id {
				return p.Played
			}
		}
		return false
	})

	// The played card left the hand and a replacement was drawn.
	require.Len(t, update.Hand, 7)
	for _, card := range update.Hand {
		require.NotEqual(t, played, card.Name)
	}
}

func TestRenameMessage(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	c := dial(t, ts)
	id := c.welcome()

	c.send(MessageTypeRename, RenameData{Name: "alice"})

	c.waitFor(func(f frame) bool {
		if f.Type != "state" {
			return false
		}
		for _, p := range f.Game.Players {
			if p.ID == id && p.Name == "alice" {
				return true
			}
		}
		return false
	})
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	stayer := dial(t, ts)
	stayer.welcome()
	leaver := dial(t, ts)
	leaver.welcome()

	stayer.waitFor(func(f frame) bool {
		return f.Type == "state" && len(f.Game.Players) == 2
	})

	require.NoError(t, leaver.conn.Close())

	stayer.waitFor(func(f frame) bool {
		return f.Type == "state" && len(f.Game.Players) == 1
	})
}

func TestJoinRejectedWhenGameFull(t *testing.T) {
	t.Parallel()
	cfg := game.DefaultConfig()
	cfg.MaxPlayers = 3
	_, ts := newTestServer(t, cfg)

	seated := []*client{dial(t, ts), dial(t, ts), dial(t, ts)}
	for _, c := range seated {
		c.welcome()
	}

	// The fourth connection is turned away with an error frame and the
	// socket is closed.
	rejected := dial(t, ts)
	f := rejected.waitFor(func(f frame) bool { return f.Type == "error" })
	var data ErrorData
	require.NoError(t, json.Unmarshal(f.Data, &data))
	require.Equal(t, "game_full", data.Code)

	_, _, err := rejected.conn.ReadMessage()
	require.Error(t, err, "rejected connection should be closed")

	// Seated clients are unaffected.
	seated[0].send(MessageTypeRename, RenameData{Name: "still-here"})
	seated[0].waitFor(func(f frame) bool {
		if f.Type != "state" {
			return false
		}
		for _, p := range f.Game.Players {
			if p.ID == seated[0].id && p.Name == "still-here" {
				return true
			}
		}
		return false
	})
}

func TestMalformedMessagesAreIgnored(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	c := dial(t, ts)
	id := c.welcome()

	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"play","data":{"card":123}}`)))
	require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))

	// The connection survives and still responds to valid requests.
	c.send(MessageTypeRename, RenameData{Name: "bob"})
	c.waitFor(func(f frame) bool {
		if f.Type != "state" {
			return false
		}
		for _, p := range f.Game.Players {
			if p.ID == id && p.Name == "bob" {
				return true
			}
		}
		return false
	})
}
