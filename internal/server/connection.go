package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/partydeck/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Connection wraps a WebSocket connection to a client. It satisfies
// game.Sender: Send enqueues on a buffered channel and never blocks, so
// the game lock is never held across network I/O.
type Connection struct {
	conn      *websocket.Conn
	send      chan []byte
	game      *game.Game
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	playerID  string
	closeOnce sync.Once
}

func newConnection(conn *websocket.Conn, g *game.Game, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan []byte, 256),
		game:   g,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// start begins the read and write pumps.
func (c *Connection) start() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the connection down. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		err = c.conn.Close()
	})
	return err
}

// Send enqueues a frame for the client. A slow consumer whose buffer is
// full loses the frame rather than stalling the game; the next state
// change delivers a complete snapshot anyway.
func (c *Connection) Send(data []byte) {
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, dropping frame", "player", c.getPlayer())
	}
}

func (c *Connection) setPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

func (c *Connection) getPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring unparseable message", "error", err)
			continue
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Error("failed to write frame", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches a client request into the game engine. A
// rejected request produces no response; the client's view is corrected
// by the next state frame.
func (c *Connection) handleMessage(msg *Message) {
	playerID := c.getPlayer()
	c.logger.Debug("received message", "type", msg.Type, "player", playerID)
	if playerID == "" {
		return
	}

	switch msg.Type {
	case MessageTypeRename:
		var data RenameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Debug("failed to parse rename data", "error", err)
			return
		}
		c.game.Rename(playerID, data.Name)

	case MessageTypePlay:
		var data PlayData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Debug("failed to parse play data", "error", err)
			return
		}
		if err := c.game.SubmitPlay(playerID, data.Card); err != nil {
			c.logger.Debug("play rejected", "player", playerID, "card", data.Card, "error", err)
		}

	case MessageTypeJudge:
		var data JudgeData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Debug("failed to parse judge data", "error", err)
			return
		}
		if err := c.game.SubmitJudgment(playerID, data.Card); err != nil {
			c.logger.Debug("judgment rejected", "player", playerID, "card", data.Card, "error", err)
		}

	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
	}
}

// reject writes an error frame directly and drops the socket. Used
// before the pumps start, when the client was never seated.
func (c *Connection) reject(code, message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		_ = c.Close()
		return
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal error message", "error", err)
		_ = c.Close()
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.TextMessage, frame)
	_ = c.Close()
}

// welcome sends the client its player ID.
func (c *Connection) welcome(playerID string) {
	msg, err := NewMessage(MessageTypeWelcome, WelcomeData{ID: playerID})
	if err != nil {
		c.logger.Error("failed to create welcome message", "error", err)
		return
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal welcome message", "error", err)
		return
	}
	c.Send(frame)
}
