package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/partydeck/internal/game"
)

// tickInterval drives time-based round transitions. Broadcast dedup in
// the game engine keeps idle ticks off the wire.
const tickInterval = 100 * time.Millisecond

// Server accepts WebSocket clients and seats each one in the game for
// the lifetime of its connection.
type Server struct {
	addr     string
	game     *game.Game
	clock    quartz.Clock
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu          sync.Mutex
	connections map[*Connection]struct{}
}

// New creates a server over the given game. The clock drives the
// periodic tick so tests can run on a mock.
func New(addr string, g *game.Game, clock quartz.Clock, logger *log.Logger) *Server {
	return &Server{
		addr: addr,
		game: g,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clock:       clock,
		logger:      logger.WithPrefix("server"),
		connections: make(map[*Connection]struct{}),
	}
}

// Handler returns the HTTP handler serving /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start runs the HTTP listener and the game tick driver until the
// context is cancelled or either fails.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		s.closeAll()
		return nil
	})

	eg.Go(func() error {
		s.logger.Info("starting websocket server", "addr", s.addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		ticker := s.clock.TickerFunc(ctx, tickInterval, func() error {
			s.game.Tick()
			return nil
		}, "tick")
		if err := ticker.Wait(); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	return eg.Wait()
}

// handleWebSocket upgrades the request and seats the client. The player
// leaves the game when the connection goes away for any reason.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(ws, s.game, s.logger)

	player, err := s.game.AddPlayer(conn)
	if err != nil {
		s.logger.Warn("turning away connection", "error", err)
		conn.reject("game_full", "the game is at capacity, try again later")
		return
	}

	conn.start()
	conn.setPlayer(player.ID)
	conn.welcome(player.ID)
	s.track(conn)

	go func() {
		<-conn.ctx.Done()
		s.game.RemovePlayer(player.ID)
		s.untrack(conn)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) track(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[conn] = struct{}{}
	s.logger.Info("client connected", "total", len(s.connections))
}

func (s *Server) untrack(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, conn)
	s.logger.Info("client disconnected", "total", len(s.connections))
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.connections {
		_ = conn.Close()
	}
}
