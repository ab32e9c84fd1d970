package main

import (
	"time"

	"github.com/coder/quartz"

	"github.com/lox/partydeck/cmd/partydeck/shared"
	"github.com/lox/partydeck/internal/cards"
	"github.com/lox/partydeck/internal/deck"
	"github.com/lox/partydeck/internal/game"
	"github.com/lox/partydeck/internal/server"
)

// ServeCmd runs the game server.
type ServeCmd struct {
	Config string `kong:"short='c',default='partydeck.hcl',help='Path to HCL configuration file'"`
	Addr   string `kong:"short='a',help='Server address to bind to (overrides config)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed (optional)'"`
}

func (c *ServeCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !c.Debug {
		shared.ApplyLogLevel(logger, cfg.Server.LogLevel)
	}

	set := cards.Default()
	if cfg.Deck.CardsFile != "" {
		set, err = cards.Load(cfg.Deck.CardsFile)
		if err != nil {
			return err
		}
		logger.Info("loaded card set", "file", cfg.Deck.CardsFile,
			"nouns", len(set.Nouns), "adjectives", len(set.Adjectives))
	}
	if err := cfg.GameConfig().ValidateSet(set); err != nil {
		return err
	}

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("using deterministic seed", "seed", seed)
	} else {
		seed = time.Now().UnixNano()
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	g := game.New(set, deck.NewRNG(seed), quartz.NewReal(), logger, cfg.GameConfig())
	srv := server.New(addr, g, quartz.NewReal(), logger)

	logger.Info("starting partydeck server",
		"addr", addr,
		"hand_size", cfg.GameConfig().HandSize,
		"min_players", cfg.GameConfig().MinPlayers,
		"max_players", cfg.GameConfig().MaxPlayers,
		"play_timeout", cfg.GameConfig().PlayTimeout,
		"judge_timeout", cfg.GameConfig().JudgeTimeout)

	ctx := shared.SetupSignalHandler(logger)
	return srv.Start(ctx)
}
