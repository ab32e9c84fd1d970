package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/partydeck/internal/game"
)

// Config represents the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Deck   DeckSettings   `hcl:"deck,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings tunes the round engine. Zero values fall back to the
// engine defaults.
type GameSettings struct {
	HandSize            int    `hcl:"hand_size,optional"`
	MinPlayers          int    `hcl:"min_players,optional"`
	MaxPlayers          int    `hcl:"max_players,optional"`
	PlayTimeoutSeconds  int    `hcl:"play_timeout_seconds,optional"`
	JudgeTimeoutSeconds int    `hcl:"judge_timeout_seconds,optional"`
	JudgePlay           string `hcl:"judge_play,optional"`
	JudgePenalty        string `hcl:"judge_penalty,optional"`
}

// DeckSettings points at the card dataset. An empty cards_file uses the
// embedded dataset.
type DeckSettings struct {
	CardsFile string `hcl:"cards_file,optional"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
	}
}

// LoadConfig loads server configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	return c.GameConfig().Validate()
}

// GameConfig maps the configured game settings onto the engine config,
// filling gaps with the engine defaults.
func (c *Config) GameConfig() game.Config {
	cfg := game.DefaultConfig()
	if c.Game.HandSize > 0 {
		cfg.HandSize = c.Game.HandSize
	}
	if c.Game.MinPlayers > 0 {
		cfg.MinPlayers = c.Game.MinPlayers
	}
	if c.Game.MaxPlayers > 0 {
		cfg.MaxPlayers = c.Game.MaxPlayers
	}
	if c.Game.PlayTimeoutSeconds > 0 {
		cfg.PlayTimeout = time.Duration(c.Game.PlayTimeoutSeconds) * time.Second
	}
	if c.Game.JudgeTimeoutSeconds > 0 {
		cfg.JudgeTimeout = time.Duration(c.Game.JudgeTimeoutSeconds) * time.Second
	}
	if c.Game.JudgePlay != "" {
		cfg.JudgePlay = game.JudgePlayPolicy(c.Game.JudgePlay)
	}
	if c.Game.JudgePenalty != "" {
		cfg.JudgePenalty = game.JudgePenaltyPolicy(c.Game.JudgePenalty)
	}
	return cfg
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
