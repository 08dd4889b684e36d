// Package config loads the static game configuration document.
//
// Configuration comes from two places: a JSON document (an embedded default,
// optionally replaced by a file passed on the command line) describing map
// bounds, costs, the body catalog, comm channels and the starter project
// catalog, and environment variables for machine-local settings like the
// database path and narration credentials.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/calhale/spacegame/data"
)

const defaultFile = "default_config.json"

// Config is the static game configuration. It is loaded once at startup and
// never mutated afterwards.
type Config struct {
	Title              string       `json:"title"`
	Map                MapBounds    `json:"map"`
	MoveFuelCost       float64      `json:"move_fuel_cost"`
	ScanCreditAward    int          `json:"scan_credit_award"`
	NarrationTimeoutMS int          `json:"narration_timeout_ms"`
	CheckpointInterval int          `json:"checkpoint_interval"`
	Start              Start        `json:"start"`
	Bodies             []Body       `json:"bodies"`
	Channels           []Channel    `json:"channels"`
	Projects           []ProjectDef `json:"projects"`
}

// MapBounds describes the playable grid. Positions range over
// [0, Width) x [0, Height).
type MapBounds struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Start describes the ship's state on a fresh game.
type Start struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Fuel    float64 `json:"fuel"`
	Hull    float64 `json:"hull"`
	Credits int     `json:"credits"`
}

// Body is a known celestial body that can be scanned.
type Body struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Description string `json:"description"`
}

// Channel is a comms channel the ship can hail.
type Channel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Response string `json:"response"`
}

// ProjectDef seeds one starter project and its ordered tasks.
type ProjectDef struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tasks       []TaskDef `json:"tasks"`
}

// TaskDef seeds one task row within a project.
type TaskDef struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NarrationTimeout returns the narration deadline as a duration.
func (c Config) NarrationTimeout() time.Duration {
	return time.Duration(c.NarrationTimeoutMS) * time.Millisecond
}

// Default returns the embedded default configuration.
func Default() (Config, error) {
	content, err := data.FS().ReadFile(defaultFile)
	if err != nil {
		return Config{}, fmt.Errorf("read embedded config: %w", err)
	}
	return parse(content)
}

// MustDefault returns the embedded default configuration, panicking on error.
// The embedded document is part of the build; failing to parse it is a bug.
func MustDefault() Config {
	cfg, err := Default()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads a configuration file from disk. An empty path returns the
// embedded defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default()
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := parse(content)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func parse(content []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		return fmt.Errorf("map bounds must be positive, got %dx%d", c.Map.Width, c.Map.Height)
	}
	if c.MoveFuelCost < 0 {
		return fmt.Errorf("move fuel cost must not be negative, got %v", c.MoveFuelCost)
	}
	if c.NarrationTimeoutMS <= 0 {
		return fmt.Errorf("narration timeout must be positive, got %d", c.NarrationTimeoutMS)
	}
	if c.CheckpointInterval < 0 {
		return fmt.Errorf("checkpoint interval must not be negative, got %d", c.CheckpointInterval)
	}
	seen := make(map[string]bool, len(c.Bodies))
	for _, b := range c.Bodies {
		if b.ID == "" {
			return fmt.Errorf("body %q has no id", b.Name)
		}
		if seen[b.ID] {
			return fmt.Errorf("duplicate body id %q", b.ID)
		}
		seen[b.ID] = true
	}
	return nil
}

// Env holds machine-local settings read from environment variables.
type Env struct {
	// DatabasePath is the SQLite file backing the persistence store.
	DatabasePath string `env:"SPACEGAME_DB" envDefault:"spacegame.db"`

	// NarrationAPIKey enables the narrative client when set. Without it the
	// game runs with narration disabled.
	NarrationAPIKey string `env:"SPACEGAME_NARRATION_API_KEY"`

	// NarrationModel selects the model used for narration requests.
	NarrationModel string `env:"SPACEGAME_NARRATION_MODEL" envDefault:"gpt-4o-mini"`

	// NarrationURL overrides the narration endpoint, mainly for testing.
	NarrationURL string `env:"SPACEGAME_NARRATION_URL"`
}

// ParseEnv loads environment settings.
func ParseEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}
