package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SpriteKind is one entry of the sprite catalog offered to the stage.
type SpriteKind struct {
	Kind   string  `yaml:"kind"`
	Name   string  `yaml:"name"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type StageConfig struct {
	Version int `yaml:"version"`
	Stage   struct {
		ID     string  `yaml:"id"`
		Name   string  `yaml:"name"`
		Width  float64 `yaml:"width"`
		Height float64 `yaml:"height"`
	} `yaml:"stage"`
	Runtime struct {
		TickInterval string `yaml:"tick_interval"`
		Collisions   *bool  `yaml:"collisions"`
		Project      string `yaml:"project"`
	} `yaml:"runtime"`
	Network struct {
		UIPort   int `yaml:"ui_port"`
		MQTTPort int `yaml:"mqtt_port"`
		DBPort   int `yaml:"db_port"`
	} `yaml:"network"`
	Sprites []SpriteKind `yaml:"sprites"`
}

// DefaultSprites is the catalog used when stage.yaml lists none.
var DefaultSprites = []SpriteKind{
	{Kind: "cat", Name: "Cat", Width: 50, Height: 50},
	{Kind: "dog", Name: "Dog", Width: 50, Height: 50},
	{Kind: "cat2", Name: "Cat2", Width: 50, Height: 50},
}

// Default returns a config with every optional field at its default.
func Default() *StageConfig {
	cfg := &StageConfig{Version: 1}
	cfg.Stage.ID = "stage"
	cfg.Stage.Name = "Stage"
	return cfg
}

// StageID returns the configured stage id, defaulting to "stage".
func (c *StageConfig) StageID() string {
	if c.Stage.ID == "" {
		return "stage"
	}
	return c.Stage.ID
}

// UIPort returns the configured UI port, defaulting to 8080 if not set.
func (c *StageConfig) UIPort() int {
	if c.Network.UIPort == 0 {
		return 8080
	}
	return c.Network.UIPort
}

// StageSize returns the stage width and height, defaulting to 480x360.
func (c *StageConfig) StageSize() (float64, float64) {
	w, h := c.Stage.Width, c.Stage.Height
	if w <= 0 {
		w = 480
	}
	if h <= 0 {
		h = 360
	}
	return w, h
}

// TickInterval returns the frame interval, defaulting to 16ms (about 60 frames per second).
func (c *StageConfig) TickInterval() time.Duration {
	if c.Runtime.TickInterval == "" {
		return 16 * time.Millisecond
	}
	d, err := time.ParseDuration(c.Runtime.TickInterval)
	if err != nil || d <= 0 {
		return 16 * time.Millisecond
	}
	return d
}

// CollisionsEnabled reports whether the collision monitor runs. Defaults to true.
func (c *StageConfig) CollisionsEnabled() bool {
	if c.Runtime.Collisions == nil {
		return true
	}
	return *c.Runtime.Collisions
}

// SpriteCatalog returns the configured sprite kinds or DefaultSprites.
func (c *StageConfig) SpriteCatalog() []SpriteKind {
	if len(c.Sprites) == 0 {
		return append([]SpriteKind{}, DefaultSprites...)
	}
	return append([]SpriteKind{}, c.Sprites...)
}

func LoadStageConfig(path string) (*StageConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg StageConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported stage.yaml version: %d", cfg.Version)
	}

	if cfg.Runtime.TickInterval != "" {
		if _, err := time.ParseDuration(cfg.Runtime.TickInterval); err != nil {
			return nil, fmt.Errorf("invalid runtime.tick_interval %q: %w", cfg.Runtime.TickInterval, err)
		}
	}

	for i, k := range cfg.Sprites {
		if k.Kind == "" {
			return nil, fmt.Errorf("sprites[%d]: kind is required", i)
		}
	}

	return &cfg, nil
}
