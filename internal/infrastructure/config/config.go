package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Bridge    BridgeConfig
	Guest     GuestConfig
	Script    ScriptConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// Origin is the serialized origin guests address this host by. Empty
	// derives http://localhost:<port>.
	Origin   string `envconfig:"HOST_ORIGIN"`
	Manifest string `envconfig:"MANIFEST" default:"frames.yaml"`
}

// BridgeConfig holds peer behaviour shared by host and guest.
type BridgeConfig struct {
	UnknownPolicy string `envconfig:"BRIDGE_UNKNOWN_POLICY" default:"report"`
	WSRate        int    `envconfig:"BRIDGE_WS_RATE" default:"100"`
	WSBurst       int    `envconfig:"BRIDGE_WS_BURST" default:"200"`
}

// GuestConfig holds guest process configuration.
type GuestConfig struct {
	HostURL string `envconfig:"GUEST_HOST_URL" default:"ws://localhost:8000/bridge"`
	FrameID string `envconfig:"GUEST_FRAME" default:"app"`
	Origin  string `envconfig:"GUEST_ORIGIN" default:"http://localhost:3000"`
	Script  string `envconfig:"GUEST_SCRIPT" default:"guest.js"`
}

// ScriptConfig holds JavaScript effect runtime limits.
type ScriptConfig struct {
	Timeout time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"5s"`
	Console bool          `envconfig:"SCRIPT_CONSOLE" default:"true"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// HostOrigin returns the configured origin or the localhost default.
func (c *Config) HostOrigin() string {
	if c.Server.Origin != "" {
		return c.Server.Origin
	}
	return "http://localhost:" + c.Server.Port
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     "8000",
			Host:     "0.0.0.0",
			Manifest: "frames.yaml",
		},
		Bridge: BridgeConfig{
			UnknownPolicy: "report",
			WSRate:        100,
			WSBurst:       200,
		},
		Guest: GuestConfig{
			HostURL: "ws://localhost:8000/bridge",
			FrameID: "app",
			Origin:  "http://localhost:3000",
			Script:  "guest.js",
		},
		Script: ScriptConfig{
			Timeout: 5 * time.Second,
			Console: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
