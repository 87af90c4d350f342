package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "frames.yaml", cfg.Server.Manifest)
	assert.Equal(t, "http://localhost:8000", cfg.HostOrigin())

	// Bridge config
	assert.Equal(t, "report", cfg.Bridge.UnknownPolicy)
	assert.Equal(t, 100, cfg.Bridge.WSRate)

	// Guest config
	assert.Equal(t, "ws://localhost:8000/bridge", cfg.Guest.HostURL)
	assert.Equal(t, "http://localhost:3000", cfg.Guest.Origin)

	// Script config
	assert.Equal(t, 5*time.Second, cfg.Script.Timeout)
	assert.True(t, cfg.Script.Console)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"HOST":                  "127.0.0.1",
		"HOST_ORIGIN":           "https://host.example",
		"MANIFEST":              "/etc/bridge/frames.toml",
		"BRIDGE_UNKNOWN_POLICY": "strict",
		"BRIDGE_WS_RATE":        "10",
		"BRIDGE_WS_BURST":       "20",
		"GUEST_HOST_URL":        "wss://host.example/bridge",
		"GUEST_FRAME":           "widget",
		"GUEST_ORIGIN":          "https://guest.example",
		"GUEST_SCRIPT":          "widget.js",
		"SCRIPT_TIMEOUT":        "250ms",
		"SCRIPT_CONSOLE":        "false",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_RPS":        "500",
		"RATE_LIMIT_BURST":      "1000",
		"RATE_LIMIT_ENABLED":    "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "https://host.example", cfg.HostOrigin())
	assert.Equal(t, "/etc/bridge/frames.toml", cfg.Server.Manifest)

	assert.Equal(t, "strict", cfg.Bridge.UnknownPolicy)
	assert.Equal(t, 10, cfg.Bridge.WSRate)
	assert.Equal(t, 20, cfg.Bridge.WSBurst)

	assert.Equal(t, "wss://host.example/bridge", cfg.Guest.HostURL)
	assert.Equal(t, "widget", cfg.Guest.FrameID)
	assert.Equal(t, "https://guest.example", cfg.Guest.Origin)
	assert.Equal(t, "widget.js", cfg.Guest.Script)

	assert.Equal(t, 250*time.Millisecond, cfg.Script.Timeout)
	assert.False(t, cfg.Script.Console)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Verify overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:3000", cfg.HostOrigin())

	// Verify default values still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "report", cfg.Bridge.UnknownPolicy)
}

func TestLoadOrDefaultOnInvalidValue(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "lots")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, Default(), cfg)
}

func TestRateLimitConfig(t *testing.T) {
	tests := []struct {
		name        string
		rps         string
		burst       string
		enabled     string
		wantRPS     int
		wantBurst   int
		wantEnabled bool
	}{
		{
			name:        "default values",
			wantRPS:     100,
			wantBurst:   200,
			wantEnabled: true,
		},
		{
			name:        "high limits",
			rps:         "1000",
			burst:       "2000",
			wantRPS:     1000,
			wantBurst:   2000,
			wantEnabled: true,
		},
		{
			name:        "disabled",
			enabled:     "false",
			wantRPS:     100,
			wantBurst:   200,
			wantEnabled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.rps != "" {
				t.Setenv("RATE_LIMIT_RPS", tt.rps)
			}
			if tt.burst != "" {
				t.Setenv("RATE_LIMIT_BURST", tt.burst)
			}
			if tt.enabled != "" {
				t.Setenv("RATE_LIMIT_ENABLED", tt.enabled)
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantRPS, cfg.RateLimit.RequestsPerSecond)
			assert.Equal(t, tt.wantBurst, cfg.RateLimit.Burst)
			assert.Equal(t, tt.wantEnabled, cfg.RateLimit.Enabled)
		})
	}
}
