// Package config provides 12-factor configuration for the bridge host and
// guest processes.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP listener, host origin and frame manifest path
//   - Bridge: unknown-effect policy and WebSocket frame limits
//   - Guest: host URL, frame id, own origin and effect script
//   - Script: JavaScript runtime limits
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Serving %s on %s:%s\n", cfg.Server.Manifest, cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST, HOST_ORIGIN, MANIFEST
//   - BRIDGE_UNKNOWN_POLICY, BRIDGE_WS_RATE, BRIDGE_WS_BURST
//   - GUEST_HOST_URL, GUEST_FRAME, GUEST_ORIGIN, GUEST_SCRIPT
//   - SCRIPT_TIMEOUT, SCRIPT_CONSOLE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
