package script

import (
	"errors"
	"time"
)

var (
	ErrTimeout = errors.New("script: execution timeout exceeded")
	ErrClosed  = errors.New("script: runtime is closed")
)

// Config defines runtime limits
type Config struct {
	Timeout          time.Duration // Per-run and per-handler execution limit
	EnableConsole    bool          // Expose console.log/info/warn/error
	MaxCallStackSize int           // 0 keeps the goja default
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, info, warn, error
	Message string    // Space-joined arguments
	Time    time.Time // Timestamp
}

// maxConsoleEntries bounds the captured console history.
const maxConsoleEntries = 1000

// DefaultConfig returns the limits used by cmd/server and cmd/guest.
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		EnableConsole:    true,
		MaxCallStackSize: 1024,
	}
}
