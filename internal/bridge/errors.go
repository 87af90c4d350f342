package bridge

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
)

var (
	// ErrNotEmbedded is returned when a Guest tries to reach its host while
	// its window is a top-level context.
	ErrNotEmbedded = errors.New("bridge: guest must be rendered within an embedding context")
	// ErrDestroyed is returned by operations on a peer after Destroy.
	ErrDestroyed = errors.New("bridge: peer has been destroyed")

	errRequired = errors.New("is required")
)

// ConfigError reports a construction-time failure. No peer is returned and no
// listener is registered when one occurs.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("bridge: invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("bridge: invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// registryError names the offending effect when there is one.
func registryError(err error) error {
	var invalid *effect.InvalidEffectError
	if errors.As(err, &invalid) {
		return &ConfigError{Field: "effects." + invalid.Name, Err: err}
	}
	return &ConfigError{Field: "effects", Err: err}
}
