package bridge

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
)

// StartPolicy decides when a peer begins listening.
type StartPolicy int

const (
	// StartDefault waits for Init on a Host and listens at construction on
	// a Guest.
	StartDefault StartPolicy = iota
	// StartExplicit always waits for Init.
	StartExplicit
	// StartOnConstruct listens as part of construction.
	StartOnConstruct
)

func (p StartPolicy) String() string {
	switch p {
	case StartExplicit:
		return "explicit"
	case StartOnConstruct:
		return "on_construct"
	default:
		return "default"
	}
}

// Options carries the ambient collaborators of a peer. The zero value is
// usable: no logging, no metrics, report unknown effects.
type Options struct {
	Start   StartPolicy
	Unknown effect.UnknownPolicy
	Logger  *zap.Logger
	Metrics *monitoring.Metrics

	// OnError observes recoverable dispatch failures: handler panics and,
	// under effect.UnknownStrict, unregistered effect names. It runs on the
	// delivery turn and must not block.
	OnError func(error)
}

// State is a peer's lifecycle position.
type State int

const (
	StateConfigured State = iota
	StateListening
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateListening:
		return "listening"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}
