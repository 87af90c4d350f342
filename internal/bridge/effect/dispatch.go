package effect

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
)

// UnknownPolicy decides what happens to an accepted signal whose name has no
// registered handler. No policy ever panics or blocks the listener.
type UnknownPolicy int

const (
	// UnknownReport logs a warning and counts the signal.
	UnknownReport UnknownPolicy = iota
	// UnknownDrop only counts the signal.
	UnknownDrop
	// UnknownStrict counts the signal and returns an *UnknownEffectError.
	UnknownStrict
)

func (p UnknownPolicy) String() string {
	switch p {
	case UnknownReport:
		return "report"
	case UnknownDrop:
		return "drop"
	case UnknownStrict:
		return "strict"
	default:
		return fmt.Sprintf("UnknownPolicy(%d)", int(p))
	}
}

// ParseUnknownPolicy parses "report", "drop" or "strict".
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "report":
		return UnknownReport, nil
	case "drop":
		return UnknownDrop, nil
	case "strict":
		return UnknownStrict, nil
	default:
		return UnknownReport, fmt.Errorf("unknown effect policy %q", s)
	}
}

// DispatchOptions configures a Dispatcher.
type DispatchOptions struct {
	Policy  UnknownPolicy
	Label   string // metrics and log label of the owning peer
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
}

// Dispatcher routes accepted signals to a registry.
type Dispatcher struct {
	registry *Registry
	invoke   func(signal.Signal) error
	policy   UnknownPolicy
	label    string
	logger   *zap.Logger
	metrics  *monitoring.Metrics
}

// NewDispatcher binds a registry to the sender every handler receives as its
// counterpart callback.
func NewDispatcher(registry *Registry, invoke func(signal.Signal) error, opts DispatchOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry: registry,
		invoke:   invoke,
		policy:   opts.Policy,
		label:    opts.Label,
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Dispatch runs the handler registered for sig.Name, if any. A panicking
// handler is recovered and reported as *HandlerPanicError so the caller's
// listener keeps serving.
func (d *Dispatcher) Dispatch(sig signal.Signal) (err error) {
	handler, ok := d.registry.Lookup(sig.Name)
	if !ok {
		return d.unknown(sig.Name)
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordEffectPanic(d.label, sig.Name)
			d.logger.Error("Effect handler panicked",
				zap.String("peer", d.label),
				zap.String("effect", sig.Name),
				zap.Any("panic", r),
			)
			err = &HandlerPanicError{Name: sig.Name, Value: r}
		}
	}()

	handler.Handle(NewContext(sig.Name, sig.Args, d.invoke))
	d.metrics.RecordEffect(d.label, sig.Name, time.Since(start))
	return nil
}

func (d *Dispatcher) unknown(name string) error {
	d.metrics.RecordUnknownEffect(d.label)

	switch d.policy {
	case UnknownDrop:
		return nil
	case UnknownStrict:
		return &UnknownEffectError{Name: name}
	default:
		d.logger.Warn("Signal names an unregistered effect",
			zap.String("peer", d.label),
			zap.String("effect", name),
			zap.Strings("registered", d.registry.Names()),
		)
		return nil
	}
}
