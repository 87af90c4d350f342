package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("resilience: circuit open")

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int
	// Cooldown is how long the circuit stays open before one probe attempt.
	Cooldown time.Duration
	// OnStateChange is called, with the breaker lock released, on every
	// transition.
	OnStateChange func(from, to State)
}

// DefaultSettings returns the settings used for guest reconnects.
func DefaultSettings() Settings {
	return Settings{
		Threshold: 5,
		Cooldown:  30 * time.Second,
	}
}

// Breaker guards a repeated operation such as dialing a host. While open it
// refuses attempts; after the cooldown it lets a single probe through.
type Breaker struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a closed breaker. Zero settings fall back to DefaultSettings.
func New(settings Settings) *Breaker {
	defaults := DefaultSettings()
	if settings.Threshold <= 0 {
		settings.Threshold = defaults.Threshold
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = defaults.Cooldown
	}
	return &Breaker{settings: settings, now: time.Now}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	moved := b.advance()
	state := b.state
	b.mu.Unlock()

	if moved {
		b.notify(StateOpen, StateHalfOpen)
	}
	return state
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Allow reserves an attempt. It returns ErrCircuitOpen while open, or while
// a half-open probe is already in flight.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	moved := b.advance()
	var err error
	switch {
	case b.state == StateOpen:
		err = ErrCircuitOpen
	case b.state == StateHalfOpen && b.probing:
		err = ErrCircuitOpen
	case b.state == StateHalfOpen:
		b.probing = true
	}
	b.mu.Unlock()

	if moved {
		b.notify(StateOpen, StateHalfOpen)
	}
	return err
}

// Record reports the outcome of an attempt admitted by Allow.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	from := b.state
	b.probing = false
	if err == nil {
		b.failures = 0
		b.state = StateClosed
	} else {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.settings.Threshold {
			b.state = StateOpen
			b.openedAt = b.now()
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// Do waits until an attempt is admitted, runs fn and records its result.
func (b *Breaker) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.Wait(ctx); err != nil {
		return err
	}
	err := fn(ctx)
	b.Record(err)
	return err
}

// Wait blocks until Allow succeeds or ctx is done.
func (b *Breaker) Wait(ctx context.Context) error {
	for {
		if err := b.Allow(); err == nil {
			return nil
		}

		timer := time.NewTimer(b.retryIn())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// retryIn is how long until the circuit may admit a probe.
func (b *Breaker) retryIn() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		// A probe is in flight; poll until it settles.
		return b.settings.Cooldown / 10
	}
	d := b.openedAt.Add(b.settings.Cooldown).Sub(b.now())
	if d <= 0 {
		return time.Millisecond
	}
	return d
}

// advance moves an expired open circuit to half-open and reports whether it
// did. Callers hold mu.
func (b *Breaker) advance() bool {
	if b.state != StateOpen || b.now().Before(b.openedAt.Add(b.settings.Cooldown)) {
		return false
	}
	b.state = StateHalfOpen
	return true
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.settings.OnStateChange != nil {
		b.settings.OnStateChange(from, to)
	}
}
