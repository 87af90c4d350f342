package bridge

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framebridge/internal/shared/id"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

const (
	roleHost  = "host"
	roleGuest = "guest"
)

// peer is the state shared by Host and Guest: one window, one gate, one
// dispatcher and at most one registered listener.
type peer struct {
	id         id.PeerID
	role       string
	label      string
	win        *window.Window
	gate       signal.Gate
	dispatcher *effect.Dispatcher
	logger     *zap.Logger
	metrics    *monitoring.Metrics
	onError    func(error)

	mu       sync.Mutex
	state    State
	listener window.ListenerID
}

func newPeer(peerID id.PeerID, role, label string, win *window.Window, trustedOrigin string,
	registry *effect.Registry, send func(signal.Signal) error, opts Options) *peer {

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("peer_id", peerID.String()),
		zap.String("role", role),
	)

	return &peer{
		id:    peerID,
		role:  role,
		label: label,
		win:   win,
		gate:  signal.NewGate(trustedOrigin),
		dispatcher: effect.NewDispatcher(registry, send, effect.DispatchOptions{
			Policy:  opts.Unknown,
			Label:   label,
			Logger:  logger,
			Metrics: opts.Metrics,
		}),
		logger:  logger,
		metrics: opts.Metrics,
		onError: opts.OnError,
		state:   StateConfigured,
	}
}

// listen registers the listener unless one is already registered.
func (p *peer) listen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateListening:
		return nil
	}

	p.listener = p.win.AddListener(p.onMessage)
	p.state = StateListening
	p.metrics.IncListeners(p.role)
	p.logger.Debug("Peer listening", zap.String("origin", p.win.Origin()), zap.String("trusts", p.gate.Origin()))
	return nil
}

// destroy removes the listener if present. It reports whether this call
// performed the transition.
func (p *peer) destroy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateDestroyed:
		return false
	case StateListening:
		p.win.RemoveListener(p.listener)
		p.listener = 0
		p.metrics.DecListeners(p.role)
	}
	p.state = StateDestroyed
	p.logger.Debug("Peer destroyed")
	return true
}

func (p *peer) currentState() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// onMessage runs on the window's delivery turn.
func (p *peer) onMessage(msg window.Message) {
	if p.currentState() != StateListening {
		return
	}

	sig, verdict := p.gate.Admit(msg.Origin, msg.Data)
	p.metrics.RecordReceived(p.label, verdict.String())
	if verdict != signal.Accepted {
		p.logger.Debug("Dropped inbound message",
			zap.String("origin", msg.Origin),
			zap.Stringer("verdict", verdict),
		)
		return
	}

	if err := p.dispatcher.Dispatch(sig); err != nil {
		p.report(err)
	}
}

func (p *peer) report(err error) {
	p.logger.Debug("Dispatch reported an error", zap.Error(err))
	if p.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("OnError observer panicked", zap.Any("panic", r))
		}
	}()
	p.onError(err)
}

// recordSend counts and logs the outcome of an outbound signal.
func (p *peer) recordSend(sig signal.Signal, result string, err error) {
	p.metrics.RecordSent(p.label, result)
	if result == "delivered" {
		return
	}
	fields := []zap.Field{zap.String("effect", sig.Name), zap.String("result", result)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	p.logger.Debug("Signal not delivered", fields...)
}
