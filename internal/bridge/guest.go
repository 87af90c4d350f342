package bridge

import (
	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/shared/id"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

// GuestConfig configures a Guest.
type GuestConfig struct {
	// ParentOrigin is the only origin the Guest accepts messages from and
	// the only origin it delivers to.
	ParentOrigin string
	Effects      map[string]effect.Handler
}

// Guest is the embedded peer. It reaches its Host through the top of its
// window hierarchy, addressed by the trusted parent origin.
type Guest struct {
	core         *peer
	parentOrigin string
}

// NewGuest validates cfg and returns a listening Guest, or a Configured one
// under StartExplicit. On error no listener is registered.
func NewGuest(win *window.Window, cfg GuestConfig, opts Options) (*Guest, error) {
	if win == nil {
		return nil, &ConfigError{Field: "window", Err: errRequired}
	}
	origin, err := utils.Origin(cfg.ParentOrigin)
	if err != nil {
		return nil, &ConfigError{Field: "parentOrigin", Value: cfg.ParentOrigin, Err: err}
	}
	registry, err := effect.NewRegistry(cfg.Effects)
	if err != nil {
		return nil, registryError(err)
	}

	g := &Guest{parentOrigin: origin}
	g.core = newPeer(id.NewGuestID(), roleGuest, roleGuest, win, origin, registry, g.InvokeHostEffect, opts)

	if opts.Start != StartExplicit {
		if err := g.Init(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// ID returns the peer's identifier.
func (g *Guest) ID() id.PeerID {
	return g.core.id
}

// State returns the current lifecycle state.
func (g *Guest) State() State {
	return g.core.currentState()
}

// ParentOrigin returns the normalized trusted parent origin.
func (g *Guest) ParentOrigin() string {
	return g.parentOrigin
}

// Init starts listening. Calling Init on a listening Guest does nothing.
func (g *Guest) Init() error {
	return g.core.listen()
}

// Destroy stops listening. Further calls do nothing.
func (g *Guest) Destroy() {
	g.core.destroy()
}

// Embedded reports whether the Guest's window has a top context other than
// itself.
func (g *Guest) Embedded() bool {
	top := g.core.win.Top()
	if top == nil {
		return false
	}
	self, ok := top.(*window.Window)
	return !ok || self != g.core.win
}

// InvokeHostEffect sends sig to the Host. It returns ErrNotEmbedded when the
// Guest's window is top-level. A delivery the parent refuses is logged and
// counted, not returned.
func (g *Guest) InvokeHostEffect(sig signal.Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	if g.core.currentState() == StateDestroyed {
		return ErrDestroyed
	}
	if !g.Embedded() {
		return ErrNotEmbedded
	}

	if err := g.core.win.PostMessage(g.core.win.Top(), sig, g.parentOrigin); err != nil {
		g.core.recordSend(sig, "refused", err)
		return nil
	}
	g.core.recordSend(sig, "delivered", nil)
	return nil
}
