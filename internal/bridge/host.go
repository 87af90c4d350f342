package bridge

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/shared/id"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/surface"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

// Surfaces resolves embedded frames to their content windows.
type Surfaces interface {
	ContentWindow(id string) (window.Endpoint, bool)
}

// Embedder can also place and remove frames. *surface.Document implements it.
type Embedder interface {
	Surfaces
	Embed(spec surface.FrameSpec) (*surface.Element, error)
	Remove(id string) bool
}

// Target addresses the embedded Guest.
type Target struct {
	// ID of the frame holding the Guest.
	ID string
	// Origin is the Guest's origin. Outbound signals are delivered only to
	// this origin and inbound messages are accepted only from it.
	Origin string

	// ContainerID, when set, makes Init resolve or create the frame inside
	// that container. Src defaults to Origin.
	ContainerID string
	Src         string
	Classes     []string
}

// HostConfig configures a Host.
type HostConfig struct {
	Target  Target
	Effects map[string]effect.Handler
}

// Host is the outer peer. It addresses its Guest directly through the
// content window of the target frame.
type Host struct {
	core     *peer
	target   Target
	surfaces Surfaces

	lifecycle sync.Mutex
	mounted   bool
}

// NewHost validates cfg and returns a Host in the Configured state, or
// Listening under StartOnConstruct. On error no listener is registered.
func NewHost(win *window.Window, surfaces Surfaces, cfg HostConfig, opts Options) (*Host, error) {
	if win == nil {
		return nil, &ConfigError{Field: "window", Err: errRequired}
	}
	if surfaces == nil {
		return nil, &ConfigError{Field: "surfaces", Err: errRequired}
	}

	target := cfg.Target
	origin, err := utils.Origin(target.Origin)
	if err != nil {
		return nil, &ConfigError{Field: "target.origin", Value: target.Origin, Err: err}
	}
	target.Origin = origin
	if target.ID == "" {
		return nil, &ConfigError{Field: "target.id", Err: errRequired}
	}
	if target.ContainerID != "" {
		if target.Src == "" {
			target.Src = cfg.Target.Origin
		}
		if err := utils.ValidateURL(target.Src); err != nil {
			return nil, &ConfigError{Field: "target.src", Value: target.Src, Err: err}
		}
		if err := utils.ValidateClasses(target.Classes); err != nil {
			return nil, &ConfigError{Field: "target.classes", Err: err}
		}
		target.Classes = append([]string(nil), target.Classes...)
	}

	registry, err := effect.NewRegistry(cfg.Effects)
	if err != nil {
		return nil, registryError(err)
	}

	h := &Host{
		target:   target,
		surfaces: surfaces,
	}
	h.core = newPeer(id.NewHostID(), roleHost, roleHost+":"+target.ID, win, origin, registry, h.InvokeGuestEffect, opts)

	if opts.Start == StartOnConstruct {
		if err := h.Init(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ID returns the peer's identifier.
func (h *Host) ID() id.PeerID {
	return h.core.id
}

// State returns the current lifecycle state.
func (h *Host) State() State {
	return h.core.currentState()
}

// Target returns the normalized addressing configuration.
func (h *Host) Target() Target {
	return h.target
}

// Init mounts the target frame when a container is configured and starts
// listening. Calling Init on a listening Host does nothing.
func (h *Host) Init() error {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	switch h.core.currentState() {
	case StateDestroyed:
		return ErrDestroyed
	case StateListening:
		return nil
	}

	if err := h.mount(); err != nil {
		return err
	}
	return h.core.listen()
}

func (h *Host) mount() error {
	if h.target.ContainerID == "" || h.mounted {
		return nil
	}
	embedder, ok := h.surfaces.(Embedder)
	if !ok {
		return &ConfigError{Field: "surfaces", Err: errors.New("cannot embed frames")}
	}

	_, err := embedder.Embed(surface.FrameSpec{
		ContainerID: h.target.ContainerID,
		ID:          h.target.ID,
		Src:         h.target.Src,
		Classes:     h.target.Classes,
	})
	if err != nil {
		return fmt.Errorf("bridge: embed frame %q: %w", h.target.ID, err)
	}
	h.mounted = true
	h.core.logger.Debug("Mounted target frame",
		zap.String("frame", h.target.ID),
		zap.String("container", h.target.ContainerID),
	)
	return nil
}

// Destroy stops listening and removes the frame Init mounted. Further calls
// do nothing.
func (h *Host) Destroy() {
	h.lifecycle.Lock()
	defer h.lifecycle.Unlock()

	if !h.core.destroy() {
		return
	}
	if h.mounted {
		if embedder, ok := h.surfaces.(Embedder); ok {
			embedder.Remove(h.target.ID)
		}
		h.mounted = false
	}
}

// InvokeGuestEffect sends sig to the Guest. Delivery is best effort: an
// absent frame or a refused delivery is logged and counted, not returned.
// Only an invalid signal or a destroyed Host is an error.
func (h *Host) InvokeGuestEffect(sig signal.Signal) error {
	if err := sig.Validate(); err != nil {
		return err
	}
	if h.core.currentState() == StateDestroyed {
		return ErrDestroyed
	}

	content, ok := h.surfaces.ContentWindow(h.target.ID)
	if !ok || content == nil {
		h.core.recordSend(sig, "surface_absent", nil)
		return nil
	}
	if err := h.core.win.PostMessage(content, sig, h.target.Origin); err != nil {
		h.core.recordSend(sig, "refused", err)
		return nil
	}
	h.core.recordSend(sig, "delivered", nil)
	return nil
}
