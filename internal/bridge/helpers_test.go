package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/surface"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

const (
	hostOrigin  = "http://localhost:8000"
	guestOrigin = "http://localhost:3000"
	containerID = "valid-iframe-container-id"
	frameID     = "valid-iframe-id"
)

// page is a host window with a document whose frames open guest windows on
// the same loop.
type page struct {
	loop   *window.Loop
	win    *window.Window
	doc    *surface.Document
	frames map[string]*window.Window
}

func newPage(t *testing.T) *page {
	t.Helper()
	p := &page{
		loop:   window.NewLoop(nil),
		frames: make(map[string]*window.Window),
	}
	p.win = window.New(p.loop, hostOrigin, nil)
	p.doc = surface.NewDocument(func(src string) (window.Endpoint, error) {
		origin, err := utils.Origin(src)
		if err != nil {
			return nil, err
		}
		w := window.New(p.loop, origin, p.win)
		p.frames[src] = w
		return w, nil
	})
	_, err := p.doc.CreateContainer(containerID)
	require.NoError(t, err)
	return p
}

// frame returns the guest window opened for src.
func (p *page) frame(t *testing.T, src string) *window.Window {
	t.Helper()
	w, ok := p.frames[src]
	require.True(t, ok, "no frame opened for %s", src)
	return w
}

func hostConfig(effects map[string]effect.Handler) HostConfig {
	return HostConfig{
		Target: Target{
			ID:          frameID,
			Origin:      guestOrigin,
			ContainerID: containerID,
			Classes:     []string{"spam", "test"},
		},
		Effects: effects,
	}
}

// recorder collects the args of every invocation.
type recorder struct {
	calls []map[string]any
}

func (r *recorder) handler() effect.Handler {
	return effect.HandlerFunc(func(ctx *effect.Context) {
		r.calls = append(r.calls, ctx.Args)
	})
}
