package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

func embeddedGuestWindow() (*window.Loop, *window.Window, *window.Window) {
	loop := window.NewLoop(nil)
	parent := window.New(loop, hostOrigin, nil)
	child := window.New(loop, guestOrigin, parent)
	return loop, parent, child
}

// Scenario B: an unparseable parent origin fails before any listener exists.
func TestNewGuestInvalidOrigin(t *testing.T) {
	_, _, win := embeddedGuestWindow()

	guest, err := NewGuest(win, GuestConfig{
		ParentOrigin: "not-a-url",
		Effects:      map[string]effect.Handler{},
	}, Options{})

	require.Error(t, err)
	assert.Nil(t, guest)
	assert.ErrorIs(t, err, utils.ErrNotAbsolute)
	assert.Contains(t, err.Error(), "not-a-url")
	assert.Zero(t, win.Listeners())
}

func TestNewGuestValidation(t *testing.T) {
	tests := []struct {
		name      string
		cfg       GuestConfig
		wantField string
	}{
		{
			name:      "empty origin",
			cfg:       GuestConfig{Effects: map[string]effect.Handler{}},
			wantField: "parentOrigin",
		},
		{
			name:      "javascript scheme",
			cfg:       GuestConfig{ParentOrigin: "javascript:alert(1)", Effects: map[string]effect.Handler{}},
			wantField: "parentOrigin",
		},
		{
			name:      "missing registry",
			cfg:       GuestConfig{ParentOrigin: hostOrigin},
			wantField: "effects",
		},
		{
			name: "nil handler",
			cfg: GuestConfig{
				ParentOrigin: hostOrigin,
				Effects:      map[string]effect.Handler{"ok": effect.HandlerFunc(func(*effect.Context) {}), "bad": nil},
			},
			wantField: "effects.bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, win := embeddedGuestWindow()
			_, err := NewGuest(win, tt.cfg, Options{})

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.Zero(t, win.Listeners())
		})
	}
}

func TestGuestListensOnConstruction(t *testing.T) {
	_, _, win := embeddedGuestWindow()
	guest, err := NewGuest(win, GuestConfig{ParentOrigin: hostOrigin, Effects: map[string]effect.Handler{}}, Options{})
	require.NoError(t, err)

	assert.Equal(t, StateListening, guest.State())
	assert.Equal(t, 1, win.Listeners())
	require.NoError(t, guest.Init())
	assert.Equal(t, 1, win.Listeners())

	guest.Destroy()
	guest.Destroy()
	assert.Equal(t, StateDestroyed, guest.State())
	assert.Zero(t, win.Listeners())
	assert.ErrorIs(t, guest.Init(), ErrDestroyed)
}

func TestGuestExplicitStart(t *testing.T) {
	_, _, win := embeddedGuestWindow()
	guest, err := NewGuest(win, GuestConfig{ParentOrigin: hostOrigin, Effects: map[string]effect.Handler{}}, Options{Start: StartExplicit})
	require.NoError(t, err)

	assert.Equal(t, StateConfigured, guest.State())
	assert.Zero(t, win.Listeners())
	require.NoError(t, guest.Init())
	assert.Equal(t, 1, win.Listeners())
}

// Scenario C: a top-level guest cannot reach a host.
func TestGuestNotEmbedded(t *testing.T) {
	loop := window.NewLoop(nil)
	win := window.New(loop, guestOrigin, nil)

	guest, err := NewGuest(win, GuestConfig{ParentOrigin: hostOrigin, Effects: map[string]effect.Handler{}}, Options{})
	require.NoError(t, err)

	assert.False(t, guest.Embedded())
	assert.ErrorIs(t, guest.InvokeHostEffect(signal.New("ping", nil)), ErrNotEmbedded)
}

func TestGuestSendsToTop(t *testing.T) {
	loop, parent, win := embeddedGuestWindow()
	nested := window.New(loop, "http://localhost:5000", win)

	var got []window.Message
	parent.AddListener(func(msg window.Message) { got = append(got, msg) })

	guest, err := NewGuest(nested, GuestConfig{ParentOrigin: hostOrigin, Effects: map[string]effect.Handler{}}, Options{})
	require.NoError(t, err)
	require.True(t, guest.Embedded())

	require.NoError(t, guest.InvokeHostEffect(signal.New("ready", map[string]any{"ok": true})))
	loop.RunPending()

	require.Len(t, got, 1)
	assert.Equal(t, "http://localhost:5000", got[0].Origin)
	sig, err := signal.Parse(got[0].Data)
	require.NoError(t, err)
	assert.Equal(t, "ready", sig.Name)
	assert.Equal(t, true, sig.Args["ok"])
}

func TestGuestSendRefusedByOrigin(t *testing.T) {
	loop, parent, win := embeddedGuestWindow()
	var got int
	parent.AddListener(func(window.Message) { got++ })

	// The guest trusts an origin the actual parent does not have.
	guest, err := NewGuest(win, GuestConfig{ParentOrigin: "https://example.com", Effects: map[string]effect.Handler{}}, Options{})
	require.NoError(t, err)

	assert.NoError(t, guest.InvokeHostEffect(signal.New("ping", nil)))
	loop.RunPending()
	assert.Zero(t, got)
}

func TestGuestAfterDestroy(t *testing.T) {
	_, _, win := embeddedGuestWindow()
	guest, err := NewGuest(win, GuestConfig{ParentOrigin: hostOrigin, Effects: map[string]effect.Handler{}}, Options{})
	require.NoError(t, err)

	guest.Destroy()
	assert.ErrorIs(t, guest.InvokeHostEffect(signal.New("ping", nil)), ErrDestroyed)
}
