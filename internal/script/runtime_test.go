package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
)

func newRuntime(t *testing.T, cfg Config) *Runtime {
	t.Helper()
	rt, err := New(cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestRuntimeExecution(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())

	tests := []struct {
		name   string
		script string
		want   any
	}{
		{name: "simple return", script: "42", want: 42},
		{name: "math operations", script: "Math.sqrt(16)", want: 4},
		{name: "string operations", script: "'hello'.toUpperCase()", want: "HELLO"},
		{name: "undefined", script: "undefined", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rt.Run(context.Background(), tt.script)
			require.NoError(t, err)
			assert.EqualValues(t, tt.want, got)
		})
	}
}

func TestRuntimeSecurity(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())

	for _, src := range []string{
		"require('fs')",
		"process.exit(1)",
		"module.exports = {}",
	} {
		_, err := rt.Run(context.Background(), src)
		assert.Error(t, err, src)
	}

	got, err := rt.Run(context.Background(), "setTimeout(function () {}, 0)")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRuntimeTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	rt := newRuntime(t, cfg)

	_, err := rt.Run(context.Background(), "while (true) {}")
	assert.ErrorIs(t, err, ErrTimeout)

	// The interrupt is cleared for the next run.
	got, err := rt.Run(context.Background(), "1 + 1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got)
}

func TestRuntimeContextCancel(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := rt.Run(ctx, "while (true) {}")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsoleCapture(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	rt, err := New(DefaultConfig(), zap.New(core), nil)
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Run(context.Background(), "console.log('hello', 1); console.warn('careful')")
	require.NoError(t, err)

	entries := rt.Console()
	require.Len(t, entries, 2)
	assert.Equal(t, "log", entries[0].Level)
	assert.Equal(t, "hello 1", entries[0].Message)
	assert.Equal(t, "warn", entries[1].Level)
	assert.Equal(t, 1, logs.FilterMessage("careful").FilterField(zap.String("source", "console")).Len())
}

func TestClosedRuntime(t *testing.T) {
	rt, err := New(DefaultConfig(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	_, err = rt.Run(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEffectsValidation(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		wantErr  error
		wantName string
	}{
		{name: "missing effects", script: "var x = 1", wantErr: effect.ErrMissingRegistry},
		{name: "null effects", script: "var effects = null", wantErr: effect.ErrMissingRegistry},
		{name: "not an object", script: "var effects = 'ping'"},
		{name: "array", script: "var effects = [function () {}]"},
		{name: "undefined member", script: "var effects = { ping: undefined }", wantName: "ping"},
		{name: "string member", script: "var effects = { ok: function () {}, bad: 'nope' }", wantName: "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newRuntime(t, DefaultConfig())
			handlers, err := rt.Effects(context.Background(), tt.script)
			require.Error(t, err)
			assert.Nil(t, handlers)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantName != "" {
				var invalid *effect.InvalidEffectError
				require.True(t, errors.As(err, &invalid), "got %v", err)
				assert.Equal(t, tt.wantName, invalid.Name)
			}
		})
	}
}

func TestEffectsSyntaxError(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	_, err := rt.Effects(context.Background(), "var effects = {")
	assert.Error(t, err)
}

func TestEffectHandlerInvokesCounterpart(t *testing.T) {
	rt := newRuntime(t, DefaultConfig())
	handlers, err := rt.Effects(context.Background(), `
		var effects = {
			ping: function (ctx) {
				ctx.invokeCounterpart({ name: "pong", args: { n: ctx.args.n + 1, from: ctx.name } });
			},
		};
	`)
	require.NoError(t, err)
	require.Contains(t, handlers, "ping")

	var sent []signal.Signal
	ctx := effect.NewContext("ping", map[string]any{"n": float64(1)}, func(sig signal.Signal) error {
		sent = append(sent, sig)
		return nil
	})
	handlers["ping"].Handle(ctx)

	require.Len(t, sent, 1)
	assert.Equal(t, "pong", sent[0].Name)
	assert.Equal(t, float64(2), sent[0].Args["n"])
	assert.Equal(t, "ping", sent[0].Args["from"])
}

func TestEffectHandlerErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	metrics := monitoring.NewMetrics()
	rt, err := New(DefaultConfig(), zap.New(core), metrics)
	require.NoError(t, err)
	defer rt.Close()

	handlers, err := rt.Effects(context.Background(), `
		var effects = {
			throws: function () { throw new Error("nope"); },
			badSignal: function (ctx) { ctx.invokeCounterpart({ args: {} }); },
			refused: function (ctx) { ctx.invokeCounterpart({ name: "x" }); },
		};
	`)
	require.NoError(t, err)

	refuse := func(signal.Signal) error { return errors.New("peer gone") }
	for _, name := range []string{"throws", "badSignal", "refused"} {
		assert.NotPanics(t, func() {
			handlers[name].Handle(effect.NewContext(name, nil, refuse))
		}, name)
	}

	assert.Equal(t, 3, logs.FilterMessage("Effect script failed").Len())
}
