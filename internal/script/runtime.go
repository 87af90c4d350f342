package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/bridge/effect"
	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
)

// Runtime is one isolated goja VM. Calls into the VM are serialized, so a
// runtime's handlers may be shared by peers on different loops.
type Runtime struct {
	vm      *goja.Runtime
	config  Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
	mu      sync.Mutex

	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a sandboxed runtime. logger and metrics may be nil.
func New(config Config, logger *zap.Logger, metrics *monitoring.Metrics) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	r := &Runtime{
		vm:      goja.New(),
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
	if config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// Run executes source and returns its completion value exported to Go.
func (r *Runtime) Run(ctx context.Context, source string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, ErrClosed
	}

	stop := r.guard(ctx)
	val, err := r.vm.RunString(source)
	stop()
	if err != nil {
		return nil, r.wrap(err)
	}
	return exportValue(val), nil
}

// Effects runs source and turns its global effects object into handlers.
// Every member of effects must be a function.
func (r *Runtime) Effects(ctx context.Context, source string) (map[string]effect.Handler, error) {
	if _, err := r.Run(ctx, source); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	val := r.vm.Get("effects")
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, effect.ErrMissingRegistry
	}
	obj, ok := val.(*goja.Object)
	if !ok || obj.ClassName() != "Object" {
		return nil, fmt.Errorf("script: effects must be a plain object, got %s", describe(val))
	}

	handlers := make(map[string]effect.Handler, len(obj.Keys()))
	for _, name := range obj.Keys() {
		fn, ok := goja.AssertFunction(obj.Get(name))
		if !ok {
			return nil, &effect.InvalidEffectError{Name: name, Reason: "is not a function"}
		}
		handlers[name] = &handler{rt: r, name: name, fn: fn}
	}
	return handlers, nil
}

// Console returns the captured console output
func (r *Runtime) Console() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()
	return append([]LogEntry{}, r.console...)
}

// Close releases the VM. Handlers created by Effects stop running.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()
	return nil
}

// guard interrupts the VM when the timeout expires or ctx is done. The
// returned stop must be called once the VM call returns.
func (r *Runtime) guard(ctx context.Context) func() {
	vm := r.vm
	timer := time.NewTimer(r.config.Timeout)
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		select {
		case <-timer.C:
			vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	return func() {
		timer.Stop()
		close(done)
		<-exited
		vm.ClearInterrupt()
	}
}

func (r *Runtime) wrap(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	}
	return fmt.Errorf("script: %w", err)
}

// setupGlobals removes host escape hatches and installs console
func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return fmt.Errorf("script: remove %s: %w", name, err)
		}
	}

	// Timers would outlive the guarded call.
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := r.vm.Set(name, noop); err != nil {
			return err
		}
	}

	if !r.config.EnableConsole {
		return nil
	}
	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
			return err
		}
	}
	return r.vm.Set("console", console)
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		r.consoleMu.Lock()
		if len(r.console) >= maxConsoleEntries {
			r.console = r.console[1:]
		}
		r.console = append(r.console, LogEntry{Level: level, Message: msg, Time: time.Now()})
		r.consoleMu.Unlock()

		fields := []zap.Field{zap.String("source", "console")}
		switch level {
		case "warn":
			r.logger.Warn(msg, fields...)
		case "error":
			r.logger.Error(msg, fields...)
		default:
			r.logger.Info(msg, fields...)
		}
		return goja.Undefined()
	}
}

// handler adapts a JS function to effect.Handler. The function receives
// {name, args, invokeCounterpart}.
type handler struct {
	rt   *Runtime
	name string
	fn   goja.Callable
}

func (h *handler) Handle(ctx *effect.Context) {
	r := h.rt
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		r.logger.Warn("Effect invoked on closed script runtime", zap.String("effect", h.name))
		return
	}

	vm := r.vm
	arg := vm.NewObject()
	arg.Set("name", ctx.Name)
	arg.Set("args", ctx.Args)
	arg.Set("invokeCounterpart", func(call goja.FunctionCall) goja.Value {
		sig, err := toSignal(call.Argument(0))
		if err == nil {
			err = ctx.InvokeCounterpart(sig)
		}
		if err != nil {
			panic(vm.NewGoError(err))
		}
		return goja.Undefined()
	})

	stop := r.guard(context.Background())
	_, err := h.fn(goja.Undefined(), arg)
	stop()
	if err != nil {
		r.metrics.RecordScriptException(h.name)
		r.logger.Warn("Effect script failed", zap.String("effect", h.name), zap.Error(r.wrap(err)))
	}
}

// toSignal converts a JS value to a Signal with the same rules the gate
// applies to inbound payloads.
func toSignal(v goja.Value) (signal.Signal, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return signal.Signal{}, fmt.Errorf("%w: signal is %s", signal.ErrMalformed, describe(v))
	}
	data, err := sonic.Marshal(v.Export())
	if err != nil {
		return signal.Signal{}, fmt.Errorf("%w: %v", signal.ErrMalformed, err)
	}
	return signal.Parse(data)
}

func exportValue(val goja.Value) any {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

func describe(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		return obj.ClassName()
	}
	return v.ExportType().String()
}
