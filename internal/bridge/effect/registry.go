// Package effect holds a peer's closed registry of named handlers and the
// dispatcher that routes accepted signals to them.
package effect

import (
	"reflect"
	"sort"

	"github.com/GriffinCanCode/framebridge/internal/bridge/signal"
)

// Handler runs one effect. It is invoked synchronously on the receiving
// peer's delivery turn and returns nothing; long-running work is the
// handler's own business.
type Handler interface {
	Handle(ctx *Context)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(ctx *Context)

// Handle calls f(ctx).
func (f HandlerFunc) Handle(ctx *Context) {
	f(ctx)
}

// Context is what a handler receives for one invocation.
type Context struct {
	Name string
	Args map[string]any

	invoke func(signal.Signal) error
}

// NewContext creates an invocation context bound to a counterpart sender.
func NewContext(name string, args map[string]any, invoke func(signal.Signal) error) *Context {
	if args == nil {
		args = map[string]any{}
	}
	return &Context{Name: name, Args: args, invoke: invoke}
}

// InvokeCounterpart sends a signal to the peer on the other side of the
// boundary. It is only valid while the owning peer is alive.
func (c *Context) InvokeCounterpart(sig signal.Signal) error {
	if c.invoke == nil {
		return ErrNoCounterpart
	}
	return c.invoke(sig)
}

// Registry maps effect names to handlers. It is fixed at construction.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry validates effects and copies them into a closed registry.
// A nil map is rejected; an empty one is a valid registry with no effects.
func NewRegistry(effects map[string]Handler) (*Registry, error) {
	if effects == nil {
		return nil, ErrMissingRegistry
	}

	handlers := make(map[string]Handler, len(effects))
	for _, name := range sortedNames(effects) {
		h := effects[name]
		if name == "" {
			return nil, &InvalidEffectError{Name: name, Reason: "name is empty"}
		}
		if isNilHandler(h) {
			return nil, &InvalidEffectError{Name: name, Reason: "is not a function"}
		}
		handlers[name] = h
	}

	return &Registry{handlers: handlers}, nil
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns registered effect names in sorted order.
func (r *Registry) Names() []string {
	return sortedNames(r.handlers)
}

// Len returns the number of registered effects.
func (r *Registry) Len() int {
	return len(r.handlers)
}

func sortedNames(m map[string]Handler) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isNilHandler catches both a nil interface and an interface holding a nil
// func, pointer, map or chan.
func isNilHandler(h Handler) bool {
	if h == nil {
		return true
	}
	v := reflect.ValueOf(h)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}
