package effect

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRegistry = errors.New("effect: registry is missing")
	ErrNoCounterpart   = errors.New("effect: no counterpart bound to context")
)

// InvalidEffectError reports a registry entry that cannot be used as a handler.
type InvalidEffectError struct {
	Name   string
	Reason string
}

func (e *InvalidEffectError) Error() string {
	return fmt.Sprintf("effect: %q %s", e.Name, e.Reason)
}

// UnknownEffectError reports an accepted signal that names no registered
// effect. Only returned under UnknownStrict.
type UnknownEffectError struct {
	Name string
}

func (e *UnknownEffectError) Error() string {
	return fmt.Sprintf("effect: %q is not registered", e.Name)
}

// HandlerPanicError reports a handler that panicked during dispatch.
type HandlerPanicError struct {
	Name  string
	Value any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("effect: handler %q panicked: %v", e.Name, e.Value)
}

// Unwrap exposes a panic value that was itself an error.
func (e *HandlerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
