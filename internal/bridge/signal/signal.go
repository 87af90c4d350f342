// Package signal defines the envelope exchanged between bridge peers and the
// gate that decides whether an inbound message may be dispatched.
package signal

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
)

var (
	ErrMalformed = errors.New("signal: malformed payload")
	ErrEmptyName = errors.New("signal: name is empty")
)

// MaxPayloadSize bounds an encoded signal.
const MaxPayloadSize = utils.MaxSignalSize

// Signal is the wire envelope: the name of the effect to run on the receiving
// side and its arguments.
type Signal struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// New creates a signal. A nil args map is replaced with an empty one.
func New(name string, args map[string]any) Signal {
	if args == nil {
		args = map[string]any{}
	}
	return Signal{Name: name, Args: args}
}

// Validate checks the outbound invariants of a signal.
func (s Signal) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// MarshalJSON always emits an args object, never null.
func (s Signal) MarshalJSON() ([]byte, error) {
	type wire Signal
	w := wire(s)
	if w.Args == nil {
		w.Args = map[string]any{}
	}
	return sonic.Marshal(w)
}

// Encode validates and serializes a signal for transmission.
func Encode(s Signal) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	data, err := s.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("signal: encode %q: %w", s.Name, err)
	}
	return data, nil
}

// Parse interprets an inbound payload as a Signal. The error is nil exactly
// when the payload is a JSON object whose name is a non-empty string and whose
// args, if present and not null, is an object. Absent args decode as an empty
// map. Every failure wraps ErrMalformed.
func Parse(payload []byte) (Signal, error) {
	if len(payload) == 0 {
		return Signal{}, malformed("empty payload")
	}
	if err := utils.ValidateSize(payload, MaxPayloadSize); err != nil {
		return Signal{}, malformed(err.Error())
	}

	var raw any
	if err := sonic.Unmarshal(payload, &raw); err != nil {
		return Signal{}, malformed("invalid json")
	}
	if raw == nil {
		return Signal{}, malformed("null payload")
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Signal{}, malformed(fmt.Sprintf("payload is %T, not an object", raw))
	}

	nameVal, ok := obj["name"]
	if !ok {
		return Signal{}, malformed("missing name")
	}
	name, ok := nameVal.(string)
	if !ok {
		return Signal{}, malformed(fmt.Sprintf("name is %T, not a string", nameVal))
	}
	if name == "" {
		return Signal{}, malformed("empty name")
	}

	args := map[string]any{}
	if argsVal, present := obj["args"]; present && argsVal != nil {
		m, ok := argsVal.(map[string]any)
		if !ok {
			return Signal{}, malformed(fmt.Sprintf("args is %T, not an object", argsVal))
		}
		args = m
	}

	return Signal{Name: name, Args: args}, nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformed, reason)
}
