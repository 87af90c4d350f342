package window

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
)

var (
	ErrOriginMismatch = errors.New("window: target origin does not match recipient")
	ErrClosed         = errors.New("window: closed")
)

// Message is one delivery on the channel. Origin is the sender's serialized
// origin as established by the channel, never by the payload.
type Message struct {
	Origin string
	Data   []byte
}

// Endpoint is anything a message can be posted to: a local Window or a
// remote context reached over a transport.
type Endpoint interface {
	Origin() string
	// Deliver hands msg to the endpoint if targetOrigin is exactly its origin.
	Deliver(msg Message, targetOrigin string) error
}

// Listener receives messages delivered to a Window.
type Listener func(Message)

// ListenerID identifies a registered listener.
type ListenerID uint64

type entry struct {
	id ListenerID
	fn Listener
}

// Window is one execution context: an origin, an optional embedding parent,
// and the set of message listeners served by its loop.
type Window struct {
	origin string
	parent Endpoint
	loop   *Loop

	mu        sync.Mutex
	nextID    ListenerID
	listeners []entry
	closed    bool
}

// New creates a window at origin. parent is nil for a top-level context.
func New(loop *Loop, origin string, parent Endpoint) *Window {
	return &Window{
		origin: origin,
		parent: parent,
		loop:   loop,
	}
}

// Origin returns the window's serialized origin.
func (w *Window) Origin() string {
	return w.origin
}

// Parent returns the embedding context, or nil.
func (w *Window) Parent() Endpoint {
	return w.parent
}

// Loop returns the loop that serves this window.
func (w *Window) Loop() *Loop {
	return w.loop
}

// Top returns the outermost context this window is embedded in. A window
// without a parent is its own top.
func (w *Window) Top() Endpoint {
	cur := w
	for cur.parent != nil {
		next, ok := cur.parent.(*Window)
		if !ok {
			return cur.parent
		}
		cur = next
	}
	return cur
}

// AddListener registers fn and returns a handle for removing it.
func (w *Window) AddListener(fn Listener) ListenerID {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	w.listeners = append(w.listeners, entry{id: w.nextID, fn: fn})
	return w.nextID
}

// RemoveListener unregisters a listener. It reports whether one was removed.
func (w *Window) RemoveListener(id ListenerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, e := range w.listeners {
		if e.id == id {
			w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Listeners returns the number of registered listeners.
func (w *Window) Listeners() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

// Deliver enqueues msg for this window's listeners if targetOrigin names
// this window's origin exactly.
func (w *Window) Deliver(msg Message, targetOrigin string) error {
	if targetOrigin != w.origin {
		return fmt.Errorf("%w: target %q, recipient %q", ErrOriginMismatch, targetOrigin, w.origin)
	}
	return w.Dispatch(msg)
}

// Dispatch enqueues a message whose origin the caller has already
// established, such as a transport that authenticated its connection.
func (w *Window) Dispatch(msg Message) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}

	w.loop.Enqueue(func() { w.fire(msg) })
	return nil
}

// PostMessage encodes payload as JSON and delivers it to target with this
// window as the sender.
func (w *Window) PostMessage(target Endpoint, payload any, targetOrigin string) error {
	if target == nil {
		return errors.New("window: nil target")
	}
	data, err := encode(payload)
	if err != nil {
		return fmt.Errorf("window: encode payload: %w", err)
	}
	return target.Deliver(Message{Origin: w.origin, Data: data}, targetOrigin)
}

// Close removes all listeners and refuses further deliveries.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.listeners = nil
	return nil
}

// fire runs on the loop. Listeners are snapshotted at delivery time, so one
// removed before its turn is not called.
func (w *Window) fire(msg Message) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	snapshot := make([]entry, len(w.listeners))
	copy(snapshot, w.listeners)
	w.mu.Unlock()

	for _, e := range snapshot {
		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)
		e.fn(Message{Origin: msg.Origin, Data: data})
	}
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return append([]byte(nil), p...), nil
	default:
		return sonic.Marshal(payload)
	}
}
