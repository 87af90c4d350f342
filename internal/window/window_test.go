package window

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hostOrigin  = "http://localhost:8000"
	guestOrigin = "http://localhost:3000"
)

func TestDeliverChecksTargetOrigin(t *testing.T) {
	loop := NewLoop(nil)
	host := New(loop, hostOrigin, nil)
	guest := New(loop, guestOrigin, host)

	var got []Message
	guest.AddListener(func(m Message) { got = append(got, m) })

	err := host.PostMessage(guest, map[string]any{"name": "ping"}, "http://localhost:3001")
	assert.ErrorIs(t, err, ErrOriginMismatch)

	require.NoError(t, host.PostMessage(guest, map[string]any{"name": "ping"}, guestOrigin))
	assert.Empty(t, got, "delivery is asynchronous")

	assert.Equal(t, 1, loop.RunPending())
	require.Len(t, got, 1)
	assert.Equal(t, hostOrigin, got[0].Origin)
	assert.JSONEq(t, `{"name":"ping"}`, string(got[0].Data))
}

func TestPostMessagePassesRawJSON(t *testing.T) {
	loop := NewLoop(nil)
	a := New(loop, hostOrigin, nil)
	b := New(loop, guestOrigin, a)

	var got []byte
	b.AddListener(func(m Message) { got = m.Data })

	require.NoError(t, a.PostMessage(b, json.RawMessage(`{"name":1}`), guestOrigin))
	loop.RunPending()
	assert.Equal(t, `{"name":1}`, string(got))
}

func TestListenersInOrderAndRemoval(t *testing.T) {
	loop := NewLoop(nil)
	w := New(loop, hostOrigin, nil)

	var calls []string
	first := w.AddListener(func(Message) { calls = append(calls, "first") })
	w.AddListener(func(Message) { calls = append(calls, "second") })
	assert.Equal(t, 2, w.Listeners())

	require.NoError(t, w.Dispatch(Message{Origin: guestOrigin, Data: []byte(`{}`)}))
	// Removed before its delivery turn: not called.
	assert.True(t, w.RemoveListener(first))
	assert.False(t, w.RemoveListener(first))

	loop.RunPending()
	assert.Equal(t, []string{"second"}, calls)
}

func TestTop(t *testing.T) {
	loop := NewLoop(nil)
	top := New(loop, hostOrigin, nil)
	mid := New(loop, "http://mid.example", top)
	leaf := New(loop, guestOrigin, mid)

	assert.Same(t, top, top.Top())
	assert.Same(t, top, leaf.Top())
	assert.Equal(t, Endpoint(mid), leaf.Parent())

	remote := &fakeEndpoint{origin: hostOrigin}
	embedded := New(loop, guestOrigin, remote)
	assert.Equal(t, Endpoint(remote), embedded.Top())
}

func TestClose(t *testing.T) {
	loop := NewLoop(nil)
	w := New(loop, hostOrigin, nil)

	called := false
	w.AddListener(func(Message) { called = true })
	require.NoError(t, w.Dispatch(Message{Origin: guestOrigin}))
	require.NoError(t, w.Close())

	loop.RunPending()
	assert.False(t, called, "queued deliveries to a closed window are dropped")
	assert.ErrorIs(t, w.Dispatch(Message{}), ErrClosed)
	assert.Equal(t, 0, w.Listeners())
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	loop := NewLoop(nil)

	var order []int
	loop.Enqueue(func() {
		order = append(order, 1)
		loop.Enqueue(func() { order = append(order, 3) })
	})
	loop.Enqueue(func() { order = append(order, 2) })
	assert.Equal(t, 2, loop.Pending())

	assert.Equal(t, 3, loop.RunPending())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, loop.Pending())
}

func TestLoopSurvivesPanics(t *testing.T) {
	loop := NewLoop(nil)
	ran := false
	loop.Enqueue(func() { panic("boom") })
	loop.Enqueue(func() { ran = true })

	assert.NotPanics(t, func() { loop.RunPending() })
	assert.True(t, ran)
}

func TestLoopRun(t *testing.T) {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var mu sync.Mutex
	count := 0
	for i := 0; i < 10; i++ {
		loop.Enqueue(func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 10
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type fakeEndpoint struct {
	origin string
	got    []Message
}

func (f *fakeEndpoint) Origin() string { return f.origin }

func (f *fakeEndpoint) Deliver(msg Message, targetOrigin string) error {
	if targetOrigin != f.origin {
		return ErrOriginMismatch
	}
	f.got = append(f.got, msg)
	return nil
}
