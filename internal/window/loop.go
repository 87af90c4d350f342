package window

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Loop is a FIFO task queue whose tasks never run concurrently with each
// other. Any goroutine may enqueue; tasks run either on a goroutine serving
// Run or on whoever calls RunPending.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}

	// turn is held while tasks execute, so at most one task runs at a time.
	turn sync.Mutex

	logger *zap.Logger
}

// NewLoop creates an idle loop. Panicking tasks are logged to logger.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		notify: make(chan struct{}, 1),
		logger: logger,
	}
}

// Enqueue schedules task to run after every task already queued.
func (l *Loop) Enqueue(task func()) {
	l.mu.Lock()
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// RunPending runs queued tasks on the calling goroutine until the queue is
// empty, including tasks enqueued by the tasks it runs. It returns the number
// of tasks run. Must not be called from inside a task.
func (l *Loop) RunPending() int {
	l.turn.Lock()
	defer l.turn.Unlock()

	n := 0
	for {
		task, ok := l.pop()
		if !ok {
			return n
		}
		l.run(task)
		n++
	}
}

// Run serves the queue until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
		}
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Event loop task panicked", zap.Any("panic", r))
		}
	}()
	task()
}
