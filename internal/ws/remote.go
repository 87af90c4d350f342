package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/framebridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/framebridge/internal/shared/id"
	"github.com/GriffinCanCode/framebridge/internal/shared/utils"
	"github.com/GriffinCanCode/framebridge/internal/window"
)

// Frame is the text message exchanged on a bridge connection. The sender's
// origin is never part of the frame; each side takes it from the
// connection.
type Frame struct {
	TargetOrigin string          `json:"target_origin"`
	Data         json.RawMessage `json:"data"`
}

// Options tunes a Remote.
type Options struct {
	Rate         rate.Limit    // inbound frames per second, 0 for unlimited
	Burst        int           // inbound burst
	WriteTimeout time.Duration // per-frame write deadline
	Logger       *zap.Logger
	Metrics      *monitoring.Metrics
}

// DefaultOptions returns the limits used by the server and guest commands.
func DefaultOptions() Options {
	return Options{
		Rate:         100,
		Burst:        200,
		WriteTimeout: 10 * time.Second,
	}
}

// Remote is a window.Endpoint for a context on the other end of a
// WebSocket connection.
type Remote struct {
	id      id.ConnID
	conn    *websocket.Conn
	origin  string
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
	metrics *monitoring.Metrics

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewRemote wraps conn. origin is the peer's authenticated origin: every
// message read from conn is attributed to it.
func NewRemote(conn *websocket.Conn, origin string, opts Options) *Remote {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := opts.Rate
	if limit <= 0 {
		limit = rate.Inf
	}
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultOptions().WriteTimeout
	}

	connID := id.NewConnID()
	conn.SetReadLimit(utils.MaxFrameSize)
	opts.Metrics.IncWSConnections()

	return &Remote{
		id:      connID,
		conn:    conn,
		origin:  origin,
		limiter: rate.NewLimiter(limit, opts.Burst),
		timeout: timeout,
		logger:  logger.With(zap.String("conn_id", connID.String()), zap.String("remote", origin)),
		metrics: opts.Metrics,
		done:    make(chan struct{}),
	}
}

// ID returns the connection identifier
func (r *Remote) ID() id.ConnID {
	return r.id
}

// Origin returns the remote peer's origin
func (r *Remote) Origin() string {
	return r.origin
}

// Done is closed once the connection is closed
func (r *Remote) Done() <-chan struct{} {
	return r.done
}

// Deliver writes msg as a frame if targetOrigin is the remote's origin.
func (r *Remote) Deliver(msg window.Message, targetOrigin string) error {
	if targetOrigin != r.origin {
		return fmt.Errorf("%w: target %q, recipient %q", window.ErrOriginMismatch, targetOrigin, r.origin)
	}

	if !sonic.Valid(msg.Data) {
		r.metrics.RecordWSFrame("out", "encode_error")
		return errors.New("ws: message data is not valid JSON")
	}
	data, err := sonic.Marshal(Frame{TargetOrigin: targetOrigin, Data: msg.Data})
	if err != nil {
		r.metrics.RecordWSFrame("out", "encode_error")
		return fmt.Errorf("ws: encode frame: %w", err)
	}

	select {
	case <-r.done:
		return window.ErrClosed
	default:
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.conn.SetWriteDeadline(time.Now().Add(r.timeout))
	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		r.metrics.RecordWSFrame("out", "write_error")
		return fmt.Errorf("ws: write frame: %w", err)
	}
	r.metrics.RecordWSFrame("out", "sent")
	return nil
}

// Pump reads frames until the connection closes or ctx is done, and
// dispatches each one addressed to selfOrigin into win. It closes the
// connection before returning.
func (r *Remote) Pump(ctx context.Context, win *window.Window, selfOrigin string) error {
	defer r.Close()

	go func() {
		select {
		case <-ctx.Done():
			r.Close()
		case <-r.done:
		}
	}()

	for {
		_, data, err := r.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || isClosed(err) {
				return nil
			}
			select {
			case <-r.done:
				return nil
			default:
			}
			return fmt.Errorf("ws: read frame: %w", err)
		}

		if !r.limiter.Allow() {
			r.metrics.RecordWSFrame("in", "rate_limited")
			continue
		}

		var frame Frame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			r.metrics.RecordWSFrame("in", "malformed")
			r.logger.Debug("Dropped malformed frame", zap.Error(err))
			continue
		}
		if frame.TargetOrigin != selfOrigin {
			r.metrics.RecordWSFrame("in", "misaddressed")
			r.logger.Debug("Dropped frame for another origin", zap.String("target", frame.TargetOrigin))
			continue
		}

		if err := win.Dispatch(window.Message{Origin: r.origin, Data: frame.Data}); err != nil {
			r.metrics.RecordWSFrame("in", "window_closed")
			return err
		}
		r.metrics.RecordWSFrame("in", "dispatched")
	}
}

// Close sends a close frame and closes the connection. It is safe to call
// more than once.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.done)

		r.writeMu.Lock()
		r.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		r.writeMu.Unlock()

		err = r.conn.Close()
		r.metrics.DecWSConnections()
		r.logger.Debug("Connection closed")
	})
	return err
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, websocket.ErrCloseSent)
}
