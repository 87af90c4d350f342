package ws

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/framebridge/internal/infrastructure/resilience"
)

// Redialer connects to the same host again and again, pacing attempts
// through a circuit breaker.
type Redialer struct {
	url        string
	selfOrigin string
	opts       Options
	breaker    *resilience.Breaker
	retry      time.Duration
	logger     *zap.Logger
}

// NewRedialer creates a redialer. A nil breaker gets the default settings.
func NewRedialer(rawURL, selfOrigin string, opts Options, breaker *resilience.Breaker) *Redialer {
	if breaker == nil {
		breaker = resilience.New(resilience.DefaultSettings())
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redialer{
		url:        rawURL,
		selfOrigin: selfOrigin,
		opts:       opts,
		breaker:    breaker,
		retry:      500 * time.Millisecond,
		logger:     logger,
	}
}

// Dial returns the next connection, retrying until one succeeds or ctx is
// done. Failures below the breaker threshold are spaced by a short delay.
func (d *Redialer) Dial(ctx context.Context) (*Remote, error) {
	for {
		var remote *Remote
		err := d.breaker.Do(ctx, func(ctx context.Context) error {
			r, err := Dial(ctx, d.url, d.selfOrigin, d.opts)
			remote = r
			return err
		})
		if err == nil {
			return remote, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		d.logger.Warn("Dial to host failed",
			zap.String("url", d.url),
			zap.Stringer("breaker", d.breaker.State()),
			zap.Int("failures", d.breaker.Failures()),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.retry):
		}
	}
}
