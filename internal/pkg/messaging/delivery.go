package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// delivery is the Message implementation shared by every driver. Drivers fill
// in the payload and the broker-specific ack/nack callbacks.
type delivery struct {
	body    []byte
	key     []byte
	headers []Header
	id      string
	topic   string
	ts      time.Time

	ack  func(ctx context.Context) error
	nack func(ctx context.Context) error

	responded atomic.Bool
}

func (d *delivery) Body() []byte             { return d.body }
func (d *delivery) Key() []byte              { return d.key }
func (d *delivery) Headers() []Header        { return d.headers }
func (d *delivery) Header(key string) string { return findHeader(d.headers, key) }
func (d *delivery) ID() string               { return d.id }
func (d *delivery) Topic() string            { return d.topic }
func (d *delivery) Timestamp() time.Time     { return d.ts }

// Ack is idempotent; only the first Ack or Nack reaches the broker.
func (d *delivery) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.responded.Swap(true) || d.ack == nil {
		return nil
	}
	return d.ack(ctx)
}

func (d *delivery) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.responded.Swap(true) || d.nack == nil {
		return nil
	}
	return d.nack(ctx)
}

// dispatch runs handler with panic recovery and applies auto-ack.
func dispatch(ctx context.Context, kind string, d *delivery, handler Handler, autoAck bool) error {
	herr := safeHandle(ctx, kind, d, handler)

	if d.responded.Load() || !autoAck {
		return herr
	}

	// The ack outlives consumer shutdown.
	actx := context.WithoutCancel(ctx)
	if herr == nil {
		return d.Ack(actx)
	}
	if err := d.Nack(actx); err != nil {
		slog.WarnContext(ctx, "failed to nack message", "kind", kind, "topic", d.topic, "error", err)
	}
	return herr
}

// safeHandle turns a handler panic into an error so the delivery is nacked
// instead of killing the consumer.
func safeHandle(ctx context.Context, kind string, d *delivery, handler Handler) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		var stack any = string(debug.Stack())
		if frames := stacktrace.InternalPaths(debug.Stack()); len(frames) > 0 {
			stack = frames
		}
		slog.ErrorContext(ctx, "message handler panicked", "kind", kind, "topic", d.topic, "panic", rvr, "stack", stack)

		err = fmt.Errorf("messaging: %s handler panicked on %s: %v", kind, d.topic, rvr)
	}()

	return handler(ctx, d)
}

// runWorkers drains in with n goroutines until it is closed.
func runWorkers(ctx context.Context, kind string, n int, in <-chan *delivery, handler Handler, autoAck bool) *sync.WaitGroup {
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for d := range in {
				if err := dispatch(ctx, kind, d, handler, autoAck); err != nil {
					slog.DebugContext(ctx, "message handler returned error", "kind", kind, "topic", d.topic, "error", err)
				}
			}
		})
	}
	return &wg
}
