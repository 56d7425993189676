package engine

import (
	"context"
	"errors"

	"github.com/banshee-data/trainlog/internal/sensor"
)

// Consume applies readings from ch in order until ch is closed or ctx is
// done. On cancellation the readings already buffered in ch are applied
// before returning, so a caller that cancels and then calls Stop loses
// nothing that was sent before the cancel. Per-reading failures are logged
// and do not end the loop.
func (e *Engine) Consume(ctx context.Context, ch <-chan sensor.Reading) error {
	for {
		select {
		case <-ctx.Done():
			e.drain(context.WithoutCancel(ctx), ch)
			return ctx.Err()
		case r, ok := <-ch:
			if !ok {
				return nil
			}
			e.consumeOne(ctx, r)
		}
	}
}

func (e *Engine) drain(ctx context.Context, ch <-chan sensor.Reading) {
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return
			}
			e.consumeOne(ctx, r)
		default:
			return
		}
	}
}

func (e *Engine) consumeOne(ctx context.Context, r sensor.Reading) {
	err := e.ProcessReading(ctx, r)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidState):
		logf("dropped %s reading at %d: %v", r.Kind, r.Time, err)
	default:
		logf("%s reading at %d: %v", r.Kind, r.Time, err)
	}
}
