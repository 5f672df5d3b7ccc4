package event

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher polls the outbox and fans pending events out to the configured
// sinks. An event is marked dispatched only after every sink accepted it, so
// delivery is at-least-once and sinks must tolerate duplicates.
type Dispatcher struct {
	outbox   Outbox
	sinks    []Sink
	interval time.Duration
	batch    int
	lg       *zap.Logger
}

// NewDispatcher creates a dispatcher polling at the given interval.
func NewDispatcher(outbox Outbox, sinks []Sink, interval time.Duration, lg *zap.Logger) *Dispatcher {
	return &Dispatcher{
		outbox:   outbox,
		sinks:    sinks,
		interval: interval,
		batch:    100,
		lg:       lg,
	}
}

// Run polls until the context is cancelled. Sink failures are logged and the
// affected events retried on the next tick; they are never dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.drain(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.lg.Warn("Outbox drain failed", zap.Error(err))
			}
		}
	}
}

// drain delivers one batch of pending events.
func (d *Dispatcher) drain(ctx context.Context) error {
	events, err := d.outbox.Pending(ctx, d.batch)
	if err != nil {
		return errors.Wrap(err, "read pending events")
	}
	if len(events) == 0 {
		return nil
	}

	var delivered []int64
	for _, e := range events {
		if err := d.deliver(ctx, e); err != nil {
			// Keep ordering per order: stop at the first failure so the
			// next drain retries from here.
			d.lg.Warn("Event delivery failed",
				zap.Int64("event_id", e.ID),
				zap.String("kind", string(e.Kind)),
				zap.Error(err),
			)
			break
		}
		delivered = append(delivered, e.ID)
	}

	if len(delivered) == 0 {
		return nil
	}
	if err := d.outbox.MarkDispatched(ctx, delivered); err != nil {
		return errors.Wrap(err, "mark dispatched")
	}
	return nil
}

// deliver sends one event to all sinks concurrently.
func (d *Dispatcher) deliver(ctx context.Context, e Event) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range d.sinks {
		g.Go(func() error {
			return s.Deliver(ctx, e)
		})
	}
	return g.Wait()
}
