package event

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes every event to the structured log. Used as the default sink
// when no realtime channel is attached.
type LogSink struct {
	lg *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(lg *zap.Logger) *LogSink {
	return &LogSink{lg: lg}
}

func (s *LogSink) Deliver(_ context.Context, e Event) error {
	s.lg.Info("Order event",
		zap.String("kind", string(e.Kind)),
		zap.String("order_id", e.OrderID.String()),
		zap.ByteString("payload", e.Payload),
	)
	return nil
}

// ChanSink forwards events to a channel consumed by the realtime push layer
// (websocket fan-out lives outside the engine). Deliver blocks until the
// consumer accepts the event or the context is cancelled, preserving the
// at-least-once contract.
type ChanSink struct {
	ch chan Event
}

// NewChanSink creates a ChanSink with the given buffer size.
func NewChanSink(buffer int) *ChanSink {
	return &ChanSink{ch: make(chan Event, buffer)}
}

// Events returns the consumer side of the sink.
func (s *ChanSink) Events() <-chan Event {
	return s.ch
}

func (s *ChanSink) Deliver(ctx context.Context, e Event) error {
	select {
	case s.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
