// Package event defines the lifecycle events the engine emits to the
// notification sink, and the durable outbox they travel through.
package event

import (
	"context"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"
)

// Kind identifies the lifecycle event type.
type Kind string

const (
	// KindOrderCreated is emitted once per order at creation.
	KindOrderCreated Kind = "order.created"
	// KindStatusChanged is emitted on every status transition.
	KindStatusChanged Kind = "order.status-changed"
	// KindOrderAssigned is emitted when an agent wins a claim.
	KindOrderAssigned Kind = "order.assigned"
)

// Event is one outbox row: a lifecycle fact plus its encoded payload.
// ID is assigned by the outbox on insert.
type Event struct {
	ID        int64
	Kind      Kind
	OrderID   uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// OrderCreated builds an order.created event.
func OrderCreated(orderID, restaurantID uuid.UUID) Event {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(orderID.String()) })
		e.Field("restaurant_id", func(e *jx.Encoder) { e.Str(restaurantID.String()) })
	})
	return Event{Kind: KindOrderCreated, OrderID: orderID, Payload: e.Bytes()}
}

// StatusChanged builds an order.status-changed event.
func StatusChanged(orderID uuid.UUID, newStatus string) Event {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(orderID.String()) })
		e.Field("new_status", func(e *jx.Encoder) { e.Str(newStatus) })
	})
	return Event{Kind: KindStatusChanged, OrderID: orderID, Payload: e.Bytes()}
}

// OrderAssigned builds an order.assigned event.
func OrderAssigned(orderID, agentID uuid.UUID) Event {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(orderID.String()) })
		e.Field("agent_id", func(e *jx.Encoder) { e.Str(agentID.String()) })
	})
	return Event{Kind: KindOrderAssigned, OrderID: orderID, Payload: e.Bytes()}
}

// PayloadField extracts a single string field from an event payload.
func PayloadField(payload []byte, field string) (string, error) {
	var out string
	dec := jx.DecodeBytes(payload)
	if err := dec.Obj(func(d *jx.Decoder, key string) error {
		if key == field {
			v, err := d.Str()
			if err != nil {
				return err
			}
			out = v
			return nil
		}
		return d.Skip()
	}); err != nil {
		return "", err
	}
	return out, nil
}

// Sink receives lifecycle events. Delivery is fire-and-forget from the
// engine's perspective and at-least-once from the sink's: a sink error keeps
// the event pending and it will be redelivered.
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}

// Outbox reads the durable event log that repositories append to inside
// their transactions.
type Outbox interface {
	// Pending returns undispatched events, oldest first.
	Pending(ctx context.Context, limit int) ([]Event, error)
	// MarkDispatched records successful delivery.
	MarkDispatched(ctx context.Context, ids []int64) error
}
