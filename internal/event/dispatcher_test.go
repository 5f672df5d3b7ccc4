package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// memOutbox is an in-memory Outbox for dispatcher tests.
type memOutbox struct {
	mu         sync.Mutex
	events     []Event
	dispatched map[int64]bool
}

var _ Outbox = (*memOutbox)(nil)

func newMemOutbox(events ...Event) *memOutbox {
	for i := range events {
		events[i].ID = int64(i + 1)
	}
	return &memOutbox{events: events, dispatched: map[int64]bool{}}
}

func (m *memOutbox) Pending(_ context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if m.dispatched[e.ID] {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOutbox) MarkDispatched(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.dispatched[id] = true
	}
	return nil
}

func (m *memOutbox) pendingIDs() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, e := range m.events {
		if !m.dispatched[e.ID] {
			out = append(out, e.ID)
		}
	}
	return out
}

// flakySink fails the first n deliveries, then accepts everything.
type flakySink struct {
	mu       sync.Mutex
	failures int
	got      []Event
}

func (s *flakySink) Deliver(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.got = append(s.got, e)
	return nil
}

func (s *flakySink) received() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.got...)
}

func TestDispatcherDrain(t *testing.T) {
	orderID := uuid.New()

	t.Run("delivers batch in order and marks dispatched", func(t *testing.T) {
		outbox := newMemOutbox(
			OrderCreated(orderID, uuid.New()),
			StatusChanged(orderID, "confirmed"),
			StatusChanged(orderID, "ready"),
		)
		sink := &flakySink{}
		d := NewDispatcher(outbox, []Sink{sink}, time.Minute, zaptest.NewLogger(t))

		require.NoError(t, d.drain(context.Background()))

		got := sink.received()
		require.Len(t, got, 3)
		assert.Equal(t, KindOrderCreated, got[0].Kind)
		assert.Equal(t, KindStatusChanged, got[1].Kind)
		assert.Empty(t, outbox.pendingIDs())
	})

	t.Run("failed delivery keeps event and successors pending", func(t *testing.T) {
		outbox := newMemOutbox(
			StatusChanged(orderID, "confirmed"),
			StatusChanged(orderID, "preparing"),
		)
		sink := &flakySink{failures: 1}
		d := NewDispatcher(outbox, []Sink{sink}, time.Minute, zaptest.NewLogger(t))

		require.NoError(t, d.drain(context.Background()))
		assert.Equal(t, []int64{1, 2}, outbox.pendingIDs())
		assert.Empty(t, sink.received())

		// Next drain redelivers from the failed event.
		require.NoError(t, d.drain(context.Background()))
		got := sink.received()
		require.Len(t, got, 2)
		assert.Equal(t, int64(1), got[0].ID)
		assert.Empty(t, outbox.pendingIDs())
	})

	t.Run("every sink receives every event", func(t *testing.T) {
		outbox := newMemOutbox(
			StatusChanged(orderID, "confirmed"),
			StatusChanged(orderID, "preparing"),
			StatusChanged(orderID, "ready"),
		)
		a, b := &flakySink{}, &flakySink{}
		d := NewDispatcher(outbox, []Sink{a, b}, time.Minute, zaptest.NewLogger(t))

		require.NoError(t, d.drain(context.Background()))
		assert.Empty(t, outbox.pendingIDs())
		assert.Len(t, a.received(), 3)
		assert.Len(t, b.received(), 3)
	})

	t.Run("one failing sink blocks dispatch for the event", func(t *testing.T) {
		outbox := newMemOutbox(StatusChanged(orderID, "confirmed"))
		ok, broken := &flakySink{}, &flakySink{failures: 1}
		d := NewDispatcher(outbox, []Sink{ok, broken}, time.Minute, zaptest.NewLogger(t))

		require.NoError(t, d.drain(context.Background()))
		assert.Equal(t, []int64{1}, outbox.pendingIDs())

		// The healthy sink may see the event twice; at-least-once allows it.
		require.NoError(t, d.drain(context.Background()))
		assert.Empty(t, outbox.pendingIDs())
		assert.Len(t, broken.received(), 1)
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		outbox := newMemOutbox()
		d := NewDispatcher(outbox, []Sink{&flakySink{}}, time.Minute, zaptest.NewLogger(t))
		require.NoError(t, d.drain(context.Background()))
	})
}

func TestDispatcherRun(t *testing.T) {
	orderID := uuid.New()
	outbox := newMemOutbox(OrderAssigned(orderID, uuid.New()))
	sink := NewChanSink(1)
	d := NewDispatcher(outbox, []Sink{sink}, 5*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case e := <-sink.Events():
		assert.Equal(t, KindOrderAssigned, e.Kind)
		assert.Equal(t, orderID, e.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestPayloadField(t *testing.T) {
	orderID, agentID := uuid.New(), uuid.New()
	e := OrderAssigned(orderID, agentID)

	got, err := PayloadField(e.Payload, "agent_id")
	require.NoError(t, err)
	assert.Equal(t, agentID.String(), got)

	missing, err := PayloadField(e.Payload, "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}
