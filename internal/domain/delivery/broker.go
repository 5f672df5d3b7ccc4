package delivery

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/chowline/internal/domain/order"
)

// Broker maintains the pool of unassigned, delivery-ready orders and
// arbitrates concurrent claims. The pool is not a queue structure: it is the
// filtered view over order state (ready, no agent), and the order row itself
// is the mutex. Claiming is a single conditional update.
type Broker struct {
	orders order.Repository
	agents AgentRepository
	now    func() time.Time
}

// NewBroker creates an assignment broker.
func NewBroker(orders order.Repository, agents AgentRepository) *Broker {
	return &Broker{
		orders: orders,
		agents: agents,
		now:    time.Now,
	}
}

// ListAvailable returns the claimable pool visible to the agent, filtered by
// the agent's active zones when it has any. The snapshot is eventually
// consistent: an order listed here may already be gone by the time the agent
// claims it.
func (b *Broker) ListAvailable(ctx context.Context, agentID uuid.UUID) ([]order.Order, error) {
	agent, err := b.agents.Get(ctx, agentID)
	if err != nil {
		return nil, errors.Wrap(err, "get agent")
	}

	pool, err := b.orders.ListAvailable(ctx, agent.ActiveZones)
	if err != nil {
		return nil, errors.Wrap(err, "list available orders")
	}

	return pool, nil
}

// Claim takes ownership of a ready, unassigned order for the agent. Exactly
// one of any number of concurrent claimers succeeds; the rest receive
// order.ErrAlreadyAssigned and should re-poll the pool rather than retry.
func (b *Broker) Claim(ctx context.Context, orderID, agentID uuid.UUID) (*order.Order, error) {
	o, err := b.orders.Claim(ctx, orderID, agentID, b.now())
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Release declines an order the agent chose not to take. The ledger is
// untouched: the order was never assigned, stays in the pool, and remains
// visible to every other agent. Always succeeds, even for orders the agent
// was never offered.
func (b *Broker) Release(_ context.Context, _, _ uuid.UUID) error {
	return nil
}
