// Package delivery arbitrates the race between agents claiming ready orders
// and tracks delivery-agent availability, zones, and earnings.
package delivery

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrAgentNotFound is returned when a delivery agent does not exist.
var ErrAgentNotFound = errors.New("delivery agent not found")

// AgentStatus is an agent's availability toggle.
type AgentStatus string

const (
	AgentActive  AgentStatus = "active"
	AgentOffline AgentStatus = "offline"
)

// Agent is the delivery-relevant subset of a user account.
type Agent struct {
	ID          uuid.UUID
	Name        string
	Status      AgentStatus
	ActiveZones []uuid.UUID
	Earnings    decimal.Decimal
}

// Zone is a named delivery area agents opt into.
type Zone struct {
	ID     uuid.UUID
	Name   string
	City   string
	Active bool
}

// EarningsStats summarizes an agent's completed work.
type EarningsStats struct {
	TotalEarnings   decimal.Decimal
	TotalDeliveries int
	TodayDeliveries int
}

// AgentRepository persists delivery-agent state. Earnings are credited by
// the order repository inside the delivery-completion transaction, not here.
type AgentRepository interface {
	// Get returns the agent, or ErrAgentNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Agent, error)
	// ToggleStatus flips active/offline and returns the new status.
	ToggleStatus(ctx context.Context, id uuid.UUID) (AgentStatus, error)
	// SetZones replaces the agent's active zone set.
	SetZones(ctx context.Context, id uuid.UUID, zones []uuid.UUID) error
	// Earnings returns cumulative earnings plus delivery counts.
	Earnings(ctx context.Context, id uuid.UUID) (EarningsStats, error)
	// ListZones returns all active zones.
	ListZones(ctx context.Context) ([]Zone, error)
}
