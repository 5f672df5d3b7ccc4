package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/chowline/internal/domain/delivery"
)

var _ delivery.AgentRepository = (*AgentRepository)(nil)

// AgentRepository implements delivery.AgentRepository backed by PostgreSQL.
type AgentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository returns an AgentRepository that uses the given pool.
func NewAgentRepository(pool *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{pool: pool}
}

// Get returns a delivery agent, or delivery.ErrAgentNotFound.
func (r *AgentRepository) Get(ctx context.Context, id uuid.UUID) (*delivery.Agent, error) {
	var a delivery.Agent
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, delivery_status, active_zones, earnings
		FROM users WHERE id = $1 AND role = 'delivery'`, id).
		Scan(&a.ID, &a.Name, &a.Status, &a.ActiveZones, &a.Earnings)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, delivery.ErrAgentNotFound
		}
		return nil, errors.Wrapf(err, "getting agent %q", id)
	}
	return &a, nil
}

// ToggleStatus flips the agent between active and offline in one statement.
func (r *AgentRepository) ToggleStatus(ctx context.Context, id uuid.UUID) (delivery.AgentStatus, error) {
	var status delivery.AgentStatus
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET delivery_status = CASE delivery_status WHEN 'active' THEN 'offline' ELSE 'active' END
		WHERE id = $1 AND role = 'delivery'
		RETURNING delivery_status`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", delivery.ErrAgentNotFound
		}
		return "", errors.Wrapf(err, "toggling status for agent %q", id)
	}
	return status, nil
}

// SetZones replaces the agent's active zone set.
func (r *AgentRepository) SetZones(ctx context.Context, id uuid.UUID, zones []uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET active_zones = $2 WHERE id = $1 AND role = 'delivery'`,
		id, zones)
	if err != nil {
		return errors.Wrapf(err, "setting zones for agent %q", id)
	}
	if tag.RowsAffected() == 0 {
		return delivery.ErrAgentNotFound
	}
	return nil
}

// Earnings returns the agent's cumulative earnings plus total and same-day
// delivered counts.
func (r *AgentRepository) Earnings(ctx context.Context, id uuid.UUID) (delivery.EarningsStats, error) {
	var stats delivery.EarningsStats

	agent, err := r.Get(ctx, id)
	if err != nil {
		return stats, err
	}
	stats.TotalEarnings = agent.Earnings

	midnight := time.Now().Truncate(24 * time.Hour)
	err = r.pool.QueryRow(ctx, `
		SELECT count(*),
			count(*) FILTER (WHERE actual_delivery >= $2)
		FROM orders
		WHERE delivery_agent = $1 AND status = 'delivered'`,
		id, midnight).Scan(&stats.TotalDeliveries, &stats.TodayDeliveries)
	if err != nil {
		return stats, errors.Wrapf(err, "counting deliveries for agent %q", id)
	}

	return stats, nil
}

// ListZones returns all active delivery zones.
func (r *AgentRepository) ListZones(ctx context.Context) ([]delivery.Zone, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, city, active FROM zones WHERE active ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "listing zones")
	}
	defer rows.Close()

	var zones []delivery.Zone
	for rows.Next() {
		var z delivery.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.City, &z.Active); err != nil {
			return nil, errors.Wrap(err, "scanning zone")
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}
