package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/chowline/internal/domain/order"
	"github.com/xenking/chowline/internal/event"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `id, customer_id, restaurant_id, items, subtotal, delivery_fee, tax,
	discount, promo_code, promo_discount, total, delivery_address, status, delivery_agent,
	payment_method, payment_status, estimated_delivery, actual_delivery, points_earned,
	created_at, updated_at`

// Create persists a new order and its coupled side effects as one
// transaction: the initial history entry, the customer's points credit, the
// conditional promo usage increment, deletion of the source cart, and the
// order.created outbox event.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return errors.Wrap(err, "marshaling order items")
	}
	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return errors.Wrap(err, "marshaling delivery address")
	}

	var promoCode *string
	var promoDiscount *decimal.Decimal
	if o.Promo != nil {
		promoCode = &o.Promo.Code
		promoDiscount = &o.Promo.Discount
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if o.Promo != nil {
			// The authoritative usage-limit guard: the validator's
			// pre-check is best-effort under concurrency.
			tag, err := tx.Exec(ctx, `
				UPDATE promo_codes
				SET usage_count = usage_count + 1
				WHERE restaurant_id = $1 AND code = $2
				  AND (usage_limit IS NULL OR usage_count < usage_limit)`,
				o.RestaurantID, o.Promo.Code)
			if err != nil {
				return errors.Wrapf(err, "incrementing promo %q", o.Promo.Code)
			}
			if tag.RowsAffected() == 0 {
				return order.ErrPromoExhausted
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, customer_id, restaurant_id, items, subtotal, delivery_fee,
				tax, discount, promo_code, promo_discount, total, delivery_address, status,
				payment_method, payment_status, estimated_delivery, points_earned, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)`,
			o.ID, o.CustomerID, o.RestaurantID, itemsJSON, o.Subtotal, o.DeliveryFee,
			o.Tax, o.Discount, promoCode, promoDiscount, o.Total, addressJSON, o.Status,
			o.PaymentMethod, o.PaymentStatus, o.EstimatedDelivery, o.PointsEarned, o.CreatedAt)
		if err != nil {
			return errors.Wrapf(err, "inserting order %q", o.ID)
		}

		for _, h := range o.History {
			if err := appendHistory(ctx, tx, o.ID, h); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET points = points + $2 WHERE id = $1`,
			o.CustomerID, o.PointsEarned); err != nil {
			return errors.Wrap(err, "crediting customer points")
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM carts WHERE customer_id = $1`, o.CustomerID); err != nil {
			return errors.Wrap(err, "deleting cart")
		}

		return appendEvent(ctx, tx, event.OrderCreated(o.ID, o.RestaurantID))
	})
}

// Get returns an order with its full status history.
func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting order %q", id)
	}

	history, err := r.history(ctx, id)
	if err != nil {
		return nil, err
	}
	o.History = history

	return o, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]order.Order, error) {
	return r.list(ctx, `customer_id = $1 ORDER BY created_at DESC`, customerID)
}

func (r *OrderRepository) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]order.Order, error) {
	return r.list(ctx, `restaurant_id = $1 ORDER BY created_at DESC`, restaurantID)
}

func (r *OrderRepository) ListByAgent(ctx context.Context, agentID uuid.UUID) ([]order.Order, error) {
	return r.list(ctx, `delivery_agent = $1 ORDER BY created_at DESC`, agentID)
}

// ListAvailable returns the claimable pool, oldest first. With zones given,
// only orders from restaurants inside those zones are visible.
func (r *OrderRepository) ListAvailable(ctx context.Context, zones []uuid.UUID) ([]order.Order, error) {
	if len(zones) == 0 {
		return r.list(ctx, `status = 'ready' AND delivery_agent IS NULL ORDER BY created_at`)
	}
	return r.list(ctx, `status = 'ready' AND delivery_agent IS NULL
		AND restaurant_id IN (SELECT id FROM restaurants WHERE zone_id = ANY($1))
		ORDER BY created_at`, zones)
}

// TransitionStatus performs the conditional status move. The WHERE clause on
// the expected pre-status is the optimistic concurrency control: a lost race
// affects zero rows and surfaces as ErrStatusConflict.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, expect order.Status, entry order.HistoryEntry) (*order.Order, error) {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET status = $3, updated_at = $4
			WHERE id = $1 AND status = $2`,
			id, expect, entry.Status, entry.At)
		if err != nil {
			return errors.Wrapf(err, "transitioning order %q", id)
		}
		if tag.RowsAffected() == 0 {
			return r.transitionFailure(ctx, tx, id)
		}

		if err := appendHistory(ctx, tx, id, entry); err != nil {
			return err
		}
		return appendEvent(ctx, tx, event.StatusChanged(id, string(entry.Status)))
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// Claim is the assignment race's single synchronization point: one
// conditional update keyed on (status = ready, no agent). Exactly one
// concurrent caller affects the row.
func (r *OrderRepository) Claim(ctx context.Context, id, agentID uuid.UUID, at time.Time) (*order.Order, error) {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET delivery_agent = $2, status = 'out-for-delivery', updated_at = $3
			WHERE id = $1 AND status = 'ready' AND delivery_agent IS NULL`,
			id, agentID, at)
		if err != nil {
			return errors.Wrapf(err, "claiming order %q", id)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
				return errors.Wrap(err, "checking order existence")
			}
			if !exists {
				return order.ErrNotFound
			}
			return order.ErrAlreadyAssigned
		}

		if err := appendHistory(ctx, tx, id, order.HistoryEntry{
			Status: order.StatusOutForDelivery,
			At:     at,
		}); err != nil {
			return err
		}

		if err := appendEvent(ctx, tx, event.OrderAssigned(id, agentID)); err != nil {
			return err
		}
		return appendEvent(ctx, tx, event.StatusChanged(id, string(order.StatusOutForDelivery)))
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// MarkDelivered completes a delivery: conditional on the order being
// out-for-delivery and owned by this agent, it stamps the delivery time and
// credits the agent's earnings in the same transaction.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id, agentID uuid.UUID, at time.Time, earning decimal.Decimal) (*order.Order, error) {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET status = 'delivered', actual_delivery = $3, updated_at = $3
			WHERE id = $1 AND status = 'out-for-delivery' AND delivery_agent = $2`,
			id, agentID, at)
		if err != nil {
			return errors.Wrapf(err, "delivering order %q", id)
		}
		if tag.RowsAffected() == 0 {
			return r.transitionFailure(ctx, tx, id)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE users SET earnings = earnings + $2 WHERE id = $1`,
			agentID, earning); err != nil {
			return errors.Wrap(err, "crediting agent earnings")
		}

		if err := appendHistory(ctx, tx, id, order.HistoryEntry{
			Status: order.StatusDelivered,
			At:     at,
		}); err != nil {
			return err
		}
		return appendEvent(ctx, tx, event.StatusChanged(id, string(order.StatusDelivered)))
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

// PointsBalance returns the customer's loyalty point balance.
func (r *OrderRepository) PointsBalance(ctx context.Context, customerID uuid.UUID) (int, error) {
	var points int
	err := r.pool.QueryRow(ctx,
		`SELECT points FROM users WHERE id = $1`, customerID).Scan(&points)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, order.ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "reading points for customer %q", customerID)
	}
	return points, nil
}

// transitionFailure resolves a zero-row conditional update into the right
// sentinel: the order is either gone or in a different state than expected.
func (r *OrderRepository) transitionFailure(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking order existence")
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrStatusConflict
}

// list runs a filtered order query. List results omit the status history;
// Get loads it.
func (r *OrderRepository) list(ctx context.Context, where string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning order")
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) history(ctx context.Context, id uuid.UUID) ([]order.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, note, created_at FROM order_status_history
		WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading history for order %q", id)
	}
	defer rows.Close()

	var history []order.HistoryEntry
	for rows.Next() {
		var h order.HistoryEntry
		if err := rows.Scan(&h.Status, &h.Note, &h.At); err != nil {
			return nil, errors.Wrap(err, "scanning history entry")
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func appendHistory(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, h order.HistoryEntry) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_history (order_id, status, note, created_at)
		VALUES ($1, $2, $3, $4)`,
		orderID, h.Status, h.Note, h.At); err != nil {
		return errors.Wrap(err, "appending status history")
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		addressJSON   []byte
		promoCode     *string
		promoDiscount *decimal.Decimal
	)

	if err := row.Scan(
		&o.ID, &o.CustomerID, &o.RestaurantID, &itemsJSON, &o.Subtotal, &o.DeliveryFee,
		&o.Tax, &o.Discount, &promoCode, &promoDiscount, &o.Total, &addressJSON,
		&o.Status, &o.AssignedAgent, &o.PaymentMethod, &o.PaymentStatus,
		&o.EstimatedDelivery, &o.ActualDelivery, &o.PointsEarned, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshaling order items")
	}
	if err := json.Unmarshal(addressJSON, &o.Address); err != nil {
		return nil, errors.Wrap(err, "unmarshaling delivery address")
	}
	if promoCode != nil && promoDiscount != nil {
		o.Promo = &order.AppliedPromo{Code: *promoCode, Discount: *promoDiscount}
	}

	return &o, nil
}
