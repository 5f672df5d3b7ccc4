package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/chowline/internal/event"
)

var _ event.Outbox = (*OutboxRepository)(nil)

// OutboxRepository implements event.Outbox backed by PostgreSQL. Rows are
// appended by the order repository inside its transactions via appendEvent.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository returns an OutboxRepository that uses the given pool.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Pending returns undispatched events, oldest first.
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]event.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, order_id, payload, created_at
		FROM event_outbox WHERE dispatched_at IS NULL
		ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing pending events")
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var e event.Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.OrderID, &e.Payload, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning event")
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkDispatched stamps successful deliveries.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, ids []int64) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE event_outbox SET dispatched_at = now() WHERE id = ANY($1)`, ids); err != nil {
		return errors.Wrap(err, "marking events dispatched")
	}
	return nil
}

// OldestPending returns the creation time of the oldest undispatched event.
// The boolean is false when the outbox is fully drained. Feeds the outbox
// lag readiness probe.
func (r *OutboxRepository) OldestPending(ctx context.Context) (time.Time, bool, error) {
	var oldest time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT created_at FROM event_outbox
		WHERE dispatched_at IS NULL
		ORDER BY id LIMIT 1`).Scan(&oldest)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "reading oldest pending event")
	}
	return oldest, true, nil
}

// appendEvent writes one event into the outbox within the caller's
// transaction, coupling it atomically to the state change that caused it.
func appendEvent(ctx context.Context, tx pgx.Tx, e event.Event) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO event_outbox (kind, order_id, payload)
		VALUES ($1, $2, $3)`,
		e.Kind, e.OrderID, e.Payload); err != nil {
		return errors.Wrapf(err, "appending %s event", e.Kind)
	}
	return nil
}
