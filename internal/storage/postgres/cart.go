package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/chowline/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Mutations
// lock the customer's cart row, serializing concurrent changes per customer.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the customer's live cart, or cart.ErrNotFound.
func (r *CartRepository) Get(ctx context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	c := cart.Cart{CustomerID: customerID}

	err := r.pool.QueryRow(ctx,
		`SELECT restaurant_id, updated_at FROM carts WHERE customer_id = $1`,
		customerID).Scan(&c.RestaurantID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "getting cart for %q", customerID)
	}

	items, err := r.items(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c.Items = items

	return &c, nil
}

// AddItem creates the cart on first add, merges quantities for an item that
// is already present, and rejects items from a different restaurant. The
// lookup-merge-save sequence runs under a row lock on the cart.
func (r *CartRepository) AddItem(ctx context.Context, customerID, restaurantID uuid.UUID, item cart.Item) (*cart.Cart, error) {
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT restaurant_id FROM carts WHERE customer_id = $1 FOR UPDATE`,
			customerID).Scan(&current)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := tx.Exec(ctx,
				`INSERT INTO carts (customer_id, restaurant_id) VALUES ($1, $2)`,
				customerID, restaurantID); err != nil {
				return errors.Wrap(err, "creating cart")
			}
		case err != nil:
			return errors.Wrap(err, "locking cart")
		case current != restaurantID:
			return cart.ErrRestaurantMismatch
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_items (customer_id, menu_item_id, quantity, instructions)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (customer_id, menu_item_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
			customerID, item.MenuItemID, item.Quantity, item.Instructions); err != nil {
			return errors.Wrap(err, "upserting cart item")
		}

		if _, err := tx.Exec(ctx,
			`UPDATE carts SET updated_at = now() WHERE customer_id = $1`,
			customerID); err != nil {
			return errors.Wrap(err, "touching cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, customerID)
}

// RemoveItem deletes one line under the cart row lock; removing the last
// line destroys the cart and returns nil.
func (r *CartRepository) RemoveItem(ctx context.Context, customerID, menuItemID uuid.UUID) (*cart.Cart, error) {
	var emptied bool
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		var current uuid.UUID
		err := tx.QueryRow(ctx,
			`SELECT restaurant_id FROM carts WHERE customer_id = $1 FOR UPDATE`,
			customerID).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return cart.ErrNotFound
			}
			return errors.Wrap(err, "locking cart")
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM cart_items WHERE customer_id = $1 AND menu_item_id = $2`,
			customerID, menuItemID); err != nil {
			return errors.Wrap(err, "deleting cart item")
		}

		var remaining int
		if err := tx.QueryRow(ctx,
			`SELECT count(*) FROM cart_items WHERE customer_id = $1`,
			customerID).Scan(&remaining); err != nil {
			return errors.Wrap(err, "counting cart items")
		}

		if remaining == 0 {
			emptied = true
			if _, err := tx.Exec(ctx,
				`DELETE FROM carts WHERE customer_id = $1`, customerID); err != nil {
				return errors.Wrap(err, "deleting emptied cart")
			}
			return nil
		}

		if _, err := tx.Exec(ctx,
			`UPDATE carts SET updated_at = now() WHERE customer_id = $1`,
			customerID); err != nil {
			return errors.Wrap(err, "touching cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if emptied {
		return nil, nil
	}

	return r.Get(ctx, customerID)
}

func (r *CartRepository) items(ctx context.Context, customerID uuid.UUID) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT menu_item_id, quantity, instructions, added_at
		FROM cart_items WHERE customer_id = $1 ORDER BY added_at`,
		customerID)
	if err != nil {
		return nil, errors.Wrap(err, "listing cart items")
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var it cart.Item
		if err := rows.Scan(&it.MenuItemID, &it.Quantity, &it.Instructions, &it.AddedAt); err != nil {
			return nil, errors.Wrap(err, "scanning cart item")
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
