package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/chowline/internal/domain/catalog"
	"github.com/xenking/chowline/internal/domain/promo"
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// GetRestaurant returns a restaurant with its promo code set.
func (r *CatalogRepository) GetRestaurant(ctx context.Context, id uuid.UUID) (*catalog.Restaurant, error) {
	return r.getRestaurant(ctx, `id = $1`, id)
}

// GetRestaurantByOwner resolves the restaurant owned by the given user.
func (r *CatalogRepository) GetRestaurantByOwner(ctx context.Context, ownerID uuid.UUID) (*catalog.Restaurant, error) {
	return r.getRestaurant(ctx, `owner_id = $1`, ownerID)
}

func (r *CatalogRepository) getRestaurant(ctx context.Context, where string, arg any) (*catalog.Restaurant, error) {
	var rest catalog.Restaurant
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, status, zone_id FROM restaurants WHERE `+where, arg).
		Scan(&rest.ID, &rest.OwnerID, &rest.Name, &rest.Status, &rest.ZoneID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRestaurantNotFound
		}
		return nil, errors.Wrap(err, "getting restaurant")
	}

	promos, err := r.promos(ctx, rest.ID)
	if err != nil {
		return nil, err
	}
	rest.Promos = promos

	return &rest, nil
}

// GetMenuItem returns an available menu item, or catalog.ErrMenuItemNotFound.
func (r *CatalogRepository) GetMenuItem(ctx context.Context, id uuid.UUID) (*catalog.MenuItem, error) {
	var m catalog.MenuItem
	err := r.pool.QueryRow(ctx, `
		SELECT id, restaurant_id, name, price, available
		FROM menu_items WHERE id = $1 AND available`, id).
		Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMenuItemNotFound
		}
		return nil, errors.Wrapf(err, "getting menu item %q", id)
	}
	return &m, nil
}

// GetMenuItems batch-fetches available menu items in a single query.
func (r *CatalogRepository) GetMenuItems(ctx context.Context, ids []uuid.UUID) ([]catalog.MenuItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, restaurant_id, name, price, available
		FROM menu_items WHERE id = ANY($1) AND available`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "listing menu items")
	}
	defer rows.Close()

	var items []catalog.MenuItem
	for rows.Next() {
		var m catalog.MenuItem
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Price, &m.Available); err != nil {
			return nil, errors.Wrap(err, "scanning menu item")
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *CatalogRepository) promos(ctx context.Context, restaurantID uuid.UUID) ([]promo.Code, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT restaurant_id, code, discount, kind, min_order, max_discount,
			active, expires_at, usage_limit, usage_count
		FROM promo_codes WHERE restaurant_id = $1`, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "listing promo codes")
	}
	defer rows.Close()

	var promos []promo.Code
	for rows.Next() {
		var (
			c          promo.Code
			usageLimit *int
		)
		if err := rows.Scan(&c.RestaurantID, &c.Code, &c.Discount, &c.Kind, &c.MinOrder,
			&c.MaxDiscount, &c.Active, &c.ExpiresAt, &usageLimit, &c.UsageCount); err != nil {
			return nil, errors.Wrap(err, "scanning promo code")
		}
		if usageLimit != nil {
			c.UsageLimit = *usageLimit
		}
		promos = append(promos, c)
	}
	return promos, rows.Err()
}
