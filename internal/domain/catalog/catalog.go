// Package catalog exposes read-only views of restaurants and menu items.
// Catalog management (menus, onboarding, approval) is owned by an external
// system; the engine only snapshots prices and checks availability.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/chowline/internal/domain/promo"
)

var (
	// ErrRestaurantNotFound is returned when a restaurant does not exist or
	// is not active.
	ErrRestaurantNotFound = errors.New("restaurant not found")
	// ErrMenuItemNotFound is returned when a menu item does not exist or is
	// currently unavailable.
	ErrMenuItemNotFound = errors.New("menu item not available")
)

// RestaurantStatus mirrors the onboarding workflow owned elsewhere; the
// engine only cares whether a restaurant is active.
type RestaurantStatus string

const (
	RestaurantPending   RestaurantStatus = "pending"
	RestaurantActive    RestaurantStatus = "active"
	RestaurantInactive  RestaurantStatus = "inactive"
	RestaurantSuspended RestaurantStatus = "suspended"
)

// Restaurant is the engine's view of a restaurant: identity, status, the
// delivery zone it belongs to, and its promo code set.
type Restaurant struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
	Status  RestaurantStatus
	ZoneID  *uuid.UUID
	Promos  []promo.Code
}

// MenuItem is a priced catalog entry. Price is the live catalog price; orders
// copy it into an immutable snapshot at creation time.
type MenuItem struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Price        decimal.Decimal
	Available    bool
}

// Repository provides the catalog reads the engine needs.
type Repository interface {
	// GetRestaurant returns the restaurant with its promo codes, or
	// ErrRestaurantNotFound.
	GetRestaurant(ctx context.Context, id uuid.UUID) (*Restaurant, error)
	// GetRestaurantByOwner resolves a restaurant-staff actor to their
	// restaurant, or ErrRestaurantNotFound.
	GetRestaurantByOwner(ctx context.Context, ownerID uuid.UUID) (*Restaurant, error)
	// GetMenuItem returns an available menu item, or ErrMenuItemNotFound.
	GetMenuItem(ctx context.Context, id uuid.UUID) (*MenuItem, error)
	// GetMenuItems batch-fetches available menu items by ID.
	GetMenuItems(ctx context.Context, ids []uuid.UUID) ([]MenuItem, error)
}
