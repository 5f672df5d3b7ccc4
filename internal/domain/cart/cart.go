// Package cart implements the per-customer shopping cart: at most one live
// cart per customer, all items from a single restaurant.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the customer has no live cart.
	ErrNotFound = errors.New("cart not found")
	// ErrRestaurantMismatch is returned when adding an item from a different
	// restaurant than the one the cart already holds.
	ErrRestaurantMismatch = errors.New("cannot add items from different restaurants")
	// ErrInvalidQuantity is returned for a non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Item is a cart line: a menu item reference, quantity, and optional
// preparation instructions. Prices are not stored here; they are snapshotted
// at order time.
type Item struct {
	MenuItemID   uuid.UUID
	Quantity     int
	Instructions string
	AddedAt      time.Time
}

// Cart is a customer's live cart.
type Cart struct {
	CustomerID   uuid.UUID
	RestaurantID uuid.UUID
	Items        []Item
	UpdatedAt    time.Time
}

// Repository persists carts. AddItem and RemoveItem are serialized per
// customer by the implementation (row lock on the cart), so concurrent
// mutations of one customer's cart cannot interleave.
type Repository interface {
	// Get returns the customer's live cart, or ErrNotFound.
	Get(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	// AddItem creates the cart on first add and merges quantity when the
	// menu item is already present. Returns ErrRestaurantMismatch when the
	// cart holds items from another restaurant.
	AddItem(ctx context.Context, customerID, restaurantID uuid.UUID, item Item) (*Cart, error)
	// RemoveItem deletes one line; an emptied cart is destroyed. Returns
	// ErrNotFound when the customer has no cart.
	RemoveItem(ctx context.Context, customerID, menuItemID uuid.UUID) (*Cart, error)
}
