package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/chowline/internal/domain/catalog"
)

// Service validates cart mutations against the catalog before delegating to
// the repository.
type Service struct {
	catalog catalog.Repository
	carts   Repository
}

// NewService creates a cart Service.
func NewService(cat catalog.Repository, carts Repository) *Service {
	return &Service{catalog: cat, carts: carts}
}

// Add puts a menu item into the customer's cart, creating the cart when
// needed. The item must exist and be available, and its restaurant must be
// active and match the cart's restaurant.
func (s *Service) Add(ctx context.Context, customerID, menuItemID uuid.UUID, quantity int, instructions string) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.catalog.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, errors.Wrap(err, "get menu item")
	}

	rest, err := s.catalog.GetRestaurant(ctx, item.RestaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "get restaurant")
	}
	if rest.Status != catalog.RestaurantActive {
		return nil, catalog.ErrRestaurantNotFound
	}

	c, err := s.carts.AddItem(ctx, customerID, rest.ID, Item{
		MenuItemID:   menuItemID,
		Quantity:     quantity,
		Instructions: instructions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "add cart item")
	}

	return c, nil
}

// Get returns the customer's live cart, or ErrNotFound.
func (s *Service) Get(ctx context.Context, customerID uuid.UUID) (*Cart, error) {
	return s.carts.Get(ctx, customerID)
}

// Remove deletes one line from the customer's cart. Removing the last line
// destroys the cart and returns a nil cart.
func (s *Service) Remove(ctx context.Context, customerID, menuItemID uuid.UUID) (*Cart, error) {
	return s.carts.RemoveItem(ctx, customerID, menuItemID)
}
