package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/chowline/internal/domain/catalog"
)

type mockCatalog struct {
	restaurants map[uuid.UUID]*catalog.Restaurant
	items       map[uuid.UUID]catalog.MenuItem
}

func (m *mockCatalog) GetRestaurant(_ context.Context, id uuid.UUID) (*catalog.Restaurant, error) {
	r, ok := m.restaurants[id]
	if !ok {
		return nil, catalog.ErrRestaurantNotFound
	}
	return r, nil
}

func (m *mockCatalog) GetRestaurantByOwner(context.Context, uuid.UUID) (*catalog.Restaurant, error) {
	panic("not used")
}

func (m *mockCatalog) GetMenuItem(_ context.Context, id uuid.UUID) (*catalog.MenuItem, error) {
	it, ok := m.items[id]
	if !ok {
		return nil, catalog.ErrMenuItemNotFound
	}
	return &it, nil
}

func (m *mockCatalog) GetMenuItems(context.Context, []uuid.UUID) ([]catalog.MenuItem, error) {
	panic("not used")
}

// memCarts is an in-memory Repository with the same single-restaurant and
// quantity-merge rules as the postgres implementation.
type memCarts struct {
	carts map[uuid.UUID]*Cart
}

var _ Repository = (*memCarts)(nil)

func newMemCarts() *memCarts {
	return &memCarts{carts: map[uuid.UUID]*Cart{}}
}

func (m *memCarts) Get(_ context.Context, customerID uuid.UUID) (*Cart, error) {
	c, ok := m.carts[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (m *memCarts) AddItem(_ context.Context, customerID, restaurantID uuid.UUID, item Item) (*Cart, error) {
	c, ok := m.carts[customerID]
	if !ok {
		c = &Cart{CustomerID: customerID, RestaurantID: restaurantID}
		m.carts[customerID] = c
	}
	if c.RestaurantID != restaurantID {
		return nil, ErrRestaurantMismatch
	}
	for i := range c.Items {
		if c.Items[i].MenuItemID == item.MenuItemID {
			c.Items[i].Quantity += item.Quantity
			return c, nil
		}
	}
	c.Items = append(c.Items, item)
	return c, nil
}

func (m *memCarts) RemoveItem(_ context.Context, customerID, menuItemID uuid.UUID) (*Cart, error) {
	c, ok := m.carts[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].MenuItemID == menuItemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			break
		}
	}
	if len(c.Items) == 0 {
		delete(m.carts, customerID)
		return nil, nil
	}
	return c, nil
}

type cartFixture struct {
	svc        *Service
	customerID uuid.UUID
	dosaID     uuid.UUID
	chaiID     uuid.UUID
	otherID    uuid.UUID
	closedID   uuid.UUID
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()

	f := &cartFixture{
		customerID: uuid.New(),
		dosaID:     uuid.New(),
		chaiID:     uuid.New(),
		otherID:    uuid.New(),
		closedID:   uuid.New(),
	}

	restID, otherRestID, closedRestID := uuid.New(), uuid.New(), uuid.New()
	cat := &mockCatalog{
		restaurants: map[uuid.UUID]*catalog.Restaurant{
			restID:       {ID: restID, Status: catalog.RestaurantActive},
			otherRestID:  {ID: otherRestID, Status: catalog.RestaurantActive},
			closedRestID: {ID: closedRestID, Status: catalog.RestaurantSuspended},
		},
		items: map[uuid.UUID]catalog.MenuItem{
			f.dosaID:   {ID: f.dosaID, RestaurantID: restID, Name: "Masala Dosa", Price: decimal.NewFromInt(80), Available: true},
			f.chaiID:   {ID: f.chaiID, RestaurantID: restID, Name: "Chai", Price: decimal.NewFromInt(20), Available: true},
			f.otherID:  {ID: f.otherID, RestaurantID: otherRestID, Name: "Pizza", Price: decimal.NewFromInt(250), Available: true},
			f.closedID: {ID: f.closedID, RestaurantID: closedRestID, Name: "Rolls", Price: decimal.NewFromInt(120), Available: true},
		},
	}

	f.svc = NewService(cat, newMemCarts())
	return f
}

func TestServiceAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("creates cart on first add", func(t *testing.T) {
		f := newCartFixture(t)

		c, err := f.svc.Add(ctx, f.customerID, f.dosaID, 2, "extra chutney")
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 2, c.Items[0].Quantity)
		assert.Equal(t, "extra chutney", c.Items[0].Instructions)
	})

	t.Run("merges quantity for repeated item", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Add(ctx, f.customerID, f.dosaID, 2, "")
		require.NoError(t, err)
		c, err := f.svc.Add(ctx, f.customerID, f.dosaID, 1, "")
		require.NoError(t, err)

		require.Len(t, c.Items, 1)
		assert.Equal(t, 3, c.Items[0].Quantity)
	})

	t.Run("rejects second restaurant", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Add(ctx, f.customerID, f.dosaID, 1, "")
		require.NoError(t, err)

		_, err = f.svc.Add(ctx, f.customerID, f.otherID, 1, "")
		assert.ErrorIs(t, err, ErrRestaurantMismatch)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Add(ctx, f.customerID, f.dosaID, 0, "")
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	})

	t.Run("rejects unknown menu item", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Add(ctx, f.customerID, uuid.New(), 1, "")
		assert.ErrorIs(t, err, catalog.ErrMenuItemNotFound)
	})

	t.Run("rejects inactive restaurant", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Add(ctx, f.customerID, f.closedID, 1, "")
		assert.ErrorIs(t, err, catalog.ErrRestaurantNotFound)
	})
}

func TestServiceRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("removes one line", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Add(ctx, f.customerID, f.dosaID, 1, "")
		require.NoError(t, err)
		_, err = f.svc.Add(ctx, f.customerID, f.chaiID, 2, "")
		require.NoError(t, err)

		c, err := f.svc.Remove(ctx, f.customerID, f.dosaID)
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Equal(t, f.chaiID, c.Items[0].MenuItemID)
	})

	t.Run("destroys emptied cart", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Add(ctx, f.customerID, f.dosaID, 1, "")
		require.NoError(t, err)

		c, err := f.svc.Remove(ctx, f.customerID, f.dosaID)
		require.NoError(t, err)
		assert.Nil(t, c)

		_, err = f.svc.Get(ctx, f.customerID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("no cart", func(t *testing.T) {
		f := newCartFixture(t)

		_, err := f.svc.Remove(ctx, uuid.New(), f.dosaID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
