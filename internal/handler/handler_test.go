package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/chowline/internal/domain/cart"
	"github.com/xenking/chowline/internal/domain/catalog"
)

type stubCatalog struct {
	restaurant catalog.Restaurant
	item       catalog.MenuItem
}

func (s *stubCatalog) GetRestaurant(_ context.Context, id uuid.UUID) (*catalog.Restaurant, error) {
	if id != s.restaurant.ID {
		return nil, catalog.ErrRestaurantNotFound
	}
	r := s.restaurant
	return &r, nil
}

func (s *stubCatalog) GetRestaurantByOwner(context.Context, uuid.UUID) (*catalog.Restaurant, error) {
	return nil, catalog.ErrRestaurantNotFound
}

func (s *stubCatalog) GetMenuItem(_ context.Context, id uuid.UUID) (*catalog.MenuItem, error) {
	if id != s.item.ID {
		return nil, catalog.ErrMenuItemNotFound
	}
	it := s.item
	return &it, nil
}

func (s *stubCatalog) GetMenuItems(context.Context, []uuid.UUID) ([]catalog.MenuItem, error) {
	return []catalog.MenuItem{s.item}, nil
}

type stubCarts struct {
	carts map[uuid.UUID]*cart.Cart
}

func (s *stubCarts) Get(_ context.Context, customerID uuid.UUID) (*cart.Cart, error) {
	c, ok := s.carts[customerID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (s *stubCarts) AddItem(_ context.Context, customerID, restaurantID uuid.UUID, item cart.Item) (*cart.Cart, error) {
	c, ok := s.carts[customerID]
	if !ok {
		c = &cart.Cart{CustomerID: customerID, RestaurantID: restaurantID}
		s.carts[customerID] = c
	}
	c.Items = append(c.Items, item)
	return c, nil
}

func (s *stubCarts) RemoveItem(_ context.Context, customerID, _ uuid.UUID) (*cart.Cart, error) {
	if _, ok := s.carts[customerID]; !ok {
		return nil, cart.ErrNotFound
	}
	delete(s.carts, customerID)
	return nil, nil
}

type handlerFixture struct {
	e          *echo.Echo
	customerID uuid.UUID
	itemID     uuid.UUID
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	restID, itemID := uuid.New(), uuid.New()
	cat := &stubCatalog{
		restaurant: catalog.Restaurant{ID: restID, Status: catalog.RestaurantActive},
		item: catalog.MenuItem{
			ID:           itemID,
			RestaurantID: restID,
			Name:         "Thali",
			Price:        decimal.NewFromInt(150),
			Available:    true,
		},
	}
	carts := cart.NewService(cat, &stubCarts{carts: map[uuid.UUID]*cart.Cart{}})

	e := echo.New()
	New(carts, nil, nil, nil).Register(e)

	return &handlerFixture{
		e:          e,
		customerID: uuid.New(),
		itemID:     itemID,
	}
}

func (f *handlerFixture) request(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) asCustomer() map[string]string {
	return map[string]string{
		HeaderActorID:   f.customerID.String(),
		HeaderActorRole: "customer",
	}
}

func TestRequireRole(t *testing.T) {
	f := newHandlerFixture(t)

	t.Run("missing headers", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/customer/cart", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed actor id", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/customer/cart", "", map[string]string{
			HeaderActorID:   "not-a-uuid",
			HeaderActorRole: "customer",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/customer/cart", "", map[string]string{
			HeaderActorID:   uuid.NewString(),
			HeaderActorRole: "superuser",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong capability", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/customer/cart", "", map[string]string{
			HeaderActorID:   uuid.NewString(),
			HeaderActorRole: "delivery",
		})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin passes any gate", func(t *testing.T) {
		rec := f.request(http.MethodGet, "/api/customer/cart", "", map[string]string{
			HeaderActorID:   uuid.NewString(),
			HeaderActorRole: "admin",
		})
		// Admin has no cart; the gate let the request through.
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCartRoutes(t *testing.T) {
	t.Run("empty cart is 404", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.request(http.MethodGet, "/api/customer/cart", "", f.asCustomer())
		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body errorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, http.StatusNotFound, body.Code)
	})

	t.Run("add then get", func(t *testing.T) {
		f := newHandlerFixture(t)

		body := `{"menu_item_id":"` + f.itemID.String() + `","quantity":2}`
		rec := f.request(http.MethodPost, "/api/customer/cart/items", body, f.asCustomer())
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.request(http.MethodGet, "/api/customer/cart", "", f.asCustomer())
		require.Equal(t, http.StatusOK, rec.Code)

		var resp cartResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Items, 1)
		assert.Equal(t, f.itemID, resp.Items[0].MenuItemID)
		assert.Equal(t, 2, resp.Items[0].Quantity)
	})

	t.Run("zero quantity is 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		body := `{"menu_item_id":"` + f.itemID.String() + `","quantity":0}`
		rec := f.request(http.MethodPost, "/api/customer/cart/items", body, f.asCustomer())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown menu item is 404", func(t *testing.T) {
		f := newHandlerFixture(t)

		body := `{"menu_item_id":"` + uuid.NewString() + `","quantity":1}`
		rec := f.request(http.MethodPost, "/api/customer/cart/items", body, f.asCustomer())
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("remove last item returns 204", func(t *testing.T) {
		f := newHandlerFixture(t)

		body := `{"menu_item_id":"` + f.itemID.String() + `","quantity":1}`
		rec := f.request(http.MethodPost, "/api/customer/cart/items", body, f.asCustomer())
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.request(http.MethodDelete, "/api/customer/cart/items/"+f.itemID.String(), "", f.asCustomer())
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("malformed item id is 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		rec := f.request(http.MethodDelete, "/api/customer/cart/items/garbage", "", f.asCustomer())
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
