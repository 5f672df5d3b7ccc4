package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/xenking/chowline/internal/domain/order"
)

type addCartItemRequest struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Quantity     int       `json:"quantity"`
	Instructions string    `json:"instructions"`
}

func (h *Handler) getCart(c echo.Context) error {
	act := actorFrom(c)

	crt, err := h.carts.Get(c.Request().Context(), act.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(crt))
}

func (h *Handler) addCartItem(c echo.Context) error {
	act := actorFrom(c)

	var req addCartItemRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}

	crt, err := h.carts.Add(c.Request().Context(), act.ID, req.MenuItemID, req.Quantity, req.Instructions)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toCartResponse(crt))
}

func (h *Handler) removeCartItem(c echo.Context) error {
	act := actorFrom(c)

	itemID, err := uuid.Parse(c.Param("itemID"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid menu item id")
	}

	crt, err := h.carts.Remove(c.Request().Context(), act.ID, itemID)
	if err != nil {
		return respondDomainError(c, err)
	}
	if crt == nil {
		// Removing the last line destroyed the cart.
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, toCartResponse(crt))
}

type checkoutRequest struct {
	Address       order.Address `json:"delivery_address"`
	PaymentMethod string        `json:"payment_method"`
	PromoCode     string        `json:"promo_code"`
}

func (h *Handler) checkout(c echo.Context) error {
	act := actorFrom(c)

	var req checkoutRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}

	method, err := order.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return respondDomainError(c, err)
	}

	o, err := h.orders.Checkout(c.Request().Context(), order.CheckoutRequest{
		CustomerID:    act.ID,
		Address:       req.Address,
		PaymentMethod: method,
		PromoCode:     req.PromoCode,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) cancelOrder(c echo.Context) error {
	act := actorFrom(c)

	orderID, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	var req struct {
		Note string `json:"note"`
	}
	_ = c.Bind(&req)

	o, err := h.orders.Transition(c.Request().Context(), act, orderID, order.StatusCancelled, req.Note)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) getPoints(c echo.Context) error {
	act := actorFrom(c)

	points, err := h.orders.Points(c.Request().Context(), act.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"points": points})
}

// listOrders and getOrder serve all three capability groups; the order
// service scopes results to the actor.
func (h *Handler) listOrders(c echo.Context) error {
	act := actorFrom(c)

	orders, err := h.orders.List(c.Request().Context(), act)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) getOrder(c echo.Context) error {
	act := actorFrom(c)

	orderID, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	o, err := h.orders.Get(c.Request().Context(), act, orderID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}
