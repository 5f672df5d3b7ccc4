package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/xenking/chowline/internal/domain/cart"
	"github.com/xenking/chowline/internal/domain/catalog"
	"github.com/xenking/chowline/internal/domain/delivery"
	"github.com/xenking/chowline/internal/domain/order"
	"github.com/xenking/chowline/internal/domain/pricing"
)

// errorResponse is the JSON error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Code: status, Message: message})
}

// respondDomainError maps a domain error to its HTTP status. Unmapped errors
// are logged and returned as 500 without leaking internals.
func respondDomainError(c echo.Context, err error) error {
	var invalid *order.InvalidTransitionError
	if errors.As(err, &invalid) {
		return respondError(c, http.StatusConflict, invalid.Error())
	}

	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, catalog.ErrMenuItemNotFound),
		errors.Is(err, delivery.ErrAgentNotFound):
		return respondError(c, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrAlreadyAssigned),
		errors.Is(err, order.ErrStatusConflict),
		errors.Is(err, cart.ErrRestaurantMismatch):
		return respondError(c, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrNoteRequired),
		errors.Is(err, pricing.ErrInvalidPricing):
		return respondError(c, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrUnknownStatus),
		errors.Is(err, order.ErrUnknownPaymentMethod):
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	zctx.From(c.Request().Context()).Error("Unhandled error", zap.Error(err))
	return respondError(c, http.StatusInternalServerError, "internal error")
}
