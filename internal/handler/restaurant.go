package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/xenking/chowline/internal/domain/order"
)

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) updateOrderStatus(c echo.Context) error {
	act := actorFrom(c)

	orderID, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}

	target, err := order.ParseStatus(req.Status)
	if err != nil {
		return respondDomainError(c, err)
	}

	o, err := h.orders.Transition(c.Request().Context(), act, orderID, target, req.Note)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}
