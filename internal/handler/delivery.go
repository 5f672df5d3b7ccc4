package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/xenking/chowline/internal/domain/order"
)

func (h *Handler) toggleAgentStatus(c echo.Context) error {
	act := actorFrom(c)

	status, err := h.agents.ToggleStatus(c.Request().Context(), act.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handler) listZones(c echo.Context) error {
	zones, err := h.agents.ListZones(c.Request().Context())
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toZoneResponses(zones))
}

type setZonesRequest struct {
	ZoneIDs []uuid.UUID `json:"zone_ids"`
}

func (h *Handler) setAgentZones(c echo.Context) error {
	act := actorFrom(c)

	var req setZonesRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}

	if err := h.agents.SetZones(c.Request().Context(), act.ID, req.ZoneIDs); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) listAvailableOrders(c echo.Context) error {
	act := actorFrom(c)

	pool, err := h.broker.ListAvailable(c.Request().Context(), act.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponses(pool))
}

func (h *Handler) claimOrder(c echo.Context) error {
	act := actorFrom(c)

	orderID, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	o, err := h.broker.Claim(c.Request().Context(), orderID, act.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) releaseOrder(c echo.Context) error {
	act := actorFrom(c)

	orderID, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	if err := h.broker.Release(c.Request().Context(), orderID, act.ID); err != nil {
		return respondDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) completeDelivery(c echo.Context) error {
	act := actorFrom(c)

	orderID, err := uuid.Parse(c.Param("orderID"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	o, err := h.orders.Transition(c.Request().Context(), act, orderID, order.StatusDelivered, "")
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *Handler) getEarnings(c echo.Context) error {
	act := actorFrom(c)

	stats, err := h.agents.Earnings(c.Request().Context(), act.ID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, earningsResponse{
		TotalEarnings:   stats.TotalEarnings,
		TotalDeliveries: stats.TotalDeliveries,
		TodayDeliveries: stats.TodayDeliveries,
	})
}
