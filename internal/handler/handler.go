// Package handler adapts the engine's services to HTTP. Routes mirror the
// storefront's API surface: one group per capability. Authentication is
// external; the adapter trusts the X-Actor-ID and X-Actor-Role headers set by
// the upstream gateway.
package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/xenking/chowline/internal/domain/actor"
	"github.com/xenking/chowline/internal/domain/cart"
	"github.com/xenking/chowline/internal/domain/delivery"
	"github.com/xenking/chowline/internal/domain/order"
)

// Handler holds the services the HTTP layer exposes.
type Handler struct {
	carts  *cart.Service
	orders *order.Service
	broker *delivery.Broker
	agents delivery.AgentRepository
}

// New creates the HTTP handler.
func New(carts *cart.Service, orders *order.Service, broker *delivery.Broker, agents delivery.AgentRepository) *Handler {
	return &Handler{
		carts:  carts,
		orders: orders,
		broker: broker,
		agents: agents,
	}
}

// Register mounts all routes on e.
func (h *Handler) Register(e *echo.Echo) {
	customer := e.Group("/api/customer", RequireRole(actor.RoleCustomer))
	customer.GET("/cart", h.getCart)
	customer.POST("/cart/items", h.addCartItem)
	customer.DELETE("/cart/items/:itemID", h.removeCartItem)
	customer.POST("/orders", h.checkout)
	customer.GET("/orders", h.listOrders)
	customer.GET("/orders/:orderID", h.getOrder)
	customer.POST("/orders/:orderID/cancel", h.cancelOrder)
	customer.GET("/points", h.getPoints)

	restaurant := e.Group("/api/restaurant", RequireRole(actor.RoleRestaurant))
	restaurant.GET("/orders", h.listOrders)
	restaurant.GET("/orders/:orderID", h.getOrder)
	restaurant.POST("/orders/:orderID/status", h.updateOrderStatus)

	agent := e.Group("/api/delivery", RequireRole(actor.RoleDelivery))
	agent.POST("/status/toggle", h.toggleAgentStatus)
	agent.GET("/zones", h.listZones)
	agent.PUT("/zones", h.setAgentZones)
	agent.GET("/orders/available", h.listAvailableOrders)
	agent.POST("/orders/:orderID/claim", h.claimOrder)
	agent.POST("/orders/:orderID/release", h.releaseOrder)
	agent.POST("/orders/:orderID/delivered", h.completeDelivery)
	agent.GET("/orders", h.listOrders)
	agent.GET("/earnings", h.getEarnings)
}
