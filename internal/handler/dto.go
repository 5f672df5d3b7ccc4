package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/xenking/chowline/internal/domain/cart"
	"github.com/xenking/chowline/internal/domain/delivery"
	"github.com/xenking/chowline/internal/domain/order"
)

type cartItemResponse struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Quantity     int       `json:"quantity"`
	Instructions string    `json:"instructions,omitempty"`
}

type cartResponse struct {
	RestaurantID uuid.UUID          `json:"restaurant_id"`
	Items        []cartItemResponse `json:"items"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toCartResponse(c *cart.Cart) *cartResponse {
	if c == nil {
		return nil
	}
	return &cartResponse{
		RestaurantID: c.RestaurantID,
		Items: lo.Map(c.Items, func(it cart.Item, _ int) cartItemResponse {
			return cartItemResponse{
				MenuItemID:   it.MenuItemID,
				Quantity:     it.Quantity,
				Instructions: it.Instructions,
			}
		}),
		UpdatedAt: c.UpdatedAt,
	}
}

type promoResponse struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

type historyResponse struct {
	Status string    `json:"status"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

type orderResponse struct {
	ID           uuid.UUID        `json:"id"`
	CustomerID   uuid.UUID        `json:"customer_id"`
	RestaurantID uuid.UUID        `json:"restaurant_id"`
	Items        []order.LineItem `json:"items"`

	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Promo       *promoResponse  `json:"promo,omitempty"`
	Total       decimal.Decimal `json:"total"`

	Address       order.Address `json:"delivery_address"`
	Status        string        `json:"status"`
	AssignedAgent *uuid.UUID    `json:"assigned_agent,omitempty"`
	PaymentMethod string        `json:"payment_method"`
	PaymentStatus string        `json:"payment_status"`

	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	ActualDelivery    *time.Time `json:"actual_delivery,omitempty"`
	PointsEarned      int        `json:"points_earned"`

	History   []historyResponse `json:"history,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func toOrderResponse(o *order.Order) *orderResponse {
	resp := &orderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		RestaurantID: o.RestaurantID,
		Items:        o.Items,

		Subtotal:    o.Subtotal,
		DeliveryFee: o.DeliveryFee,
		Tax:         o.Tax,
		Discount:    o.Discount,
		Total:       o.Total,

		Address:       o.Address,
		Status:        string(o.Status),
		AssignedAgent: o.AssignedAgent,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),

		EstimatedDelivery: o.EstimatedDelivery,
		ActualDelivery:    o.ActualDelivery,
		PointsEarned:      o.PointsEarned,

		History: lo.Map(o.History, func(h order.HistoryEntry, _ int) historyResponse {
			return historyResponse{Status: string(h.Status), Note: h.Note, At: h.At}
		}),
		CreatedAt: o.CreatedAt,
	}
	if o.Promo != nil {
		resp.Promo = &promoResponse{Code: o.Promo.Code, Discount: o.Promo.Discount}
	}
	return resp
}

func toOrderResponses(orders []order.Order) []*orderResponse {
	return lo.Map(orders, func(o order.Order, _ int) *orderResponse {
		return toOrderResponse(&o)
	})
}

type zoneResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	City string    `json:"city"`
}

func toZoneResponses(zones []delivery.Zone) []zoneResponse {
	return lo.Map(zones, func(z delivery.Zone, _ int) zoneResponse {
		return zoneResponse{ID: z.ID, Name: z.Name, City: z.City}
	})
}

type earningsResponse struct {
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	TotalDeliveries int             `json:"total_deliveries"`
	TodayDeliveries int             `json:"today_deliveries"`
}
