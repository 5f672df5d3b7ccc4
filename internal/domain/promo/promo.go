// Package promo validates restaurant-issued discount codes against an order.
package promo

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage discounts a percentage of the subtotal, optionally
	// capped by MaxDiscount.
	KindPercentage Kind = "percentage"
	// KindFixed discounts a fixed amount, regardless of subtotal.
	KindFixed Kind = "fixed"
)

// Code is a restaurant-owned promo code. The code string is always stored
// upper-cased; Normalize maps candidate input to the same form.
type Code struct {
	RestaurantID uuid.UUID
	Code         string
	Discount     decimal.Decimal
	Kind         Kind
	MinOrder     decimal.Decimal
	// MaxDiscount caps percentage discounts when non-nil.
	MaxDiscount *decimal.Decimal
	Active      bool
	// ExpiresAt must be strictly in the future for the code to apply.
	ExpiresAt time.Time
	// UsageLimit of 0 means unlimited.
	UsageLimit int
	UsageCount int
}

// Applied is the outcome of a successful promo match: the discount amount and
// an instruction to consume one use of the matched code at order creation.
type Applied struct {
	Code     string
	Discount decimal.Decimal
}

// Normalize maps a candidate code to its canonical stored form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
