// Package pricing computes order financials from frozen line-item snapshots.
package pricing

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidPricing is returned when the computed total would be negative,
// e.g. a fixed discount larger than the whole order.
var ErrInvalidPricing = errors.New("invalid pricing: total is negative")

// Policy holds the pricing constants applied to every order. Values are
// loaded from configuration; DefaultPolicy provides the stock rates.
type Policy struct {
	// DeliveryFee is the flat per-order delivery charge.
	DeliveryFee decimal.Decimal
	// TaxRate is the fraction of the subtotal charged as tax.
	TaxRate decimal.Decimal
	// PointsRate is the number of total-currency units per loyalty point.
	PointsRate decimal.Decimal
	// DeliveryEarning is credited to the agent on each completed delivery.
	DeliveryEarning decimal.Decimal
	// EstimatedDelivery is added to the creation time as the delivery ETA.
	EstimatedDelivery time.Duration
}

// DefaultPolicy returns the stock pricing policy: flat 50 delivery fee,
// 5% tax, one point per 10 currency units, 30 per delivery, 40 minute ETA.
func DefaultPolicy() Policy {
	return Policy{
		DeliveryFee:       decimal.NewFromInt(50),
		TaxRate:           decimal.NewFromFloat(0.05),
		PointsRate:        decimal.NewFromInt(10),
		DeliveryEarning:   decimal.NewFromInt(30),
		EstimatedDelivery: 40 * time.Minute,
	}
}

// LineInput is a single priced line for quoting: the unit price snapshot
// taken at order time and the quantity.
type LineInput struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote is the complete financial breakdown of an order. Total always equals
// Subtotal + DeliveryFee + Tax - Discount; the quote is computed once at
// creation and never recomputed.
type Quote struct {
	Subtotal     decimal.Decimal
	DeliveryFee  decimal.Decimal
	Tax          decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	PointsEarned int
}

// Quote prices the given lines with an already-resolved discount amount.
// It is a pure function of its inputs.
func (p Policy) Quote(lines []LineInput, discount decimal.Decimal) (Quote, error) {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(p.TaxRate).Round(2)
	discount = discount.Round(2)

	total := subtotal.Add(p.DeliveryFee).Add(tax).Sub(discount)
	if total.IsNegative() {
		return Quote{}, errors.Wrapf(ErrInvalidPricing, "total %s", total)
	}

	return Quote{
		Subtotal:     subtotal,
		DeliveryFee:  p.DeliveryFee,
		Tax:          tax,
		Discount:     discount,
		Total:        total,
		PointsEarned: int(total.Div(p.PointsRate).IntPart()),
	}, nil
}
