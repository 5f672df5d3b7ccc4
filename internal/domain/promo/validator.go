package promo

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Validate matches a candidate code against a restaurant's promo set and
// computes the discount for the given subtotal.
//
// A code applies only when it matches case-insensitively, is active, expires
// strictly in the future, the subtotal meets the minimum order, and the usage
// limit (if any) is not exhausted. When any condition fails the order simply
// proceeds without a discount: an invalid or expired code is silently
// ignored, never an error. The usage-limit check here is best-effort; the
// authoritative guard is the conditional usage increment at order creation.
func Validate(codes []Code, candidate string, subtotal decimal.Decimal, now time.Time) (*Applied, bool) {
	candidate = Normalize(candidate)
	if candidate == "" {
		return nil, false
	}

	for _, c := range codes {
		if c.Code != candidate {
			continue
		}
		if !c.Active || !c.ExpiresAt.After(now) {
			return nil, false
		}
		if subtotal.LessThan(c.MinOrder) {
			return nil, false
		}
		if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
			return nil, false
		}

		return &Applied{
			Code:     c.Code,
			Discount: discountFor(c, subtotal),
		}, true
	}

	return nil, false
}

// discountFor computes the discount amount for a matched code. Percentage
// discounts are clamped to MaxDiscount when set; fixed discounts are taken
// as-is (the pricing calculator rejects a negative total downstream).
func discountFor(c Code, subtotal decimal.Decimal) decimal.Decimal {
	switch c.Kind {
	case KindPercentage:
		amount := subtotal.Mul(c.Discount).Div(hundred).Round(2)
		if c.MaxDiscount != nil && amount.GreaterThan(*c.MaxDiscount) {
			amount = *c.MaxDiscount
		}
		return amount
	case KindFixed:
		return c.Discount.Round(2)
	default:
		return decimal.Zero
	}
}
