package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	save20 := Code{
		Code:        "SAVE20",
		Discount:    dec("20"),
		Kind:        KindPercentage,
		MinOrder:    dec("200"),
		MaxDiscount: decPtr("50"),
		Active:      true,
		ExpiresAt:   future,
	}

	tests := []struct {
		name      string
		codes     []Code
		candidate string
		subtotal  decimal.Decimal
		wantOK    bool
		wantCode  string
		wantAmt   decimal.Decimal
	}{
		{
			name:      "percentage capped at max discount",
			codes:     []Code{save20},
			candidate: "SAVE20",
			subtotal:  dec("300"),
			wantOK:    true,
			wantCode:  "SAVE20",
			wantAmt:   dec("50"), // min(300*0.20, 50)
		},
		{
			name:      "percentage below cap",
			codes:     []Code{save20},
			candidate: "save20",
			subtotal:  dec("200"),
			wantOK:    true,
			wantCode:  "SAVE20",
			wantAmt:   dec("40"),
		},
		{
			name: "expired code silently ignored",
			codes: []Code{func() Code {
				c := save20
				c.ExpiresAt = past
				return c
			}()},
			candidate: "SAVE20",
			subtotal:  dec("300"),
			wantOK:    false,
		},
		{
			name: "inactive code silently ignored",
			codes: []Code{func() Code {
				c := save20
				c.Active = false
				return c
			}()},
			candidate: "SAVE20",
			subtotal:  dec("300"),
			wantOK:    false,
		},
		{
			name:      "subtotal below minimum order",
			codes:     []Code{save20},
			candidate: "SAVE20",
			subtotal:  dec("150"),
			wantOK:    false,
		},
		{
			name:      "unknown code",
			codes:     []Code{save20},
			candidate: "NOPE",
			subtotal:  dec("300"),
			wantOK:    false,
		},
		{
			name:      "empty candidate",
			codes:     []Code{save20},
			candidate: "",
			subtotal:  dec("300"),
			wantOK:    false,
		},
		{
			name: "fixed discount not clamped to subtotal",
			codes: []Code{{
				Code:      "FLAT100",
				Discount:  dec("100"),
				Kind:      KindFixed,
				Active:    true,
				ExpiresAt: future,
			}},
			candidate: "flat100",
			subtotal:  dec("60"),
			wantOK:    true,
			wantCode:  "FLAT100",
			wantAmt:   dec("100"),
		},
		{
			name: "usage limit exhausted",
			codes: []Code{{
				Code:       "LIMITED",
				Discount:   dec("10"),
				Kind:       KindPercentage,
				Active:     true,
				ExpiresAt:  future,
				UsageLimit: 5,
				UsageCount: 5,
			}},
			candidate: "LIMITED",
			subtotal:  dec("300"),
			wantOK:    false,
		},
		{
			name: "zero usage limit means unlimited",
			codes: []Code{{
				Code:       "FOREVER",
				Discount:   dec("10"),
				Kind:       KindPercentage,
				Active:     true,
				ExpiresAt:  future,
				UsageCount: 9999,
			}},
			candidate: "FOREVER",
			subtotal:  dec("100"),
			wantOK:    true,
			wantCode:  "FOREVER",
			wantAmt:   dec("10"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Validate(tt.codes, tt.candidate, tt.subtotal, now)
			if !tt.wantOK {
				assert.False(t, ok)
				assert.Nil(t, got)
				return
			}

			require.True(t, ok)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.True(t, tt.wantAmt.Equal(got.Discount),
				"expected discount %s, got %s", tt.wantAmt, got.Discount)
		})
	}
}
