package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuote(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		lines    []LineInput
		discount decimal.Decimal
		want     Quote
		wantErr  error
	}{
		{
			name: "no discount",
			lines: []LineInput{
				{UnitPrice: dec("120.00"), Quantity: 2},
				{UnitPrice: dec("60.00"), Quantity: 1},
			},
			discount: decimal.Zero,
			want: Quote{
				Subtotal:     dec("300.00"),
				DeliveryFee:  dec("50"),
				Tax:          dec("15.00"),
				Discount:     dec("0"),
				Total:        dec("365.00"),
				PointsEarned: 36,
			},
		},
		{
			name: "capped percentage discount",
			lines: []LineInput{
				{UnitPrice: dec("150.00"), Quantity: 2},
			},
			discount: dec("50.00"),
			want: Quote{
				Subtotal:     dec("300.00"),
				DeliveryFee:  dec("50"),
				Tax:          dec("15.00"),
				Discount:     dec("50.00"),
				Total:        dec("315.00"),
				PointsEarned: 31,
			},
		},
		{
			name: "fractional tax rounds to cents",
			lines: []LineInput{
				{UnitPrice: dec("33.33"), Quantity: 1},
			},
			discount: decimal.Zero,
			want: Quote{
				Subtotal:     dec("33.33"),
				DeliveryFee:  dec("50"),
				Tax:          dec("1.67"),
				Discount:     dec("0"),
				Total:        dec("85.00"),
				PointsEarned: 8,
			},
		},
		{
			name: "oversized fixed discount rejected",
			lines: []LineInput{
				{UnitPrice: dec("10.00"), Quantity: 1},
			},
			discount: dec("500.00"),
			wantErr:  ErrInvalidPricing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := policy.Quote(tt.lines, tt.discount)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			assert.True(t, tt.want.Subtotal.Equal(got.Subtotal), "subtotal: want %s got %s", tt.want.Subtotal, got.Subtotal)
			assert.True(t, tt.want.Tax.Equal(got.Tax), "tax: want %s got %s", tt.want.Tax, got.Tax)
			assert.True(t, tt.want.Total.Equal(got.Total), "total: want %s got %s", tt.want.Total, got.Total)
			assert.Equal(t, tt.want.PointsEarned, got.PointsEarned)

			// Total must always reconcile against its parts.
			recon := got.Subtotal.Add(got.DeliveryFee).Add(got.Tax).Sub(got.Discount)
			assert.True(t, recon.Equal(got.Total), "reconciliation: %s != %s", recon, got.Total)
		})
	}
}

func TestQuote_EmptyLines(t *testing.T) {
	// An empty quote is still well-formed; the empty-cart guard lives in the
	// order service, not here.
	got, err := DefaultPolicy().Quote(nil, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(got.Total))
}
