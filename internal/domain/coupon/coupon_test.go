package coupon

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountFor(t *testing.T) {
	subtotal := decimal.NewFromInt(80000)

	tests := []struct {
		name   string
		coupon Coupon
		want   decimal.Decimal
	}{
		{
			name:   "percentage of subtotal",
			coupon: Coupon{Kind: KindPercentage, Value: decimal.NewFromInt(10)},
			want:   decimal.NewFromInt(8000),
		},
		{
			name:   "fixed amount below subtotal",
			coupon: Coupon{Kind: KindFixed, Value: decimal.NewFromInt(20000)},
			want:   decimal.NewFromInt(20000),
		},
		{
			name:   "fixed amount capped at subtotal",
			coupon: Coupon{Kind: KindFixed, Value: decimal.NewFromInt(999999)},
			want:   subtotal,
		},
		{
			name:   "unknown kind grants nothing",
			coupon: Coupon{Kind: Kind("mystery"), Value: decimal.NewFromInt(50)},
			want:   decimal.Zero,
		},
		{
			name:   "hundred percent",
			coupon: Coupon{Kind: KindPercentage, Value: decimal.NewFromInt(100)},
			want:   subtotal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.coupon.DiscountFor(subtotal)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestTableValidator_CaseInsensitive(t *testing.T) {
	v := NewTableValidator(DefaultTable())

	for _, code := range []string{"KILLA10", "killa10", "  Killa10 "} {
		c, err := v.Validate(context.Background(), code)
		require.NoError(t, err, code)
		assert.Equal(t, "KILLA10", c.Code)
		assert.Equal(t, KindPercentage, c.Kind)
	}
}

func TestTableValidator_UnknownCode(t *testing.T) {
	v := NewTableValidator(DefaultTable())

	_, err := v.Validate(context.Background(), "DOESNOTEXIST")
	require.ErrorIs(t, err, ErrInvalidCoupon)

	_, err = v.Validate(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidCoupon)
}

func TestTableValidator_NoFuzzyMatch(t *testing.T) {
	v := NewTableValidator(DefaultTable())

	_, err := v.Validate(context.Background(), "KILLA1")
	require.ErrorIs(t, err, ErrInvalidCoupon)

	_, err = v.Validate(context.Background(), "KILLA100")
	require.ErrorIs(t, err, ErrInvalidCoupon)
}
