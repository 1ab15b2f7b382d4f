package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported coupon discount strategies.
type Kind string

const (
	// KindPercentage applies a percentage-based discount to the subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed applies a fixed monetary discount capped at the subtotal.
	KindFixed Kind = "fixed"
)

// ErrInvalidCoupon is returned when a coupon code is not known to any
// validation source. Unknown codes are a hard failure: there is no partial
// or fuzzy matching.
var ErrInvalidCoupon = errors.New("invalid coupon code")

// Coupon is an active discount attached to a cart. At most one coupon is
// active at a time; applying a new one replaces any existing one.
type Coupon struct {
	Code        string
	Kind        Kind
	Value       decimal.Decimal
	Description string
}

var hundred = decimal.NewFromInt(100)

// DiscountFor computes the discount this coupon grants against the given
// subtotal. Percentage coupons take their share of the subtotal; fixed
// coupons are capped at the subtotal so the total can never go negative.
func (c Coupon) DiscountFor(subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Kind {
	case KindPercentage:
		amount = subtotal.Mul(c.Value).Div(hundred)
	case KindFixed:
		amount = decimal.Min(c.Value, subtotal)
	default:
		return decimal.Zero
	}
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}

// Validator resolves a user-supplied code into a coupon. Implementations
// must treat codes case-insensitively and return ErrInvalidCoupon for
// unknown codes.
type Validator interface {
	Validate(ctx context.Context, code string) (*Coupon, error)
}
