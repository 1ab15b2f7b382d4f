package coupon

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

// Table is a static enumeration of coupon codes, keyed by upper-case code.
type Table map[string]Coupon

// DefaultTable returns the built-in codes honoured for anonymous sessions.
func DefaultTable() Table {
	return Table{
		"KILLA10":  {Code: "KILLA10", Kind: KindPercentage, Value: decimal.NewFromInt(10), Description: "10% off your order"},
		"HEMAT20K": {Code: "HEMAT20K", Kind: KindFixed, Value: decimal.NewFromInt(20000), Description: "20000 off your order"},
		"ONGKIR5":  {Code: "ONGKIR5", Kind: KindPercentage, Value: decimal.NewFromInt(5), Description: "5% off your order"},
	}
}

// TableValidator validates codes against a static table, optionally backed
// by offline campaign code sets. It serves anonymous (Local mode) sessions;
// authenticated sessions validate remotely through the cart's server
// contract instead.
type TableValidator struct {
	table    Table
	offline  *CodeSet
	campaign Coupon
}

// NewTableValidator creates a TableValidator over the given table.
func NewTableValidator(table Table) *TableValidator {
	return &TableValidator{table: table}
}

// WithOfflineCodes attaches a bulk campaign code set. Codes present in the
// set but not in the table earn the campaign rule with their own code.
func (v *TableValidator) WithOfflineCodes(set *CodeSet, campaign Coupon) *TableValidator {
	v.offline = set
	v.campaign = campaign
	return v
}

// Validate performs a case-insensitive exact lookup. Unknown codes fail
// with ErrInvalidCoupon and cause no mutation anywhere.
func (v *TableValidator) Validate(_ context.Context, code string) (*Coupon, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, ErrInvalidCoupon
	}

	if c, ok := v.table[normalized]; ok {
		c.Code = normalized
		return &c, nil
	}

	if v.offline != nil && v.offline.Contains(normalized) {
		c := v.campaign
		c.Code = normalized
		return &c, nil
	}

	return nil, ErrInvalidCoupon
}
