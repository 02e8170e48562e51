// Package pricing derives display amounts from server-computed money fields.
//
// The server owns all price and discount logic. This package only subtracts,
// rounds to cents and flags data that violates the non-negative invariants.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/partnest/sparesync/pkg/errors"
)

// Places is the number of decimal places every displayed amount is rounded to.
const Places int32 = 2

var hundred = decimal.NewFromInt(100)

// Amount is a rounded, non-negative money value. Clamped is set when the raw
// difference was negative and had to be raised to zero, which means the
// upstream data is inconsistent.
type Amount struct {
	Value   decimal.Decimal
	Clamped bool
}

// String renders the amount with exactly two decimals.
func (a Amount) String() string {
	return a.Value.StringFixed(Places)
}

// Net subtracts discount from gross, rounds half away from zero to cents and
// clamps negative results to zero.
func Net(gross decimal.Decimal, discount decimal.NullDecimal) Amount {
	d := decimal.Zero
	if discount.Valid {
		d = discount.Decimal
	}
	net := gross.Sub(d).Round(Places)
	if net.IsNegative() {
		return Amount{Value: decimal.Zero, Clamped: true}
	}
	return Amount{Value: net}
}

// NetLine computes a line's payable amount from wire strings. A nil or blank
// discount counts as zero.
func NetLine(subTotal string, subTotalDiscount *string) (Amount, error) {
	gross, err := parse("subTotal", subTotal)
	if err != nil {
		return Amount{}, err
	}
	discount, err := parseOptional("subTotalDiscount", subTotalDiscount)
	if err != nil {
		return Amount{}, err
	}
	return Net(gross, discount), nil
}

// NetTotal is NetLine at cart or order granularity.
func NetTotal(totalAmount, discountAmount string) (Amount, error) {
	gross, err := parse("totalAmount", totalAmount)
	if err != nil {
		return Amount{}, err
	}
	discount, err := parseOptional("discountAmount", &discountAmount)
	if err != nil {
		return Amount{}, err
	}
	return Net(gross, discount), nil
}

// DiscountedUnitPrice returns price × (1 − pct/100) rounded to cents. pct must lie in [0, 100].
func DiscountedUnitPrice(price, discountPercent decimal.Decimal) (decimal.Decimal, error) {
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "discount percent must be between 0 and 100").WithDetails(map[string]any{
			"discount": discountPercent.String(),
		})
	}
	factor := hundred.Sub(discountPercent).Div(hundred)
	return price.Mul(factor).Round(Places), nil
}

func parse(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid decimal amount").WithDetails(map[string]any{
			"field": field,
			"value": raw,
		})
	}
	return value, nil
}

func parseOptional(field string, raw *string) (decimal.NullDecimal, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := parse(field, *raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(value), nil
}

// NetOf is Net for already-parsed totals where the discount is always present.
func NetOf(total, discount decimal.Decimal) Amount {
	return Net(total, decimal.NewNullDecimal(discount))
}
