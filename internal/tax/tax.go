package tax

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/rbhandari/attira-backend/pkg/errors"
)

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)
var two = decimal.NewFromInt(2)

// Breakdown is the GST decomposition of a tax-inclusive amount. All values
// keep full precision; callers round once when aggregating into totals.
type Breakdown struct {
	TaxableValue decimal.Decimal
	GSTAmount    decimal.Decimal
	CGSTAmount   decimal.Decimal
	SGSTAmount   decimal.Decimal
}

// Decompose splits a tax-inclusive gross amount into its taxable value and
// GST components. Catalog prices already include GST, so the taxable value is
// gross / (1 + rate/100) and the tax is the remainder. CGST and SGST each
// carry half of the tax; SGST absorbs any division remainder so the two
// halves always sum back to the full GST amount.
func Decompose(gross decimal.Decimal, gstPercent decimal.Decimal) (Breakdown, error) {
	if gross.IsNegative() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "gross amount cannot be negative")
	}
	if gstPercent.IsNegative() || gstPercent.GreaterThanOrEqual(hundred) {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "gst percent must be in [0, 100)")
	}

	if gstPercent.IsZero() {
		return Breakdown{
			TaxableValue: gross,
			GSTAmount:    decimal.Zero,
			CGSTAmount:   decimal.Zero,
			SGSTAmount:   decimal.Zero,
		}, nil
	}

	divisor := one.Add(gstPercent.Div(hundred))
	taxable := gross.Div(divisor)
	gst := gross.Sub(taxable)
	cgst := gst.Div(two)
	sgst := gst.Sub(cgst)

	return Breakdown{
		TaxableValue: taxable,
		GSTAmount:    gst,
		CGSTAmount:   cgst,
		SGSTAmount:   sgst,
	}, nil
}

// DecomposeLine decomposes a line of qty units at the given tax-inclusive
// unit price.
func DecomposeLine(unitPrice decimal.Decimal, qty int, gstPercent decimal.Decimal) (Breakdown, error) {
	if qty <= 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	gross := unitPrice.Mul(decimal.NewFromInt(int64(qty)))
	return Decompose(gross, gstPercent)
}
