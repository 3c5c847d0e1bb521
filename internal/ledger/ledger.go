// Package ledger holds the per-line and per-invoice arithmetic of supplier invoices.
//
// Intermediate values are kept at full decimal precision; rounding to the currency
// precision happens once, on the values that are stored.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/diewo77/invoicing/internal/apperr"
	"github.com/diewo77/invoicing/validation"
)

// Precision is the number of decimal places kept on monetary amounts.
const Precision int32 = 2

// StoredScale is the scale of the decimal(18,4) columns. Inputs with more
// decimal places would be silently rounded by the database.
const StoredScale int32 = 4

// LineTotals are the monetary fields of a single invoice line.
type LineTotals struct {
	SellingPrice decimal.Decimal
	Subtotal     decimal.Decimal
	TaxAmount    decimal.Decimal
	Total        decimal.Decimal
}

// Totals are the roll-ups of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ValidateLine reports the violations of a line input without computing anything.
func ValidateLine(buyingPrice, quantity, discount, taxRate decimal.Decimal) validation.Violations {
	v := validation.Violations{}
	validation.MaxScale("buying_price", buyingPrice, StoredScale, v)
	validation.MaxScale("quantity", quantity, StoredScale, v)
	validation.MaxScale("discount", discount, StoredScale, v)
	validation.NonNegativeDecimal("buying_price", buyingPrice, v)
	validation.PositiveDecimal("quantity", quantity, v)
	validation.RangeDecimal("discount", discount, decimal.Zero, decimal.NewFromInt(1), v)
	validation.NonNegativeDecimal("tax_rate", taxRate, v)
	return v
}

// ComputeLine derives selling price, subtotal, tax and total of a line.
// taxRate is a percentage (20 means 20%), discount a fraction in [0,1].
func ComputeLine(buyingPrice, quantity, discount, taxRate decimal.Decimal) (LineTotals, error) {
	if v := ValidateLine(buyingPrice, quantity, discount, taxRate); !v.Empty() {
		return LineTotals{}, apperr.ErrInvalidLineInput.WithViolations(v)
	}
	selling := buyingPrice.Mul(decimal.NewFromInt(1).Sub(discount))
	subtotal := selling.Mul(quantity)
	tax := subtotal.Mul(taxRate).Shift(-2)

	lt := LineTotals{
		SellingPrice: round(selling),
		Subtotal:     round(subtotal),
		TaxAmount:    round(tax),
	}
	lt.Total = lt.Subtotal.Add(lt.TaxAmount)
	return lt, nil
}

// Rollup re-derives invoice totals from the given lines.
func Rollup(lines []LineTotals) Totals {
	t := Totals{Subtotal: decimal.Zero, TaxAmount: decimal.Zero}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.Subtotal)
		t.TaxAmount = t.TaxAmount.Add(l.TaxAmount)
	}
	t.Total = t.Subtotal.Add(t.TaxAmount)
	return t
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(Precision)
}
