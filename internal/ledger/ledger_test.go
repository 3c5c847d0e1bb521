package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoicing/internal/apperr"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeLine(t *testing.T) {
	tests := []struct {
		name                                 string
		price, qty, discount, rate           string
		wantSelling, wantSub, wantTax, wantT string
	}{
		{"widget no discount", "10.00", "10", "0", "20", "10", "100", "20", "120"},
		{"ten percent discount", "10.00", "5", "0.1", "20", "9", "45", "9", "54"},
		{"full discount", "10.00", "3", "1", "20", "0", "0", "0", "0"},
		{"zero tax", "12.50", "2", "0", "0", "12.5", "25", "0", "25"},
		{"fractional quantity", "4.00", "2.5", "0", "10", "4", "10", "1", "11"},
		{"rounded once at the end", "0.333", "3", "0", "0", "0.33", "1", "0", "1"},
		{"half to even down", "0.125", "1", "0", "0", "0.12", "0.12", "0", "0.12"},
		{"half to even up", "0.135", "1", "0", "0", "0.14", "0.14", "0", "0.14"},
		{"tax rounded half even", "0.25", "1", "0", "10", "0.25", "0.25", "0.02", "0.27"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeLine(d(tt.price), d(tt.qty), d(tt.discount), d(tt.rate))
			require.NoError(t, err)
			assert.True(t, got.SellingPrice.Equal(d(tt.wantSelling)), "selling = %s", got.SellingPrice)
			assert.True(t, got.Subtotal.Equal(d(tt.wantSub)), "subtotal = %s", got.Subtotal)
			assert.True(t, got.TaxAmount.Equal(d(tt.wantTax)), "tax = %s", got.TaxAmount)
			assert.True(t, got.Total.Equal(d(tt.wantT)), "total = %s", got.Total)
		})
	}
}

func TestComputeLineRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name                       string
		price, qty, discount, rate string
		field                      string
	}{
		{"zero quantity", "10", "0", "0", "20", "quantity"},
		{"negative quantity", "10", "-1", "0", "20", "quantity"},
		{"discount above one", "10", "1", "1.01", "20", "discount"},
		{"negative discount", "10", "1", "-0.1", "20", "discount"},
		{"negative price", "-0.01", "1", "0", "20", "buying_price"},
		{"negative tax rate", "10", "1", "0", "-5", "tax_rate"},
		{"price beyond stored scale", "1.23456", "1", "0", "20", "buying_price"},
		{"quantity beyond stored scale", "10", "0.00001", "0", "20", "quantity"},
		{"discount beyond stored scale", "10", "1", "0.33333", "20", "discount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeLine(d(tt.price), d(tt.qty), d(tt.discount), d(tt.rate))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrInvalidLineInput))
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Contains(t, e.Violations, tt.field)
		})
	}
}

func TestComputeLineTotalIsSubtotalPlusTax(t *testing.T) {
	prices := []string{"0", "0.01", "0.99", "1.005", "10", "19.99", "123.456"}
	quantities := []string{"0.001", "1", "3", "7.5", "1000"}
	discounts := []string{"0", "0.05", "0.333", "0.5", "1"}
	rates := []string{"0", "7", "10", "19", "20", "100"}
	for _, p := range prices {
		for _, q := range quantities {
			for _, disc := range discounts {
				for _, r := range rates {
					lt, err := ComputeLine(d(p), d(q), d(disc), d(r))
					require.NoError(t, err)
					if !lt.Total.Equal(lt.Subtotal.Add(lt.TaxAmount)) {
						t.Fatalf("p=%s q=%s d=%s r=%s: total %s != %s + %s", p, q, disc, r, lt.Total, lt.Subtotal, lt.TaxAmount)
					}
					unrounded := d(p).Mul(decimal.NewFromInt(1).Sub(d(disc))).Mul(d(q))
					if diff := lt.Subtotal.Sub(unrounded).Abs(); diff.GreaterThan(d("0.005")) {
						t.Fatalf("p=%s q=%s d=%s: subtotal %s drifts from %s", p, q, disc, lt.Subtotal, unrounded)
					}
				}
			}
		}
	}
}

func TestRollup(t *testing.T) {
	a, err := ComputeLine(d("10"), d("10"), d("0"), d("20"))
	require.NoError(t, err)
	b, err := ComputeLine(d("10"), d("5"), d("0.1"), d("20"))
	require.NoError(t, err)

	got := Rollup([]LineTotals{a, b})
	assert.True(t, got.Subtotal.Equal(d("145")), "subtotal = %s", got.Subtotal)
	assert.True(t, got.TaxAmount.Equal(d("29")), "tax = %s", got.TaxAmount)
	assert.True(t, got.Total.Equal(d("174")), "total = %s", got.Total)

	empty := Rollup(nil)
	assert.True(t, empty.Subtotal.IsZero())
	assert.True(t, empty.TaxAmount.IsZero())
	assert.True(t, empty.Total.IsZero())
}
