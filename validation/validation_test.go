package validation

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRequired(t *testing.T) {
	v := Violations{}
	Required("name", "  ", v)
	Required("code", "SUP001", v)
	if got := v["name"]; got != "required" {
		t.Errorf("name = %q, want required", got)
	}
	if _, ok := v["code"]; ok {
		t.Errorf("code should not be violated")
	}
}

func TestDecimalValidators(t *testing.T) {
	tests := []struct {
		name  string
		check func(Violations)
		want  string
	}{
		{"positive zero", func(v Violations) { PositiveDecimal("f", decimal.Zero, v) }, "must_be_positive"},
		{"positive ok", func(v Violations) { PositiveDecimal("f", decimal.NewFromInt(3), v) }, ""},
		{"non negative zero", func(v Violations) { NonNegativeDecimal("f", decimal.Zero, v) }, ""},
		{"non negative below", func(v Violations) { NonNegativeDecimal("f", decimal.NewFromFloat(-0.01), v) }, "must_not_be_negative"},
		{"range inside", func(v Violations) { RangeDecimal("f", decimal.NewFromFloat(0.5), decimal.Zero, decimal.NewFromInt(1), v) }, ""},
		{"range upper bound", func(v Violations) { RangeDecimal("f", decimal.NewFromInt(1), decimal.Zero, decimal.NewFromInt(1), v) }, ""},
		{"range above", func(v Violations) { RangeDecimal("f", decimal.NewFromFloat(1.1), decimal.Zero, decimal.NewFromInt(1), v) }, "out_of_range"},
		{"int range above", func(v Violations) { RangeInt("f", 101, 0, 100, v) }, "out_of_range"},
		{"int range ok", func(v Violations) { RangeInt("f", 100, 0, 100, v) }, ""},
		{"scale within", func(v Violations) { MaxScale("f", decimal.RequireFromString("1.2345"), 4, v) }, ""},
		{"scale trailing zeros", func(v Violations) { MaxScale("f", decimal.RequireFromString("1.230000"), 4, v) }, ""},
		{"scale beyond", func(v Violations) { MaxScale("f", decimal.RequireFromString("1.23456"), 4, v) }, "too_many_decimals"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Violations{}
			tt.check(v)
			if got := v["f"]; got != tt.want {
				t.Errorf("violation = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViolationsFields(t *testing.T) {
	v := Violations{"unit": "required", "name": "required", "price": "must_not_be_negative"}
	want := []string{"name", "price", "unit"}
	if got := v.Fields(); !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}
	if v.Empty() {
		t.Errorf("Empty() = true, want false")
	}
}
