package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog article that can be put on invoice lines.
type Item struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string          `gorm:"size:255;not null" json:"name"`
	Price decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	// TaxRate is an integer percentage, e.g. 20 for 20%.
	TaxRate int    `gorm:"not null;default:0" json:"tax_rate"`
	Unit    string `gorm:"size:50;not null" json:"unit"`
}

// PriceWithTax returns the unit price including tax, unrounded. Callers round for display.
func (i *Item) PriceWithTax() decimal.Decimal {
	return i.Price.Add(i.Price.Mul(decimal.NewFromInt(int64(i.TaxRate))).Shift(-2))
}
