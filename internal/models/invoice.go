package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/diewo77/invoicing/internal/ledger"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusCompleted InvoiceStatus = "completed"
)

// Invoice is a supplier invoice and the root of its line ledger.
//
// Subtotal, TaxAmount and Total are derived from Lines and only written by Recompute.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SupplierID     uint      `gorm:"not null;uniqueIndex:idx_invoice_supplier_document,priority:1" json:"supplier_id"`
	Supplier       *Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	DocumentNumber string    `gorm:"size:100;not null;uniqueIndex:idx_invoice_supplier_document,priority:2" json:"document_number"`
	Date           time.Time `gorm:"not null" json:"date"`

	Status      InvoiceStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	Subtotal  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"subtotal"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	Total     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total"`

	// Lines is omitted when empty; list headers never load it.
	Lines []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
}

// NewInvoice returns an empty draft with zero totals.
func NewInvoice(supplierID uint, documentNumber string, date time.Time) *Invoice {
	inv := &Invoice{
		SupplierID:     supplierID,
		DocumentNumber: documentNumber,
		Date:           date,
		Status:         InvoiceStatusDraft,
	}
	inv.Recompute()
	return inv
}

// IsDraft returns true if the invoice is still a draft.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsCompleted returns true once the invoice has been completed.
func (i *Invoice) IsCompleted() bool {
	return i.Status == InvoiceStatusCompleted
}

// Line returns the line for itemID and its index, or nil and -1.
func (i *Invoice) Line(itemID uint) (*InvoiceItem, int) {
	for idx := range i.Lines {
		if i.Lines[idx].ItemID == itemID {
			return &i.Lines[idx], idx
		}
	}
	return nil, -1
}

// Recompute re-derives the roll-ups from the current lines.
func (i *Invoice) Recompute() {
	totals := make([]ledger.LineTotals, 0, len(i.Lines))
	for _, l := range i.Lines {
		totals = append(totals, l.Totals())
	}
	t := ledger.Rollup(totals)
	i.Subtotal = t.Subtotal
	i.TaxAmount = t.TaxAmount
	i.Total = t.Total
}

// InvoiceItem is a line of an invoice. Name, Unit, TaxRate and BuyingPrice are
// copied from the item when the line is added and never follow later item edits.
type InvoiceItem struct {
	InvoiceID uint      `gorm:"primaryKey;autoIncrement:false" json:"invoice_id"`
	ItemID    uint      `gorm:"primaryKey;autoIncrement:false;index" json:"item_id"`
	CreatedAt time.Time `json:"created_at"`

	// Snapshot of the item
	Name        string          `gorm:"size:255;not null" json:"name"`
	Unit        string          `gorm:"size:50;not null" json:"unit"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_rate"`
	BuyingPrice decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"buying_price"`

	Discount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	Quantity decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`

	SellingPrice decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"selling_price"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TaxAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"tax_amount"`
	Total        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`

	Note *string `gorm:"type:text" json:"note,omitempty"`

	// Position keeps the order in which lines were added.
	Position int `gorm:"not null;default:0" json:"position"`
}

// NewLine snapshots item onto a new line and computes its totals.
// buyingPrice is the item's price unless the caller overrides it.
func NewLine(invoiceID uint, item *Item, buyingPrice, quantity, discount decimal.Decimal, note *string) (InvoiceItem, error) {
	rate := decimal.NewFromInt(int64(item.TaxRate))
	lt, err := ledger.ComputeLine(buyingPrice, quantity, discount, rate)
	if err != nil {
		return InvoiceItem{}, err
	}
	return InvoiceItem{
		InvoiceID:    invoiceID,
		ItemID:       item.ID,
		Name:         item.Name,
		Unit:         item.Unit,
		TaxRate:      rate,
		BuyingPrice:  buyingPrice,
		Discount:     discount,
		Quantity:     quantity,
		SellingPrice: lt.SellingPrice,
		Subtotal:     lt.Subtotal,
		TaxAmount:    lt.TaxAmount,
		Total:        lt.Total,
		Note:         note,
	}, nil
}

// Totals returns the stored monetary fields of the line.
func (item *InvoiceItem) Totals() ledger.LineTotals {
	return ledger.LineTotals{
		SellingPrice: item.SellingPrice,
		Subtotal:     item.Subtotal,
		TaxAmount:    item.TaxAmount,
		Total:        item.Total,
	}
}
