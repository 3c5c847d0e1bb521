package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/diewo77/invoicing/internal/apperr"
	"github.com/diewo77/invoicing/internal/lock"
	"github.com/diewo77/invoicing/internal/models"
	"github.com/diewo77/invoicing/internal/repository"
	"github.com/diewo77/invoicing/validation"
)

// InitializeInput is the header of a new invoice. A zero Date means today.
type InitializeInput struct {
	SupplierID     uint      `json:"supplier_id"`
	DocumentNumber string    `json:"document_number"`
	Date           time.Time `json:"date"`
}

// AddLineInput describes a line to add. BuyingPrice overrides the item price when set.
type AddLineInput struct {
	ItemID      uint             `json:"item_id"`
	BuyingPrice *decimal.Decimal `json:"buying_price,omitempty"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Discount    decimal.Decimal  `json:"discount"`
	Note        *string          `json:"note,omitempty"`
}

// InvoiceService owns the invoice lifecycle. Every mutation holds the invoice
// lock and runs in one store transaction; roll-ups are re-derived from the lines
// before each write.
type InvoiceService struct {
	store  repository.Store
	locker lock.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewInvoiceService(store repository.Store, locker lock.Locker, log zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		store:  store,
		locker: locker,
		log:    log.With().Str("service", "invoice").Logger(),
		now:    time.Now,
	}
}

// Initialize creates an empty draft for a supplier.
func (s *InvoiceService) Initialize(ctx context.Context, in InitializeInput) (*models.Invoice, error) {
	in.DocumentNumber = strings.TrimSpace(in.DocumentNumber)
	v := validation.Violations{}
	validation.RequiredID("supplier_id", in.SupplierID, v)
	validation.Required("document_number", in.DocumentNumber, v)
	validation.MaxLength("document_number", in.DocumentNumber, 100, v)
	if !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	date := in.Date
	if date.IsZero() {
		y, m, d := s.now().Date()
		date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	var inv *models.Invoice
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		sup, err := tx.GetSupplier(ctx, in.SupplierID)
		if err != nil {
			return err
		}
		existing, err := tx.FindInvoiceBySupplierAndDocumentNumber(ctx, in.SupplierID, in.DocumentNumber)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.ErrDuplicateDocumentNumber
		}
		inv = models.NewInvoice(sup.ID, in.DocumentNumber, date)
		if err := tx.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		inv.Supplier = sup
		inv.Lines = []models.InvoiceItem{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("invoice_id", inv.ID).Uint("supplier_id", inv.SupplierID).Str("document_number", inv.DocumentNumber).Msg("invoice initialized")
	return inv, nil
}

// AddLineItem snapshots an item onto a new line of a draft invoice.
func (s *InvoiceService) AddLineItem(ctx context.Context, invoiceID uint, in AddLineInput) (*models.Invoice, *models.InvoiceItem, error) {
	var added models.InvoiceItem
	inv, err := s.mutate(ctx, invoiceID, func(tx repository.Store, inv *models.Invoice) error {
		if in.ItemID == 0 {
			return apperr.ErrUnknownItem
		}
		item, err := tx.GetItem(ctx, in.ItemID)
		if err != nil {
			return err
		}
		if l, _ := inv.Line(item.ID); l != nil {
			return apperr.ErrDuplicateLine
		}
		price := item.Price
		if in.BuyingPrice != nil {
			price = *in.BuyingPrice
		}
		line, err := models.NewLine(inv.ID, item, price, in.Quantity, in.Discount, in.Note)
		if err != nil {
			return err
		}
		inv.Lines = append(inv.Lines, line)
		added = line
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if l, _ := inv.Line(added.ItemID); l != nil {
		added = *l
	}
	s.log.Info().Uint("invoice_id", invoiceID).Uint("item_id", added.ItemID).Str("total", inv.Total.StringFixed(2)).Msg("line added")
	return inv, &added, nil
}

// RemoveLineItem drops the line of itemID from a draft invoice.
func (s *InvoiceService) RemoveLineItem(ctx context.Context, invoiceID, itemID uint) (*models.Invoice, error) {
	inv, err := s.mutate(ctx, invoiceID, func(_ repository.Store, inv *models.Invoice) error {
		_, idx := inv.Line(itemID)
		if idx < 0 {
			return apperr.ErrLineNotFound
		}
		inv.Lines = append(inv.Lines[:idx], inv.Lines[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("invoice_id", invoiceID).Uint("item_id", itemID).Str("total", inv.Total.StringFixed(2)).Msg("line removed")
	return inv, nil
}

// Complete freezes a draft invoice. It cannot be undone.
func (s *InvoiceService) Complete(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	inv, err := s.mutate(ctx, invoiceID, func(_ repository.Store, inv *models.Invoice) error {
		if len(inv.Lines) == 0 {
			return apperr.ErrEmptyInvoice
		}
		now := s.now().UTC()
		inv.Status = models.InvoiceStatusCompleted
		inv.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("invoice_id", invoiceID).Str("total", inv.Total.StringFixed(2)).Msg("invoice completed")
	return inv, nil
}

// Delete removes a draft invoice and its lines.
func (s *InvoiceService) Delete(ctx context.Context, invoiceID uint) error {
	unlock, err := s.locker.Lock(ctx, lock.InvoiceKey(invoiceID))
	if err != nil {
		return err
	}
	defer unlock()

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoice(ctx, invoiceID, true)
		if err != nil {
			return err
		}
		if !inv.IsDraft() {
			return apperr.ErrInvoiceNotDraft
		}
		return tx.DeleteInvoice(ctx, invoiceID)
	})
	if err != nil {
		return err
	}
	s.log.Info().Uint("invoice_id", invoiceID).Msg("invoice deleted")
	return nil
}

// Get returns the invoice with its supplier and ordered lines.
func (s *InvoiceService) Get(ctx context.Context, invoiceID uint) (*models.Invoice, error) {
	return s.store.GetInvoice(ctx, invoiceID, false)
}

// List returns a page of invoice headers and the total match count.
func (s *InvoiceService) List(ctx context.Context, f repository.ListInvoicesFilter) ([]models.Invoice, int64, error) {
	if f.Status != "" && f.Status != models.InvoiceStatusDraft && f.Status != models.InvoiceStatusCompleted {
		return nil, 0, apperr.Invalid(validation.Violations{"status": "invalid"})
	}
	return s.store.ListInvoices(ctx, f)
}

// mutate loads a draft invoice under lock, applies fn, recomputes the roll-ups
// and writes the invoice with its lines. Nothing is written if fn fails.
func (s *InvoiceService) mutate(ctx context.Context, invoiceID uint, fn func(tx repository.Store, inv *models.Invoice) error) (*models.Invoice, error) {
	unlock, err := s.locker.Lock(ctx, lock.InvoiceKey(invoiceID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *models.Invoice
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		inv, err := tx.GetInvoice(ctx, invoiceID, true)
		if err != nil {
			return err
		}
		if !inv.IsDraft() {
			return apperr.ErrInvoiceNotDraft
		}
		if err := fn(tx, inv); err != nil {
			return err
		}
		inv.Recompute()
		if err := tx.SaveInvoiceWithLines(ctx, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
