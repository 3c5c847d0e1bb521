// Package repository persists the catalog and the invoice aggregate with gorm.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/invoicing/internal/apperr"
	"github.com/diewo77/invoicing/internal/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListFilter pages and filters catalog listings.
type ListFilter struct {
	Query  string
	Limit  int
	Offset int
}

// ListInvoicesFilter pages and filters invoice listings.
type ListInvoicesFilter struct {
	SupplierID uint
	Status     models.InvoiceStatus
	Limit      int
	Offset     int
}

// Store is the persistence boundary of the services. A Store obtained inside
// WithinTx runs every call on that transaction.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Invoices
	GetInvoice(ctx context.Context, id uint, forUpdate bool) (*models.Invoice, error)
	FindInvoiceBySupplierAndDocumentNumber(ctx context.Context, supplierID uint, documentNumber string) (*models.Invoice, error)
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	SaveInvoiceWithLines(ctx context.Context, inv *models.Invoice) error
	DeleteInvoice(ctx context.Context, id uint) error
	ListInvoices(ctx context.Context, f ListInvoicesFilter) ([]models.Invoice, int64, error)

	// Company
	GetCompany(ctx context.Context) (*models.Company, error)
	FindCompanyByCode(ctx context.Context, code string) (*models.Company, error)
	SaveCompany(ctx context.Context, c *models.Company) error

	// Items
	GetItem(ctx context.Context, id uint) (*models.Item, error)
	ListItems(ctx context.Context, f ListFilter) ([]models.Item, int64, error)
	SaveItem(ctx context.Context, it *models.Item) error
	DeleteItem(ctx context.Context, id uint) error
	ItemOnCompletedInvoice(ctx context.Context, itemID uint) (bool, error)

	// Suppliers
	GetSupplier(ctx context.Context, id uint) (*models.Supplier, error)
	FindSupplierByCode(ctx context.Context, code string) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, f ListFilter) ([]models.Supplier, int64, error)
	SaveSupplier(ctx context.Context, s *models.Supplier) error
	DeleteSupplier(ctx context.Context, id uint) error
	SupplierHasInvoices(ctx context.Context, supplierID uint) (bool, error)
}

type gormStore struct {
	db *gorm.DB
}

// New returns a Store backed by db.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// rowLock adds FOR UPDATE on dialects that support row locks.
func (s *gormStore) rowLock(q *gorm.DB) *gorm.DB {
	if s.db.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// drivers without error translation
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func notFound(err error, target *apperr.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

func (s *gormStore) GetInvoice(ctx context.Context, id uint, forUpdate bool) (*models.Invoice, error) {
	var inv models.Invoice
	q := s.db.WithContext(ctx)
	if forUpdate {
		q = s.rowLock(q)
	}
	err := q.Preload("Supplier").
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		First(&inv, id).Error
	if err != nil {
		return nil, notFound(err, apperr.ErrInvoiceNotFound)
	}
	return &inv, nil
}

// FindInvoiceBySupplierAndDocumentNumber returns nil, nil when no invoice matches.
func (s *gormStore) FindInvoiceBySupplierAndDocumentNumber(ctx context.Context, supplierID uint, documentNumber string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Where("supplier_id = ? AND document_number = ?", supplierID, documentNumber).
		Limit(1).
		Find(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (s *gormStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(inv).Error
	if err != nil {
		if isDuplicate(err) {
			return apperr.ErrDuplicateDocumentNumber.Wrap(err)
		}
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// SaveInvoiceWithLines writes the invoice header and replaces its ledger with inv.Lines.
// Callers run it inside WithinTx.
func (s *gormStore) SaveInvoiceWithLines(ctx context.Context, inv *models.Invoice) error {
	db := s.db.WithContext(ctx)
	err := db.Model(&models.Invoice{ID: inv.ID}).
		Select("status", "completed_at", "subtotal", "tax_amount", "total", "updated_at").
		Updates(inv).Error
	if err != nil {
		return fmt.Errorf("save invoice %d: %w", inv.ID, err)
	}
	if err := db.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
		return fmt.Errorf("clear lines of invoice %d: %w", inv.ID, err)
	}
	if len(inv.Lines) == 0 {
		return nil
	}
	for i := range inv.Lines {
		inv.Lines[i].InvoiceID = inv.ID
		inv.Lines[i].Position = i
	}
	if err := db.Create(&inv.Lines).Error; err != nil {
		if isDuplicate(err) {
			return apperr.ErrDuplicateLine.Wrap(err)
		}
		return fmt.Errorf("write lines of invoice %d: %w", inv.ID, err)
	}
	return nil
}

func (s *gormStore) DeleteInvoice(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	if err := db.Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		return fmt.Errorf("delete lines of invoice %d: %w", id, err)
	}
	res := db.Delete(&models.Invoice{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete invoice %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrInvoiceNotFound
	}
	return nil
}

func (s *gormStore) ListInvoices(ctx context.Context, f ListInvoicesFilter) ([]models.Invoice, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Invoice{})
	if f.SupplierID != 0 {
		q = q.Where("supplier_id = ?", f.SupplierID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := normalizePage(f.Limit, f.Offset)
	var out []models.Invoice
	err := q.Preload("Supplier").
		Order("date DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *gormStore) GetCompany(ctx context.Context) (*models.Company, error) {
	var c models.Company
	if err := s.db.WithContext(ctx).Order("id ASC").First(&c).Error; err != nil {
		return nil, notFound(err, apperr.ErrCompanyNotFound)
	}
	return &c, nil
}

// FindCompanyByCode returns nil, nil when no company has code.
func (s *gormStore) FindCompanyByCode(ctx context.Context, code string) (*models.Company, error) {
	var c models.Company
	if err := s.db.WithContext(ctx).Where("code = ?", code).Limit(1).Find(&c).Error; err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

func (s *gormStore) SaveCompany(ctx context.Context, c *models.Company) error {
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		if isDuplicate(err) {
			return apperr.ErrDuplicateCode.Wrap(err)
		}
		return fmt.Errorf("save company: %w", err)
	}
	return nil
}

func (s *gormStore) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	var it models.Item
	if err := s.db.WithContext(ctx).First(&it, id).Error; err != nil {
		return nil, notFound(err, apperr.ErrUnknownItem)
	}
	return &it, nil
}

func (s *gormStore) ListItems(ctx context.Context, f ListFilter) ([]models.Item, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Item{})
	if f.Query != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(f.Query)+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := normalizePage(f.Limit, f.Offset)
	var out []models.Item
	if err := q.Order("name ASC, id ASC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *gormStore) SaveItem(ctx context.Context, it *models.Item) error {
	if err := s.db.WithContext(ctx).Save(it).Error; err != nil {
		return fmt.Errorf("save item: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteItem(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Item{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete item %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrUnknownItem
	}
	return nil
}

func (s *gormStore) ItemOnCompletedInvoice(ctx context.Context, itemID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.InvoiceItem{}).
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoice_items.item_id = ? AND invoices.status = ?", itemID, models.InvoiceStatusCompleted).
		Count(&n).Error
	return n > 0, err
}

func (s *gormStore) GetSupplier(ctx context.Context, id uint) (*models.Supplier, error) {
	var sup models.Supplier
	if err := s.db.WithContext(ctx).First(&sup, id).Error; err != nil {
		return nil, notFound(err, apperr.ErrUnknownSupplier)
	}
	return &sup, nil
}

// FindSupplierByCode returns nil, nil when no supplier has code.
func (s *gormStore) FindSupplierByCode(ctx context.Context, code string) (*models.Supplier, error) {
	var sup models.Supplier
	if err := s.db.WithContext(ctx).Where("code = ?", code).Limit(1).Find(&sup).Error; err != nil {
		return nil, err
	}
	if sup.ID == 0 {
		return nil, nil
	}
	return &sup, nil
}

func (s *gormStore) ListSuppliers(ctx context.Context, f ListFilter) ([]models.Supplier, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Supplier{})
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	limit, offset := normalizePage(f.Limit, f.Offset)
	var out []models.Supplier
	if err := q.Order("name ASC, id ASC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *gormStore) SaveSupplier(ctx context.Context, sup *models.Supplier) error {
	if err := s.db.WithContext(ctx).Save(sup).Error; err != nil {
		if isDuplicate(err) {
			return apperr.ErrDuplicateCode.Wrap(err)
		}
		return fmt.Errorf("save supplier: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSupplier(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Supplier{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete supplier %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrUnknownSupplier
	}
	return nil
}

func (s *gormStore) SupplierHasInvoices(ctx context.Context, supplierID uint) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).Where("supplier_id = ?", supplierID).Count(&n).Error
	return n > 0, err
}
