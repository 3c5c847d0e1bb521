package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/diewo77/invoicing/internal/apperr"
	"github.com/diewo77/invoicing/internal/ledger"
	"github.com/diewo77/invoicing/internal/models"
	"github.com/diewo77/invoicing/internal/repository"
	"github.com/diewo77/invoicing/validation"
)

type CompanyInput struct {
	Code       string  `json:"code"`
	SectorCode string  `json:"sector_code"`
	Sector     string  `json:"sector"`
	Name       string  `json:"name"`
	Address    *string `json:"address,omitempty"`
	Owner      *string `json:"owner,omitempty"`
	User       *string `json:"user,omitempty"`
}

type ItemInput struct {
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	TaxRate int             `json:"tax_rate"`
	Unit    string          `json:"unit"`
}

type SupplierInput struct {
	Name    string  `json:"name"`
	Code    string  `json:"code"`
	Address *string `json:"address,omitempty"`
}

func (in *CompanyInput) normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.SectorCode = strings.TrimSpace(in.SectorCode)
	in.Sector = strings.TrimSpace(in.Sector)
}

func (in CompanyInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("code", in.Code, v)
	validation.MaxLength("code", in.Code, 50, v)
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	return v
}

func (in *ItemInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
}

func (in ItemInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	validation.MaxScale("price", in.Price, ledger.StoredScale, v)
	validation.NonNegativeDecimal("price", in.Price, v)
	validation.RangeInt("tax_rate", in.TaxRate, 0, 100, v)
	validation.Required("unit", in.Unit, v)
	validation.MaxLength("unit", in.Unit, 50, v)
	return v
}

func (in *SupplierInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
}

func (in SupplierInput) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLength("name", in.Name, 255, v)
	validation.Required("code", in.Code, v)
	validation.MaxLength("code", in.Code, 50, v)
	return v
}

// CatalogService validates and persists the company, items and suppliers.
type CatalogService struct {
	store repository.Store
	log   zerolog.Logger
}

func NewCatalogService(store repository.Store, log zerolog.Logger) *CatalogService {
	return &CatalogService{store: store, log: log.With().Str("service", "catalog").Logger()}
}

// UpsertCompany inserts the company with in.Code or updates it in place.
// A concurrent first insert of the same code is retried once as an update.
func (s *CatalogService) UpsertCompany(ctx context.Context, in CompanyInput) (*models.Company, bool, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, false, apperr.Invalid(v)
	}
	c, created, err := s.upsertCompany(ctx, in)
	if errors.Is(err, apperr.ErrDuplicateCode) {
		s.log.Debug().Str("code", in.Code).Msg("company inserted concurrently, retrying as update")
		c, created, err = s.upsertCompany(ctx, in)
	}
	if err != nil {
		return nil, false, err
	}
	s.log.Info().Str("code", c.Code).Bool("created", created).Msg("company saved")
	return c, created, nil
}

func (s *CatalogService) upsertCompany(ctx context.Context, in CompanyInput) (*models.Company, bool, error) {
	var c *models.Company
	created := false
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindCompanyByCode(ctx, in.Code)
		if err != nil {
			return err
		}
		if existing == nil {
			existing = &models.Company{Code: in.Code}
			created = true
		}
		existing.SectorCode = in.SectorCode
		existing.Sector = in.Sector
		existing.Name = in.Name
		existing.Address = in.Address
		existing.Owner = in.Owner
		existing.User = in.User
		c = existing
		return tx.SaveCompany(ctx, c)
	})
	if err != nil {
		return nil, false, err
	}
	return c, created, nil
}

// GetCompany returns the active company.
func (s *CatalogService) GetCompany(ctx context.Context) (*models.Company, error) {
	return s.store.GetCompany(ctx)
}

func (s *CatalogService) CreateItem(ctx context.Context, in ItemInput) (*models.Item, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	it := &models.Item{Name: in.Name, Price: in.Price, TaxRate: in.TaxRate, Unit: in.Unit}
	if err := s.store.SaveItem(ctx, it); err != nil {
		return nil, err
	}
	s.log.Info().Uint("item_id", it.ID).Msg("item created")
	return it, nil
}

// UpdateItem edits an item. Items on a completed invoice are frozen; lines of
// draft invoices keep their snapshot either way.
func (s *CatalogService) UpdateItem(ctx context.Context, id uint, in ItemInput) (*models.Item, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	var it *models.Item
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		it, err = tx.GetItem(ctx, id)
		if err != nil {
			return err
		}
		locked, err := tx.ItemOnCompletedInvoice(ctx, id)
		if err != nil {
			return err
		}
		if locked {
			return apperr.ErrItemLocked
		}
		it.Name = in.Name
		it.Price = in.Price
		it.TaxRate = in.TaxRate
		it.Unit = in.Unit
		return tx.SaveItem(ctx, it)
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

func (s *CatalogService) GetItem(ctx context.Context, id uint) (*models.Item, error) {
	return s.store.GetItem(ctx, id)
}

func (s *CatalogService) ListItems(ctx context.Context, f repository.ListFilter) ([]models.Item, int64, error) {
	return s.store.ListItems(ctx, f)
}

func (s *CatalogService) DeleteItem(ctx context.Context, id uint) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		locked, err := tx.ItemOnCompletedInvoice(ctx, id)
		if err != nil {
			return err
		}
		if locked {
			return apperr.ErrItemLocked
		}
		return tx.DeleteItem(ctx, id)
	})
}

func (s *CatalogService) CreateSupplier(ctx context.Context, in SupplierInput) (*models.Supplier, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	sup := &models.Supplier{Name: in.Name, Code: in.Code, Address: in.Address}
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.FindSupplierByCode(ctx, in.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.ErrDuplicateCode
		}
		return tx.SaveSupplier(ctx, sup)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint("supplier_id", sup.ID).Str("code", sup.Code).Msg("supplier created")
	return sup, nil
}

func (s *CatalogService) UpdateSupplier(ctx context.Context, id uint, in SupplierInput) (*models.Supplier, error) {
	in.normalize()
	if v := in.validate(); !v.Empty() {
		return nil, apperr.Invalid(v)
	}
	var sup *models.Supplier
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		sup, err = tx.GetSupplier(ctx, id)
		if err != nil {
			return err
		}
		if in.Code != sup.Code {
			existing, err := tx.FindSupplierByCode(ctx, in.Code)
			if err != nil {
				return err
			}
			if existing != nil {
				return apperr.ErrDuplicateCode
			}
		}
		sup.Name = in.Name
		sup.Code = in.Code
		sup.Address = in.Address
		return tx.SaveSupplier(ctx, sup)
	})
	if err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *CatalogService) GetSupplier(ctx context.Context, id uint) (*models.Supplier, error) {
	return s.store.GetSupplier(ctx, id)
}

func (s *CatalogService) ListSuppliers(ctx context.Context, f repository.ListFilter) ([]models.Supplier, int64, error) {
	return s.store.ListSuppliers(ctx, f)
}

func (s *CatalogService) DeleteSupplier(ctx context.Context, id uint) error {
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		inUse, err := tx.SupplierHasInvoices(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return apperr.ErrSupplierInUse
		}
		return tx.DeleteSupplier(ctx, id)
	})
}
