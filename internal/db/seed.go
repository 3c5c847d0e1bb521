package db

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/invoicing/internal/models"
)

// Seed inserts demo catalog data. Running it twice leaves a single copy.
func Seed(gdb *gorm.DB) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		company := models.Company{Code: "DEMO", Name: "Demo Trading", SectorCode: "4690", Sector: "Wholesale"}
		if err := firstOrCreate(tx, &models.Company{}, "code = ?", company.Code, &company); err != nil {
			return err
		}

		suppliers := []models.Supplier{
			{Code: "ACME", Name: "Acme Supplies"},
			{Code: "GLOBEX", Name: "Globex Corporation"},
		}
		for i := range suppliers {
			if err := firstOrCreate(tx, &models.Supplier{}, "code = ?", suppliers[i].Code, &suppliers[i]); err != nil {
				return err
			}
		}

		items := []models.Item{
			{Name: "Widget", Unit: "pcs", Price: decimal.RequireFromString("10.00"), TaxRate: 20},
			{Name: "Gadget", Unit: "pcs", Price: decimal.RequireFromString("24.90"), TaxRate: 20},
			{Name: "Copper wire", Unit: "m", Price: decimal.RequireFromString("1.35"), TaxRate: 10},
			{Name: "Consulting", Unit: "h", Price: decimal.RequireFromString("80.00"), TaxRate: 0},
		}
		for i := range items {
			if err := firstOrCreate(tx, &models.Item{}, "name = ?", items[i].Name, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func firstOrCreate(tx *gorm.DB, probe any, cond string, arg any, value any) error {
	err := tx.Where(cond, arg).First(probe).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(value).Error
}
