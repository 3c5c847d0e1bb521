// Package testutil provides database fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/diewo77/invoicing/internal/db"
	"github.com/diewo77/invoicing/internal/models"
)

var dbSeq atomic.Int64

// DB returns a migrated in-memory sqlite database private to tb.
// A single connection is kept open so concurrent callers queue instead of
// hitting shared-cache table locks.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func SeedSupplier(tb testing.TB, gdb *gorm.DB, code string) *models.Supplier {
	tb.Helper()
	s := &models.Supplier{Code: code, Name: "Supplier " + code}
	if err := gdb.WithContext(context.Background()).Create(s).Error; err != nil {
		tb.Fatalf("seed supplier: %v", err)
	}
	return s
}

func SeedItem(tb testing.TB, gdb *gorm.DB, name, price string, taxRate int) *models.Item {
	tb.Helper()
	it := &models.Item{Name: name, Unit: "pcs", Price: D(price), TaxRate: taxRate}
	if err := gdb.WithContext(context.Background()).Create(it).Error; err != nil {
		tb.Fatalf("seed item: %v", err)
	}
	return it
}
