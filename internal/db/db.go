// Package db opens the database, applies the schema and seeds demo data.
package db

import (
	"errors"
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/invoicing/internal/config"
	"github.com/diewo77/invoicing/internal/models"
)

// Models lists every table managed by AutoMigrate, parents first.
func Models() []any {
	return []any{
		&models.Company{},
		&models.Item{},
		&models.Supplier{},
		&models.Invoice{},
		&models.InvoiceItem{},
	}
}

// Open connects to the configured database, retrying while it comes up.
func Open(cfg config.DatabaseConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.ConnString())
	case "postgres":
		dsn := NormalizeDSN(cfg.ConnString())
		if dsn == "" {
			return nil, errors.New("empty database DSN, check DATABASE_DSN or DB_HOST")
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}
	gcfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	var gdb *gorm.DB
	var err error
	for i := 0; i < retries; i++ {
		gdb, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Msg("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	// Basic connectivity test
	if pingErr := gdb.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Info().Str("driver", cfg.Driver).Str("dsn", MaskDSN(cfg.ConnString())).Msg("database connected")
	return gdb, nil
}

// AutoMigrate creates or updates the tables of Models.
func AutoMigrate(gdb *gorm.DB) error {
	for _, m := range Models() {
		if err := gdb.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// RunSQLMigrations applies the migrations in dir with golang-migrate.
func RunSQLMigrations(databaseURL, dir string) error {
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Migrate applies the schema: SQL migrations when enabled, AutoMigrate otherwise.
func Migrate(gdb *gorm.DB, cfg *config.Config, log zerolog.Logger) error {
	if cfg.App.Migrations {
		log.Info().Str("dir", cfg.App.MigrationsDir).Msg("running sql migrations")
		if err := RunSQLMigrations(MigrationURL(cfg.Database), cfg.App.MigrationsDir); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else if err := AutoMigrate(gdb); err != nil {
		return err
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"companies", "items", "suppliers", "invoices", "invoice_items"} {
		if !gdb.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// ConnectAndMigrate opens the database, applies the schema and seeds when asked.
func ConnectAndMigrate(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	gdb, err := Open(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb, cfg, log); err != nil {
		return nil, err
	}
	if cfg.App.Seed {
		if err := Seed(gdb); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
		log.Info().Msg("demo data seeded")
	}
	return gdb, nil
}
