package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/diewo77/invoicing/internal/config"
	"github.com/diewo77/invoicing/internal/db"
	"github.com/diewo77/invoicing/internal/lock"
	"github.com/diewo77/invoicing/internal/logger"
	"github.com/diewo77/invoicing/internal/repository"
	"github.com/diewo77/invoicing/internal/server"
	"github.com/diewo77/invoicing/internal/services"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "invoicing",
		Short:         "Supplier invoice ledger service",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load environment variables from .env file
			_ = godotenv.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply the database schema and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := setup()
				if err != nil {
					return err
				}
				gdb, err := db.Open(cfg.Database, log)
				if err != nil {
					return err
				}
				defer closeDB(gdb)
				if err := db.Migrate(gdb, cfg, log); err != nil {
					return err
				}
				log.Info().Msg("migrations completed")
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Insert demo catalog data and exit",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := setup()
				if err != nil {
					return err
				}
				gdb, err := db.Open(cfg.Database, log)
				if err != nil {
					return err
				}
				defer closeDB(gdb)
				if err := db.Seed(gdb); err != nil {
					return fmt.Errorf("seeding failed: %w", err)
				}
				log.Info().Msg("seeding completed")
				return nil
			},
		},
	)
	return root
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	lc := logger.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	if err := logger.Setup(lc); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("logger: %w", err)
	}
	return cfg, logger.WithComponent("server"), nil
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newLocker(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (lock.Locker, func(), error) {
	if cfg.URL == "" {
		log.Info().Msg("using in-process invoice lock")
		return lock.NewKeyedMutex(), func() {}, nil
	}
	client, err := lock.Connect(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Dur("ttl", cfg.LockTTL).Str("prefix", cfg.LockPrefix).Msg("using redis invoice lock")
	l := lock.NewRedisLocker(client, cfg.LockTTL,
		lock.WithPrefix(cfg.LockPrefix),
		lock.WithLogger(logger.WithComponent("lock")),
	)
	return l, func() { _ = client.Close() }, nil
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	gdb, err := db.ConnectAndMigrate(cfg, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer closeDB(gdb)

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	defer closeLocker()

	store := repository.New(gdb)
	handler := server.New(server.Deps{
		DB:       gdb,
		Invoices: services.NewInvoiceService(store, locker, logger.WithComponent("invoices")),
		Catalog:  services.NewCatalogService(store, logger.WithComponent("catalog")),
		Log:      logger.WithComponent("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Server.Port).Bool("dev", cfg.App.Dev).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-quit:
		log.Info().Msg("shutdown signal received")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped gracefully")
	return nil
}
