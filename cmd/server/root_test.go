package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/invoicing/internal/models"
)

func TestSubcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "seed"} {
		assert.True(t, names[want], want)
	}
}

func TestMigrateThenSeedSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", path)
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DB_RETRIES", "1")
	t.Setenv("MIGRATIONS", "")
	t.Setenv("LOG_LEVEL", "error")

	for _, args := range [][]string{{"migrate"}, {"seed"}, {"seed"}} {
		root := newRootCmd()
		root.SetArgs(args)
		require.NoError(t, root.Execute(), args)
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	var n int64
	require.NoError(t, gdb.Model(&models.Supplier{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func TestInvalidDriverFails(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	root := newRootCmd()
	root.SetArgs([]string{"migrate"})
	assert.Error(t, root.Execute())
}
