package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/invoicing/internal/apperr"
	"github.com/diewo77/invoicing/internal/models"
	"github.com/diewo77/invoicing/internal/testutil"
)

func newInvoice(t *testing.T, s Store, supplierID uint, doc string) *models.Invoice {
	t.Helper()
	inv := models.NewInvoice(supplierID, doc, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateInvoice(context.Background(), inv))
	require.NotZero(t, inv.ID)
	return inv
}

func TestInvoiceRoundTrip(t *testing.T) {
	gdb := testutil.DB(t)
	s := New(gdb)
	ctx := context.Background()
	sup := testutil.SeedSupplier(t, gdb, "ACME")
	widget := testutil.SeedItem(t, gdb, "Widget", "10.00", 20)
	gadget := testutil.SeedItem(t, gdb, "Gadget", "10.00", 20)

	inv := newInvoice(t, s, sup.ID, "INV-001")

	a, err := models.NewLine(inv.ID, widget, widget.Price, testutil.D("10"), testutil.D("0"), nil)
	require.NoError(t, err)
	b, err := models.NewLine(inv.ID, gadget, gadget.Price, testutil.D("5"), testutil.D("0.1"), nil)
	require.NoError(t, err)
	inv.Lines = []models.InvoiceItem{a, b}
	inv.Recompute()

	require.NoError(t, s.WithinTx(ctx, func(tx Store) error {
		return tx.SaveInvoiceWithLines(ctx, inv)
	}))

	got, err := s.GetInvoice(ctx, inv.ID, false)
	require.NoError(t, err)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, widget.ID, got.Lines[0].ItemID)
	assert.Equal(t, gadget.ID, got.Lines[1].ItemID)
	assert.True(t, got.Subtotal.Equal(testutil.D("145")), "subtotal = %s", got.Subtotal)
	assert.True(t, got.TaxAmount.Equal(testutil.D("29")), "tax = %s", got.TaxAmount)
	assert.True(t, got.Total.Equal(testutil.D("174")), "total = %s", got.Total)
	require.NotNil(t, got.Supplier)
	assert.Equal(t, "ACME", got.Supplier.Code)
	assert.Equal(t, models.InvoiceStatusDraft, got.Status)

	// replace the ledger with a single line
	got.Lines = got.Lines[1:]
	got.Recompute()
	require.NoError(t, s.SaveInvoiceWithLines(ctx, got))

	again, err := s.GetInvoice(ctx, inv.ID, true)
	require.NoError(t, err)
	require.Len(t, again.Lines, 1)
	assert.Equal(t, gadget.ID, again.Lines[0].ItemID)
	assert.True(t, again.Total.Equal(testutil.D("54")), "total = %s", again.Total)
}

func TestGetInvoiceNotFound(t *testing.T) {
	s := New(testutil.DB(t))
	_, err := s.GetInvoice(context.Background(), 42, false)
	assert.True(t, errors.Is(err, apperr.ErrInvoiceNotFound))
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCreateInvoiceDuplicateDocumentNumber(t *testing.T) {
	gdb := testutil.DB(t)
	s := New(gdb)
	ctx := context.Background()
	acme := testutil.SeedSupplier(t, gdb, "ACME")
	globex := testutil.SeedSupplier(t, gdb, "GLOBEX")

	newInvoice(t, s, acme.ID, "INV-001")

	dup := models.NewInvoice(acme.ID, "INV-001", time.Now())
	err := s.CreateInvoice(ctx, dup)
	assert.True(t, errors.Is(err, apperr.ErrDuplicateDocumentNumber), "err = %v", err)

	// same number for another supplier is fine
	newInvoice(t, s, globex.ID, "INV-001")

	found, err := s.FindInvoiceBySupplierAndDocumentNumber(ctx, acme.ID, "INV-001")
	require.NoError(t, err)
	require.NotNil(t, found)
	missing, err := s.FindInvoiceBySupplierAndDocumentNumber(ctx, acme.ID, "INV-404")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWithinTxRollsBack(t *testing.T) {
	gdb := testutil.DB(t)
	s := New(gdb)
	ctx := context.Background()
	sup := testutil.SeedSupplier(t, gdb, "ACME")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx Store) error {
		inv := models.NewInvoice(sup.ID, "INV-RB", time.Now())
		if err := tx.CreateInvoice(ctx, inv); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	found, err := s.FindInvoiceBySupplierAndDocumentNumber(ctx, sup.ID, "INV-RB")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDeleteInvoiceRemovesLines(t *testing.T) {
	gdb := testutil.DB(t)
	s := New(gdb)
	ctx := context.Background()
	sup := testutil.SeedSupplier(t, gdb, "ACME")
	widget := testutil.SeedItem(t, gdb, "Widget", "10.00", 20)

	inv := newInvoice(t, s, sup.ID, "INV-DEL")
	line, err := models.NewLine(inv.ID, widget, widget.Price, testutil.D("1"), testutil.D("0"), nil)
	require.NoError(t, err)
	inv.Lines = []models.InvoiceItem{line}
	inv.Recompute()
	require.NoError(t, s.SaveInvoiceWithLines(ctx, inv))

	require.NoError(t, s.DeleteInvoice(ctx, inv.ID))

	var lines int64
	gdb.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&lines)
	assert.Zero(t, lines)
	assert.True(t, errors.Is(s.DeleteInvoice(ctx, inv.ID), apperr.ErrInvoiceNotFound))

	// the document number is free again
	newInvoice(t, s, sup.ID, "INV-DEL")
}

func TestListInvoices(t *testing.T) {
	gdb := testutil.DB(t)
	s := New(gdb)
	ctx := context.Background()
	acme := testutil.SeedSupplier(t, gdb, "ACME")
	globex := testutil.SeedSupplier(t, gdb, "GLOBEX")

	newInvoice(t, s, acme.ID, "A-1")
	newInvoice(t, s, acme.ID, "A-2")
	done := newInvoice(t, s, globex.ID, "G-1")
	done.Status = models.InvoiceStatusCompleted
	require.NoError(t, s.SaveInvoiceWithLines(ctx, done))

	all, total, err := s.ListInvoices(ctx, ListInvoicesFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	bySupplier, total, err := s.ListInvoices(ctx, ListInvoicesFilter{SupplierID: acme.ID, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, bySupplier, 1)

	completed, total, err := s.ListInvoices(ctx, ListInvoicesFilter{Status: models.InvoiceStatusCompleted})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, completed, 1)
	assert.Equal(t, "G-1", completed[0].DocumentNumber)
}

func TestCatalogQueries(t *testing.T) {
	gdb := testutil.DB(t)
	s := New(gdb)
	ctx := context.Background()
	sup := testutil.SeedSupplier(t, gdb, "ACME")
	widget := testutil.SeedItem(t, gdb, "Widget", "10.00", 20)
	testutil.SeedItem(t, gdb, "Gadget", "5.00", 10)

	items, total, err := s.ListItems(ctx, ListFilter{Query: "widg"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, widget.ID, items[0].ID)

	locked, err := s.ItemOnCompletedInvoice(ctx, widget.ID)
	require.NoError(t, err)
	assert.False(t, locked)

	inv := newInvoice(t, s, sup.ID, "INV-1")
	line, err := models.NewLine(inv.ID, widget, widget.Price, testutil.D("1"), testutil.D("0"), nil)
	require.NoError(t, err)
	inv.Lines = []models.InvoiceItem{line}
	inv.Recompute()
	inv.Status = models.InvoiceStatusCompleted
	require.NoError(t, s.SaveInvoiceWithLines(ctx, inv))

	locked, err = s.ItemOnCompletedInvoice(ctx, widget.ID)
	require.NoError(t, err)
	assert.True(t, locked)

	inUse, err := s.SupplierHasInvoices(ctx, sup.ID)
	require.NoError(t, err)
	assert.True(t, inUse)

	_, err = s.GetItem(ctx, 999)
	assert.True(t, errors.Is(err, apperr.ErrUnknownItem))
	_, err = s.GetSupplier(ctx, 999)
	assert.True(t, errors.Is(err, apperr.ErrUnknownSupplier))
	_, err = s.GetCompany(ctx)
	assert.True(t, errors.Is(err, apperr.ErrCompanyNotFound))

	dup := &models.Supplier{Code: "ACME", Name: "Other"}
	assert.True(t, errors.Is(s.SaveSupplier(ctx, dup), apperr.ErrDuplicateCode))
}
