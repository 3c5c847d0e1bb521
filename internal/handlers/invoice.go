package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diewo77/invoicing/httpx"
	"github.com/diewo77/invoicing/internal/models"
	"github.com/diewo77/invoicing/internal/repository"
	"github.com/diewo77/invoicing/internal/services"
)

type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

// Routes mounts the invoice endpoints on r.
func (h *InvoiceHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.View)
		r.Delete("/", h.Delete)
		r.Post("/items", h.AddLine)
		r.Delete("/items/{item_id}", h.RemoveLine)
		r.Post("/complete", h.Complete)
	})
}

type createInvoiceRequest struct {
	SupplierID     uint   `json:"supplier_id"`
	DocumentNumber string `json:"document_number"`
	// Date accepts YYYY-MM-DD or RFC 3339. Empty means today.
	Date string `json:"date"`
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

// List: GET /invoices?supplier_id=&status=&limit=&offset=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	f := repository.ListInvoicesFilter{
		Status: models.InvoiceStatus(strings.ToLower(r.URL.Query().Get("status"))),
		Limit:  limit,
		Offset: offset,
	}
	if v := r.URL.Query().Get("supplier_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			invalidID(w, "supplier_id")
			return
		}
		f.SupplierID = uint(n)
	}
	invs, total, err := h.Svc.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[models.Invoice]{Items: invs, Total: total, Limit: limit, Offset: offset})
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		badRequest(w, "invalid_json", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"date": "invalid"})
		return
	}
	inv, err := h.Svc.Initialize(r.Context(), services.InitializeInput{
		SupplierID:     req.SupplierID,
		DocumentNumber: req.DocumentNumber,
		Date:           date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/invoices/%d", inv.ID))
	httpx.JSON(w, http.StatusCreated, inv)
}

// View: GET /invoices/{id}
func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	inv, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Delete: DELETE /invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

// AddLine: POST /invoices/{id}/items
func (h *InvoiceHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	var in services.AddLineInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid_json", err)
		return
	}
	inv, line, err := h.Svc.AddLineItem(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"invoice": inv, "line": line})
}

// RemoveLine: DELETE /invoices/{id}/items/{item_id}
func (h *InvoiceHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	itemID, ok := idParam(r, "item_id")
	if !ok {
		invalidID(w, "item_id")
		return
	}
	inv, err := h.Svc.RemoveLineItem(r.Context(), id, itemID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Complete: POST /invoices/{id}/complete
func (h *InvoiceHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	inv, err := h.Svc.Complete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}
