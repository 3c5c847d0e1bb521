package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/diewo77/invoicing/httpx"
	"github.com/diewo77/invoicing/internal/models"
	"github.com/diewo77/invoicing/internal/repository"
	"github.com/diewo77/invoicing/internal/services"
)

// itemDetails is the single-item view used to prefill invoice lines.
type itemDetails struct {
	*models.Item
	PriceWithTax decimal.Decimal `json:"price_with_tax"`
}

type ItemHandler struct {
	Svc *services.CatalogService
}

func NewItemHandler(svc *services.CatalogService) *ItemHandler {
	return &ItemHandler{Svc: svc}
}

func (h *ItemHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.View)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List: GET /items?q=&limit=&offset=
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	items, total, err := h.Svc.ListItems(r.Context(), repository.ListFilter{
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[models.Item]{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid_json", err)
		return
	}
	it, err := h.Svc.CreateItem(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/items/%d", it.ID))
	httpx.JSON(w, http.StatusCreated, it)
}

func (h *ItemHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	it, err := h.Svc.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, itemDetails{Item: it, PriceWithTax: it.PriceWithTax().Round(2)})
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	var in services.ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid_json", err)
		return
	}
	it, err := h.Svc.UpdateItem(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	if err := h.Svc.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
