package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/diewo77/invoicing/httpx"
	"github.com/diewo77/invoicing/internal/models"
	"github.com/diewo77/invoicing/internal/repository"
	"github.com/diewo77/invoicing/internal/services"
)

type SupplierHandler struct {
	Svc *services.CatalogService
}

func NewSupplierHandler(svc *services.CatalogService) *SupplierHandler {
	return &SupplierHandler{Svc: svc}
}

func (h *SupplierHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.View)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// List: GET /suppliers?q=&limit=&offset=
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	sups, total, err := h.Svc.ListSuppliers(r.Context(), repository.ListFilter{
		Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Page[models.Supplier]{Items: sups, Total: total, Limit: limit, Offset: offset})
}

func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.SupplierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid_json", err)
		return
	}
	sup, err := h.Svc.CreateSupplier(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/suppliers/%d", sup.ID))
	httpx.JSON(w, http.StatusCreated, sup)
}

func (h *SupplierHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	sup, err := h.Svc.GetSupplier(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sup)
}

func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	var in services.SupplierInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid_json", err)
		return
	}
	sup, err := h.Svc.UpdateSupplier(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sup)
}

func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		invalidID(w, "id")
		return
	}
	if err := h.Svc.DeleteSupplier(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoContent(w)
}
