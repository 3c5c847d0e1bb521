package handlers

import (
	"net/http"

	"github.com/diewo77/invoicing/httpx"
	"github.com/diewo77/invoicing/internal/services"
)

type CompanyHandler struct {
	Svc *services.CatalogService
}

func NewCompanyHandler(svc *services.CatalogService) *CompanyHandler {
	return &CompanyHandler{Svc: svc}
}

// Show: GET /company
func (h *CompanyHandler) Show(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.GetCompany(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

// Upsert: POST /company, keyed by code.
func (h *CompanyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in services.CompanyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		badRequest(w, "invalid_json", err)
		return
	}
	c, created, err := h.Svc.UpsertCompany(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, c)
}
