// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"gorm.io/gorm"

	"github.com/diewo77/invoicing/httpx"
	"github.com/diewo77/invoicing/internal/handlers"
	"github.com/diewo77/invoicing/internal/logger"
	"github.com/diewo77/invoicing/internal/services"
)

// Deps are the collaborators the router needs.
type Deps struct {
	DB       *gorm.DB
	Invoices *services.InvoiceService
	Catalog  *services.CatalogService
	Log      zerolog.Logger
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(d.Log))
	r.Use(withRequestID)
	r.Use(hlog.AccessHandler(logRequest))
	r.Use(withRecover)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	// --- Health endpoints ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.DB.WithContext(req.Context()).Exec("SELECT 1").Error; err != nil {
			hlog.FromRequest(req).Warn().Err(err).Msg("health check failed")
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	company := handlers.NewCompanyHandler(d.Catalog)
	r.Get("/company", company.Show)
	r.Post("/company", company.Upsert)

	r.Route("/items", handlers.NewItemHandler(d.Catalog).Routes)
	r.Route("/suppliers", handlers.NewSupplierHandler(d.Catalog).Routes)
	r.Route("/invoices", handlers.NewInvoiceHandler(d.Invoices).Routes)

	return r
}

// withRequestID adds chi's request id to the request logger.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			log := logger.WithRequestID(*hlog.FromRequest(r), id)
			r = r.WithContext(log.WithContext(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}

func logRequest(r *http.Request, status, size int, duration time.Duration) {
	ev := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		ev = hlog.FromRequest(r).Error()
	}
	ev.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hlog.FromRequest(r).Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("recovered")
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
