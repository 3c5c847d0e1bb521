// Package handlers exposes the invoicing services as JSON over HTTP.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/diewo77/invoicing/httpx"
	"github.com/diewo77/invoicing/internal/apperr"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound, apperr.KindLineNotFound:
		return http.StatusNotFound
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDuplicateKey, apperr.KindInvoiceNotDraft, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindEmptyInvoice:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := apperr.As(err); ok {
		var details any
		if len(e.Violations) > 0 {
			details = e.Violations
		}
		status := StatusFor(e.Kind)
		if status == http.StatusInternalServerError {
			hlog.FromRequest(r).Error().Err(err).Msg("untyped kind")
		}
		httpx.JSONErrorMsg(w, status, e.ResponseCode(), e.Msg, details)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		hlog.FromRequest(r).Warn().Err(err).Msg("request aborted")
		httpx.JSONError(w, http.StatusServiceUnavailable, "unavailable", nil)
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg("internal error")
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}

func badRequest(w http.ResponseWriter, code string, err error) {
	httpx.JSONErrorMsg(w, http.StatusBadRequest, code, err.Error(), nil)
}

// idParam reads a positive numeric URL parameter.
func idParam(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(chi.URLParam(r, name), 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func invalidID(w http.ResponseWriter, name string) {
	httpx.JSONError(w, http.StatusBadRequest, "invalid_id", map[string]string{name: "invalid"})
}

// pageParams reads limit and offset, or page as a 1-based alternative to offset.
func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit = 50
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	} else if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 1 {
		offset = (p - 1) * limit
	}
	return limit, offset
}
