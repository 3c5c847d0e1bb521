// Package apperr defines the typed errors returned by the invoicing services.
//
// Every error carries a Kind. Kind-level sentinels (ErrNotFound, ErrValidation, ...)
// match any error of that kind with errors.Is; specific errors such as
// ErrUnknownSupplier match only themselves (and their kind).
package apperr

import (
	"errors"
	"fmt"

	"github.com/diewo77/invoicing/validation"
)

// Kind classifies an error for callers that map errors to responses.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation_failed"
	KindDuplicateKey    Kind = "duplicate_key"
	KindInvoiceNotDraft Kind = "invoice_not_draft"
	KindEmptyInvoice    Kind = "empty_invoice"
	KindLineNotFound    Kind = "line_not_found"
	KindConflict        Kind = "conflict"
)

// Error is the typed error returned by services.
type Error struct {
	Kind Kind
	// Code is a snake_case identifier for the specific failure. Empty on kind-level sentinels.
	Code       string
	Msg        string
	Violations validation.Violations
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if len(e.Violations) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, e.Violations.Fields())
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is matches kind-level sentinels by kind and specific errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == "" {
		return t.Kind == e.Kind
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// ResponseCode returns the code exposed to API clients.
func (e *Error) ResponseCode() string {
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

// WithViolations returns a copy of e carrying field violations.
func (e *Error) WithViolations(v validation.Violations) *Error {
	cp := *e
	cp.Violations = v
	return &cp
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// Kind-level sentinels.
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrValidation      = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrDuplicateKey    = &Error{Kind: KindDuplicateKey, Msg: "duplicate key"}
	ErrInvoiceNotDraft = &Error{Kind: KindInvoiceNotDraft, Msg: "invoice is not a draft"}
	ErrEmptyInvoice    = &Error{Kind: KindEmptyInvoice, Msg: "invoice has no lines"}
	ErrLineNotFound    = &Error{Kind: KindLineNotFound, Msg: "line not found on invoice"}
	ErrConflict        = &Error{Kind: KindConflict, Msg: "conflict"}
)

// Specific errors.
var (
	ErrInvoiceNotFound         = &Error{Kind: KindNotFound, Code: "invoice_not_found", Msg: "invoice not found"}
	ErrUnknownSupplier         = &Error{Kind: KindNotFound, Code: "unknown_supplier", Msg: "unknown supplier"}
	ErrUnknownItem             = &Error{Kind: KindNotFound, Code: "unknown_item", Msg: "unknown item"}
	ErrCompanyNotFound         = &Error{Kind: KindNotFound, Code: "company_not_configured", Msg: "company not configured"}
	ErrInvalidLineInput        = &Error{Kind: KindValidation, Code: "invalid_line_input", Msg: "invalid line input"}
	ErrDuplicateDocumentNumber = &Error{Kind: KindDuplicateKey, Code: "duplicate_document_number", Msg: "document number already used for supplier"}
	ErrDuplicateLine           = &Error{Kind: KindDuplicateKey, Code: "duplicate_line", Msg: "item already has a line on this invoice"}
	ErrDuplicateCode           = &Error{Kind: KindDuplicateKey, Code: "code_already_exists", Msg: "code already exists"}
	ErrItemLocked              = &Error{Kind: KindConflict, Code: "item_locked", Msg: "item is referenced by a completed invoice"}
	ErrSupplierInUse           = &Error{Kind: KindConflict, Code: "supplier_in_use", Msg: "supplier is referenced by invoices"}
)

// Invalid returns a validation error carrying the given violations.
func Invalid(v validation.Violations) *Error {
	return ErrValidation.WithViolations(v)
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" for errors that are not typed.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
