package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the API classifies instead of reporting as internal.
const (
	pgInvalidText         = "22P02"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// Error codes rendered in API responses.
const (
	CodeValidation        = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeConflict          = "CONFLICT"
	CodeCategoryMismatch  = "CATEGORY_MISMATCH"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewPermissionDenied reports a role lacking rights for the operation.
func NewPermissionDenied(message string) error {
	return NewDomainError(CodePermissionDenied, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewCategoryMismatch reports a technician outside the ticket's category.
func NewCategoryMismatch(details map[string]any) error {
	return NewDomainError(CodeCategoryMismatch, "ticket category is not among your specialties", http.StatusConflict, details)
}

// NewInvalidTransition reports an illegal status change.
func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition, fmt.Sprintf("cannot move ticket from %s to %s", from, to), http.StatusConflict, map[string]any{
		"from": from,
		"to":   to,
	})
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return NewDomainError(codeForStatus(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	if pgErr := pgError(err); pgErr != nil {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &DomainError{Code: CodeConflict, Message: "resource already exists", HTTPStatus: http.StatusConflict,
				Details: map[string]any{"constraint": pgErr.ConstraintName}, Err: err}
		case pgForeignKeyViolation:
			return &DomainError{Code: CodeValidation, Message: "referenced resource does not exist", HTTPStatus: http.StatusBadRequest,
				Details: map[string]any{"constraint": pgErr.ConstraintName}, Err: err}
		case pgInvalidText:
			return &DomainError{Code: CodeValidation, Message: "malformed identifier", HTTPStatus: http.StatusBadRequest, Err: err}
		}
	}
	return NewInternalError(err).(*DomainError)
}

func pgError(err error) *pgconn.PgError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr
	}
	return nil
}

// IsMissingRow reports whether err means the looked-up row cannot exist:
// no rows, or an id Postgres could not even parse.
func IsMissingRow(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	pgErr := pgError(err)
	return pgErr != nil && pgErr.Code == pgInvalidText
}

// MapError converts err into a *DomainError while keeping nil as nil.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}
