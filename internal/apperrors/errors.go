package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies an error so callers can decide how to surface it.
type Kind string

const (
	KindInvalidRequest        Kind = "invalid_request"
	KindNotFound              Kind = "not_found"
	KindInvalidSignature      Kind = "invalid_signature"
	KindInsufficientInventory Kind = "insufficient_inventory"
	KindUnauthorized          Kind = "unauthorized"
	KindForbidden             Kind = "forbidden"
	KindFatal                 Kind = "fatal"
)

// Error is the application error carried across service boundaries.
type Error struct {
	Kind       Kind
	Message    string
	Violations []string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Violations) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Violations, "; "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// for every not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidRequest        = &Error{Kind: KindInvalidRequest}
	ErrNotFound              = &Error{Kind: KindNotFound}
	ErrInvalidSignature      = &Error{Kind: KindInvalidSignature}
	ErrInsufficientInventory = &Error{Kind: KindInsufficientInventory}
	ErrUnauthorized          = &Error{Kind: KindUnauthorized}
	ErrForbidden             = &Error{Kind: KindForbidden}
)

func InvalidRequest(message string, violations ...string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message, Violations: violations}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidSignature(err error) *Error {
	return &Error{Kind: KindInvalidSignature, Message: "webhook signature verification failed", Err: err}
}

func InsufficientInventory(skuID string, requested, available int) *Error {
	return &Error{
		Kind:    KindInsufficientInventory,
		Message: fmt.Sprintf("insufficient inventory for sku %s (requested: %d, available: %d)", skuID, requested, available),
	}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Fatal marks infrastructure failures (unreachable database and the like)
// that abort the request without classifying it further.
func Fatal(message string, err error) *Error {
	return &Error{Kind: KindFatal, Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindFatal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindFatal
}

// ViolationsOf returns the violation list of the first *Error in the chain.
func ViolationsOf(err error) []string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Violations
	}
	return nil
}

// HTTPStatus maps an error to the status code handlers answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidRequest, KindInvalidSignature:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInsufficientInventory:
		return fiber.StatusConflict
	case KindUnauthorized:
		return fiber.StatusUnauthorized
	case KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
