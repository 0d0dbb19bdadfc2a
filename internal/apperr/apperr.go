package apperr

import (
	"errors"
	"net/http"
)

// Kind is the stable, client-visible classification of an error.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindDuplicateApplication   Kind = "duplicate_application"
	KindNotFound               Kind = "not_found"
	KindAlreadyProcessed       Kind = "already_processed"
	KindInvalidCredential      Kind = "invalid_credential"
	KindWeakPassword           Kind = "weak_password"
	KindUnauthenticated        Kind = "unauthenticated"
	KindForbidden              Kind = "forbidden"
	KindPasswordChangeRequired Kind = "password_change_required"
	KindConflict               Kind = "conflict"
	KindInternal               Kind = "internal_error"
)

// Error carries a Kind, a human readable message and optional details.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetails attaches structured details to the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Wrap records the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error { return New(KindValidation, message) }

func DuplicateApplication(message string) *Error { return New(KindDuplicateApplication, message) }

func NotFound(message string) *Error { return New(KindNotFound, message) }

func AlreadyProcessed(message string) *Error { return New(KindAlreadyProcessed, message) }

func InvalidCredential(message string) *Error { return New(KindInvalidCredential, message) }

func WeakPassword(message string) *Error { return New(KindWeakPassword, message) }

func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }

func Forbidden(message string) *Error { return New(KindForbidden, message) }

func PasswordChangeRequired(message string) *Error { return New(KindPasswordChangeRequired, message) }

func Conflict(message string) *Error { return New(KindConflict, message) }

// KindOf returns the Kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HasKind reports whether err is an *Error of the given kind.
func HasKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a Kind onto its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindWeakPassword:
		return http.StatusBadRequest
	case KindInvalidCredential, KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden, KindPasswordChangeRequired:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindDuplicateApplication, KindAlreadyProcessed, KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
