// Package apperr defines the error taxonomy shared by every layer of the
// vault service. Controllers and repositories return *Error instead of
// raw driver/SDK errors; the HTTP transport maps Kind to a status code in
// exactly one place (internal/server/httpapi).
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error independently of where it originated.
type Kind string

const (
	KindValidation      Kind = "VALIDATION"
	KindAuthentication  Kind = "AUTHENTICATION"
	KindAuthorization   Kind = "AUTHORIZATION"
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindHashMismatch    Kind = "HASH_MISMATCH"
	KindSessionExpired  Kind = "SESSION_EXPIRED"
	KindFileTooLarge    Kind = "FILE_TOO_LARGE"
	KindUnsupportedMime Kind = "UNSUPPORTED_MIME"
	KindStorage         Kind = "STORAGE"
	KindIPFS            Kind = "IPFS_ERROR"
	KindInternal        Kind = "INTERNAL"
)

// Error is the sum type every internal component returns on failure.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error that carries cause for later inspection via errors.Unwrap.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails attaches structured detail fields and returns the same Error
// for chaining at the call site.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// KindOf extracts the Kind of err, defaulting to KindInternal for errors
// that were never classified.
func KindOf(err error) Kind {
	if ae, ok := err.(*Error); ok {
		return ae.Kind
	}
	return KindInternal
}
