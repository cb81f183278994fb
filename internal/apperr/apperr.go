// Package apperr provides the error taxonomy shared across the store,
// generation pipeline, and HTTP layer. Every failure that crosses a
// component boundary is classified with a Kind so callers can distinguish
// "fix your input" from "retry later" without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind int

const (
	// KindInternal is the fallback for unclassified failures.
	KindInternal Kind = iota

	// KindValidation is malformed or missing caller input.
	KindValidation

	// KindNotFound means the referenced template does not exist.
	KindNotFound

	// KindVersionNotFound means the template exists but the requested
	// version does not.
	KindVersionNotFound

	// KindConflict is an optimistic-concurrency collision; the caller must
	// re-read and retry.
	KindConflict

	// KindUnavailable means the durable store or model service is
	// unreachable or not ready.
	KindUnavailable

	// KindModelOutput means the generative model returned content that
	// failed required structural parsing.
	KindModelOutput

	// KindTimeout means the model invocation exceeded its bound.
	KindTimeout
)

// String returns the machine-readable code for the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindVersionNotFound:
		return "version_not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "service_unavailable"
	case KindModelOutput:
		return "model_output_error"
	case KindTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps the kind to its stable external status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound, KindVersionNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindModelOutput:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, preserving it for errors.Is/As.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithDetails attaches caller-facing detail text and returns the error.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// KindOf extracts the Kind from an error chain. Unclassified errors
// report KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether the error chain classifies as the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsNotFound reports whether err is a NotFound or VersionNotFound error.
func IsNotFound(err error) bool {
	k := KindOf(err)
	return k == KindNotFound || k == KindVersionNotFound
}
