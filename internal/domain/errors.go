package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable error taxonomy. Errors are signalled by
// kind, not by concrete type: handlers map kinds onto HTTP statuses and the
// orchestrator maps them onto per-asset status records.
type ErrorKind string

const (
	// KindInvalidInput covers validation failures: bounds, missing fields,
	// unknown crops, malformed GeoJSON. Aborts the whole request.
	KindInvalidInput ErrorKind = "INVALID_INPUT"
	// KindModelNotAvailable means a surrogate model file is absent and the
	// endpoint is structurally disabled.
	KindModelNotAvailable ErrorKind = "MODEL_NOT_AVAILABLE"
	// KindUpstreamDegraded means the hazard provider was unreachable and a
	// fallback sample was used. Carried as a warning, not a failure.
	KindUpstreamDegraded ErrorKind = "UPSTREAM_DEGRADED"
	// KindTimeout means a per-asset deadline expired.
	KindTimeout ErrorKind = "TIMEOUT"
	// KindInternal is an invariant violation; surfaced as a generic 500.
	KindInternal ErrorKind = "INTERNAL"
)

// Error is the structured error carried across component boundaries.
type Error struct {
	Kind    ErrorKind `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Invalid builds an INVALID_INPUT error.
func Invalid(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

// Invalidf builds an INVALID_INPUT error with formatting.
func Invalidf(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// ModelNotAvailable builds a MODEL_NOT_AVAILABLE error for a named model.
func ModelNotAvailable(model string) *Error {
	return &Error{Kind: KindModelNotAvailable, Message: fmt.Sprintf("surrogate model %q is not available", model)}
}

// Timeout builds a TIMEOUT error.
func Timeout(msg string) *Error {
	return &Error{Kind: KindTimeout, Message: msg}
}

// Internal wraps an invariant violation.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the taxonomy kind from any error chain, defaulting to
// INTERNAL for errors that did not originate in the core.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
