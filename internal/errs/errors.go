// Package errs provides the unified error type used across all of quick-api.
//
// Every subsystem (engine, blobstore, server, …) wraps its native errors
// into *errs.Error before returning them to callers. Callers use the Is*
// predicates to handle errors without importing driver-specific packages.
//
// Usage:
//
//	// In a driver — wrap native errors:
//	return errs.Wrap(errs.ErrKindIOFailure, "write bucket file", err)
//
//	// In a handler — check error kind:
//	if errs.IsNotFound(err) {
//	    http.Error(w, "not found", http.StatusNotFound)
//	}
package errs

import (
	"errors"
	"fmt"
)

// ErrKind categorises an error without exposing subsystem-specific codes.
// All storage backends (disk, bbolt, Postgres, MySQL, MinIO) map their
// native errors to one of these kinds, giving callers a single consistent API.
type ErrKind int

const (
	ErrKindUnknown       ErrKind = iota
	ErrKindNotFound              // no object, no bucket, no stored file
	ErrKindIOFailure             // persistence read/write failure
	ErrKindMalformedData         // stored bytes that do not parse as a bucket
	ErrKindInvalidInput          // bad arguments or payload from the caller
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindNotFound:
		return "not_found"
	case ErrKindIOFailure:
		return "io_failure"
	case ErrKindMalformedData:
		return "malformed_data"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all quick-api subsystems.
// Drivers produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// --- Constructors ---

// New creates an *Error with the given kind and message and no cause.
func New(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// --- Predicates ---

// IsNotFound reports whether err represents a "not found" result
// (missing object, unknown key, absent stored file, …).
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsIOFailure reports whether err is a persistence failure
// (file write error, connection loss, failed upsert, …).
func IsIOFailure(err error) bool {
	return kindOf(err) == ErrKindIOFailure
}

// IsMalformedData reports whether err was caused by stored bytes that
// could not be decoded into a bucket.
func IsMalformedData(err error) bool {
	return kindOf(err) == ErrKindMalformedData
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return kindOf(err) == ErrKindInvalidInput
}

// kindOf extracts the ErrKind from any error in the chain.
func kindOf(err error) ErrKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrKindUnknown
}
