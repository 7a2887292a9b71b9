package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline and proof error taxonomy. Engine-level failures are absorbed into
// the next fallback step wherever a fallback exists; only conditions with no
// remaining fallback propagate to the caller.
var (
	// ErrEngineUnavailable: a single engine call failed, timed out, or
	// declined (quota/auth). Triggers the fallback path, never surfaced raw.
	ErrEngineUnavailable = errors.New("extraction engine unavailable")

	// ErrExtractionUnavailable: both engines failed to produce any field.
	// Surfaced to the caller as a need for fully manual entry.
	ErrExtractionUnavailable = errors.New("extraction unavailable")

	// ErrCacheUnavailable: non-fatal, degrades to cache-miss behavior.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrIntegrityViolation: duplicate content hash at issuance. Fatal;
	// the caller must regenerate the artifact before retrying.
	ErrIntegrityViolation = errors.New("proof integrity violation")

	// ErrLedgerUnavailable: the proof ledger cannot be reached. Distinct
	// from a negative verification outcome so callers never mistake
	// "can't check" for "not verified".
	ErrLedgerUnavailable = errors.New("proof ledger unavailable")

	// ErrMetadataExtraction: embedded proof id missing or unreadable.
	// Contributes to a NoMatch verification outcome, never fatal on its own.
	ErrMetadataExtraction = errors.New("metadata extraction failed")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
