// Package domainerrors provides coded errors for the service boundary.
// Stores return sentinel errors (pkg/platform/sentinel); services translate
// them into these coded errors so transports can map codes to status lines
// without string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeAlreadyRevealed is returned when a reveal is attempted on a record
	// or score whose plaintext has already been committed.
	CodeAlreadyRevealed Code = "already_revealed"
	// CodeSimulationAlreadyRun guards the at-most-once simulation per record.
	CodeSimulationAlreadyRun Code = "simulation_already_run"
	// CodeSimulationNotRun is returned when a score operation needs a
	// simulation result that does not exist yet.
	CodeSimulationNotRun Code = "simulation_not_run"
	// CodeUnknownRequest marks an oracle callback whose request id was never
	// issued or has already been consumed.
	CodeUnknownRequest Code = "unknown_request"
	// CodeInvalidProof marks an oracle callback whose proof failed
	// verification. Distinguishable from CodeUnknownRequest so monitors can
	// tell forged callbacks apart from stale duplicates.
	CodeInvalidProof Code = "invalid_proof"
	// CodeLedgerExhausted signals request-id-space exhaustion. Fatal resource
	// condition, not expected in practice.
	CodeLedgerExhausted Code = "ledger_exhausted"

	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeInternal     Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf extracts the code from err, or CodeInternal when err is not a
// domain error.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeInternal
}
