package engine

import (
	"errors"
	"fmt"
)

// UsageError represents a programmer error in test definitions.
//
// Usage errors include:
//   - Missing body: a test, hook or assertion was given a nil function
//   - Duplicate share: the same identifier was shared twice
//   - Unknown share: injecting an identifier that was never shared
//   - Outside test: injecting shared code while no test is executing
//   - No insulated test: injecting shared code with no sandboxed test on the stack
//   - Invalid hook: registering a hook of an unknown kind
//   - Not running: Stop called while no run is in progress
//
// Usage errors are never recorded in the trace. They are raised as panics;
// inside a run they unwind to Run, which returns them.
type UsageError struct {
	// Code identifies the error category.
	Code UsageErrorCode

	// Message is a human-readable description.
	Message string
}

// UsageErrorCode categorizes usage errors.
type UsageErrorCode string

const (
	// ErrCodeMissingBody indicates a nil body, block or hook.
	ErrCodeMissingBody UsageErrorCode = "MISSING_BODY"

	// ErrCodeMissingCondition indicates a boolean assertion with neither
	// a condition value nor a yielding body.
	ErrCodeMissingCondition UsageErrorCode = "MISSING_CONDITION"

	// ErrCodeMissingSymbol indicates an empty catch/throw symbol.
	ErrCodeMissingSymbol UsageErrorCode = "MISSING_SYMBOL"

	// ErrCodeDuplicateShare indicates an identifier was already shared.
	ErrCodeDuplicateShare UsageErrorCode = "DUPLICATE_SHARE"

	// ErrCodeUnknownShare indicates no code is shared under an identifier.
	ErrCodeUnknownShare UsageErrorCode = "UNKNOWN_SHARE"

	// ErrCodeInvalidShareID indicates an identifier that cannot key the registry.
	ErrCodeInvalidShareID UsageErrorCode = "INVALID_SHARE_ID"

	// ErrCodeOutsideTest indicates shared code injected outside any test.
	ErrCodeOutsideTest UsageErrorCode = "OUTSIDE_TEST"

	// ErrCodeNoInsulatedTest indicates shared code injected while no
	// executing test has its own sandbox.
	ErrCodeNoInsulatedTest UsageErrorCode = "NO_INSULATED_TEST"

	// ErrCodeInvalidHook indicates a hook kind outside the four known ones.
	ErrCodeInvalidHook UsageErrorCode = "INVALID_HOOK"

	// ErrCodeNotRunning indicates Stop was called with no run in progress.
	ErrCodeNotRunning UsageErrorCode = "NOT_RUNNING"

	// ErrCodeAlreadyRunning indicates Run was called from inside a run.
	ErrCodeAlreadyRunning UsageErrorCode = "ALREADY_RUNNING"

	// ErrCodeInvalidFilter indicates a malformed focus filter pattern.
	ErrCodeInvalidFilter UsageErrorCode = "INVALID_FILTER"
)

// Error implements the error interface.
func (e *UsageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newUsageError(code UsageErrorCode, format string, args ...any) *UsageError {
	return &UsageError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsUsageError returns true if the error is a usage error.
// Uses errors.As to handle wrapped errors.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// IsNotRunning returns true if the error reports Stop outside a run.
func IsNotRunning(err error) bool {
	var ue *UsageError
	if errors.As(err, &ue) {
		return ue.Code == ErrCodeNotRunning
	}
	return false
}

// PanicError wraps a recovered panic value that is not itself an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// UncaughtThrowError is raised by Throw when no enclosing catch point
// exists for the symbol.
type UncaughtThrowError struct {
	Symbol Symbol
	Value  any
}

func (e *UncaughtThrowError) Error() string {
	return fmt.Sprintf("uncaught throw %q", string(e.Symbol))
}

// stopSignal unwinds a run from Stop back to Run.
type stopSignal struct{}

// thrown carries a Throw to its matching catch point.
type thrown struct {
	symbol Symbol
	value  any
}

// asError converts a recovered panic value into an error.
func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &PanicError{Value: r}
}

// isControl reports whether a recovered value is engine control flow that
// must keep unwinding rather than be treated as a raised error.
func isControl(r any) bool {
	switch r.(type) {
	case stopSignal, *thrown, *UsageError:
		return true
	}
	return false
}
