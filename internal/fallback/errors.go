package fallback

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFallbacks is the terminal error of Generate: neither a
	// single strategy nor the hybrid could serve the request.
	ErrInsufficientFallbacks = errors.New("insufficient fallbacks")

	// ErrFallbackUnavailable means a strategy stopped being available between
	// selection and invocation. The orchestrator reselects without it.
	ErrFallbackUnavailable = errors.New("fallback strategy unavailable")

	// ErrNotApplicable is returned by a strategy that has nothing useful to
	// say about the request (e.g. no cached category matches).
	ErrNotApplicable = errors.New("fallback strategy not applicable")

	// ErrStateCorruption marks an internal invariant violation. Once seen, the
	// orchestrator stops accepting Generate calls.
	ErrStateCorruption = errors.New("fallback state corruption")
)

// CallerInputError reports a malformed request. It never triggers fallback.
type CallerInputError struct {
	Field  string
	Reason string
	Err    error
}

func (e *CallerInputError) Error() string {
	msg := "invalid request"
	if e.Field != "" {
		msg = fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
	} else if e.Reason != "" {
		msg = "invalid request: " + e.Reason
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CallerInputError) Unwrap() error {
	return e.Err
}

// IsCallerInputError reports whether err is (or wraps) a CallerInputError.
func IsCallerInputError(err error) bool {
	var target *CallerInputError
	return errors.As(err, &target)
}
