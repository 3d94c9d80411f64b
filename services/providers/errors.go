package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// FailureKind is the closed set of reasons a model call can fail.
type FailureKind string

const (
	KindTimeout        FailureKind = "timeout"
	KindRateLimited    FailureKind = "rate_limited"
	KindQuotaExceeded  FailureKind = "quota_exceeded"
	KindConnection     FailureKind = "connection"
	KindInvalidRequest FailureKind = "invalid_request"
	KindCanceled       FailureKind = "canceled"
	KindUnknown        FailureKind = "unknown"
)

// Qualifies reports whether the kind counts toward primary degradation.
func (k FailureKind) Qualifies() bool {
	switch k {
	case KindTimeout, KindRateLimited, KindQuotaExceeded, KindConnection:
		return true
	}
	return false
}

// ProviderError represents an error from a provider
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Kind classifies the failure
	Kind FailureKind

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, kind FailureKind, statusCode int, message string, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// KindFromStatus maps an HTTP status and response body to a failure kind.
func KindFromStatus(status int, body string) FailureKind {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusTooManyRequests:
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") {
			return KindQuotaExceeded
		}
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		// includes Anthropic's 529 overloaded
		return KindConnection
	case status == http.StatusBadRequest, status == http.StatusNotFound,
		status == http.StatusRequestEntityTooLarge, status == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	}
	return KindUnknown
}

// KindOf classifies any error returned by a model call.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Kind != "" {
		return provErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindConnection
	}

	return KindUnknown
}

// Classify wraps err into a ProviderError, keeping an existing classification.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return err
	}
	return NewProviderError(provider, KindOf(err), 0, "request failed", err)
}
