// Package errors provides error types and handling for the endpoint analyzer.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Config represents a missing or malformed configuration.
	Config
	// Source represents a source file that cannot be read or decoded.
	Source
	// Network represents network-related errors (DNS, connection).
	Network
	// Timeout represents timeout errors.
	Timeout
	// RateLimit represents rate limiting (429) errors.
	RateLimit
	// Auth represents authentication/authorization errors (401, 403).
	Auth
	// ServerError represents 5xx errors, including provider overload.
	ServerError
	// ClientError represents other 4xx errors.
	ClientError
	// Response represents a model response that is not the expected shape.
	Response
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Config:
		return "config"
	case Source:
		return "source"
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case RateLimit:
		return "rate_limit"
	case Auth:
		return "auth"
	case ServerError:
		return "server_error"
	case ClientError:
		return "client_error"
	case Response:
		return "response"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsRetryable returns whether errors of this type should be retried.
func (t ErrorType) IsRetryable() bool {
	switch t {
	case Network, Timeout, RateLimit, ServerError:
		return true
	default:
		return false
	}
}

// IsFatal reports whether errors of this type abort a whole run. Everything
// else is confined to the chunk that produced it.
func (t ErrorType) IsFatal() bool {
	return t == Config || t == Source
}

// AnalysisError represents a categorized analysis error.
type AnalysisError struct {
	Type       ErrorType
	Target     string // file path, config path or provider URL
	Operation  string
	Message    string
	Cause      error
	StatusCode int
	Retryable  bool
	RetryAfter time.Duration // server hint on rate limit responses
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s on %s: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.Target, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s on %s: %s",
		e.Type.String(), e.Operation, e.Target, e.Message)
}

// Short returns a single-line message without the cause chain.
func (e *AnalysisError) Short() string {
	if e.Target == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Target)
}

// Unwrap returns the underlying error.
func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new AnalysisError.
func New(errType ErrorType, target, operation, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Type:      errType,
		Target:    target,
		Operation: operation,
		Message:   message,
		Cause:     cause,
		Retryable: errType.IsRetryable(),
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(path, message string, cause error) *AnalysisError {
	return New(Config, path, "load_config", message, cause)
}

// NewSourceError creates a source read error.
func NewSourceError(path, message string, cause error) *AnalysisError {
	return New(Source, path, "load_source", message, cause)
}

// NewNetworkError creates a network error.
func NewNetworkError(target, operation string, cause error) *AnalysisError {
	return New(Network, target, operation, "network failure", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(target, operation string, cause error) *AnalysisError {
	return New(Timeout, target, operation, "request timed out", cause)
}

// NewRateLimitError creates a rate limit error. retryAfter is the server's
// hint in seconds, 0 when it gave none.
func NewRateLimitError(target string, retryAfter int) *AnalysisError {
	message := "rate limited"
	if retryAfter > 0 {
		message = fmt.Sprintf("rate limited, retry after %ds", retryAfter)
	}
	err := New(RateLimit, target, "complete", message, nil)
	err.StatusCode = 429
	err.RetryAfter = time.Duration(retryAfter) * time.Second
	return err
}

// NewAuthError creates an authentication error.
func NewAuthError(target string, statusCode int, message string) *AnalysisError {
	err := New(Auth, target, "complete", message, nil)
	err.StatusCode = statusCode
	return err
}

// NewServerError creates a server error.
func NewServerError(target string, statusCode int, message string) *AnalysisError {
	err := New(ServerError, target, "complete", message, nil)
	err.StatusCode = statusCode
	return err
}

// NewClientError creates a client error.
func NewClientError(target string, statusCode int, message string) *AnalysisError {
	err := New(ClientError, target, "complete", message, nil)
	err.StatusCode = statusCode
	return err
}

// NewResponseError creates an error for a malformed model response.
func NewResponseError(target, message string, cause error) *AnalysisError {
	return New(Response, target, "parse_response", message, cause)
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(target, operation string) *AnalysisError {
	return New(Cancelled, target, operation, "operation cancelled", nil)
}

// Categorize determines the error type from a generic error.
func Categorize(err error, target string) *AnalysisError {
	if err == nil {
		return nil
	}

	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(target, "complete")
	}

	if isTimeout(err) {
		return NewTimeoutError(target, "complete", err)
	}

	if isNetworkError(err) {
		return NewNetworkError(target, "complete", err)
	}

	return New(Unknown, target, "complete", err.Error(), err)
}

// CategorizeHTTPStatus creates an error from an HTTP status code. 529 is the
// overload status some model providers use.
func CategorizeHTTPStatus(statusCode int, target string) *AnalysisError {
	switch {
	case statusCode == 401:
		return NewAuthError(target, statusCode, "unauthorized")
	case statusCode == 403:
		return NewAuthError(target, statusCode, "forbidden")
	case statusCode == 429:
		return NewRateLimitError(target, 0)
	case statusCode >= 500:
		return NewServerError(target, statusCode, fmt.Sprintf("server returned %d", statusCode))
	case statusCode >= 400:
		return NewClientError(target, statusCode, fmt.Sprintf("client error %d", statusCode))
	default:
		return nil
	}
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp")
}

// IsRetryable checks if an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Retryable
	}

	return isTimeout(err) || isNetworkError(err)
}

// IsRateLimitError checks if an error is rate limiting.
func IsRateLimitError(err error) bool {
	return GetErrorType(err) == RateLimit
}

// GetStatusCode extracts the status code from an error.
func GetStatusCode(err error) int {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.StatusCode
	}
	return 0
}

// RetryAfter returns the server's retry hint, or zero.
func RetryAfter(err error) time.Duration {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.RetryAfter
	}
	return 0
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Type
	}
	return Unknown
}

// Summary returns the concise one-line form of err used for user-facing
// failure messages.
func Summary(err error) string {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr.Short()
	}
	return err.Error()
}
