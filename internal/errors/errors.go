// Package errors provides error classification for the vendor-fetch
// boundary. Classifying a failure as retryable or permanent lets the retry
// loop distinguish transient network trouble from errors that will never
// succeed no matter how often they are retried.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorType represents the classification of an error.
type ErrorType string

const (
	// Retryable error types.
	ErrorTypeNetwork     ErrorType = "network"      // Network connectivity issues
	ErrorTypeTimeout     ErrorType = "timeout"      // Request timeout
	ErrorTypeRateLimit   ErrorType = "rate_limit"   // Rate limiting from the vendor
	ErrorTypeServerError ErrorType = "server_error" // Vendor-side 5xx failures
	ErrorTypeTemporary   ErrorType = "temporary"    // Other transient failures

	// Non-retryable error types.
	ErrorTypeAuthentication ErrorType = "authentication" // Credential failures
	ErrorTypeBadRequest     ErrorType = "bad_request"    // Invalid request parameters
	ErrorTypeValidation     ErrorType = "validation"     // Data validation failures

	ErrorTypeUnknown ErrorType = "unknown" // Unclassified errors
)

// ClassifiedError wraps an error with the metadata the retry loop needs.
type ClassifiedError struct {
	Err       error     `json:"error"`
	Type      ErrorType `json:"type"`
	Retryable bool      `json:"retryable"`
	Operation string    `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", ce.Type, ce.Operation, ce.Err)
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// NewClassifiedError creates a classified error with an explicit type.
func NewClassifiedError(err error, errType ErrorType, operation string) *ClassifiedError {
	return &ClassifiedError{
		Err:       err,
		Type:      errType,
		Retryable: isRetryableType(errType),
		Operation: operation,
		Timestamp: time.Now().UTC(),
	}
}

// Classify inspects an error and wraps it with its most likely type. Already
// classified errors pass through unchanged.
func Classify(err error, operation string) *ClassifiedError {
	if err == nil {
		return nil
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}

	return NewClassifiedError(err, classifyType(err), operation)
}

// IsRetryable reports whether the error is worth retrying. Unclassified
// errors default to retryable: transient vendor trouble is the common case
// at this boundary.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return isRetryableType(classifyType(err))
}

func classifyType(err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"):
		return ErrorTypeRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return ErrorTypeTimeout
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return ErrorTypeNetwork
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "forbidden"),
		strings.Contains(msg, "authentication"):
		return ErrorTypeAuthentication
	case strings.Contains(msg, "bad request"), strings.Contains(msg, "invalid"):
		return ErrorTypeBadRequest
	case strings.Contains(msg, "server error"), strings.Contains(msg, "unavailable"):
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

func isRetryableType(t ErrorType) bool {
	switch t {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeRateLimit,
		ErrorTypeServerError, ErrorTypeTemporary, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}
