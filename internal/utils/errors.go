// Package utils provides logging and error handling utilities shared by
// the tag-management runtime.
package utils

import (
	"fmt"
	"time"
)

// ErrorSeverity represents the severity level of an error.
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity.
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode categorizes runtime failures. The codes mirror the failure
// modes of the collection pipeline: selector resolution, value coercion,
// security gating, event delivery and configuration retrieval.
type ErrorCode string

const (
	// Extraction related errors
	ErrCodeSelectorNotFound ErrorCode = "SELECTOR_NOT_FOUND"
	ErrCodeSelectorInvalid  ErrorCode = "SELECTOR_INVALID"
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"

	// Security gating
	ErrCodeSecurityReject ErrorCode = "SECURITY_REJECT"

	// Delivery related errors
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Configuration related errors
	ErrCodeConfigUnavailable ErrorCode = "CONFIG_UNAVAILABLE"
	ErrCodeInvalidConfig     ErrorCode = "INVALID_CONFIG"

	// Pixel runtime errors
	ErrCodePixelLoadFailed ErrorCode = "PIXEL_LOAD_FAILED"

	// Generic errors
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
)

// StructuredError carries an error code, severity and optional context so
// callers can branch on failure class without string matching.
type StructuredError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Severity  ErrorSeverity          `json:"severity"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is matches on error code, so errors.Is works against code sentinels.
func (e *StructuredError) Is(target error) bool {
	if se, ok := target.(*StructuredError); ok {
		return e.Code == se.Code
	}
	return false
}

// WithContext adds contextual information to the error.
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *StructuredError) WithCause(cause error) *StructuredError {
	e.Cause = cause
	return e
}

// NewError creates a structured error with the given code and message.
func NewError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:      code,
		Message:   message,
		Severity:  severityFor(code),
		Timestamp: time.Now(),
	}
}

// NewErrorf creates a structured error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...interface{}) *StructuredError {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeSentinel returns a comparison target for errors.Is checks.
func CodeSentinel(code ErrorCode) error {
	return &StructuredError{Code: code}
}

// severityFor assigns the default severity for a code. Only configuration
// loss is critical: it disables the pipeline for the rest of the page.
func severityFor(code ErrorCode) ErrorSeverity {
	switch code {
	case ErrCodeConfigUnavailable:
		return SeverityCritical
	case ErrCodeSelectorNotFound, ErrCodeExtractionFailed:
		return SeverityWarning
	case ErrCodeSecurityReject:
		return SeverityInfo
	default:
		return SeverityError
	}
}
