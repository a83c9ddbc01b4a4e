// Package errors provides standardized error types for churn evaluation.
// This package defines EvalError for consistent error handling across
// all public APIs, with operation context, a distinguishable kind, and
// error wrapping support.
package errors

import (
	"fmt"
)

// Kind classifies an evaluation failure so callers can branch on it.
type Kind int

const (
	// KindUnknown is the zero value and never produced by this module.
	KindUnknown Kind = iota
	// KindEmptyInput reports a prediction sequence with zero elements.
	KindEmptyInput
	// KindInsufficientData reports that one of the two classes has no members.
	KindInsufficientData
	// KindUndefinedMetric reports a metric whose denominator is zero.
	KindUndefinedMetric
	// KindInvalidInput reports malformed arguments (NaN scores, bad cutoffs, length mismatches).
	KindInvalidInput
	// KindInvalidRecord reports a dataset row that failed load-time validation.
	KindInvalidRecord
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindEmptyInput:
		return "empty input"
	case KindInsufficientData:
		return "insufficient data"
	case KindUndefinedMetric:
		return "undefined metric"
	case KindInvalidInput:
		return "invalid input"
	case KindInvalidRecord:
		return "invalid record"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// EvalError represents standardized errors across all evaluation operations
type EvalError struct {
	Op      string // Operation name (e.g., "Confusion", "ROC", "LoadCSV")
	Kind    Kind   // Failure class
	Field   string // Metric or column name if applicable
	Message string // Human-readable error description
	Cause   error  // Underlying error cause
}

// Error implements the error interface
func (e *EvalError) Error() string {
	var msg string
	if e.Field != "" {
		msg = fmt.Sprintf("%s failed on '%s': %s: %s", e.Op, e.Field, e.Kind, e.Message)
	} else {
		msg = fmt.Sprintf("%s failed: %s: %s", e.Op, e.Kind, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for error wrapping support
func (e *EvalError) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// A target carrying only a Kind (the predefined sentinels) matches any
// error of that kind; otherwise Op, Kind, Field and Message must all match.
func (e *EvalError) Is(target error) bool {
	t, ok := target.(*EvalError)
	if !ok {
		return false
	}
	if t.Op == "" && t.Field == "" && t.Message == "" {
		return e.Kind == t.Kind
	}
	return e.Op == t.Op && e.Kind == t.Kind && e.Field == t.Field && e.Message == t.Message
}

// Common error constructors for consistent error creation

// NewEmptyInputError creates an error for operations on an empty prediction set
func NewEmptyInputError(op string) *EvalError {
	return &EvalError{
		Op:      op,
		Kind:    KindEmptyInput,
		Message: "prediction sequence has no elements",
	}
}

// NewInsufficientDataError creates an error for single-class inputs
func NewInsufficientDataError(op, message string) *EvalError {
	return &EvalError{
		Op:      op,
		Kind:    KindInsufficientData,
		Message: message,
	}
}

// NewUndefinedMetricError creates an error for a metric with a zero denominator
func NewUndefinedMetricError(op, metric, message string) *EvalError {
	return &EvalError{
		Op:      op,
		Kind:    KindUndefinedMetric,
		Field:   metric,
		Message: message,
	}
}

// NewInvalidInputError creates an error for invalid operation inputs
func NewInvalidInputError(op, message string) *EvalError {
	return &EvalError{
		Op:      op,
		Kind:    KindInvalidInput,
		Message: message,
	}
}

// NewValidationError creates an error for a field that failed validation
func NewValidationError(op, field, message string) *EvalError {
	return &EvalError{
		Op:      op,
		Kind:    KindInvalidInput,
		Field:   field,
		Message: message,
	}
}

// NewInvalidRecordError creates an error for a dataset row that failed validation
func NewInvalidRecordError(op, column string, row int, cause error) *EvalError {
	return &EvalError{
		Op:      op,
		Kind:    KindInvalidRecord,
		Field:   column,
		Message: rowMessage(row),
		Cause:   cause,
	}
}

func rowMessage(row int) string {
	if row <= 0 {
		return "record rejected"
	}
	return fmt.Sprintf("row %d rejected", row)
}

// Predefined error variables for matching with errors.Is
var (
	// ErrEmptyInput matches any EmptyInput failure
	ErrEmptyInput = &EvalError{Kind: KindEmptyInput}

	// ErrInsufficientData matches any InsufficientData failure
	ErrInsufficientData = &EvalError{Kind: KindInsufficientData}

	// ErrUndefinedMetric matches any UndefinedMetric failure
	ErrUndefinedMetric = &EvalError{Kind: KindUndefinedMetric}

	// ErrInvalidInput matches any InvalidInput failure
	ErrInvalidInput = &EvalError{Kind: KindInvalidInput}

	// ErrInvalidRecord matches any InvalidRecord failure
	ErrInvalidRecord = &EvalError{Kind: KindInvalidRecord}
)
