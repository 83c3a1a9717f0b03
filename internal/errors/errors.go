// LOCATION: internal/errors/errors.go
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - HTTPStatus mapping for the API layer
// - Error wrapping utilities

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound         = errors.New("not found")
	ErrMetricNotFound   = errors.New("metric not found")
	ErrSeriesNotFound   = errors.New("series not found")
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// Validation errors
	ErrUnknownLabel    = errors.New("unknown label key")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrInvalidRange    = errors.New("invalid time range")
	ErrInvalidFormat   = errors.New("invalid export format")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingField    = errors.New("missing required field")
	ErrBadParameter    = errors.New("malformed parameter")

	// Internal errors
	ErrInternal = errors.New("internal error")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMetricNotFound) ||
		errors.Is(err, ErrSeriesNotFound) ||
		errors.Is(err, ErrSnapshotNotFound)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrUnknownLabel) ||
		errors.Is(err, ErrInvalidSelector) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsBadRequest returns true if err describes a malformed request rather
// than a semantically invalid one.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrBadParameter)
}

// ============================================================================
// Error to HTTP status mapping
// ============================================================================

// HTTPStatus maps a sentinel error to the HTTP status the API returns.
// Unknown metrics are 404, label and selector validation failures are 422,
// malformed parameters are 400, everything else is 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsBadRequest(err):
		return http.StatusBadRequest
	case IsValidation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewMetricNotFound creates a metric-not-found error with context.
func NewMetricNotFound(name string) error {
	return fmt.Errorf("metric '%s': %w", name, ErrMetricNotFound)
}

// NewUnknownLabel creates an unknown-label error naming the offending key.
func NewUnknownLabel(metric, key string) error {
	return fmt.Errorf("metric '%s' does not accept label '%s': %w", metric, key, ErrUnknownLabel)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidConfig)
}

// NewInvalidRange creates a time range error.
func NewInvalidRange(fromMs, toMs int64) error {
	return fmt.Errorf("from %d > to %d: %w", fromMs, toMs, ErrInvalidRange)
}

// NewBadParameter creates a malformed parameter error.
func NewBadParameter(name, reason string) error {
	return fmt.Errorf("parameter '%s' %s: %w", name, reason, ErrBadParameter)
}

// NewInvalidFormat creates an unsupported export format error.
func NewInvalidFormat(format string) error {
	return fmt.Errorf("format '%s' not supported: %w", format, ErrInvalidFormat)
}

// NewLabelOutsideUniverse creates an error for a label key outside the
// global allowed set.
func NewLabelOutsideUniverse(key string) error {
	return fmt.Errorf("label '%s' is not in the global allowed label set: %w", key, ErrUnknownLabel)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// AddMissing adds a missing field error.
func (v *ValidationErrors) AddMissing(field string) {
	v.Errors = append(v.Errors, NewMissingField(field))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
