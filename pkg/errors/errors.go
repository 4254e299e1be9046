// Package errors provides the structured error types used across exhbma.
// Error kinds mirror scikit-learn's exception taxonomy (NotFittedError,
// dimension mismatches, value errors) so that callers coming from the
// Python implementation find the same failure surface.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NotFittedError is returned when Predict, Transform or a fitted-state
// accessor is called before a successful Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("exhbma: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError is returned when input data dimensions disagree with the
// expected shape.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("exhbma: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when an input parameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("exhbma: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError is returned when an argument value is malformed or out of
// the accepted domain.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("exhbma: %s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError with a stack trace attached.
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// InvalidGridError is returned when a hyperparameter grid specification is
// empty, non-positive or otherwise unusable for quadrature.
type InvalidGridError struct {
	GridName string
	Reason   string
}

func (e *InvalidGridError) Error() string {
	return fmt.Sprintf("exhbma: invalid hyperparameter grid '%s': %s", e.GridName, e.Reason)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *InvalidGridError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("grid_name", e.GridName).
		Str("reason", e.Reason).
		Str("type", "InvalidGridError")
}

// NewInvalidGridError creates an InvalidGridError with a stack trace attached.
func NewInvalidGridError(gridName, reason string) error {
	err := &InvalidGridError{GridName: gridName, Reason: reason}
	return errors.WithStack(err)
}

// NumericalInstabilityError is returned when a computation produces NaN or
// Inf, or when a matrix decomposition fails. The offending values are kept
// for diagnostics.
type NumericalInstabilityError struct {
	Operation string
	Values    []float64
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("exhbma: numerical instability detected in %s. Values: [%s]", e.Operation, valStr)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *NumericalInstabilityError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Floats64("values", e.Values).
		Str("type", "NumericalInstabilityError")
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a
// stack trace attached.
func NewNumericalInstabilityError(operation string, values []float64) error {
	err := &NumericalInstabilityError{Operation: operation, Values: values}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches the target error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an existing error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an existing error with a format string.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates an error with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	common sentinel errors
//
// ===========================================================================

var (
	// ErrEmptyData is returned when empty data is passed.
	ErrEmptyData = New("empty data")

	// ErrNotPositiveDefinite is returned when a Cholesky factorization of
	// the posterior precision matrix fails.
	ErrNotPositiveDefinite = New("matrix is not positive definite")
)
