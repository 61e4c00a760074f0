package errors

import (
	"errors"
	"fmt"
)

// Generic sentinels shared by repositories and handlers

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Prediction pipeline errors. Only ErrNoInput is surfaced to callers as a
// client error; everything else collapses into a generic processing failure.

var (
	// ErrNoInput indicates the request carried no usable payload
	ErrNoInput = errors.New("no input data")

	// ErrMalformedPayload indicates the payload is not a JSON object
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrScaling indicates the scaler failed to transform the feature vector
	ErrScaling = errors.New("feature scaling failed")

	// ErrPrediction indicates the classifier failed to produce an outcome
	ErrPrediction = errors.New("prediction failed")

	// ErrNonFiniteFeature indicates a NaN or Inf reached the classifier input
	ErrNonFiniteFeature = errors.New("non-finite feature value")
)

// Artifact errors raised while loading the model at startup

var (
	// ErrArtifactMissing indicates a model or scaler file is absent
	ErrArtifactMissing = errors.New("model artifact missing")

	// ErrArtifactIncompatible indicates the classifier and scaler disagree on features
	ErrArtifactIncompatible = errors.New("model artifacts incompatible")

	// ErrUnsupportedArtifact indicates an artifact format the loader cannot read
	ErrUnsupportedArtifact = errors.New("unsupported model artifact")
)

// ValidationError represents a validation error with field-specific details.
// The prediction pipeline uses it for values that cannot be coerced to numbers.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap ties every validation error to ErrInvalidInput
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors into one
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
