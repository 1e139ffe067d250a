// Package calcerr defines the error taxonomy shared by the royalty engine.
//
// Input errors (ParseError, ValidationError) are the caller's fault and are
// raised before any arithmetic happens. ConfigurationError reports a broken
// contract or ownership invariant and is always fatal to one calculation.
package calcerr

import (
	"errors"
	"fmt"
)

type Class string

const (
	ClassInput         Class = "input"
	ClassConfiguration Class = "configuration"
	ClassInternal      Class = "internal"
)

var ErrMalformedDecimal = errors.New("malformed_decimal")

// ParseError reports a value that could not be parsed as a decimal.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a well-formed value that is out of range.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigurationError reports a contract or ownership invariant violation.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "contract configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("contract configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func Misconfigured(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}

// Classify maps an error onto the engine taxonomy.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	var parseErr *ParseError
	var validationErr *ValidationError
	var configErr *ConfigurationError
	switch {
	case errors.As(err, &configErr):
		return ClassConfiguration
	case errors.As(err, &parseErr), errors.As(err, &validationErr):
		return ClassInput
	default:
		return ClassInternal
	}
}

func IsInput(err error) bool { return Classify(err) == ClassInput }

func IsConfiguration(err error) bool { return Classify(err) == ClassConfiguration }
