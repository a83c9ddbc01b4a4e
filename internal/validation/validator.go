// Package validation provides input validation utilities for evaluation
// operations. It implements reusable validators for the checks every
// entry point repeats: non-empty inputs, length consistency, finite
// scores, and bounded parameters such as cutoffs and split fractions.
package validation

import (
	"fmt"
	"math"

	"github.com/paveg/churnscope/internal/errors"
)

// Validator interface for input validation
type Validator interface {
	Validate() error
}

// LengthValidator validates array length consistency
type LengthValidator struct {
	expected int
	actual   int
	op       string
	context  string
}

// NewLengthValidator creates a validator for length consistency
func NewLengthValidator(expected, actual int, op, context string) *LengthValidator {
	return &LengthValidator{
		expected: expected,
		actual:   actual,
		op:       op,
		context:  context,
	}
}

// Validate checks if lengths match
func (v *LengthValidator) Validate() error {
	if v.expected != v.actual {
		message := fmt.Sprintf("%s: expected length %d, got %d", v.context, v.expected, v.actual)
		return errors.NewValidationError(v.op, "", message)
	}
	return nil
}

// NonEmptyValidator rejects zero-length inputs
type NonEmptyValidator struct {
	length int
	op     string
}

// NewNonEmptyValidator creates a validator for empty input checks
func NewNonEmptyValidator(length int, op string) *NonEmptyValidator {
	return &NonEmptyValidator{
		length: length,
		op:     op,
	}
}

// Validate returns an EmptyInput error when there is nothing to evaluate
func (v *NonEmptyValidator) Validate() error {
	if v.length == 0 {
		return errors.NewEmptyInputError(v.op)
	}
	return nil
}

// FiniteValidator rejects NaN values in a score column. Infinite scores
// are allowed: they still order correctly against every cutoff.
type FiniteValidator struct {
	values []float64
	field  string
	op     string
}

// NewFiniteValidator creates a validator that rejects NaN scores
func NewFiniteValidator(values []float64, field, op string) *FiniteValidator {
	return &FiniteValidator{
		values: values,
		field:  field,
		op:     op,
	}
}

// Validate reports the first NaN position
func (v *FiniteValidator) Validate() error {
	for i, value := range v.values {
		if math.IsNaN(value) {
			return errors.NewValidationError(v.op, v.field, fmt.Sprintf("value at index %d is NaN", i))
		}
	}
	return nil
}

// RangeValidator validates that a parameter lies in [min, max], or
// (min, max) when exclusive is set.
type RangeValidator struct {
	value     float64
	min       float64
	max       float64
	exclusive bool
	field     string
	op        string
}

// NewRangeValidator creates a validator for an inclusive range
func NewRangeValidator(value, minValue, maxValue float64, field, op string) *RangeValidator {
	return &RangeValidator{
		value: value,
		min:   minValue,
		max:   maxValue,
		field: field,
		op:    op,
	}
}

// Exclusive switches the validator to an open interval
func (v *RangeValidator) Exclusive() *RangeValidator {
	v.exclusive = true
	return v
}

// Validate checks the bounds
func (v *RangeValidator) Validate() error {
	if math.IsNaN(v.value) {
		return errors.NewValidationError(v.op, v.field, "value is NaN")
	}
	if v.exclusive {
		if v.value <= v.min || v.value >= v.max {
			return errors.NewValidationError(v.op, v.field,
				fmt.Sprintf("must be in (%g, %g), got %g", v.min, v.max, v.value))
		}
		return nil
	}
	if v.value < v.min || v.value > v.max {
		return errors.NewValidationError(v.op, v.field,
			fmt.Sprintf("must be in [%g, %g], got %g", v.min, v.max, v.value))
	}
	return nil
}

// CompoundValidator combines multiple validators
type CompoundValidator struct {
	validators []Validator
}

// NewCompoundValidator creates a validator that checks multiple conditions
func NewCompoundValidator(validators ...Validator) *CompoundValidator {
	return &CompoundValidator{
		validators: validators,
	}
}

// Validate runs all validators and returns the first error encountered
func (v *CompoundValidator) Validate() error {
	for _, validator := range v.validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Convenience validation functions

// ValidateLength is a convenience function for length validation
func ValidateLength(expected, actual int, op, context string) error {
	return NewLengthValidator(expected, actual, op, context).Validate()
}

// ValidateNotEmpty is a convenience function for empty input validation
func ValidateNotEmpty(length int, op string) error {
	return NewNonEmptyValidator(length, op).Validate()
}

// ValidateFinite is a convenience function for NaN checks
func ValidateFinite(values []float64, field, op string) error {
	return NewFiniteValidator(values, field, op).Validate()
}

// ValidateCutoff checks that a cutoff lies in [0, 1]
func ValidateCutoff(cutoff float64, op string) error {
	return NewRangeValidator(cutoff, 0, 1, "cutoff", op).Validate()
}

// ValidateFraction checks that a split fraction lies strictly inside (0, 1)
func ValidateFraction(fraction float64, field, op string) error {
	return NewRangeValidator(fraction, 0, 1, field, op).Exclusive().Validate()
}
