package system

import (
	"errors"
	"fmt"
)

// Error kinds shared by every pipeline. Match them with errors.Is.
var (
	// ErrDimension indicates a q, qd, state or action vector of the wrong size.
	ErrDimension = errors.New("rigidsim: dimension mismatch")

	// ErrConfiguration indicates a system description that cannot be simulated.
	ErrConfiguration = errors.New("rigidsim: invalid system configuration")

	// ErrNumerical indicates a singular mass matrix or non-finite accelerations.
	ErrNumerical = errors.New("rigidsim: numerical failure")
)

type DimensionError struct {
	Field string
	Got   int
	Want  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s has length %d, want %d", e.Field, e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimension
}

// ConfigurationError reports which part of a system description is invalid.
// Index is -1 when the problem is not tied to one element.
type ConfigurationError struct {
	Component string
	Index     int
	Reason    string
}

func (e *ConfigurationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Component, e.Reason)
	}
	return fmt.Sprintf("%s %d: %s", e.Component, e.Index, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

type NumericalError struct {
	Stage  string
	Reason string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Stage, e.Reason)
}

func (e *NumericalError) Unwrap() error {
	return ErrNumerical
}

func configErr(component string, index int, format string, args ...any) error {
	return &ConfigurationError{Component: component, Index: index, Reason: fmt.Sprintf(format, args...)}
}
