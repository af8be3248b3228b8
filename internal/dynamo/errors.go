package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for control allocation.
var (
	// ErrInvalidParameter indicates a bad scalar configuration value,
	// e.g. a non-positive optimal force.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrUnresolvedReference indicates an actuator identity that cannot be
	// matched in the model.
	ErrUnresolvedReference = errors.New("dynamo: unresolved reference")

	// ErrActuatorResolution indicates an actuator label that is missing or
	// ambiguous in the model's actuator namespace.
	ErrActuatorResolution = errors.New("dynamo: actuator label missing or ambiguous")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// number of controlled actuators.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrUnmatchedColumn indicates a tabulated column with no matching actuator.
	ErrUnmatchedColumn = errors.New("dynamo: column has no matching actuator")

	// ErrControllerNotReady indicates an evaluation requested before the
	// controller was fully configured.
	ErrControllerNotReady = errors.New("dynamo: controller not ready")

	// ErrNegativeEntry indicates negative or non-finite data where
	// non-negative values are required.
	ErrNegativeEntry = errors.New("dynamo: negative or non-finite entry")

	// ErrNotIncreasing indicates sample times that are not strictly increasing.
	ErrNotIncreasing = errors.New("dynamo: sample times not strictly increasing")
)

// ActuatorError wraps an error with the actuator it concerns.
type ActuatorError struct {
	Actuator string
	Time     float64
	Wrapped  error
}

func (e *ActuatorError) Error() string {
	return fmt.Sprintf("actuator %s (t=%.4f): %v", e.Actuator, e.Time, e.Wrapped)
}

func (e *ActuatorError) Unwrap() error {
	return e.Wrapped
}

// ColumnError wraps an error with the table column it concerns.
type ColumnError struct {
	Column  string
	Wrapped error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Wrapped)
}

func (e *ColumnError) Unwrap() error {
	return e.Wrapped
}
