package sim

import (
	"fmt"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/model"
)

// Realizer evaluates one state of a model.
type Realizer interface {
	NewState(t float64) *dynamo.State
	Realize(s *dynamo.State) (*model.Realization, error)
}

type Config struct {
	Start    float64
	Duration float64
	Dt       float64
	// StopOnReport ends the run at the first reported actuator condition.
	StopOnReport bool
}

func DefaultConfig() Config {
	return Config{
		Dt:       0.01,
		Duration: 1.0,
	}
}

type Result struct {
	Times    []float64
	Controls []dynamo.Control
	Forces   [][]float64
	Mobility [][]float64
	Metrics  map[string]float64
	// Reports holds per-actuator conditions from every step.
	Reports    []error
	StepsTaken int
}

// StepError wraps an error with the step it occurred at.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
