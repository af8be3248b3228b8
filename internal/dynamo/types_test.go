package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state *State
		valid bool
	}{
		{"empty", NewState(0, 0), true},
		{"normal", &State{Time: 1, Q: []float64{1, 2}, U: []float64{0, 0}}, true},
		{"nan time", &State{Time: math.NaN()}, false},
		{"nan coordinate", &State{Q: []float64{1, math.NaN()}}, false},
		{"inf speed", &State{U: []float64{math.Inf(1)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Inputs(t *testing.T) {
	s := &State{}
	if s.Input("missing") != 0 {
		t.Error("missing input should read as zero")
	}

	s.SetInput("b", 2)
	s.SetInput("a", 1)
	if s.Input("b") != 2 {
		t.Errorf("expected 2, got %f", s.Input("b"))
	}

	names := s.InputNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("unexpected input names %v", names)
	}
}

func TestState_Clone(t *testing.T) {
	s := NewState(0.5, 2)
	s.Q[0] = 1
	s.SetInput("x", 3)
	s.Controls = Control{0.1}

	c := s.Clone()
	c.Q[0] = 99
	c.Inputs["x"] = 99
	c.Controls[0] = 99

	if s.Q[0] != 1 || s.Input("x") != 3 || s.Controls[0] != 0.1 {
		t.Error("Clone did not create independent copy")
	}
}

func TestControl_Norm(t *testing.T) {
	if got := (Control{3, 4}).Norm(); math.Abs(got-5) > 1e-12 {
		t.Errorf("Norm = %f, want 5", got)
	}
}

func TestActuatorError(t *testing.T) {
	err := &ActuatorError{Actuator: "hip_r", Time: 1.5, Wrapped: ErrUnresolvedReference}
	expected := "actuator hip_r (t=1.5000): dynamo: unresolved reference"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Error("ActuatorError should unwrap to its sentinel")
	}
}

func TestColumnError(t *testing.T) {
	var err error = &ColumnError{Column: "z", Wrapped: ErrUnmatchedColumn}
	var ce *ColumnError
	if !errors.As(err, &ce) || ce.Column != "z" {
		t.Fatalf("errors.As failed for %v", err)
	}
	if !errors.Is(err, ErrUnmatchedColumn) {
		t.Error("ColumnError should unwrap to its sentinel")
	}
}
