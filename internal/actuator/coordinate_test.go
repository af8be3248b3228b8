package actuator

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/san-kum/actuate/internal/dynamo"
)

type coords []string

func (c coords) CoordinateIndex(name string) (int, error) {
	for i, n := range c {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no coordinate %q", name)
}

func connected(t *testing.T, coordinate string, index int) *CoordinateActuator {
	t.Helper()
	a := NewCoordinateActuator("act", coordinate)
	if err := a.Connect(coords{"q0", "q1"}, index); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return a
}

func TestSetOptimalForce(t *testing.T) {
	a := NewCoordinateActuator("a", "q0")
	if a.OptimalForce() != DefaultOptimalForce {
		t.Errorf("default optimal force = %f", a.OptimalForce())
	}

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := a.SetOptimalForce(v); !errors.Is(err, dynamo.ErrInvalidParameter) {
			t.Errorf("SetOptimalForce(%v) err = %v, want ErrInvalidParameter", v, err)
		}
	}
	if a.OptimalForce() != DefaultOptimalForce {
		t.Error("rejected value must not change optimal force")
	}

	if err := a.SetOptimalForce(250); err != nil {
		t.Fatal(err)
	}
	if a.OptimalForce() != 250 {
		t.Errorf("optimal force = %f, want 250", a.OptimalForce())
	}
}

func TestComputeActuation(t *testing.T) {
	tests := []struct {
		optimal float64
		control float64
	}{
		{1.0, 0.5},
		{100, 0.25},
		{10, -0.3},
		{2, 1.7},
	}

	for _, tt := range tests {
		a := connected(t, "q1", 0)
		if err := a.SetOptimalForce(tt.optimal); err != nil {
			t.Fatal(err)
		}
		s := dynamo.NewState(0, 2)
		s.Controls = dynamo.Control{tt.control}

		want := tt.control * tt.optimal
		if got := a.ComputeActuation(s); math.Abs(got-want) > 1e-12 {
			t.Errorf("ComputeActuation = %f, want %f", got, want)
		}

		mobility := make([]float64, 2)
		if err := a.ComputeForce(s, mobility); err != nil {
			t.Fatal(err)
		}
		if mobility[1] != want || mobility[0] != 0 {
			t.Errorf("mobility = %v, want force on q1", mobility)
		}
		if stress := a.Stress(); math.Abs(stress-math.Abs(want)/tt.optimal) > 1e-12 {
			t.Errorf("Stress = %f", stress)
		}
	}
}

func TestComputeActuation_NotConnected(t *testing.T) {
	a := NewCoordinateActuator("a", "q0")
	s := dynamo.NewState(0, 1)
	s.Controls = dynamo.Control{1}
	if got := a.ComputeActuation(s); got != 0 {
		t.Errorf("unconnected actuation = %f, want 0", got)
	}
}

func TestOverride(t *testing.T) {
	a := connected(t, "q0", 0)
	s := dynamo.NewState(0, 2)
	s.Controls = dynamo.Control{0.5}

	a.SetOverrideValue(-7)
	a.OverrideForce(true)
	if !a.IsOverridden() {
		t.Fatal("expected overridden")
	}

	mobility := make([]float64, 2)
	if err := a.ComputeForce(s, mobility); err != nil {
		t.Fatal(err)
	}
	if a.Force() != -7 || mobility[0] != -7 {
		t.Errorf("force = %f, mobility = %v; want override value", a.Force(), mobility)
	}
	if a.Stress() != 7 {
		t.Errorf("stress = %f, want 7", a.Stress())
	}

	a.OverrideForce(false)
	mobility = make([]float64, 2)
	if err := a.ComputeForce(s, mobility); err != nil {
		t.Fatal(err)
	}
	if a.Force() != 0.5 {
		t.Errorf("force after clearing override = %f", a.Force())
	}
}

func TestComputeForce_UnresolvedCoordinate(t *testing.T) {
	a := NewCoordinateActuator("bad", "missing")
	err := a.Connect(coords{"q0"}, 0)
	if !errors.Is(err, dynamo.ErrUnresolvedReference) {
		t.Fatalf("connect err = %v, want ErrUnresolvedReference", err)
	}

	s := dynamo.NewState(1.5, 1)
	s.Controls = dynamo.Control{0.5}
	mobility := make([]float64, 1)

	err = a.ComputeForce(s, mobility)
	var ae *dynamo.ActuatorError
	if !errors.As(err, &ae) || ae.Actuator != "bad" || ae.Time != 1.5 {
		t.Fatalf("err = %v, want ActuatorError for bad at t=1.5", err)
	}
	if mobility[0] != 0 {
		t.Error("unresolved actuator must not apply force")
	}
	if a.Force() != 0.5 {
		t.Errorf("force should still be cached, got %f", a.Force())
	}

	// Idempotent on repeat.
	if err2 := a.ComputeForce(s, mobility); !errors.Is(err2, dynamo.ErrUnresolvedReference) || mobility[0] != 0 {
		t.Error("repeated evaluation should report the same condition")
	}
}

func TestComputeForce_LazyResolution(t *testing.T) {
	c := coords{"q0"}
	a := NewCoordinateActuator("late", "q1")
	_ = a.Connect(c, 0)

	c = append(c, "q1")
	a.resolver = c

	s := dynamo.NewState(0, 2)
	s.Controls = dynamo.Control{2}
	mobility := make([]float64, 2)
	if err := a.ComputeForce(s, mobility); err != nil {
		t.Fatalf("lazy resolution failed: %v", err)
	}
	if mobility[1] != 2 {
		t.Errorf("mobility = %v", mobility)
	}
}

func TestSpeedAndPower(t *testing.T) {
	a := connected(t, "q1", 0)
	s := dynamo.NewState(0, 2)
	s.U[1] = 3
	s.Controls = dynamo.Control{2}

	if a.Speed(s) != 3 {
		t.Errorf("speed = %f", a.Speed(s))
	}
	if err := a.ComputeForce(s, make([]float64, 2)); err != nil {
		t.Fatal(err)
	}
	if a.Power(s) != 6 {
		t.Errorf("power = %f", a.Power(s))
	}
}

func TestPathDefaults(t *testing.T) {
	a := NewCoordinateActuator("hip_r", "hip")
	if a.Path() != "/forceset/hip_r" {
		t.Errorf("path = %s", a.Path())
	}
	b := NewCoordinateActuator("hip_r", "hip", WithPath("/forceset/legs/hip_r"))
	if b.Path() != "/forceset/legs/hip_r" {
		t.Errorf("path = %s", b.Path())
	}
}
