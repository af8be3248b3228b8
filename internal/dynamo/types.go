package dynamo

import (
	"math"
	"sort"
)

// State is the context of one evaluation. Q and U are coordinate values and
// speeds indexed like the model's coordinate table. Inputs carries values
// supplied by an external solver (synergy excitations), keyed by input
// path. Controls is the model-wide control vector indexed like the model's
// actuator table; the model fills it before actuators compute forces.
type State struct {
	Time     float64
	Q        []float64
	U        []float64
	Inputs   map[string]float64
	Controls Control
}

func NewState(t float64, numCoordinates int) *State {
	return &State{
		Time:   t,
		Q:      make([]float64, numCoordinates),
		U:      make([]float64, numCoordinates),
		Inputs: make(map[string]float64),
	}
}

func (s *State) Clone() *State {
	c := &State{
		Time:     s.Time,
		Q:        append([]float64(nil), s.Q...),
		U:        append([]float64(nil), s.U...),
		Inputs:   make(map[string]float64, len(s.Inputs)),
		Controls: s.Controls.Clone(),
	}
	for k, v := range s.Inputs {
		c.Inputs[k] = v
	}
	return c
}

// Input returns the named input, or 0 when the solver did not supply it.
func (s *State) Input(name string) float64 {
	if s.Inputs == nil {
		return 0
	}
	return s.Inputs[name]
}

func (s *State) SetInput(name string, value float64) {
	if s.Inputs == nil {
		s.Inputs = make(map[string]float64)
	}
	s.Inputs[name] = value
}

// InputNames returns the supplied input names in sorted order.
func (s *State) InputNames() []string {
	names := make([]string, 0, len(s.Inputs))
	for k := range s.Inputs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *State) IsValid() bool {
	if math.IsNaN(s.Time) || math.IsInf(s.Time, 0) {
		return false
	}
	for _, v := range s.Q {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range s.U {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

func (c Control) Clone() Control {
	if c == nil {
		return nil
	}
	out := make(Control, len(c))
	copy(out, c)
	return out
}

func (c Control) Norm() float64 {
	sum := 0.0
	for _, v := range c {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Controller produces one control value per controlled actuator, in the
// order of Actuators.
type Controller interface {
	Name() string
	Actuators() []int
	ComputeControls(s *State) (Control, error)
}

// CoordinateResolver looks up coordinates by name.
type CoordinateResolver interface {
	CoordinateIndex(name string) (int, error)
}

// ActuatorResolver looks up actuators in a model's actuator namespace.
// ActuatorIndex matches a short name first and falls back to the
// absolute path.
type ActuatorResolver interface {
	ActuatorIndex(label string) (int, error)
	ActuatorName(index int) string
	ActuatorPath(index int) string
	NumActuators() int
}

// Actuator converts its entry of State.Controls into a generalized force.
type Actuator interface {
	Name() string
	Path() string
	Connect(r CoordinateResolver, index int) error
	ComputeForce(s *State, mobility []float64) error
	Force() float64
	Stress() float64
}

type Metric interface {
	Name() string
	Observe(s *State, u Control, forces []float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s *State, u Control, forces []float64)
}
