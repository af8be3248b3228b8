package actuator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/dynamo"
)

const DefaultOptimalForce = 1.0

// CoordinateActuator applies a generalized force along a single coordinate.
// The force is the actuator's control scaled by its optimal force, unless
// the force has been overridden.
type CoordinateActuator struct {
	name         string
	path         string
	coordinate   string
	optimalForce float64

	resolver dynamo.CoordinateResolver
	index    int
	coord    int

	overridden    bool
	overrideValue float64
	force         float64

	logger *zap.Logger
}

type Option func(*CoordinateActuator)

// WithPath sets the absolute path; the default is /forceset/<name>.
func WithPath(path string) Option {
	return func(a *CoordinateActuator) { a.path = path }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *CoordinateActuator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewCoordinateActuator creates an unconnected actuator driving the named
// coordinate, with unit optimal force.
func NewCoordinateActuator(name, coordinate string, opts ...Option) *CoordinateActuator {
	a := &CoordinateActuator{
		name:         name,
		path:         "/forceset/" + name,
		coordinate:   coordinate,
		optimalForce: DefaultOptimalForce,
		index:        -1,
		coord:        -1,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *CoordinateActuator) Name() string       { return a.name }
func (a *CoordinateActuator) Path() string       { return a.path }
func (a *CoordinateActuator) Coordinate() string { return a.coordinate }
func (a *CoordinateActuator) Index() int         { return a.index }

func (a *CoordinateActuator) OptimalForce() float64 { return a.optimalForce }

func (a *CoordinateActuator) SetOptimalForce(v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: optimal force of %s must be positive, got %g",
			dynamo.ErrInvalidParameter, a.name, v)
	}
	a.optimalForce = v
	return nil
}

// SetCoordinate changes the textual coordinate reference. The actuator must
// be connected again for the change to take effect.
func (a *CoordinateActuator) SetCoordinate(name string) {
	a.coordinate = name
	a.coord = -1
}

// Connect binds the actuator to its slot in the model's actuator table and
// resolves the coordinate. The returned error wraps
// dynamo.ErrUnresolvedReference when the coordinate is missing; the
// actuator stays connected and retries resolution on its next force
// computation.
func (a *CoordinateActuator) Connect(r dynamo.CoordinateResolver, index int) error {
	a.resolver = r
	a.index = index
	a.coord = -1
	return a.resolve(math.NaN())
}

func (a *CoordinateActuator) resolve(t float64) error {
	if a.resolver == nil {
		return &dynamo.ActuatorError{Actuator: a.name, Time: t,
			Wrapped: fmt.Errorf("%w: not connected to a model", dynamo.ErrUnresolvedReference)}
	}
	idx, err := a.resolver.CoordinateIndex(a.coordinate)
	if err != nil {
		return &dynamo.ActuatorError{Actuator: a.name, Time: t,
			Wrapped: fmt.Errorf("%w: coordinate %q: %v", dynamo.ErrUnresolvedReference, a.coordinate, err)}
	}
	a.coord = idx
	return nil
}

func (a *CoordinateActuator) IsConnected() bool { return a.resolver != nil && a.index >= 0 }

// IsCoordinateValid reports whether the coordinate reference is resolved.
func (a *CoordinateActuator) IsCoordinateValid() bool { return a.coord >= 0 }

// CoordinateIndex returns the resolved coordinate index, or -1.
func (a *CoordinateActuator) CoordinateIndex() int { return a.coord }

// Control returns this actuator's entry of the model control vector.
func (a *CoordinateActuator) Control(s *dynamo.State) float64 {
	if a.index < 0 || a.index >= len(s.Controls) {
		return 0
	}
	return s.Controls[a.index]
}

// ComputeActuation returns control times optimal force, or 0 when the
// actuator is not connected to a model.
func (a *CoordinateActuator) ComputeActuation(s *dynamo.State) float64 {
	if !a.IsConnected() {
		return 0
	}
	return a.Control(s) * a.optimalForce
}

// ComputeForce caches this evaluation's force (the override value when
// overridden) and adds it to the mobility force of the coordinate. An
// unresolved coordinate leaves mobility untouched and returns an
// *dynamo.ActuatorError so the caller can continue with other actuators.
func (a *CoordinateActuator) ComputeForce(s *dynamo.State, mobility []float64) error {
	if a.overridden {
		a.force = a.overrideValue
	} else {
		a.force = a.ComputeActuation(s)
	}

	if a.coord < 0 {
		if err := a.resolve(s.Time); err != nil {
			a.logger.Warn("actuator coordinate is invalid; force not applied",
				zap.String("actuator", a.name),
				zap.String("coordinate", a.coordinate),
				zap.Float64("time", s.Time),
				zap.Error(err))
			return err
		}
	}
	if a.coord >= len(mobility) {
		return &dynamo.ActuatorError{Actuator: a.name, Time: s.Time,
			Wrapped: fmt.Errorf("%w: coordinate index %d, mobility has %d entries",
				dynamo.ErrDimensionMismatch, a.coord, len(mobility))}
	}

	mobility[a.coord] += a.force
	return nil
}

// Force returns the force cached by the last ComputeForce.
func (a *CoordinateActuator) Force() float64 { return a.force }

// Stress returns |force| / optimal force.
func (a *CoordinateActuator) Stress() float64 {
	return math.Abs(a.force) / a.optimalForce
}

// Speed returns the speed of the actuated coordinate, 0 when unresolved.
func (a *CoordinateActuator) Speed(s *dynamo.State) float64 {
	if a.coord < 0 || a.coord >= len(s.U) {
		return 0
	}
	return s.U[a.coord]
}

// Power returns force times coordinate speed for the cached force.
func (a *CoordinateActuator) Power(s *dynamo.State) float64 {
	return a.force * a.Speed(s)
}

func (a *CoordinateActuator) OverrideForce(on bool) { a.overridden = on }
func (a *CoordinateActuator) IsOverridden() bool    { return a.overridden }

func (a *CoordinateActuator) SetOverrideValue(v float64) { a.overrideValue = v }
func (a *CoordinateActuator) OverrideValue() float64     { return a.overrideValue }
