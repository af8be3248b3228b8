// Package model is the context actuators and controllers are attached to.
//
// A Model owns the coordinate table, the actuator table and the controller
// set. Back-references are indices into these tables, resolved by name when
// components are added or connected. One evaluation is a call to
// [Model.Realize]: every controller adds its controls into the model
// control vector, then every actuator turns its control into a generalized
// force.
package model

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/actuator"
	"github.com/san-kum/actuate/internal/dynamo"
)

type Coordinate struct {
	Name        string
	Constrained bool
}

// Options controls how the model treats evaluation-time problems.
type Options struct {
	// Strict makes Realize fail on the first unresolved actuator instead of
	// reporting it and continuing.
	Strict bool
	// Lazy defers coordinate resolution failures found while connecting
	// actuators to their first force computation.
	Lazy bool
}

type Model struct {
	name        string
	opts        Options
	coordinates []Coordinate
	actuators   []dynamo.Actuator
	controllers []dynamo.Controller
	logger      *zap.Logger
}

type Option func(*Model)

func WithOptions(o Options) Option {
	return func(m *Model) { m.opts = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(name string, opts ...Option) *Model {
	m := &Model{
		name:   name,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Name() string        { return m.name }
func (m *Model) Options() Options    { return m.opts }
func (m *Model) Logger() *zap.Logger { return m.logger }

func (m *Model) AddCoordinate(name string, constrained bool) (int, error) {
	if name == "" {
		return -1, fmt.Errorf("%w: empty coordinate name", dynamo.ErrInvalidParameter)
	}
	if _, err := m.CoordinateIndex(name); err == nil {
		return -1, fmt.Errorf("%w: duplicate coordinate %q", dynamo.ErrInvalidParameter, name)
	}
	m.coordinates = append(m.coordinates, Coordinate{Name: name, Constrained: constrained})
	return len(m.coordinates) - 1, nil
}

func (m *Model) CoordinateIndex(name string) (int, error) {
	for i, c := range m.coordinates {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: coordinate %q", dynamo.ErrUnresolvedReference, name)
}

func (m *Model) NumCoordinates() int { return len(m.coordinates) }

func (m *Model) Coordinates() []Coordinate {
	return append([]Coordinate(nil), m.coordinates...)
}

// AddActuator appends a to the actuator table and connects it. Paths must be
// unique. A coordinate resolution failure is returned unless the model is
// lazy, in which case it is logged and deferred to force computation; in
// both cases the actuator stays in the table.
func (m *Model) AddActuator(a dynamo.Actuator) (int, error) {
	for _, other := range m.actuators {
		if other.Path() == a.Path() {
			return -1, fmt.Errorf("%w: duplicate actuator path %q", dynamo.ErrInvalidParameter, a.Path())
		}
	}
	idx := len(m.actuators)
	m.actuators = append(m.actuators, a)

	if err := a.Connect(m, idx); err != nil {
		if m.opts.Lazy {
			m.logger.Warn("deferring actuator resolution",
				zap.String("actuator", a.Name()), zap.Error(err))
			return idx, nil
		}
		return idx, err
	}
	return idx, nil
}

func (m *Model) Actuator(i int) dynamo.Actuator { return m.actuators[i] }

func (m *Model) Actuators() []dynamo.Actuator {
	return append([]dynamo.Actuator(nil), m.actuators...)
}

func (m *Model) NumActuators() int { return len(m.actuators) }

func (m *Model) ActuatorName(i int) string { return m.actuators[i].Name() }
func (m *Model) ActuatorPath(i int) string { return m.actuators[i].Path() }

// ActuatorIndex resolves label by short name first and falls back to the
// absolute path. More than one actuator with the same short name is
// ambiguous unless the label is a path.
func (m *Model) ActuatorIndex(label string) (int, error) {
	match := -1
	for i, a := range m.actuators {
		if a.Name() != label {
			continue
		}
		if match >= 0 {
			return -1, fmt.Errorf("%w: %q matches %s and %s",
				dynamo.ErrActuatorResolution, label, m.actuators[match].Path(), a.Path())
		}
		match = i
	}
	if match >= 0 {
		return match, nil
	}
	for i, a := range m.actuators {
		if a.Path() == label {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: no actuator %q", dynamo.ErrActuatorResolution, label)
}

func (m *Model) AddController(c dynamo.Controller) error {
	for _, other := range m.controllers {
		if other.Name() == c.Name() {
			return fmt.Errorf("%w: duplicate controller %q", dynamo.ErrInvalidParameter, c.Name())
		}
	}
	m.controllers = append(m.controllers, c)
	return nil
}

func (m *Model) Controllers() []dynamo.Controller {
	return append([]dynamo.Controller(nil), m.controllers...)
}

// Controller returns the controller with the given name, or nil.
func (m *Model) Controller(name string) dynamo.Controller {
	for _, c := range m.controllers {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// NewState returns a zeroed state at time t sized for this model.
func (m *Model) NewState(t float64) *dynamo.State {
	return dynamo.NewState(t, len(m.coordinates))
}

// CreateCoordinateActuators adds one actuator named <coordinate>_actuator
// per coordinate, skipping constrained coordinates unless
// includeConstrained is set. It returns the new actuator indices.
func (m *Model) CreateCoordinateActuators(optimalForce float64, includeConstrained bool) ([]int, error) {
	var added []int
	for _, c := range m.coordinates {
		if c.Constrained && !includeConstrained {
			continue
		}
		a := actuator.NewCoordinateActuator(c.Name+"_actuator", c.Name, actuator.WithLogger(m.logger))
		if err := a.SetOptimalForce(optimalForce); err != nil {
			return added, err
		}
		idx, err := m.AddActuator(a)
		if err != nil {
			return added, err
		}
		added = append(added, idx)
	}
	return added, nil
}

// Realization is the outcome of one evaluation.
type Realization struct {
	Time float64
	// Controls is indexed like the actuator table.
	Controls dynamo.Control
	// Forces holds each actuator's cached force.
	Forces []float64
	// Mobility holds the generalized force per coordinate.
	Mobility []float64
	// Reports collects per-actuator conditions that did not stop the
	// evaluation.
	Reports []error
}

// Realize evaluates every controller and then every actuator at s. The
// control vector is written to s.Controls. Controller failures are
// returned; actuator failures are reported in the realization unless the
// model is strict.
func (m *Model) Realize(s *dynamo.State) (*Realization, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: state at t=%g is not finite", dynamo.ErrInvalidParameter, s.Time)
	}

	controls := make(dynamo.Control, len(m.actuators))
	for _, c := range m.controllers {
		u, err := c.ComputeControls(s)
		if err != nil {
			return nil, fmt.Errorf("controller %s: %w", c.Name(), err)
		}
		idx := c.Actuators()
		if len(u) != len(idx) {
			return nil, fmt.Errorf("controller %s: %w: %d controls for %d actuators",
				c.Name(), dynamo.ErrDimensionMismatch, len(u), len(idx))
		}
		for k, i := range idx {
			controls[i] += u[k]
		}
	}
	s.Controls = controls

	r := &Realization{
		Time:     s.Time,
		Controls: controls.Clone(),
		Forces:   make([]float64, len(m.actuators)),
		Mobility: make([]float64, len(m.coordinates)),
	}
	for i, a := range m.actuators {
		err := a.ComputeForce(s, r.Mobility)
		r.Forces[i] = a.Force()
		if err == nil {
			continue
		}
		if m.opts.Strict {
			return nil, err
		}
		r.Reports = append(r.Reports, err)
	}
	return r, nil
}

// Err joins the reported conditions, or returns nil.
func (r *Realization) Err() error {
	return errors.Join(r.Reports...)
}
