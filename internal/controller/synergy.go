package controller

import (
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/actuate/internal/dynamo"
)

const (
	// ExcitationPrefix names the per-channel synergy inputs.
	ExcitationPrefix = "synergy_excitation_"

	DefaultExcitationLower = 0.0
	DefaultExcitationUpper = 1.0
)

// SynergyVector is an immutable set of non-negative weights, one per
// controlled actuator.
type SynergyVector struct {
	weights []float64
}

func NewSynergyVector(weights []float64) (SynergyVector, error) {
	for j, w := range weights {
		if !(w >= 0) || math.IsInf(w, 0) {
			return SynergyVector{}, fmt.Errorf("%w: synergy weight %d is %g, must be non-negative",
				dynamo.ErrInvalidParameter, j, w)
		}
	}
	return SynergyVector{weights: append([]float64(nil), weights...)}, nil
}

func (v SynergyVector) Len() int           { return len(v.weights) }
func (v SynergyVector) At(j int) float64   { return v.weights[j] }
func (v SynergyVector) Weights() []float64 { return append([]float64(nil), v.weights...) }

// Synergy expands a small number of excitation inputs into per-actuator
// controls: u[j] = sum_k e_k * w_k[j]. The map is linear and performs no
// clipping; bounding the excitations is up to whoever supplies them.
type Synergy struct {
	base
	vectors []SynergyVector
}

func NewSynergy(name string, opts ...Option) *Synergy {
	return &Synergy{base: newBase(name, opts)}
}

func (c *Synergy) Kind() Kind { return KindSynergy }

func (c *Synergy) Status() Status {
	switch {
	case len(c.index) == 0:
		return Unconfigured
	case len(c.vectors) == 0:
		return Attached
	default:
		return Ready
	}
}

// AddActuator attaches an actuator. Once synergy vectors are present the
// actuator set is fixed.
func (c *Synergy) AddActuator(r dynamo.ActuatorResolver, label string) (int, error) {
	if len(c.vectors) > 0 {
		if k := c.lookup(label); k >= 0 {
			return k, nil
		}
		return -1, fmt.Errorf("%w: controller %s already has %d synergy vectors over %d actuators",
			dynamo.ErrDimensionMismatch, c.name, len(c.vectors), len(c.index))
	}
	k, _, err := c.attach(r, label)
	return k, err
}

// AddSynergyVector appends a channel and returns its index.
func (c *Synergy) AddSynergyVector(weights []float64) (int, error) {
	v, err := c.checkVector(weights)
	if err != nil {
		return -1, err
	}
	c.vectors = append(c.vectors, v)
	return len(c.vectors) - 1, nil
}

// SetSynergyVector replaces the vector of channel k.
func (c *Synergy) SetSynergyVector(k int, weights []float64) error {
	if k < 0 || k >= len(c.vectors) {
		return fmt.Errorf("%w: controller %s has %d synergies, index %d",
			dynamo.ErrInvalidParameter, c.name, len(c.vectors), k)
	}
	v, err := c.checkVector(weights)
	if err != nil {
		return err
	}
	c.vectors[k] = v
	return nil
}

func (c *Synergy) checkVector(weights []float64) (SynergyVector, error) {
	if len(weights) != len(c.index) {
		return SynergyVector{}, fmt.Errorf("%w: synergy vector has %d weights, controller %s has %d actuators",
			dynamo.ErrDimensionMismatch, len(weights), c.name, len(c.index))
	}
	return NewSynergyVector(weights)
}

// FromFactorization adds one synergy vector per row of h, whose columns
// must follow the controller's actuator order.
func (c *Synergy) FromFactorization(h mat.Matrix) error {
	rows, cols := h.Dims()
	if cols != len(c.index) {
		return fmt.Errorf("%w: weight matrix has %d columns, controller %s has %d actuators",
			dynamo.ErrDimensionMismatch, cols, c.name, len(c.index))
	}
	vectors := make([]SynergyVector, 0, rows)
	for k := 0; k < rows; k++ {
		row := mat.Row(nil, k, h)
		v, err := NewSynergyVector(row)
		if err != nil {
			return fmt.Errorf("synergy %d: %w", k, err)
		}
		vectors = append(vectors, v)
	}
	c.vectors = append(c.vectors, vectors...)
	c.logger.Debug("synergy vectors added",
		zap.String("controller", c.name), zap.Int("synergies", rows))
	return nil
}

func (c *Synergy) NumSynergies() int { return len(c.vectors) }

func (c *Synergy) SynergyVector(k int) SynergyVector { return c.vectors[k] }

// InputName returns the state input that carries the excitation of
// channel k.
func (c *Synergy) InputName(k int) string {
	return c.path + "/" + ExcitationPrefix + strconv.Itoa(k)
}

func (c *Synergy) InputNames() []string {
	names := make([]string, len(c.vectors))
	for k := range c.vectors {
		names[k] = c.InputName(k)
	}
	return names
}

// InputBounds returns the bounds an optimizer should impose on each
// excitation. They are not enforced here.
func (c *Synergy) InputBounds() (float64, float64) {
	return DefaultExcitationLower, DefaultExcitationUpper
}

// Excitation reads the excitation of channel k from s.
func (c *Synergy) Excitation(s *dynamo.State, k int) float64 {
	return s.Input(c.InputName(k))
}

// SetExcitation writes the excitation of channel k into s.
func (c *Synergy) SetExcitation(s *dynamo.State, k int, value float64) {
	s.SetInput(c.InputName(k), value)
}

func (c *Synergy) ComputeControls(s *dynamo.State) (dynamo.Control, error) {
	if c.Status() != Ready {
		return nil, fmt.Errorf("%w: synergy controller %s is %s", dynamo.ErrControllerNotReady, c.name, c.Status())
	}
	u := make(dynamo.Control, len(c.index))
	for k, v := range c.vectors {
		e := c.Excitation(s, k)
		for j := range u {
			u[j] += e * v.weights[j]
		}
	}
	return u, nil
}
