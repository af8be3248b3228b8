// Package controller produces control vectors for sets of actuators.
//
// Two strategies exist, a closed set discriminated by [Kind]:
//
//   - [Prescribed]: one function of time per actuator
//   - [Synergy]: a non-negative linear combination of synergy vectors
//     scaled by externally supplied excitations
//
// A controller refers to its actuators by index into the model's actuator
// table. It owns its control sources (functions, synergy vectors) but not
// the actuators. Per-evaluation inputs such as synergy excitations arrive
// through [dynamo.State] and are never stored on the controller.
package controller

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/actuate/internal/dynamo"
)

type Kind int

const (
	KindPrescribed Kind = iota
	KindSynergy
)

func (k Kind) String() string {
	switch k {
	case KindPrescribed:
		return "prescribed"
	case KindSynergy:
		return "synergy"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "prescribed":
		return KindPrescribed, nil
	case "synergy":
		return KindSynergy, nil
	}
	return 0, fmt.Errorf("%w: unknown controller kind %q", dynamo.ErrInvalidParameter, s)
}

// Status is the configuration state of a controller.
type Status int

const (
	// Unconfigured: no actuators attached.
	Unconfigured Status = iota
	// Attached: actuators present, control sources incomplete.
	Attached
	// Ready: every controlled actuator has a control source.
	Ready
)

func (s Status) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Attached:
		return "attached"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Controller is implemented by *Prescribed and *Synergy.
type Controller interface {
	dynamo.Controller
	Kind() Kind
	Path() string
	Status() Status
	AddActuator(r dynamo.ActuatorResolver, label string) (int, error)
	ActuatorNames() []string
}

type Option func(*base)

func WithLogger(l *zap.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// base holds the ordered set of controlled actuators.
type base struct {
	name   string
	path   string
	index  []int
	names  []string
	paths  []string
	logger *zap.Logger
}

func newBase(name string, opts []Option) base {
	b := base{
		name:   name,
		path:   "/controllerset/" + name,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Name() string { return b.name }
func (b *base) Path() string { return b.path }

func (b *base) Actuators() []int {
	return append([]int(nil), b.index...)
}

func (b *base) ActuatorNames() []string {
	return append([]string(nil), b.names...)
}

func (b *base) NumActuators() int { return len(b.index) }

// position returns the slot of model actuator i in this controller, or -1.
func (b *base) position(i int) int {
	for k, idx := range b.index {
		if idx == i {
			return k
		}
	}
	return -1
}

// lookup finds an attached actuator by name or absolute path.
func (b *base) lookup(label string) int {
	for k := range b.index {
		if b.names[k] == label {
			return k
		}
	}
	for k := range b.index {
		if b.paths[k] == label {
			return k
		}
	}
	return -1
}

// attach resolves label against r and appends the actuator. Attaching an
// actuator twice returns its existing slot.
func (b *base) attach(r dynamo.ActuatorResolver, label string) (int, bool, error) {
	i, err := r.ActuatorIndex(label)
	if err != nil {
		return -1, false, fmt.Errorf("controller %s: %w", b.name, err)
	}
	if k := b.position(i); k >= 0 {
		return k, false, nil
	}
	b.index = append(b.index, i)
	b.names = append(b.names, r.ActuatorName(i))
	b.paths = append(b.paths, r.ActuatorPath(i))
	return len(b.index) - 1, true, nil
}
