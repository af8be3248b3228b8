package metrics

import (
	"math"

	"github.com/san-kum/actuate/internal/dynamo"
)

// ControlEffort averages sum_j |u_j|^p over samples. p is 1 unless set
// with NewControlEffortPower.
type ControlEffort struct {
	label string
	power float64
	acc   runningMean
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{label: "control_effort", power: 1}
}

// NewControlEffortPower reports under name with exponent p; 2 gives the
// squared-activation cost common in synergy studies. Non-positive p falls
// back to 1.
func NewControlEffortPower(name string, p float64) *ControlEffort {
	if !(p > 0) {
		p = 1
	}
	return &ControlEffort{label: name, power: p}
}

func (e *ControlEffort) Name() string { return e.label }

func (e *ControlEffort) Observe(_ *dynamo.State, u dynamo.Control, _ []float64) {
	var sample float64
	for _, x := range u {
		if e.power == 1 {
			sample += math.Abs(x)
		} else {
			sample += math.Pow(math.Abs(x), e.power)
		}
	}
	e.acc.add(sample)
}

func (e *ControlEffort) Value() float64 { return e.acc.mean() }

func (e *ControlEffort) Reset() { e.acc.reset() }
