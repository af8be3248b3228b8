package metrics

import (
	"math"

	"github.com/san-kum/actuate/internal/dynamo"
)

// PeakStress tracks the largest |force| / optimalForce seen on any actuator.
// optimalForces is indexed like the model's actuator table; actuators past
// its end, or with a non-positive entry, are skipped.
type PeakStress struct {
	name          string
	optimalForces []float64
	peak          float64
}

func NewPeakStress(optimalForces []float64) *PeakStress {
	return &PeakStress{
		name:          "peak_stress",
		optimalForces: append([]float64(nil), optimalForces...),
	}
}

func (p *PeakStress) Name() string { return p.name }

func (p *PeakStress) Observe(s *dynamo.State, u dynamo.Control, forces []float64) {
	for i, f := range forces {
		if i >= len(p.optimalForces) || !(p.optimalForces[i] > 0) {
			continue
		}
		p.peak = math.Max(p.peak, math.Abs(f)/p.optimalForces[i])
	}
}

func (p *PeakStress) Value() float64 { return p.peak }

func (p *PeakStress) Reset() { p.peak = 0 }

// MeanForce is the time-averaged sum of |force| over all actuators.
type MeanForce struct {
	name    string
	total   float64
	samples int
}

func NewMeanForce() *MeanForce {
	return &MeanForce{name: "mean_force"}
}

func (m *MeanForce) Name() string { return m.name }

func (m *MeanForce) Observe(s *dynamo.State, u dynamo.Control, forces []float64) {
	for _, f := range forces {
		if !math.IsNaN(f) {
			m.total += math.Abs(f)
		}
	}
	m.samples++
}

func (m *MeanForce) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.total / float64(m.samples)
}

func (m *MeanForce) Reset() {
	m.total = 0
	m.samples = 0
}
