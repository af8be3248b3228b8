package metrics

import (
	"math"

	"github.com/san-kum/actuate/internal/dynamo"
)

// SpeedFunc returns the speed an actuator moves at in a state.
type SpeedFunc func(*dynamo.State) float64

// MeanPower is the time-averaged sum of |force * speed| over actuators.
// speeds is indexed like the model's actuator table; nil entries and
// actuators past its end contribute nothing.
type MeanPower struct {
	speeds []SpeedFunc
	acc    runningMean
}

func NewMeanPower(speeds []SpeedFunc) *MeanPower {
	return &MeanPower{speeds: append([]SpeedFunc(nil), speeds...)}
}

func (m *MeanPower) Name() string { return "mean_power" }

func (m *MeanPower) Observe(s *dynamo.State, _ dynamo.Control, forces []float64) {
	var p float64
	for i, f := range forces {
		if i >= len(m.speeds) || m.speeds[i] == nil || math.IsNaN(f) {
			continue
		}
		p += math.Abs(f * m.speeds[i](s))
	}
	m.acc.add(p)
}

func (m *MeanPower) Value() float64 { return m.acc.mean() }

func (m *MeanPower) Reset() { m.acc.reset() }
