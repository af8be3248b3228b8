package metrics

import (
	"github.com/san-kum/actuate/internal/dynamo"
)

// TrackingError is the mean over samples of sum_j (u_j - target_j)^2.
// Controls beyond the target's length are ignored.
type TrackingError struct {
	target []float64
	acc    runningMean
}

func NewTrackingError(target []float64) *TrackingError {
	return &TrackingError{target: append([]float64(nil), target...)}
}

func (m *TrackingError) Name() string { return "tracking_error" }

func (m *TrackingError) Observe(_ *dynamo.State, u dynamo.Control, _ []float64) {
	var sq float64
	for j, want := range m.target {
		if j >= len(u) {
			break
		}
		d := u[j] - want
		sq += d * d
	}
	m.acc.add(sq)
}

func (m *TrackingError) Value() float64 { return m.acc.mean() }

func (m *TrackingError) Reset() { m.acc.reset() }
