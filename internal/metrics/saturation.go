package metrics

import (
	"github.com/san-kum/actuate/internal/dynamo"
)

// Saturation is the fraction of samples in which any control leaves
// [lower, upper]. Controllers never clamp, so this is where out-of-range
// synergy outputs show up.
type Saturation struct {
	lower, upper float64
	acc          runningMean
}

func NewSaturation(lower, upper float64) *Saturation {
	return &Saturation{lower: lower, upper: upper}
}

func (s *Saturation) Name() string { return "saturation" }

func (s *Saturation) Observe(_ *dynamo.State, u dynamo.Control, _ []float64) {
	hit := 0.0
	for _, x := range u {
		if x < s.lower || x > s.upper {
			hit = 1
			break
		}
	}
	s.acc.add(hit)
}

func (s *Saturation) Value() float64 { return s.acc.mean() }

func (s *Saturation) Reset() { s.acc.reset() }
