package function

import "sort"

// quinticHermite interpolates with quintic Hermite polynomials per segment.
// Knot derivatives are finite-difference estimates, which keeps the curve
// twice continuously differentiable at the knots.
type quinticHermite struct {
	xs, ys []float64
	d1, d2 []float64
}

func newQuinticHermite(xs, ys []float64) *quinticHermite {
	n := len(xs)
	q := &quinticHermite{
		xs: xs,
		ys: ys,
		d1: make([]float64, n),
		d2: make([]float64, n),
	}

	slopes := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		slopes[i] = (ys[i+1] - ys[i]) / (xs[i+1] - xs[i])
	}

	q.d1[0] = slopes[0]
	q.d1[n-1] = slopes[n-2]
	for i := 1; i < n-1; i++ {
		hl := xs[i] - xs[i-1]
		hr := xs[i+1] - xs[i]
		q.d1[i] = (hr*slopes[i-1] + hl*slopes[i]) / (hl + hr)
		q.d2[i] = 2 * (slopes[i] - slopes[i-1]) / (hl + hr)
	}
	return q
}

func (q *quinticHermite) Predict(x float64) float64 {
	n := len(q.xs)
	if x <= q.xs[0] {
		return q.ys[0]
	}
	if x >= q.xs[n-1] {
		return q.ys[n-1]
	}

	i := sort.SearchFloat64s(q.xs, x)
	if q.xs[i] == x {
		return q.ys[i]
	}
	i--

	h := q.xs[i+1] - q.xs[i]
	t := (x - q.xs[i]) / h
	t2 := t * t
	t3 := t2 * t
	t4 := t3 * t
	t5 := t4 * t

	h1 := t - 6*t3 + 8*t4 - 3*t5
	h2 := 0.5*t2 - 1.5*t3 + 1.5*t4 - 0.5*t5
	h3 := 0.5*t3 - t4 + 0.5*t5
	h4 := -4*t3 + 7*t4 - 3*t5
	h5 := 10*t3 - 15*t4 + 6*t5

	return q.ys[i] + (q.ys[i+1]-q.ys[i])*h5 +
		h*(q.d1[i]*h1+q.d1[i+1]*h4) +
		h*h*(q.d2[i]*h2+q.d2[i+1]*h3)
}
