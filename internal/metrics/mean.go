package metrics

// runningMean averages one scalar per observed sample.
type runningMean struct {
	total float64
	n     int
}

func (r *runningMean) add(x float64) {
	r.total += x
	r.n++
}

func (r *runningMean) mean() float64 {
	if r.n == 0 {
		return 0
	}
	return r.total / float64(r.n)
}

func (r *runningMean) reset() { *r = runningMean{} }
