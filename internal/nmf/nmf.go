// Package nmf factorizes non-negative matrices.
//
// Factorize decomposes an excitation matrix V (time samples x actuators)
// into W (time x synergies) and H (synergies x actuators), both
// non-negative, using multiplicative updates that minimize the squared
// Frobenius reconstruction error. Each row of H is a synergy vector; each
// column of W is the activation of that synergy over time.
//
// # Example
//
//	res, err := nmf.Factorize(v, nmf.Options{Rank: 4, MaxIterations: 1000, Tolerance: 1e-6, Seed: 1})
//	if err != nil {
//		return err
//	}
//	err = syn.FromFactorization(res.H)
//
// The routine owns its working matrices, reads no global state and is
// bit-reproducible for a fixed seed.
package nmf

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/actuate/internal/dynamo"
)

const (
	DefaultMaxIterations = 1000
	DefaultTolerance     = 1e-6
	DefaultFloor         = 1e-12
)

type Options struct {
	// Rank is the number of synergies K.
	Rank int
	// MaxIterations caps the number of updates. Reaching it is not an error.
	MaxIterations int
	// Tolerance is the relative decrease in reconstruction error below
	// which iteration stops.
	Tolerance float64
	// Seed seeds the random initial factors.
	Seed int64
	// Floor is added to every update denominator; zero selects
	// DefaultFloor.
	Floor float64
	// InitW and InitH replace the random initial factors when both are set.
	InitW, InitH mat.Matrix
	Logger       *zap.Logger
}

func DefaultOptions(rank int) Options {
	return Options{
		Rank:          rank,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		Seed:          1,
		Floor:         DefaultFloor,
	}
}

type Result struct {
	W *mat.Dense
	H *mat.Dense
	// Iterations is the number of updates performed.
	Iterations int
	// Error is the Frobenius norm of V - WH for the returned factors.
	Error float64
	// RelativeError is Error divided by the Frobenius norm of V.
	RelativeError float64
	Converged     bool
	// History holds the reconstruction error of the initial factors
	// followed by the error after every update.
	History []float64
}

func validate(v mat.Matrix, opts *Options) error {
	r, c := v.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("%w: empty matrix", dynamo.ErrInvalidParameter)
	}
	if opts.Rank < 1 {
		return fmt.Errorf("%w: rank must be at least 1, got %d", dynamo.ErrInvalidParameter, opts.Rank)
	}
	if opts.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", dynamo.ErrInvalidParameter, opts.MaxIterations)
	}
	if !(opts.Tolerance > 0) {
		return fmt.Errorf("%w: tolerance must be positive, got %g", dynamo.ErrInvalidParameter, opts.Tolerance)
	}
	if opts.Floor < 0 || math.IsNaN(opts.Floor) {
		return fmt.Errorf("%w: floor must be non-negative, got %g", dynamo.ErrInvalidParameter, opts.Floor)
	}
	if opts.Floor == 0 {
		opts.Floor = DefaultFloor
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			x := v.At(i, j)
			if !(x >= 0) || math.IsInf(x, 0) {
				return fmt.Errorf("%w: V[%d,%d] = %g", dynamo.ErrNegativeEntry, i, j, x)
			}
		}
	}
	if (opts.InitW == nil) != (opts.InitH == nil) {
		return fmt.Errorf("%w: InitW and InitH must be set together", dynamo.ErrInvalidParameter)
	}
	if opts.InitW != nil {
		wr, wc := opts.InitW.Dims()
		hr, hc := opts.InitH.Dims()
		if wr != r || wc != opts.Rank || hr != opts.Rank || hc != c {
			return fmt.Errorf("%w: initial factors are %dx%d and %dx%d, want %dx%d and %dx%d",
				dynamo.ErrDimensionMismatch, wr, wc, hr, hc, r, opts.Rank, opts.Rank, c)
		}
		for _, m := range []mat.Matrix{opts.InitW, opts.InitH} {
			if mat.Min(m) < 0 {
				return fmt.Errorf("%w: initial factors", dynamo.ErrNegativeEntry)
			}
		}
	}
	return nil
}

// initFactors draws uniform values scaled so that WH has the same mean as V.
func initFactors(v mat.Matrix, k int, seed int64) (*mat.Dense, *mat.Dense) {
	r, c := v.Dims()
	rng := rand.New(rand.NewSource(seed))

	mean := mat.Sum(v) / float64(r*c)
	scale := math.Sqrt(mean / float64(k))
	if scale == 0 {
		scale = 1
	}

	w := mat.NewDense(r, k, nil)
	h := mat.NewDense(k, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < k; j++ {
			w.Set(i, j, scale*(rng.Float64()+DefaultFloor))
		}
	}
	for i := 0; i < k; i++ {
		for j := 0; j < c; j++ {
			h.Set(i, j, scale*(rng.Float64()+DefaultFloor))
		}
	}
	return w, h
}

// Factorize runs multiplicative updates until the relative decrease of the
// reconstruction error falls below opts.Tolerance or opts.MaxIterations is
// reached. Non-convergence is logged and reported through
// Result.Converged; the best factors found are returned either way.
func Factorize(v mat.Matrix, opts Options) (*Result, error) {
	if err := validate(v, &opts); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r, c := v.Dims()
	k := opts.Rank
	vd := mat.DenseCopyOf(v)
	vnorm := mat.Norm(vd, 2)

	var w, h *mat.Dense
	if opts.InitW != nil {
		w, h = mat.DenseCopyOf(opts.InitW), mat.DenseCopyOf(opts.InitH)
	} else {
		w, h = initFactors(vd, k, opts.Seed)
	}

	var (
		wtv  = mat.NewDense(k, c, nil)
		wtw  = mat.NewDense(k, k, nil)
		wtwh = mat.NewDense(k, c, nil)
		vht  = mat.NewDense(r, k, nil)
		hht  = mat.NewDense(k, k, nil)
		whht = mat.NewDense(r, k, nil)
		wh   = mat.NewDense(r, c, nil)
	)
	floor := opts.Floor

	residual := func() float64 {
		wh.Mul(w, h)
		wh.Sub(vd, wh)
		return mat.Norm(wh, 2)
	}

	res := &Result{History: make([]float64, 0, opts.MaxIterations+1)}
	prev := residual()
	res.History = append(res.History, prev)

	best := prev
	bestW, bestH := mat.DenseCopyOf(w), mat.DenseCopyOf(h)

	res.Converged = prev == 0
	for it := 1; it <= opts.MaxIterations && !res.Converged; it++ {
		wtv.Mul(w.T(), vd)
		wtw.Mul(w.T(), w)
		wtwh.Mul(wtw, h)
		h.Apply(func(i, j int, x float64) float64 {
			return x * wtv.At(i, j) / (wtwh.At(i, j) + floor)
		}, h)

		vht.Mul(vd, h.T())
		hht.Mul(h, h.T())
		whht.Mul(w, hht)
		w.Apply(func(i, j int, x float64) float64 {
			return x * vht.At(i, j) / (whht.At(i, j) + floor)
		}, w)

		cur := residual()
		res.History = append(res.History, cur)
		res.Iterations = it

		if cur < best {
			best = cur
			bestW.Copy(w)
			bestH.Copy(h)
		}

		if cur == 0 || (prev > 0 && (prev-cur)/prev < opts.Tolerance) {
			res.Converged = true
		}
		prev = cur
	}

	res.W, res.H = bestW, bestH
	res.Error = best
	if vnorm > 0 {
		res.RelativeError = best / vnorm
	}

	if !res.Converged {
		logger.Warn("factorization did not converge",
			zap.Int("rank", k),
			zap.Int("iterations", res.Iterations),
			zap.Float64("error", res.Error),
			zap.Float64("relative_error", res.RelativeError))
	} else {
		logger.Debug("factorization converged",
			zap.Int("rank", k),
			zap.Int("iterations", res.Iterations),
			zap.Float64("relative_error", res.RelativeError))
	}
	return res, nil
}

// Reconstruct returns W·H.
func (r *Result) Reconstruct() *mat.Dense {
	var wh mat.Dense
	wh.Mul(r.W, r.H)
	return &wh
}

// VAF returns the variance accounted for, 1 - ||V-WH||² / ||V||², the usual
// quality measure for a synergy set.
func (r *Result) VAF(v mat.Matrix) float64 {
	total := mat.Norm(v, 2)
	if total == 0 {
		return 1
	}
	var diff mat.Dense
	diff.Sub(v, r.Reconstruct())
	e := mat.Norm(&diff, 2)
	return 1 - (e*e)/(total*total)
}

// Normalize scales each row of H to a maximum of 1 and compensates in the
// matching column of W, leaving W·H unchanged. Zero rows are left alone.
func (r *Result) Normalize() {
	k, _ := r.H.Dims()
	for i := 0; i < k; i++ {
		row := r.H.RawRowView(i)
		peak := 0.0
		for _, x := range row {
			peak = math.Max(peak, x)
		}
		if peak == 0 {
			continue
		}
		for j := range row {
			row[j] /= peak
		}
		rows, _ := r.W.Dims()
		for t := 0; t < rows; t++ {
			r.W.Set(t, i, r.W.At(t, i)*peak)
		}
	}
}
