// Package function evaluates control functions fitted to tabulated
// (time, value) samples.
//
// Four interpolation orders are supported, identified by the integer codes
// used in controls files:
//
//   - [Constant] (0): left-continuous step
//   - [Linear] (1): piecewise linear
//   - [Cubic] (3): natural cubic spline
//   - [Quintic] (5): piecewise quintic Hermite
//
// Evaluation outside the sample range is clamped to the nearest end sample.
package function

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/actuate/internal/dynamo"
)

// Order is the interpolation order of a control function.
type Order int

const (
	Constant Order = 0
	Linear   Order = 1
	Cubic    Order = 3
	Quintic  Order = 5
)

func (o Order) String() string {
	switch o {
	case Constant:
		return "constant"
	case Linear:
		return "linear"
	case Cubic:
		return "cubic"
	case Quintic:
		return "quintic"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder accepts either the integer code or the order name.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "0", "constant", "step":
		return Constant, nil
	case "1", "linear":
		return Linear, nil
	case "3", "cubic":
		return Cubic, nil
	case "5", "quintic":
		return Quintic, nil
	}
	return 0, fmt.Errorf("%w: unknown interpolation order %q", dynamo.ErrInvalidParameter, s)
}

func (o Order) valid() bool {
	return o == Constant || o == Linear || o == Cubic || o == Quintic
}

// Function is a named piecewise function of time.
type Function struct {
	name      string
	order     Order
	times     []float64
	values    []float64
	predictor interp.Predictor
}

// New fits a function of the given order to the samples. Times must be
// strictly increasing. A single sample yields a constant function; cubic
// and quintic fits with two samples fall back to linear.
func New(name string, times, values []float64, order Order) (*Function, error) {
	if !order.valid() {
		return nil, fmt.Errorf("%w: interpolation order %d", dynamo.ErrInvalidParameter, int(order))
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: function %q has no samples", dynamo.ErrInvalidParameter, name)
	}
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: function %q has %d times and %d values",
			dynamo.ErrDimensionMismatch, name, len(times), len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: function %q value %d is %v", dynamo.ErrInvalidParameter, name, i, v)
		}
	}
	if floats.HasNaN(times) {
		return nil, fmt.Errorf("%w: function %q has NaN times", dynamo.ErrInvalidParameter, name)
	}
	if !strictlyIncreasing(times) {
		return nil, fmt.Errorf("%w: function %q", dynamo.ErrNotIncreasing, name)
	}

	f := &Function{
		name:   name,
		order:  order,
		times:  append([]float64(nil), times...),
		values: append([]float64(nil), values...),
	}
	if len(times) == 1 {
		return f, nil
	}

	fit := order
	if len(times) == 2 && (order == Cubic || order == Quintic) {
		fit = Linear
	}

	var err error
	switch fit {
	case Constant:
		var pc interp.PiecewiseConstant
		err = pc.Fit(f.times, f.values)
		f.predictor = &pc
	case Linear:
		var pl interp.PiecewiseLinear
		err = pl.Fit(f.times, f.values)
		f.predictor = &pl
	case Cubic:
		var nc interp.NaturalCubic
		err = nc.Fit(f.times, f.values)
		f.predictor = &nc
	case Quintic:
		f.predictor = newQuinticHermite(f.times, f.values)
	}
	if err != nil {
		return nil, fmt.Errorf("fit function %q: %w", name, err)
	}
	return f, nil
}

// NewConstant returns a function with the same value at every time.
func NewConstant(name string, value float64) *Function {
	f, _ := New(name, []float64{0}, []float64{value}, Constant)
	return f
}

func strictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}

func (f *Function) Name() string { return f.name }
func (f *Function) Order() Order { return f.order }
func (f *Function) Len() int     { return len(f.times) }

// Domain returns the first and last sample times.
func (f *Function) Domain() (float64, float64) {
	return f.times[0], f.times[len(f.times)-1]
}

// Evaluate returns the function value at t, clamped to the sample range.
func (f *Function) Evaluate(t float64) float64 {
	n := len(f.times)
	if n == 1 || t <= f.times[0] {
		return f.values[0]
	}
	if t >= f.times[n-1] {
		return f.values[n-1]
	}
	return f.predictor.Predict(t)
}

// Samples returns copies of the sample times and values.
func (f *Function) Samples() ([]float64, []float64) {
	return append([]float64(nil), f.times...), append([]float64(nil), f.values...)
}
