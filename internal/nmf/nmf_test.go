package nmf_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/actuate/internal/dynamo"
	"github.com/san-kum/actuate/internal/nmf"
)

// FactorizeSuite exercises the multiplicative-update factorizer.
type FactorizeSuite struct {
	suite.Suite
	v *mat.Dense
}

func (s *FactorizeSuite) SetupTest() {
	rng := rand.New(rand.NewSource(7))
	data := make([]float64, 40*6)
	for i := range data {
		data[i] = rng.Float64()
	}
	s.v = mat.NewDense(40, 6, data)
}

func requireNonNegative(t require.TestingT, m mat.Matrix) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.GreaterOrEqual(t, m.At(i, j), 0.0, "entry (%d,%d)", i, j)
		}
	}
}

// TestShapesAndSign: W is TxK, H is KxM, both non-negative.
func (s *FactorizeSuite) TestShapesAndSign() {
	res, err := nmf.Factorize(s.v, nmf.DefaultOptions(3))
	require.NoError(s.T(), err)

	wr, wc := res.W.Dims()
	hr, hc := res.H.Dims()
	require.Equal(s.T(), []int{40, 3, 3, 6}, []int{wr, wc, hr, hc})
	requireNonNegative(s.T(), res.W)
	requireNonNegative(s.T(), res.H)
	require.Greater(s.T(), res.Iterations, 0)
}

// TestMonotoneError: reconstruction error never increases.
func (s *FactorizeSuite) TestMonotoneError() {
	opts := nmf.DefaultOptions(2)
	opts.Tolerance = 1e-12
	opts.MaxIterations = 300

	res, err := nmf.Factorize(s.v, opts)
	require.NoError(s.T(), err)
	require.Len(s.T(), res.History, res.Iterations+1)
	for i := 1; i < len(res.History); i++ {
		require.LessOrEqual(s.T(), res.History[i], res.History[i-1]*(1+1e-9), "iteration %d", i)
	}
	require.InDelta(s.T(), res.History[len(res.History)-1], res.Error, 1e-12)
}

// TestDeterministic: a fixed seed reproduces the factors bit for bit.
func (s *FactorizeSuite) TestDeterministic() {
	opts := nmf.DefaultOptions(2)
	opts.Seed = 42

	a, err := nmf.Factorize(s.v, opts)
	require.NoError(s.T(), err)
	b, err := nmf.Factorize(s.v, opts)
	require.NoError(s.T(), err)

	require.True(s.T(), mat.Equal(a.W, b.W))
	require.True(s.T(), mat.Equal(a.H, b.H))
	require.Equal(s.T(), a.History, b.History)

	opts.Seed = 43
	c, err := nmf.Factorize(s.v, opts)
	require.NoError(s.T(), err)
	require.False(s.T(), mat.Equal(a.W, c.W))
}

// TestInputUntouched: the caller's matrix is not modified.
func (s *FactorizeSuite) TestInputUntouched() {
	before := mat.DenseCopyOf(s.v)
	_, err := nmf.Factorize(s.v, nmf.DefaultOptions(2))
	require.NoError(s.T(), err)
	require.True(s.T(), mat.Equal(before, s.v))
}

// TestIterationCapIsNotAnError: hitting MaxIterations returns best factors.
func (s *FactorizeSuite) TestIterationCapIsNotAnError() {
	opts := nmf.DefaultOptions(2)
	opts.MaxIterations = 3
	opts.Tolerance = 1e-15

	res, err := nmf.Factorize(s.v, opts)
	require.NoError(s.T(), err)
	require.False(s.T(), res.Converged)
	require.Equal(s.T(), 3, res.Iterations)
	require.NotNil(s.T(), res.W)
	require.NotNil(s.T(), res.H)
}

// TestNormalizeKeepsProduct: rescaling H rows leaves WH unchanged.
func (s *FactorizeSuite) TestNormalizeKeepsProduct() {
	res, err := nmf.Factorize(s.v, nmf.DefaultOptions(3))
	require.NoError(s.T(), err)

	before := res.Reconstruct()
	res.Normalize()
	after := res.Reconstruct()
	require.True(s.T(), mat.EqualApprox(before, after, 1e-9))

	k, _ := res.H.Dims()
	for i := 0; i < k; i++ {
		require.InDelta(s.T(), 1.0, mat.Max(res.H.RowView(i)), 1e-12)
	}
}

func TestFactorizeSuite(t *testing.T) {
	suite.Run(t, new(FactorizeSuite))
}

func TestRoundTripExactRank(t *testing.T) {
	w0 := mat.NewDense(10, 2, []float64{
		0.9, 0.1,
		0.8, 0.3,
		0.6, 0.5,
		0.4, 0.7,
		0.2, 0.9,
		0.3, 0.2,
		0.7, 0.6,
		0.5, 0.4,
		0.1, 0.8,
		1.0, 1.0,
	})
	h0 := mat.NewDense(2, 3, []float64{
		1.0, 0.6, 0.2,
		0.3, 0.7, 1.0,
	})
	var v mat.Dense
	v.Mul(w0, h0)

	res, err := nmf.Factorize(&v, nmf.DefaultOptions(2))
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.LessOrEqual(t, res.Iterations, nmf.DefaultMaxIterations)
	require.Less(t, res.Error, 1e-4)
	require.Greater(t, res.VAF(&v), 0.9999)
	requireNonNegative(t, res.W)
	requireNonNegative(t, res.H)
}

func TestGivenInitialFactors(t *testing.T) {
	v := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	opts := nmf.DefaultOptions(1)
	opts.InitW = mat.NewDense(2, 1, []float64{1, 2})
	opts.InitH = mat.NewDense(1, 2, []float64{1, 2})

	res, err := nmf.Factorize(v, opts)
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 0, res.Error, 1e-9)
}

func TestZeroMatrix(t *testing.T) {
	res, err := nmf.Factorize(mat.NewDense(3, 3, nil), nmf.DefaultOptions(2))
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 0, res.Error, 1e-9)
	require.Equal(t, 1.0, res.VAF(mat.NewDense(3, 3, nil)))
}

func TestFactorizeErrors(t *testing.T) {
	good := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	tests := []struct {
		name string
		v    mat.Matrix
		opts func(*nmf.Options)
		want error
	}{
		{"negative entry", mat.NewDense(2, 2, []float64{1, -2, 3, 4}), nil, dynamo.ErrNegativeEntry},
		{"nan entry", mat.NewDense(1, 2, []float64{1, math.NaN()}), nil, dynamo.ErrNegativeEntry},
		{"empty", &mat.Dense{}, nil, dynamo.ErrInvalidParameter},
		{"zero rank", good, func(o *nmf.Options) { o.Rank = 0 }, dynamo.ErrInvalidParameter},
		{"zero iterations", good, func(o *nmf.Options) { o.MaxIterations = 0 }, dynamo.ErrInvalidParameter},
		{"zero tolerance", good, func(o *nmf.Options) { o.Tolerance = 0 }, dynamo.ErrInvalidParameter},
		{"half init", good, func(o *nmf.Options) { o.InitW = mat.NewDense(2, 1, nil) }, dynamo.ErrInvalidParameter},
		{"init shape", good, func(o *nmf.Options) {
			o.InitW = mat.NewDense(3, 1, nil)
			o.InitH = mat.NewDense(1, 2, nil)
		}, dynamo.ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := nmf.DefaultOptions(1)
			if tt.opts != nil {
				tt.opts(&opts)
			}
			_, err := nmf.Factorize(tt.v, opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
