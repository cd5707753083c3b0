package spline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quarterCircle is the exact unit quarter circle as a quadratic NURBS curve
func quarterCircle(t *testing.T) *Spline {
	s, err := NewSpline([]int{3}, [][]float64{{0, 0, 0, 1, 1, 1}}, 2,
		[]float64{1, 0, 1, 1, 0, 1}, []float64{1, 1 / math.Sqrt2, 1})
	require.NoError(t, err)
	return s
}

// unitSquare returns a 2D patch of the given orders mapping the unit square
// onto itself, with nel elements per direction
func unitSquare(t *testing.T, order, nel int) *Spline {
	s := NewLinearPatch([]float64{0, 0}, []float64{1, 1})
	for d := 0; d < 2; d++ {
		require.NoError(t, s.RaiseOrder(d, order-2))
		require.NoError(t, s.UniformRefine(d, nel-1))
	}
	return s
}

func sampleElement(b Basis, iel int) (pts [][]float64) {
	lo, hi := b.ElementBox(iel)
	xi := []float64{0.1, 0.5, 0.85}
	for _, x := range xi {
		for _, y := range xi {
			u := make([]float64, len(lo))
			u[0] = lo[0] + x*(hi[0]-lo[0])
			if len(lo) > 1 {
				u[1] = lo[1] + y*(hi[1]-lo[1])
			}
			pts = append(pts, u)
		}
	}
	return
}

func TestSplineConstruction(t *testing.T) {
	{ // Validation
		_, err := NewSpline([]int{0}, [][]float64{{0, 1}}, 1, []float64{0}, nil)
		assert.ErrorIs(t, err, ErrInvalidOrder)
		_, err = NewSpline([]int{2, 2}, [][]float64{{0, 0, 1, 1}}, 1, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidDirection)
		_, err = NewSpline([]int{2}, [][]float64{{0, 1, 0, 1}}, 1, []float64{0, 1}, nil)
		assert.ErrorIs(t, err, ErrKnotVector)
		_, err = NewSpline([]int{2}, [][]float64{{0, 0, 1, 1}}, 1, []float64{0, 1, 2}, nil)
		assert.ErrorIs(t, err, ErrKnotVector)
	}
	{ // Linear patch corners and midpoint
		s := NewLinearPatch([]float64{1, 2, 3}, []float64{2, 4, 6})
		assert.Equal(t, 3, s.NumParamDirs())
		assert.Equal(t, 8, s.NumBasisFunctions())
		assert.Equal(t, 1, s.NumElements())
		X, err := s.Point([]float64{0.5, 0.5, 0.5})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1.5, 3, 4.5}, X, 1.e-14)
		X, err = s.Point([]float64{1, 0, 1})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{2, 2, 6}, X, 1.e-14)
		_, err = s.Point([]float64{1.5, 0, 0})
		assert.ErrorIs(t, err, ErrParameter)
	}
	{ // Element numbering runs fastest in the first direction
		s := unitSquare(t, 2, 3)
		assert.Equal(t, 9, s.NumElements())
		lo, hi := s.ElementBox(5)
		assert.InDeltaSlice(t, []float64{2. / 3, 1. / 3}, lo, 1.e-14)
		assert.InDeltaSlice(t, []float64{1, 2. / 3}, hi, 1.e-14)
		assert.Equal(t, 5, s.ElementContaining([]float64{0.9, 0.5}))
		assert.Equal(t, 8, s.ElementContaining([]float64{1, 1}))
		assert.Equal(t, -1, s.ElementContaining([]float64{1.1, 0.5}))
		assert.Equal(t, []int{6, 7, 10, 11}, s.ElementFunctions(5))
	}
}

func TestSplineBasis(t *testing.T) {
	s := unitSquare(t, 3, 3)
	// bend the patch so the map is not affine
	for i := range s.Coefs {
		s.Coefs[i] += 0.05 * math.Sin(float64(i))
	}
	var bd BasisDerivs
	for iel := 0; iel < s.NumElements(); iel++ {
		for _, u := range sampleElement(s, iel) {
			require.NoError(t, s.ComputeBasis(u, iel, 2, &bd))
			assert.Equal(t, 9, bd.Nen)
			var sum, dx, dy, ddsum float64
			for a := 0; a < bd.Nen; a++ {
				sum += bd.N[a]
				dx += bd.DNdu[a*2]
				dy += bd.DNdu[a*2+1]
				ddsum += bd.D2Ndu2[a*4]
			}
			assert.InDelta(t, 1, sum, 1.e-13)
			assert.InDelta(t, 0, dx, 1.e-12)
			assert.InDelta(t, 0, dy, 1.e-12)
			assert.InDelta(t, 0, ddsum, 1.e-10)
		}
	}
	{ // First and second derivatives against central differences
		var (
			u   = []float64{0.4, 0.7}
			h   = 1.e-5
			iel = s.ElementContaining(u)
			bp  BasisDerivs
			bm  BasisDerivs
		)
		require.NoError(t, s.ComputeBasis(u, iel, 2, &bd))
		for d := 0; d < 2; d++ {
			up := append([]float64{}, u...)
			um := append([]float64{}, u...)
			up[d] += h
			um[d] -= h
			require.NoError(t, s.ComputeBasis(up, iel, 1, &bp))
			require.NoError(t, s.ComputeBasis(um, iel, 1, &bm))
			for a := 0; a < bd.Nen; a++ {
				assert.InDelta(t, (bp.N[a]-bm.N[a])/(2*h), bd.DNdu[a*2+d], 1.e-7)
				for e := 0; e < 2; e++ {
					fd := (bp.DNdu[a*2+e] - bm.DNdu[a*2+e]) / (2 * h)
					assert.InDelta(t, fd, bd.D2Ndu2[(a*2+d)*2+e], 1.e-5)
				}
			}
		}
	}
}

func TestRationalBasis(t *testing.T) {
	var (
		s  = quarterCircle(t)
		bd BasisDerivs
		h  = 1.e-6
	)
	for _, u := range []float64{0, 0.2, 0.5, 0.77, 1} {
		X, err := s.Point([]float64{u})
		require.NoError(t, err)
		assert.InDelta(t, 1, math.Hypot(X[0], X[1]), 1.e-14)
	}
	u := 0.3
	require.NoError(t, s.ComputeBasis([]float64{u}, 0, 2, &bd))
	var sum, dsum float64
	for a := 0; a < bd.Nen; a++ {
		sum += bd.N[a]
		dsum += bd.DNdu[a]
	}
	assert.InDelta(t, 1, sum, 1.e-14)
	assert.InDelta(t, 0, dsum, 1.e-13)
	var bp, bm BasisDerivs
	require.NoError(t, s.ComputeBasis([]float64{u + h}, 0, 1, &bp))
	require.NoError(t, s.ComputeBasis([]float64{u - h}, 0, 1, &bm))
	for a := 0; a < bd.Nen; a++ {
		assert.InDelta(t, (bp.N[a]-bm.N[a])/(2*h), bd.DNdu[a], 1.e-8)
		assert.InDelta(t, (bp.DNdu[a]-bm.DNdu[a])/(2*h), bd.D2Ndu2[a], 1.e-6)
	}
}

func TestSplineRefinement(t *testing.T) {
	params := []float64{0, 0.13, 0.5, 0.61, 0.999, 1}
	{ // Knot insertion and order elevation keep the quarter circle exact
		s := quarterCircle(t)
		require.NoError(t, s.InsertKnots(0, []float64{0.25, 0.5}))
		assert.Equal(t, 5, s.NumBasisFunctions())
		assert.Equal(t, 3, s.NumElements())
		require.NoError(t, s.RaiseOrder(0, 1))
		assert.Equal(t, 4, s.Order(0))
		assert.Equal(t, 8, s.NumBasisFunctions())
		for _, u := range params {
			X, err := s.Point([]float64{u})
			require.NoError(t, err)
			assert.InDelta(t, 1, math.Hypot(X[0], X[1]), 1.e-12)
		}
		assert.True(t, s.Rational())
	}
	{ // Uniform refinement of a curved 2D patch leaves the geometry unchanged
		s := unitSquare(t, 3, 2)
		for i := range s.Coefs {
			s.Coefs[i] += 0.1 * math.Cos(float64(3*i))
		}
		r := s.Copy()
		require.NoError(t, r.UniformRefine(0, 2))
		require.NoError(t, r.UniformRefine(1, 1))
		assert.Equal(t, 6, r.NumSpans(0))
		assert.Equal(t, 4, r.NumSpans(1))
		for _, x := range params {
			for _, y := range params {
				P, err := s.Point([]float64{x, y})
				require.NoError(t, err)
				Q, err := r.Point([]float64{x, y})
				require.NoError(t, err)
				assert.InDeltaSlice(t, P, Q, 1.e-12)
			}
		}
	}
	{ // Smooth elevation keeps multiplicities and a single element exact
		s := NewLinearPatch([]float64{0}, []float64{2})
		require.NoError(t, s.RaiseOrderSmooth(0, 2))
		assert.Equal(t, []float64{0, 0, 0, 0, 1, 1, 1, 1}, s.Knots[0])
		X, err := s.Point([]float64{0.25})
		require.NoError(t, err)
		assert.InDelta(t, 0.5, X[0], 1.e-14)
		s = unitSquare(t, 2, 2)
		require.NoError(t, s.RaiseOrderSmooth(0, 1))
		assert.Equal(t, []float64{0, 0, 0, 0.5, 1, 1, 1}, s.Knots[0])
		require.NoError(t, s.RaiseOrder(1, 1))
		assert.Equal(t, []float64{0, 0, 0, 0.5, 0.5, 1, 1, 1}, s.Knots[1])
	}
	{ // Invalid requests
		s := unitSquare(t, 2, 2)
		assert.ErrorIs(t, s.InsertKnots(2, []float64{0.3}), ErrInvalidDirection)
		assert.ErrorIs(t, s.InsertKnots(0, []float64{1}), ErrParameter)
		assert.ErrorIs(t, s.InsertKnots(0, []float64{0.5}), ErrKnotVector)
		assert.ErrorIs(t, s.RaiseOrder(0, -1), ErrInvalidOrder)
		assert.NoError(t, s.InsertKnots(0, nil))
	}
}

func TestGrevilleAndSupport(t *testing.T) {
	s := unitSquare(t, 3, 3)
	g := s.Greville(0)
	require.Equal(t, s.NumCoefs(0), len(g))
	assert.InDelta(t, 0, g[0], 1.e-15)
	assert.InDelta(t, 1, g[len(g)-1], 1.e-15)
	for i := 1; i < len(g); i++ {
		assert.Greater(t, g[i], g[i-1])
	}
	u := s.GrevillePoint(s.NumCoefs(0) + 1)
	assert.InDeltaSlice(t, []float64{g[1], g[1]}, u, 1.e-15)
	// A corner function lives on one element, an interior one on up to nine
	assert.Equal(t, []int{0}, s.FunctionSupport(0))
	for i := 0; i < s.NumBasisFunctions(); i++ {
		sup, ext := s.FunctionSupport(i), s.ExtendedSupport(i)
		assert.NotEmpty(t, sup)
		for _, iel := range sup {
			assert.Contains(t, ext, iel)
		}
		assert.GreaterOrEqual(t, len(ext), len(sup))
	}
	assert.Equal(t, 9, len(s.FunctionSupport(12)))
	assert.Equal(t, 9, len(s.ExtendedSupport(0)))
	l := unitSquare(t, 2, 3)
	assert.Equal(t, []int{0, 1, 3, 4}, l.ExtendedSupport(0))
	// Greville of order one is the span midpoint
	c, err := NewSpline([]int{1}, [][]float64{{0, 0.5, 1}}, 1, []float64{3, 4}, nil)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, c.Greville(0), 1.e-15)
}

func TestWithControlPoints(t *testing.T) {
	s := quarterCircle(t)
	b := s.WithControlPoints(1, []float64{1, 2, 3})
	assert.False(t, b.Rational())
	assert.Equal(t, 1, b.Dimension())
	X, err := b.Point([]float64{0.5})
	require.NoError(t, err)
	assert.InDelta(t, 2, X[0], 1.e-14)
	// the receiver is untouched
	assert.True(t, s.Rational())
	assert.Equal(t, 2, s.Dimension())
}
