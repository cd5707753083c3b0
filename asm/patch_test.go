package asm

import (
	"math"
	"testing"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rectangle returns a 2D patch of the given order over [0,lx]x[0,ly] with nel
// elements per direction
func rectangle(t *testing.T, lx, ly float64, order, nel int) *spline.Spline {
	s := spline.NewLinearPatch([]float64{0, 0}, []float64{lx, ly})
	for d := 0; d < 2; d++ {
		require.NoError(t, s.RaiseOrder(d, order-2))
		require.NoError(t, s.UniformRefine(d, nel-1))
	}
	return s
}

// curvedSquare is the quadratic 3x3 unit square with the center control
// point moved
func curvedSquare(t *testing.T) *spline.Spline {
	s := rectangle(t, 1, 1, 3, 3)
	s.Coefs[12*2] += 0.05
	s.Coefs[12*2+1] += 0.03
	return s
}

// quarterAnnulus has inner radius 1 and outer radius 2, linear in the
// radial and rational quadratic in the angular direction
func quarterAnnulus(t *testing.T) *spline.Spline {
	w := 1 / math.Sqrt2
	s, err := spline.NewSpline([]int{2, 3}, [][]float64{{0, 0, 1, 1}, {0, 0, 0, 1, 1, 1}}, 2,
		[]float64{1, 0, 2, 0, 1, 1, 2, 2, 0, 1, 0, 2},
		[]float64{1, 1, w, w, 1, 1})
	require.NoError(t, err)
	return s
}

// areaProblem integrates the area and the boundary length; its secondary
// solution is the physical point
type areaProblem struct {
	*integrand.IntegrandBase
	nsd, m int
}

func newAreaProblem(nsd int) *areaProblem {
	return &areaProblem{IntegrandBase: integrand.NewIntegrandBase(1), nsd: nsd}
}

func (ap *areaProblem) GetLocalIntegral(nen []int, iel int, neumann bool) integrand.LocalIntegral {
	return integrand.NewElmNorm(1)
}

func (ap *areaProblem) Evaluate(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X []float64) error {
	elm.(*integrand.ElmNorm).Vals[0] += fe.DetJxW
	return nil
}

func (ap *areaProblem) EvaluateBou(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X, normal []float64) error {
	elm.(*integrand.ElmNorm).Vals[0] += fe.DetJxW
	return nil
}

func (ap *areaProblem) EvalSol(fe *integrand.FiniteElement, X []float64, MNPC []int) ([]float64, error) {
	return append([]float64{}, X...), nil
}

func (ap *areaProblem) NumFields(which int) int {
	if which == 2 {
		return ap.nsd
	}
	return 1
}

func (ap *areaProblem) DerivativeOrder() int {
	if ap.m > 0 {
		return ap.m
	}
	return 1
}

func integrateArea(t *testing.T, p Patch, lIndex int) float64 {
	gs := integrand.NewGlobalSum(1, false)
	prob := newAreaProblem(p.NumSpaceDims())
	if lIndex == 0 {
		require.NoError(t, p.Integrate(prob, gs, types.TimeDomain{}))
	} else {
		require.NoError(t, p.IntegrateBoundary(prob, lIndex, gs, types.TimeDomain{}))
	}
	return gs.Sum[0]
}

func TestPatchTopology(t *testing.T) {
	{ // Structured single basis
		p, err := NewASMs(rectangle(t, 1, 1, 3, 3), 2, []int{1}, DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, Structured, p.Kind())
		assert.Equal(t, 0, p.NumElements())
		assert.ErrorIs(t, p.Integrate(newAreaProblem(2), integrand.NewGlobalSum(1, false), types.TimeDomain{}),
			ErrNoTopology)
		require.NoError(t, p.GenerateFEMTopology())
		assert.Equal(t, 2, p.Dimension())
		assert.Equal(t, 9, p.NumElements())
		assert.Equal(t, 25, p.NumNodes(0))
		assert.Equal(t, 25, p.NumDOFs())
		assert.Len(t, p.MNPC(4), 9)
		assert.Equal(t, []int{0, 1, 2, 5, 6, 7, 10, 11, 12}, p.MNPC(0))

		assert.Equal(t, 5, p.ConstrainEdge(-1, 1, 0))
		assert.Equal(t, 5, p.ConstrainEdge(2, 1, 0))
		assert.Equal(t, 0, p.ConstrainEdge(3, 1, 0))
		assert.Equal(t, 0, p.ConstrainEdge(0, 1, 0))
		assert.Equal(t, 1, p.ConstrainCorner([]int{1, 1}, 1, 7))
		assert.Equal(t, 0, p.ConstrainCorner([]int{1}, 1, 7))
		assert.Equal(t, 1, p.ConstrainNode([]float64{0.5, 0.5}, 1, 0))
		assert.Equal(t, 0, p.ConstrainNode([]float64{1.5, 0.5}, 1, 0))
		// the corner is on both edges and was recoded
		cons := p.Constraints()
		assert.Len(t, cons, 10)
		for _, c := range cons {
			if c.Node == 24 {
				assert.Equal(t, 7, c.Code)
			}
		}
		assert.Contains(t, cons, Constraint{Node: 12, Dof: 1})

		assert.InDeltaSlice(t, []float64{0.5, 0}, p.GetCoord(2), 1e-14)
		X := p.GetNodalCoordinates()
		assert.InDelta(t, 1., X.At(1, 24), 1e-14)
		Xnod, err := p.GetElementCoordinates(8)
		require.NoError(t, err)
		nr, nc := Xnod.Dims()
		assert.Equal(t, 2, nr)
		assert.Equal(t, 9, nc)

		require.NoError(t, p.UniformRefine(0, 1))
		assert.Equal(t, 0, p.NumElements())
		require.NoError(t, p.GenerateFEMTopology())
		assert.Equal(t, 18, p.NumElements())
		assert.Equal(t, 40, p.NumNodes(1))
		assert.ErrorIs(t, p.Refine(2, []float64{0.5}), ErrInvalidDirection)
		assert.ErrorIs(t, p.RefineElements([]int{0}), ErrUnsupported)
	}
	{ // Mixed bases, nodes of basis 1 first
		p, err := NewASMs(rectangle(t, 1, 1, 2, 2), 2, []int{2, 1}, DefaultConfig())
		require.NoError(t, err)
		require.NoError(t, p.GenerateFEMTopology())
		assert.Equal(t, 2, p.NumBases())
		assert.Equal(t, 25, p.NumNodes(1))
		assert.Equal(t, 9, p.NumNodes(2))
		assert.Equal(t, 34, p.NumNodes(0))
		assert.Equal(t, 59, p.NumDOFs())
		assert.Equal(t, 3, p.NumFields(0))
		mnpc := p.MNPC(0)
		require.Len(t, mnpc, 13)
		for _, inod := range mnpc[9:] {
			assert.GreaterOrEqual(t, inod, 25)
		}
		assert.Equal(t, 2, p.Geometry().Order(0))
		assert.Equal(t, 5, p.ConstrainEdge(-1, 12, 0, 1))
		assert.Equal(t, 3, p.ConstrainEdge(-1, 1, 0, 2))
		assert.Len(t, p.Constraints(), 13)
		assert.Equal(t, 25, p.Constraints()[10].Node)

		cfg := DefaultConfig()
		cfg.UseCpminus1 = true
		p, err = NewASMs(rectangle(t, 1, 1, 2, 2), 2, []int{2, 1}, cfg)
		require.NoError(t, err)
		require.NoError(t, p.GenerateFEMTopology())
		assert.Equal(t, 16, p.NumNodes(1))

		cfg = DefaultConfig()
		cfg.UseLowOrderBasis1 = true
		cfg.GeoUsesBasis1 = true
		p, err = NewASMs(rectangle(t, 1, 1, 2, 2), 2, []int{1, 1}, cfg)
		require.NoError(t, err)
		require.NoError(t, p.GenerateFEMTopology())
		assert.Equal(t, 9, p.NumNodes(1))
		assert.Equal(t, 2, p.Geometry().Order(1))
		assert.InDelta(t, 1., integrateArea(t, p, 0), 1e-14)
	}
	{ // Invalid setups
		_, err := NewASMs(rectangle(t, 1, 1, 2, 2), 1, []int{1}, DefaultConfig())
		assert.ErrorIs(t, err, ErrInvalidDirection)
		_, err = NewASMs(rectangle(t, 1, 1, 2, 2), 2, []int{1, 1, 1}, DefaultConfig())
		assert.ErrorIs(t, err, ErrUnsupported)
		cfg := DefaultConfig()
		cfg.NGauss = -1
		_, err = NewASMs(rectangle(t, 1, 1, 2, 2), 2, []int{1}, cfg)
		assert.ErrorIs(t, err, ErrTooFewGaussPoints)
		_, err = NewASMu(quarterAnnulus(t), 2, []int{1}, DefaultConfig())
		assert.ErrorIs(t, err, ErrRationalSpline)
	}
}

func TestUnstructuredPatch(t *testing.T) {
	p, err := NewASMu(rectangle(t, 1, 1, 3, 3), 2, []int{1}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Unstructured, p.Kind())
	require.NoError(t, p.GenerateFEMTopology())
	assert.Equal(t, 9, p.NumElements())
	assert.Equal(t, 25, p.NumNodes(0))
	assert.Equal(t, 1, p.ConstrainNode([]float64{0.5, 0.5}, 1, 0))
	assert.Equal(t, Constraint{Node: 12, Dof: 1}, p.Constraints()[0])

	require.NoError(t, p.RefineElements([]int{0}))
	assert.Equal(t, 0, p.NumElements())
	require.NoError(t, p.GenerateFEMTopology())
	assert.Equal(t, 12, p.NumElements())
	assert.Equal(t, 28, p.NumNodes(0))
	assert.ErrorIs(t, p.RaiseOrder(1), ErrUnsupported)
	assert.InDelta(t, 1., integrateArea(t, p, 0), 1e-13)
	assert.Equal(t, 6, p.ConstrainEdge(-2, 1, 0))

	// global refinement after local refinement
	require.NoError(t, p.UniformRefine(1, 1))
	require.NoError(t, p.GenerateFEMTopology())
	assert.Greater(t, p.NumElements(), 12)
	assert.InDelta(t, 1., integrateArea(t, p, 0), 1e-13)
	assert.InDelta(t, 1., integrateArea(t, p, -2), 1e-13)

	{ // Mixed LR patch keeps a common element mesh
		p, err := NewASMu(rectangle(t, 1, 1, 2, 2), 2, []int{2, 1}, DefaultConfig())
		require.NoError(t, err)
		require.NoError(t, p.RefineElements([]int{3}))
		require.NoError(t, p.GenerateFEMTopology())
		assert.Equal(t, p.LR(1).NumElements(), p.LR(2).NumElements())
		assert.InDelta(t, 1., integrateArea(t, p, 0), 1e-13)
	}
}

func TestNodeVectors(t *testing.T) {
	p, err := NewASMs(rectangle(t, 2, 1, 2, 1), 2, []int{1}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, p.GenerateFEMTopology())
	p.SetGlobalNodeOffset(2)
	assert.Equal(t, []int{2, 3, 4, 5}, p.MLGN())

	global := []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5}
	local, err := p.ExtractNodeVec(global, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 3, 3, 4, 4, 5, 5}, local)
	_, err = p.ExtractNodeVec(global[:8], 2, 0)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	out := make([]float64, 6)
	require.NoError(t, p.InjectNodeVec([]float64{7, 8, 9, 10}, out, 1, 1))
	assert.Equal(t, []float64{0, 0, 7, 8, 9, 10}, out)

	// rigid translation keeps the area
	require.NoError(t, p.UpdateCoords([]float64{1, 0, 1, 0, 1, 0, 1, 0}))
	assert.Equal(t, []float64{1, 0}, p.GetCoord(0))
	assert.InDelta(t, 2., integrateArea(t, p, 0), 1e-14)
	assert.ErrorIs(t, p.UpdateCoords([]float64{1}), ErrSizeMismatch)

	// the update survives a refinement
	require.NoError(t, p.UniformRefine(0, 1))
	require.NoError(t, p.GenerateFEMTopology())
	assert.InDeltaSlice(t, []float64{1, 0}, p.GetCoord(0), 1e-14)
	assert.InDelta(t, 3., p.GetCoord(2)[0], 1e-14)

	q, err := NewASMs(quarterAnnulus(t), 2, []int{1}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, q.GenerateFEMTopology())
	assert.ErrorIs(t, q.UpdateCoords(make([]float64, 12)), ErrRationalSpline)
}

func TestClear(t *testing.T) {
	p, err := NewASMs(rectangle(t, 1, 1, 2, 2), 2, []int{1}, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, p.GenerateFEMTopology())
	p.ConstrainEdge(1, 1, 0)
	p.Clear(true)
	assert.Empty(t, p.Constraints())
	require.NoError(t, p.GenerateFEMTopology())
	assert.Equal(t, 4, p.NumElements())
	p.Clear(false)
	assert.ErrorIs(t, p.GenerateFEMTopology(), ErrNoTopology)
	assert.Nil(t, p.Geometry())
}
