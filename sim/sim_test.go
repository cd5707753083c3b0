package sim_test

import (
	"testing"

	"github.com/notargets/goiga/asm"
	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/model_problems/Poisson"
	"github.com/notargets/goiga/sim"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(t *testing.T, x0, x1 float64, order, nel int) *asm.ASMs {
	s := spline.NewLinearPatch([]float64{x0}, []float64{x1})
	require.NoError(t, s.RaiseOrder(0, order-2))
	require.NoError(t, s.UniformRefine(0, nel-1))
	p, err := asm.NewASMs(s, 1, []int{1}, asm.DefaultConfig())
	require.NoError(t, err)
	return p
}

// twoBars is a model of the uncoupled patches [0,1], linear with two
// elements, and [1,2], quadratic with one element
func twoBars(t *testing.T) *sim.SIM {
	prob := Poisson.NewPoisson(1)
	prob.Source = func(X []float64) float64 { return 2 }
	model := sim.NewSIM(prob, bar(t, 0, 1, 2, 2), bar(t, 1, 2, 3, 1))
	model.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: -1, Dofs: 1})
	model.AddDirichlet(sim.Dirichlet{Patch: 2, LIndex: -1, Dofs: 1, Code: 7})
	model.AddDirichlet(sim.Dirichlet{Patch: 2, LIndex: 1, Dofs: 1})
	return model
}

func TestSAM(t *testing.T) {
	model := twoBars(t)
	_, err := model.ExtractPatchSolution(make([]float64, 6), 1)
	assert.ErrorIs(t, err, sim.ErrNotPreprocessed)
	assert.ErrorIs(t, model.InitSystem(1, 1), sim.ErrNotPreprocessed)
	require.NoError(t, model.Preprocess())

	sam := model.SAM()
	assert.Equal(t, 6, sam.NumNodes)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, sam.MADOF)
	assert.Equal(t, []int{-1, 0, 1, -1, 2, -1}, sam.MEQN)
	assert.Equal(t, 3, sam.NEQ)
	code, ok := sam.IsConstrained(3)
	assert.True(t, ok)
	assert.Equal(t, 7, code)
	_, ok = sam.IsConstrained(4)
	assert.False(t, ok)

	dofs, err := sam.ElementDOFs(1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, dofs)
	dofs, err = sam.ElementDOFs(2)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, dofs)
	_, err = sam.ElementDOFs(3)
	assert.ErrorIs(t, err, sim.ErrElementIndex)

	first, last := sam.PatchDOFs(1)
	assert.Equal(t, 3, first)
	assert.Equal(t, 6, last)
	assert.Equal(t, []float64{1, 2, 3, 10, 20, 30}, sam.ExpandSolution([]float64{2, 3, 20}, []float64{1, 0, 0, 10, 0, 30}))

	sol := []float64{0, 1, 2, 3, 4, 5}
	local, err := model.ExtractPatchSolution(sol, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, local)
	require.NoError(t, model.InjectPatchSolution(sol, []float64{-3, -4, -5}, 2))
	assert.Equal(t, []float64{0, 1, 2, -3, -4, -5}, sol)
	_, err = model.ExtractPatchSolution(sol, 3)
	assert.ErrorIs(t, err, sim.ErrUnknownPatch)
	_, err = model.ExtractPatchSolution(sol[:4], 2)
	assert.ErrorIs(t, err, sim.ErrSizeMismatch)
}

func TestAssembleAndSolve(t *testing.T) {
	model := twoBars(t)
	require.NoError(t, model.Preprocess())
	_, err := model.SolveSystem()
	assert.ErrorIs(t, err, sim.ErrNoSystem)
	assert.ErrorIs(t, model.AssembleSystem(types.TimeDomain{}, nil, true), sim.ErrNoSystem)

	require.NoError(t, model.InitSystem(1, 1))
	require.NoError(t, model.AssembleSystem(types.TimeDomain{}, nil, true))
	eqs := model.EquationSystem()
	// the two free nodes of the linear bar with element length 1/2
	assert.InDeltaSlice(t, []float64{4, -2, -2, 2}, []float64{
		eqs.A[0].At(0, 0), eqs.A[0].At(0, 1), eqs.A[0].At(1, 0), eqs.A[0].At(1, 1)}, 1e-13)
	assert.Equal(t, 0., eqs.A[0].At(1, 2))
	rhs, err := model.GetRHSVector(0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 0.5, 0, 2. / 3, 0}, rhs, 1e-13)
	_, err = model.GetRHSVector(1)
	assert.ErrorIs(t, err, sim.ErrNoSystem)
	assert.ErrorIs(t, model.AddToRHSVector(0, []float64{1}, 1), sim.ErrSizeMismatch)

	// -u'' = 2 is solved by u = x(2-x) on both bars: nodally exact on the
	// linear one, with u(0) = 0 and u'(1) = 0, and exactly on the quadratic
	// one with u(1) = 1 and u(2) = 0
	model.SetDirichletFunc(7, func(X []float64, t float64) float64 { return X[0] })
	sol, err := model.SolveLinearStatic(0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.75, 1}, sol[:3], 1e-12)
	// control points of u = x(2-x) on [1,2]: 1, 1 and 0
	assert.InDeltaSlice(t, []float64{1, 1, 0}, sol[3:], 1e-12)
}

// elementOnly is a problem whose elements are not matrices
type elementOnly struct {
	*Poisson.Poisson
}

func (eo *elementOnly) GetLocalIntegral(nen []int, iel int, neumann bool) integrand.LocalIntegral {
	return integrand.NewElmNorm(1)
}

func (eo *elementOnly) Evaluate(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X []float64) error {
	return nil
}

func TestAlgEqSystemErrors(t *testing.T) {
	model := sim.NewSIM(&elementOnly{Poisson.NewPoisson(1)}, bar(t, 0, 1, 2, 1))
	require.NoError(t, model.Preprocess())
	require.NoError(t, model.InitSystem(1, 1))
	assert.ErrorIs(t, model.AssembleSystem(types.TimeDomain{}, nil, true), sim.ErrElementType)

	eqs := sim.NewAlgEqSystem(model.SAM(), 1, 1)
	eqs.Initialize(true)
	em := integrand.NewElmMats(1, 1, 3)
	assert.ErrorIs(t, eqs.Assemble(em, 0), integrand.ErrElementSize)

	em = integrand.NewElmMats(1, 1, 2)
	em.A[0].Set(0, 0, 1).Set(1, 1, 1)
	em.B[0].Set(0, 3).Set(1, 4)
	require.NoError(t, eqs.Assemble(em, 0))
	require.NoError(t, eqs.AddToRHS(0, []float64{1, 1}, -2))
	x, err := eqs.Solve()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, x)

	empty := sim.NewAlgEqSystem(model.SAM(), 0, 0)
	_, err = empty.Solve()
	assert.ErrorIs(t, err, sim.ErrNoSystem)
	_, err = empty.RHS(0)
	assert.ErrorIs(t, err, sim.ErrNoSystem)
}

// TestInhomogeneousDirichlet prescribes u = 1 + x + t on both ends of a bar
// and solves for the increment from a linear current state
func TestInhomogeneousDirichlet(t *testing.T) {
	model := sim.NewSIM(Poisson.NewPoisson(1), bar(t, 0, 1, 2, 4))
	model.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: -1, Dofs: 1, Code: 1})
	model.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: 1, Dofs: 1, Code: 1})
	model.SetDirichletFunc(1, func(X []float64, t float64) float64 { return 1 + X[0] + t })
	require.NoError(t, model.Preprocess())
	require.NoError(t, model.InitSystem(1, 1))

	current := []float64{0.5, 0.625, 0.75, 0.875, 1}
	require.NoError(t, model.AssembleSystem(types.TimeDomain{T: 1}, [][]float64{current}, true))
	du, err := model.SolveSystem()
	require.NoError(t, err)
	for i, x := range []float64{0, 0.25, 0.5, 0.75, 1} {
		assert.InDelta(t, 2+x, current[i]+du[i], 1e-12)
	}
	require.NoError(t, model.UpdateConfiguration(du))
	assert.ErrorIs(t, model.UpdateConfiguration(du[:2]), sim.ErrSizeMismatch)
}
