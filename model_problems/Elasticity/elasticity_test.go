package Elasticity

import (
	"math"
	"testing"

	"github.com/notargets/goiga/asm"
	"github.com/notargets/goiga/newmark"
	"github.com/notargets/goiga/sim"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstitutive(t *testing.T) {
	el := NewElasticity(2)
	el.Nu = 0.25
	// the shear modulus is E/(2(1+nu)) = 0.4 in all cases
	C := el.Constitutive()
	assert.InDeltaSlice(t, []float64{16. / 15, 4. / 15, 0, 4. / 15, 16. / 15, 0, 0, 0, 0.4}, C.Data(), 1e-14)
	el.PlaneStrain = true
	C = el.Constitutive()
	assert.InDeltaSlice(t, []float64{1.2, 0.4, 0, 0.4, 1.2, 0, 0, 0, 0.4}, C.Data(), 1e-14)

	el3 := NewElasticity(3)
	el3.Nu = 0.25
	C = el3.Constitutive()
	assert.InDelta(t, 1.2, C.At(2, 2), 1e-14)
	assert.InDelta(t, 0.4, C.At(1, 2), 1e-14)
	assert.InDelta(t, 0.4, C.At(5, 5), 1e-14)
	assert.Equal(t, 0., C.At(0, 3))

	var B utils.Matrix
	dNdX := utils.NewMatrix(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})
	el3.StrainDisplacement(&B, dNdX)
	nr, nc := B.Dims()
	assert.Equal(t, 6, nr)
	assert.Equal(t, 6, nc)
	// γyz
	assert.Equal(t, []float64{0, 3, 2, 0, 6, 5}, B.Row(4))
	assert.Equal(t, "sigma_xy", el.FieldName(2, 2))
	assert.Equal(t, "u_y", el.FieldName(1, 1))
}

// TestUniaxialTension loads the unit square by a traction on x = 1, with
// u_x = 0 on x = 0 and u_y = 0 in the origin
func TestUniaxialTension(t *testing.T) {
	const (
		E     = 100.
		nu    = 0.3
		sigma = 10.
	)
	s := spline.NewLinearPatch([]float64{0, 0}, []float64{1, 1})
	for d := 0; d < 2; d++ {
		require.NoError(t, s.RaiseOrder(d, 1))
		require.NoError(t, s.UniformRefine(d, 1))
	}
	p, err := asm.NewASMs(s, 2, []int{2}, asm.DefaultConfig())
	require.NoError(t, err)

	el := NewElasticity(2)
	el.E, el.Nu = E, nu
	el.Traction = func(X, normal []float64) []float64 { return []float64{sigma * normal[0], 0} }
	model := sim.NewSIM(el, p)
	model.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: -1, Dofs: 1})
	model.AddDirichlet(sim.Dirichlet{Patch: 1, Xi: []float64{0, 0}, Dofs: 2})
	model.AddNeumann(sim.Neumann{Patch: 1, LIndex: 1})
	require.NoError(t, model.Preprocess())
	assert.Equal(t, 32, model.NumDOFs())
	assert.Equal(t, 32-4-1, model.SAM().NEQ)

	sol, err := model.SolveLinearStatic(0)
	require.NoError(t, err)
	for inod := 0; inod < p.NumNodes(1); inod++ {
		X := p.GetCoord(inod)
		assert.InDelta(t, sigma/E*X[0], sol[2*inod], 1e-10)
		assert.InDelta(t, -nu*sigma/E*X[1], sol[2*inod+1], 1e-10)
	}

	fields, err := model.Project(sol, types.PROJ_Global)
	require.NoError(t, err)
	cps := fields[0].ControlPoints()
	require.Len(t, cps, 3*p.NumNodes(1))
	for i := 0; i < len(cps); i += 3 {
		assert.InDeltaSlice(t, []float64{sigma, 0, 0}, cps[i:i+3], 1e-8)
	}
}

// TestElastodynamics runs one period of a single element bar fixed at x = 0.
// The free end has the lumped properties m = rho/3 = 1 and k = E = 4pi^2.
func TestElastodynamics(t *testing.T) {
	p, err := asm.NewASMs(spline.NewLinearPatch([]float64{0}, []float64{1}), 1, []int{1}, asm.DefaultConfig())
	require.NoError(t, err)
	el := NewElasticity(1)
	el.E, el.Rho = 4*math.Pi*math.Pi, 3
	model := sim.NewSIM(el, p)
	model.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: -1, Dofs: 1})
	require.NoError(t, model.Preprocess())
	el.SetMode(types.DYNAMIC)

	nm := newmark.NewNewmark(model)
	nm.SetAlpha(0)
	require.NoError(t, nm.Init(0))
	k := el.E
	require.NoError(t, nm.SetInitialConditions([]float64{0, 1}, nil, []float64{0, -k}))

	tp, err := sim.NewTimeStep(0, 1, 0.01)
	require.NoError(t, err)
	solver := sim.NewSolver(nm, tp)
	var nSaved int
	solver.SaveStep = func(tp *sim.TimeStep) error {
		nSaved++
		assert.Equal(t, 0., nm.Displacement()[0])
		return nil
	}
	require.NoError(t, solver.SolveProblem())
	assert.Equal(t, 101, nSaved)
	assert.Equal(t, 100, tp.Step)

	var (
		d = nm.Displacement()[1]
		v = nm.Velocity()[1]
	)
	assert.InDelta(t, 1., d, 1e-4)
	assert.InEpsilon(t, 0.5*k, 0.5*v*v+0.5*k*d*d, 1e-8)
	assert.Equal(t, nm.Displacement(), model.Configuration())
}
