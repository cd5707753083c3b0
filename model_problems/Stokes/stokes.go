package Stokes

import (
	"fmt"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

/*
Steady Stokes flow on a mixed patch, velocity u on basis 1 and pressure p on
basis 2. For test functions (v, q):

				∫ μ ∇u : ∇v dΩ - ∫ p ∇⋅v dΩ = ∫ f⋅v dΩ + ∫ t⋅v dΓ
				                - ∫ q ∇⋅u dΩ = 0

with the pseudo traction t = μ ∇u⋅n - p n on Neumann boundaries, zero on
outflow boundaries left without conditions. Element unknowns are ordered as
all velocity components of the basis 1 nodes followed by the pressures.
*/

type Stokes struct {
	*integrand.IntegrandBase
	Mu        float64
	BodyForce func(X []float64) []float64
	Traction  func(X, normal []float64) []float64
	nsd       int
}

func NewStokes(nsd int) (st *Stokes) {
	st = &Stokes{
		IntegrandBase: integrand.NewIntegrandBase(nsd),
		Mu:            1,
		nsd:           nsd,
	}
	st.Npv2 = 1
	return
}

func (st *Stokes) MixedFormulation() bool { return true }

func (st *Stokes) HasBoundaryTerms() bool { return st.Traction != nil }

func (st *Stokes) GetLocalIntegral(nen []int, iel int, neumann bool) integrand.LocalIntegral {
	var (
		ndof = nen[0] * st.nsd
		nA   = 1
	)
	if len(nen) > 1 {
		ndof += nen[1]
	}
	if neumann {
		nA = 0
	}
	em := integrand.NewElmMats(nA, 1, ndof)
	em.RHSOnly = st.Mode == types.RHS_ONLY
	return em
}

func (st *Stokes) Evaluate(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X []float64) (err error) {
	var (
		em       = elm.(*integrand.ElmMats)
		N1, dN1  = fe.Basis(1)
		N2, _    = fe.Basis(2)
		nsd      = st.nsd
		n1       = len(N1) * nsd
		w        = fe.DetJxW
		A        utils.Matrix
		mixedElm = len(fe.Mx) > 1
	)
	if !mixedElm {
		return fmt.Errorf("element %d has a single basis: %w", fe.Iel, integrand.ErrElementSize)
	}
	if !em.RHSOnly {
		A = em.A[0]
		for a := range N1 {
			for b := range N1 {
				var dot float64
				for d := 0; d < nsd; d++ {
					dot += dN1.At(a, d) * dN1.At(b, d)
				}
				for i := 0; i < nsd; i++ {
					A.AddAt(a*nsd+i, b*nsd+i, st.Mu*dot*w)
				}
			}
			for q, Nq := range N2 {
				for i := 0; i < nsd; i++ {
					v := dN1.At(a, i) * Nq * w
					A.AddAt(a*nsd+i, n1+q, -v)
					A.AddAt(n1+q, a*nsd+i, -v)
				}
			}
		}
	}
	if st.BodyForce != nil {
		f := st.BodyForce(X)
		b := em.B[0].Data()
		for a, Na := range N1 {
			for i := 0; i < nsd; i++ {
				b[a*nsd+i] += Na * f[i] * w
			}
		}
	}
	return
}

func (st *Stokes) EvaluateBou(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X, normal []float64) error {
	if st.Traction == nil {
		return nil
	}
	var (
		t     = st.Traction(X, normal)
		N1, _ = fe.Basis(1)
		b     = elm.(*integrand.ElmMats).B[0].Data()
	)
	for a, Na := range N1 {
		for i := 0; i < st.nsd; i++ {
			b[a*st.nsd+i] += Na * t[i] * fe.DetJxW
		}
	}
	return nil
}

// EvalSol returns the velocity gradient, row by row
func (st *Stokes) EvalSol(fe *integrand.FiniteElement, X []float64, MNPC []int) (grad []float64, err error) {
	if len(st.PrimSol) == 0 {
		return nil, integrand.ErrNoSolution
	}
	var ue utils.Vector
	if ue, err = integrand.ExtractElementVector(st.PrimSol[0].Data(), MNPC, st.nsd); err != nil {
		return
	}
	_, dN1 := fe.Basis(1)
	grad = make([]float64, st.nsd*st.nsd)
	for i := 0; i < st.nsd; i++ {
		for d := 0; d < st.nsd; d++ {
			for a := range MNPC {
				grad[i*st.nsd+d] += dN1.At(a, d) * ue.AtVec(a*st.nsd+i)
			}
		}
	}
	return
}

func (st *Stokes) NumFields(which int) int {
	if which == 2 {
		return st.nsd * st.nsd
	}
	return st.nsd
}

func (st *Stokes) FieldName(which, i int) string {
	if which == 1 {
		return fmt.Sprintf("u_%c", 'x'+i)
	}
	return fmt.Sprintf("du_%c/d%c", 'x'+i/st.nsd, 'x'+i%st.nsd)
}
