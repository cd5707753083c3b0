package Elasticity

import (
	"fmt"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/newmark"
	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

/*
Small strain linear elasticity, in weak form for a test displacement v:

				∫ ρ ü⋅v dΩ + ∫ ε(v) : C : ε(u) dΩ = ∫ f⋅v dΩ + ∫ t⋅v dΓ

Strains are in Voigt order, [εxx] in 1D, [εxx εyy γxy] in 2D and
[εxx εyy εzz γxy γyz γxz] in 3D. 2D is plane stress unless PlaneStrain is
set.

In DYNAMIC mode the element matrices are Newmark matrices, A[1] the
consistent mass and A[2] the stiffness, with the residual force
b[0] = f - K u and the inertia force b[1] = -M ü.
*/

type Elasticity struct {
	*integrand.IntegrandBase
	E, Nu, Rho  float64
	PlaneStrain bool
	BodyForce   func(X []float64) []float64
	Traction    func(X, normal []float64) []float64
	nsd         int
	time        types.TimeDomain
}

func NewElasticity(nsd int) (el *Elasticity) {
	el = &Elasticity{
		IntegrandBase: integrand.NewIntegrandBase(nsd),
		E:             1,
		nsd:           nsd,
	}
	return
}

func (el *Elasticity) numStrains() int {
	return [...]int{1, 3, 6}[el.nsd-1]
}

// Constitutive returns the Voigt form material matrix
func (el *Elasticity) Constitutive() (C utils.Matrix) {
	var (
		E  = el.E
		nu = el.Nu
	)
	C = utils.NewMatrix(el.numStrains(), el.numStrains())
	switch el.nsd {
	case 1:
		C.Set(0, 0, E)
	case 2:
		if el.PlaneStrain {
			f := E / ((1 + nu) * (1 - 2*nu))
			C.Set(0, 0, f*(1-nu)).Set(1, 1, f*(1-nu))
			C.Set(0, 1, f*nu).Set(1, 0, f*nu)
			C.Set(2, 2, f*(1-2*nu)/2)
		} else {
			f := E / (1 - nu*nu)
			C.Set(0, 0, f).Set(1, 1, f)
			C.Set(0, 1, f*nu).Set(1, 0, f*nu)
			C.Set(2, 2, f*(1-nu)/2)
		}
	case 3:
		f := E / ((1 + nu) * (1 - 2*nu))
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				C.Set(i, j, f*nu)
			}
			C.Set(i, i, f*(1-nu))
			C.Set(i+3, i+3, f*(1-2*nu)/2)
		}
	}
	return
}

// StrainDisplacement fills the nstrn x nen*nsd matrix B with ε = B u
func (el *Elasticity) StrainDisplacement(B *utils.Matrix, dNdX utils.Matrix) {
	var (
		nen, _ = dNdX.Dims()
		nsd    = el.nsd
	)
	B.Resize(el.numStrains(), nen*nsd)
	B.Zero()
	for a := 0; a < nen; a++ {
		for i := 0; i < nsd; i++ {
			B.Set(i, a*nsd+i, dNdX.At(a, i))
		}
		switch nsd {
		case 2:
			B.Set(2, a*nsd, dNdX.At(a, 1))
			B.Set(2, a*nsd+1, dNdX.At(a, 0))
		case 3:
			// γxy, γyz, γxz
			for k, ij := range [3][2]int{{0, 1}, {1, 2}, {0, 2}} {
				B.Set(3+k, a*nsd+ij[0], dNdX.At(a, ij[1]))
				B.Set(3+k, a*nsd+ij[1], dNdX.At(a, ij[0]))
			}
		}
	}
}

func (el *Elasticity) InitIntegration(time types.TimeDomain) { el.time = time }

func (el *Elasticity) GetLocalIntegral(nen []int, iel int, neumann bool) integrand.LocalIntegral {
	var (
		ndof = nen[0] * el.nsd
		nA   = 1
	)
	if neumann {
		nA = 0
	}
	if el.Mode == types.DYNAMIC {
		nm := newmark.NewNewmarkMats(el.IntPrm[0], el.IntPrm[1], el.IntPrm[2], el.IntPrm[3], false)
		if !neumann {
			nA = 3
		}
		nm.Resize(nA, 2, ndof)
		nm.SetStepSize(el.time.Dt, el.time.It)
		return nm
	}
	em := integrand.NewElmMats(nA, 1, ndof)
	em.RHSOnly = el.Mode == types.RHS_ONLY
	return em
}

func (el *Elasticity) Evaluate(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X []float64) (err error) {
	var (
		B, CB utils.Matrix
		C     = el.Constitutive()
		w     = fe.DetJxW
		nsd   = el.nsd
		em    *integrand.ElmMats
		K     utils.Matrix
	)
	switch e := elm.(type) {
	case *newmark.NewmarkMats:
		em = &e.ElmMats
		K = em.A[2]
		M := em.A[1]
		for a, Na := range fe.N {
			for b, Nb := range fe.N {
				for i := 0; i < nsd; i++ {
					M.AddAt(a*nsd+i, b*nsd+i, el.Rho*Na*Nb*w)
				}
			}
		}
	case *integrand.ElmMats:
		em = e
		if !em.RHSOnly {
			K = em.A[0]
		}
	default:
		return fmt.Errorf("element integral %T: %w", elm, integrand.ErrElementSize)
	}
	if !K.IsEmpty() {
		el.StrainDisplacement(&B, fe.DNdX)
		CB = C.Mul(B)
		K.Add(B.Transpose().Mul(CB).Scale(w))
	}
	if el.BodyForce != nil {
		f := el.BodyForce(X)
		b := em.B[0].Data()
		for a, Na := range fe.N {
			for i := 0; i < nsd; i++ {
				b[a*nsd+i] += Na * f[i] * w
			}
		}
	}
	return
}

func (el *Elasticity) HasBoundaryTerms() bool { return el.Traction != nil }

func (el *Elasticity) EvaluateBou(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X, normal []float64) error {
	if el.Traction == nil {
		return nil
	}
	var (
		t = el.Traction(X, normal)
		b []float64
	)
	switch e := elm.(type) {
	case *newmark.NewmarkMats:
		b = e.B[0].Data()
	case *integrand.ElmMats:
		b = e.B[0].Data()
	default:
		return fmt.Errorf("element integral %T: %w", elm, integrand.ErrElementSize)
	}
	for a, Na := range fe.N {
		for i := 0; i < el.nsd; i++ {
			b[a*el.nsd+i] += Na * t[i] * fe.DetJxW
		}
	}
	return nil
}

// FinalizeElement forms the dynamic residual b[0] -= K u and the inertia
// force b[1] = -M ü from the element solution vectors
func (el *Elasticity) FinalizeElement(elm integrand.LocalIntegral, time types.TimeDomain) error {
	nm, ok := elm.(*newmark.NewmarkMats)
	if !ok || len(nm.A) < 3 || len(nm.Vec) < 3 {
		return nil
	}
	var (
		d = nm.Vec[0].Data()
		a = nm.Vec[len(nm.Vec)-1].Data()
	)
	nm.B[0].AddScaled(-1, utils.NewVector(len(d), nm.A[2].MulVec(d, false)))
	nm.B[1].AddScaled(-1, utils.NewVector(len(a), nm.A[1].MulVec(a, false)))
	return nil
}

// EvalSol returns the stress in Voigt order
func (el *Elasticity) EvalSol(fe *integrand.FiniteElement, X []float64, MNPC []int) (sigma []float64, err error) {
	if len(el.PrimSol) == 0 {
		return nil, integrand.ErrNoSolution
	}
	var (
		ue utils.Vector
		B  utils.Matrix
	)
	if ue, err = integrand.ExtractElementVector(el.PrimSol[0].Data(), MNPC, el.nsd); err != nil {
		return
	}
	el.StrainDisplacement(&B, fe.DNdX)
	eps := B.MulVec(ue.Data(), false)
	sigma = el.Constitutive().MulVec(eps, false)
	return
}

func (el *Elasticity) NumFields(which int) int {
	if which == 2 {
		return el.numStrains()
	}
	return el.nsd
}

func (el *Elasticity) FieldName(which, i int) string {
	if which == 1 {
		return fmt.Sprintf("u_%c", 'x'+i)
	}
	return [...]string{"sigma_xx", "sigma_yy", "sigma_zz", "sigma_xy", "sigma_yz", "sigma_xz"}[el.voigtIndex(i)]
}

func (el *Elasticity) voigtIndex(i int) int {
	if el.nsd == 2 && i == 2 {
		return 3
	}
	return i
}
