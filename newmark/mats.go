package newmark

import (
	"fmt"
	"math"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/utils"
)

// NewmarkMats holds the element matrices of a dynamic problem, A[1] being
// the mass and A[2] the stiffness matrix, together with the integration
// constants. The element solution vectors end with the velocity and the
// acceleration. See eqs. (6.50) and (6.52) in Cottrell et al. (2009).
type NewmarkMats struct {
	integrand.ElmMats
	Alpha1, Alpha2 float64 // Rayleigh damping, mass and stiffness proportional
	Beta, Gamma    float64
	AlphaM, AlphaF float64
	H              float64 // time step size
	SlvDisp        bool    // displacement increments are the primary unknowns
	IsPredictor    bool
}

// NewNewmarkMats sets up the integration constants. For the generalized-alpha
// method b and c are alpha_m and alpha_f; otherwise b is beta and c is gamma.
// A negative b selects displacement increments as primary unknowns.
func NewNewmarkMats(a1, a2, b, c float64, generalizedAlpha bool) (nm *NewmarkMats) {
	nm = &NewmarkMats{
		Alpha1:      a1,
		Alpha2:      a2,
		SlvDisp:     b < 0,
		IsPredictor: true,
	}
	if generalizedAlpha {
		nm.AlphaM = math.Abs(b)
		nm.AlphaF = c
		alpha := nm.AlphaF - nm.AlphaM
		nm.Beta = 0.25 * (1 - alpha) * (1 - alpha)
		nm.Gamma = 0.5 - alpha
	} else {
		nm.AlphaM, nm.AlphaF = 1, 1
		nm.Beta = math.Abs(b)
		nm.Gamma = c
	}
	return
}

// SetStepSize updates the time step, the predictor flag follows the
// iteration counter
func (nm *NewmarkMats) SetStepSize(dt float64, iter int) {
	nm.H = dt
	nm.IsPredictor = iter == 0
}

// NewtonMatrix combines mass and stiffness into A[0]
func (nm *NewmarkMats) NewtonMatrix() (N utils.Matrix, err error) {
	if len(nm.A) < 3 {
		err = fmt.Errorf("%d element matrices, need mass and stiffness: %w", len(nm.A), integrand.ErrElementSize)
		return
	}
	var (
		h = nm.H
	)
	N = nm.A[0]
	N.Zero()
	N.AddScaled(nm.AlphaM+nm.AlphaF*nm.Alpha1*nm.Gamma*h, nm.A[1])
	N.AddScaled(nm.AlphaF*(nm.Alpha2*nm.Gamma+nm.Beta*h)*h, nm.A[2])
	if nm.SlvDisp {
		N.Scale(1 / (nm.Beta * h * h))
	}
	return
}

// RHSVector returns the effective residual b[0] - M*a - alpha1*M*v -
// alpha2*K*v. b[0] itself is left unchanged.
func (nm *NewmarkMats) RHSVector() (dF utils.Vector, err error) {
	if len(nm.B) == 0 {
		err = fmt.Errorf("no element vector: %w", integrand.ErrElementSize)
		return
	}
	dF = nm.B[0].Copy()
	if len(nm.A) < 3 || len(nm.Vec) < 3 {
		return
	}
	var (
		ia = len(nm.Vec) - 1
		iv = len(nm.Vec) - 2
	)
	dF.AddScaled(-1, utils.NewVector(dF.Len(), nm.A[1].MulVec(nm.Vec[ia].Data(), false)))
	if nm.Alpha1 > 0 {
		dF.AddScaled(-nm.Alpha1, utils.NewVector(dF.Len(), nm.A[1].MulVec(nm.Vec[iv].Data(), false)))
	}
	if nm.Alpha2 > 0 {
		dF.AddScaled(-nm.Alpha2, utils.NewVector(dF.Len(), nm.A[2].MulVec(nm.Vec[iv].Data(), false)))
	}
	return
}
