package asm

import (
	"fmt"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/utils"
)

// SplineField is a field given by control point values on a spline basis,
// e.g. a projected secondary solution or the solution of another simulator.
// Gradients are mapped through the patch geometry.
type SplineField struct {
	Values spline.Basis
	Geo    spline.Basis
	nsd    int
}

// NewSplineField wraps a control point field on a patch. The field basis must
// share the parameter domain of the patch geometry.
func NewSplineField(values spline.Basis, p Patch) (sf *SplineField, err error) {
	geo := p.Geometry()
	if geo == nil || values == nil {
		err = ErrNoTopology
		return
	}
	if values.NumParamDirs() != geo.NumParamDirs() {
		err = fmt.Errorf("%d-parametric field on a %d-parametric patch: %w",
			values.NumParamDirs(), geo.NumParamDirs(), ErrSizeMismatch)
		return
	}
	sf = &SplineField{Values: values, Geo: geo, nsd: p.NumSpaceDims()}
	return
}

func (sf *SplineField) NumComponents() int { return sf.Values.Dimension() }

// ValueAt evaluates the field at a parameter point
func (sf *SplineField) ValueAt(u []float64) ([]float64, error) { return sf.Values.Point(u) }

// ValueNode returns the control point values of node inod
func (sf *SplineField) ValueNode(inod int) (val []float64, err error) {
	if inod < 0 || inod >= sf.Values.NumBasisFunctions() {
		err = fmt.Errorf("node %d of %d: %w", inod, sf.Values.NumBasisFunctions(), ErrSizeMismatch)
		return
	}
	nc := sf.Values.Dimension()
	val = append([]float64{}, sf.Values.ControlPoints()[inod*nc:(inod+1)*nc]...)
	return
}

// ValueFE evaluates the field at the parameter point of a finite element
func (sf *SplineField) ValueFE(fe *integrand.FiniteElement) ([]float64, error) {
	return sf.ValueAt(fe.U)
}

// GradFE returns the ncmp x nsd Cartesian gradient at the point of fe
func (sf *SplineField) GradFE(fe *integrand.FiniteElement) (grad utils.Matrix, err error) {
	grad, _, err = sf.derivatives(fe.U, 1)
	return
}

// HessianFE returns the ncmp x nsd x nsd Cartesian second derivatives at the
// point of fe
func (sf *SplineField) HessianFE(fe *integrand.FiniteElement) (hess utils.Matrix3D, err error) {
	_, hess, err = sf.derivatives(fe.U, 2)
	return
}

func (sf *SplineField) derivatives(u []float64, nder int) (grad utils.Matrix, hess utils.Matrix3D, err error) {
	var (
		ielG = sf.Geo.ElementContaining(u)
		ielF = sf.Values.ElementContaining(u)
		nc   = sf.Values.Dimension()
		gdim = sf.Geo.Dimension()
		bdG  spline.BasisDerivs
		bdF  spline.BasisDerivs
		Xnod utils.Matrix
		dGdu utils.Matrix
		d2G  utils.Matrix3D
		dFdu utils.Matrix
		d2F  utils.Matrix3D
		J    utils.Matrix
		Ji   utils.Matrix
		dGdX utils.Matrix
		dFdX utils.Matrix
	)
	if ielG < 0 || ielF < 0 {
		err = fmt.Errorf("point %v outside the patch: %w", u, ErrTopology)
		return
	}
	if err = sf.Geo.ComputeBasis(u, ielG, nder, &bdG); err != nil {
		return
	}
	if err = sf.Values.ComputeBasis(u, ielF, nder, &bdF); err != nil {
		return
	}
	ExtractBasis(&bdG, nil, &dGdu, &d2G)
	ExtractBasis(&bdF, nil, &dFdu, &d2F)
	var (
		gfuncs = sf.Geo.ElementFunctions(ielG)
		gcps   = sf.Geo.ControlPoints()
	)
	Xnod = utils.NewMatrix(sf.nsd, len(gfuncs))
	for a, f := range gfuncs {
		for d := 0; d < sf.nsd; d++ {
			Xnod.Set(d, a, gcps[f*gdim+d])
		}
	}
	if Jacobian(&J, &Ji, &dGdX, Xnod, dGdu) == 0 {
		err = fmt.Errorf("degenerate geometry at %v: %w", u, ErrTopology)
		return
	}
	dFdX = dFdu.Mul(Ji)
	var (
		ffuncs = sf.Values.ElementFunctions(ielF)
		fcps   = sf.Values.ControlPoints()
	)
	grad = utils.NewMatrix(nc, sf.nsd)
	for a, f := range ffuncs {
		for c := 0; c < nc; c++ {
			for i := 0; i < sf.nsd; i++ {
				grad.AddAt(c, i, fcps[f*nc+c]*dFdX.At(a, i))
			}
		}
	}
	if nder < 2 {
		return
	}
	var H, d2FdX2 utils.Matrix3D
	GeometryHessian(&H, Xnod, d2G)
	MapHessian(&d2FdX2, H, Ji, d2F, dFdX)
	hess = utils.NewMatrix3D(nc, sf.nsd, sf.nsd)
	for a, f := range ffuncs {
		for c := 0; c < nc; c++ {
			for i := 0; i < sf.nsd; i++ {
				for j := 0; j < sf.nsd; j++ {
					hess.AddAt(c, i, j, fcps[f*nc+c]*d2FdX2.At(a, i, j))
				}
			}
		}
	}
	return
}
