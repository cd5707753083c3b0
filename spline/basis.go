// Package spline holds the spline geometry kernel: tensor-product B-splines
// and NURBS, and LR B-splines refined by local mesh lines. The assembly
// packages only see these through the Basis interface.
package spline

import (
	"errors"

	"github.com/notargets/goiga/utils"
)

var (
	ErrInvalidDirection = errors.New("spline: invalid parameter direction")
	ErrInvalidOrder     = errors.New("spline: invalid order")
	ErrParameter        = errors.New("spline: parameter value out of range")
	ErrKnotVector       = errors.New("spline: inconsistent knot vector")
	ErrRationalSpline   = errors.New("spline: rational splines are not supported")
	ErrElement          = errors.New("spline: invalid element index")
)

// Basis is a spline basis with control points, seen as a set of elements
// each carrying a fixed local list of supported functions.
type Basis interface {
	NumParamDirs() int
	// Dimension is the number of components of a control point
	Dimension() int
	Order(dir int) int
	NumBasisFunctions() int
	NumElements() int
	Rational() bool
	ControlPoints() []float64
	ControlWeights() []float64
	ParamRange(dir int) (start, end float64)
	ElementBox(iel int) (lo, hi []float64)
	// ElementFunctions lists the global function indices supported on an
	// element, in the local order used by ComputeBasis
	ElementFunctions(iel int) []int
	// ElementContaining returns the element holding parameter point u, or -1
	ElementContaining(u []float64) int
	ComputeBasis(u []float64, iel, nder int, out *BasisDerivs) error
	GrevillePoint(i int) []float64
	FunctionSupport(i int) []int
	// ExtendedSupport is the union of the supports of all functions whose
	// support overlaps that of function i
	ExtendedSupport(i int) []int
	Point(u []float64) ([]float64, error)
	// WithControlPoints returns a copy of the basis carrying a new set of
	// dim-component control points, interleaved per function
	WithControlPoints(dim int, coefs []float64) Basis
	Clone() Basis
}

// BasisDerivs holds basis function values and parametric derivatives at one
// point, for the functions of one element in local order.
type BasisDerivs struct {
	NPD, Nen, NDer int
	N              []float64
	DNdu           []float64 // [a*NPD+d]
	D2Ndu2         []float64 // [(a*NPD+d)*NPD+e]
	work           basisWork
}

// basisWork holds the univariate values of the last evaluation, reused by
// the next one
type basisWork struct {
	ders    [][][]float64
	idx     []int
	weights []float64
	bspline bsplineWork
}

func (bd *BasisDerivs) Resize(nen, npd, nder int) {
	bd.Nen, bd.NPD, bd.NDer = nen, npd, nder
	bd.N = resize(bd.N, nen)
	if nder > 0 {
		bd.DNdu = resize(bd.DNdu, nen*npd)
	}
	if nder > 1 {
		bd.D2Ndu2 = resize(bd.D2Ndu2, nen*npd*npd)
	}
}

func resize(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	v = v[:n]
	for i := range v {
		v[i] = 0
	}
	return v
}

// applyWeights converts polynomial basis derivatives into rational ones
func (bd *BasisDerivs) applyWeights(w []float64) {
	var (
		nen, npd = bd.Nen, bd.NPD
		W        float64
		Wd       [3]float64
		Wdd      [3][3]float64
	)
	for a := 0; a < nen; a++ {
		W += bd.N[a] * w[a]
		for d := 0; d < npd && bd.NDer > 0; d++ {
			Wd[d] += bd.DNdu[a*npd+d] * w[a]
			for e := 0; e < npd && bd.NDer > 1; e++ {
				Wdd[d][e] += bd.D2Ndu2[(a*npd+d)*npd+e] * w[a]
			}
		}
	}
	for a := 0; a < nen; a++ {
		R := bd.N[a] * w[a] / W
		bd.N[a] = R
		if bd.NDer == 0 {
			continue
		}
		var dR [3]float64
		for d := 0; d < npd; d++ {
			dR[d] = (w[a]*bd.DNdu[a*npd+d] - R*Wd[d]) / W
		}
		if bd.NDer > 1 {
			for d := 0; d < npd; d++ {
				for e := 0; e < npd; e++ {
					i := (a*npd+d)*npd + e
					bd.D2Ndu2[i] = (w[a]*bd.D2Ndu2[i] - dR[d]*Wd[e] - dR[e]*Wd[d] - R*Wdd[d][e]) / W
				}
			}
		}
		for d := 0; d < npd; d++ {
			bd.DNdu[a*npd+d] = dR[d]
		}
	}
}

// supportLists inverts the element function lists into per-function element
// lists, both sorted ascending.
func supportLists(nBasis int, elmFuncs [][]int) (support [][]int) {
	support = make([][]int, nBasis)
	for iel, funcs := range elmFuncs {
		for _, f := range funcs {
			support[f] = append(support[f], iel)
		}
	}
	return
}

func extendedSupport(i int, support [][]int, elmFuncs [][]int) []int {
	var (
		funcs utils.Index
		elms  utils.Index
	)
	for _, iel := range support[i] {
		funcs = append(funcs, elmFuncs[iel]...)
	}
	for _, f := range funcs.Unique() {
		elms = append(elms, support[f]...)
	}
	return elms.Unique()
}

// pointFromBasis evaluates sum N_a c_a over the functions of one element
func pointFromBasis(b Basis, u []float64) (X []float64, err error) {
	var (
		iel = b.ElementContaining(u)
		bd  BasisDerivs
		dim = b.Dimension()
		cps = b.ControlPoints()
	)
	if iel < 0 {
		err = ErrParameter
		return
	}
	if err = b.ComputeBasis(u, iel, 0, &bd); err != nil {
		return
	}
	X = make([]float64, dim)
	for a, f := range b.ElementFunctions(iel) {
		for c := 0; c < dim; c++ {
			X[c] += bd.N[a] * cps[f*dim+c]
		}
	}
	return
}
