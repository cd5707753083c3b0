package asm

import (
	"fmt"
	"os"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/quadrature"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

// Projections are all onto basis 1, the primary solution basis.

// GetGrevilleParameters returns the Greville parameters of the projection
// basis in one direction: one value per function line of a tensor basis, one
// value per function of an LR basis.
func (bp *basePatch) GetGrevilleParameters(dir int) (g []float64, err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	basis := bp.bases[0]
	if dir < 0 || dir >= basis.NumParamDirs() {
		err = fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
		return
	}
	if s, ok := basis.(*spline.Spline); ok {
		return s.Greville(dir), nil
	}
	g = make([]float64, basis.NumBasisFunctions())
	for i := range g {
		g[i] = basis.GrevillePoint(i)[dir]
	}
	return
}

// grevilleParameters returns the Greville parameters of all directions and
// whether they form a tensor grid
func (bp *basePatch) grevilleParameters() (gpar [][]float64, regular bool, err error) {
	npd := bp.bases[0].NumParamDirs()
	gpar = make([][]float64, npd)
	for d := 0; d < npd; d++ {
		if gpar[d], err = bp.GetGrevilleParameters(d); err != nil {
			return
		}
	}
	_, regular = bp.bases[0].(*spline.Spline)
	return
}

// samplePoints expands the parameter lists into a point list, as a tensor
// grid (first direction fastest) when regular is set, pointwise otherwise
func samplePoints(gpar [][]float64, regular bool) (pts [][]float64, err error) {
	if regular {
		gpar = quadrature.ExpandTensorGrid(gpar)
	}
	if len(gpar) == 0 {
		return
	}
	n := len(gpar[0])
	for d := range gpar {
		if len(gpar[d]) != n {
			err = fmt.Errorf("%d parameters in direction %d, %d in direction 0: %w",
				len(gpar[d]), d, n, ErrSizeMismatch)
			return
		}
	}
	pts = make([][]float64, n)
	for i := range pts {
		pts[i] = make([]float64, len(gpar))
		for d := range gpar {
			pts[i][d] = gpar[d][i]
		}
	}
	return
}

// secondarySolution evaluates the secondary solution at one parameter point.
// ok is false at degenerate points.
func (bp *basePatch) secondarySolution(sc *scratch, prob integrand.Integrand, u []float64) (sol []float64, ok bool, err error) {
	iel := bp.geo().ElementContaining(u)
	if iel < 0 {
		err = fmt.Errorf("point %v outside the patch: %w", u, ErrTopology)
		return
	}
	if err = bp.elementCoordinates(iel, &sc.Xnod); err != nil {
		return
	}
	var detJ float64
	if sol, detJ, err = bp.pointSolution(sc, prob, iel, u); err != nil {
		return
	}
	ok = detJ != 0
	return
}

// pointSolution evaluates the secondary solution at point u of element iel,
// with sc.Xnod holding the element coordinates. A zero detJ marks a
// degenerate point and no solution.
func (bp *basePatch) pointSolution(sc *scratch, prob integrand.Integrand, iel int, u []float64) (sol []float64,
	detJ float64, err error) {
	if detJ, err = bp.evalPoint(sc, iel, u, derivOrder(prob)); err != nil || detJ == 0 {
		return
	}
	sol, err = prob.EvalSol(&sc.fe, sc.X, bp.elementNodes(iel, 1))
	return
}

// EvalSolution returns the nCmp x nPts secondary solution at the given
// parameter points. Degenerate points give zero values.
func (bp *basePatch) EvalSolution(prob integrand.Integrand, gpar [][]float64, regular bool) (sField utils.Matrix, err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	var pts [][]float64
	if pts, err = samplePoints(gpar, regular); err != nil {
		return
	}
	nCmp := prob.NumFields(2)
	sField = utils.NewMatrix(nCmp, len(pts))
	prob.InitResultPoints(0)
	pm := utils.NewPartitionMap(bp.cfg.ParallelDegree, len(pts))
	err = pm.Run(func(bn, kMin, kMax int) (err error) {
		sc := bp.newScratch()
		for ip := kMin; ip < kMax; ip++ {
			var sol []float64
			if sol, _, err = bp.secondarySolution(sc, prob, pts[ip]); err != nil {
				return
			}
			for c := 0; c < nCmp && c < len(sol); c++ {
				sField.Set(c, ip, sol[c])
			}
		}
		return
	})
	return
}

// RegularInterpolation computes the control points of the projection basis
// that interpolate the nCmp x nPts values at the given parameter points
func (bp *basePatch) RegularInterpolation(gpar [][]float64, regular bool, values utils.Matrix) (res spline.Basis, err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	basis := bp.bases[0]
	if basis.Rational() {
		err = fmt.Errorf("regular interpolation: %w", ErrRationalSpline)
		fmt.Fprintf(os.Stderr, " *** asm.RegularInterpolation: %v\n", err)
		return
	}
	var pts [][]float64
	if pts, err = samplePoints(gpar, regular); err != nil {
		return
	}
	var (
		n         = basis.NumBasisFunctions()
		nCmp, nPt = values.Dims()
	)
	if len(pts) != n || nPt != n {
		err = fmt.Errorf("%d points and %d values for %d basis functions: %w", len(pts), nPt, n, ErrSizeMismatch)
		fmt.Fprintf(os.Stderr, " *** asm.RegularInterpolation: %v\n", err)
		return
	}
	var (
		A  = utils.NewSparseMatrix(n, n)
		bd spline.BasisDerivs
	)
	for i, u := range pts {
		iel := basis.ElementContaining(u)
		if iel < 0 {
			err = fmt.Errorf("point %v outside the patch: %w", u, ErrTopology)
			return
		}
		if err = basis.ComputeBasis(u, iel, 0, &bd); err != nil {
			return
		}
		for a, f := range basis.ElementFunctions(iel) {
			if bd.N[a] != 0 {
				A.Set(i, f, bd.N[a])
			}
		}
	}
	var X utils.Matrix
	if X, err = A.Solve(values.Transpose()); err != nil {
		err = fmt.Errorf("regular interpolation: %v: %w", err, ErrSingularSystem)
		fmt.Fprintf(os.Stderr, " *** asm.RegularInterpolation: %v\n", err)
		return
	}
	res = basis.WithControlPoints(nCmp, X.Data())
	return
}

// ProjectSolution samples the secondary solution at the Greville points and
// interpolates it on the projection basis
func (bp *basePatch) ProjectSolution(prob integrand.Integrand) (res spline.Basis, err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	var (
		gpar    [][]float64
		regular bool
		values  utils.Matrix
	)
	if gpar, regular, err = bp.grevilleParameters(); err != nil {
		return
	}
	if values, err = bp.EvalSolution(prob, gpar, regular); err != nil {
		return
	}
	return bp.RegularInterpolation(gpar, regular, values)
}

// Project computes a spline representation of the secondary solution
func (bp *basePatch) Project(prob integrand.Integrand, method types.ProjectionMethod) (spline.Basis, error) {
	switch method {
	case types.PROJ_Global:
		return bp.ProjectSolution(prob)
	case types.PROJ_SCR:
		return bp.SCRecovery(prob)
	case types.PROJ_CGL2:
		return bp.L2Projection(prob, true)
	case types.PROJ_DGL2:
		return bp.L2Projection(prob, false)
	}
	return nil, fmt.Errorf("projection method %v: %w", method, ErrUnsupported)
}
