package asm

import (
	"fmt"
	"os"
	"sync"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/quadrature"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/utils"
)

// l2Rule returns the per-direction Gauss rules of the L2 projection: the
// integration rule of the patch for the continuous projection, order-1
// points per direction for the discrete one
func (bp *basePatch) l2Rule(continuous bool) (xg, wg [][]float64, err error) {
	var (
		basis = bp.bases[0]
		npd   = basis.NumParamDirs()
	)
	xg, wg = make([][]float64, npd), make([][]float64, npd)
	for d := 0; d < npd; d++ {
		if continuous {
			xg[d], wg[d], err = bp.gaussPoints()
		} else {
			ng := basis.Order(d) - 1
			if ng < 1 {
				err = fmt.Errorf("discrete L2 projection of order %d: %w", basis.Order(d), ErrTooFewGaussPoints)
				return
			}
			xg[d], wg[d], err = quadrature.Rule(ng)
		}
		if err != nil {
			return
		}
	}
	return
}

// AssembleL2Matrices assembles the projection system A x = B onto the
// projection basis, A being n x n and B n x nCmp. The continuous projection
// integrates over the physical domain; the discrete one sums point values at
// order-1 Gauss points per direction with unit weights.
func (bp *basePatch) AssembleL2Matrices(A utils.SparseMatrix, B utils.Matrix, prob integrand.Integrand,
	continuous bool) (err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	var (
		basis  = bp.bases[0]
		n      = basis.NumBasisFunctions()
		nCmp   = prob.NumFields(2)
		xg, wg [][]float64
		mu     sync.Mutex
	)
	if nr, nc := A.Dims(); nr != n || nc != n {
		return fmt.Errorf("%dx%d projection matrix for %d functions: %w", nr, nc, n, ErrSizeMismatch)
	}
	if nr, nc := B.Dims(); nr != n || nc != nCmp {
		return fmt.Errorf("%dx%d right-hand side for %d functions and %d components: %w",
			nr, nc, n, nCmp, ErrSizeMismatch)
	}
	if xg, wg, err = bp.l2Rule(continuous); err != nil {
		return
	}
	prob.InitResultPoints(0)
	pm := utils.NewPartitionMap(bp.cfg.ParallelDegree, len(bp.mnpc))
	return pm.Run(func(bn, kMin, kMax int) (err error) {
		sc := bp.newScratch()
		for iel := kMin; iel < kMax; iel++ {
			if err = bp.l2Element(sc, prob, iel, continuous, xg, wg, nCmp, A, B, &mu); err != nil {
				return
			}
		}
		return
	})
}

func (bp *basePatch) l2Element(sc *scratch, prob integrand.Integrand, iel int, continuous bool, xg, wg [][]float64,
	nCmp int, A utils.SparseMatrix, B utils.Matrix, mu *sync.Mutex) (err error) {
	var (
		basis = bp.bases[0]
		npd   = basis.NumParamDirs()
		funcs = basis.ElementFunctions(iel)
		nen   = len(funcs)
		ngs   = sc.ngs
		u     = sc.u
		eA    = utils.NewMatrix(nen, nen)
		eB    = utils.NewMatrix(nen, nCmp)
	)
	for d := range ngs {
		ngs[d] = len(xg[d])
	}
	lo, hi, dA := elementMeasure(basis, iel, -1)
	if err = bp.elementCoordinates(iel, &sc.Xnod); err != nil {
		return
	}
	for ip := 0; ip < utils.Prod(ngs); ip++ {
		idx := utils.TensorSplit(ip, ngs, sc.idx)
		w := dA
		for d := 0; d < npd; d++ {
			xi := xg[d][idx[d]]
			u[d] = 0.5 * ((1-xi)*lo[d] + (1+xi)*hi[d])
			w *= wg[d][idx[d]]
		}
		var (
			sol  []float64
			detJ float64
		)
		if sol, detJ, err = bp.pointSolution(sc, prob, iel, u); err != nil {
			return
		}
		if detJ == 0 {
			continue
		}
		dJw := 1.
		if continuous {
			dJw = detJ * w
		}
		phi := sc.N[0]
		for i := 0; i < nen; i++ {
			for j := 0; j < nen; j++ {
				eA.AddAt(i, j, phi[i]*phi[j]*dJw)
			}
			for r := 0; r < nCmp && r < len(sol); r++ {
				eB.AddAt(i, r, phi[i]*sol[r]*dJw)
			}
		}
	}
	mu.Lock()
	defer mu.Unlock()
	for i, fi := range funcs {
		for j, fj := range funcs {
			if v := eA.At(i, j); v != 0 {
				A.Add(fi, fj, v)
			}
		}
		for r := 0; r < nCmp; r++ {
			B.AddAt(fi, r, eB.At(i, r))
		}
	}
	return
}

// L2Projection projects the secondary solution onto the projection basis,
// continuous (CGL2) or discrete (DGL2)
func (bp *basePatch) L2Projection(prob integrand.Integrand, continuous bool) (res spline.Basis, err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	var (
		basis = bp.bases[0]
		n     = basis.NumBasisFunctions()
		nCmp  = prob.NumFields(2)
		A     = utils.NewSparseMatrix(n, n)
		B     = utils.NewMatrix(n, nCmp)
		X     utils.Matrix
	)
	if basis.Rational() {
		err = fmt.Errorf("L2 projection: %w", ErrRationalSpline)
		return
	}
	if err = bp.AssembleL2Matrices(A, B, prob, continuous); err != nil {
		return
	}
	if X, err = A.Solve(B); err != nil {
		err = fmt.Errorf("L2 projection: %v: %w", err, ErrSingularSystem)
		fmt.Fprintf(os.Stderr, " *** asm.L2Projection: %v\n", err)
		return
	}
	res = basis.WithControlPoints(nCmp, X.Data())
	return
}
