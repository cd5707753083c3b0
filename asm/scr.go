package asm

import (
	"fmt"
	"math"
	"os"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/quadrature"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/utils"
)

// scrSample is one reduced Gauss point of the superconvergent recovery: the
// fit coordinates and the secondary solution there
type scrSample struct {
	x   []float64
	sol []float64
}

// SCRecovery computes superconvergent values of the secondary solution at
// the Greville points of the projection basis by local least squares fits of
// tensor monomials, then interpolates them on the basis. With order p and
// derivative order m the fits use (p-m)^npd reduced Gauss points per element
// and (p-m+1)^npd monomials, centered at the physical Greville point. A
// singular local fit fails the whole recovery.
func (bp *basePatch) SCRecovery(prob integrand.Integrand) (res spline.Basis, err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	var (
		basis    = bp.bases[0]
		npd      = basis.NumParamDirs()
		m        = prob.DerivativeOrder()
		ngs      = make([]int, npd)
		nts      = make([]int, npd)
		xg       = make([][]float64, npd)
		nCmp     = prob.NumFields(2)
		useParam = bp.nsd != npd
	)
	if basis.Rational() {
		err = fmt.Errorf("superconvergent recovery: %w", ErrRationalSpline)
		return
	}
	for d := 0; d < npd; d++ {
		if ngs[d] = basis.Order(d) - m; ngs[d] < 1 {
			err = fmt.Errorf("order %d with derivative order %d: %w", basis.Order(d), m, ErrTooFewGaussPoints)
			return
		}
		nts[d] = ngs[d] + 1
		if xg[d], _, err = quadrature.Rule(ngs[d]); err != nil {
			return
		}
	}
	var samples [][]scrSample
	if samples, err = bp.scrSamples(prob, xg, ngs, useParam); err != nil {
		return
	}
	var (
		n      = basis.NumBasisFunctions()
		values = utils.NewMatrix(nCmp, n)
		gpts   = make([][]float64, n)
	)
	for i := range gpts {
		gpts[i] = basis.GrevillePoint(i)
	}
	pm := utils.NewPartitionMap(bp.cfg.ParallelDegree, n)
	err = pm.Run(func(bn, kMin, kMax int) (err error) {
		for i := kMin; i < kMax; i++ {
			var G []float64
			if G, err = bp.fitCenter(gpts[i], useParam); err != nil {
				return
			}
			var X utils.Matrix
			if X, err = bp.scrFit(samples, i, G, ngs, nts, nCmp); err != nil {
				err = fmt.Errorf("local fit for function %d: %v: %w", i, err, ErrSingularSystem)
				fmt.Fprintf(os.Stderr, " *** asm.SCRecovery: %v\n", err)
				return
			}
			for c := 0; c < nCmp; c++ {
				values.Set(c, i, X.At(0, c))
			}
		}
		return
	})
	if err != nil {
		return
	}
	gpar := make([][]float64, npd)
	for d := range gpar {
		gpar[d] = make([]float64, n)
		for i, g := range gpts {
			gpar[d][i] = g[d]
		}
	}
	return bp.RegularInterpolation(gpar, false, values)
}

// fitCenter returns the expansion point of a fit: the physical image of the
// Greville point, or the Greville point itself for manifold patches
func (bp *basePatch) fitCenter(g []float64, useParam bool) (G []float64, err error) {
	if useParam {
		return g, nil
	}
	var X []float64
	if X, err = bp.geo().Point(g); err != nil {
		return
	}
	G = X[:len(g)]
	return
}

// scrSamples evaluates the secondary solution at the reduced Gauss points of
// every element
func (bp *basePatch) scrSamples(prob integrand.Integrand, xg [][]float64, ngs []int, useParam bool) (
	samples [][]scrSample, err error) {
	var (
		geo = bp.geo()
		nel = len(bp.mnpc)
		npd = len(ngs)
		nPt = utils.Prod(ngs)
	)
	samples = make([][]scrSample, nel)
	prob.InitResultPoints(0)
	pm := utils.NewPartitionMap(bp.cfg.ParallelDegree, nel)
	err = pm.Run(func(bn, kMin, kMax int) (err error) {
		sc := bp.newScratch()
		u := make([]float64, npd)
		for iel := kMin; iel < kMax; iel++ {
			lo, hi := geo.ElementBox(iel)
			if err = bp.elementCoordinates(iel, &sc.Xnod); err != nil {
				return
			}
			for ip := 0; ip < nPt; ip++ {
				idx := utils.TensorSplit(ip, ngs, sc.idx)
				for d := 0; d < npd; d++ {
					xi := xg[d][idx[d]]
					u[d] = 0.5 * ((1-xi)*lo[d] + (1+xi)*hi[d])
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
				s := scrSample{sol: append([]float64{}, sol...)}
				if useParam {
					s.x = append([]float64{}, u...)
				} else {
					s.x = append([]float64{}, sc.X[:npd]...)
				}
				samples[iel] = append(samples[iel], s)
			}
		}
		return
	})
	return
}

// scrFit solves the local least squares problem of function i. The extended
// support is used unless the heuristic is configured and the own support
// spans enough element layers in every direction for a successful fit.
func (bp *basePatch) scrFit(samples [][]scrSample, i int, G []float64, ngs, nts []int, nCmp int) (X utils.Matrix, err error) {
	basis := bp.bases[0]
	if bp.cfg.SCRSupport == HeuristicSupport {
		elms := basis.FunctionSupport(i)
		if supportLayers(basis, elms, ngs, nts) {
			if X, err = fitMonomials(samples, elms, G, nts, nCmp); err == nil {
				return
			}
		}
	}
	return fitMonomials(samples, basis.ExtendedSupport(i), G, nts, nCmp)
}

// supportLayers reports whether the elements hold enough distinct sample
// layers per direction to determine nts[d] monomial terms
func supportLayers(basis spline.Basis, elms []int, ngs, nts []int) bool {
	for d := range nts {
		layers := make(map[float64]bool)
		for _, iel := range elms {
			lo, _ := basis.ElementBox(iel)
			layers[lo[d]] = true
		}
		if len(layers)*ngs[d] < nts[d] {
			return false
		}
	}
	return true
}

// fitMonomials fits the tensor monomials of (x-G)/L with nts[d] terms per
// direction to the samples of the given elements. L is the largest sample
// distance from G, which keeps the normal equations scaled.
func fitMonomials(samples [][]scrSample, elms []int, G []float64, nts []int, nCmp int) (X utils.Matrix, err error) {
	var (
		nPol = utils.Prod(nts)
		A    = utils.NewMatrix(nPol, nPol)
		B    = utils.NewMatrix(nPol, nCmp)
		P    = make([]float64, nPol)
		idx  = make([]int, len(nts))
		L    float64
	)
	for _, iel := range elms {
		for _, s := range samples[iel] {
			for d, g := range G {
				L = math.Max(L, math.Abs(s.x[d]-g))
			}
		}
	}
	if L == 0 {
		L = 1
	}
	for _, iel := range elms {
		for _, s := range samples[iel] {
			for k := range P {
				idx = utils.TensorSplit(k, nts, idx)
				P[k] = 1
				for d, e := range idx {
					P[k] *= utils.POW((s.x[d]-G[d])/L, e)
				}
			}
			for k, pk := range P {
				for l, pl := range P {
					A.AddAt(k, l, pk*pl)
				}
				for c := 0; c < nCmp && c < len(s.sol); c++ {
					B.AddAt(k, c, pk*s.sol[c])
				}
			}
		}
	}
	return A.Solve(B)
}
