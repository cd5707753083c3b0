package asm

import (
	"fmt"
	"os"
	"sync"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/quadrature"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

// scratch holds the evaluation buffers of one goroutine. It is allocated once
// per partition and reused for every element and point.
type scratch struct {
	bd     []spline.BasisDerivs
	N      [][]float64
	dNdu   []utils.Matrix
	d2Ndu2 []utils.Matrix3D
	dNdX   []utils.Matrix
	d2NdX2 []utils.Matrix3D
	Xnod   utils.Matrix
	J, Ji  utils.Matrix
	H      utils.Matrix3D
	X      []float64
	X0     []float64
	normal []float64
	u      []float64
	idx    []int
	ngs    []int
	center spline.BasisDerivs
	fe     integrand.FiniteElement
}

func (bp *basePatch) newScratch() (sc *scratch) {
	var (
		nb  = len(bp.bases)
		npd = bp.bases[0].NumParamDirs()
	)
	sc = &scratch{
		bd:     make([]spline.BasisDerivs, nb),
		N:      make([][]float64, nb),
		dNdu:   make([]utils.Matrix, nb),
		d2Ndu2: make([]utils.Matrix3D, nb),
		dNdX:   make([]utils.Matrix, nb),
		d2NdX2: make([]utils.Matrix3D, nb),
		X:      make([]float64, bp.nsd),
		X0:     make([]float64, bp.nsd),
		normal: make([]float64, bp.nsd),
		u:      make([]float64, npd),
		idx:    make([]int, npd),
		ngs:    make([]int, npd),
	}
	sc.fe.U = make([]float64, npd)
	sc.fe.Xi = make([]float64, npd)
	if nb > 1 {
		sc.fe.Mx = make([]integrand.BasisValues, nb)
	}
	return
}

// evalPoint evaluates all bases at parameter point u of element iel, maps the
// derivatives to Cartesian coordinates and fills sc.fe and sc.X. sc.Xnod must
// hold the element coordinates. A zero determinant marks a point to skip.
func (bp *basePatch) evalPoint(sc *scratch, iel int, u []float64, nder int) (detJ float64, err error) {
	if nder < 1 {
		nder = 1
	}
	for b, basis := range bp.bases {
		if err = basis.ComputeBasis(u, iel, nder, &sc.bd[b]); err != nil {
			return
		}
		sc.N[b] = ExtractBasis(&sc.bd[b], sc.N[b], &sc.dNdu[b], &sc.d2Ndu2[b])
	}
	g := bp.geoIdx
	for m := 0; m < bp.nsd; m++ {
		sc.X[m] = 0
		for a, N := range sc.N[g] {
			sc.X[m] += sc.Xnod.At(m, a) * N
		}
	}
	if detJ = Jacobian(&sc.J, &sc.Ji, &sc.dNdX[g], sc.Xnod, sc.dNdu[g]); detJ == 0 {
		return
	}
	for b := range bp.bases {
		if b == g {
			continue
		}
		nen, _ := sc.dNdu[b].Dims()
		sc.dNdX[b].Resize(nen, bp.nsd)
		sc.dNdX[b].M.Mul(sc.dNdu[b].M, sc.Ji.M)
	}
	if nder > 1 {
		GeometryHessian(&sc.H, sc.Xnod, sc.d2Ndu2[g])
		for b := range bp.bases {
			MapHessian(&sc.d2NdX2[b], sc.H, sc.Ji, sc.d2Ndu2[b], sc.dNdX[b])
		}
	}
	fe := &sc.fe
	fe.Iel = iel
	copy(fe.U, u)
	fe.N, fe.DNdX, fe.D2NdX2 = sc.N[0], sc.dNdX[0], sc.d2NdX2[0]
	for b := range fe.Mx {
		fe.Mx[b] = integrand.BasisValues{N: sc.N[b], DNdX: sc.dNdX[b]}
	}
	return
}

func derivOrder(prob integrand.Integrand) int {
	if prob.Type()&integrand.SecondDerivatives != 0 {
		return 2
	}
	return 1
}

// gaussPoints returns the per-direction Gauss rule used for the element
// integrals: NGauss points when configured, otherwise the highest basis order
func (bp *basePatch) gaussPoints() (xg, wg []float64, err error) {
	ng := bp.cfg.NGauss
	if ng == 0 {
		for _, basis := range bp.bases {
			for d := 0; d < basis.NumParamDirs(); d++ {
				ng = max(ng, basis.Order(d))
			}
		}
	}
	return quadrature.Rule(ng)
}

// elementMeasure returns the element box and the parametric measure factor
// of the mapping from [-1,1]^npd, skipping direction skip (negative for none)
func elementMeasure(basis spline.Basis, iel, skip int) (lo, hi []float64, dA float64) {
	lo, hi = basis.ElementBox(iel)
	dA = 1
	for d := range lo {
		if d != skip {
			dA *= 0.5 * (hi[d] - lo[d])
		}
	}
	return
}

// initElement hands the element nodes to the integrand, split per basis for
// mixed elements
func (bp *basePatch) initElement(prob integrand.Integrand, sc *scratch, iel int, X0 []float64, nPt int,
	elm integrand.LocalIntegral) error {
	if len(bp.bases) > 1 {
		return prob.InitElementMx(bp.elementNodes(iel, 1), bp.elementNodes(iel, 2), bp.nb[0],
			&sc.fe, X0, nPt, elm)
	}
	return prob.InitElement(bp.mnpc[iel], &sc.fe, X0, nPt, elm)
}

// elementCenter puts the physical position of the element center in sc.X0
func (bp *basePatch) elementCenter(sc *scratch, iel int, lo, hi []float64) []float64 {
	for d := range lo {
		sc.u[d] = 0.5 * (lo[d] + hi[d])
	}
	for m := range sc.X0 {
		sc.X0[m] = 0
	}
	if err := bp.geo().ComputeBasis(sc.u, iel, 0, &sc.center); err != nil {
		return sc.X0
	}
	for m := 0; m < bp.nsd; m++ {
		for a, N := range sc.center.N {
			sc.X0[m] += sc.Xnod.At(m, a) * N
		}
	}
	return sc.X0
}

// Integrate runs the interior element loop, calling the integrand at every
// Gauss point and assembling each element into glInt. Elements are split
// over ParallelDegree goroutines with separate scratch; the scatter into
// glInt is serialized.
func (bp *basePatch) Integrate(prob integrand.Integrand, glInt integrand.GlobalIntegral, time types.TimeDomain) (err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	var (
		xg, wg []float64
		mu     sync.Mutex
		nel    = len(bp.mnpc)
	)
	if xg, wg, err = bp.gaussPoints(); err != nil {
		return
	}
	prob.InitIntegration(time)
	pm := utils.NewPartitionMap(bp.cfg.ParallelDegree, nel)
	return pm.Run(func(bn, kMin, kMax int) (err error) {
		sc := bp.newScratch()
		for iel := kMin; iel < kMax; iel++ {
			if err = bp.integrateElement(sc, prob, glInt, time, iel, xg, wg, &mu); err != nil {
				return
			}
		}
		return
	})
}

func (bp *basePatch) integrateElement(sc *scratch, prob integrand.Integrand, glInt integrand.GlobalIntegral,
	time types.TimeDomain, iel int, xg, wg []float64, mu *sync.Mutex) (err error) {
	var (
		geo  = bp.geo()
		npd  = geo.NumParamDirs()
		ngs  = sc.ngs
		u    = sc.u
		nder = derivOrder(prob)
	)
	for d := range ngs {
		ngs[d] = len(xg)
	}
	nPt := utils.Prod(ngs)
	lo, hi, dA := elementMeasure(geo, iel, -1)
	if err = bp.elementCoordinates(iel, &sc.Xnod); err != nil {
		return
	}
	X0 := bp.elementCenter(sc, iel, lo, hi)
	elm := prob.GetLocalIntegral(bp.elementSizes(iel), iel, false)
	sc.fe.Iel = iel
	if err = bp.initElement(prob, sc, iel, X0, nPt, elm); err != nil {
		return
	}
	for ip := 0; ip < nPt; ip++ {
		idx := utils.TensorSplit(ip, ngs, sc.idx)
		w := dA
		for d := 0; d < npd; d++ {
			xi := xg[idx[d]]
			sc.fe.Xi[d] = xi
			u[d] = 0.5 * ((1-xi)*lo[d] + (1+xi)*hi[d])
			w *= wg[idx[d]]
		}
		var detJ float64
		if detJ, err = bp.evalPoint(sc, iel, u, nder); err != nil {
			return
		}
		if detJ == 0 {
			continue
		}
		if detJ < 0 {
			err = fmt.Errorf("element %d has negative Jacobian %g at %v: %w", iel, detJ, u, ErrTopology)
			fmt.Fprintf(os.Stderr, " *** asm.Integrate: %v\n", err)
			return
		}
		sc.fe.IGP = iel*nPt + ip
		sc.fe.DetJxW = detJ * w
		if err = prob.Evaluate(elm, &sc.fe, time, sc.X); err != nil {
			return
		}
	}
	if err = prob.FinalizeElement(elm, time); err != nil {
		return
	}
	mu.Lock()
	err = glInt.Assemble(elm, bp.elmOffset+iel)
	mu.Unlock()
	return
}

// IntegrateBoundary runs the element loop over the boundary with outward
// parametric normal lIndex (±1..±npd)
func (bp *basePatch) IntegrateBoundary(prob integrand.Integrand, lIndex int, glInt integrand.GlobalIntegral,
	time types.TimeDomain) (err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	var (
		geo    = bp.geo()
		npd    = geo.NumParamDirs()
		dir    = lIndex
		xg, wg []float64
		mu     sync.Mutex
		elms   []int
	)
	if dir < 0 {
		dir = -dir
	}
	if dir < 1 || dir > npd {
		return fmt.Errorf("boundary %d: %w", lIndex, ErrInvalidDirection)
	}
	dir--
	start, end := geo.ParamRange(dir)
	target := start
	if lIndex > 0 {
		target = end
	}
	for iel := 0; iel < geo.NumElements(); iel++ {
		lo, hi := geo.ElementBox(iel)
		if (lIndex < 0 && lo[dir] == target) || (lIndex > 0 && hi[dir] == target) {
			elms = append(elms, iel)
		}
	}
	if xg, wg, err = bp.gaussPoints(); err != nil {
		return
	}
	prob.InitIntegration(time)
	pm := utils.NewPartitionMap(bp.cfg.ParallelDegree, len(elms))
	return pm.Run(func(bn, kMin, kMax int) (err error) {
		sc := bp.newScratch()
		for k := kMin; k < kMax; k++ {
			if err = bp.integrateBoundaryElement(sc, prob, glInt, time, elms[k], lIndex, dir, target,
				xg, wg, &mu); err != nil {
				return
			}
		}
		return
	})
}

func (bp *basePatch) integrateBoundaryElement(sc *scratch, prob integrand.Integrand, glInt integrand.GlobalIntegral,
	time types.TimeDomain, iel, lIndex, dir int, target float64, xg, wg []float64, mu *sync.Mutex) (err error) {
	var (
		geo  = bp.geo()
		npd  = geo.NumParamDirs()
		ngs  = sc.ngs
		u    = sc.u
		nder = derivOrder(prob)
	)
	for d := range ngs {
		ngs[d] = len(xg)
	}
	ngs[dir] = 1
	nPt := utils.Prod(ngs)
	lo, hi, dS := elementMeasure(geo, iel, dir)
	if err = bp.elementCoordinates(iel, &sc.Xnod); err != nil {
		return
	}
	elm := prob.GetLocalIntegral(bp.elementSizes(iel), iel, true)
	if err = prob.InitElementBou(bp.elementNodes(iel, 1), elm); err != nil {
		return
	}
	for ip := 0; ip < nPt; ip++ {
		idx := utils.TensorSplit(ip, ngs, sc.idx)
		w := dS
		for d := 0; d < npd; d++ {
			if d == dir {
				u[d] = target
				sc.fe.Xi[d] = -1
				if target == hi[d] {
					sc.fe.Xi[d] = 1
				}
				continue
			}
			xi := xg[idx[d]]
			sc.fe.Xi[d] = xi
			u[d] = 0.5 * ((1-xi)*lo[d] + (1+xi)*hi[d])
			w *= wg[idx[d]]
		}
		var detJ float64
		if detJ, err = bp.evalPoint(sc, iel, u, nder); err != nil {
			return
		}
		if detJ == 0 {
			continue
		}
		sc.fe.IGP = iel*nPt + ip
		sc.fe.DetJxW = BoundaryNormal(sc.normal, sc.Ji, detJ, lIndex) * w
		if err = prob.EvaluateBou(elm, &sc.fe, time, sc.X, sc.normal); err != nil {
			return
		}
	}
	if err = prob.FinalizeElement(elm, time); err != nil {
		return
	}
	mu.Lock()
	err = glInt.Assemble(elm, bp.elmOffset+iel)
	mu.Unlock()
	return
}
