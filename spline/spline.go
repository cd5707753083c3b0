package spline

import (
	"fmt"
	"sort"

	"github.com/notargets/goiga/utils"
)

// Spline is a tensor-product B-spline or NURBS object with one to three
// parameter directions. Control points are stored interleaved, Dim values per
// function, with the first parameter direction running fastest. Weights is
// nil for polynomial splines.
type Spline struct {
	Orders  []int
	Knots   [][]float64
	Dim     int
	Coefs   []float64
	Weights []float64

	spans    [][]int // knot span index of each element, per direction
	elmFuncs [][]int
	support  [][]int
}

func NewSpline(orders []int, knots [][]float64, dim int, coefs, weights []float64) (s *Spline, err error) {
	var (
		npd = len(orders)
	)
	if npd < 1 || npd > 3 || len(knots) != npd {
		err = fmt.Errorf("%d parameter directions with %d knot vectors: %w", npd, len(knots), ErrInvalidDirection)
		return
	}
	s = &Spline{
		Orders: append([]int{}, orders...),
		Knots:  make([][]float64, npd),
		Dim:    dim,
	}
	for d := 0; d < npd; d++ {
		if orders[d] < 1 {
			err = fmt.Errorf("order %d in direction %d: %w", orders[d], d, ErrInvalidOrder)
			return
		}
		if len(knots[d]) < 2*orders[d] || !sort.Float64sAreSorted(knots[d]) {
			err = fmt.Errorf("direction %d: %w", d, ErrKnotVector)
			return
		}
		s.Knots[d] = append([]float64{}, knots[d]...)
	}
	n := s.NumBasisFunctions()
	if len(coefs) != n*dim {
		err = fmt.Errorf("%d coefficients for %d functions of dimension %d: %w", len(coefs), n, dim, ErrKnotVector)
		return
	}
	s.Coefs = append([]float64{}, coefs...)
	if weights != nil {
		if len(weights) != n {
			err = fmt.Errorf("%d weights for %d functions: %w", len(weights), n, ErrKnotVector)
			return
		}
		s.Weights = append([]float64{}, weights...)
	}
	s.update()
	return
}

// NewLinearPatch returns the single element, order two patch spanning the
// axis aligned box [lower, upper] over the unit parameter domain.
func NewLinearPatch(lower, upper []float64) (s *Spline) {
	var (
		npd    = len(lower)
		orders = make([]int, npd)
		knots  = make([][]float64, npd)
		n      = 1 << uint(npd)
		coefs  = make([]float64, n*npd)
	)
	for d := 0; d < npd; d++ {
		orders[d] = 2
		knots[d] = []float64{0, 0, 1, 1}
	}
	for i := 0; i < n; i++ {
		for d := 0; d < npd; d++ {
			if i&(1<<uint(d)) == 0 {
				coefs[i*npd+d] = lower[d]
			} else {
				coefs[i*npd+d] = upper[d]
			}
		}
	}
	s, err := NewSpline(orders, knots, npd, coefs, nil)
	if err != nil {
		panic(err)
	}
	return
}

func (s *Spline) update() {
	var (
		npd = len(s.Orders)
		nel = make([]int, npd)
	)
	s.spans = make([][]int, npd)
	for d := 0; d < npd; d++ {
		var (
			t = s.Knots[d]
			k = s.Orders[d]
			n = len(t) - k
		)
		for i := k - 1; i < n; i++ {
			if t[i] < t[i+1] {
				s.spans[d] = append(s.spans[d], i)
			}
		}
		nel[d] = len(s.spans[d])
	}
	var (
		nElm = utils.Prod(nel)
		eIdx = make([]int, npd)
		fIdx = make([]int, npd)
		ncof = make([]int, npd)
	)
	for d := 0; d < npd; d++ {
		ncof[d] = s.NumCoefs(d)
	}
	s.elmFuncs = make([][]int, nElm)
	for iel := 0; iel < nElm; iel++ {
		eIdx = utils.TensorSplit(iel, nel, eIdx)
		nen := utils.Prod(s.Orders)
		funcs := make([]int, nen)
		for a := 0; a < nen; a++ {
			fIdx = utils.TensorSplit(a, s.Orders, fIdx)
			for d := 0; d < npd; d++ {
				fIdx[d] += s.spans[d][eIdx[d]] - s.Orders[d] + 1
			}
			funcs[a] = utils.TensorIndex(fIdx, ncof)
		}
		s.elmFuncs[iel] = funcs
	}
	s.support = supportLists(s.NumBasisFunctions(), s.elmFuncs)
}

func (s *Spline) NumParamDirs() int         { return len(s.Orders) }
func (s *Spline) Dimension() int            { return s.Dim }
func (s *Spline) Order(dir int) int         { return s.Orders[dir] }
func (s *Spline) Rational() bool            { return s.Weights != nil }
func (s *Spline) ControlPoints() []float64  { return s.Coefs }
func (s *Spline) ControlWeights() []float64 { return s.Weights }

// NumCoefs is the number of functions in one parameter direction
func (s *Spline) NumCoefs(dir int) int { return len(s.Knots[dir]) - s.Orders[dir] }

func (s *Spline) NumBasisFunctions() (n int) {
	n = 1
	for d := range s.Orders {
		n *= s.NumCoefs(d)
	}
	return
}

// NumSpans is the number of elements in one parameter direction
func (s *Spline) NumSpans(dir int) int { return len(s.spans[dir]) }

func (s *Spline) NumElements() int { return len(s.elmFuncs) }

func (s *Spline) elementSize() []int {
	nel := make([]int, len(s.Orders))
	for d := range nel {
		nel[d] = len(s.spans[d])
	}
	return nel
}

func (s *Spline) ParamRange(dir int) (start, end float64) {
	t := s.Knots[dir]
	return t[s.Orders[dir]-1], t[len(t)-s.Orders[dir]]
}

func (s *Spline) ElementBox(iel int) (lo, hi []float64) {
	var (
		npd  = len(s.Orders)
		eIdx = utils.TensorSplit(iel, s.elementSize(), nil)
	)
	lo, hi = make([]float64, npd), make([]float64, npd)
	for d := 0; d < npd; d++ {
		sp := s.spans[d][eIdx[d]]
		lo[d], hi[d] = s.Knots[d][sp], s.Knots[d][sp+1]
	}
	return
}

// ElementSpans returns the knot span index per direction of an element
func (s *Spline) ElementSpans(iel int) (spans []int) {
	eIdx := utils.TensorSplit(iel, s.elementSize(), nil)
	spans = make([]int, len(eIdx))
	for d := range eIdx {
		spans[d] = s.spans[d][eIdx[d]]
	}
	return
}

func (s *Spline) ElementFunctions(iel int) []int { return s.elmFuncs[iel] }

func (s *Spline) ElementContaining(u []float64) int {
	var (
		npd  = len(s.Orders)
		eIdx = make([]int, npd)
	)
	if len(u) < npd {
		return -1
	}
	for d := 0; d < npd; d++ {
		start, end := s.ParamRange(d)
		if u[d] < start || u[d] > end {
			return -1
		}
		sp := findSpan(s.Knots[d], s.Orders[d], u[d])
		eIdx[d] = sort.SearchInts(s.spans[d], sp)
	}
	return utils.TensorIndex(eIdx, s.elementSize())
}

func (s *Spline) ComputeBasis(u []float64, iel, nder int, out *BasisDerivs) error {
	var (
		npd = len(s.Orders)
		nen = utils.Prod(s.Orders)
	)
	if iel < 0 || iel >= s.NumElements() {
		return fmt.Errorf("element %d of %d: %w", iel, s.NumElements(), ErrElement)
	}
	if nder > 2 {
		nder = 2
	}
	var (
		spans = s.ElementSpans(iel)
		wk    = &out.work
	)
	if len(wk.ders) < npd {
		wk.ders = make([][][]float64, npd)
		wk.idx = make([]int, npd)
	}
	ders := wk.ders[:npd]
	for d := 0; d < npd; d++ {
		ders[d] = dersBasisFuns(s.Knots[d], s.Orders[d], spans[d], u[d], nder, ders[d], &wk.bspline)
	}
	out.Resize(nen, npd, nder)
	idx := wk.idx[:npd]
	for a := 0; a < nen; a++ {
		idx = utils.TensorSplit(a, s.Orders, idx)
		out.N[a] = tensorDer(ders, idx, -1, -1)
		for d := 0; d < npd && nder > 0; d++ {
			out.DNdu[a*npd+d] = tensorDer(ders, idx, d, -1)
			for e := 0; e < npd && nder > 1; e++ {
				out.D2Ndu2[(a*npd+d)*npd+e] = tensorDer(ders, idx, d, e)
			}
		}
	}
	if s.Weights != nil {
		w := resize(wk.weights, nen)
		wk.weights = w
		for a, f := range s.elmFuncs[iel] {
			w[a] = s.Weights[f]
		}
		out.applyWeights(w)
	}
	return nil
}

// tensorDer forms the product of univariate values, differentiated once in
// directions d and e (negative for none)
func tensorDer(ders [][][]float64, idx []int, d, e int) (val float64) {
	val = 1
	for dir := range ders {
		order := 0
		if dir == d {
			order++
		}
		if dir == e {
			order++
		}
		if order >= len(ders[dir]) {
			return 0
		}
		val *= ders[dir][order][idx[dir]]
	}
	return
}

// Greville returns the Greville abscissae of one parameter direction
func (s *Spline) Greville(dir int) (g []float64) {
	n := s.NumCoefs(dir)
	g = make([]float64, n)
	for i := 0; i < n; i++ {
		g[i] = grevilleAbscissa(s.Knots[dir], s.Orders[dir], i)
	}
	return
}

func (s *Spline) GrevillePoint(i int) (u []float64) {
	var (
		npd  = len(s.Orders)
		ncof = make([]int, npd)
	)
	for d := range ncof {
		ncof[d] = s.NumCoefs(d)
	}
	idx := utils.TensorSplit(i, ncof, nil)
	u = make([]float64, npd)
	for d := 0; d < npd; d++ {
		u[d] = grevilleAbscissa(s.Knots[d], s.Orders[d], idx[d])
	}
	return
}

func (s *Spline) FunctionSupport(i int) []int { return s.support[i] }

func (s *Spline) ExtendedSupport(i int) []int {
	return extendedSupport(i, s.support, s.elmFuncs)
}

func (s *Spline) Point(u []float64) ([]float64, error) { return pointFromBasis(s, u) }

func (s *Spline) Clone() Basis { return s.Copy() }

func (s *Spline) Copy() (c *Spline) {
	c = &Spline{
		Orders: append([]int{}, s.Orders...),
		Knots:  make([][]float64, len(s.Knots)),
		Dim:    s.Dim,
		Coefs:  append([]float64{}, s.Coefs...),
	}
	for d := range s.Knots {
		c.Knots[d] = append([]float64{}, s.Knots[d]...)
	}
	if s.Weights != nil {
		c.Weights = append([]float64{}, s.Weights...)
	}
	c.update()
	return
}

// WithControlPoints drops any weights; the result is a polynomial spline
func (s *Spline) WithControlPoints(dim int, coefs []float64) Basis {
	c := s.Copy()
	c.Dim = dim
	c.Coefs = append([]float64{}, coefs...)
	c.Weights = nil
	return c
}
