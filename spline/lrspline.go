package spline

import (
	"fmt"
	"math"
	"sort"

	"github.com/notargets/goiga/utils"
)

// LRBasisFunction is a scaled tensor-product B-spline on local knot vectors
type LRBasisFunction struct {
	Knots [][]float64 // per direction, order+1 values
	Gamma float64
	Coef  []float64
}

func (f *LRBasisFunction) box() (lo, hi []float64) {
	lo, hi = make([]float64, len(f.Knots)), make([]float64, len(f.Knots))
	for d, t := range f.Knots {
		lo[d], hi[d] = t[0], t[len(t)-1]
	}
	return
}

func (f *LRBasisFunction) sameKnots(g *LRBasisFunction) bool {
	for d := range f.Knots {
		for i := range f.Knots[d] {
			if f.Knots[d][i] != g.Knots[d][i] {
				return false
			}
		}
	}
	return true
}

// LRElement is an axis aligned box in the parameter domain
type LRElement struct {
	Lo, Hi []float64
}

// Meshline is a mesh line (2D) or mesh rectangle (3D) at constant parameter
// Value in direction Dir, extending over [Lo,Hi] in the other directions
type Meshline struct {
	Dir    int
	Value  float64
	Lo, Hi []float64
	Mult   int
}

// LRSpline is a locally refinable spline over a box partition of the
// parameter domain.
type LRSpline struct {
	Orders   []int
	Dim      int
	Funcs    []*LRBasisFunction
	Elements []LRElement
	Lines    []Meshline

	start, end []float64
	elmFuncs   [][]int
	support    [][]int
}

// NewLRSpline converts a polynomial tensor spline into an LR spline with the
// same basis, function and element numbering.
func NewLRSpline(s *Spline) (lr *LRSpline, err error) {
	if s.Rational() {
		err = fmt.Errorf("LR conversion: %w", ErrRationalSpline)
		return
	}
	var (
		npd  = len(s.Orders)
		ncof = make([]int, npd)
		idx  = make([]int, npd)
	)
	lr = &LRSpline{
		Orders: append([]int{}, s.Orders...),
		Dim:    s.Dim,
		start:  make([]float64, npd),
		end:    make([]float64, npd),
	}
	for d := 0; d < npd; d++ {
		ncof[d] = s.NumCoefs(d)
		lr.start[d], lr.end[d] = s.ParamRange(d)
	}
	for i := 0; i < s.NumBasisFunctions(); i++ {
		idx = utils.TensorSplit(i, ncof, idx)
		f := &LRBasisFunction{
			Knots: make([][]float64, npd),
			Gamma: 1,
			Coef:  append([]float64{}, s.Coefs[i*s.Dim:(i+1)*s.Dim]...),
		}
		for d := 0; d < npd; d++ {
			f.Knots[d] = append([]float64{}, s.Knots[d][idx[d]:idx[d]+s.Orders[d]+1]...)
		}
		lr.Funcs = append(lr.Funcs, f)
	}
	for iel := 0; iel < s.NumElements(); iel++ {
		lo, hi := s.ElementBox(iel)
		lr.Elements = append(lr.Elements, LRElement{Lo: lo, Hi: hi})
	}
	for d := 0; d < npd; d++ {
		vals, mult := distinctKnots(s.Knots[d])
		for i, v := range vals {
			ml := Meshline{Dir: d, Value: v, Mult: mult[i],
				Lo: append([]float64{}, lr.start...), Hi: append([]float64{}, lr.end...)}
			ml.Lo[d], ml.Hi[d] = v, v
			lr.Lines = append(lr.Lines, ml)
		}
	}
	lr.update()
	return
}

func (lr *LRSpline) update() {
	lr.elmFuncs = make([][]int, len(lr.Elements))
	for iel, el := range lr.Elements {
		for i, f := range lr.Funcs {
			lo, hi := f.box()
			inside := true
			for d := range lo {
				if el.Lo[d] < lo[d] || el.Hi[d] > hi[d] {
					inside = false
					break
				}
			}
			if inside {
				lr.elmFuncs[iel] = append(lr.elmFuncs[iel], i)
			}
		}
	}
	lr.support = supportLists(len(lr.Funcs), lr.elmFuncs)
}

func (lr *LRSpline) NumParamDirs() int         { return len(lr.Orders) }
func (lr *LRSpline) Dimension() int            { return lr.Dim }
func (lr *LRSpline) Order(dir int) int         { return lr.Orders[dir] }
func (lr *LRSpline) NumBasisFunctions() int    { return len(lr.Funcs) }
func (lr *LRSpline) NumElements() int          { return len(lr.Elements) }
func (lr *LRSpline) Rational() bool            { return false }
func (lr *LRSpline) ControlWeights() []float64 { return nil }

func (lr *LRSpline) ControlPoints() (coefs []float64) {
	coefs = make([]float64, len(lr.Funcs)*lr.Dim)
	for i, f := range lr.Funcs {
		copy(coefs[i*lr.Dim:], f.Coef)
	}
	return
}

func (lr *LRSpline) ParamRange(dir int) (start, end float64) {
	return lr.start[dir], lr.end[dir]
}

func (lr *LRSpline) ElementBox(iel int) (lo, hi []float64) {
	el := lr.Elements[iel]
	return append([]float64{}, el.Lo...), append([]float64{}, el.Hi...)
}

func (lr *LRSpline) ElementFunctions(iel int) []int { return lr.elmFuncs[iel] }

func (lr *LRSpline) ElementContaining(u []float64) int {
	if len(u) < len(lr.Orders) {
		return -1
	}
	for iel, el := range lr.Elements {
		inside := true
		for d := range el.Lo {
			if u[d] < el.Lo[d] || u[d] > el.Hi[d] ||
				(u[d] == el.Hi[d] && el.Hi[d] < lr.end[d]) {
				inside = false
				break
			}
		}
		if inside {
			return iel
		}
	}
	return -1
}

func (lr *LRSpline) ComputeBasis(u []float64, iel, nder int, out *BasisDerivs) error {
	if iel < 0 || iel >= len(lr.Elements) {
		return fmt.Errorf("element %d of %d: %w", iel, len(lr.Elements), ErrElement)
	}
	if nder > 2 {
		nder = 2
	}
	var (
		npd   = len(lr.Orders)
		el    = lr.Elements[iel]
		funcs = lr.elmFuncs[iel]
		uni   = make([][3]float64, npd)
	)
	out.Resize(len(funcs), npd, nder)
	for a, fi := range funcs {
		f := lr.Funcs[fi]
		for d := 0; d < npd; d++ {
			uni[d] = singleBasis(f.Knots[d], el.Lo[d], el.Hi[d], u[d], nder)
		}
		out.N[a] = f.Gamma * uniProduct(uni, -1, -1)
		for d := 0; d < npd && nder > 0; d++ {
			out.DNdu[a*npd+d] = f.Gamma * uniProduct(uni, d, -1)
			for e := 0; e < npd && nder > 1; e++ {
				out.D2Ndu2[(a*npd+d)*npd+e] = f.Gamma * uniProduct(uni, d, e)
			}
		}
	}
	return nil
}

func uniProduct(uni [][3]float64, d, e int) (val float64) {
	val = 1
	for dir := range uni {
		order := 0
		if dir == d {
			order++
		}
		if dir == e {
			order++
		}
		val *= uni[dir][order]
	}
	return
}

func (lr *LRSpline) GrevillePoint(i int) (u []float64) {
	f := lr.Funcs[i]
	u = make([]float64, len(lr.Orders))
	for d, t := range f.Knots {
		u[d] = grevilleAbscissa(t, lr.Orders[d], 0)
	}
	return
}

func (lr *LRSpline) FunctionSupport(i int) []int { return lr.support[i] }

func (lr *LRSpline) ExtendedSupport(i int) []int {
	return extendedSupport(i, lr.support, lr.elmFuncs)
}

func (lr *LRSpline) Point(u []float64) ([]float64, error) { return pointFromBasis(lr, u) }

func (lr *LRSpline) Clone() Basis { return lr.Copy() }

func (lr *LRSpline) Copy() (c *LRSpline) {
	c = &LRSpline{
		Orders: append([]int{}, lr.Orders...),
		Dim:    lr.Dim,
		start:  append([]float64{}, lr.start...),
		end:    append([]float64{}, lr.end...),
	}
	for _, f := range lr.Funcs {
		g := &LRBasisFunction{Gamma: f.Gamma, Coef: append([]float64{}, f.Coef...)}
		for _, t := range f.Knots {
			g.Knots = append(g.Knots, append([]float64{}, t...))
		}
		c.Funcs = append(c.Funcs, g)
	}
	for _, el := range lr.Elements {
		c.Elements = append(c.Elements, LRElement{
			Lo: append([]float64{}, el.Lo...), Hi: append([]float64{}, el.Hi...)})
	}
	for _, ml := range lr.Lines {
		ml.Lo = append([]float64{}, ml.Lo...)
		ml.Hi = append([]float64{}, ml.Hi...)
		c.Lines = append(c.Lines, ml)
	}
	c.update()
	return
}

func (lr *LRSpline) WithControlPoints(dim int, coefs []float64) Basis {
	c := lr.Copy()
	c.Dim = dim
	for i, f := range c.Funcs {
		f.Coef = append([]float64{}, coefs[i*dim:(i+1)*dim]...)
	}
	return c
}

// Refine inserts a mesh line through the whole domain at parameter value v
// in direction dir
func (lr *LRSpline) Refine(dir int, v float64) error {
	if dir < 0 || dir >= len(lr.Orders) {
		return fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
	}
	if v <= lr.start[dir] || v >= lr.end[dir] {
		return fmt.Errorf("mesh line at %g: %w", v, ErrParameter)
	}
	ml := Meshline{Dir: dir, Value: v, Mult: 1,
		Lo: append([]float64{}, lr.start...), Hi: append([]float64{}, lr.end...)}
	ml.Lo[dir], ml.Hi[dir] = v, v
	lr.InsertLine(ml)
	return nil
}

// ElementRefinementLines returns the mesh lines that bisect each of the given
// elements in every direction, each extended to the smallest support of a
// function covering the element.
func (lr *LRSpline) ElementRefinementLines(ids []int) (lines []Meshline, err error) {
	npd := len(lr.Orders)
	for _, iel := range ids {
		if iel < 0 || iel >= len(lr.Elements) {
			err = fmt.Errorf("element %d of %d: %w", iel, len(lr.Elements), ErrElement)
			return
		}
		el := lr.Elements[iel]
		var (
			best     = -1
			bestSize = math.Inf(1)
		)
		for _, fi := range lr.elmFuncs[iel] {
			lo, hi := lr.Funcs[fi].box()
			size := 1.
			for d := range lo {
				size *= hi[d] - lo[d]
			}
			if size < bestSize {
				best, bestSize = fi, size
			}
		}
		if best < 0 {
			continue
		}
		lo, hi := lr.Funcs[best].box()
		for d := 0; d < npd; d++ {
			v := 0.5 * (el.Lo[d] + el.Hi[d])
			ml := Meshline{Dir: d, Value: v, Mult: 1,
				Lo: append([]float64{}, lo...), Hi: append([]float64{}, hi...)}
			ml.Lo[d], ml.Hi[d] = v, v
			lines = append(lines, ml)
		}
	}
	return
}

// RefineElements bisects the given elements using minimal span mesh lines
func (lr *LRSpline) RefineElements(ids []int) error {
	lines, err := lr.ElementRefinementLines(ids)
	if err != nil {
		return err
	}
	for _, ml := range lines {
		lr.InsertLine(ml)
	}
	return nil
}

// InsertLine adds a mesh line, splits the elements it crosses and splits basis
// functions until every function is minimal with respect to the mesh.
func (lr *LRSpline) InsertLine(ml Meshline) {
	if lr.covered(ml.Dir, ml.Value, ml.Lo, ml.Hi, ml.Mult) {
		return
	}
	lr.Lines = append(lr.Lines, ml)
	lr.splitElements(ml)
	for lr.splitFunctions() {
	}
	lr.update()
}

func (lr *LRSpline) splitElements(ml Meshline) {
	d := ml.Dir
	n := len(lr.Elements)
	for iel := 0; iel < n; iel++ {
		el := lr.Elements[iel]
		if !(el.Lo[d] < ml.Value && ml.Value < el.Hi[d]) {
			continue
		}
		inside := true
		for e := range el.Lo {
			if e != d && (el.Lo[e] < ml.Lo[e] || el.Hi[e] > ml.Hi[e]) {
				inside = false
				break
			}
		}
		if !inside {
			continue
		}
		upper := LRElement{Lo: append([]float64{}, el.Lo...), Hi: append([]float64{}, el.Hi...)}
		upper.Lo[d] = ml.Value
		lr.Elements[iel].Hi = append([]float64{}, el.Hi...)
		lr.Elements[iel].Hi[d] = ml.Value
		lr.Elements = append(lr.Elements, upper)
	}
}

// splitFunctions performs one sweep of function splits and reports whether
// anything changed
func (lr *LRSpline) splitFunctions() (changed bool) {
	for i := 0; i < len(lr.Funcs); i++ {
		f := lr.Funcs[i]
		lo, hi := f.box()
		for _, ml := range lr.Lines {
			d, v := ml.Dir, ml.Value
			if !(lo[d] < v && v < hi[d]) {
				continue
			}
			count := 0
			for _, t := range f.Knots[d] {
				if t == v {
					count++
				}
			}
			if !lr.covered(d, v, lo, hi, count+1) {
				continue
			}
			lr.splitFunction(i, d, v)
			changed = true
			i--
			break
		}
	}
	return
}

// splitFunction replaces function i by its two children from inserting v in
// direction d, merging children that duplicate existing functions
func (lr *LRSpline) splitFunction(i, d int, v float64) {
	var (
		f  = lr.Funcs[i]
		t  = f.Knots[d]
		p  = len(t) - 2
		tn = make([]float64, 0, len(t)+1)
	)
	tn = append(tn, t...)
	tn = append(tn, v)
	sort.Float64s(tn)
	alpha1, alpha2 := 1., 1.
	if v < t[p] {
		alpha1 = (v - t[0]) / (t[p] - t[0])
	}
	if v > t[1] {
		alpha2 = (t[p+1] - v) / (t[p+1] - t[1])
	}
	child := func(knots []float64, alpha float64) *LRBasisFunction {
		c := &LRBasisFunction{Gamma: f.Gamma * alpha, Coef: append([]float64{}, f.Coef...)}
		for e := range f.Knots {
			if e == d {
				c.Knots = append(c.Knots, append([]float64{}, knots...))
			} else {
				c.Knots = append(c.Knots, append([]float64{}, f.Knots[e]...))
			}
		}
		return c
	}
	// remove f while keeping the order of the others
	lr.Funcs = append(lr.Funcs[:i], lr.Funcs[i+1:]...)
	lr.addFunction(child(tn[:p+2], alpha1))
	lr.addFunction(child(tn[1:], alpha2))
}

func (lr *LRSpline) addFunction(c *LRBasisFunction) {
	for _, g := range lr.Funcs {
		if g.sameKnots(c) {
			gamma := g.Gamma + c.Gamma
			for k := range g.Coef {
				g.Coef[k] = (g.Coef[k]*g.Gamma + c.Coef[k]*c.Gamma) / gamma
			}
			g.Gamma = gamma
			return
		}
	}
	lr.Funcs = append(lr.Funcs, c)
}

// covered reports whether the mesh lines at value v in direction d, with
// multiplicity at least mult, cover the box [lo,hi] in the other directions
func (lr *LRSpline) covered(d int, v float64, lo, hi []float64, mult int) bool {
	var (
		npd   = len(lr.Orders)
		cands []Meshline
		cuts  = make([][]float64, npd)
	)
	for _, ml := range lr.Lines {
		if ml.Dir == d && ml.Value == v && ml.Mult >= mult {
			cands = append(cands, ml)
		}
	}
	if len(cands) == 0 {
		return false
	}
	if npd == 1 {
		return true
	}
	for e := 0; e < npd; e++ {
		if e == d {
			continue
		}
		cuts[e] = []float64{lo[e], hi[e]}
		for _, ml := range cands {
			if ml.Lo[e] > lo[e] && ml.Lo[e] < hi[e] {
				cuts[e] = append(cuts[e], ml.Lo[e])
			}
			if ml.Hi[e] > lo[e] && ml.Hi[e] < hi[e] {
				cuts[e] = append(cuts[e], ml.Hi[e])
			}
		}
		sort.Float64s(cuts[e])
	}
	// every sub-cell center must lie on one candidate
	others := make([]int, 0, npd-1)
	dims := make([]int, 0, npd-1)
	for e := 0; e < npd; e++ {
		if e != d {
			others = append(others, e)
			dims = append(dims, len(cuts[e])-1)
		}
	}
	idx := make([]int, len(dims))
	for c := 0; c < utils.Prod(dims); c++ {
		idx = utils.TensorSplit(c, dims, idx)
		found := false
		for _, ml := range cands {
			in := true
			for k, e := range others {
				mid := 0.5 * (cuts[e][idx[k]] + cuts[e][idx[k]+1])
				if mid < ml.Lo[e] || mid > ml.Hi[e] {
					in = false
					break
				}
			}
			if in {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
