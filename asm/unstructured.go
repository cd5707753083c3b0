package asm

import (
	"fmt"
	"sort"

	"github.com/notargets/goiga/spline"
)

// ASMu is an LR spline patch. Until the first local refinement it follows
// the tensor geometry like ASMs; afterwards the LR bases are refined directly
// and order elevation is no longer possible.
type ASMu struct {
	basePatch
	tensor *spline.Spline
	lr     []*spline.LRSpline
	local  bool
}

func NewASMu(geo *spline.Spline, nsd int, nf []int, cfg ASMConfig) (p *ASMu, err error) {
	if err = checkGeometry(geo, nsd); err != nil {
		return
	}
	if geo.Rational() {
		err = fmt.Errorf("LR patch: %w", ErrRationalSpline)
		return
	}
	p = &ASMu{tensor: geo.Copy()}
	if p.basePatch, err = newBasePatch(Unstructured, nsd, nf, cfg); err != nil {
		return nil, err
	}
	return
}

func (p *ASMu) Dimension() int {
	if p.tensor != nil {
		return p.tensor.NumParamDirs()
	}
	if len(p.lr) == 0 {
		return 0
	}
	return p.lr[0].NumParamDirs()
}

// LR returns the LR spline of basis b (1-based), nil before the topology is
// generated
func (p *ASMu) LR(b int) *spline.LRSpline {
	if b < 1 || b > len(p.lr) {
		return nil
	}
	return p.lr[b-1]
}

// buildLR converts the tensor bases into LR splines
func (p *ASMu) buildLR() (err error) {
	var bases []*spline.Spline
	if bases, p.geoIdx, err = mixedBases(p.tensor, len(p.nf), p.cfg); err != nil {
		return
	}
	p.lr = make([]*spline.LRSpline, len(bases))
	for b, s := range bases {
		if p.lr[b], err = spline.NewLRSpline(s); err != nil {
			return
		}
	}
	return
}

func (p *ASMu) GenerateFEMTopology() (err error) {
	if p.topo {
		return
	}
	if !p.local {
		if p.tensor == nil {
			return ErrNoTopology
		}
		if err = p.buildLR(); err != nil {
			return
		}
	}
	p.bases = make([]spline.Basis, len(p.lr))
	for b, lr := range p.lr {
		p.bases[b] = lr
	}
	return p.buildTopology()
}

func (p *ASMu) Clear(retainGeometry bool) {
	p.basePatch.Clear(retainGeometry)
	if !retainGeometry {
		p.tensor, p.lr, p.local = nil, nil, false
	}
}

func (p *ASMu) checkDir(dir int) error {
	if dir < 0 || dir >= p.Dimension() {
		return fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
	}
	return nil
}

// Refine inserts mesh lines through the whole domain at the relative
// positions xi within every mesh interval of direction dir
func (p *ASMu) Refine(dir int, xi []float64) (err error) {
	if err = p.checkDir(dir); err != nil {
		return
	}
	p.invalidate()
	if !p.local {
		return p.tensor.RefineRelative(dir, xi)
	}
	var (
		geo  = p.lr[p.geoIdx]
		vals []float64
	)
	for iel := 0; iel < geo.NumElements(); iel++ {
		lo, hi := geo.ElementBox(iel)
		vals = append(vals, lo[dir], hi[dir])
	}
	sort.Float64s(vals)
	var values []float64
	for i := 1; i < len(vals); i++ {
		if vals[i] == vals[i-1] {
			continue
		}
		for _, x := range xi {
			if x > 0 && x < 1 {
				values = append(values, vals[i-1]+x*(vals[i]-vals[i-1]))
			}
		}
	}
	for _, lr := range p.lr {
		for _, v := range values {
			if err = lr.Refine(dir, v); err != nil {
				return
			}
		}
	}
	return
}

func (p *ASMu) UniformRefine(dir, nInsert int) error {
	xi := make([]float64, nInsert)
	for i := range xi {
		xi[i] = float64(i+1) / float64(nInsert+1)
	}
	return p.Refine(dir, xi)
}

func (p *ASMu) RaiseOrder(r ...int) error {
	if p.local {
		return fmt.Errorf("order elevation after local refinement: %w", ErrUnsupported)
	}
	if p.tensor == nil {
		return ErrNoTopology
	}
	p.invalidate()
	return raiseTensor(p.tensor, r)
}

// RefineElements bisects the given elements. The refinement lines are taken
// from the geometry basis and inserted in every basis so that all bases keep
// the same element mesh.
func (p *ASMu) RefineElements(ids []int) (err error) {
	if len(ids) == 0 {
		return
	}
	if !p.local {
		if p.tensor == nil {
			return ErrNoTopology
		}
		if err = p.buildLR(); err != nil {
			return
		}
	}
	var lines []spline.Meshline
	if lines, err = p.lr[p.geoIdx].ElementRefinementLines(ids); err != nil {
		return
	}
	for _, lr := range p.lr {
		for _, ml := range lines {
			lr.InsertLine(ml)
		}
	}
	p.local = true
	p.tensor = nil
	p.invalidate()
	return
}

func (p *ASMu) UpdateCoords(displ []float64) (err error) {
	if err = p.checkTopology(); err != nil {
		return
	}
	if err = p.basePatch.UpdateCoords(displ); err != nil {
		return
	}
	geo := p.geo().(*spline.LRSpline)
	p.lr[p.geoIdx] = geo
	if p.tensor != nil && p.tensor.NumBasisFunctions() == geo.NumBasisFunctions() {
		copy(p.tensor.Coefs, geo.ControlPoints())
	}
	return
}

// ConstrainNode constrains the node whose Greville point is nearest to the
// relative position xi
func (p *ASMu) ConstrainNode(xi []float64, dof, code int, basis ...int) int {
	b := p.basisIndex(basis)
	if !p.topo || b > len(p.bases) {
		return 0
	}
	u, ok := relativeToParam(p.bases[b-1], xi)
	if !ok {
		return 0
	}
	return p.constrainFunctions(b, []int{nearestGreville(p.bases[b-1], u)}, dof, code)
}
