package asm

import (
	"fmt"
	"math"

	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/utils"
)

// ASMs is a tensor-product spline patch. Refinement and order elevation act
// on the geometry spline; the solution bases are rebuilt from it by
// GenerateFEMTopology.
type ASMs struct {
	basePatch
	tensor *spline.Spline
}

// NewASMs creates a structured patch over geo in nsd space dimensions, with
// nf[b] fields on basis b. Two entries in nf make a mixed patch.
func NewASMs(geo *spline.Spline, nsd int, nf []int, cfg ASMConfig) (p *ASMs, err error) {
	if err = checkGeometry(geo, nsd); err != nil {
		return
	}
	p = &ASMs{tensor: geo.Copy()}
	if p.basePatch, err = newBasePatch(Structured, nsd, nf, cfg); err != nil {
		return nil, err
	}
	return
}

func checkGeometry(geo *spline.Spline, nsd int) error {
	if geo == nil {
		return fmt.Errorf("no geometry: %w", ErrTopology)
	}
	npd := geo.NumParamDirs()
	if nsd < npd || nsd > 3 || geo.Dimension() < nsd {
		return fmt.Errorf("%d space dimensions for a %d-parametric geometry of dimension %d: %w",
			nsd, npd, geo.Dimension(), ErrInvalidDirection)
	}
	return nil
}

func (p *ASMs) Dimension() int {
	if p.tensor == nil {
		return 0
	}
	return p.tensor.NumParamDirs()
}

// Tensor returns the refined geometry spline
func (p *ASMs) Tensor() *spline.Spline { return p.tensor }

func (p *ASMs) GenerateFEMTopology() (err error) {
	if p.topo {
		return
	}
	if p.tensor == nil {
		return ErrNoTopology
	}
	var bases []*spline.Spline
	if bases, p.geoIdx, err = mixedBases(p.tensor, len(p.nf), p.cfg); err != nil {
		return
	}
	p.bases = make([]spline.Basis, len(bases))
	for b, s := range bases {
		p.bases[b] = s
	}
	return p.buildTopology()
}

func (p *ASMs) Clear(retainGeometry bool) {
	p.basePatch.Clear(retainGeometry)
	if !retainGeometry {
		p.tensor = nil
	}
}

func (p *ASMs) checkDir(dir int) error {
	if p.tensor == nil || dir < 0 || dir >= p.tensor.NumParamDirs() {
		return fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
	}
	return nil
}

// Refine inserts knots at the relative positions xi within every span of
// direction dir
func (p *ASMs) Refine(dir int, xi []float64) (err error) {
	if err = p.checkDir(dir); err != nil {
		return
	}
	p.invalidate()
	return p.tensor.RefineRelative(dir, xi)
}

func (p *ASMs) UniformRefine(dir, nInsert int) (err error) {
	if err = p.checkDir(dir); err != nil {
		return
	}
	p.invalidate()
	return p.tensor.UniformRefine(dir, nInsert)
}

// RaiseOrder elevates the order by r[d] in direction d, a single value
// applying to all directions
func (p *ASMs) RaiseOrder(r ...int) (err error) {
	if p.tensor == nil {
		return ErrNoTopology
	}
	p.invalidate()
	return raiseTensor(p.tensor, r)
}

func raiseTensor(s *spline.Spline, r []int) (err error) {
	npd := s.NumParamDirs()
	if len(r) != 1 && len(r) != npd {
		return fmt.Errorf("%d order increments for %d directions: %w", len(r), npd, ErrInvalidDirection)
	}
	for d := 0; d < npd; d++ {
		rd := r[0]
		if len(r) == npd {
			rd = r[d]
		}
		if err = s.RaiseOrder(d, rd); err != nil {
			return
		}
	}
	return
}

func (p *ASMs) RefineElements(ids []int) error {
	return fmt.Errorf("local refinement of a tensor patch: %w", ErrUnsupported)
}

func (p *ASMs) UpdateCoords(displ []float64) (err error) {
	if err = p.checkTopology(); err != nil {
		return
	}
	if err = p.basePatch.UpdateCoords(displ); err != nil {
		return
	}
	geo, ok := p.geo().(*spline.Spline)
	if !ok || geo.NumBasisFunctions() != p.tensor.NumBasisFunctions() {
		return
	}
	if len(p.bases) == 1 {
		p.tensor = geo
	} else {
		p.tensor = geo.Copy()
	}
	return
}

// ConstrainNode constrains the node at the relative position xi, rounded to
// the nearest node index in each direction
func (p *ASMs) ConstrainNode(xi []float64, dof, code int, basis ...int) int {
	b := p.basisIndex(basis)
	if !p.topo || b > len(p.bases) {
		return 0
	}
	s, ok := p.bases[b-1].(*spline.Spline)
	if !ok || len(xi) != s.NumParamDirs() {
		return 0
	}
	var (
		npd  = s.NumParamDirs()
		idx  = make([]int, npd)
		ncof = make([]int, npd)
	)
	for d, r := range xi {
		if r < 0 || r > 1 {
			return 0
		}
		ncof[d] = s.NumCoefs(d)
		idx[d] = int(math.Round(r * float64(ncof[d]-1)))
	}
	return p.constrainFunctions(b, []int{utils.TensorIndex(idx, ncof)}, dof, code)
}
