package sim

import (
	"fmt"

	"github.com/notargets/goiga/asm"
)

// SAM numbers the degrees of freedom and the equations of a multi-patch
// model. Patches occupy consecutive global node ranges, and every node of a
// mixed patch carries the field count of its own basis.
type SAM struct {
	NumNodes int
	MADOF    []int // first DOF of each global node, NumNodes+1 entries
	MEQN     []int // equation number of each DOF, -1 when constrained
	NEQ      int
	MPMCEQ   map[int]int // constraint code of each constrained DOF
	elmDOFs  [][]int     // DOFs of each global element
	patchDOF []int       // first DOF of each patch, len(patches)+1 entries
}

// NewSAM builds the numbering from patches whose topology, global node and
// element offsets are in place
func NewSAM(patches []asm.Patch) (sam *SAM, err error) {
	sam = &SAM{MPMCEQ: make(map[int]int)}
	for _, p := range patches {
		sam.NumNodes += p.NumNodes(0)
	}
	sam.MADOF = make([]int, sam.NumNodes+1)
	sam.patchDOF = make([]int, len(patches)+1)
	for ip, p := range patches {
		sam.patchDOF[ip] = sam.MADOF[p.MLGN()[0]]
		for b := 1; b <= p.NumBases(); b++ {
			nf := p.NumFields(b)
			for _, g := range nodesOfBasis(p, b) {
				sam.MADOF[g+1] = sam.MADOF[g] + nf
			}
		}
		sam.patchDOF[ip+1] = sam.MADOF[p.MLGN()[len(p.MLGN())-1]+1]
	}
	nDOF := sam.MADOF[sam.NumNodes]
	for ip, p := range patches {
		mlgn := p.MLGN()
		for _, c := range p.Constraints() {
			g := mlgn[c.Node]
			if c.Dof > sam.MADOF[g+1]-sam.MADOF[g] {
				err = fmt.Errorf("patch %d node %d component %d: %w", ip+1, c.Node, c.Dof, ErrConstraint)
				return
			}
			sam.MPMCEQ[sam.MADOF[g]+c.Dof-1] = c.Code
		}
	}
	sam.MEQN = make([]int, nDOF)
	for dof := range sam.MEQN {
		if _, fixed := sam.MPMCEQ[dof]; fixed {
			sam.MEQN[dof] = -1
			continue
		}
		sam.MEQN[dof] = sam.NEQ
		sam.NEQ++
	}
	for _, p := range patches {
		mlgn := p.MLGN()
		for iel := 0; iel < p.NumElements(); iel++ {
			var dofs []int
			for _, inod := range p.MNPC(iel) {
				g := mlgn[inod]
				for dof := sam.MADOF[g]; dof < sam.MADOF[g+1]; dof++ {
					dofs = append(dofs, dof)
				}
			}
			sam.elmDOFs = append(sam.elmDOFs, dofs)
		}
	}
	return
}

// nodesOfBasis lists the global nodes of basis b of a patch
func nodesOfBasis(p asm.Patch, b int) (nodes []int) {
	first := 0
	for i := 1; i < b; i++ {
		first += p.NumNodes(i)
	}
	return p.MLGN()[first : first+p.NumNodes(b)]
}

func (sam *SAM) NumDOFs() int { return len(sam.MEQN) }

// ElementDOFs returns the DOFs of global element iel in element order
func (sam *SAM) ElementDOFs(iel int) (dofs []int, err error) {
	if iel < 0 || iel >= len(sam.elmDOFs) {
		err = fmt.Errorf("element %d of %d: %w", iel, len(sam.elmDOFs), ErrElementIndex)
		return
	}
	dofs = sam.elmDOFs[iel]
	return
}

// PatchDOFs returns the DOF range [first,last) of patch ip (0-based)
func (sam *SAM) PatchDOFs(ip int) (first, last int) {
	return sam.patchDOF[ip], sam.patchDOF[ip+1]
}

// IsConstrained reports whether a DOF is prescribed, and its code
func (sam *SAM) IsConstrained(dof int) (code int, ok bool) {
	code, ok = sam.MPMCEQ[dof]
	return
}

// ExpandSolution maps an equation vector onto the DOFs, constrained DOFs
// taking their prescribed value (zero for nil presc)
func (sam *SAM) ExpandSolution(x, presc []float64) (dofVec []float64) {
	dofVec = make([]float64, len(sam.MEQN))
	for dof, eq := range sam.MEQN {
		switch {
		case eq >= 0:
			dofVec[dof] = x[eq]
		case presc != nil:
			dofVec[dof] = presc[dof]
		}
	}
	return
}
