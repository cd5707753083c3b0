package integrand

import (
	"fmt"
	"sync"

	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

// IntegrandBase carries the state shared by all problems: the patch level
// primary solution history, the solution mode, integration parameters and
// the named vectors and fields filled in by dependent simulators. Concrete
// problems embed it.
type IntegrandBase struct {
	Npv     int // primary unknowns per node
	Npv2    int // primary unknowns per basis 2 node of mixed problems
	Mode    types.SolutionMode
	PrimSol []utils.Vector
	IntPrm  [5]float64

	mu          sync.RWMutex
	namedVecs   map[string]*[]float64
	namedFields map[string]Field
}

func NewIntegrandBase(npv int) (ib *IntegrandBase) {
	ib = &IntegrandBase{
		Npv:         npv,
		Mode:        types.INIT,
		namedVecs:   make(map[string]*[]float64),
		namedFields: make(map[string]Field),
	}
	return
}

func (ib *IntegrandBase) InitIntegration(time types.TimeDomain) {}
func (ib *IntegrandBase) InitResultPoints(t float64)            {}
func (ib *IntegrandBase) HasBoundaryTerms() bool                { return false }
func (ib *IntegrandBase) DerivativeOrder() int                  { return 1 }
func (ib *IntegrandBase) Type() IntegrandType                   { return Standard }
func (ib *IntegrandBase) MixedFormulation() bool                { return false }
func (ib *IntegrandBase) SetMode(mode types.SolutionMode)       { ib.Mode = mode }
func (ib *IntegrandBase) GetMode() types.SolutionMode           { return ib.Mode }

func (ib *IntegrandBase) SetIntegrationPrm(i int, prm float64) {
	if i >= 0 && i < len(ib.IntPrm) {
		ib.IntPrm[i] = prm
	}
}

func (ib *IntegrandBase) GetIntegrationPrm(i int) float64 {
	if i >= 0 && i < len(ib.IntPrm) {
		return ib.IntPrm[i]
	}
	return 0
}

// ResizeSolutions allocates nSol patch level solution vectors of length nDOF
func (ib *IntegrandBase) ResizeSolutions(nSol, nDOF int) {
	if len(ib.PrimSol) != nSol {
		sols := make([]utils.Vector, nSol)
		copy(sols, ib.PrimSol)
		ib.PrimSol = sols
	}
	for k := range ib.PrimSol {
		if ib.PrimSol[k].V == nil || ib.PrimSol[k].Len() != nDOF {
			ib.PrimSol[k] = utils.NewVector(nDOF)
		}
	}
}

func (ib *IntegrandBase) SetSolution(k int, sol []float64) {
	if k >= len(ib.PrimSol) {
		ib.ResizeSolutions(k+1, len(sol))
	}
	if ib.PrimSol[k].V == nil || ib.PrimSol[k].Len() != len(sol) {
		ib.PrimSol[k] = utils.NewVector(len(sol))
	}
	copy(ib.PrimSol[k].Data(), sol)
}

func (ib *IntegrandBase) Solutions() []utils.Vector { return ib.PrimSol }

// NamedVector returns the storage of a named patch level vector, creating it
// on first use
func (ib *IntegrandBase) NamedVector(name string) *[]float64 {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if ib.namedVecs == nil {
		ib.namedVecs = make(map[string]*[]float64)
	}
	v, ok := ib.namedVecs[name]
	if !ok {
		v = new([]float64)
		ib.namedVecs[name] = v
	}
	return v
}

func (ib *IntegrandBase) SetNamedField(name string, f Field) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if ib.namedFields == nil {
		ib.namedFields = make(map[string]Field)
	}
	ib.namedFields[name] = f
}

func (ib *IntegrandBase) NamedField(name string) (f Field, err error) {
	ib.mu.RLock()
	defer ib.mu.RUnlock()
	var ok bool
	if f, ok = ib.namedFields[name]; !ok {
		err = fmt.Errorf("field %q: %w", name, ErrUnknownField)
	}
	return
}

// ElementVectors extracts the element level values of every primary solution
// vector for the nodes in MNPC, npv values per node
func (ib *IntegrandBase) ElementVectors(MNPC []int, npv int) (vecs []utils.Vector, err error) {
	vecs = make([]utils.Vector, len(ib.PrimSol))
	for k, sol := range ib.PrimSol {
		if vecs[k], err = ExtractElementVector(sol.Data(), MNPC, npv); err != nil {
			return
		}
	}
	return
}

// ExtractElementVector gathers the npv nodal values of the nodes in MNPC
func ExtractElementVector(global []float64, MNPC []int, npv int) (ev utils.Vector, err error) {
	ev = utils.NewVector(len(MNPC) * npv)
	data := ev.Data()
	for a, inod := range MNPC {
		if (inod+1)*npv > len(global) {
			err = fmt.Errorf("node %d with %d values per node in vector of length %d: %w",
				inod, npv, len(global), ErrElementSize)
			return
		}
		copy(data[a*npv:(a+1)*npv], global[inod*npv:(inod+1)*npv])
	}
	return
}

// ExtractMixedElementVector gathers element values for a mixed element where
// the basis 1 nodes carry nf1 values and the basis 2 nodes nf2 values, basis 2
// nodes numbered after the n1 nodes of basis 1
func ExtractMixedElementVector(global []float64, MNPC1, MNPC2 []int, n1, nf1, nf2 int) (ev utils.Vector, err error) {
	ev = utils.NewVector(len(MNPC1)*nf1 + len(MNPC2)*nf2)
	var (
		data = ev.Data()
		ofs  = n1 * nf1
	)
	for a, inod := range MNPC1 {
		if (inod+1)*nf1 > ofs {
			err = fmt.Errorf("basis 1 node %d: %w", inod, ErrElementSize)
			return
		}
		copy(data[a*nf1:(a+1)*nf1], global[inod*nf1:(inod+1)*nf1])
	}
	base := len(MNPC1) * nf1
	for a, inod := range MNPC2 {
		i := ofs + (inod-n1)*nf2
		if inod < n1 || i+nf2 > len(global) {
			err = fmt.Errorf("basis 2 node %d: %w", inod, ErrElementSize)
			return
		}
		copy(data[base+a*nf2:base+(a+1)*nf2], global[i:i+nf2])
	}
	return
}

// elementVectorHolder is implemented by local integrals that keep the element
// level solution vectors
type elementVectorHolder interface {
	SetElementVectors(vecs []utils.Vector)
}

// InitElement extracts the element solution vectors into elm
func (ib *IntegrandBase) InitElement(MNPC []int, fe *FiniteElement, X0 []float64, nPt int, elm LocalIntegral) (err error) {
	return ib.InitElementBou(MNPC, elm)
}

func (ib *IntegrandBase) InitElementBou(MNPC []int, elm LocalIntegral) (err error) {
	holder, ok := elm.(elementVectorHolder)
	if !ok || len(ib.PrimSol) == 0 {
		return
	}
	var vecs []utils.Vector
	if vecs, err = ib.ElementVectors(MNPC, ib.Npv); err != nil {
		return
	}
	holder.SetElementVectors(vecs)
	return
}

// InitElementMx extracts mixed element solution vectors, Npv values per basis
// 1 node followed by Npv2 values per basis 2 node
func (ib *IntegrandBase) InitElementMx(MNPC1, MNPC2 []int, n1 int, fe *FiniteElement, X0 []float64, nPt int,
	elm LocalIntegral) (err error) {
	holder, ok := elm.(elementVectorHolder)
	if !ok || len(ib.PrimSol) == 0 {
		return
	}
	vecs := make([]utils.Vector, len(ib.PrimSol))
	for k, sol := range ib.PrimSol {
		if vecs[k], err = ExtractMixedElementVector(sol.Data(), MNPC1, MNPC2, n1, ib.Npv, ib.Npv2); err != nil {
			return
		}
	}
	holder.SetElementVectors(vecs)
	return
}

func (ib *IntegrandBase) EvaluateBou(elm LocalIntegral, fe *FiniteElement, time types.TimeDomain, X, normal []float64) error {
	return nil
}

func (ib *IntegrandBase) FinalizeElement(elm LocalIntegral, time types.TimeDomain) error { return nil }

func (ib *IntegrandBase) FieldName(which, i int) string { return "" }
