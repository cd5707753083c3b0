package integrand

import (
	"fmt"

	"github.com/notargets/goiga/utils"
)

// ElmMats is the standard element accumulator: a set of element matrices, a
// set of element right-hand-side vectors and the element solution vectors.
// The tangent is A[0] and the right-hand side is B[0].
type ElmMats struct {
	A       []utils.Matrix
	B       []utils.Vector
	Vec     []utils.Vector
	RHSOnly bool
}

// NewElmMats allocates nA square matrices and nB vectors of size ndof
func NewElmMats(nA, nB, ndof int) (em *ElmMats) {
	em = &ElmMats{}
	em.Resize(nA, nB, ndof)
	return
}

func (em *ElmMats) Resize(nA, nB, ndof int) {
	em.A = make([]utils.Matrix, nA)
	for i := range em.A {
		em.A[i] = utils.NewMatrix(ndof, ndof)
	}
	em.B = make([]utils.Vector, nB)
	for i := range em.B {
		em.B[i] = utils.NewVector(ndof)
	}
}

func (em *ElmMats) Clear() {
	for _, A := range em.A {
		A.Zero()
	}
	for _, b := range em.B {
		b.Zero()
	}
}

func (em *ElmMats) SetElementVectors(vecs []utils.Vector) { em.Vec = vecs }
func (em *ElmMats) Matrices() []utils.Matrix              { return em.A }
func (em *ElmMats) Vectors() []utils.Vector               { return em.B }

func (em *ElmMats) NewtonMatrix() (A utils.Matrix, err error) {
	if len(em.A) == 0 || em.RHSOnly {
		err = fmt.Errorf("no element matrix: %w", ErrElementSize)
		return
	}
	A = em.A[0]
	return
}

func (em *ElmMats) RHSVector() (b utils.Vector, err error) {
	if len(em.B) == 0 {
		err = fmt.Errorf("no element vector: %w", ErrElementSize)
		return
	}
	b = em.B[0]
	return
}

// ElmNorm accumulates scalar element quantities such as norms and areas
type ElmNorm struct {
	Vals []float64
}

func NewElmNorm(n int) *ElmNorm { return &ElmNorm{Vals: make([]float64, n)} }

func (en *ElmNorm) Clear() {
	for i := range en.Vals {
		en.Vals[i] = 0
	}
}

// GlobalSum adds up ElmNorm contributions over all elements. Element values
// can be kept for error estimates and adaptive refinement.
type GlobalSum struct {
	Sum         []float64
	KeepElement bool
	Element     map[int][]float64
}

func NewGlobalSum(n int, keepElement bool) (gs *GlobalSum) {
	gs = &GlobalSum{
		Sum:         make([]float64, n),
		KeepElement: keepElement,
		Element:     make(map[int][]float64),
	}
	return
}

func (gs *GlobalSum) Initialize(newLHS bool) {
	for i := range gs.Sum {
		gs.Sum[i] = 0
	}
	gs.Element = make(map[int][]float64)
}

func (gs *GlobalSum) Assemble(elm LocalIntegral, iel int) (err error) {
	en, ok := elm.(*ElmNorm)
	if !ok {
		err = fmt.Errorf("global sum of %T: %w", elm, ErrElementSize)
		return
	}
	if len(en.Vals) > len(gs.Sum) {
		err = fmt.Errorf("%d element values into %d sums: %w", len(en.Vals), len(gs.Sum), ErrElementSize)
		return
	}
	for i, v := range en.Vals {
		gs.Sum[i] += v
	}
	if gs.KeepElement {
		gs.Element[iel] = append([]float64{}, en.Vals...)
	}
	return
}

func (gs *GlobalSum) Finalize(newLHS bool) error { return nil }
