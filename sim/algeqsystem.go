package sim

import (
	"fmt"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/utils"
)

// AlgEqSystem is the global linear system, assembled from element
// contributions through the integrand.GlobalIntegral contract. Matrix 0 and
// vector 0 receive the Newton matrix and right-hand side of each element,
// the others the corresponding raw element matrices and vectors.
type AlgEqSystem struct {
	A []utils.SparseMatrix
	B []utils.Vector

	sam    *SAM
	presc  []float64 // prescribed DOF values, nil when homogeneous
	newLHS bool
}

func NewAlgEqSystem(sam *SAM, nMats, nVecs int) (eq *AlgEqSystem) {
	eq = &AlgEqSystem{
		A:   make([]utils.SparseMatrix, nMats),
		B:   make([]utils.Vector, nVecs),
		sam: sam,
	}
	for i := range eq.A {
		eq.A[i] = utils.NewSparseMatrix(sam.NEQ, sam.NEQ)
	}
	for i := range eq.B {
		eq.B[i] = utils.NewVector(sam.NEQ)
	}
	return
}

// SetPrescribed sets the values of the constrained DOFs used for the next
// assembly, nil meaning all zero
func (eq *AlgEqSystem) SetPrescribed(presc []float64) { eq.presc = presc }

func (eq *AlgEqSystem) Initialize(newLHS bool) {
	eq.newLHS = newLHS
	if newLHS {
		for i := range eq.A {
			eq.A[i].Zero()
		}
	}
	for i := range eq.B {
		data := eq.B[i].Data()
		for j := range data {
			data[j] = 0
		}
	}
}

// Assemble scatters one element into the system. Columns of constrained
// DOFs times their prescribed values are moved to the right-hand side.
// Elements without matrices, e.g. on Neumann boundaries, only add to the
// right-hand sides.
func (eq *AlgEqSystem) Assemble(elm integrand.LocalIntegral, iel int) (err error) {
	em, ok := elm.(integrand.ElementMatrices)
	if !ok {
		return fmt.Errorf("element %d of type %T: %w", iel, elm, ErrElementType)
	}
	var (
		dofs []int
		N    utils.Matrix
		meqn = eq.sam.MEQN
	)
	if dofs, err = eq.sam.ElementDOFs(iel); err != nil {
		return
	}
	if eq.newLHS && len(eq.A) > 0 && len(em.Matrices()) > 0 {
		if N, err = em.NewtonMatrix(); err != nil {
			return
		}
		if nr, _ := N.Dims(); nr != len(dofs) {
			return elementSizeError(iel, nr, len(dofs))
		}
		eq.scatterMatrix(eq.A[0], N, dofs)
		for k := 1; k < len(eq.A) && k < len(em.Matrices()); k++ {
			eq.scatterMatrix(eq.A[k], em.Matrices()[k], dofs)
		}
	}
	if len(eq.B) == 0 {
		return
	}
	var b utils.Vector
	if b, err = em.RHSVector(); err != nil {
		return
	}
	if b.Len() != len(dofs) {
		return elementSizeError(iel, b.Len(), len(dofs))
	}
	eq.scatterVector(eq.B[0], b, dofs)
	for k := 1; k < len(eq.B) && k < len(em.Vectors()); k++ {
		eq.scatterVector(eq.B[k], em.Vectors()[k], dofs)
	}
	// without a new Newton matrix the prescribed values act as zero
	// increments
	if eq.presc == nil || N.IsEmpty() {
		return
	}
	B0 := eq.B[0].Data()
	for j, dj := range dofs {
		if meqn[dj] >= 0 || eq.presc[dj] == 0 {
			continue
		}
		for i, di := range dofs {
			if ie := meqn[di]; ie >= 0 {
				B0[ie] -= N.At(i, j) * eq.presc[dj]
			}
		}
	}
	return
}

func elementSizeError(iel, n, ndof int) error {
	return fmt.Errorf("element %d has %d rows for %d DOFs: %w", iel, n, ndof, integrand.ErrElementSize)
}

func (eq *AlgEqSystem) scatterMatrix(A utils.SparseMatrix, Ae utils.Matrix, dofs []int) {
	meqn := eq.sam.MEQN
	for i, di := range dofs {
		ie := meqn[di]
		if ie < 0 {
			continue
		}
		for j, dj := range dofs {
			if je := meqn[dj]; je >= 0 {
				if v := Ae.At(i, j); v != 0 {
					A.Add(ie, je, v)
				}
			}
		}
	}
}

func (eq *AlgEqSystem) scatterVector(B, be utils.Vector, dofs []int) {
	var (
		meqn = eq.sam.MEQN
		data = B.Data()
	)
	for i, di := range dofs {
		if ie := meqn[di]; ie >= 0 {
			data[ie] += be.AtVec(i)
		}
	}
}

func (eq *AlgEqSystem) Finalize(newLHS bool) error { return nil }

// Solve solves A[0] x = B[0] and returns the DOF vector, constrained DOFs
// receiving their prescribed values
func (eq *AlgEqSystem) Solve() (dofVec []float64, err error) {
	if len(eq.A) == 0 || len(eq.B) == 0 {
		err = fmt.Errorf("%d matrices and %d vectors: %w", len(eq.A), len(eq.B), ErrNoSystem)
		return
	}
	var x []float64
	if eq.sam.NEQ > 0 {
		if x, err = eq.A[0].SolveVec(eq.B[0].Data()); err != nil {
			return
		}
	}
	dofVec = eq.sam.ExpandSolution(x, eq.presc)
	return
}

// RHS returns vector i expanded to DOF length, zero at constrained DOFs
func (eq *AlgEqSystem) RHS(i int) (dofVec []float64, err error) {
	if i < 0 || i >= len(eq.B) {
		err = fmt.Errorf("right-hand side %d of %d: %w", i, len(eq.B), ErrNoSystem)
		return
	}
	dofVec = eq.sam.ExpandSolution(eq.B[i].Data(), nil)
	return
}

// AddToRHS adds scale times a DOF vector to right-hand side i
func (eq *AlgEqSystem) AddToRHS(i int, dofVec []float64, scale float64) (err error) {
	if i < 0 || i >= len(eq.B) {
		return fmt.Errorf("right-hand side %d of %d: %w", i, len(eq.B), ErrNoSystem)
	}
	if len(dofVec) != len(eq.sam.MEQN) {
		return fmt.Errorf("vector of length %d for %d DOFs: %w", len(dofVec), len(eq.sam.MEQN), ErrSizeMismatch)
	}
	data := eq.B[i].Data()
	for dof, ie := range eq.sam.MEQN {
		if ie >= 0 {
			data[ie] += scale * dofVec[dof]
		}
	}
	return
}
