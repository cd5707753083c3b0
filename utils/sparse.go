package utils

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// SparseMatrix accumulates entries in dictionary-of-keys form and converts to
// CSR for products and factorization.
type SparseMatrix struct {
	M        *sparse.DOK
	readOnly bool
	name     string
}

func NewSparseMatrix(nr, nc int) (R SparseMatrix) {
	R = SparseMatrix{
		sparse.NewDOK(nr, nc),
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m SparseMatrix) Dims() (r, c int)    { return m.M.Dims() }
func (m SparseMatrix) At(i, j int) float64 { return m.M.At(i, j) }
func (m SparseMatrix) T() mat.Matrix       { return m.M.T() }
func (m SparseMatrix) NNZ() int            { return m.M.NNZ() }

func (m *SparseMatrix) SetReadOnly(name ...string) SparseMatrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m SparseMatrix) Set(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, val)
}

// Add accumulates val into entry (i,j)
func (m SparseMatrix) Add(i, j int, val float64) {
	m.checkWritable()
	m.M.Set(i, j, m.M.At(i, j)+val)
}

// Zero clears all entries while keeping the dimensions
func (m *SparseMatrix) Zero() {
	m.checkWritable()
	nr, nc := m.Dims()
	m.M = sparse.NewDOK(nr, nc)
}

func (m SparseMatrix) ToCSR() *sparse.CSR {
	return m.M.ToCSR()
}

// MulVec returns m*x
func (m SparseMatrix) MulVec(x []float64) (y []float64) {
	var (
		nr, _ = m.Dims()
	)
	y = make([]float64, nr)
	m.M.ToCSR().DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
	return
}

// Solve returns X such that m*X = B by a direct band factorization. Rows and
// columns are renumbered by reverse Cuthill-McKee to narrow the band, which is
// then factorized by gonum's band Cholesky when m is symmetric positive
// definite, by band LU with partial pivoting otherwise.
func (m SparseMatrix) Solve(B Matrix) (X Matrix, err error) {
	var (
		nr, nc   = m.Dims()
		nrB, ncB = B.Dims()
	)
	if nr != nc || nr != nrB {
		err = fmt.Errorf("sparse solve of %dx%d with %d rows: %w", nr, nc, nrB, ErrDimMismatch)
		return
	}
	var (
		csr = m.M.ToCSR()
		bs  = newBandSystem(csr, reverseCuthillMcKee(csr))
	)
	X = NewMatrix(nr, ncB)
	if bs.symmetric && bs.solveCholesky(B, X) {
		return
	}
	if err = bs.solveLU(B, X); err != nil {
		err = fmt.Errorf("sparse solve of %dx%d system: %w", nr, nc, err)
	}
	return
}

// SolveVec solves m*x = b for a single right-hand side
func (m SparseMatrix) SolveVec(b []float64) (x []float64, err error) {
	var X Matrix
	if X, err = m.Solve(NewMatrix(len(b), 1, append([]float64{}, b...))); err != nil {
		return
	}
	x = X.Data()
	return
}

func (m SparseMatrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("%w named: \"%v\"", ErrReadOnlyData, m.name)
		panic(err)
	}
}
