package utils

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/lapack/lapack64"
	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M        *mat.Dense
	readOnly bool
	name     string
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v\n", nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{
		m,
		false,
		"unnamed - hint: pass a variable name to SetReadOnly()",
	}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }
func (m Matrix) Data() []float64           { return m.M.RawMatrix().Data }
func (m Matrix) IsEmpty() bool             { return m.M == nil }

// Chainable methods (extended)
func (m *Matrix) SetReadOnly(name ...string) Matrix {
	if len(name) != 0 {
		m.name = name[0]
	}
	m.readOnly = true
	return *m
}

func (m *Matrix) SetWritable() Matrix {
	m.readOnly = false
	return *m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		dataR  = make([]float64, nr*nc)
	)
	copy(dataR, m.Data())
	R = NewMatrix(nr, nc, dataR)
	return
}

// Resize reshapes the matrix to nr x nc, reusing the storage when it is large
// enough. The contents are zeroed.
func (m *Matrix) Resize(nr, nc int) { // Changes receiver
	if m.M == nil {
		*m = NewMatrix(nr, nc)
		return
	}
	m.checkWritable()
	if r, c := m.M.Dims(); r == nr && c == nc {
		m.M.Zero()
		return
	}
	m.M.Reset()
	m.M.ReuseAs(nr, nc)
}

func (m Matrix) Transpose() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nc, nr)
	R.M.Copy(m.M.T())
	return
}

func (m Matrix) Mul(A Matrix) (R Matrix) { // Does not change receiver
	var (
		nrM, _ = m.M.Dims()
		_, ncA = A.M.Dims()
	)
	R = NewMatrix(nrM, ncA)
	R.M.Mul(m.M, A.M)
	return R
}

// MulVec returns m*x, or m^T*x when trans is set
func (m Matrix) MulVec(x []float64, trans bool) (y []float64) { // Does not change receiver
	var (
		nr, nc = m.Dims()
		data   = m.Data()
	)
	if !trans {
		y = make([]float64, nr)
		for i := 0; i < nr; i++ {
			y[i] = floats.Dot(data[i*nc:(i+1)*nc], x)
		}
		return
	}
	y = make([]float64, nc)
	for i := 0; i < nr; i++ {
		floats.AddScaled(y, x[i], data[i*nc:(i+1)*nc])
	}
	return
}

func (m Matrix) Row(i int) []float64 {
	_, nc := m.Dims()
	return m.Data()[i*nc : (i+1)*nc]
}

func (m Matrix) Col(j int) (col []float64) {
	nr, _ := m.Dims()
	col = make([]float64, nr)
	for i := 0; i < nr; i++ {
		col[i] = m.M.At(i, j)
	}
	return
}

func (m Matrix) Set(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) AddAt(i, j int, val float64) Matrix { // Changes receiver
	m.checkWritable()
	_, nc := m.Dims()
	m.Data()[i*nc+j] += val
	return m
}

func (m Matrix) SetCol(j int, data []float64) Matrix { // Changes receiver
	m.checkWritable()
	m.M.SetCol(j, data)
	return m
}

func (m Matrix) Add(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	floats.Add(m.Data(), A.Data())
	return m
}

// AddScaled computes m += a*A
func (m Matrix) AddScaled(a float64, A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	floats.AddScaled(m.Data(), a, A.Data())
	return m
}

func (m Matrix) Subtract(A Matrix) Matrix { // Changes receiver
	m.checkWritable()
	floats.Sub(m.Data(), A.Data())
	return m
}

func (m Matrix) Scale(a float64) Matrix { // Changes receiver
	m.checkWritable()
	floats.Scale(a, m.Data())
	return m
}

func (m Matrix) Fill(val float64) Matrix { // Changes receiver
	m.checkWritable()
	data := m.Data()
	for i := range data {
		data[i] = val
	}
	return m
}

func (m Matrix) Zero() Matrix { return m.Fill(0) } // Changes receiver

func (m Matrix) Apply(f func(float64) float64) Matrix { // Changes receiver
	m.checkWritable()
	data := m.Data()
	for i, val := range data {
		data[i] = f(val)
	}
	return m
}

func (m Matrix) Inverse() (R Matrix, err error) {
	var (
		nr, nc = m.Dims()
	)
	if nr != nc {
		err = fmt.Errorf("unable to invert a %dx%d matrix: %w", nr, nc, ErrDimMismatch)
		return
	}
	R = m.Copy()
	iPiv := make([]int, nr)
	if ok := lapack64.Getrf(R.RawMatrix(), iPiv); !ok {
		err = fmt.Errorf("unable to invert: %w", ErrSingular)
		return
	}
	work := make([]float64, nr*nc)
	if ok := lapack64.Getri(R.RawMatrix(), iPiv, work, nr*nc); !ok {
		err = fmt.Errorf("unable to invert: %w", ErrSingular)
	}
	return
}

// Solve returns X such that m*X = B, using dense LU factorization
func (m Matrix) Solve(B Matrix) (X Matrix, err error) { // Does not change receiver
	var (
		nr, nc   = m.Dims()
		nrB, ncB = B.Dims()
		lu       mat.LU
	)
	if nr != nc || nrB != nr {
		err = fmt.Errorf("unable to solve %dx%d system with %dx%d right-hand side: %w",
			nr, nc, nrB, ncB, ErrDimMismatch)
		return
	}
	lu.Factorize(m.M)
	if lu.Det() == 0 {
		err = fmt.Errorf("LU factorization: %w", ErrSingular)
		return
	}
	X = NewMatrix(nr, ncB)
	if err = lu.SolveTo(X.M, false, B.M); err != nil {
		err = fmt.Errorf("%v: %w", err, ErrSingular)
	}
	return
}

// Det returns the determinant of a square matrix
func (m Matrix) Det() float64 {
	return mat.Det(m.M)
}

func (m Matrix) Max() (max float64) { return floats.Max(m.Data()) }
func (m Matrix) Min() (min float64) { return floats.Min(m.Data()) }

func (m Matrix) Print(msgI ...string) (o string) {
	var (
		name = ""
	)
	if len(msgI) != 0 {
		name = msgI[0]
	}
	formatString := "%s = \n%10.8f\n"
	o = fmt.Sprintf(formatString, name, mat.Formatted(m.M, mat.Squeeze()))
	return
}

func (m Matrix) checkWritable() {
	if m.readOnly {
		err := fmt.Errorf("%w named: \"%v\"", ErrReadOnlyData, m.name)
		panic(err)
	}
}
