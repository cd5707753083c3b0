package utils

import "fmt"

// Matrix3D is a dense rank three array, last index fastest. It holds second
// derivatives of basis functions, indexed as (node, dir, dir).
type Matrix3D struct {
	N1, N2, N3 int
	data       []float64
}

func NewMatrix3D(n1, n2, n3 int) (R Matrix3D) {
	R = Matrix3D{
		N1:   n1,
		N2:   n2,
		N3:   n3,
		data: make([]float64, n1*n2*n3),
	}
	return
}

func (m Matrix3D) Dims() (n1, n2, n3 int) { return m.N1, m.N2, m.N3 }
func (m Matrix3D) Data() []float64        { return m.data }
func (m Matrix3D) IsEmpty() bool          { return len(m.data) == 0 }

func (m Matrix3D) At(i, j, k int) float64 {
	return m.data[(i*m.N2+j)*m.N3+k]
}

func (m Matrix3D) Set(i, j, k int, val float64) {
	m.data[(i*m.N2+j)*m.N3+k] = val
}

func (m Matrix3D) AddAt(i, j, k int, val float64) {
	m.data[(i*m.N2+j)*m.N3+k] += val
}

func (m Matrix3D) Zero() Matrix3D {
	for i := range m.data {
		m.data[i] = 0
	}
	return m
}

// Resize reuses the storage when possible
func (m *Matrix3D) Resize(n1, n2, n3 int) {
	if cap(m.data) < n1*n2*n3 {
		m.data = make([]float64, n1*n2*n3)
	}
	m.data = m.data[:n1*n2*n3]
	m.N1, m.N2, m.N3 = n1, n2, n3
}

func (m Matrix3D) String() string {
	return fmt.Sprintf("Matrix3D[%d,%d,%d] %v", m.N1, m.N2, m.N3, m.data)
}
