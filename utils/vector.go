package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(N int, dataO ...[]float64) Vector {
	var (
		data []float64
	)
	if len(dataO) != 0 {
		if len(dataO[0]) != N {
			panic(fmt.Errorf("mismatch in allocation: NewVector N = %v, len(data[0]) = %v", N, len(dataO[0])))
		}
		data = dataO[0]
	} else {
		data = make([]float64, N)
	}
	if N == 0 {
		return Vector{V: &mat.VecDense{}}
	}
	return Vector{mat.NewVecDense(N, data)}
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }
func (v Vector) Len() int                 { return v.V.Len() }
func (v Vector) Data() []float64          { return v.V.RawVector().Data }

// Chainable (extended) methods
func (v Vector) Set(i int, val float64) Vector { v.V.SetVec(i, val); return v }
func (v Vector) Sub(a Vector) Vector           { floats.Sub(v.Data(), a.Data()); return v }

func (v Vector) Add(a float64) Vector {
	var (
		data = v.Data()
	)
	for i := range data {
		data[i] += a
	}
	return v
}

// AddScaled computes v += a*x
func (v Vector) AddScaled(a float64, x Vector) Vector {
	floats.AddScaled(v.Data(), a, x.Data())
	return v
}

func (v Vector) Scale(a float64) Vector {
	floats.Scale(a, v.Data())
	return v
}

func (v Vector) Fill(val float64) Vector {
	data := v.Data()
	for i := range data {
		data[i] = val
	}
	return v
}

func (v Vector) Zero() Vector { return v.Fill(0) }

func (v Vector) Copy() Vector {
	data := make([]float64, v.Len())
	copy(data, v.Data())
	return NewVector(len(data), data)
}

func (v Vector) Apply(f func(float64) float64) Vector {
	var (
		data = v.Data()
	)
	for i, val := range data {
		data[i] = f(val)
	}
	return v
}

func (v Vector) Dot(a Vector) float64 { return floats.Dot(v.Data(), a.Data()) }
func (v Vector) Norm() float64        { return floats.Norm(v.Data(), 2) }

// NormInf returns the largest absolute value
func (v Vector) NormInf() (max float64) {
	for _, val := range v.Data() {
		max = math.Max(max, math.Abs(val))
	}
	return
}

func (v Vector) Min() (min float64) { return floats.Min(v.Data()) }
func (v Vector) Max() (max float64) { return floats.Max(v.Data()) }
