package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix(t *testing.T) {
	// Transpose
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		mNr, mNc := M.Dims()
		A := M.Transpose()
		aNr, aNc := A.Dims()
		assert.Equal(t, aNc, mNr)
		assert.Equal(t, aNr, mNc)
		assert.Equal(t, A.RawMatrix().Data, []float64{1, 4, 2, 5, 3, 6})
	}
	// MulVec
	{
		M := NewMatrix(2, 3, []float64{
			1, 2, 3,
			4, 5, 6,
		})
		assert.Equal(t, []float64{6, 15}, M.MulVec([]float64{1, 1, 1}, false))
		assert.Equal(t, []float64{5, 7, 9}, M.MulVec([]float64{1, 1}, true))
		assert.Equal(t, []float64{4, 5, 6}, M.Row(1))
		assert.Equal(t, []float64{2, 5}, M.Col(1))
	}
	// AddScaled and Scale are in place
	{
		M := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		M.AddScaled(2, NewMatrix(2, 2, []float64{1, 1, 1, 1})).Scale(0.5)
		assert.Equal(t, []float64{1.5, 2, 2.5, 3}, M.Data())
	}
	// Inverse and Solve
	{
		M := NewMatrix(3, 3, []float64{
			4, 1, 0,
			1, 4, 1,
			0, 1, 4,
		})
		Mi, err := M.Inverse()
		require.NoError(t, err)
		I := M.Mul(Mi)
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				exp := 0.
				if i == j {
					exp = 1
				}
				assert.InDelta(t, exp, I.At(i, j), 1.e-14)
			}
		}
		X, err := M.Solve(NewMatrix(3, 1, []float64{5, 6, 5}))
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 1, 1}, X.Data(), 1.e-14)
		assert.InDelta(t, 56., M.Det(), 1.e-12)
	}
	// Singular systems are reported
	{
		M := NewMatrix(2, 2, []float64{1, 2, 2, 4})
		_, err := M.Solve(NewMatrix(2, 1, []float64{1, 1}))
		assert.ErrorIs(t, err, ErrSingular)
		_, err = M.Inverse()
		assert.ErrorIs(t, err, ErrSingular)
	}
	// Read only protection
	{
		M := NewMatrix(1, 1)
		M.SetReadOnly("M")
		assert.Panics(t, func() { M.Set(0, 0, 1) })
	}
}

func TestMatrix3D(t *testing.T) {
	M := NewMatrix3D(2, 3, 3)
	M.Set(1, 2, 0, 3.5)
	M.AddAt(1, 2, 0, 1)
	assert.Equal(t, 4.5, M.At(1, 2, 0))
	assert.Equal(t, 18, len(M.Data()))
	M.Resize(1, 2, 2)
	assert.Equal(t, 4, len(M.Data()))
	M.Zero()
	assert.Equal(t, 0., M.At(0, 1, 1))
}

func TestSparseMatrix(t *testing.T) {
	A := NewSparseMatrix(3, 3)
	A.Add(0, 0, 2)
	A.Add(0, 0, 2)
	A.Add(1, 1, 4)
	A.Add(2, 2, 4)
	A.Add(0, 1, 1)
	A.Add(1, 0, 1)
	assert.Equal(t, 4., A.At(0, 0))
	assert.Equal(t, 5, A.NNZ())
	assert.Equal(t, []float64{5, 5, 4}, A.MulVec([]float64{1, 1, 1}))

	x, err := A.SolveVec([]float64{5, 5, 4})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 1}, x, 1.e-14)

	A.Zero()
	assert.Equal(t, 0, A.NNZ())
	_, err = A.SolveVec([]float64{1, 1, 1})
	assert.ErrorIs(t, err, ErrSingular)
}

func TestSparseSolve(t *testing.T) {
	{ // a renumbered 1D Laplacian is tridiagonal in the band numbering
		n := 20
		A := NewSparseMatrix(n, n)
		p := func(i int) int { return (7 * i) % n }
		for i := 0; i < n; i++ {
			A.Add(p(i), p(i), 2)
			if i+1 < n {
				A.Add(p(i), p(i+1), -1)
				A.Add(p(i+1), p(i), -1)
			}
		}
		bs := newBandSystem(A.ToCSR(), reverseCuthillMcKee(A.ToCSR()))
		kl, ku := bs.Bandwidth()
		assert.Equal(t, 1, kl)
		assert.Equal(t, 1, ku)
		assert.True(t, bs.symmetric)

		xe := make([]float64, n)
		for i := range xe {
			xe[i] = float64(i%5) - 1.5
		}
		x, err := A.SolveVec(A.MulVec(xe))
		require.NoError(t, err)
		assert.InDeltaSlice(t, xe, x, 1e-12)
	}
	{ // symmetric indefinite, as a saddle point system
		A := NewSparseMatrix(3, 3)
		A.Set(0, 0, 2)
		A.Set(1, 1, 2)
		for i := 0; i < 2; i++ {
			A.Set(i, 2, 1)
			A.Set(2, i, 1)
		}
		x, err := A.SolveVec([]float64{5, 7, 3})
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 2, 3}, x, 1e-14)
	}
	{ // nonsymmetric with small diagonal, two right-hand sides
		n := 15
		A := NewSparseMatrix(n, n)
		for i := 0; i < n; i++ {
			A.Add(i, i, 1)
			A.Add(i, (i+3)%n, 5)
			A.Add(i, (i+7)%n, 0.5)
		}
		B := NewMatrix(n, 2)
		for i := 0; i < n; i++ {
			B.Set(i, 0, float64(i)).Set(i, 1, 1)
		}
		X, err := A.Solve(B)
		require.NoError(t, err)
		Xd, err := Matrix{M: A.ToCSR().ToDense()}.Solve(B)
		require.NoError(t, err)
		assert.InDeltaSlice(t, Xd.Data(), X.Data(), 1e-12)
	}
	{ // structurally singular
		A := NewSparseMatrix(3, 3)
		A.Set(0, 0, 1)
		A.Set(1, 2, 1)
		A.Set(2, 1, 2)
		A.Set(1, 1, 1)
		A.Set(2, 2, 2)
		_, err := A.SolveVec([]float64{1, 1, 1})
		assert.ErrorIs(t, err, ErrSingular)
		_, err = A.Solve(NewMatrix(2, 1))
		assert.ErrorIs(t, err, ErrDimMismatch)
	}
}
