package asm

import (
	"testing"

	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBasis(t *testing.T) {
	var (
		s    = spline.NewLinearPatch([]float64{0}, []float64{2})
		bd   spline.BasisDerivs
		dNdu utils.Matrix
		d2   utils.Matrix3D
	)
	require.NoError(t, s.ComputeBasis([]float64{0.25}, 0, 2, &bd))
	N := ExtractBasis(&bd, nil, &dNdu, &d2)
	assert.InDeltaSlice(t, []float64{0.75, 0.25}, N, 1e-15)
	nr, nc := dNdu.Dims()
	assert.Equal(t, 2, nr)
	assert.Equal(t, 1, nc)
	assert.InDeltaSlice(t, []float64{-1, 1}, dNdu.Data(), 1e-15)
	assert.Equal(t, 2, d2.N1)
	assert.InDeltaSlice(t, []float64{0, 0}, d2.Data(), 1e-15)
	// buffers are reused
	N2 := ExtractBasis(&bd, N, nil, nil)
	assert.Equal(t, &N[0], &N2[0])
}

func TestJacobian(t *testing.T) {
	var J, Ji, dNdX utils.Matrix
	{ // 1D
		Xnod := utils.NewMatrix(1, 2, []float64{0, 2})
		dNdu := utils.NewMatrix(2, 1, []float64{-1, 1})
		detJ := Jacobian(&J, &Ji, &dNdX, Xnod, dNdu)
		assert.InDelta(t, 2., detJ, 1e-15)
		assert.InDeltaSlice(t, []float64{-0.5, 0.5}, dNdX.Data(), 1e-15)
		normal := make([]float64, 1)
		assert.InDelta(t, 1., BoundaryNormal(normal, Ji, detJ, -1), 1e-15)
		assert.Equal(t, []float64{-1}, normal)
		assert.InDelta(t, 1., BoundaryNormal(normal, Ji, detJ, 1), 1e-15)
		assert.Equal(t, []float64{1}, normal)
	}
	{ // bilinear rectangle at its center
		Xnod := utils.NewMatrix(2, 4, []float64{
			0, 2, 0, 2,
			0, 0, 3, 3,
		})
		dNdu := utils.NewMatrix(4, 2, []float64{
			-0.5, -0.5,
			0.5, -0.5,
			-0.5, 0.5,
			0.5, 0.5,
		})
		detJ := Jacobian(&J, &Ji, &dNdX, Xnod, dNdu)
		assert.InDelta(t, 6., detJ, 1e-14)
		assert.InDeltaSlice(t, []float64{0.5, 0, 0, 1. / 3}, Ji.Data(), 1e-15)
		assert.InDeltaSlice(t, []float64{-0.25, -1. / 6}, dNdX.Row(0), 1e-15)
		normal := make([]float64, 2)
		assert.InDelta(t, 2., BoundaryNormal(normal, Ji, detJ, 2), 1e-14)
		assert.InDeltaSlice(t, []float64{0, 1}, normal, 1e-15)
		assert.InDelta(t, 3., BoundaryNormal(normal, Ji, detJ, -1), 1e-14)
		assert.InDeltaSlice(t, []float64{-1, 0}, normal, 1e-15)

		// collapsed onto the x axis
		flat := utils.NewMatrix(2, 4, []float64{
			0, 2, 0, 2,
			0, 0, 0, 0,
		})
		assert.Equal(t, 0., Jacobian(&J, &Ji, &dNdX, flat, dNdu))
	}
	{ // line in the plane
		Xnod := utils.NewMatrix(2, 2, []float64{
			0, 3,
			0, 4,
		})
		dNdu := utils.NewMatrix(2, 1, []float64{-1, 1})
		detJ := Jacobian(&J, &Ji, &dNdX, Xnod, dNdu)
		assert.InDelta(t, 5., detJ, 1e-14)
		assert.InDeltaSlice(t, []float64{3. / 25, 4. / 25}, Ji.Data(), 1e-15)
		assert.InDeltaSlice(t, []float64{-3. / 25, -4. / 25, 3. / 25, 4. / 25}, dNdX.Data(), 1e-15)
	}
}

func TestHessian(t *testing.T) {
	var (
		J, Ji, dNdX utils.Matrix
		H, d2NdX2   utils.Matrix3D
	)
	// quadratic Bezier with x = u^2, evaluated at u = 1/2
	Xnod := utils.NewMatrix(1, 3, []float64{0, 0, 1})
	dNdu := utils.NewMatrix(3, 1, []float64{-1, 0, 1})
	d2Ndu2 := utils.NewMatrix3D(3, 1, 1)
	for a, v := range []float64{2, -4, 2} {
		d2Ndu2.Set(a, 0, 0, v)
	}
	require.InDelta(t, 1., Jacobian(&J, &Ji, &dNdX, Xnod, dNdu), 1e-15)
	Hessian(&H, &d2NdX2, Ji, Xnod, d2Ndu2, dNdX)
	assert.InDelta(t, 2., H.At(0, 0, 0), 1e-15)
	assert.InDeltaSlice(t, []float64{4, -4, 0}, d2NdX2.Data(), 1e-14)

	// an affine map has no geometry Hessian
	Xnod = utils.NewMatrix(1, 3, []float64{0, 1, 2})
	require.InDelta(t, 2., Jacobian(&J, &Ji, &dNdX, Xnod, dNdu), 1e-15)
	Hessian(&H, &d2NdX2, Ji, Xnod, d2Ndu2, dNdX)
	assert.InDelta(t, 0., H.At(0, 0, 0), 1e-15)
	assert.InDeltaSlice(t, []float64{0.5, -1, 0.5}, d2NdX2.Data(), 1e-15)
}
