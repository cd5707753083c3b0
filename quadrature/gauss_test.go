package quadrature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussLegendre(t *testing.T) {
	{ // Known two and three point rules
		x, w, err := Rule(2)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{-1 / math.Sqrt(3), 1 / math.Sqrt(3)}, x, 1.e-14)
		assert.InDeltaSlice(t, []float64{1, 1}, w, 1.e-14)
		x, w, err = Rule(3)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{-math.Sqrt(0.6), 0, math.Sqrt(0.6)}, x, 1.e-14)
		assert.InDeltaSlice(t, []float64{5. / 9, 8. / 9, 5. / 9}, w, 1.e-14)
	}
	{ // n points integrate polynomials up to degree 2n-1 exactly
		for n := 1; n <= 10; n++ {
			x, w := GetCoord(n), GetWeight(n)
			require.Equal(t, n, len(x))
			for deg := 0; deg <= 2*n-1; deg++ {
				var sum float64
				for i := range x {
					sum += w[i] * math.Pow(x[i], float64(deg))
				}
				exact := 0.
				if deg%2 == 0 {
					exact = 2. / float64(deg+1)
				}
				assert.InDelta(t, exact, sum, 1.e-13, "n = %d, degree = %d", n, deg)
			}
			for i := 1; i < n; i++ {
				assert.Less(t, x[i-1], x[i])
			}
		}
	}
	{ // Invalid sizes
		assert.Nil(t, GetCoord(0))
		_, _, err := Rule(-1)
		assert.Error(t, err)
	}
}

func TestExpandTensorGrid(t *testing.T) {
	out := ExpandTensorGrid([][]float64{{0, 1}, {2, 3}, {7, 9}})
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 1, 0, 1}, out[0])
	assert.Equal(t, []float64{2, 2, 3, 3, 2, 2, 3, 3}, out[1])
	assert.Equal(t, []float64{7, 7, 7, 7, 9, 9, 9, 9}, out[2])
}
