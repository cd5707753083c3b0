package integrand

import (
	"testing"

	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constField struct{ val []float64 }

func (cf constField) NumComponents() int                     { return len(cf.val) }
func (cf constField) ValueAt(u []float64) ([]float64, error) { return cf.val, nil }

func TestElementVectors(t *testing.T) {
	{ // Two values per node
		global := []float64{0, 1, 10, 11, 20, 21, 30, 31}
		ev, err := ExtractElementVector(global, []int{3, 1}, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{30, 31, 10, 11}, ev.Data())
		_, err = ExtractElementVector(global, []int{4}, 2)
		assert.ErrorIs(t, err, ErrElementSize)
	}
	{ // Mixed: three basis 1 nodes with two values, two basis 2 nodes with one
		global := []float64{0, 1, 10, 11, 20, 21, 100, 200}
		ev, err := ExtractMixedElementVector(global, []int{2, 0}, []int{4, 3}, 3, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{20, 21, 0, 1, 200, 100}, ev.Data())
		_, err = ExtractMixedElementVector(global, []int{0}, []int{1}, 3, 2, 1)
		assert.ErrorIs(t, err, ErrElementSize)
	}
	{ // Base initialization fills the element vectors of an ElmMats
		ib := NewIntegrandBase(1)
		ib.SetSolution(0, []float64{5, 6, 7})
		ib.SetSolution(1, []float64{8, 9, 10})
		em := NewElmMats(1, 1, 2)
		require.NoError(t, ib.InitElement([]int{2, 0}, nil, nil, 0, em))
		require.Len(t, em.Vec, 2)
		assert.Equal(t, []float64{7, 5}, em.Vec[0].Data())
		assert.Equal(t, []float64{10, 8}, em.Vec[1].Data())
		ib.Npv2 = 1
		require.NoError(t, ib.InitElementMx([]int{1}, []int{2}, 2, nil, nil, 0, em))
		assert.Equal(t, []float64{6, 7}, em.Vec[0].Data())
	}
}

func TestIntegrandBase(t *testing.T) {
	ib := NewIntegrandBase(2)
	assert.Equal(t, types.INIT, ib.GetMode())
	ib.SetMode(types.DYNAMIC)
	assert.Equal(t, types.DYNAMIC, ib.GetMode())
	ib.SetIntegrationPrm(2, 0.5)
	ib.SetIntegrationPrm(7, 1)
	assert.Equal(t, 0.5, ib.GetIntegrationPrm(2))
	assert.Equal(t, 0., ib.GetIntegrationPrm(7))
	ib.ResizeSolutions(3, 4)
	require.Len(t, ib.Solutions(), 3)
	assert.Equal(t, 4, ib.Solutions()[2].Len())

	v := ib.NamedVector("temperature")
	*v = append(*v, 1, 2)
	assert.Equal(t, []float64{1, 2}, *ib.NamedVector("temperature"))
	_, err := ib.NamedField("pressure")
	assert.ErrorIs(t, err, ErrUnknownField)
	ib.SetNamedField("pressure", constField{[]float64{3}})
	f, err := ib.NamedField("pressure")
	require.NoError(t, err)
	val, err := f.ValueAt(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, val)
}

func TestElmMatsAndGlobalSum(t *testing.T) {
	em := NewElmMats(2, 1, 3)
	em.A[0].Set(1, 1, 4)
	em.B[0].Set(2, 5)
	A, err := em.NewtonMatrix()
	require.NoError(t, err)
	assert.Equal(t, 4., A.At(1, 1))
	b, err := em.RHSVector()
	require.NoError(t, err)
	assert.Equal(t, 5., b.AtVec(2))
	em.Clear()
	assert.Equal(t, 0., em.A[0].At(1, 1))
	em.RHSOnly = true
	_, err = em.NewtonMatrix()
	assert.ErrorIs(t, err, ErrElementSize)

	gs := NewGlobalSum(2, true)
	gs.Initialize(true)
	for iel := 0; iel < 3; iel++ {
		en := NewElmNorm(2)
		en.Vals[0], en.Vals[1] = 1, float64(iel)
		require.NoError(t, gs.Assemble(en, iel))
	}
	assert.Equal(t, []float64{3, 3}, gs.Sum)
	assert.Equal(t, []float64{1, 2}, gs.Element[2])
	assert.ErrorIs(t, gs.Assemble(em, 0), ErrElementSize)
	assert.ErrorIs(t, gs.Assemble(NewElmNorm(3), 0), ErrElementSize)

	fe := &FiniteElement{N: []float64{1}, DNdX: utils.NewMatrix(1, 2)}
	N, _ := fe.Basis(2)
	assert.Equal(t, []float64{1}, N)
	fe.Mx = []BasisValues{{N: []float64{2}}, {N: []float64{3}}}
	N, _ = fe.Basis(2)
	assert.Equal(t, []float64{3}, N)
}
