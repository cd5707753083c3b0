package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypes(t *testing.T) {
	{
		tokens := []string{"DIRICHLET", "Dirichlet-left", "neumann-2", "Fixed-22", "sym-top", "Neuman-10", "foo-1"}
		flags := []BCFLAG{BC_Dirichlet, BC_Dirichlet, BC_Neumann, BC_Dirichlet, BC_Symmetry, BC_Neumann, BC_None}
		labels := []string{"", "left", "2", "22", "top", "10", "1"}
		for i, token := range tokens {
			bt := NewBCTAG(token)
			assert.Equal(t, flags[i], bt.GetFLAG(), token)
			assert.Equal(t, labels[i], bt.GetLabel(), token)
		}
		assert.True(t, BC_Clamped.IsEssential())
		assert.False(t, BC_Traction.IsEssential())
		assert.Equal(t, "Neumann", BC_Neumann.String())
	}
	{
		pm, ok := NewProjectionMethod(" SCR ")
		assert.True(t, ok)
		assert.Equal(t, PROJ_SCR, pm)
		assert.Equal(t, "SCR", pm.String())
		_, ok = NewProjectionMethod("nodal")
		assert.False(t, ok)
		assert.Equal(t, "DYNAMIC", DYNAMIC.String())
		assert.Equal(t, "Diverged", Diverged.String())
	}
}
