package types

import "strings"

type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_Dirichlet
	BC_Neumann
	BC_Symmetry
	BC_Clamped
	BC_Traction
)

var BCNameMap = map[string]BCFLAG{
	"dirichlet": BC_Dirichlet,
	"fixed":     BC_Dirichlet,
	"neumann":   BC_Neumann,
	"neuman":    BC_Neumann,
	"flux":      BC_Neumann,
	"symmetry":  BC_Symmetry,
	"sym":       BC_Symmetry,
	"clamped":   BC_Clamped,
	"traction":  BC_Traction,
}

func (bc BCFLAG) String() string {
	switch bc {
	case BC_Dirichlet:
		return "Dirichlet"
	case BC_Neumann:
		return "Neumann"
	case BC_Symmetry:
		return "Symmetry"
	case BC_Clamped:
		return "Clamped"
	case BC_Traction:
		return "Traction"
	}
	return "None"
}

// IsEssential reports whether the condition constrains degrees of freedom
func (bc BCFLAG) IsEssential() bool {
	return bc == BC_Dirichlet || bc == BC_Symmetry || bc == BC_Clamped
}

// BCTAG is a boundary label of the form "<type>-<label>", e.g. "Dirichlet-left"
type BCTAG string

func NewBCTAG(label string) (bt BCTAG) {
	bt = BCTAG(strings.Trim(strings.ToLower(label), " \t\"'"))
	return
}

func (bt BCTAG) GetFLAG() (bf BCFLAG) {
	name := string(bt)
	if ind := strings.Index(name, "-"); ind > 0 {
		name = name[:ind]
	}
	bf = BCNameMap[name]
	return
}

func (bt BCTAG) GetLabel() (label string) {
	name := string(bt)
	if ind := strings.Index(name, "-"); ind > 0 {
		label = name[ind+1:]
	}
	return
}
