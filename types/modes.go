package types

import "strings"

// SolutionMode tells an integrand which quantities to compute
type SolutionMode uint8

const (
	INIT SolutionMode = iota
	STATIC
	DYNAMIC
	VIBRATION
	RHS_ONLY
	RECOVERY
)

func (m SolutionMode) String() string {
	return [...]string{"INIT", "STATIC", "DYNAMIC", "VIBRATION", "RHS_ONLY", "RECOVERY"}[m]
}

// ProjectionMethod selects how secondary fields are recovered onto the
// spline basis
type ProjectionMethod uint8

const (
	PROJ_Global ProjectionMethod = iota // Greville point interpolation
	PROJ_SCR                            // superconvergent recovery
	PROJ_CGL2                           // continuous global L2
	PROJ_DGL2                           // discrete global L2
)

var ProjectionNameMap = map[string]ProjectionMethod{
	"global":   PROJ_Global,
	"greville": PROJ_Global,
	"scr":      PROJ_SCR,
	"cgl2":     PROJ_CGL2,
	"l2":       PROJ_CGL2,
	"dgl2":     PROJ_DGL2,
}

func NewProjectionMethod(name string) (pm ProjectionMethod, ok bool) {
	pm, ok = ProjectionNameMap[strings.ToLower(strings.TrimSpace(name))]
	return
}

func (pm ProjectionMethod) String() string {
	if pm > PROJ_DGL2 {
		return "Unknown"
	}
	return [...]string{"Global", "SCR", "CGL2", "DGL2"}[pm]
}

// ConvStatus is the state of a nonlinear iteration
type ConvStatus uint8

const (
	NotConverged ConvStatus = iota
	Converged
	Diverged
	Slow
)

func (cs ConvStatus) String() string {
	return [...]string{"NotConverged", "Converged", "Diverged", "Slow"}[cs]
}

// TimeDomain is the time level passed down to the integrands
type TimeDomain struct {
	T     float64 // current time
	Dt    float64 // time step
	It    int     // iteration counter within the step
	First bool    // first time step
}
