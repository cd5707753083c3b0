// Package integrand defines the contract between the assembly loops and a
// concrete finite element problem: per element initialization, evaluation
// at integration points, and the local and global accumulators.
package integrand

import (
	"errors"

	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

var (
	ErrNoSolution   = errors.New("integrand: primary solution not available")
	ErrElementSize  = errors.New("integrand: inconsistent element size")
	ErrUnknownField = errors.New("integrand: unknown named field")
)

// IntegrandType flags tell the assembly loops which basis quantities an
// integrand needs at each point
type IntegrandType uint16

const (
	Standard          IntegrandType = 0
	SecondDerivatives IntegrandType = 1 << iota
	NoDerivatives
	ElementCorners
)

// BasisValues holds the basis function values and Cartesian gradients of
// one basis of a mixed element
type BasisValues struct {
	N    []float64
	DNdX utils.Matrix // nen x nsd
}

// FiniteElement carries the evaluated basis at one integration point
type FiniteElement struct {
	Iel    int       // element index within the patch
	IGP    int       // integration point index within the patch
	U      []float64 // parameter values
	Xi     []float64 // local coordinates in [-1,1]
	N      []float64
	DNdX   utils.Matrix   // nen x nsd
	D2NdX2 utils.Matrix3D // nen x nsd x nsd
	DetJxW float64
	Mx     []BasisValues // one entry per basis of a mixed element, nil otherwise
}

// Basis returns the values of basis b (1-based) of a mixed element, or the
// element basis itself when the element is not mixed
func (fe *FiniteElement) Basis(b int) (N []float64, DNdX utils.Matrix) {
	if len(fe.Mx) == 0 {
		return fe.N, fe.DNdX
	}
	return fe.Mx[b-1].N, fe.Mx[b-1].DNdX
}

// LocalIntegral is an element level accumulator, created for one element and
// consumed by a GlobalIntegral right after the element is done
type LocalIntegral interface {
	Clear()
}

// ElementMatrices is a LocalIntegral able to present its contribution as one
// tangent matrix and one right-hand-side vector
type ElementMatrices interface {
	LocalIntegral
	NewtonMatrix() (utils.Matrix, error)
	RHSVector() (utils.Vector, error)
	Matrices() []utils.Matrix
	Vectors() []utils.Vector
}

// GlobalIntegral receives the element contributions
type GlobalIntegral interface {
	Initialize(newLHS bool)
	Assemble(elm LocalIntegral, iel int) error
	Finalize(newLHS bool) error
}

// Field is a scalar or vector field that can be evaluated at a parameter
// point, e.g. a result field registered by another simulator
type Field interface {
	NumComponents() int
	ValueAt(u []float64) ([]float64, error)
}

// Integrand is implemented by every finite element problem. Evaluate may be
// called concurrently for different elements; element state belongs in the
// LocalIntegral.
type Integrand interface {
	// GetLocalIntegral returns a fresh accumulator for an element with nen[b]
	// nodes on basis b
	GetLocalIntegral(nen []int, iel int, neumann bool) LocalIntegral
	InitIntegration(time types.TimeDomain)
	InitResultPoints(t float64)
	InitElement(MNPC []int, fe *FiniteElement, X0 []float64, nPt int, elm LocalIntegral) error
	// InitElementMx initializes a mixed element; MNPC1 holds the basis 1
	// nodes, MNPC2 the basis 2 nodes and n1 is the number of basis 1 nodes of
	// the patch, which offsets the basis 2 node numbers
	InitElementMx(MNPC1, MNPC2 []int, n1 int, fe *FiniteElement, X0 []float64, nPt int, elm LocalIntegral) error
	// InitElementBou initializes a boundary element; mixed elements only pass
	// their basis 1 nodes
	InitElementBou(MNPC []int, elm LocalIntegral) error
	Evaluate(elm LocalIntegral, fe *FiniteElement, time types.TimeDomain, X []float64) error
	EvaluateBou(elm LocalIntegral, fe *FiniteElement, time types.TimeDomain, X, normal []float64) error
	FinalizeElement(elm LocalIntegral, time types.TimeDomain) error
	// EvalSol returns the secondary solution at a point. Mixed elements pass
	// their basis 1 nodes.
	EvalSol(fe *FiniteElement, X []float64, MNPC []int) ([]float64, error)
	HasBoundaryTerms() bool
	// NumFields is the number of primary (which=1) or secondary (which=2)
	// solution components
	NumFields(which int) int
	FieldName(which, i int) string
	DerivativeOrder() int
	Type() IntegrandType
	MixedFormulation() bool

	SetMode(mode types.SolutionMode)
	GetMode() types.SolutionMode
	SetIntegrationPrm(i int, prm float64)
	GetIntegrationPrm(i int) float64
	ResizeSolutions(nSol, nDOF int)
	SetSolution(k int, sol []float64)
	Solutions() []utils.Vector
	NamedVector(name string) *[]float64
	SetNamedField(name string, f Field)
	NamedField(name string) (Field, error)
}
