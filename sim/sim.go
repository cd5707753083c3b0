// Package sim administers a multi-patch model: DOF numbering, boundary
// conditions, global assembly and solution, field dependencies between
// simulators, and the time stepping loop.
package sim

import (
	"errors"
	"fmt"
	"os"

	"github.com/notargets/goiga/asm"
	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
)

var (
	ErrNotPreprocessed = errors.New("sim: model is not preprocessed")
	ErrUnknownPatch    = errors.New("sim: unknown patch")
	ErrTimeStep        = errors.New("sim: invalid time stepping parameters")
	ErrConstraint      = errors.New("sim: invalid constraint")
	ErrElementIndex    = errors.New("sim: element index out of range")
	ErrElementType     = errors.New("sim: element does not provide matrices")
	ErrNoSystem        = errors.New("sim: equation system not initialized")
	ErrSizeMismatch    = errors.New("sim: mismatching vector length")
)

// DirichletFunc gives the prescribed value of a constrained component at a
// node position and time
type DirichletFunc func(X []float64, t float64) float64

// Dirichlet constrains the components listed as digits in Dofs on boundary
// LIndex (±1..±npd) of a patch, or at relative position Xi when set. Code 0
// is homogeneous, other codes look up a DirichletFunc.
type Dirichlet struct {
	Patch  int // 1-based
	LIndex int
	Xi     []float64
	Dofs   int
	Code   int
	Basis  int // 0 for the default basis
}

// Neumann names a boundary integrated with the problem's boundary terms
type Neumann struct {
	Patch  int // 1-based
	LIndex int
}

// SIM is a model of spline patches with one integrand
type SIM struct {
	SIMdependency
	Patches []asm.Patch
	Problem integrand.Integrand
	Verbose bool

	dirichlet    []Dirichlet
	dirFuncs     map[int]DirichletFunc
	neumann      []Neumann
	sam          *SAM
	eqs          *AlgEqSystem
	nSol         int
	config       []float64
	preprocessed bool
}

func NewSIM(problem integrand.Integrand, patches ...asm.Patch) (s *SIM) {
	s = &SIM{
		Patches:  patches,
		Problem:  problem,
		dirFuncs: make(map[int]DirichletFunc),
		nSol:     1,
	}
	return
}

func (s *SIM) AddDirichlet(bc Dirichlet) { s.dirichlet = append(s.dirichlet, bc); s.preprocessed = false }

func (s *SIM) SetDirichletFunc(code int, f DirichletFunc) { s.dirFuncs[code] = f }

func (s *SIM) AddNeumann(bc Neumann) { s.neumann = append(s.neumann, bc) }

func (s *SIM) checkPatch(patch int) error {
	if patch < 1 || patch > len(s.Patches) {
		return fmt.Errorf("patch %d of %d: %w", patch, len(s.Patches), ErrUnknownPatch)
	}
	return nil
}

// Preprocess generates the FE topology of all patches, numbers nodes and
// elements consecutively over the patches, applies the Dirichlet conditions
// and builds the equation numbering
func (s *SIM) Preprocess() (err error) {
	if len(s.Patches) == 0 {
		return fmt.Errorf("empty model: %w", ErrUnknownPatch)
	}
	var nodeOfs, elmOfs int
	for ip, p := range s.Patches {
		if err = p.GenerateFEMTopology(); err != nil {
			return fmt.Errorf("patch %d: %w", ip+1, err)
		}
		p.SetGlobalNodeOffset(nodeOfs)
		p.SetElementOffset(elmOfs)
		nodeOfs += p.NumNodes(0)
		elmOfs += p.NumElements()
	}
	for _, bc := range s.dirichlet {
		if err = s.checkPatch(bc.Patch); err != nil {
			return
		}
		var (
			p     = s.Patches[bc.Patch-1]
			basis []int
			n     int
		)
		if bc.Basis > 0 {
			basis = []int{bc.Basis}
		}
		if bc.Xi != nil {
			n = p.ConstrainNode(bc.Xi, bc.Dofs, bc.Code, basis...)
		} else {
			n = p.ConstrainEdge(bc.LIndex, bc.Dofs, bc.Code, basis...)
		}
		if n == 0 {
			fmt.Fprintf(os.Stderr, "  ** sim.Preprocess: no nodes constrained on patch %d boundary %d\n",
				bc.Patch, bc.LIndex)
		}
	}
	for _, bc := range s.neumann {
		if err = s.checkPatch(bc.Patch); err != nil {
			return
		}
	}
	if s.sam, err = NewSAM(s.Patches); err != nil {
		return
	}
	s.eqs = nil
	s.config = make([]float64, s.sam.NumDOFs())
	s.preprocessed = true
	if s.Verbose {
		fmt.Printf("Model: %d patches, %d elements, %d nodes, %d dofs, %d equations\n",
			len(s.Patches), elmOfs, s.sam.NumNodes, s.sam.NumDOFs(), s.sam.NEQ)
	}
	return
}

func (s *SIM) SAM() *SAM { return s.sam }

func (s *SIM) NumDOFs() int {
	if s.sam == nil {
		return 0
	}
	return s.sam.NumDOFs()
}

func (s *SIM) NumSolutions() int { return s.nSol }

// SetNumSolutions sets the length of the solution history the integrand
// receives
func (s *SIM) SetNumSolutions(n int) { s.nSol = max(n, 1) }

func (s *SIM) SetIntegrationPrm(i int, prm float64) { s.Problem.SetIntegrationPrm(i, prm) }

// InitSystem allocates the global system with nMats matrices and nVecs
// right-hand sides
func (s *SIM) InitSystem(nMats, nVecs int) (err error) {
	if !s.preprocessed {
		return ErrNotPreprocessed
	}
	s.eqs = NewAlgEqSystem(s.sam, nMats, nVecs)
	return
}

// EquationSystem returns the global system, nil before InitSystem
func (s *SIM) EquationSystem() *AlgEqSystem { return s.eqs }

// AssembleSystem integrates all patches and their Neumann boundaries into
// the global system. sols is the solution history in DOF form, sols[0]
// being the current solution that the prescribed values are relative to.
func (s *SIM) AssembleSystem(time types.TimeDomain, sols [][]float64, newLHS bool) (err error) {
	if s.eqs == nil {
		if !s.preprocessed {
			return ErrNotPreprocessed
		}
		return ErrNoSystem
	}
	var current []float64
	if len(sols) > 0 {
		current = sols[0]
	}
	s.eqs.SetPrescribed(s.prescribedValues(time.T, current))
	s.eqs.Initialize(newLHS)
	for ip, p := range s.Patches {
		if err = s.setPatchSolutions(sols, ip); err != nil {
			return
		}
		if err = s.ExtractPatchDependencies(s.Problem, s.Patches, ip); err != nil {
			return
		}
		if err = p.Integrate(s.Problem, s.eqs, time); err != nil {
			return fmt.Errorf("patch %d: %w", ip+1, err)
		}
		for _, bc := range s.neumann {
			if bc.Patch != ip+1 || !s.Problem.HasBoundaryTerms() {
				continue
			}
			if err = p.IntegrateBoundary(s.Problem, bc.LIndex, s.eqs, time); err != nil {
				return fmt.Errorf("patch %d boundary %d: %w", ip+1, bc.LIndex, err)
			}
		}
	}
	return s.eqs.Finalize(newLHS)
}

// setPatchSolutions hands the patch-local part of every solution vector to
// the integrand
func (s *SIM) setPatchSolutions(sols [][]float64, ip int) (err error) {
	var (
		p     = s.Patches[ip]
		local []float64
	)
	s.Problem.ResizeSolutions(len(sols), p.NumDOFs())
	for k, sol := range sols {
		if local, err = s.ExtractPatchSolution(sol, ip+1); err != nil {
			return
		}
		s.Problem.SetSolution(k, local)
	}
	return
}

// prescribedValues evaluates the Dirichlet functions at the constrained
// nodes, relative to the current solution. It is nil when all are zero.
func (s *SIM) prescribedValues(t float64, current []float64) (presc []float64) {
	nonZero := false
	presc = make([]float64, s.sam.NumDOFs())
	for _, p := range s.Patches {
		mlgn := p.MLGN()
		for _, c := range p.Constraints() {
			dof := s.sam.MADOF[mlgn[c.Node]] + c.Dof - 1
			if f, ok := s.dirFuncs[c.Code]; ok && c.Code != 0 {
				presc[dof] = f(p.GetCoord(c.Node), t)
			}
			if current != nil {
				presc[dof] -= current[dof]
			}
			if presc[dof] != 0 {
				nonZero = true
			}
		}
	}
	if !nonZero {
		return nil
	}
	return
}

// SolveSystem solves the assembled system. Constrained DOFs of the result
// hold their prescribed value relative to the solution given to
// AssembleSystem.
func (s *SIM) SolveSystem() (sol []float64, err error) {
	if s.eqs == nil {
		return nil, ErrNoSystem
	}
	if sol, err = s.eqs.Solve(); err != nil {
		fmt.Fprintf(os.Stderr, " *** sim.SolveSystem: %v\n", err)
		err = fmt.Errorf("%w: %w", asm.ErrSingularSystem, err)
	}
	return
}

// SolveLinearStatic assembles and solves the static problem at time t
func (s *SIM) SolveLinearStatic(t float64) (sol []float64, err error) {
	if !s.preprocessed {
		return nil, ErrNotPreprocessed
	}
	if s.eqs == nil || len(s.eqs.A) == 0 || len(s.eqs.B) == 0 {
		if err = s.InitSystem(1, 1); err != nil {
			return
		}
	}
	s.Problem.SetMode(types.STATIC)
	if err = s.AssembleSystem(types.TimeDomain{T: t}, nil, true); err != nil {
		return
	}
	if sol, err = s.SolveSystem(); err != nil {
		return
	}
	return sol, s.UpdateConfiguration(sol)
}

// Project recovers the secondary solution of sol on every patch
func (s *SIM) Project(sol []float64, method types.ProjectionMethod) (fields []spline.Basis, err error) {
	if !s.preprocessed {
		return nil, ErrNotPreprocessed
	}
	mode := s.Problem.GetMode()
	s.Problem.SetMode(types.RECOVERY)
	defer s.Problem.SetMode(mode)
	fields = make([]spline.Basis, len(s.Patches))
	for ip, p := range s.Patches {
		if err = s.setPatchSolutions([][]float64{sol}, ip); err != nil {
			return
		}
		if err = s.ExtractPatchDependencies(s.Problem, s.Patches, ip); err != nil {
			return
		}
		if fields[ip], err = p.Project(s.Problem, method); err != nil {
			return nil, fmt.Errorf("patch %d: %w", ip+1, err)
		}
	}
	return
}

func (s *SIM) AddToRHSVector(i int, vec []float64, scale float64) error {
	if s.eqs == nil {
		return ErrNoSystem
	}
	return s.eqs.AddToRHS(i, vec, scale)
}

func (s *SIM) GetRHSVector(i int) ([]float64, error) {
	if s.eqs == nil {
		return nil, ErrNoSystem
	}
	return s.eqs.RHS(i)
}

// UpdateConfiguration records sol as the current configuration of the model
func (s *SIM) UpdateConfiguration(sol []float64) (err error) {
	if len(sol) != len(s.config) {
		return fmt.Errorf("solution of length %d for %d DOFs: %w", len(sol), len(s.config), ErrSizeMismatch)
	}
	copy(s.config, sol)
	return
}

// Configuration is the last solution passed to UpdateConfiguration
func (s *SIM) Configuration() []float64 { return s.config }

// ExtractPatchSolution returns the patch-local DOFs of patch (1-based)
func (s *SIM) ExtractPatchSolution(sol []float64, patch int) (local []float64, err error) {
	if !s.preprocessed {
		return nil, ErrNotPreprocessed
	}
	if err = s.checkPatch(patch); err != nil {
		return
	}
	first, last := s.sam.PatchDOFs(patch - 1)
	if len(sol) < last {
		err = fmt.Errorf("vector of length %d for %d DOFs: %w", len(sol), s.sam.NumDOFs(), ErrSizeMismatch)
		return
	}
	local = append([]float64{}, sol[first:last]...)
	return
}

// InjectPatchSolution is the inverse of ExtractPatchSolution
func (s *SIM) InjectPatchSolution(sol, local []float64, patch int) (err error) {
	if !s.preprocessed {
		return ErrNotPreprocessed
	}
	if err = s.checkPatch(patch); err != nil {
		return
	}
	first, last := s.sam.PatchDOFs(patch - 1)
	if len(sol) < last || len(local) != last-first {
		return fmt.Errorf("%d local values for patch DOFs [%d,%d): %w", len(local), first, last, ErrSizeMismatch)
	}
	copy(sol[first:last], local)
	return
}
