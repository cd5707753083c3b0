package newmark

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/notargets/goiga/sim"
	"github.com/notargets/goiga/types"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrHistoryTooShort = errors.New("newmark: solution history needs displacement, velocity and acceleration")
	ErrDiverged        = errors.New("newmark: iterations diverged")
)

// Model is the discrete system advanced in time. Solution vectors are DOF
// vectors of length NumDOFs.
type Model interface {
	NumDOFs() int
	NumSolutions() int
	SetIntegrationPrm(i int, prm float64)
	InitSystem(nMats, nVecs int) error
	AssembleSystem(time types.TimeDomain, sols [][]float64, newLHS bool) error
	// SolveSystem solves the assembled system for an increment to the
	// solution given to AssembleSystem. Constrained DOFs receive their
	// prescribed value minus the current one.
	SolveSystem() ([]float64, error)
	AddToRHSVector(i int, vec []float64, scale float64) error
	GetRHSVector(i int) ([]float64, error)
	UpdateConfiguration(sol []float64) error
}

// Newmark is the nonlinear Newmark predictor/corrector driver. The solution
// history is [disp, previous disp..., vel, acc], and the element level
// integrands receive alpha1, alpha2, -beta, gamma and 1/2-gamma as
// integration parameters 0 to 4.
type Newmark struct {
	Alpha1, Alpha2 float64 // Rayleigh damping coefficients
	Beta, Gamma    float64
	Predictor      byte // 'd' keeps the displacement constant
	RelTol, AbsTol float64
	DivgLim        float64
	Verbose        bool

	model    Model
	solution [][]float64
	incDis   []float64
	predVel  []float64
	predAcc  []float64
	linsol   []float64
	finert   []float64
}

func NewNewmark(model Model) (nm *Newmark) {
	nm = &Newmark{
		Beta:      0.3025,
		Gamma:     0.6,
		Predictor: 'd',
		RelTol:    1e-10,
		AbsTol:    1e-14,
		DivgLim:   1e10,
		model:     model,
	}
	return
}

// SetAlpha sets beta and gamma from the HHT parameter alpha in [-1/3,0]
func (nm *Newmark) SetAlpha(alpha float64) {
	nm.Beta = 0.25 * (1 - alpha) * (1 - alpha)
	nm.Gamma = 0.5 - alpha
}

// Init passes the integration parameters on and allocates the solution
// history, at least nSol vectors
func (nm *Newmark) Init(nSol int) (err error) {
	nm.model.SetIntegrationPrm(0, nm.Alpha1)
	nm.model.SetIntegrationPrm(1, nm.Alpha2)
	nm.model.SetIntegrationPrm(2, -nm.Beta)
	nm.model.SetIntegrationPrm(3, nm.Gamma)
	nm.model.SetIntegrationPrm(4, 0.5-nm.Gamma)
	var (
		nDOFs = nm.model.NumDOFs()
	)
	nSol = max(nSol, nm.model.NumSolutions(), 3)
	nm.solution = make([][]float64, nSol)
	for i := range nm.solution {
		nm.solution[i] = make([]float64, nDOFs)
	}
	nm.incDis = make([]float64, nDOFs)
	nm.predVel = make([]float64, nDOFs)
	nm.predAcc = make([]float64, nDOFs)
	nm.finert = nil
	return nm.model.InitSystem(1, 2)
}

// Solutions returns the solution history
func (nm *Newmark) Solutions() [][]float64 { return nm.solution }

func (nm *Newmark) Displacement() []float64 { return nm.solution[0] }
func (nm *Newmark) Velocity() []float64     { return nm.solution[len(nm.solution)-2] }
func (nm *Newmark) Acceleration() []float64 { return nm.solution[len(nm.solution)-1] }

// SetInitialConditions copies the initial displacement, velocity and
// acceleration into the history, nil vectors meaning zero
func (nm *Newmark) SetInitialConditions(d, v, a []float64) (err error) {
	if len(nm.solution) < 3 {
		return ErrHistoryTooShort
	}
	for k, src := range map[int][]float64{0: d, len(nm.solution) - 2: v, len(nm.solution) - 1: a} {
		if src == nil {
			continue
		}
		if len(src) != len(nm.solution[k]) {
			return fmt.Errorf("initial condition of length %d for %d DOFs: %w",
				len(src), len(nm.solution[k]), ErrHistoryTooShort)
		}
		copy(nm.solution[k], src)
	}
	return
}

// AdvanceStep shifts the displacement history and, when updateTime is set,
// increments the time level
func (nm *Newmark) AdvanceStep(tp *sim.TimeStep, updateTime bool) bool {
	for n := len(nm.solution) - 3; n > 0; n-- {
		copy(nm.solution[n], nm.solution[n-1])
	}
	if updateTime {
		return tp.Increment()
	}
	return true
}

// FinalizeRHSVector adds the inertia force of the previous converged step
func (nm *Newmark) FinalizeRHSVector() error {
	if nm.finert == nil {
		return nil
	}
	return nm.model.AddToRHSVector(0, nm.finert, nm.Gamma-0.5)
}

// PredictStep computes the predicted velocity and acceleration, stores them
// in the history and keeps their negated values for the corrector
func (nm *Newmark) PredictStep(tp *sim.TimeStep) (err error) {
	if len(nm.solution) < 3 {
		return ErrHistoryTooShort
	}
	var (
		iA = len(nm.solution) - 1
		iV = len(nm.solution) - 2
		dt = tp.Time.Dt
		b  = nm.Beta
		g  = nm.Gamma
	)
	for i := range nm.predVel {
		v, a := nm.solution[iV][i], nm.solution[iA][i]
		nm.predVel[i] = (g/b-1)*v + (0.5*g/b-1)*dt*a
		nm.predAcc[i] = (0.5/b-1)*a + v/(b*dt)
	}
	copy(nm.solution[iV], nm.predVel)
	copy(nm.solution[iA], nm.predAcc)
	for i := range nm.incDis {
		nm.incDis[i] = 0
	}
	floats.Scale(-1, nm.predVel)
	floats.Scale(-1, nm.predAcc)
	return
}

// CorrectStep adds the last linear solution to the displacement increment
// and re-derives velocity and acceleration from it. A converged step caches
// the inertia force for the next step.
func (nm *Newmark) CorrectStep(tp *sim.TimeStep, converged bool) (err error) {
	if len(nm.solution) < 3 {
		return ErrHistoryTooShort
	}
	var (
		iA = len(nm.solution) - 1
		iV = len(nm.solution) - 2
		dt = tp.Time.Dt
	)
	floats.Add(nm.incDis, nm.linsol)
	floats.Add(nm.solution[0], nm.linsol)
	for i, dd := range nm.incDis {
		nm.solution[iV][i] = nm.predVel[i] + nm.Gamma/(nm.Beta*dt)*dd
		nm.solution[iA][i] = nm.predAcc[i] + dd/(nm.Beta*dt*dt)
	}
	if converged {
		if nm.finert, err = nm.model.GetRHSVector(1); err != nil {
			return
		}
	}
	return nm.model.UpdateConfiguration(nm.solution[0])
}

// SolveStep predicts and iterates the current time step to convergence
func (nm *Newmark) SolveStep(tp *sim.TimeStep) (status types.ConvStatus, err error) {
	if nm.Verbose {
		fmt.Printf("\n  step=%d  time=%g\n", tp.Step, tp.Time.T)
	}
	if err = nm.PredictStep(tp); err != nil {
		return
	}
	var norm0 float64
	for it := 0; ; it++ {
		tp.Time.It = it
		if err = nm.model.AssembleSystem(tp.Time, nm.solution, true); err != nil {
			return
		}
		if err = nm.FinalizeRHSVector(); err != nil {
			return
		}
		if nm.linsol, err = nm.model.SolveSystem(); err != nil {
			return
		}
		norm := floats.Norm(nm.linsol, 2)
		if norm0 <= nm.AbsTol {
			// divergence is measured against the first nontrivial correction
			norm0 = norm
		}
		status = nm.checkConvergence(tp, it, norm, norm0)
		if err = nm.CorrectStep(tp, status == types.Converged); err != nil {
			return
		}
		switch status {
		case types.Converged:
			return
		case types.Diverged:
			err = fmt.Errorf("step %d at time %g after %d iterations: %w", tp.Step, tp.Time.T, it+1, ErrDiverged)
			fmt.Fprintf(os.Stderr, " *** newmark.SolveStep: %v\n", err)
			return
		}
	}
}

// checkConvergence tests the norm of the displacement correction. The first
// iteration runs on the predicted state and is never accepted.
func (nm *Newmark) checkConvergence(tp *sim.TimeStep, it int, norm, norm0 float64) (status types.ConvStatus) {
	dNorm := floats.Norm(nm.solution[0], 2)
	if nm.Verbose {
		fmt.Printf("  iter=%d  |du|=%.6e  |u|=%.6e\n", it, norm, dNorm)
	}
	switch {
	case math.IsNaN(norm) || (norm0 > 0 && norm > nm.DivgLim*norm0):
		return types.Diverged
	case it > 0 && (norm <= nm.AbsTol || norm <= nm.RelTol*dNorm):
		return types.Converged
	case tp.MaxIter > 0 && it+1 >= tp.MaxIter:
		return types.Diverged
	}
	return types.NotConverged
}
