package sim

import (
	"fmt"
	"os"

	"github.com/notargets/goiga/types"
)

// TimeIntegrator advances a discrete system over one time step
type TimeIntegrator interface {
	AdvanceStep(tp *TimeStep, updateTime bool) bool
	SolveStep(tp *TimeStep) (types.ConvStatus, error)
}

// Solver runs the time stepping loop of a TimeIntegrator. SaveStep, when
// set, is called for the initial state and after every step.
type Solver struct {
	TP           *TimeStep
	Integrator   TimeIntegrator
	SaveStep     func(tp *TimeStep) error
	SaveDiverged bool // save the state of a diverged step before stopping
	Verbose      bool
}

func NewSolver(integrator TimeIntegrator, tp *TimeStep) *Solver {
	return &Solver{TP: tp, Integrator: integrator}
}

func (s *Solver) advanceStep() bool {
	return s.TP.Increment() && s.Integrator.AdvanceStep(s.TP, false)
}

func (s *Solver) saveStep() error {
	if s.SaveStep == nil {
		return nil
	}
	return s.SaveStep(s.TP)
}

// SolveProblem steps from the start to the stop time
func (s *Solver) SolveProblem() (err error) {
	if s.Verbose {
		fmt.Printf("Time integration: %g to %g, %d steps of %g\n",
			s.TP.Start, s.TP.Stop, s.TP.NumSteps(), s.TP.Time.Dt)
	}
	if err = s.saveStep(); err != nil {
		return
	}
	for s.advanceStep() {
		var status types.ConvStatus
		if status, err = s.Integrator.SolveStep(s.TP); err != nil || status == types.Diverged {
			if err == nil {
				err = fmt.Errorf("step %d: %v", s.TP.Step, status)
			}
			fmt.Fprintf(os.Stderr, " *** sim.SolveProblem: step %d at time %g: %v\n", s.TP.Step, s.TP.Time.T, err)
			if s.SaveDiverged {
				if serr := s.saveStep(); serr != nil {
					fmt.Fprintf(os.Stderr, " *** sim.SolveProblem: %v\n", serr)
				}
			}
			return
		}
		if err = s.saveStep(); err != nil {
			return
		}
	}
	return
}
