package sim

import (
	"fmt"
	"math"

	"github.com/notargets/goiga/types"
)

// TimeStep holds the time stepping parameters and the current time level
type TimeStep struct {
	Start, Stop float64
	Step        int
	MaxIter     int // nonlinear iterations allowed per step
	Time        types.TimeDomain
}

func NewTimeStep(start, stop, dt float64) (tp *TimeStep, err error) {
	if dt <= 0 || stop < start {
		err = fmt.Errorf("time interval [%g,%g] with step %g: %w", start, stop, dt, ErrTimeStep)
		return
	}
	tp = &TimeStep{
		Start:   start,
		Stop:    stop,
		MaxIter: 20,
		Time:    types.TimeDomain{T: start, Dt: dt},
	}
	return
}

// Increment advances to the next time level and reports false when the stop
// time has been passed
func (tp *TimeStep) Increment() bool {
	if tp.HasReached(tp.Stop) {
		return false
	}
	tp.Step++
	tp.Time.T += tp.Time.Dt
	tp.Time.It = 0
	tp.Time.First = tp.Step == 1
	return true
}

// HasReached is true when the current time is within a fraction of a step
// of t or past it
func (tp *TimeStep) HasReached(t float64) bool {
	return tp.Time.T+1e-10*tp.Time.Dt >= t
}

// NumSteps is the number of steps needed to reach the stop time
func (tp *TimeStep) NumSteps() int {
	return int(math.Ceil((tp.Stop-tp.Start)/tp.Time.Dt - 1e-10))
}
