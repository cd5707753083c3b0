package sim

import (
	"errors"
	"testing"

	"github.com/notargets/goiga/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeStep(t *testing.T) {
	_, err := NewTimeStep(0, 1, 0)
	assert.ErrorIs(t, err, ErrTimeStep)
	_, err = NewTimeStep(1, 0, 0.1)
	assert.ErrorIs(t, err, ErrTimeStep)

	tp, err := NewTimeStep(0, 1, 0.3)
	require.NoError(t, err)
	assert.Equal(t, 4, tp.NumSteps())
	assert.Equal(t, 20, tp.MaxIter)
	var times []float64
	for tp.Increment() {
		times = append(times, tp.Time.T)
		assert.Equal(t, tp.Step == 1, tp.Time.First)
	}
	assert.InDeltaSlice(t, []float64{0.3, 0.6, 0.9, 1.2}, times, 1e-14)
	assert.True(t, tp.HasReached(1))
	assert.False(t, tp.Increment())

	tp, err = NewTimeStep(0, 1, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 10, tp.NumSteps())
	n := 0
	for tp.Increment() {
		n++
	}
	assert.Equal(t, 10, n)
}

// countingIntegrator diverges at step divergeAt when it is positive
type countingIntegrator struct {
	advanced, solved int
	divergeAt        int
	failWith         error
}

func (ci *countingIntegrator) AdvanceStep(tp *TimeStep, updateTime bool) bool {
	ci.advanced++
	return true
}

func (ci *countingIntegrator) SolveStep(tp *TimeStep) (types.ConvStatus, error) {
	ci.solved++
	if tp.Step == ci.divergeAt {
		return types.Diverged, ci.failWith
	}
	return types.Converged, nil
}

func TestSolver(t *testing.T) {
	{ // complete run
		tp, err := NewTimeStep(0, 0.5, 0.1)
		require.NoError(t, err)
		ci := &countingIntegrator{}
		solver := NewSolver(ci, tp)
		var saved []int
		solver.SaveStep = func(tp *TimeStep) error {
			saved = append(saved, tp.Step)
			return nil
		}
		require.NoError(t, solver.SolveProblem())
		assert.Equal(t, 5, ci.advanced)
		assert.Equal(t, 5, ci.solved)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, saved)
	}
	{ // divergence without an error value
		tp, err := NewTimeStep(0, 1, 0.1)
		require.NoError(t, err)
		ci := &countingIntegrator{divergeAt: 3}
		solver := NewSolver(ci, tp)
		assert.Error(t, solver.SolveProblem())
		assert.Equal(t, 3, ci.solved)
	}
	{ // a diverged step is saved on request and its error returned
		tp, err := NewTimeStep(0, 1, 0.1)
		require.NoError(t, err)
		errDiverged := errors.New("diverged")
		ci := &countingIntegrator{divergeAt: 2, failWith: errDiverged}
		solver := NewSolver(ci, tp)
		solver.SaveDiverged = true
		var saved []int
		solver.SaveStep = func(tp *TimeStep) error {
			saved = append(saved, tp.Step)
			return nil
		}
		assert.ErrorIs(t, solver.SolveProblem(), errDiverged)
		assert.Equal(t, []int{0, 1, 2}, saved)
	}
	{ // a failing save stops the run
		tp, err := NewTimeStep(0, 1, 0.1)
		require.NoError(t, err)
		ci := &countingIntegrator{}
		solver := NewSolver(ci, tp)
		errSave := errors.New("disk full")
		solver.SaveStep = func(tp *TimeStep) error {
			if tp.Step == 4 {
				return errSave
			}
			return nil
		}
		assert.ErrorIs(t, solver.SolveProblem(), errSave)
		assert.Equal(t, 4, ci.solved)
	}
}
