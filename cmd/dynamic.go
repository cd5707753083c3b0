/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/notargets/goiga/InputParameters"
	"github.com/notargets/goiga/newmark"
	"github.com/notargets/goiga/sim"
	"github.com/notargets/goiga/types"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
)

// DynamicCmd represents the dynamic command
var DynamicCmd = &cobra.Command{
	Use:   "dynamic",
	Short: "Elastodynamics with the Newmark method",
	Long: `
Integrates an elasticity problem in time with the Newmark or HHT-alpha
method, printing the displacement range as the solution progresses,

goiga dynamic -I input.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		fileName, _ := cmd.Flags().GetString("inputFile")
		ip := readInput(fileName)
		if err := RunDynamic(ip); err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(DynamicCmd)
	DynamicCmd.Flags().StringP("inputFile", "I", "", "YAML file for input parameters like:\n\t- Material density\n\t- TimeStepping")
}

// NewDynamicSolver prepares the Newmark integration of an elasticity model
func NewDynamicSolver(m *Model) (nm *newmark.Newmark, solver *sim.Solver, err error) {
	var (
		ts = m.Input.TimeStepping
		tp *sim.TimeStep
	)
	if m.Elastic == nil {
		return nil, nil, fmt.Errorf("time integration needs an elasticity problem, have %q", m.Input.Problem)
	}
	if err = m.Sim.Preprocess(); err != nil {
		return
	}
	m.Elastic.SetMode(types.DYNAMIC)
	nm = newmark.NewNewmark(m.Sim)
	nm.Alpha1, nm.Alpha2 = ts.Alpha1, ts.Alpha2
	switch {
	case ts.Alpha != 0:
		nm.SetAlpha(ts.Alpha)
	case ts.Beta > 0:
		nm.Beta, nm.Gamma = ts.Beta, ts.Gamma
	}
	nm.Verbose = m.Sim.Verbose
	if err = nm.Init(0); err != nil {
		return
	}
	if len(ts.InitialVelocity) > 0 {
		var v0 []float64
		if v0, err = m.initialVelocity(ts.InitialVelocity); err != nil {
			return
		}
		if err = nm.SetInitialConditions(nil, v0, nil); err != nil {
			return
		}
	}
	if tp, err = sim.NewTimeStep(ts.Start, ts.Stop, ts.Dt); err != nil {
		return
	}
	solver = sim.NewSolver(nm, tp)
	solver.Verbose = m.Sim.Verbose
	return
}

// initialVelocity is a uniform velocity on the unconstrained DOFs
func (m *Model) initialVelocity(v []float64) (v0 []float64, err error) {
	if _, err = m.constant(v); err != nil {
		return
	}
	sam := m.Sim.SAM()
	v0 = make([]float64, sam.NumDOFs())
	for dof := range v0 {
		if sam.MEQN[dof] >= 0 {
			v0[dof] = v[dof%m.nsd]
		}
	}
	return
}

func RunDynamic(ip *InputParameters.InputParameters) (err error) {
	verbose := applyOverrides(ip)
	m, err := NewModel(ip, verbose)
	if err != nil {
		return
	}
	nm, solver, err := NewDynamicSolver(m)
	if err != nil {
		return
	}
	printSteps := ip.TimeStepping.PrintSteps
	solver.SaveStep = func(tp *sim.TimeStep) error {
		if tp.Step%printSteps != 0 {
			return nil
		}
		d := nm.Displacement()
		fmt.Printf("step %5d  t = %10.5f  min(u) = %12.5e  max(u) = %12.5e\n",
			tp.Step, tp.Time.T, floats.Min(d), floats.Max(d))
		return nil
	}
	if err = solver.SolveProblem(); err != nil {
		return
	}
	fmt.Printf("Final solution, %d DOFs:\n", m.Sim.NumDOFs())
	return m.PrintSolution(nm.Displacement())
}
