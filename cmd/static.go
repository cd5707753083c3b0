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
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// StaticCmd represents the static command
var StaticCmd = &cobra.Command{
	Use:   "static",
	Short: "Linear static solution with recovery of the secondary solution",
	Long: `
Assembles and solves the linear static problem of the input file, then
projects the secondary solution onto the spline basis,

goiga static -I input.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		fileName, _ := cmd.Flags().GetString("inputFile")
		ip := readInput(fileName)
		if err := RunStatic(ip); err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(StaticCmd)
	StaticCmd.Flags().StringP("inputFile", "I", "", "YAML file for input parameters like:\n\t- Problem\n\t- Geometry and discretization\n\t- BCs")
}

func applyOverrides(ip *InputParameters.InputParameters) (verbose bool) {
	if pd := viper.GetInt("parallelDegree"); pd > 0 {
		ip.ParallelDegree = pd
	}
	if verbose = viper.GetBool("verbose"); verbose {
		ip.Print()
	}
	return
}

func RunStatic(ip *InputParameters.InputParameters) (err error) {
	verbose := applyOverrides(ip)
	m, err := NewModel(ip, verbose)
	if err != nil {
		return
	}
	if err = m.Sim.Preprocess(); err != nil {
		return
	}
	sol, err := m.Sim.SolveLinearStatic(0)
	if err != nil {
		return
	}
	fmt.Printf("Solution, %d DOFs:\n", m.Sim.NumDOFs())
	if err = m.PrintSolution(sol); err != nil {
		return
	}
	method := ip.ProjectionMethod()
	fields, err := m.Sim.Project(sol, method)
	if err != nil {
		return
	}
	fmt.Printf("Secondary solution, %s projection:\n", method)
	m.PrintProjection(fields)
	return
}
