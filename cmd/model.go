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
	"io/ioutil"
	"math"
	"os"
	"strings"

	"github.com/notargets/goiga/InputParameters"
	"github.com/notargets/goiga/asm"
	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/model_problems/Elasticity"
	"github.com/notargets/goiga/model_problems/Poisson"
	"github.com/notargets/goiga/model_problems/Stokes"
	"github.com/notargets/goiga/sim"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
	"gonum.org/v1/gonum/floats"
)

type ProblemType uint8

const (
	P_Poisson ProblemType = iota
	P_Elasticity
	P_Stokes
)

var ProblemNameMap = map[string]ProblemType{
	"poisson":    P_Poisson,
	"heat":       P_Poisson,
	"elasticity": P_Elasticity,
	"stokes":     P_Stokes,
}

// Model is a single box patch with the problem and boundary conditions of
// an input file
type Model struct {
	Input   *InputParameters.InputParameters
	Type    ProblemType
	Patch   asm.Patch
	Problem integrand.Integrand
	Sim     *sim.SIM
	// Elastic is set for elasticity problems, the only ones with dynamics
	Elastic *Elasticity.Elasticity
	nsd     int
	codes   int
}

func readInput(fileName string) (ip *InputParameters.InputParameters) {
	var (
		err  error
		data []byte
	)
	if len(fileName) == 0 {
		err = fmt.Errorf("must supply an input parameters file (-I, --inputFile) in YAML format")
		fmt.Printf("error: %s\n", err.Error())
		exampleFile := `
########################################
Title: "Plate"
Problem: Elasticity # Can be Poisson or Stokes
Lower: [0, 0]
Upper: [2, 1]
RaiseOrder: [1, 1]
Elements: [8, 4]
Material:
  E: 100.
  Nu: 0.3
BCs:
  Fixed-left:
    -1: [0, 0]
  Traction-right:
    1: [10, 0]
Projection: SCR # Can be Global, CGL2 or DGL2
########################################
`
		fmt.Printf("Example File:%s\n", exampleFile)
		os.Exit(1)
	}
	if data, err = ioutil.ReadFile(fileName); err != nil {
		panic(err)
	}
	ip = &InputParameters.InputParameters{}
	if err = ip.Parse(data); err != nil {
		panic(err)
	}
	return
}

func NewModel(ip *InputParameters.InputParameters, verbose bool) (m *Model, err error) {
	pt, ok := ProblemNameMap[strings.ToLower(strings.TrimSpace(ip.Problem))]
	if !ok {
		return nil, fmt.Errorf("unknown problem type %q", ip.Problem)
	}
	m = &Model{
		Input: ip,
		Type:  pt,
		nsd:   ip.Dimension(),
	}
	if err = m.newPatch(verbose); err != nil {
		return nil, err
	}
	if err = m.newProblem(); err != nil {
		return nil, err
	}
	m.Sim = sim.NewSIM(m.Problem, m.Patch)
	m.Sim.Verbose = verbose
	if err = m.applyBCs(); err != nil {
		return nil, err
	}
	return
}

func (m *Model) newPatch(verbose bool) (err error) {
	var (
		ip = m.Input
		s  = spline.NewLinearPatch(ip.Lower, ip.Upper)
	)
	for d := 0; d < m.nsd; d++ {
		if ip.RaiseOrder[d] > 0 {
			if err = s.RaiseOrder(d, ip.RaiseOrder[d]); err != nil {
				return
			}
		}
		if ip.Elements[d] > 1 {
			if err = s.UniformRefine(d, ip.Elements[d]-1); err != nil {
				return
			}
		}
	}
	cfg := asm.DefaultConfig()
	cfg.NGauss = ip.NGauss
	cfg.ParallelDegree = ip.ParallelDegree
	cfg.Verbose = verbose
	nf := []int{1}
	switch m.Type {
	case P_Elasticity:
		nf = []int{m.nsd}
	case P_Stokes:
		nf = []int{m.nsd, 1}
	}
	if ip.Unstructured {
		m.Patch, err = asm.NewASMu(s, m.nsd, nf, cfg)
	} else {
		m.Patch, err = asm.NewASMs(s, m.nsd, nf, cfg)
	}
	return
}

func (m *Model) constant(values []float64) (f []float64, err error) {
	if len(values) != m.nsd {
		return nil, fmt.Errorf("vector %v needs %d components", values, m.nsd)
	}
	return values, nil
}

func (m *Model) newProblem() (err error) {
	var (
		ip  = m.Input
		mat = ip.Material
		f   []float64
	)
	switch m.Type {
	case P_Poisson:
		p := Poisson.NewPoisson(m.nsd)
		p.Kappa = mat.Kappa
		if len(ip.Source) > 0 {
			source := ip.Source[0]
			p.Source = func(X []float64) float64 { return source }
		}
		m.Problem = p
	case P_Elasticity:
		el := Elasticity.NewElasticity(m.nsd)
		el.E, el.Nu, el.Rho, el.PlaneStrain = mat.E, mat.Nu, mat.Rho, mat.PlaneStrain
		if len(ip.Source) > 0 {
			if f, err = m.constant(ip.Source); err != nil {
				return
			}
			el.BodyForce = func(X []float64) []float64 { return f }
		}
		m.Problem, m.Elastic = el, el
	case P_Stokes:
		st := Stokes.NewStokes(m.nsd)
		st.Mu = mat.Mu
		if len(ip.Source) > 0 {
			if f, err = m.constant(ip.Source); err != nil {
				return
			}
			st.BodyForce = func(X []float64) []float64 { return f }
		}
		m.Problem = st
	}
	return
}

// numComponents is the number of primary unknowns on basis 1
func (m *Model) numComponents() int {
	if m.Type == P_Poisson {
		return 1
	}
	return m.nsd
}

// sideOf maps an outward normal of the box onto its side index
func sideOf(normal []float64) (lIndex int) {
	var dir int
	for d := range normal {
		if math.Abs(normal[d]) > math.Abs(normal[dir]) {
			dir = d
		}
	}
	if lIndex = dir + 1; normal[dir] < 0 {
		lIndex = -lIndex
	}
	return
}

func (m *Model) addDirichlet(lIndex int, values []float64) {
	var (
		ncomp = m.numComponents()
		zero  int
		basis int
	)
	if m.Type == P_Stokes {
		basis = 1
	}
	for c := 0; c < ncomp; c++ {
		var v float64
		if c < len(values) {
			v = values[c]
		}
		if v == 0 {
			zero = 10*zero + c + 1
			continue
		}
		m.codes++
		m.Sim.SetDirichletFunc(m.codes, func(X []float64, t float64) float64 { return v })
		m.Sim.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: lIndex, Dofs: c + 1, Code: m.codes, Basis: basis})
	}
	if zero > 0 {
		m.Sim.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: lIndex, Dofs: zero, Basis: basis})
	}
}

func (m *Model) applyBCs() (err error) {
	var (
		bcs   []InputParameters.BoundaryCondition
		loads = make(map[int][]float64)
	)
	if bcs, err = m.Input.BoundaryConditions(); err != nil {
		return
	}
	for _, bc := range bcs {
		switch bc.Flag {
		case types.BC_Dirichlet:
			m.addDirichlet(bc.LIndex, bc.Values)
		case types.BC_Clamped:
			m.addDirichlet(bc.LIndex, nil)
		case types.BC_Symmetry:
			// zero normal displacement, a natural condition for scalar problems
			if m.Type != P_Poisson {
				dir := bc.LIndex
				if dir < 0 {
					dir = -dir
				}
				var basis int
				if m.Type == P_Stokes {
					basis = 1
				}
				m.Sim.AddDirichlet(sim.Dirichlet{Patch: 1, LIndex: bc.LIndex, Dofs: dir, Basis: basis})
			}
		case types.BC_Neumann, types.BC_Traction:
			if m.Type == P_Poisson {
				if len(bc.Values) != 1 {
					return fmt.Errorf("flux on side %d needs one value, have %v", bc.LIndex, bc.Values)
				}
			} else if _, err = m.constant(bc.Values); err != nil {
				return fmt.Errorf("traction on side %d: %w", bc.LIndex, err)
			}
			loads[bc.LIndex] = bc.Values
			m.Sim.AddNeumann(sim.Neumann{Patch: 1, LIndex: bc.LIndex})
		}
	}
	if len(loads) == 0 {
		return
	}
	traction := func(X, normal []float64) []float64 { return loads[sideOf(normal)] }
	switch prob := m.Problem.(type) {
	case *Poisson.Poisson:
		prob.Flux = func(X, normal []float64) float64 {
			if q := loads[sideOf(normal)]; q != nil {
				return q[0]
			}
			return 0
		}
	case *Elasticity.Elasticity:
		prob.Traction = func(X, normal []float64) []float64 {
			if t := traction(X, normal); t != nil {
				return t
			}
			return make([]float64, m.nsd)
		}
	case *Stokes.Stokes:
		prob.Traction = func(X, normal []float64) []float64 {
			if t := traction(X, normal); t != nil {
				return t
			}
			return make([]float64, m.nsd)
		}
	}
	return
}

// PrintSolution lists the range of each primary solution component
func (m *Model) PrintSolution(sol []float64) (err error) {
	var (
		ncomp  = m.numComponents()
		values []float64
	)
	if values, err = m.Patch.ExtractNodeVec(sol, ncomp, 1); err != nil {
		return
	}
	for c := 0; c < ncomp; c++ {
		printRange(m.Problem.FieldName(1, c), strided(values, c, ncomp))
	}
	if m.Type == P_Stokes {
		if values, err = m.Patch.ExtractNodeVec(sol, 1, 2); err != nil {
			return
		}
		printRange("p", values)
	}
	return
}

// PrintProjection lists the range of the control point values of each
// recovered secondary field component
func (m *Model) PrintProjection(fields []spline.Basis) {
	for _, f := range fields {
		var (
			ncomp = f.Dimension()
			cps   = f.ControlPoints()
		)
		for c := 0; c < ncomp; c++ {
			printRange(m.Problem.FieldName(2, c), strided(cps, c, ncomp))
		}
	}
}

func strided(values []float64, c, stride int) (comp []float64) {
	comp = make([]float64, 0, len(values)/stride)
	for i := c; i < len(values); i += stride {
		comp = append(comp, values[i])
	}
	return
}

func printRange(name string, values []float64) {
	if len(values) == 0 {
		return
	}
	fmt.Printf("%-10s min = %12.5e  max = %12.5e\n", name, floats.Min(values), floats.Max(values))
}
