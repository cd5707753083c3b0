package InputParameters

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/notargets/goiga/types"
)

// Parameters obtained from the YAML input file. The YAML is converted to JSON
// before decoding, hence the json tags.
type InputParameters struct {
	Title          string                       `json:"Title"`
	Problem        string                       `json:"Problem"` // Poisson, Elasticity or Stokes
	Lower          []float64                    `json:"Lower"`   // Corners of the box geometry, one entry per direction
	Upper          []float64                    `json:"Upper"`
	RaiseOrder     []int                        `json:"RaiseOrder"` // Order elevation of the linear geometry per direction
	Elements       []int                        `json:"Elements"`   // Number of elements per direction
	Unstructured   bool                         `json:"Unstructured"`
	NGauss         int                          `json:"NGauss"`
	ParallelDegree int                          `json:"ParallelDegree"`
	Material       Material                     `json:"Material"`
	Source         []float64                    `json:"Source"` // Constant source or body force
	BCs            map[string]map[int][]float64 `json:"BCs"`    // First key is BC type-label, second is the patch side
	Projection     string                       `json:"Projection"`
	TimeStepping   TimeStepping                 `json:"TimeStepping"`
}

type Material struct {
	Kappa       float64 `json:"Kappa"`
	E           float64 `json:"E"`
	Nu          float64 `json:"Nu"`
	Rho         float64 `json:"Rho"`
	Mu          float64 `json:"Mu"`
	PlaneStrain bool    `json:"PlaneStrain"`
}

type TimeStepping struct {
	Start           float64   `json:"Start"`
	Stop            float64   `json:"Stop"`
	Dt              float64   `json:"Dt"`
	Alpha           float64   `json:"Alpha"` // HHT alpha, overrides Beta and Gamma when nonzero
	Beta            float64   `json:"Beta"`
	Gamma           float64   `json:"Gamma"`
	Alpha1          float64   `json:"Alpha1"` // Rayleigh mass damping
	Alpha2          float64   `json:"Alpha2"` // Rayleigh stiffness damping
	InitialVelocity []float64 `json:"InitialVelocity"`
	PrintSteps      int       `json:"PrintSteps"`
}

// BoundaryCondition is one entry of the BCs map
type BoundaryCondition struct {
	Flag   types.BCFLAG
	Label  string
	LIndex int
	Values []float64
}

func (ip *InputParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	ip.setDefaults()
	return ip.Validate()
}

func (ip *InputParameters) setDefaults() {
	nsd := len(ip.Lower)
	if len(ip.RaiseOrder) == 0 {
		ip.RaiseOrder = make([]int, nsd)
	}
	if len(ip.Elements) == 0 {
		ip.Elements = make([]int, nsd)
		for d := range ip.Elements {
			ip.Elements[d] = 1
		}
	}
	if ip.ParallelDegree == 0 {
		ip.ParallelDegree = 1
	}
	if len(ip.Projection) == 0 {
		ip.Projection = "Global"
	}
	if ip.Material.Kappa == 0 {
		ip.Material.Kappa = 1
	}
	if ip.Material.E == 0 {
		ip.Material.E = 1
	}
	if ip.Material.Mu == 0 {
		ip.Material.Mu = 1
	}
	if ip.TimeStepping.PrintSteps == 0 {
		ip.TimeStepping.PrintSteps = 1
	}
}

func (ip *InputParameters) Dimension() int { return len(ip.Lower) }

func (ip *InputParameters) Validate() error {
	nsd := ip.Dimension()
	switch {
	case nsd < 1 || nsd > 3:
		return fmt.Errorf("geometry must have 1, 2 or 3 directions, have %d", nsd)
	case len(ip.Upper) != nsd:
		return fmt.Errorf("Upper has %d directions, Lower has %d", len(ip.Upper), nsd)
	case len(ip.RaiseOrder) != nsd:
		return fmt.Errorf("RaiseOrder has %d directions, need %d", len(ip.RaiseOrder), nsd)
	case len(ip.Elements) != nsd:
		return fmt.Errorf("Elements has %d directions, need %d", len(ip.Elements), nsd)
	}
	for d := 0; d < nsd; d++ {
		if ip.Upper[d] <= ip.Lower[d] {
			return fmt.Errorf("empty box in direction %d: [%g,%g]", d, ip.Lower[d], ip.Upper[d])
		}
		if ip.Elements[d] < 1 || ip.RaiseOrder[d] < 0 {
			return fmt.Errorf("invalid discretization in direction %d", d)
		}
	}
	if _, ok := types.NewProjectionMethod(ip.Projection); !ok {
		return fmt.Errorf("unknown projection method %q", ip.Projection)
	}
	_, err := ip.BoundaryConditions()
	return err
}

func (ip *InputParameters) ProjectionMethod() types.ProjectionMethod {
	pm, _ := types.NewProjectionMethod(ip.Projection)
	return pm
}

// BoundaryConditions returns the BCs sorted by type, label and side
func (ip *InputParameters) BoundaryConditions() (bcs []BoundaryCondition, err error) {
	nsd := ip.Dimension()
	for key, sides := range ip.BCs {
		tag := types.NewBCTAG(key)
		flag := tag.GetFLAG()
		if flag == types.BC_None {
			return nil, fmt.Errorf("unknown boundary condition type in %q", key)
		}
		for lIndex, values := range sides {
			if lIndex == 0 || lIndex < -nsd || lIndex > nsd {
				return nil, fmt.Errorf("%s: side %d outside [-%d,%d]", key, lIndex, nsd, nsd)
			}
			bcs = append(bcs, BoundaryCondition{
				Flag:   flag,
				Label:  tag.GetLabel(),
				LIndex: lIndex,
				Values: values,
			})
		}
	}
	sort.Slice(bcs, func(i, j int) bool {
		switch {
		case bcs[i].Flag != bcs[j].Flag:
			return bcs[i].Flag < bcs[j].Flag
		case bcs[i].Label != bcs[j].Label:
			return bcs[i].Label < bcs[j].Label
		}
		return bcs[i].LIndex < bcs[j].LIndex
	})
	return
}

func (ip *InputParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%s]\t\t= Problem\n", ip.Problem)
	fmt.Printf("%v x %v\t= Box\n", ip.Lower, ip.Upper)
	fmt.Printf("%v\t\t\t= Order Elevation\n", ip.RaiseOrder)
	fmt.Printf("%v\t\t\t= Elements\n", ip.Elements)
	if ip.Unstructured {
		fmt.Printf("[LR]\t\t\t= Patch Type\n")
	}
	fmt.Printf("[%s]\t\t= Projection\n", ip.ProjectionMethod())
	if ip.TimeStepping.Dt > 0 {
		ts := ip.TimeStepping
		fmt.Printf("[%g,%g] dt=%g\t= Time Interval\n", ts.Start, ts.Stop, ts.Dt)
	}
	keys := make([]string, len(ip.BCs))
	i := 0
	for k := range ip.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", strings.TrimSpace(key), ip.BCs[key])
	}
}
