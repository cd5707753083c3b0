package sim

import (
	"fmt"

	"github.com/notargets/goiga/asm"
	"github.com/notargets/goiga/integrand"
)

// FieldProvider is a simulator publishing named nodal result vectors
type FieldProvider interface {
	GetField(name string) []float64
}

// Dependency is a field this simulator takes from another one. Components
// is the number of values per node; a negative count takes only the nodes
// of basis 1 of a mixed provider patch. With DifferentBasis set the field
// lives on the provider's own patches and is handed on as a spline field,
// otherwise it shares nodes with this simulator and is copied per patch.
type Dependency struct {
	Sim            FieldProvider
	Name           string
	Components     int
	Patches        []asm.Patch
	DifferentBasis bool
}

// SIMdependency keeps the fields a simulator exports and imports
type SIMdependency struct {
	depFields []Dependency
	myFields  map[string]*[]float64
}

func (sd *SIMdependency) RegisterDependency(sim FieldProvider, name string, nvc int, patches []asm.Patch,
	differentBasis bool) {
	for i, dep := range sd.depFields {
		if dep.Name == name {
			sd.depFields[i] = Dependency{sim, name, nvc, patches, differentBasis}
			return
		}
	}
	sd.depFields = append(sd.depFields, Dependency{sim, name, nvc, patches, differentBasis})
}

func (sd *SIMdependency) Dependencies() []Dependency { return sd.depFields }

// RegisterField exports a vector under a name. The vector is read through
// the pointer whenever a dependent simulator extracts it.
func (sd *SIMdependency) RegisterField(name string, vec *[]float64) {
	if sd.myFields == nil {
		sd.myFields = make(map[string]*[]float64)
	}
	sd.myFields[name] = vec
}

// GetField returns an exported vector, nil when unknown
func (sd *SIMdependency) GetField(name string) []float64 {
	if vec, ok := sd.myFields[name]; ok && vec != nil {
		return *vec
	}
	return nil
}

// ExtractPatchDependencies hands every dependency field of patch pindx
// (0-based) to the integrand: shared nodes as a named patch vector, fields on
// a different basis as a named spline field
func (sd *SIMdependency) ExtractPatchDependencies(problem integrand.Integrand, model []asm.Patch,
	pindx int) (err error) {
	for _, dep := range sd.depFields {
		var (
			global = dep.Sim.GetField(dep.Name)
			ncomp  = dep.Components
			basis  = 0
		)
		if global == nil {
			continue
		}
		if ncomp < 0 {
			ncomp, basis = -ncomp, 1
		}
		patches := dep.Patches
		if patches == nil {
			patches = model
		}
		if pindx < 0 || pindx >= len(patches) {
			return fmt.Errorf("dependency %q on patch %d of %d: %w", dep.Name, pindx+1, len(patches), ErrUnknownPatch)
		}
		p := patches[pindx]
		var local []float64
		if local, err = p.ExtractNodeVec(global, ncomp, basis); err != nil {
			return fmt.Errorf("dependency %q: %w", dep.Name, err)
		}
		if !dep.DifferentBasis {
			*problem.NamedVector(dep.Name) = local
			continue
		}
		if basis == 0 {
			basis = 1
			local = local[:p.NumNodes(1)*ncomp]
		}
		var sf *asm.SplineField
		if sf, err = asm.NewSplineField(p.Basis(basis).WithControlPoints(ncomp, local), p); err != nil {
			return fmt.Errorf("dependency %q: %w", dep.Name, err)
		}
		problem.SetNamedField(dep.Name, sf)
	}
	return
}
