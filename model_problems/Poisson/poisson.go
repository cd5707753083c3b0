package Poisson

import (
	"fmt"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

/*
The Poisson problem in weak form, for a test function v:

				∫ κ ∇u⋅∇v dΩ = ∫ f v dΩ + ∫ q v dΓ

f is the source, optionally augmented by a field taken from another
simulator, and q = κ ∇u⋅n the prescribed flux on Neumann boundaries. The
secondary solution is the flux vector -κ ∇u.
*/

type Poisson struct {
	*integrand.IntegrandBase
	Kappa  float64
	Source func(X []float64) float64
	Flux   func(X, normal []float64) float64
	// SourceField names a dependency field added to the source
	SourceField string
	nsd         int
}

func NewPoisson(nsd int) (p *Poisson) {
	p = &Poisson{
		IntegrandBase: integrand.NewIntegrandBase(1),
		Kappa:         1,
		nsd:           nsd,
	}
	return
}

// elmMats carries the dependency source values at the element nodes
type elmMats struct {
	integrand.ElmMats
	source utils.Vector
}

func (p *Poisson) GetLocalIntegral(nen []int, iel int, neumann bool) integrand.LocalIntegral {
	em := &elmMats{}
	switch {
	case neumann:
		em.Resize(0, 1, nen[0])
	default:
		em.Resize(1, 1, nen[0])
		em.RHSOnly = p.Mode == types.RHS_ONLY
	}
	return em
}

func (p *Poisson) InitElement(MNPC []int, fe *integrand.FiniteElement, X0 []float64, nPt int,
	elm integrand.LocalIntegral) (err error) {
	if err = p.IntegrandBase.InitElement(MNPC, fe, X0, nPt, elm); err != nil {
		return
	}
	if p.SourceField == "" {
		return
	}
	if src := *p.NamedVector(p.SourceField); len(src) > 0 {
		elm.(*elmMats).source, err = integrand.ExtractElementVector(src, MNPC, 1)
	}
	return
}

func (p *Poisson) HasBoundaryTerms() bool { return p.Flux != nil }

func (p *Poisson) source(em *elmMats, fe *integrand.FiniteElement, X []float64) (f float64, err error) {
	if p.Source != nil {
		f = p.Source(X)
	}
	if p.SourceField == "" {
		return
	}
	if em.source.V != nil {
		for a, N := range fe.N {
			f += N * em.source.AtVec(a)
		}
		return
	}
	var fld integrand.Field
	if fld, err = p.NamedField(p.SourceField); err != nil {
		// the providing simulator has not published the field yet
		return f, nil
	}
	var val []float64
	if val, err = fld.ValueAt(fe.U); err != nil {
		return
	}
	f += val[0]
	return
}

func (p *Poisson) Evaluate(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X []float64) (err error) {
	var (
		em   = elm.(*elmMats)
		nen  = len(fe.N)
		dNdX = fe.DNdX
		w    = fe.DetJxW
	)
	if !em.RHSOnly {
		A := em.A[0]
		for a := 0; a < nen; a++ {
			for b := 0; b < nen; b++ {
				var dot float64
				for d := 0; d < p.nsd; d++ {
					dot += dNdX.At(a, d) * dNdX.At(b, d)
				}
				A.AddAt(a, b, p.Kappa*dot*w)
			}
		}
	}
	var f float64
	if f, err = p.source(em, fe, X); err != nil {
		return
	}
	if f != 0 {
		em.B[0].AddScaled(f*w, utils.NewVector(nen, fe.N))
	}
	return
}

func (p *Poisson) EvaluateBou(elm integrand.LocalIntegral, fe *integrand.FiniteElement, time types.TimeDomain,
	X, normal []float64) error {
	if p.Flux == nil {
		return nil
	}
	q := p.Flux(X, normal)
	elm.(*elmMats).B[0].AddScaled(q*fe.DetJxW, utils.NewVector(len(fe.N), fe.N))
	return nil
}

// EvalSol returns the flux -κ∇u
func (p *Poisson) EvalSol(fe *integrand.FiniteElement, X []float64, MNPC []int) (q []float64, err error) {
	if len(p.PrimSol) == 0 {
		return nil, integrand.ErrNoSolution
	}
	var ue utils.Vector
	if ue, err = integrand.ExtractElementVector(p.PrimSol[0].Data(), MNPC, 1); err != nil {
		return
	}
	q = make([]float64, p.nsd)
	for d := range q {
		for a := range MNPC {
			q[d] -= p.Kappa * fe.DNdX.At(a, d) * ue.AtVec(a)
		}
	}
	return
}

func (p *Poisson) NumFields(which int) int {
	if which == 2 {
		return p.nsd
	}
	return 1
}

func (p *Poisson) FieldName(which, i int) string {
	if which == 1 {
		return "u"
	}
	return fmt.Sprintf("q_%c", 'x'+i)
}
