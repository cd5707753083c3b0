package asm

import (
	"fmt"
	"math"
	"os"

	"github.com/notargets/goiga/integrand"
	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/types"
	"github.com/notargets/goiga/utils"
)

// Kind tags the basis representation of a patch
type Kind uint8

const (
	Structured Kind = iota
	Unstructured
)

func (k Kind) String() string {
	if k == Unstructured {
		return "unstructured"
	}
	return "structured"
}

// Constraint fixes one component of one patch-local node. Code is passed on to
// the equation system, 0 means homogeneous.
type Constraint struct {
	Node int
	Dof  int // component, 1-based
	Code int
}

// Patch is one spline patch of a model. Refinement and order elevation
// invalidate the FE topology, which must then be regenerated before any
// integration or projection.
type Patch interface {
	Dimension() int
	NumSpaceDims() int
	Kind() Kind
	NumBases() int
	Config() ASMConfig

	Refine(dir int, xi []float64) error
	UniformRefine(dir, nInsert int) error
	RaiseOrder(r ...int) error
	RefineElements(ids []int) error

	GenerateFEMTopology() error
	Clear(retainGeometry bool)
	NumElements() int
	NumNodes(basis int) int
	NumFields(basis int) int
	NumDOFs() int
	MNPC(iel int) []int
	MLGN() []int
	SetGlobalNodeOffset(offset int)
	SetElementOffset(offset int)
	GetCoord(inod int) []float64
	GetElementCoordinates(iel int) (utils.Matrix, error)
	GetNodalCoordinates() utils.Matrix
	UpdateCoords(displ []float64) error
	Basis(b int) spline.Basis
	Geometry() spline.Basis

	ConstrainEdge(dir, dof, code int, basis ...int) int
	ConstrainCorner(signs []int, dof, code int, basis ...int) int
	ConstrainNode(xi []float64, dof, code int, basis ...int) int
	Constraints() []Constraint

	ExtractNodeVec(global []float64, ncomp, basis int) ([]float64, error)
	InjectNodeVec(local, global []float64, ncomp, basis int) error

	Integrate(prob integrand.Integrand, glInt integrand.GlobalIntegral, time types.TimeDomain) error
	IntegrateBoundary(prob integrand.Integrand, lIndex int, glInt integrand.GlobalIntegral, time types.TimeDomain) error

	GetGrevilleParameters(dir int) ([]float64, error)
	EvalSolution(prob integrand.Integrand, gpar [][]float64, regular bool) (utils.Matrix, error)
	RegularInterpolation(gpar [][]float64, regular bool, values utils.Matrix) (spline.Basis, error)
	ProjectSolution(prob integrand.Integrand) (spline.Basis, error)
	L2Projection(prob integrand.Integrand, continuous bool) (spline.Basis, error)
	SCRecovery(prob integrand.Integrand) (spline.Basis, error)
	Project(prob integrand.Integrand, method types.ProjectionMethod) (spline.Basis, error)
}

// basePatch holds the state and algorithms shared by the structured and the
// unstructured patch. The geometry is always one of the solution bases.
type basePatch struct {
	cfg    ASMConfig
	kind   Kind
	nsd    int
	nf     []int          // fields per basis
	bases  []spline.Basis // solution bases, 1 or 2
	geoIdx int            // index of the geometry basis in bases

	mnpc        [][]int // basis 1 nodes followed by basis 2 nodes, patch-local
	nb          []int   // nodes per basis
	mlgn        []int
	nodeOffset  int
	elmOffset   int
	constraints []Constraint
	topo        bool
}

func newBasePatch(kind Kind, nsd int, nf []int, cfg ASMConfig) (bp basePatch, err error) {
	if err = cfg.validate(); err != nil {
		return
	}
	if len(nf) < 1 || len(nf) > 2 {
		err = fmt.Errorf("%d bases: %w", len(nf), ErrUnsupported)
		return
	}
	if cfg.ParallelDegree < 1 {
		cfg.ParallelDegree = 1
	}
	bp = basePatch{
		cfg:  cfg,
		kind: kind,
		nsd:  nsd,
		nf:   append([]int{}, nf...),
	}
	return
}

func (bp *basePatch) Kind() Kind        { return bp.kind }
func (bp *basePatch) NumBases() int     { return len(bp.nf) }
func (bp *basePatch) NumSpaceDims() int { return bp.nsd }
func (bp *basePatch) Config() ASMConfig { return bp.cfg }
func (bp *basePatch) MNPC(iel int) []int {
	return bp.mnpc[iel]
}

func (bp *basePatch) Dimension() int {
	if len(bp.bases) == 0 {
		return 0
	}
	return bp.bases[0].NumParamDirs()
}

func (bp *basePatch) NumElements() int {
	if !bp.topo {
		return 0
	}
	return len(bp.mnpc)
}

// NumNodes returns the number of nodes of basis b, or of all bases for b=0
func (bp *basePatch) NumNodes(b int) (n int) {
	if b > 0 && b <= len(bp.nb) {
		return bp.nb[b-1]
	}
	for _, nb := range bp.nb {
		n += nb
	}
	return
}

// NumFields returns the field count of basis b, or the sum over bases for b=0
func (bp *basePatch) NumFields(b int) (n int) {
	if b > 0 && b <= len(bp.nf) {
		return bp.nf[b-1]
	}
	for _, nf := range bp.nf {
		n += nf
	}
	return
}

func (bp *basePatch) NumDOFs() (n int) {
	for b, nb := range bp.nb {
		n += nb * bp.nf[b]
	}
	return
}

func (bp *basePatch) MLGN() []int { return bp.mlgn }

func (bp *basePatch) SetGlobalNodeOffset(offset int) {
	bp.nodeOffset = offset
	for i := range bp.mlgn {
		bp.mlgn[i] = offset + i
	}
}

func (bp *basePatch) SetElementOffset(offset int) { bp.elmOffset = offset }

func (bp *basePatch) Basis(b int) spline.Basis {
	if b < 1 || b > len(bp.bases) {
		return nil
	}
	return bp.bases[b-1]
}

func (bp *basePatch) Geometry() spline.Basis {
	if len(bp.bases) == 0 {
		return nil
	}
	return bp.bases[bp.geoIdx]
}

func (bp *basePatch) geo() spline.Basis { return bp.bases[bp.geoIdx] }

// buildTopology numbers the nodes of the current bases and builds the element
// connectivity
func (bp *basePatch) buildTopology() (err error) {
	var (
		nel = bp.bases[0].NumElements()
	)
	for b, basis := range bp.bases {
		if basis.NumElements() != nel {
			err = fmt.Errorf("basis %d has %d elements, basis 1 has %d: %w",
				b+1, basis.NumElements(), nel, ErrTopology)
			fmt.Fprintf(os.Stderr, " *** asm.GenerateFEMTopology: %v\n", err)
			return
		}
	}
	bp.nb = make([]int, len(bp.bases))
	for b, basis := range bp.bases {
		bp.nb[b] = basis.NumBasisFunctions()
	}
	bp.mnpc = make([][]int, nel)
	for iel := 0; iel < nel; iel++ {
		ofs := 0
		for b, basis := range bp.bases {
			for _, f := range basis.ElementFunctions(iel) {
				bp.mnpc[iel] = append(bp.mnpc[iel], ofs+f)
			}
			ofs += bp.nb[b]
		}
	}
	bp.mlgn = make([]int, bp.NumNodes(0))
	bp.SetGlobalNodeOffset(bp.nodeOffset)
	bp.topo = true
	if bp.cfg.Verbose {
		fmt.Printf("Patch topology: %d elements, %d nodes, %d dofs\n", nel, len(bp.mlgn), bp.NumDOFs())
	}
	return
}

// invalidate drops the topology and the constraints, whose node numbers
// refer to it
func (bp *basePatch) invalidate() {
	bp.topo = false
	bp.mnpc = nil
	bp.constraints = nil
}

func (bp *basePatch) Clear(retainGeometry bool) {
	bp.invalidate()
	bp.mlgn = nil
	bp.nb = nil
	if !retainGeometry {
		bp.bases = nil
	}
}

// elementNodes returns the patch-local nodes of basis b (1-based) on an element
func (bp *basePatch) elementNodes(iel, b int) []int {
	var (
		lo = 0
		m  = bp.mnpc[iel]
	)
	for i := 0; i < b-1; i++ {
		lo += len(bp.bases[i].ElementFunctions(iel))
	}
	return m[lo : lo+len(bp.bases[b-1].ElementFunctions(iel))]
}

func (bp *basePatch) elementSizes(iel int) (nen []int) {
	nen = make([]int, len(bp.bases))
	for b, basis := range bp.bases {
		nen[b] = len(basis.ElementFunctions(iel))
	}
	return
}

// nodeBasis locates the basis of a patch-local node
func (bp *basePatch) nodeBasis(inod int) (b, local int) {
	local = inod
	for b = 0; b < len(bp.nb); b++ {
		if local < bp.nb[b] {
			return
		}
		local -= bp.nb[b]
	}
	return -1, -1
}

func (bp *basePatch) GetCoord(inod int) (X []float64) {
	b, i := bp.nodeBasis(inod)
	if b < 0 || !bp.topo {
		return nil
	}
	var (
		basis = bp.bases[b]
		dim   = basis.Dimension()
		cps   = basis.ControlPoints()
	)
	X = make([]float64, bp.nsd)
	copy(X, cps[i*dim:i*dim+min(dim, bp.nsd)])
	return
}

// GetElementCoordinates returns the nsd x nen control points of the geometry
// basis functions supported on an element
func (bp *basePatch) GetElementCoordinates(iel int) (Xnod utils.Matrix, err error) {
	err = bp.elementCoordinates(iel, &Xnod)
	return
}

func (bp *basePatch) elementCoordinates(iel int, Xnod *utils.Matrix) (err error) {
	if !bp.topo {
		return ErrNoTopology
	}
	if iel < 0 || iel >= len(bp.mnpc) {
		return fmt.Errorf("element %d of %d: %w", iel, len(bp.mnpc), ErrTopology)
	}
	var (
		geo   = bp.geo()
		funcs = geo.ElementFunctions(iel)
		dim   = geo.Dimension()
		cps   = geo.ControlPoints()
	)
	Xnod.Resize(bp.nsd, len(funcs))
	for a, f := range funcs {
		for d := 0; d < bp.nsd && d < dim; d++ {
			Xnod.Set(d, a, cps[f*dim+d])
		}
	}
	return
}

// GetNodalCoordinates returns nsd x nnod control point coordinates of all
// nodes, basis 1 first
func (bp *basePatch) GetNodalCoordinates() (X utils.Matrix) {
	n := bp.NumNodes(0)
	X = utils.NewMatrix(bp.nsd, n)
	for inod := 0; inod < n; inod++ {
		for d, x := range bp.GetCoord(inod) {
			X.Set(d, inod, x)
		}
	}
	return
}

// UpdateCoords adds a nodal displacement field, nsd values per geometry basis
// node, to the geometry control points
func (bp *basePatch) UpdateCoords(displ []float64) (err error) {
	geo := bp.geo()
	if geo.Rational() {
		err = fmt.Errorf("coordinate update: %w", ErrRationalSpline)
		return
	}
	var (
		n   = geo.NumBasisFunctions()
		dim = geo.Dimension()
	)
	if len(displ) != n*bp.nsd {
		err = fmt.Errorf("%d displacement values for %d nodes: %w", len(displ), n, ErrSizeMismatch)
		return
	}
	coefs := append([]float64{}, geo.ControlPoints()...)
	for i := 0; i < n; i++ {
		for d := 0; d < bp.nsd && d < dim; d++ {
			coefs[i*dim+d] += displ[i*bp.nsd+d]
		}
	}
	bp.bases[bp.geoIdx] = geo.WithControlPoints(dim, coefs)
	return
}

func (bp *basePatch) checkTopology() error {
	if !bp.topo {
		return ErrNoTopology
	}
	return nil
}

func (bp *basePatch) basisIndex(basis []int) int {
	if len(basis) == 0 || basis[0] < 1 {
		return 1
	}
	return basis[0]
}

// boundaryFunctions lists the functions of basis b whose Greville point lies on
// the boundary selected by signs, one entry per direction: -1 start, +1 end,
// 0 free
func (bp *basePatch) boundaryFunctions(b int, signs []int) (funcs []int) {
	var (
		basis = bp.bases[b-1]
		npd   = basis.NumParamDirs()
	)
	if len(signs) != npd {
		return
	}
	for i := 0; i < basis.NumBasisFunctions(); i++ {
		g := basis.GrevillePoint(i)
		match := true
		for d, s := range signs {
			if s == 0 {
				continue
			}
			start, end := basis.ParamRange(d)
			target := start
			if s > 0 {
				target = end
			}
			if math.Abs(g[d]-target) > utils.NODETOL*(end-start) {
				match = false
				break
			}
		}
		if match {
			funcs = append(funcs, i)
		}
	}
	return
}

// ConstrainEdge constrains all nodes on the boundary with outward parametric
// normal dir (±1..±npd). dof lists the constrained components as digits.
func (bp *basePatch) ConstrainEdge(dir, dof, code int, basis ...int) int {
	b := bp.basisIndex(basis)
	if !bp.topo || b > len(bp.bases) {
		return 0
	}
	npd := bp.bases[b-1].NumParamDirs()
	d := dir
	if d < 0 {
		d = -d
	}
	if d < 1 || d > npd {
		return 0
	}
	signs := make([]int, npd)
	signs[d-1] = 1
	if dir < 0 {
		signs[d-1] = -1
	}
	return bp.constrainFunctions(b, bp.boundaryFunctions(b, signs), dof, code)
}

// ConstrainCorner constrains the nodes at a corner, edge or face given by one
// sign per direction, 0 leaving that direction free
func (bp *basePatch) ConstrainCorner(signs []int, dof, code int, basis ...int) int {
	b := bp.basisIndex(basis)
	if !bp.topo || b > len(bp.bases) || len(signs) != bp.bases[b-1].NumParamDirs() {
		return 0
	}
	return bp.constrainFunctions(b, bp.boundaryFunctions(b, signs), dof, code)
}

func (bp *basePatch) constrainFunctions(b int, funcs []int, dof, code int) (n int) {
	ofs := 0
	for i := 0; i < b-1; i++ {
		ofs += bp.nb[i]
	}
	for _, f := range funcs {
		if bp.addConstraint(ofs+f, dof, code, bp.nf[b-1]) {
			n++
		}
	}
	return
}

func (bp *basePatch) addConstraint(node, dof, code, nf int) (added bool) {
	for ; dof > 0; dof /= 10 {
		c := dof % 10
		if c < 1 || c > nf {
			continue
		}
		found := false
		for i, con := range bp.constraints {
			if con.Node == node && con.Dof == c {
				bp.constraints[i].Code = code
				found = true
				break
			}
		}
		if !found {
			bp.constraints = append(bp.constraints, Constraint{Node: node, Dof: c, Code: code})
		}
		added = true
	}
	return
}

// nearestGreville returns the function of basis b whose Greville point is
// closest to the parameter point u
func nearestGreville(basis spline.Basis, u []float64) (best int) {
	dmin := math.Inf(1)
	for i := 0; i < basis.NumBasisFunctions(); i++ {
		var dist float64
		for d, g := range basis.GrevillePoint(i) {
			dist += (g - u[d]) * (g - u[d])
		}
		if dist < dmin {
			best, dmin = i, dist
		}
	}
	return
}

// relativeToParam maps relative coordinates in [0,1] to parameter values
func relativeToParam(basis spline.Basis, xi []float64) (u []float64, ok bool) {
	if len(xi) != basis.NumParamDirs() {
		return
	}
	u = make([]float64, len(xi))
	for d, r := range xi {
		if r < 0 || r > 1 {
			return nil, false
		}
		start, end := basis.ParamRange(d)
		u[d] = start + r*(end-start)
	}
	ok = true
	return
}

func (bp *basePatch) Constraints() []Constraint { return bp.constraints }

// ExtractNodeVec copies the ncomp values per node of the patch nodes of basis
// b (all bases for b=0) out of a global nodal vector
func (bp *basePatch) ExtractNodeVec(global []float64, ncomp, b int) (local []float64, err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	first, n := bp.nodeRange(b)
	local = make([]float64, n*ncomp)
	for i := 0; i < n; i++ {
		g := bp.mlgn[first+i]
		if (g+1)*ncomp > len(global) {
			err = fmt.Errorf("node %d with %d components in vector of length %d: %w",
				g, ncomp, len(global), ErrSizeMismatch)
			return
		}
		copy(local[i*ncomp:(i+1)*ncomp], global[g*ncomp:(g+1)*ncomp])
	}
	return
}

// InjectNodeVec is the inverse of ExtractNodeVec
func (bp *basePatch) InjectNodeVec(local, global []float64, ncomp, b int) (err error) {
	if err = bp.checkTopology(); err != nil {
		return
	}
	first, n := bp.nodeRange(b)
	if len(local) < n*ncomp {
		return fmt.Errorf("%d local values for %d nodes: %w", len(local), n, ErrSizeMismatch)
	}
	for i := 0; i < n; i++ {
		g := bp.mlgn[first+i]
		if (g+1)*ncomp > len(global) {
			return fmt.Errorf("node %d in vector of length %d: %w", g, len(global), ErrSizeMismatch)
		}
		copy(global[g*ncomp:(g+1)*ncomp], local[i*ncomp:(i+1)*ncomp])
	}
	return
}

func (bp *basePatch) nodeRange(b int) (first, n int) {
	if b < 1 || b > len(bp.nb) {
		return 0, bp.NumNodes(0)
	}
	for i := 0; i < b-1; i++ {
		first += bp.nb[i]
	}
	return first, bp.nb[b-1]
}

// mixedBases builds the solution bases from the geometry spline: a single
// basis is the geometry itself, a mixed pair is the geometry and an order
// raised copy, ordered and selected for the geometry by the configuration.
func mixedBases(geo *spline.Spline, nBases int, cfg ASMConfig) (bases []*spline.Spline, geoIdx int, err error) {
	if nBases == 1 {
		return []*spline.Spline{geo}, 0, nil
	}
	var (
		low  = geo.Copy()
		high = geo.Copy()
	)
	for d := 0; d < geo.NumParamDirs(); d++ {
		if cfg.UseCpminus1 {
			err = high.RaiseOrderSmooth(d, 1)
		} else {
			err = high.RaiseOrder(d, 1)
		}
		if err != nil {
			return
		}
	}
	bases = []*spline.Spline{high, low}
	if cfg.UseLowOrderBasis1 {
		bases = []*spline.Spline{low, high}
	}
	geoIdx = 1
	if cfg.GeoUsesBasis1 {
		geoIdx = 0
	}
	return
}
