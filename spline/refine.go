package spline

import (
	"fmt"
	"sort"

	"github.com/notargets/goiga/utils"
)

// Knot insertion and order elevation are both done by interpolating the
// current spline at the Greville points of the new basis. When the old space
// is contained in the new one, which holds for knot insertion and for
// continuity preserving order elevation, the result is exact.

// InsertKnots inserts the given interior knot values in one direction
func (s *Spline) InsertKnots(dir int, values []float64) error {
	if dir < 0 || dir >= len(s.Orders) {
		return fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
	}
	if len(values) == 0 {
		return nil
	}
	var (
		start, end = s.ParamRange(dir)
		k          = s.Orders[dir]
		newT       = append([]float64{}, s.Knots[dir]...)
	)
	for _, v := range values {
		if v <= start || v >= end {
			return fmt.Errorf("knot value %g outside (%g,%g): %w", v, start, end, ErrParameter)
		}
		newT = append(newT, v)
	}
	sort.Float64s(newT)
	_, mult := distinctKnots(newT[k : len(newT)-k])
	for _, m := range mult {
		if m >= k {
			return fmt.Errorf("interior knot multiplicity %d with order %d: %w", m, k, ErrKnotVector)
		}
	}
	return s.reinterpolate(dir, newT, k)
}

// UniformRefine inserts nInsert equally spaced knots in every non-empty span
func (s *Spline) UniformRefine(dir, nInsert int) error {
	if dir < 0 || dir >= len(s.Orders) {
		return fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
	}
	xi := make([]float64, nInsert)
	for i := range xi {
		xi[i] = float64(i+1) / float64(nInsert+1)
	}
	return s.RefineRelative(dir, xi)
}

// RefineRelative inserts knots at the relative positions xi, 0 < xi < 1,
// within every non-empty span of one direction
func (s *Spline) RefineRelative(dir int, xi []float64) error {
	if dir < 0 || dir >= len(s.Orders) {
		return fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
	}
	var (
		t      = s.Knots[dir]
		values []float64
	)
	for _, sp := range s.spans[dir] {
		for _, x := range xi {
			if x > 0 && x < 1 {
				values = append(values, t[sp]+x*(t[sp+1]-t[sp]))
			}
		}
	}
	return s.InsertKnots(dir, values)
}

// RaiseOrder elevates the order of one direction by r, raising every knot
// multiplicity by r so that the continuity and the geometry are kept.
func (s *Spline) RaiseOrder(dir, r int) error {
	return s.raise(dir, r, true)
}

// RaiseOrderSmooth elevates the order of one direction by r while keeping the
// knot multiplicities, which raises the inter-element continuity by r. The new
// coefficients interpolate the old spline at the new Greville points.
func (s *Spline) RaiseOrderSmooth(dir, r int) error {
	return s.raise(dir, r, false)
}

func (s *Spline) raise(dir, r int, keepContinuity bool) error {
	if dir < 0 || dir >= len(s.Orders) {
		return fmt.Errorf("direction %d: %w", dir, ErrInvalidDirection)
	}
	if r < 0 {
		return fmt.Errorf("order raise %d: %w", r, ErrInvalidOrder)
	}
	if r == 0 {
		return nil
	}
	var (
		k          = s.Orders[dir]
		start, end = s.ParamRange(dir)
		vals, mult = distinctKnots(s.Knots[dir][k : len(s.Knots[dir])-k])
		newT       []float64
	)
	for i := 0; i < k+r; i++ {
		newT = append(newT, start)
	}
	for i, v := range vals {
		m := mult[i]
		if keepContinuity {
			m += r
		}
		for j := 0; j < m; j++ {
			newT = append(newT, v)
		}
	}
	for i := 0; i < k+r; i++ {
		newT = append(newT, end)
	}
	return s.reinterpolate(dir, newT, k+r)
}

// reinterpolate replaces the basis of one direction and computes the new
// coefficients line by line in homogeneous form
func (s *Spline) reinterpolate(dir int, newT []float64, newOrder int) (err error) {
	var (
		T utils.Matrix
	)
	if T, err = transferMatrix(s.Knots[dir], s.Orders[dir], newT, newOrder); err != nil {
		return
	}
	var (
		npd    = len(s.Orders)
		oldN   = make([]int, npd)
		newN   = make([]int, npd)
		nNew   = len(newT) - newOrder
		rat    = s.Weights != nil
		ncomp  = s.Dim
		nTot   = 1
		stride = 1
	)
	if rat {
		ncomp++
	}
	for d := 0; d < npd; d++ {
		oldN[d] = s.NumCoefs(d)
		newN[d] = oldN[d]
		if d == dir {
			newN[d] = nNew
		}
		nTot *= newN[d]
		if d < dir {
			stride *= oldN[d]
		}
	}
	// homogeneous input coefficients, ncomp per function
	old := make([]float64, s.NumBasisFunctions()*ncomp)
	for i := 0; i < s.NumBasisFunctions(); i++ {
		w := 1.
		if rat {
			w = s.Weights[i]
			old[i*ncomp+s.Dim] = w
		}
		for c := 0; c < s.Dim; c++ {
			old[i*ncomp+c] = s.Coefs[i*s.Dim+c] * w
		}
	}
	res := make([]float64, nTot*ncomp)
	var (
		nOldDir  = oldN[dir]
		nOuter   = 1
		newInner = stride
	)
	for d := dir + 1; d < npd; d++ {
		nOuter *= oldN[d]
	}
	for outer := 0; outer < nOuter; outer++ {
		for inner := 0; inner < stride; inner++ {
			for j := 0; j < nNew; j++ {
				iNew := inner + newInner*(j+nNew*outer)
				for i := 0; i < nOldDir; i++ {
					tji := T.At(j, i)
					if tji == 0 {
						continue
					}
					iOld := inner + stride*(i+nOldDir*outer)
					for c := 0; c < ncomp; c++ {
						res[iNew*ncomp+c] += tji * old[iOld*ncomp+c]
					}
				}
			}
		}
	}
	s.Knots[dir] = newT
	s.Orders[dir] = newOrder
	s.Coefs = make([]float64, nTot*s.Dim)
	if rat {
		s.Weights = make([]float64, nTot)
	}
	for i := 0; i < nTot; i++ {
		w := 1.
		if rat {
			w = res[i*ncomp+s.Dim]
			s.Weights[i] = w
		}
		for c := 0; c < s.Dim; c++ {
			s.Coefs[i*s.Dim+c] = res[i*ncomp+c] / w
		}
	}
	s.update()
	return
}

// transferMatrix returns T such that the new coefficients are T times the old
// ones, found by collocation at the Greville points of the new basis
func transferMatrix(oldT []float64, oldOrder int, newT []float64, newOrder int) (T utils.Matrix, err error) {
	var (
		nOld = len(oldT) - oldOrder
		nNew = len(newT) - newOrder
		A    = utils.NewMatrix(nNew, nNew)
		B    = utils.NewMatrix(nNew, nOld)
		ders [][]float64
		work bsplineWork
	)
	for j := 0; j < nNew; j++ {
		g := grevilleAbscissa(newT, newOrder, j)
		sp := findSpan(newT, newOrder, g)
		ders = dersBasisFuns(newT, newOrder, sp, g, 0, ders, &work)
		for a := 0; a < newOrder; a++ {
			A.Set(j, sp-newOrder+1+a, ders[0][a])
		}
		sp = findSpan(oldT, oldOrder, g)
		ders = dersBasisFuns(oldT, oldOrder, sp, g, 0, ders, &work)
		for a := 0; a < oldOrder; a++ {
			B.Set(j, sp-oldOrder+1+a, ders[0][a])
		}
	}
	if T, err = A.Solve(B); err != nil {
		err = fmt.Errorf("collocation at Greville points: %w", err)
	}
	return
}
