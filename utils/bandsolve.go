package utils

import (
	"math"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// reverseCuthillMcKee returns a renumbering of the rows and columns of a
// square sparse matrix that narrows its band, perm[new] = old. The
// structure is symmetrized first.
func reverseCuthillMcKee(csr *sparse.CSR) (perm []int) {
	n, _ := csr.Dims()
	adj := make([][]int, n)
	csr.DoNonZero(func(i, j int, v float64) {
		if i != j {
			adj[i] = append(adj[i], j)
			adj[j] = append(adj[j], i)
		}
	})
	for i := range adj {
		adj[i] = Index(adj[i]).Unique()
	}
	var (
		visited = make([]bool, n)
		byDeg   = func(list []int) {
			sort.SliceStable(list, func(a, b int) bool { return len(adj[list[a]]) < len(adj[list[b]]) })
		}
		roots = NewRange(0, n-1)
	)
	byDeg(roots)
	perm = make([]int, 0, n)
	for _, root := range roots {
		if visited[root] {
			continue
		}
		visited[root] = true
		perm = append(perm, root)
		for head := len(perm) - 1; head < len(perm); head++ {
			var next []int
			for _, j := range adj[perm[head]] {
				if !visited[j] {
					visited[j] = true
					next = append(next, j)
				}
			}
			byDeg(next)
			perm = append(perm, next...)
		}
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		perm[i], perm[j] = perm[j], perm[i]
	}
	return
}

// bandSystem is a square sparse matrix seen in a band renumbering
type bandSystem struct {
	csr       *sparse.CSR
	n, kl, ku int
	perm, inv []int // band to matrix numbering and back
	symmetric bool
	aMax      float64
}

func newBandSystem(csr *sparse.CSR, perm []int) (bs *bandSystem) {
	n, _ := csr.Dims()
	bs = &bandSystem{
		csr:       csr,
		n:         n,
		perm:      perm,
		inv:       make([]int, n),
		symmetric: true,
	}
	for k, i := range perm {
		bs.inv[i] = k
	}
	csr.DoNonZero(func(i, j int, v float64) {
		if d := bs.inv[i] - bs.inv[j]; d > bs.kl {
			bs.kl = d
		} else if -d > bs.ku {
			bs.ku = -d
		}
		bs.aMax = math.Max(bs.aMax, math.Abs(v))
	})
	tol := NODETOL * bs.aMax
	csr.DoNonZero(func(i, j int, v float64) {
		if i != j && math.Abs(v-csr.At(j, i)) > tol {
			bs.symmetric = false
		}
	})
	return
}

// Bandwidth returns the lower and upper bandwidth in the band numbering
func (bs *bandSystem) Bandwidth() (kl, ku int) { return bs.kl, bs.ku }

// solveCholesky solves into X and reports false when the matrix is not
// positive definite or too badly conditioned for the Cholesky factor
func (bs *bandSystem) solveCholesky(B, X Matrix) bool {
	if bs.n == 0 {
		return false
	}
	sb := mat.NewSymBandDense(bs.n, max(bs.kl, bs.ku), nil)
	bs.csr.DoNonZero(func(i, j int, v float64) {
		if bi, bj := bs.inv[i], bs.inv[j]; bi <= bj {
			sb.SetSymBand(bi, bj, v)
		}
	})
	var ch mat.BandCholesky
	if !ch.Factorize(sb) {
		return false
	}
	var (
		_, nc = B.Dims()
		Bp    = mat.NewDense(bs.n, nc, nil)
		Xp    mat.Dense
	)
	for bi, i := range bs.perm {
		for c := 0; c < nc; c++ {
			Bp.Set(bi, c, B.At(i, c))
		}
	}
	if err := ch.SolveTo(&Xp, Bp); err != nil {
		return false
	}
	for bi, i := range bs.perm {
		for c := 0; c < nc; c++ {
			X.M.Set(i, c, Xp.At(bi, c))
		}
	}
	return true
}

// solveLU factorizes by Gaussian elimination with partial pivoting within the
// band. Row r holds columns r-kl through r+ku+kl, the upper part widened by
// kl for the fill from row interchanges.
func (bs *bandSystem) solveLU(B, X Matrix) (err error) {
	var (
		n, kl, ku = bs.n, bs.kl, bs.ku
		w         = 2*kl + ku + 1
		ab        = make([]float64, n*w)
		mult      = make([]float64, n*kl)
		piv       = make([]int, n)
		at        = func(r, c int) *float64 { return &ab[r*w+c-r+kl] }
		tol       = ZEROTOL * bs.aMax
	)
	if n == 0 {
		return ErrSingular
	}
	bs.csr.DoNonZero(func(i, j int, v float64) {
		*at(bs.inv[i], bs.inv[j]) = v
	})
	for k := 0; k < n; k++ {
		var (
			last = min(n-1, k+kl)
			cMax = min(n-1, k+ku+kl)
			p    = k
		)
		for i := k + 1; i <= last; i++ {
			if math.Abs(*at(i, k)) > math.Abs(*at(p, k)) {
				p = i
			}
		}
		if math.Abs(*at(p, k)) <= tol {
			return ErrSingular
		}
		piv[k] = p
		if p != k {
			for c := k; c <= cMax; c++ {
				*at(k, c), *at(p, c) = *at(p, c), *at(k, c)
			}
		}
		pivot := *at(k, k)
		for i := k + 1; i <= last; i++ {
			l := *at(i, k) / pivot
			mult[k*kl+i-k-1] = l
			if l == 0 {
				continue
			}
			for c := k + 1; c <= cMax; c++ {
				*at(i, c) -= l * *at(k, c)
			}
		}
	}
	var (
		_, nc = B.Dims()
		x     = make([]float64, n)
	)
	for c := 0; c < nc; c++ {
		for bi, i := range bs.perm {
			x[bi] = B.At(i, c)
		}
		for k := 0; k < n; k++ {
			if p := piv[k]; p != k {
				x[k], x[p] = x[p], x[k]
			}
			for i := k + 1; i <= min(n-1, k+kl); i++ {
				x[i] -= mult[k*kl+i-k-1] * x[k]
			}
		}
		for k := n - 1; k >= 0; k-- {
			s := x[k]
			for j := k + 1; j <= min(n-1, k+ku+kl); j++ {
				s -= *at(k, j) * x[j]
			}
			x[k] = s / *at(k, k)
		}
		for bi, i := range bs.perm {
			X.M.Set(i, c, x[bi])
		}
	}
	return
}
