// Package quadrature provides Gauss-Legendre rules on the reference interval
// [-1,1], computed once per point count and shared by all assembly loops.
package quadrature

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

type rule struct {
	X, W []float64
}

var (
	cache   = make(map[int]rule)
	cacheMu sync.RWMutex
)

// GetCoord returns the n Gauss-Legendre abscissae in ascending order
func GetCoord(n int) []float64 {
	r, err := get(n)
	if err != nil {
		return nil
	}
	return r.X
}

// GetWeight returns the n Gauss-Legendre weights
func GetWeight(n int) []float64 {
	r, err := get(n)
	if err != nil {
		return nil
	}
	return r.W
}

// Rule returns both abscissae and weights. The slices are shared and must not
// be modified.
func Rule(n int) (X, W []float64, err error) {
	var r rule
	if r, err = get(n); err != nil {
		return
	}
	return r.X, r.W, nil
}

func get(n int) (r rule, err error) {
	if n < 1 {
		err = fmt.Errorf("quadrature: invalid number of Gauss points %d", n)
		return
	}
	var ok bool
	cacheMu.RLock()
	r, ok = cache[n]
	cacheMu.RUnlock()
	if ok {
		return
	}
	x, w := JacobiGQ(0, 0, n-1)
	r = rule{X: x, W: w}
	cacheMu.Lock()
	cache[n] = r
	cacheMu.Unlock()
	return
}

// JacobiGQ computes the N+1 point Gauss quadrature for the Jacobi weight
// (1-x)^alpha (1+x)^beta from the eigenvalues of the Jacobi matrix.
func JacobiGQ(alpha, beta float64, N int) (x, w []float64) {
	var (
		fac        float64
		h1, d0, d1 []float64
	)
	if N == 0 {
		x = []float64{-(alpha - beta) / (alpha + beta + 2.)}
		w = []float64{2.}
		return
	}

	h1 = make([]float64, N+1)
	for i := 0; i < N+1; i++ {
		h1[i] = 2*float64(i) + alpha + beta
	}

	// main diagonal: diag(-1/2*(alpha^2-beta^2)./(h1+2)./h1)
	d0 = make([]float64, N+1)
	fac = -.5 * (alpha*alpha - beta*beta)
	for i := 0; i < N+1; i++ {
		val := h1[i]
		d0[i] = fac / (val * (val + 2.))
	}
	// Handle division by zero
	eps := 1.e-16
	if alpha+beta < 10*eps {
		d0[0] = 0.
	}

	// 1st upper diagonal
	var ip1 float64
	d1 = make([]float64, N)
	for i := 0; i < N; i++ {
		ip1 = float64(i + 1)
		val := h1[i]
		d1[i] = 2. / (val + 2.)
		d1[i] *= math.Sqrt(ip1 * (ip1 + alpha + beta) * (ip1 + alpha) * (ip1 + beta) / ((val + 1.) * (val + 3.)))
	}

	JJ := mat.NewSymDense(N+1, nil)
	for i := 0; i < N+1; i++ {
		JJ.SetSym(i, i, d0[i])
		if i < N {
			JJ.SetSym(i, i+1, d1[i])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	x = eig.Values(nil)

	VVr := mat.NewDense(N+1, N+1, nil)
	eig.VectorsTo(VVr)
	g0 := gamma0(alpha, beta)
	w = make([]float64, N+1)
	for i := range w {
		v := VVr.At(0, i)
		w[i] = v * v * g0
	}
	// Snap the symmetric rule so that odd monomials integrate to round-off
	if alpha == beta {
		for i, j := 0, N; i < j; i, j = i+1, j-1 {
			xa := 0.5 * (x[j] - x[i])
			wa := 0.5 * (w[i] + w[j])
			x[i], x[j] = -xa, xa
			w[i], w[j] = wa, wa
		}
		if N%2 == 0 {
			x[N/2] = 0
		}
	}
	return
}

func gamma0(alpha, beta float64) float64 {
	ab1 := alpha + beta + 1.
	a1 := alpha + 1.
	b1 := beta + 1.
	return math.Gamma(a1) * math.Gamma(b1) * math.Pow(2, ab1) / ab1 / math.Gamma(ab1)
}

// ExpandTensorGrid expands per-direction parameter lists over the tensor grid,
// first direction running fastest. The result is direction major, out[d][ip]
// holds coordinate d of grid point ip.
func ExpandTensorGrid(in [][]float64) (out [][]float64) {
	var (
		npd = len(in)
		n   = 1
	)
	for _, p := range in {
		n *= len(p)
	}
	out = make([][]float64, npd)
	for d := range out {
		out[d] = make([]float64, n)
	}
	for ip := 0; ip < n; ip++ {
		rem := ip
		for d := 0; d < npd; d++ {
			out[d][ip] = in[d][rem%len(in[d])]
			rem /= len(in[d])
		}
	}
	return
}
