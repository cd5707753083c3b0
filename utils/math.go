package utils

import (
	"math"
)

func POW(x float64, pp int) (y float64) {
	var (
		p       = pp
		flipped bool
	)
	if pp > 8 || pp < -8 {
		goto MATHPOW
	}

	if p < 0 {
		p = -pp
		flipped = true
	}
	switch p {
	case 0:
		y = 1
	case 1:
		y = x
	case 2:
		y = x * x
	case 3:
		y = x * x * x
	case 4:
		y = x * x
		y = y * y
	case 5:
		y = x * x
		y = y * y * x
	case 6:
		y = x * x
		y = y * y * y
	case 7:
		y = x * x
		y = y * y * y * x
	case 8:
		y = x * x
		y = y * y * y * y
	}
	if flipped {
		y = 1. / y
	}
	return

MATHPOW:
	y = math.Pow(x, float64(p))
	return
}

// Near reports whether a and b agree within tol, relative when the values are
// larger than one
func Near(a, b, tol float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= tol*scale
}

// Prod returns the product of a list of ints
func Prod(n []int) (p int) {
	p = 1
	for _, v := range n {
		p *= v
	}
	return
}

// TensorIndex converts a multi index, first direction fastest, into a flat index
func TensorIndex(idx, n []int) (ind int) {
	for d := len(n) - 1; d >= 0; d-- {
		ind = ind*n[d] + idx[d]
	}
	return
}

// TensorSplit converts a flat index into a multi index, first direction fastest
func TensorSplit(ind int, n []int, idx []int) []int {
	if len(idx) < len(n) {
		idx = make([]int, len(n))
	}
	for d := range n {
		idx[d] = ind % n[d]
		ind /= n[d]
	}
	return idx[:len(n)]
}
