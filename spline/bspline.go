package spline

// findSpan returns the index s of the non-empty knot span [t_s, t_s+1)
// holding u, for a knot vector t with n = len(t)-order functions. Values at
// or beyond the end of the parameter range map to the last non-empty span.
func findSpan(t []float64, order int, u float64) int {
	var (
		n    = len(t) - order
		last = n - 1
	)
	for last > order-1 && t[last] >= t[last+1] {
		last--
	}
	if u >= t[last+1] {
		return last
	}
	lo, hi := order-1, last
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t[mid] <= u {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	for lo > order-1 && t[lo] >= t[lo+1] {
		lo--
	}
	return lo
}

// bsplineWork holds the tables of dersBasisFuns between calls
type bsplineWork struct {
	ndu         [][]float64
	left, right []float64
	a           [2][]float64
}

func (w *bsplineWork) resize(order int) {
	if len(w.left) >= order {
		return
	}
	w.ndu = make([][]float64, order)
	for j := range w.ndu {
		w.ndu[j] = make([]float64, order)
	}
	w.left = make([]float64, order)
	w.right = make([]float64, order)
	w.a = [2][]float64{make([]float64, order), make([]float64, order)}
}

// dersBasisFuns evaluates the order functions that are non-zero on span s,
// together with their derivatives up to nder. ders[k][j] is the k'th
// derivative of function s-order+1+j. ders and w are reused when large enough.
func dersBasisFuns(t []float64, order, s int, u float64, nder int, ders [][]float64, w *bsplineWork) [][]float64 {
	var (
		p = order - 1
	)
	if cap(ders) < nder+1 {
		ders = make([][]float64, nder+1)
	}
	ders = ders[:nder+1]
	for k := 0; k <= nder; k++ {
		if len(ders[k]) < order {
			ders[k] = make([]float64, order)
		}
		ders[k] = ders[k][:order]
		for j := range ders[k] {
			ders[k][j] = 0
		}
	}
	w.resize(order)
	var (
		ndu         = w.ndu
		left, right = w.left, w.right
		a           = w.a
	)
	ndu[0][0] = 1
	for j := 1; j <= p; j++ {
		left[j] = u - t[s+1-j]
		right[j] = t[s+j] - u
		saved := 0.
		for r := 0; r < j; r++ {
			ndu[j][r] = right[r+1] + left[j-r]
			temp := ndu[r][j-1] / ndu[j][r]
			ndu[r][j] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		ndu[j][j] = saved
	}
	for j := 0; j <= p; j++ {
		ders[0][j] = ndu[j][p]
	}
	n := nder
	if n > p {
		n = p
	}
	for r := 0; r <= p; r++ {
		s1, s2 := 0, 1
		a[0][0] = 1
		for k := 1; k <= n; k++ {
			var (
				d      float64
				rk, pk = r - k, p - k
				j1, j2 int
			)
			if r >= k {
				a[s2][0] = a[s1][0] / ndu[pk+1][rk]
				d = a[s2][0] * ndu[rk][pk]
			}
			if rk >= -1 {
				j1 = 1
			} else {
				j1 = -rk
			}
			if r-1 <= pk {
				j2 = k - 1
			} else {
				j2 = p - r
			}
			for j := j1; j <= j2; j++ {
				a[s2][j] = (a[s1][j] - a[s1][j-1]) / ndu[pk+1][rk+j]
				d += a[s2][j] * ndu[rk+j][pk]
			}
			if r <= pk {
				a[s2][k] = -a[s1][k-1] / ndu[pk+1][r]
				d += a[s2][k] * ndu[r][pk]
			}
			ders[k][r] = d
			s1, s2 = s2, s1
		}
	}
	r := float64(p)
	for k := 1; k <= n; k++ {
		for j := 0; j <= p; j++ {
			ders[k][j] *= r
		}
		r *= float64(p - k)
	}
	return ders
}

// singleBasis evaluates one B-spline defined by the local knot vector t
// (len(t) = order+1) and its derivatives up to nder, using the polynomial
// piece that covers the parameter interval [lo,hi].
func singleBasis(t []float64, lo, hi, u float64, nder int) (d [3]float64) {
	var (
		p = len(t) - 2
		j = -1
	)
	for i := 0; i <= p; i++ {
		if t[i] <= lo && hi <= t[i+1] && t[i] < t[i+1] {
			j = i
			break
		}
	}
	if j < 0 {
		return
	}
	// N[q][i] is the degree q function on knots t_i..t_i+q+1
	N := make([][]float64, p+1)
	N[0] = make([]float64, p+1)
	N[0][j] = 1
	for q := 1; q <= p; q++ {
		N[q] = make([]float64, p+1-q)
		for i := 0; i <= p-q; i++ {
			var val float64
			if den := t[i+q] - t[i]; den > 0 {
				val += (u - t[i]) / den * N[q-1][i]
			}
			if den := t[i+q+1] - t[i+1]; den > 0 {
				val += (t[i+q+1] - u) / den * N[q-1][i+1]
			}
			N[q][i] = val
		}
	}
	var deriv func(m, i, q int) float64
	deriv = func(m, i, q int) float64 {
		if m == 0 {
			return N[q][i]
		}
		if m > q {
			return 0
		}
		var val float64
		if den := t[i+q] - t[i]; den > 0 {
			val += deriv(m-1, i, q-1) / den
		}
		if den := t[i+q+1] - t[i+1]; den > 0 {
			val -= deriv(m-1, i+1, q-1) / den
		}
		return float64(q) * val
	}
	for m := 0; m <= nder && m < 3; m++ {
		d[m] = deriv(m, 0, p)
	}
	return
}

// grevilleAbscissa is the knot average for function i of the given order
func grevilleAbscissa(t []float64, order, i int) float64 {
	p := order - 1
	if p == 0 {
		return 0.5 * (t[i] + t[i+1])
	}
	var sum float64
	for j := i + 1; j <= i+p; j++ {
		sum += t[j]
	}
	return sum / float64(p)
}

// distinctKnots returns the distinct knot values and their multiplicities
func distinctKnots(t []float64) (vals []float64, mult []int) {
	for _, v := range t {
		if n := len(vals); n > 0 && v == vals[n-1] {
			mult[n-1]++
			continue
		}
		vals = append(vals, v)
		mult = append(mult, 1)
	}
	return
}
