package asm

import (
	"math"

	"github.com/notargets/goiga/spline"
	"github.com/notargets/goiga/utils"
	"gonum.org/v1/gonum/mat"
)

// ExtractBasis copies a spline evaluation into a value slice, an nen x npd
// derivative matrix and, when second derivatives were evaluated, an
// nen x npd x npd tensor. The local function order is kept.
func ExtractBasis(bd *spline.BasisDerivs, N []float64, dNdu *utils.Matrix, d2Ndu2 *utils.Matrix3D) []float64 {
	var (
		nen, npd = bd.Nen, bd.NPD
	)
	if cap(N) < nen {
		N = make([]float64, nen)
	}
	N = N[:nen]
	copy(N, bd.N)
	if bd.NDer > 0 && dNdu != nil {
		dNdu.Resize(nen, npd)
		copy(dNdu.Data(), bd.DNdu[:nen*npd])
	}
	if bd.NDer > 1 && d2Ndu2 != nil {
		d2Ndu2.Resize(nen, npd, npd)
		copy(d2Ndu2.Data(), bd.D2Ndu2[:nen*npd*npd])
	}
	return N
}

// Jacobian computes J = Xnod*dNdu (nsd x npd), its (pseudo) inverse Ji and the
// Cartesian gradients dNdX = dNdu*Ji. The returned determinant is
// sqrt(det(J^T J)) when nsd > npd. A zero return marks a degenerate point
// and leaves Ji and dNdX undefined.
func Jacobian(J, Ji, dNdX *utils.Matrix, Xnod, dNdu utils.Matrix) (detJ float64) {
	var (
		nsd, _   = Xnod.Dims()
		nen, npd = dNdu.Dims()
		scale    = 1.
	)
	if nsd < npd {
		return 0
	}
	J.Resize(nsd, npd)
	J.M.Mul(Xnod.M, dNdu.M)
	for d := 0; d < npd; d++ {
		var s float64
		for i := 0; i < nsd; i++ {
			s += J.At(i, d) * J.At(i, d)
		}
		scale *= math.Sqrt(s)
	}
	Ji.Resize(npd, nsd)
	if nsd == npd {
		detJ = mat.Det(J.M)
		if math.Abs(detJ) <= utils.ZEROTOL*scale {
			return 0
		}
		if err := Ji.M.Inverse(J.M); err != nil {
			return 0
		}
	} else {
		var JtJ, inv mat.Dense
		JtJ.Mul(J.M.T(), J.M)
		det := mat.Det(&JtJ)
		if det <= utils.ZEROTOL*scale*scale {
			return 0
		}
		detJ = math.Sqrt(det)
		if err := inv.Inverse(&JtJ); err != nil {
			return 0
		}
		Ji.M.Mul(&inv, J.M.T())
	}
	dNdX.Resize(nen, nsd)
	dNdX.M.Mul(dNdu.M, Ji.M)
	return
}

// GeometryHessian forms the second parametric derivatives of the geometry
// mapping, H[m][d][e] = sum_a Xnod[m][a]*d2Ndu2[a][d][e]
func GeometryHessian(H *utils.Matrix3D, Xnod utils.Matrix, d2Ndu2 utils.Matrix3D) {
	var (
		nsd, nen = Xnod.Dims()
		npd      = d2Ndu2.N2
	)
	H.Resize(nsd, npd, npd)
	H.Zero()
	for m := 0; m < nsd; m++ {
		for a := 0; a < nen; a++ {
			x := Xnod.At(m, a)
			for d := 0; d < npd; d++ {
				for e := 0; e < npd; e++ {
					H.AddAt(m, d, e, x*d2Ndu2.At(a, d, e))
				}
			}
		}
	}
}

// MapHessian computes the Cartesian second derivatives of a basis given the
// geometry Hessian H, the inverse Jacobian and the basis Cartesian gradients
func MapHessian(d2NdX2 *utils.Matrix3D, H utils.Matrix3D, Ji utils.Matrix, d2Ndu2 utils.Matrix3D, dNdX utils.Matrix) {
	var (
		nen, npd = d2Ndu2.N1, d2Ndu2.N2
		_, nsd   = Ji.Dims()
		tmp      [3][3]float64
	)
	d2NdX2.Resize(nen, nsd, nsd)
	d2NdX2.Zero()
	for a := 0; a < nen; a++ {
		for d := 0; d < npd; d++ {
			for e := 0; e < npd; e++ {
				v := d2Ndu2.At(a, d, e)
				for m := 0; m < nsd; m++ {
					v -= dNdX.At(a, m) * H.At(m, d, e)
				}
				tmp[d][e] = v
			}
		}
		for i := 0; i < nsd; i++ {
			for j := 0; j < nsd; j++ {
				var v float64
				for d := 0; d < npd; d++ {
					for e := 0; e < npd; e++ {
						v += Ji.At(d, i) * tmp[d][e] * Ji.At(e, j)
					}
				}
				d2NdX2.Set(a, i, j, v)
			}
		}
	}
}

// Hessian computes the Cartesian second derivatives of the geometry basis
// itself, H receiving the geometry Hessian
func Hessian(H, d2NdX2 *utils.Matrix3D, Ji, Xnod utils.Matrix, d2Ndu2 utils.Matrix3D, dNdX utils.Matrix) {
	GeometryHessian(H, Xnod, d2Ndu2)
	MapHessian(d2NdX2, *H, Ji, d2Ndu2, dNdX)
}

// BoundaryNormal computes the outward unit normal on the boundary with
// parametric normal lIndex (±1..±npd) and returns the surface measure
// factor, from Nanson's relation n dS = detJ Ji^T N dA
func BoundaryNormal(normal []float64, Ji utils.Matrix, detJ float64, lIndex int) (dS float64) {
	var (
		_, nsd = Ji.Dims()
		t      = lIndex
		sign   = 1.
		l      float64
	)
	if t < 0 {
		t, sign = -t, -1
	}
	t--
	for i := 0; i < nsd; i++ {
		l += Ji.At(t, i) * Ji.At(t, i)
	}
	l = math.Sqrt(l)
	if l == 0 {
		return 0
	}
	for i := 0; i < nsd && i < len(normal); i++ {
		normal[i] = sign * Ji.At(t, i) / l
	}
	return math.Abs(detJ) * l
}
