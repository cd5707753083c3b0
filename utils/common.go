package utils

import "errors"

const (
	NODETOL = 1.e-12
	// ZEROTOL is the relative threshold below which a Jacobian determinant is
	// treated as singular
	ZEROTOL = 1.e-14
)

var (
	ErrSingular     = errors.New("utils: matrix is singular")
	ErrDimMismatch  = errors.New("utils: dimension mismatch")
	ErrReadOnlyData = errors.New("utils: attempt to write to read only data")
)
