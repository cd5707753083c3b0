// Package asm holds the spline patches and the algorithms that run over
// them: element assembly, boundary integration and recovery of secondary
// fields onto the spline basis.
package asm

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDirection  = errors.New("asm: invalid parameter direction")
	ErrTopology          = errors.New("asm: topology error")
	ErrRationalSpline    = errors.New("asm: rational splines are not supported")
	ErrSizeMismatch      = errors.New("asm: mismatching array sizes")
	ErrSingularSystem    = errors.New("asm: singular equation system")
	ErrNoTopology        = errors.New("asm: FE topology not generated")
	ErrTooFewGaussPoints = errors.New("asm: too few Gauss points")
	ErrUnsupported       = errors.New("asm: operation not supported by this patch")
)

// SCRSupport selects the element set used for the local fits in
// superconvergent recovery
type SCRSupport uint8

const (
	// ExtendedSupport fits over the union of the supports of all functions
	// overlapping the current one
	ExtendedSupport SCRSupport = iota
	// HeuristicSupport fits over the function's own support unless that holds
	// too few samples for the polynomial
	HeuristicSupport
)

func (s SCRSupport) String() string {
	if s == HeuristicSupport {
		return "heuristic"
	}
	return "extended"
}

// ASMConfig is the immutable configuration a patch is built with
type ASMConfig struct {
	// GeoUsesBasis1 lets basis 1 of a mixed patch define the geometry
	GeoUsesBasis1 bool
	// UseCpminus1 raises the order of basis 1 of a mixed patch with maximum
	// continuity instead of keeping the geometry continuity
	UseCpminus1 bool
	// UseLowOrderBasis1 swaps the bases of a mixed patch so that basis 1 has
	// the geometry order
	UseLowOrderBasis1 bool
	// NGauss is the number of Gauss points per direction, 0 selects the
	// highest basis order
	NGauss         int
	ParallelDegree int
	SCRSupport     SCRSupport
	Verbose        bool
}

func DefaultConfig() ASMConfig {
	return ASMConfig{
		ParallelDegree: 1,
		SCRSupport:     ExtendedSupport,
	}
}

func (cfg ASMConfig) validate() error {
	if cfg.NGauss < 0 {
		return fmt.Errorf("%d Gauss points: %w", cfg.NGauss, ErrTooFewGaussPoints)
	}
	return nil
}
