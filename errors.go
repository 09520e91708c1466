package qdynamics

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage identifies which part of a run failed.
type Stage int

const (
	StageConfiguration Stage = iota
	StageHamiltonian
	StageDensityMatrix
	StagePropagation
)

func (s Stage) String() string {
	switch s {
	case StageConfiguration:
		return "configuration"
	case StageHamiltonian:
		return "hamiltonian construction"
	case StageDensityMatrix:
		return "density matrix construction"
	case StagePropagation:
		return "propagation"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Kind classifies a failure.
type Kind int

const (
	// KindMalformedMatrix is a non-square or otherwise unusable matrix.
	KindMalformedMatrix Kind = iota + 1
	// KindConfigurationMismatch is a coupling or energy array inconsistent with the number of sites.
	KindConfigurationMismatch
	// KindDimensionMismatch is a Hamiltonian and density matrix of different dimensions.
	KindDimensionMismatch
	// KindInvalidParameter is an out of range run parameter.
	KindInvalidParameter
)

func (k Kind) String() string {
	switch k {
	case KindMalformedMatrix:
		return "malformed matrix"
	case KindConfigurationMismatch:
		return "configuration mismatch"
	case KindDimensionMismatch:
		return "dimension mismatch"
	case KindInvalidParameter:
		return "invalid parameter"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a fatal run failure.
type Error struct {
	Stage  Stage
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Stage, e.Kind, e.Detail)
}

func newError(stage Stage, kind Kind, format string, args ...any) error {
	return errors.WithStack(&Error{Stage: stage, Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

// IsKind reports whether err wraps an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
