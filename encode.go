package qdynamics

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fumin/qdynamics/mat"
)

// encodedSolver is the stream form of a solver, its fields are in the order hamiltonian, density matrix,
// time step and step number.
type encodedSolver struct {
	Hamiltonian   [][]Complex `yaml:"hamiltonian"`
	DensityMatrix [][]Complex `yaml:"density_matrix"`
	TimeStep      float64     `yaml:"time_step"`
	Steps         int         `yaml:"step_num"`
}

// Encode writes the solver's configuration to w.
func (s *Solver) Encode(w io.Writer) error {
	if s.h == nil || s.r0 == nil {
		return errors.Errorf("matrices not initialized")
	}
	es := encodedSolver{
		Hamiltonian:   rows(s.h),
		DensityMatrix: rows(s.r0),
		TimeStep:      s.dt,
		Steps:         s.steps,
	}

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(es); err != nil {
		return errors.Wrap(err, "")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Decode reads a configuration written by Encode, validating it like the other initializers.
func (s *Solver) Decode(r io.Reader) error {
	var es encodedSolver
	if err := yaml.NewDecoder(r).Decode(&es); err != nil {
		return errors.Wrap(err, "")
	}

	h, err := fromRows(es.Hamiltonian)
	if err != nil {
		return newError(StageHamiltonian, KindMalformedMatrix, "%v", err)
	}
	if err := s.InitHamiltonian(h); err != nil {
		return errors.Wrap(err, "")
	}
	r0, err := fromRows(es.DensityMatrix)
	if err != nil {
		return newError(StageDensityMatrix, KindMalformedMatrix, "%v", err)
	}
	if err := s.InitDensityMatrix(r0); err != nil {
		return errors.Wrap(err, "")
	}
	if err := s.SetTimeStep(es.TimeStep); err != nil {
		return errors.Wrap(err, "")
	}
	if err := s.SetSteps(es.Steps); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func rows(m *mat.Dense) [][]Complex {
	rs := make([][]Complex, m.Rows())
	for i := range rs {
		rs[i] = make([]Complex, m.Cols())
		for j := range rs[i] {
			rs[i][j] = Complex(m.At(i, j))
		}
	}
	return rs
}

func fromRows(rs [][]Complex) (*mat.Dense, error) {
	if len(rs) == 0 || len(rs[0]) == 0 {
		return nil, errors.Errorf("empty matrix")
	}
	cols := len(rs[0])
	data := make([]complex128, 0, len(rs)*cols)
	for i, r := range rs {
		if len(r) != cols {
			return nil, errors.Errorf("row %d has %d columns, expected %d", i, len(r), cols)
		}
		data = append(data, complexes(r)...)
	}
	return mat.NewDense(len(rs), cols, data), nil
}
