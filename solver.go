package qdynamics

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/qdynamics/mat"
	"github.com/fumin/qdynamics/store"
)

const (
	header = "Magnitudes of diagonal elements are:"

	matrixHamiltonian   = "hamiltonian"
	matrixDensityMatrix = "density_matrix"

	dbTimeout = 30 * time.Second
)

// Solver propagates an initial density matrix under a fixed Hamiltonian.
type Solver struct {
	h          *mat.Dense
	r0         *mat.Dense
	dt         float64
	steps      int
	propagator Propagator
}

// NewSolver returns a solver with the default time step, step number and propagator, and no matrices.
func NewSolver() *Solver {
	return &Solver{dt: DefaultTimeStep, steps: DefaultSteps, propagator: PropagatorPade}
}

func (s *Solver) Hamiltonian() *mat.Dense   { return s.h }
func (s *Solver) DensityMatrix() *mat.Dense { return s.r0 }
func (s *Solver) TimeStep() float64         { return s.dt }
func (s *Solver) Steps() int                { return s.steps }

// InitSystem initializes the solver from cfg.
func (s *Solver) InitSystem(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "")
	}

	switch {
	case cfg.Chain != nil:
		if err := s.InitChain(*cfg.Chain); err != nil {
			return errors.Wrap(err, "")
		}
	default:
		if err := s.InitHamiltonianFile(cfg.HamiltonianFile); err != nil {
			return errors.Wrap(err, "")
		}
	}

	switch {
	case len(cfg.PureState) > 0:
		if err := s.InitPureState(complexes(cfg.PureState)); err != nil {
			return errors.Wrap(err, "")
		}
	default:
		if err := s.InitDensityMatrixFile(cfg.DensityMatrixFile); err != nil {
			return errors.Wrap(err, "")
		}
	}

	if err := s.SetTimeStep(cfg.TimeStep); err != nil {
		return errors.Wrap(err, "")
	}
	if err := s.SetSteps(cfg.Steps); err != nil {
		return errors.Wrap(err, "")
	}
	if err := s.SetPropagator(cfg.Propagator); err != nil {
		return errors.Wrap(err, "")
	}
	if cfg.RestoreRun {
		if err := s.restoreRun(cfg.RunDatabase()); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// restoreRun sets the time step and step number to those recorded in a run database.
func (s *Solver) restoreRun(dbPath string) error {
	db, err := store.Open(dbPath)
	if err != nil {
		return newError(StageConfiguration, KindInvalidParameter, "%s: %v", dbPath, err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	dt, steps, err := db.Run(ctx)
	if err != nil {
		return newError(StageConfiguration, KindInvalidParameter, "%s: %v", dbPath, err)
	}

	if err := s.SetTimeStep(dt); err != nil {
		return errors.Wrap(err, dbPath)
	}
	if err := s.SetSteps(steps); err != nil {
		return errors.Wrap(err, dbPath)
	}
	return nil
}

// InitHamiltonianFile reads the Hamiltonian from a matrix file or a run database.
func (s *Solver) InitHamiltonianFile(fpath string) error {
	h, err := readMatrix(fpath, matrixHamiltonian)
	if err != nil {
		return newError(StageHamiltonian, KindMalformedMatrix, "%s: %v", fpath, err)
	}
	return s.InitHamiltonian(h)
}

// InitHamiltonian sets the Hamiltonian to a copy of h.
func (s *Solver) InitHamiltonian(h *mat.Dense) error {
	if h == nil || !h.IsSquare() {
		return newError(StageHamiltonian, KindMalformedMatrix, "incorrect matrix dimensions %s", shape(h))
	}
	s.h = h.Clone()
	return nil
}

// InitChain generates the Hamiltonian of a chain.
func (s *Solver) InitChain(c Chain) error {
	h, err := c.Hamiltonian()
	if err != nil {
		return errors.Wrap(err, "")
	}
	return s.InitHamiltonian(h)
}

// InitDensityMatrixFile reads the initial density matrix from a matrix file or a run database.
func (s *Solver) InitDensityMatrixFile(fpath string) error {
	r0, err := readMatrix(fpath, matrixDensityMatrix)
	if err != nil {
		return newError(StageDensityMatrix, KindMalformedMatrix, "%s: %v", fpath, err)
	}
	return s.InitDensityMatrix(r0)
}

// InitDensityMatrix sets the initial density matrix to a copy of r0.
func (s *Solver) InitDensityMatrix(r0 *mat.Dense) error {
	if r0 == nil || !r0.IsSquare() {
		return newError(StageDensityMatrix, KindMalformedMatrix, "incorrect matrix dimensions %s", shape(r0))
	}
	s.r0 = r0.Clone()
	return nil
}

// InitPureState sets the initial density matrix to |psi><psi|.
func (s *Solver) InitPureState(psi []complex128) error {
	if len(psi) == 0 {
		return newError(StageDensityMatrix, KindMalformedMatrix, "empty state")
	}
	return s.InitDensityMatrix(mat.Outer(psi))
}

func (s *Solver) SetTimeStep(dt float64) error {
	if !(dt > 0) {
		return newError(StageConfiguration, KindInvalidParameter, "time step %v not positive", dt)
	}
	s.dt = dt
	return nil
}

func (s *Solver) SetSteps(steps int) error {
	if steps < 0 {
		return newError(StageConfiguration, KindInvalidParameter, "negative step number %d", steps)
	}
	s.steps = steps
	return nil
}

func (s *Solver) SetPropagator(p Propagator) error {
	switch p {
	case PropagatorPade, PropagatorEigen:
	default:
		return newError(StageConfiguration, KindInvalidParameter, "unknown propagator %q", p)
	}
	s.propagator = p
	return nil
}

// Propagator returns U = exp(i dT H), so that one step is R <- U^dagger R U.
func (s *Solver) Propagator() (*mat.Dense, error) {
	if s.h == nil {
		return nil, newError(StagePropagation, KindInvalidParameter, "hamiltonian not initialized")
	}
	switch s.propagator {
	case PropagatorEigen:
		u, err := mat.ExpEigen(s.h, s.dt)
		if err != nil {
			return nil, newError(StagePropagation, KindMalformedMatrix, "%v", err)
		}
		return u, nil
	default:
		return mat.Exp(s.h, s.dt), nil
	}
}

// Snapshot is the state of the run after a step.
type Snapshot struct {
	// Step counts from 1.
	Step int
	// Diag are the magnitudes of the diagonal elements of the density matrix, in basis order.
	Diag []float64
	// Trace is the trace of the density matrix.
	Trace complex128
}

// Evolve propagates the initial density matrix for the configured number of steps, calling fn after each step.
// An error returned by fn aborts the run, a nil fn is skipped.
// Evolve returns the final density matrix.
func (s *Solver) Evolve(fn func(Snapshot) error) (*mat.Dense, error) {
	if fn == nil {
		fn = func(Snapshot) error { return nil }
	}
	if s.h == nil {
		return nil, newError(StagePropagation, KindInvalidParameter, "hamiltonian not initialized")
	}
	if s.r0 == nil {
		return nil, newError(StagePropagation, KindInvalidParameter, "density matrix not initialized")
	}
	if s.h.Rows() != s.r0.Rows() {
		return nil, newError(StagePropagation, KindDimensionMismatch, "hamiltonian %s density matrix %s", shape(s.h), shape(s.r0))
	}

	u, err := s.Propagator()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	uc := u.ConjTranspose()
	rt := s.r0.Clone()

	for i := range s.steps {
		rt = mat.Mul(uc, rt)
		rt = mat.Mul(rt, u)

		snapshot := Snapshot{Step: i + 1, Diag: rt.DiagAbs(), Trace: rt.Trace()}
		if err := fn(snapshot); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("step %d", snapshot.Step))
		}
	}
	return rt, nil
}

// Snapshots runs the propagation and returns the diagonal magnitudes after every step.
func (s *Solver) Snapshots() ([][]float64, error) {
	snapshots := make([][]float64, 0, s.steps)
	_, err := s.Evolve(func(snapshot Snapshot) error {
		snapshots = append(snapshots, snapshot.Diag)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return snapshots, nil
}

// SolveOptions are options of Solve.
type SolveOptions struct {
	node   Node
	onStep func(Snapshot) error
}

// NewSolveOptions returns the default options, which report from a single local node.
func NewSolveOptions() SolveOptions {
	opt := SolveOptions{}
	opt.node = LocalNode{}
	opt.onStep = func(Snapshot) error { return nil }
	return opt
}

// Node sets the node whose root status decides whether output is written.
func (opt SolveOptions) Node(n Node) SolveOptions {
	opt.node = n
	return opt
}

// OnStep sets a function called after each step, on every node.
func (opt SolveOptions) OnStep(fn func(Snapshot) error) SolveOptions {
	opt.onStep = fn
	return opt
}

// Solve runs the propagation and writes a header followed by one line of diagonal magnitudes per step.
// Only the root node writes.
func (s *Solver) Solve(w io.Writer, options ...SolveOptions) error {
	opt := NewSolveOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	root := opt.node.IsRoot()

	if root {
		if _, err := fmt.Fprintln(w, header); err != nil {
			return errors.Wrap(err, "")
		}
	}
	_, err := s.Evolve(func(snapshot Snapshot) error {
		if root {
			if _, err := fmt.Fprintln(w, formatDiag(snapshot.Diag)); err != nil {
				return errors.Wrap(err, "")
			}
		}
		if err := opt.onStep(snapshot); err != nil {
			return errors.Wrap(err, "")
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func formatDiag(diag []float64) string {
	ss := make([]string, 0, len(diag))
	for _, d := range diag {
		ss = append(ss, strconv.FormatFloat(d, 'f', 6, 64))
	}
	return strings.Join(ss, "\t")
}

func shape(m *mat.Dense) string {
	if m == nil {
		return "nil"
	}
	return fmt.Sprintf("%dx%d", m.Rows(), m.Cols())
}

// readMatrix reads a matrix file, or the named matrix of a run database if fpath ends in ".db".
func readMatrix(fpath, name string) (*mat.Dense, error) {
	if !isDatabase(fpath) {
		m, err := mat.ReadFile(fpath)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		return m, nil
	}

	db, err := store.Open(fpath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	m, err := db.LoadMatrix(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return m, nil
}

// Record saves the solver's matrices and run parameters to a run database.
func (s *Solver) Record(ctx context.Context, db *store.DB) error {
	if s.h == nil || s.r0 == nil {
		return errors.Errorf("matrices not initialized")
	}
	if err := db.SaveMatrix(ctx, matrixHamiltonian, s.h); err != nil {
		return errors.Wrap(err, "")
	}
	if err := db.SaveMatrix(ctx, matrixDensityMatrix, s.r0); err != nil {
		return errors.Wrap(err, "")
	}
	if err := db.SaveRun(ctx, s.dt, s.steps); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Replay writes the snapshots recorded in a run database in the format of Solve.
func Replay(ctx context.Context, db *store.DB, w io.Writer) error {
	snapshots, err := db.Snapshots(ctx)
	if err != nil {
		return errors.Wrap(err, db.Path)
	}

	if _, err := fmt.Fprintln(w, header); err != nil {
		return errors.Wrap(err, "")
	}
	for _, diag := range snapshots {
		if _, err := fmt.Fprintln(w, formatDiag(diag)); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}
