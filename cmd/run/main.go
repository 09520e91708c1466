package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/qdynamics"
	"github.com/fumin/qdynamics/store"
	"github.com/fumin/qdynamics/util"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")

	hamiltonianFile   = flag.String("h", qdynamics.DefaultHamiltonianFile, "Hamiltonian matrix file, or a run database ending in .db")
	densityMatrixFile = flag.String("r0", qdynamics.DefaultDensityMatrixFile, "initial density matrix file, or a run database ending in .db")
	timeStep          = flag.Float64("dt", qdynamics.DefaultTimeStep, "time step")
	steps             = flag.Int("steps", qdynamics.DefaultSteps, "number of steps")
	propagator        = flag.String("propagator", string(qdynamics.PropagatorPade), "propagator, pade or eigen")
	output            = flag.String("o", "", "output file, standard output if empty")
	database          = flag.String("db", "", "run database recording the matrices and snapshots")

	sites    = flag.Int("n", 0, "number of chain sites, generates the Hamiltonian if positive")
	spin     = flag.Int("s", 0, "subspace shift of the excitation window")
	minLevel = flag.Int("emin", 0, "lowest excitation level")
	maxLevel = flag.Int("emax", 0, "highest excitation level")
	hops     = flag.String("a", "", "comma separated hop amplitudes")
	energies = flag.String("w", "", "comma separated on-site energies")
	psi      = flag.String("psi", "", "comma separated pure initial state, overrides -r0")

	check  = flag.Bool("check", false, "check the generated Hamiltonian against the full space operator")
	dump   = flag.Bool("dump", false, "write the solver configuration to standard output and exit")
	replay = flag.String("replay", "", "print the snapshots recorded in a run database and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if *replay != "" {
		if err := replayRun(*replay); err != nil {
			return errors.Wrap(err, "")
		}
		return nil
	}

	cfg, err := config()
	if err != nil {
		return errors.Wrap(err, "")
	}

	s := qdynamics.NewSolver()
	if err := s.InitSystem(cfg); err != nil {
		return errors.Wrap(err, "")
	}
	if *check && cfg.Chain != nil {
		if err := checkChain(*cfg.Chain, s); err != nil {
			return errors.Wrap(err, "")
		}
	}
	if *dump {
		if err := s.Encode(os.Stdout); err != nil {
			return errors.Wrap(err, "")
		}
		return nil
	}

	node, err := qdynamics.NodeFromEnv(os.Getenv)
	if err != nil {
		return errors.Wrap(err, "")
	}

	var w io.Writer = os.Stdout
	if cfg.Output != "" && node.IsRoot() {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return errors.Wrap(err, "")
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)

	ctx := context.Background()
	var db *store.DB
	if cfg.Database != "" && node.IsRoot() {
		db, err = store.Open(cfg.Database)
		if err != nil {
			return errors.Wrap(err, "")
		}
		defer db.Close()
		if err := s.Record(ctx, db); err != nil {
			return errors.Wrap(err, "")
		}
	}

	log.Printf("dimension %d, time step %f, %d steps", s.Hamiltonian().Rows(), s.TimeStep(), s.Steps())
	throttler := util.NewSkipThrottler(10 * time.Second)
	opt := qdynamics.NewSolveOptions().Node(node).OnStep(func(snapshot qdynamics.Snapshot) error {
		if db != nil {
			if err := db.AppendSnapshot(ctx, snapshot.Step, snapshot.Diag); err != nil {
				return errors.Wrap(err, "")
			}
		}
		if throttler.Ok() {
			log.Printf("step %d/%d trace %f", snapshot.Step, s.Steps(), real(snapshot.Trace))
		}
		return nil
	})
	if err := s.Solve(bw, opt); err != nil {
		return errors.Wrap(err, "")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// config loads the configuration file and environment, then applies the flags given on the command line.
func config() (qdynamics.Config, error) {
	cfg, err := qdynamics.LoadConfig(*configPath)
	if err != nil {
		return qdynamics.Config{}, errors.Wrap(err, "")
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["h"] {
		cfg.HamiltonianFile = *hamiltonianFile
	}
	if set["r0"] {
		cfg.DensityMatrixFile = *densityMatrixFile
	}
	if set["dt"] {
		cfg.TimeStep = *timeStep
	}
	if set["steps"] {
		cfg.Steps = *steps
	}
	if set["propagator"] {
		cfg.Propagator = qdynamics.Propagator(*propagator)
	}
	if set["o"] {
		cfg.Output = *output
	}
	if set["db"] {
		cfg.Database = *database
	}

	if *sites > 0 {
		a, err := qdynamics.ParseComplexes(*hops)
		if err != nil {
			return qdynamics.Config{}, errors.Wrap(err, "")
		}
		w, err := qdynamics.ParseComplexes(*energies)
		if err != nil {
			return qdynamics.Config{}, errors.Wrap(err, "")
		}
		cfg.Chain = &qdynamics.Chain{Sites: *sites, Spin: *spin, MinLevel: *minLevel, MaxLevel: *maxLevel, Hops: a, Energies: w}
	}
	if set["psi"] {
		cfg.PureState, err = qdynamics.ParseComplexes(*psi)
		if err != nil {
			return qdynamics.Config{}, errors.Wrap(err, "")
		}
	}
	// Matrices read back from a run database are propagated as they were recorded, unless told otherwise.
	if !set["dt"] && !set["steps"] && cfg.RunDatabase() != "" {
		cfg.RestoreRun = true
	}

	if err := cfg.Validate(); err != nil {
		return qdynamics.Config{}, errors.Wrap(err, "")
	}
	return cfg, nil
}

func replayRun(dbPath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return errors.Wrap(err, "")
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()

	bw := bufio.NewWriter(os.Stdout)
	if err := qdynamics.Replay(context.Background(), db, bw); err != nil {
		return errors.Wrap(err, "")
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// checkChain compares the generated Hamiltonian with the projection of the full space chain operator.
func checkChain(c qdynamics.Chain, s *qdynamics.Solver) error {
	full := qdynamics.ChainOperator(c.Sites, complexes(c.Hops), complexes(c.Energies))
	projected := qdynamics.Project(full, c.Basis())
	if !projected.EqualApprox(s.Hamiltonian(), 1e-12) {
		return errors.Errorf("hamiltonian %s, full space projection %s", s.Hamiltonian(), projected)
	}
	log.Printf("hamiltonian matches the full space operator over %d states", len(c.Basis()))
	return nil
}

func complexes(cs []qdynamics.Complex) []complex128 {
	out := make([]complex128, len(cs))
	for i, c := range cs {
		out[i] = complex128(c)
	}
	return out
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Propagates a density matrix and prints the magnitudes of its diagonal after each step.\n")
		flag.PrintDefaults()
	}
}
