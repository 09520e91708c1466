package qdynamics

import (
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHamiltonianFile   = "Matrix_H"
	DefaultDensityMatrixFile = "Matrix_R0"
	DefaultTimeStep          = 0.1
	DefaultSteps             = 1

	// EnvPrefix prefixes the environment variables that override a Config.
	EnvPrefix = "QDYN_"
)

// Propagator selects how the propagator exp(i dT H) is computed.
type Propagator string

const (
	// PropagatorPade uses the scaling and squaring Pade approximant.
	PropagatorPade Propagator = "pade"
	// PropagatorEigen uses the eigendecomposition of the Hamiltonian, which must be Hermitian.
	PropagatorEigen Propagator = "eigen"
)

// Config is the configuration of a run.
//
// The Hamiltonian comes from Chain if set, and from HamiltonianFile otherwise.
// The initial density matrix comes from PureState if set, and from DensityMatrixFile otherwise.
// Files whose name ends in ".db" are read from a run database.
type Config struct {
	HamiltonianFile   string    `yaml:"hamiltonian_file"`
	DensityMatrixFile string    `yaml:"density_matrix_file"`
	Chain             *Chain    `yaml:"chain,omitempty"`
	PureState         []Complex `yaml:"pure_state,omitempty"`

	TimeStep   float64    `yaml:"time_step"`
	Steps      int        `yaml:"step_num"`
	Propagator Propagator `yaml:"propagator"`

	// Output is the file the snapshots are written to, empty for standard output.
	Output string `yaml:"output"`
	// Database is an optional run database that records the matrices and snapshots.
	Database string `yaml:"database"`
	// RestoreRun restores the time step and step number from the run database the matrices are read from.
	RestoreRun bool `yaml:"restore_run"`
}

// NewConfig returns the default configuration.
func NewConfig() Config {
	return Config{
		HamiltonianFile:   DefaultHamiltonianFile,
		DensityMatrixFile: DefaultDensityMatrixFile,
		TimeStep:          DefaultTimeStep,
		Steps:             DefaultSteps,
		Propagator:        PropagatorPade,
	}
}

// LoadConfig reads the YAML file at fpath over the defaults, then applies environment overrides.
// An empty fpath skips the file.
func LoadConfig(fpath string) (Config, error) {
	cfg := NewConfig()
	if fpath != "" {
		b, err := os.ReadFile(fpath)
		if err != nil {
			return Config{}, errors.Wrap(err, "")
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrap(err, fpath)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	return cfg, nil
}

type envConfig struct {
	HamiltonianFile   string  `env:"HAMILTONIAN_FILE"`
	DensityMatrixFile string  `env:"DENSITY_MATRIX_FILE"`
	TimeStep          float64 `env:"TIME_STEP"`
	Steps             int     `env:"STEP_NUM"`
	Propagator        string  `env:"PROPAGATOR"`
	Output            string  `env:"OUTPUT"`
	Database          string  `env:"DATABASE"`
	RestoreRun        bool    `env:"RESTORE_RUN"`
}

func (c *Config) applyEnv() error {
	e := envConfig{
		HamiltonianFile:   c.HamiltonianFile,
		DensityMatrixFile: c.DensityMatrixFile,
		TimeStep:          c.TimeStep,
		Steps:             c.Steps,
		Propagator:        string(c.Propagator),
		Output:            c.Output,
		Database:          c.Database,
		RestoreRun:        c.RestoreRun,
	}
	if err := env.ParseWithOptions(&e, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.Wrap(err, "")
	}
	c.HamiltonianFile = e.HamiltonianFile
	c.DensityMatrixFile = e.DensityMatrixFile
	c.TimeStep = e.TimeStep
	c.Steps = e.Steps
	c.Propagator = Propagator(e.Propagator)
	c.Output = e.Output
	c.Database = e.Database
	c.RestoreRun = e.RestoreRun
	return nil
}

// Validate checks the run parameters.
func (c Config) Validate() error {
	if !(c.TimeStep > 0) {
		return newError(StageConfiguration, KindInvalidParameter, "time step %v not positive", c.TimeStep)
	}
	if c.Steps < 0 {
		return newError(StageConfiguration, KindInvalidParameter, "negative step number %d", c.Steps)
	}
	switch c.Propagator {
	case PropagatorPade, PropagatorEigen:
	default:
		return newError(StageConfiguration, KindInvalidParameter, "unknown propagator %q", c.Propagator)
	}
	if c.Chain != nil {
		if err := c.Chain.Validate(); err != nil {
			return errors.Wrap(err, "")
		}
	}
	if c.Chain == nil && c.HamiltonianFile == "" {
		return newError(StageConfiguration, KindInvalidParameter, "no hamiltonian source")
	}
	if len(c.PureState) == 0 && c.DensityMatrixFile == "" {
		return newError(StageConfiguration, KindInvalidParameter, "no density matrix source")
	}
	if c.RestoreRun && c.RunDatabase() == "" {
		return newError(StageConfiguration, KindInvalidParameter, "no run database to restore from")
	}
	return nil
}

// RunDatabase returns the run database the matrices are read from, or "" if they come from elsewhere.
func (c Config) RunDatabase() string {
	if c.Chain == nil && isDatabase(c.HamiltonianFile) {
		return c.HamiltonianFile
	}
	if len(c.PureState) == 0 && isDatabase(c.DensityMatrixFile) {
		return c.DensityMatrixFile
	}
	return ""
}

func isDatabase(fpath string) bool {
	return strings.HasSuffix(fpath, ".db")
}

// Complex is a complex number that is written as text, e.g. "1+2i".
type Complex complex128

func (c Complex) String() string {
	v := complex128(c)
	if imag(v) == 0 {
		return strconv.FormatFloat(real(v), 'g', -1, 64)
	}
	s := strconv.FormatComplex(v, 'g', -1, 128)
	return strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
}

func (c Complex) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Complex) UnmarshalText(b []byte) error {
	v, err := strconv.ParseComplex(strings.TrimSpace(string(b)), 128)
	if err != nil {
		return errors.Wrap(err, "")
	}
	*c = Complex(v)
	return nil
}

func (c Complex) MarshalYAML() (any, error) {
	return c.String(), nil
}

func (c *Complex) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: expected a complex number", node.Line)
	}
	if err := c.UnmarshalText([]byte(node.Value)); err != nil {
		return errors.Wrap(err, strconv.Itoa(node.Line))
	}
	return nil
}

// ParseComplexes parses a comma separated list of complex numbers.
func ParseComplexes(s string) ([]Complex, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	cs := make([]Complex, len(fields))
	for i, f := range fields {
		if err := cs[i].UnmarshalText([]byte(f)); err != nil {
			return nil, errors.Wrap(err, f)
		}
	}
	return cs, nil
}

func complexes(cs []Complex) []complex128 {
	out := make([]complex128, len(cs))
	for i, c := range cs {
		out[i] = complex128(c)
	}
	return out
}
