package qdynamics

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir, err := os.MkdirTemp("", "")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	defer os.RemoveAll(dir)

	fpath := filepath.Join(dir, "config.yaml")
	b := []byte(`chain:
  sites: 3
  spin: 0
  min_level: 1
  max_level: 2
  hops: [1, 0.5-0.5i]
  energies: [0, 0.1, "-1e-3i"]
pure_state: [1, 0, 0, 0, 0, 0]
time_step: 0.05
step_num: 20
propagator: eigen
`)
	if err := os.WriteFile(fpath, b, 0644); err != nil {
		t.Fatalf("%+v", err)
	}

	cfg, err := LoadConfig(fpath)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cfg.Chain == nil {
		t.Fatalf("no chain")
	}
	if cfg.Chain.Sites != 3 || cfg.Chain.MinLevel != 1 || cfg.Chain.MaxLevel != 2 {
		t.Fatalf("%#v", cfg.Chain)
	}
	if fmt.Sprint(cfg.Chain.Hops) != "[1 0.5-0.5i]" {
		t.Fatalf("%v", cfg.Chain.Hops)
	}
	if cfg.Chain.Energies[2] != -1e-3i {
		t.Fatalf("%v", cfg.Chain.Energies)
	}
	if len(cfg.PureState) != 6 {
		t.Fatalf("%v", cfg.PureState)
	}
	if cfg.TimeStep != 0.05 || cfg.Steps != 20 || cfg.Propagator != PropagatorEigen {
		t.Fatalf("%#v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.HamiltonianFile != DefaultHamiltonianFile || cfg.DensityMatrixFile != DefaultDensityMatrixFile {
		t.Fatalf("%#v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("%+v", err)
	}

	s := NewSolver()
	if err := s.InitSystem(cfg); err != nil {
		t.Fatalf("%+v", err)
	}
	if s.Hamiltonian().Rows() != 6 {
		t.Fatalf("%s", s.Hamiltonian())
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv(EnvPrefix+"TIME_STEP", "0.25")
	t.Setenv(EnvPrefix+"STEP_NUM", "3")
	t.Setenv(EnvPrefix+"HAMILTONIAN_FILE", "h.csv")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cfg.TimeStep != 0.25 || cfg.Steps != 3 || cfg.HamiltonianFile != "h.csv" {
		t.Fatalf("%#v", cfg)
	}
	if cfg.DensityMatrixFile != DefaultDensityMatrixFile || cfg.Propagator != PropagatorPade {
		t.Fatalf("%#v", cfg)
	}

	t.Setenv(EnvPrefix+"STEP_NUM", "three")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	type testcase struct {
		name string
		cfg  func(Config) Config
		kind Kind
	}
	tests := []testcase{
		{
			name: "default",
			cfg:  func(c Config) Config { return c },
		},
		{
			name: "zero steps",
			cfg:  func(c Config) Config { c.Steps = 0; return c },
		},
		{
			name: "zero time step",
			cfg:  func(c Config) Config { c.TimeStep = 0; return c },
			kind: KindInvalidParameter,
		},
		{
			name: "negative steps",
			cfg:  func(c Config) Config { c.Steps = -2; return c },
			kind: KindInvalidParameter,
		},
		{
			name: "unknown propagator",
			cfg:  func(c Config) Config { c.Propagator = "taylor"; return c },
			kind: KindInvalidParameter,
		},
		{
			name: "no hamiltonian",
			cfg:  func(c Config) Config { c.HamiltonianFile = ""; return c },
			kind: KindInvalidParameter,
		},
		{
			name: "chain mismatch",
			cfg: func(c Config) Config {
				c.Chain = &Chain{Sites: 3, MaxLevel: 3, Hops: []Complex{1}, Energies: []Complex{0, 0, 0}}
				return c
			},
			kind: KindConfigurationMismatch,
		},
		{
			name: "restore without database",
			cfg:  func(c Config) Config { c.RestoreRun = true; return c },
			kind: KindInvalidParameter,
		},
		{
			name: "restore from database",
			cfg:  func(c Config) Config { c.HamiltonianFile, c.RestoreRun = "run.db", true; return c },
		},
		{
			name: "negative chain level",
			cfg: func(c Config) Config {
				c.Chain = &Chain{Sites: 2, MinLevel: -1, MaxLevel: 1, Hops: []Complex{1}, Energies: []Complex{0, 0}}
				return c
			},
			kind: KindInvalidParameter,
		},
		{
			name: "pure state without file",
			cfg: func(c Config) Config {
				c.DensityMatrixFile = ""
				c.PureState = []Complex{1}
				return c
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := test.cfg(NewConfig()).Validate()
			switch {
			case test.kind == 0 && err != nil:
				t.Fatalf("%+v", err)
			case test.kind != 0 && !IsKind(err, test.kind):
				t.Fatalf("%+v, expected %s", err, test.kind)
			}
		})
	}
}

func TestRunDatabase(t *testing.T) {
	t.Parallel()
	chain := &Chain{Sites: 1, Energies: []Complex{0}}
	tests := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{name: "files", cfg: Config{HamiltonianFile: "h.csv", DensityMatrixFile: "r0.csv"}},
		{name: "hamiltonian", cfg: Config{HamiltonianFile: "a.db", DensityMatrixFile: "b.db"}, expected: "a.db"},
		{name: "density matrix", cfg: Config{HamiltonianFile: "h.csv", DensityMatrixFile: "b.db"}, expected: "b.db"},
		{name: "chain", cfg: Config{HamiltonianFile: "a.db", DensityMatrixFile: "b.db", Chain: chain}, expected: "b.db"},
		{name: "chain and pure state", cfg: Config{HamiltonianFile: "a.db", DensityMatrixFile: "b.db", Chain: chain, PureState: []Complex{1}}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if db := test.cfg.RunDatabase(); db != test.expected {
				t.Fatalf("%q, expected %q", db, test.expected)
			}
		})
	}
}

func TestParseComplexes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		s        string
		expected []Complex
		err      bool
	}{
		{s: "", expected: nil},
		{s: "1", expected: []Complex{1}},
		{s: "1, -2.5,0.5+1i, 3i", expected: []Complex{1, -2.5, 0.5 + 1i, 3i}},
		{s: "1,,2", err: true},
		{s: "1,x", err: true},
	}
	for _, test := range tests {
		t.Run(test.s, func(t *testing.T) {
			t.Parallel()
			cs, err := ParseComplexes(test.s)
			if test.err {
				if err == nil {
					t.Fatalf("expected error %v", cs)
				}
				return
			}
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if fmt.Sprint(cs) != fmt.Sprint(test.expected) {
				t.Fatalf("%v, expected %v", cs, test.expected)
			}
		})
	}
}

func TestComplexString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		c        Complex
		expected string
	}{
		{c: 0, expected: "0"},
		{c: -1.5, expected: "-1.5"},
		{c: 1 + 2i, expected: "1+2i"},
		{c: 0.5 - 0.25i, expected: "0.5-0.25i"},
	}
	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			t.Parallel()
			if s := test.c.String(); s != test.expected {
				t.Fatalf("%s, expected %s", s, test.expected)
			}
			var c Complex
			if err := c.UnmarshalText([]byte(test.expected)); err != nil {
				t.Fatalf("%+v", err)
			}
			if c != test.c {
				t.Fatalf("%v, expected %v", c, test.c)
			}
		})
	}
}
