package qdynamics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/fumin/qdynamics/mat"
)

func TestEncode(t *testing.T) {
	t.Parallel()
	s := NewSolver()
	c := Chain{Sites: 3, MinLevel: 0, MaxLevel: 2, Hops: []Complex{1 - 0.5i, 0.3}, Energies: []Complex{0.1, -0.2, 1e-7}}
	if err := s.InitChain(c); err != nil {
		t.Fatalf("%+v", err)
	}
	psi := make([]complex128, s.Hamiltonian().Rows())
	psi[1], psi[2] = 0.6, 0.8i
	if err := s.InitPureState(psi); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := s.SetTimeStep(0.0125); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := s.SetSteps(17); err != nil {
		t.Fatalf("%+v", err)
	}

	var b bytes.Buffer
	if err := s.Encode(&b); err != nil {
		t.Fatalf("%+v", err)
	}
	encoded := b.String()

	// Fields are written in order.
	keys := []string{"hamiltonian:", "density_matrix:", "time_step:", "step_num:"}
	prev := -1
	for _, k := range keys {
		idx := strings.Index(encoded, k)
		if idx <= prev {
			t.Fatalf("%s %d %d\n%s", k, idx, prev, encoded)
		}
		prev = idx
	}

	decoded := NewSolver()
	if err := decoded.Decode(strings.NewReader(encoded)); err != nil {
		t.Fatalf("%+v", err)
	}
	if !decoded.Hamiltonian().Equal(s.Hamiltonian()) {
		t.Fatalf("%s, expected %s", decoded.Hamiltonian(), s.Hamiltonian())
	}
	if !decoded.DensityMatrix().Equal(s.DensityMatrix()) {
		t.Fatalf("%s, expected %s", decoded.DensityMatrix(), s.DensityMatrix())
	}
	if decoded.TimeStep() != s.TimeStep() || decoded.Steps() != s.Steps() {
		t.Fatalf("%f %d, expected %f %d", decoded.TimeStep(), decoded.Steps(), s.TimeStep(), s.Steps())
	}
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		encoded string
		kind    Kind
		stage   Stage
	}{
		{
			name: "non square hamiltonian",
			encoded: `hamiltonian: [[1, 2]]
density_matrix: [[1]]
time_step: 0.1
step_num: 1
`,
			kind:  KindMalformedMatrix,
			stage: StageHamiltonian,
		},
		{
			name: "ragged density matrix",
			encoded: `hamiltonian: [[1, 0], [0, 1]]
density_matrix: [[1, 0], [0]]
time_step: 0.1
step_num: 1
`,
			kind:  KindMalformedMatrix,
			stage: StageDensityMatrix,
		},
		{
			name: "negative steps",
			encoded: `hamiltonian: [[1]]
density_matrix: [[1]]
time_step: 0.1
step_num: -1
`,
			kind:  KindInvalidParameter,
			stage: StageConfiguration,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := NewSolver().Decode(strings.NewReader(test.encoded))
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("%+v", err)
			}
			if e.Kind != test.kind || e.Stage != test.stage {
				t.Fatalf("%s %s, expected %s %s", e.Stage, e.Kind, test.stage, test.kind)
			}
		})
	}
}

func TestEncodeUninitialized(t *testing.T) {
	t.Parallel()
	s := NewSolver()
	if err := s.InitHamiltonian(mat.Identity(2)); err != nil {
		t.Fatalf("%+v", err)
	}
	var b bytes.Buffer
	if err := s.Encode(&b); err == nil {
		t.Fatalf("expected error")
	}
}
