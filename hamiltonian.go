package qdynamics

import (
	"math/cmplx"

	"github.com/pkg/errors"

	"github.com/fumin/qdynamics/mat"
)

var (
	identity = mat.COOIdentity(2)
)

// Chain describes a chain Hamiltonian restricted to a window of excitation levels.
type Chain struct {
	// Sites is the number of sites N.
	Sites int `yaml:"sites"`
	// Spin is the subspace shift s, see Window.
	Spin     int `yaml:"spin"`
	MinLevel int `yaml:"min_level"`
	MaxLevel int `yaml:"max_level"`
	// Hops are the N-1 hop amplitudes, Hops[b] couples sites b and b+1.
	Hops []Complex `yaml:"hops"`
	// Energies are the N on-site energies.
	Energies []Complex `yaml:"energies"`
}

// Validate checks the chain parameters against the number of sites.
func (c Chain) Validate() error {
	if c.Sites < 1 || c.Sites > MaxSites {
		return newError(StageHamiltonian, KindInvalidParameter, "sites %d not in [1, %d]", c.Sites, MaxSites)
	}
	if len(c.Hops) != c.Sites-1 || len(c.Energies) != c.Sites {
		return newError(StageHamiltonian, KindConfigurationMismatch, "%d hops and %d energies for %d sites", len(c.Hops), len(c.Energies), c.Sites)
	}
	if c.Spin < 0 || c.MinLevel < 0 || c.MaxLevel < 0 {
		return newError(StageHamiltonian, KindInvalidParameter, "negative spin %d or levels [%d, %d]", c.Spin, c.MinLevel, c.MaxLevel)
	}
	return nil
}

// Basis returns the ordered basis of the chain's excitation window.
func (c Chain) Basis() []State {
	return Window(c.Sites, c.Spin, c.MinLevel, c.MaxLevel)
}

// Hamiltonian builds the chain Hamiltonian over its basis.
func (c Chain) Hamiltonian() (*mat.Dense, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	h, err := Assemble(c.Sites, c.Basis(), complexes(c.Hops), complexes(c.Energies))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return h, nil
}

// Assemble builds the Hermitian Hamiltonian over the basis states.
// The diagonal is the total on-site energy of each state, and an off-diagonal element is the hop amplitude of
// the bond connecting the two states, if any.
// Only the upper triangle is computed, the lower triangle is its conjugate.
func Assemble(n int, states []State, a, w []complex128) (*mat.Dense, error) {
	if len(a) != n-1 || len(w) != n {
		return nil, newError(StageHamiltonian, KindConfigurationMismatch, "%d hops and %d energies for %d sites", len(a), len(w), n)
	}
	if len(states) == 0 {
		return nil, newError(StageHamiltonian, KindInvalidParameter, "empty basis")
	}

	h := mat.Zeros(len(states), len(states))
	for i, si := range states {
		h.Set(i, i, energy(si, n, w))
		for j := i + 1; j < len(states); j++ {
			bond, ok := Hop(si, states[j], n)
			if !ok {
				continue
			}
			h.Set(i, j, a[bond])
			h.Set(j, i, cmplx.Conj(a[bond]))
		}
	}
	return h, nil
}

func energy(s State, n int, w []complex128) complex128 {
	var e complex128
	for i := range n {
		if s.Excited(i) {
			e += w[i]
		}
	}
	return e
}

// ChainOperator returns the chain Hamiltonian over the full 2^n dimensional space, built from Kronecker products of
// single-site operators.
func ChainOperator(n int, a, w []complex128) *mat.COO {
	hamiltonian := mat.COOZeros(1<<n, 1<<n)
	system := mat.COOZeros(1, 1)
	for k := range n {
		siteOperator(system, n, map[int][][]complex128{k: mat.Number})
		hamiltonian.Add(w[k], system)
	}
	for b := range n - 1 {
		siteOperator(system, n, map[int][][]complex128{b: mat.Raise, b + 1: mat.Lower})
		hamiltonian.Add(a[b], system)

		siteOperator(system, n, map[int][][]complex128{b: mat.Lower, b + 1: mat.Raise})
		hamiltonian.Add(cmplx.Conj(a[b]), system)
	}
	return hamiltonian
}

// siteOperator sets system to the product of ops, with the identity on the remaining sites.
// Site 0 is the least significant bit of the state index.
func siteOperator(system *mat.COO, n int, ops map[int][][]complex128) {
	system.Scalar(1)
	for site := n - 1; site >= 0; site-- {
		op, ok := ops[site]
		switch {
		case ok:
			system.Kron(mat.NewCOO(op))
		default:
			system.Kron(identity)
		}
	}
}

// Project restricts a full-space operator to the basis states.
func Project(op *mat.COO, states []State) *mat.Dense {
	index := make(map[State]int, len(states))
	for i, s := range states {
		index[s] = i
	}

	p := mat.Zeros(len(states), len(states))
	op.Entries(func(i, j int, v complex128) {
		pi, ok := index[State(i)]
		if !ok {
			return
		}
		pj, ok := index[State(j)]
		if !ok {
			return
		}
		p.Set(pi, pj, v)
	})
	return p
}
