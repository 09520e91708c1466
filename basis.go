// Package qdynamics simulates the time evolution of the density matrix of a chain of two-level sites.
//
// The chain Hamiltonian is an XY (tight-binding) model restricted to a window of excitation numbers:
//
//	H = sum_k w_k n_k + sum_b a_b s+_b s-_{b+1} + conj(a_b) s-_b s+_{b+1}
//
// and the density matrix is propagated as R <- U^dagger R U with U = exp(i dT H).
package qdynamics

import (
	"math/bits"
)

const (
	// MaxSites bounds the chain length so that basis states fit in a State and the enumeration stays tractable.
	MaxSites = 30
)

// State is a basis state of the chain, bit i is set if site i is excited.
type State uint64

// Excitations returns the number of excited sites.
func (s State) Excitations() int {
	return bits.OnesCount64(uint64(s))
}

// Excited reports whether site i is excited.
func (s State) Excited(i int) bool {
	return s&(State(1)<<i) != 0
}

// Level returns all n-site states with exactly k excitations, in increasing numeric order.
func Level(n, k int) []State {
	if n < 0 || k < 0 || k > n {
		return nil
	}
	states := make([]State, 0, binomial(n, k))
	if k == 0 {
		return append(states, 0)
	}

	// Walk the k-subsets in lexicographic order using Gosper's hack.
	end := State(1) << n
	for s := State(1)<<k - 1; s < end; {
		states = append(states, s)
		c := s & -s
		r := s + c
		s = (((r ^ s) >> 2) / c) | r
	}
	return states
}

// Window returns the basis of the excitation levels max(0, eMin-s) through max(0, eMax-s),
// with s clamped to eMax, concatenated level by level.
func Window(n, s, eMin, eMax int) []State {
	s = min(s, eMax)
	low := max(0, eMin-s)
	high := min(max(0, eMax-s), n)

	states := make([]State, 0)
	for k := low; k <= high; k++ {
		states = append(states, Level(n, k)...)
	}
	return states
}

func binomial(n, k int) int {
	k = min(k, n-k)
	out := 1
	for i := 1; i <= k; i++ {
		out = out * (n - k + i) / i
	}
	return out
}
