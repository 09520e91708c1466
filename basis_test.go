package qdynamics

import (
	"fmt"
	"slices"
	"testing"
)

func TestLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n      int
		k      int
		states []State
	}{
		{n: 4, k: 2, states: []State{3, 5, 6, 9, 10, 12}},
		{n: 3, k: 0, states: []State{0}},
		{n: 3, k: 1, states: []State{1, 2, 4}},
		{n: 3, k: 3, states: []State{7}},
		{n: 3, k: 4, states: nil},
		{n: 5, k: 4, states: []State{15, 23, 27, 29, 30}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %d", test.n, test.k), func(t *testing.T) {
			t.Parallel()
			states := Level(test.n, test.k)
			if !slices.Equal(states, test.states) {
				t.Fatalf("%v, expected %v", states, test.states)
			}
		})
	}
}

// TestLevelScan checks Level against a scan of all 2^n states filtered by excitation number.
func TestLevelScan(t *testing.T) {
	t.Parallel()
	for n := 1; n <= 10; n++ {
		for k := 0; k <= n; k++ {
			scanned := make([]State, 0)
			for s := State(0); s < State(1)<<n; s++ {
				if s.Excitations() == k {
					scanned = append(scanned, s)
				}
			}

			states := Level(n, k)
			if !slices.Equal(states, scanned) {
				t.Fatalf("%d %d %v, expected %v", n, k, states, scanned)
			}
			if len(states) != binomial(n, k) {
				t.Fatalf("%d %d %d %d", n, k, len(states), binomial(n, k))
			}
		}
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n      int
		s      int
		eMin   int
		eMax   int
		states []State
	}{
		{n: 3, s: 0, eMin: 1, eMax: 1, states: []State{1, 2, 4}},
		{n: 3, s: 0, eMin: 0, eMax: 3, states: []State{0, 1, 2, 4, 3, 5, 6, 7}},
		// Levels 1 and 2.
		{n: 4, s: 1, eMin: 2, eMax: 3, states: []State{1, 2, 4, 8, 3, 5, 6, 9, 10, 12}},
		// s is clamped to eMax.
		{n: 3, s: 5, eMin: 0, eMax: 2, states: []State{0}},
		// Levels above n are empty.
		{n: 2, s: 0, eMin: 2, eMax: 5, states: []State{3}},
		{n: 3, s: 0, eMin: 2, eMax: 1, states: []State{}},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d %d %d %d", test.n, test.s, test.eMin, test.eMax), func(t *testing.T) {
			t.Parallel()
			states := Window(test.n, test.s, test.eMin, test.eMax)
			if !slices.Equal(states, test.states) {
				t.Fatalf("%v, expected %v", states, test.states)
			}
		})
	}
}

func TestStateBits(t *testing.T) {
	t.Parallel()
	s := State(0b1010_0110)
	for i, expected := range []bool{false, true, true, false, false, true, false, true} {
		if s.Excited(i) != expected {
			t.Fatalf("%d %v, expected %v", i, s.Excited(i), expected)
		}
	}
	if s.Excitations() != 4 {
		t.Fatalf("%d", s.Excitations())
	}
}
