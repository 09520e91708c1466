package qdynamics

const (
	holderNone = iota
	holderFirst
	holderSecond
)

// Hop reports whether s1 and s2 differ by a single excitation moving between two adjacent sites of an n-site chain.
// If so, it returns the bond, the lower of the two site indices.
//
// The sites are scanned from 0 upwards, tracking which of the two states holds the pending differing bit.
// A hop is a differing bit held by one state immediately followed by a differing bit held by the other.
// Any differing bit that is not part of the hop, before or after it, means there is no coupling.
func Hop(s1, s2 State, n int) (int, bool) {
	diff := s1 ^ s2
	if diff == 0 {
		return -1, false
	}

	bond := -1
	holder := holderNone
	for i := range n {
		mask := State(1) << i
		if diff&mask == 0 {
			if holder != holderNone {
				// An unpaired differing bit.
				return -1, false
			}
			continue
		}
		if bond != -1 {
			return -1, false
		}

		h := holderSecond
		if s1&mask != 0 {
			h = holderFirst
		}
		switch holder {
		case holderNone:
			holder = h
		case h:
			// Both adjacent differing bits belong to the same state, so the excitation numbers differ.
			return -1, false
		default:
			bond, holder = i-1, holderNone
		}
	}
	if holder != holderNone || bond == -1 {
		return -1, false
	}
	// Bits beyond the chain.
	if diff>>n != 0 {
		return -1, false
	}
	return bond, true
}
