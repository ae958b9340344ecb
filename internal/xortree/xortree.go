// Package xortree implements the id-range arithmetic shared by the two
// aggregation protocols: San Fermin's sanFerminPeers and Handel's
// peersUpToLevel both partition a dense [0, n) id space into contiguous
// ranges that agree with a given node on all but the lowest `round`/`level`
// bits. Both protocols compute the same range from the same formula, so it
// lives here once instead of twice.
package xortree

import "github.com/aggsim/aggsim/internal/bitset"

// PeerRange returns the set of ids in [0, n) that share every bit above the
// lowest `round` bits with nodeID, excluding nodeID itself. round must be
// >= 1: it is a contract violation to ask for the range at round 0 (every
// id would share "no bits", i.e. the whole network, which no caller needs).
func PeerRange(nodeID, round, n int) *bitset.Set {
	if round < 1 {
		panic("xortree: round must be >= 1")
	}
	res := bitset.New(n)
	cMask := (1 << round) - 1
	start := (cMask | nodeID) ^ cMask
	end := nodeID | cMask
	if end > n-1 {
		end = n - 1
	}
	if start <= end {
		res.SetRange(start, end+1, true)
	}
	if nodeID < n {
		res.Set(nodeID, false)
	}
	return res
}

// CommunicationLevel returns the smallest round l >= 1 such that nodeID and
// other agree once both are right-shifted l times. Panics if nodeID ==
// other (a contract violation: a node never communicates with itself) or if
// no such level exists within maxLevel rounds.
func CommunicationLevel(nodeID, other, maxLevel int) int {
	if nodeID == other {
		panic("xortree: same id, no communication level")
	}
	n1, n2 := nodeID, other
	for l := 1; l <= maxLevel; l++ {
		n1 >>= 1
		n2 >>= 1
		if n1 == n2 {
			return l
		}
	}
	panic("xortree: no communication level found within maxLevel rounds")
}
