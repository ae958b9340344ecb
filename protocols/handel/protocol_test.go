package handel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAllNodesReachFullAggregationWithinOnePeriod covers the no-faults
// case: with 16 nodes and one period, every node's top-level outgoing
// cardinality reaches the full node count before the period's deadline.
func TestAllNodesReachFullAggregationWithinOnePeriod(t *testing.T) {
	p, err := New(newTestParams(16, 11))
	assert.NoError(t, err)
	p.Init()

	for p.Network().Time() < PeriodTimeMs-10 {
		p.Network().RunMs(2)
	}

	for i := 0; i < 16; i++ {
		assert.Equal(t, 16, p.TopLevelOutgoingCardinality(i, 1), "node %d never fully aggregated", i)
	}
}

// TestFaultySignerIsBlacklistedAndWindowShrinks checks that a faulty
// signer's contribution, once paired by some node, gets that node to
// blacklist the sender and quarter its window.
func TestFaultySignerIsBlacklistedAndWindowShrinks(t *testing.T) {
	p, err := New(newTestParams(16, 12))
	assert.NoError(t, err)
	p.MarkFaulty(1)
	p.Init()

	for p.Network().Time() < PeriodTimeMs-10 {
		p.Network().RunMs(2)
	}

	blacklistedSomewhere := false
	windowShrunkSomewhere := false
	for i, n := range p.Nodes() {
		if i == 1 {
			continue
		}
		if n.blacklist.Get(1) {
			blacklistedSomewhere = true
		}
		if n.curWindowsSize < 16 {
			windowShrunkSomewhere = true
		}
	}
	assert.True(t, blacklistedSomewhere, "node 1's faulty contribution should get blacklisted by at least one receiver")
	assert.True(t, windowShrunkSomewhere, "a receiver that blacklists should also shrink its window")
}

// TestDeterminism_SameSeedSameParamsSameOutgoingCardinalities checks that
// two runs with identical parameters and seed reach identical per-node
// top-level cardinalities.
func TestDeterminism_SameSeedSameParamsSameOutgoingCardinalities(t *testing.T) {
	run := func() []int {
		p, _ := New(newTestParams(8, 21))
		p.Init()
		for p.Network().Time() < PeriodTimeMs-10 {
			p.Network().RunMs(2)
		}
		out := make([]int, 8)
		for i := range out {
			out[i] = p.TopLevelOutgoingCardinality(i, 1)
		}
		return out
	}
	a := run()
	b := run()
	assert.Equal(t, a, b)
}

func TestLevelCount_IsCeilLog2NodeCount(t *testing.T) {
	p := &Protocol{params: Parameters{NodeCount: 16}}
	assert.Equal(t, 4, p.levelCount())
	p.params.NodeCount = 17
	assert.Equal(t, 5, p.levelCount())
	p.params.NodeCount = 1
	assert.Equal(t, 0, p.levelCount())
}
