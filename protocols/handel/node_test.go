package handel

import (
	"testing"

	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/stretchr/testify/assert"
)

func TestBuildPeersPerLevel_SizesDoubleAndPartitionTheRestOfTheNetwork(t *testing.T) {
	const n = 16
	levels := buildPeersPerLevel(5, 4, n)

	seen := bitset.New(n)
	total := 0
	for l := 1; l <= 4; l++ {
		for _, id := range levels[l] {
			assert.False(t, seen.Get(id), "id %d appeared in more than one level", id)
			seen.Set(id, true)
			assert.NotEqual(t, 5, id, "a node must never be its own peer")
		}
		total += len(levels[l])
	}
	assert.Equal(t, n-1, total, "levels must partition every other node exactly once")
	assert.Equal(t, []int{4}, levels[1])
	assert.Equal(t, 2, len(levels[2]))
	assert.Equal(t, 4, len(levels[3]))
	assert.Equal(t, 8, len(levels[4]))
}

func TestSuccessfulVerification_DoublesAndCapsAt128(t *testing.T) {
	n := &hNode{curWindowsSize: 1}
	for i := 0; i < 10; i++ {
		n.successfulVerification()
	}
	assert.Equal(t, 128, n.curWindowsSize)
}

func TestFailedVerification_QuartersAndFloorsAt1(t *testing.T) {
	n := &hNode{curWindowsSize: 16}
	n.failedVerification()
	assert.Equal(t, 4, n.curWindowsSize)
	n.failedVerification()
	assert.Equal(t, 1, n.curWindowsSize)
	n.failedVerification()
	assert.Equal(t, 1, n.curWindowsSize)
}

// TestWindowAdaptation_StaysWithinBounds checks that curWindowsSize stays
// in [1, 128] regardless of how many successes/failures are applied, in
// any order.
func TestWindowAdaptation_StaysWithinBounds(t *testing.T) {
	n := &hNode{curWindowsSize: 16}
	sequence := []bool{true, true, false, true, true, true, true, true, false, false, false, true}
	for _, ok := range sequence {
		if ok {
			n.successfulVerification()
		} else {
			n.failedVerification()
		}
		assert.GreaterOrEqual(t, n.curWindowsSize, 1)
		assert.LessOrEqual(t, n.curWindowsSize, 128)
	}
}

func newTestParams(nodeCount int, seed int64) Parameters {
	return Parameters{
		NodeCount:             nodeCount,
		PairingTimeMs:         5,
		DisseminationPeriodMs: 2,
		VerifyPeriodMs:        2,
		NodeBuilderName:       "random",
		NetworkLatencyName:    "NetworkLatencyByDistance",
		Seed:                  seed,
	}
}

// TestReceptionRankSaturation checks that once a process's
// receptionRanks[from] would overflow past the addition, it is pinned at
// MAX_INT rather than wrapping negative.
func TestReceptionRankSaturation(t *testing.T) {
	p, err := New(newTestParams(4, 1))
	assert.NoError(t, err)
	p.Init()
	p.Network().RunMs(1) // fires the first scheduled startNewAggregation

	n := p.nodes[0]
	ap, ok := n.runningAggs[1]
	assert.True(t, ok)

	ap.receptionRanks[2] = maxInt - 1
	agg := newSendAggregation(p, 1, 7, false, []*Attestation{newAttestation(1, 7, 2, 4)})
	n.onNewAgg(2, agg)

	assert.Equal(t, maxInt, ap.receptionRanks[2])
	assert.GreaterOrEqual(t, ap.receptionRanks[2], 0)
}

// TestOnNewAgg_DuplicateFromSameSenderIsDropped covers the duplicate
// contribution error-handling rule: a second message from the same sender
// for the same process is silently ignored.
func TestOnNewAgg_DuplicateFromSameSenderIsDropped(t *testing.T) {
	p, err := New(newTestParams(4, 2))
	assert.NoError(t, err)
	p.Init()
	p.Network().RunMs(1)

	n := p.nodes[0]
	ap := n.runningAggs[1]
	hl := ap.levels[1]

	agg := newSendAggregation(p, 1, 0, false, []*Attestation{newAttestation(1, 0, 2, 4)})
	n.onNewAgg(2, agg)
	assert.Equal(t, 1, len(hl.toVerifyAgg))

	n.onNewAgg(2, agg)
	assert.Equal(t, 1, len(hl.toVerifyAgg), "a second message from the same sender must not be queued again")
}

// TestOnNewAgg_UnknownHeightIsDropped covers the out-of-window message
// drop rule.
func TestOnNewAgg_UnknownHeightIsDropped(t *testing.T) {
	p, err := New(newTestParams(4, 3))
	assert.NoError(t, err)
	p.Init()

	n := p.nodes[0]
	assert.NotPanics(t, func() {
		n.onNewAgg(1, newSendAggregation(p, 1, 0, false, []*Attestation{newAttestation(99, 0, 1, 4)}))
	})
}
