package handel

import (
	"testing"

	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/stretchr/testify/assert"
)

func TestHLevel_MergeIncoming_TransitionsToIncomingCompleteWhenUnionCoversTheoreticalSet(t *testing.T) {
	const nodeCount = 8
	hl := newLevel(nodeCount, 1, []int{2, 5})
	assert.True(t, hl.isOpen())

	a := newAttestation(1, 0, 2, nodeCount)
	hl.mergeIncoming(&aggToVerify{From: 2, Level: 1, Hash: 0, Atts: []*Attestation{a}})
	assert.True(t, hl.isOpen(), "covering only part of the peer set must not close the level")

	b := newAttestation(1, 0, 5, nodeCount)
	hl.mergeIncoming(&aggToVerify{From: 5, Level: 1, Hash: 0, Atts: []*Attestation{b}})
	assert.True(t, hl.isIncomingComplete())
}

func TestHLevel_MergeIncoming_DifferentHashesStayAsSeparateEntries(t *testing.T) {
	const nodeCount = 8
	hl := newLevel(nodeCount, 1, []int{2, 5})

	a := newAttestation(1, 0, 2, nodeCount)
	b := newAttestation(1, 1, 5, nodeCount) // different hash: disagreeing fork vote
	hl.mergeIncoming(&aggToVerify{From: 2, Level: 1, Hash: 0, Atts: []*Attestation{a}})
	hl.mergeIncoming(&aggToVerify{From: 5, Level: 1, Hash: 1, Atts: []*Attestation{b}})

	assert.Equal(t, 2, len(hl.incoming))
	assert.True(t, hl.isIncomingComplete(), "completeness looks at the union across hashes, not any single one")
}

// TestHLevel_BestToVerify_SkipsBlacklistedAndPicksHighestCardinality checks
// that a blacklisted sender's contribution is never returned by
// bestToVerify.
func TestHLevel_BestToVerify_SkipsBlacklistedAndPicksHighestCardinality(t *testing.T) {
	const nodeCount = 8
	hl := newLevel(nodeCount, 2, []int{1, 2, 3})
	blacklist := bitset.New(nodeCount)
	blacklist.Set(1, true)

	small := newAttestation(1, 0, 2, nodeCount)
	big := newAttestation(1, 0, 3, nodeCount)
	big.Who.Set(1, true) // pretend this contribution already covers two signers

	hl.toVerifyAgg = []*aggToVerify{
		{From: 1, Level: 2, Atts: []*Attestation{newAttestation(1, 0, 1, nodeCount)}},
		{From: 2, Level: 2, Atts: []*Attestation{small}},
		{From: 3, Level: 2, Atts: []*Attestation{big}},
	}

	best := hl.bestToVerify(10, blacklist)
	assert.NotNil(t, best)
	assert.Equal(t, 3, best.From)
	assert.Equal(t, 2, len(hl.toVerifyAgg), "the selected candidate is removed from the queue")

	// A second call must still skip the blacklisted entry even though it
	// was never removed -- blacklist membership is checked every time.
	second := hl.bestToVerify(10, blacklist)
	assert.NotNil(t, second)
	assert.Equal(t, 2, second.From)
}

func TestHLevel_BestToVerify_ReturnsNilWhenAlreadyComplete(t *testing.T) {
	hl := newLevelZero(4, newAttestation(1, 0, 0, 4))
	assert.Nil(t, hl.bestToVerify(16, bitset.New(4)))
}

func TestHLevel_BestToVerify_RespectsWindowSize(t *testing.T) {
	const nodeCount = 8
	hl := newLevel(nodeCount, 1, []int{1, 2, 3, 4})
	blacklist := bitset.New(nodeCount)

	far := newAttestation(1, 0, 4, nodeCount)
	far.Who.Set(5, true)
	far.Who.Set(6, true) // highest cardinality, but queued past the window

	hl.toVerifyAgg = []*aggToVerify{
		{From: 1, Level: 1, Atts: []*Attestation{newAttestation(1, 0, 1, nodeCount)}},
		{From: 4, Level: 1, Atts: []*Attestation{far}},
	}

	best := hl.bestToVerify(1, blacklist)
	assert.NotNil(t, best)
	assert.Equal(t, 1, best.From, "only the first windowSize entries are considered")
}
