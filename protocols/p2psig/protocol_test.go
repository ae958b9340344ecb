package p2psig

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newRunnableParams(signers, relays, threshold int, sanFermin bool, strategy SendSigsStrategy, seed int64) Parameters {
	return Parameters{
		SigningNodeCount:        signers,
		RelayingNodeCount:       relays,
		Threshold:               threshold,
		ConnectionCount:         15,
		PairingTimeMs:           20,
		SigsSendPeriodMs:        50,
		DoubleAggregateStrategy: true,
		WithState:               true,
		SanFermin:               sanFermin,
		SigRange:                2,
		SendSigsStrategy:        strategy,
		NetworkLatencyName:      "NetworkLatencyByDistance",
		NodeBuilderName:         "random",
		Seed:                    seed,
	}
}

// TestAllSignersReachDoneWithinBudget covers the all-signers, no-relays
// case: with no relays, a threshold equal to the signer count, and gossip
// alone, every node should reach done well inside a generous time budget.
func TestAllSignersReachDoneWithinBudget(t *testing.T) {
	p, err := New(newRunnableParams(30, 0, 30, false, StrategyDiff, 0))
	assert.NoError(t, err)
	p.Init()

	for p.Network().Time() < 20000 {
		p.Network().RunMs(100)
		allDone := true
		for i := 0; i < 30; i++ {
			if !p.Done(i) {
				allDone = false
				break
			}
		}
		if allDone {
			break
		}
	}

	for i := 0; i < 30; i++ {
		assert.True(t, p.Done(i), "node %d never reached done", i)
	}
}

// TestRelaysContributeNoOwnSignature verifies that relaying nodes, once
// the run settles, never set their own bit in the signatures they've
// verified -- a relay's own bit is never set.
func TestRelaysContributeNoOwnSignature(t *testing.T) {
	total := 30
	relays := 6
	p, err := New(newRunnableParams(total-relays, relays, total-relays-1, true, StrategyCompressAll, 1))
	assert.NoError(t, err)
	p.Init()

	for p.Network().Time() < 30000 {
		p.Network().RunMs(100)
	}

	for i, n := range p.Nodes() {
		if n.justRelay {
			assert.False(t, n.verifiedSignatures.Get(i))
		}
	}
}

// TestDeterminism_SameSeedSameParamsSameDoneAtVector checks that two runs
// with identical parameters and seed produce identical doneAt vectors and
// identical byte/msg counters.
func TestDeterminism_SameSeedSameParamsSameDoneAtVector(t *testing.T) {
	run := func() ([]int, []int64) {
		p, _ := New(newRunnableParams(20, 0, 20, false, StrategyDiff, 7))
		p.Init()
		for p.Network().Time() < 10000 {
			p.Network().RunMs(100)
		}
		doneAt := make([]int, 20)
		bytesSent := make([]int64, 20)
		for i, n := range p.Nodes() {
			doneAt[i] = n.doneAt
			bytesSent[i] = n.net.BytesSent
		}
		return doneAt, bytesSent
	}
	d1, b1 := run()
	d2, b2 := run()
	assert.Equal(t, d1, d2)
	assert.Equal(t, b1, b2)
}

func TestSanFerminPeers_ExcludesSelf(t *testing.T) {
	p, _ := New(newRunnableParams(16, 0, 16, true, StrategyCompressAll, 3))
	p.Init()
	n := p.Nodes()[5]
	peers := n.sanFerminPeers(1)
	assert.False(t, peers.Get(5))
}
