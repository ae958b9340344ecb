package handel

import (
	"math/rand"
	"sort"

	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/aggsim/aggsim/internal/moremath"
	"github.com/aggsim/aggsim/internal/xortree"
	"github.com/aggsim/aggsim/network"
)

const maxInt = int(^uint(0) >> 1)

// hNode is the protocol-level state attached to one network.Node: its
// level-peer hierarchy (static, shared by every aggregation process it
// runs), its running processes keyed by height, and the global,
// never-reset blacklist and adaptive verification window.
type hNode struct {
	proto *Protocol
	id    int
	net   *network.Node
	rng   *rand.Rand

	height int

	// peersPerLevel[l] holds the ids newly reachable at level l, in
	// ascending-id emission-rank order. Shared across every
	// aggregationProcess: emission rank never changes mid-run.
	peersPerLevel [][]int

	// receptionRanks is this node's persistent per-peer counter,
	// cloned into each new aggregationProcess at creation time.
	receptionRanks []int

	runningAggs         map[int]*aggregationProcess
	lastProcessVerified int

	blacklist      *bitset.Set
	curWindowsSize int

	nodePairingTime int
}

func newHNode(proto *Protocol, n *network.Node, rng *rand.Rand) *hNode {
	nodeCount := proto.params.NodeCount
	levelCount := proto.levelCount()
	return &hNode{
		proto:           proto,
		id:              n.ID,
		net:             n,
		rng:             rng,
		peersPerLevel:   buildPeersPerLevel(n.ID, levelCount, nodeCount),
		receptionRanks:  make([]int, nodeCount),
		runningAggs:     make(map[int]*aggregationProcess),
		blacklist:       bitset.New(nodeCount),
		curWindowsSize:  16,
		nodePairingTime: moremath.Max(1, int(float64(proto.params.PairingTimeMs)*n.SpeedRatio)),
	}
}

// buildPeersPerLevel computes, for each level 1..levelCount, the ids that
// become reachable at that level but were not already reachable at the
// level below -- level l's peer set is PeerRange(id, l, n) minus
// PeerRange(id, l-1, n), matching Handel's doubling peer-set-per-level
// construction. Index 0 is left nil: level 0 has no peers, only the
// node's own attestation.
func buildPeersPerLevel(id, levelCount, n int) [][]int {
	out := make([][]int, levelCount+1)
	var prev *bitset.Set
	for l := 1; l <= levelCount; l++ {
		cur := xortree.PeerRange(id, l, n)
		diff := cur.Clone()
		if prev != nil {
			diff.AndNot(prev)
		}
		out[l] = sortedSetBits(diff)
		prev = cur
	}
	return out
}

func sortedSetBits(s *bitset.Set) []int {
	var ids []int
	for i := s.NextSetBit(0); i >= 0; i = s.NextSetBit(i + 1) {
		ids = append(ids, i)
	}
	return ids
}

// peersUpToLevel returns every peer reachable at or below level, which is
// exactly the XOR range at that level: the per-level sets nest, so the
// union up to l equals the range at l directly.
func (n *hNode) peersUpToLevel(level int) *bitset.Set {
	return xortree.PeerRange(n.id, level, n.proto.params.NodeCount)
}

// communicationLevel returns the level at which n and other first share a
// peer-range bucket.
func (n *hNode) communicationLevel(other int) int {
	return xortree.CommunicationLevel(n.id, other, n.proto.levelCount())
}

func (n *hNode) successfulVerification() {
	n.curWindowsSize = moremath.Min(128, n.curWindowsSize*2)
}

func (n *hNode) failedVerification() {
	n.curWindowsSize = moremath.Max(1, n.curWindowsSize/4)
}

// create draws this node's attestation for height: a random fork-length
// hash and a Who set containing only the node's own bit.
func (n *hNode) create(height int) *Attestation {
	return newAttestation(height, RandomAttestationHash(n.rng), n.id, n.proto.params.NodeCount)
}

// dissemination recomputes every running process's outgoing aggregate
// and runs one send cycle per level. A process past its own deadline
// force-closes every level still Open first, so doCycle sends each one's
// final batch instead of leaving it waiting on stragglers forever.
// Called periodically by the Protocol.
func (n *hNode) dissemination() {
	now := n.proto.net.Time()
	for _, ap := range n.runningAggs {
		ap.updateAllOutgoing()
		if ap.pastDeadline(now) {
			ap.forceCompleteAll()
		}
		for _, hl := range ap.levels {
			hl.doCycle(n.proto, n.net, ap.ownHash, ap.finishedPeers, n.curWindowsSize)
		}
	}
}

// verify round-robins over running processes starting just past the last
// height it touched, and for each gives its aggregationProcess a chance
// to pick and schedule its own best pending contribution. Scheduled one
// nodePairingTime-1 ms out so the next verify cycle observes the result.
func (n *hNode) verify() {
	if len(n.runningAggs) == 0 {
		return
	}
	heights := make([]int, 0, len(n.runningAggs))
	for h := range n.runningAggs {
		heights = append(heights, h)
	}
	sort.Ints(heights)

	startIdx := 0
	for i, h := range heights {
		if h > n.lastProcessVerified {
			startIdx = i
			break
		}
	}

	for i := 0; i < len(heights); i++ {
		h := heights[(startIdx+i)%len(heights)]
		ap := n.runningAggs[h]
		sa := ap.bestToVerify(n.curWindowsSize, n.blacklist)
		if sa == nil {
			continue
		}
		n.lastProcessVerified = h
		target, vs := ap, sa
		at := n.proto.net.Time() + n.nodePairingTime - 1
		n.proto.net.RegisterTask(func() {
			target.updateVerifiedSignatures(vs, n)
		}, at, n.net)
	}
}

// startNewAggregation bumps height, draws this node's attestation for
// it, and opens a new aggregationProcess. Panics if one is already
// running at the new height -- a correctness invariant, not a recoverable
// condition: heights only ever increase by one from here.
func (n *hNode) startNewAggregation() {
	n.height++
	att := n.create(n.height)
	startAt := n.proto.net.Time()
	ap := newAggregationProcess(n, att, startAt)
	if _, exists := n.runningAggs[ap.height]; exists {
		panic("handel: aggregation process already running at this height")
	}
	n.runningAggs[ap.height] = ap
}

// onNewAgg records a peer's contribution, updates reception bookkeeping,
// and queues it for verification unless the target level is already
// complete. Messages for a height with no running process are silently
// dropped -- too early or too late is expected, not an error.
func (n *hNode) onNewAgg(from int, agg *sendAggregation) {
	ap, ok := n.runningAggs[agg.height]
	if !ok {
		return
	}

	if agg.levelFinished {
		ap.finishedPeers.Set(from, true)
	}
	if ap.receivedPeers.Get(from) {
		return
	}
	ap.receivedPeers.Set(from, true)

	hl := ap.levels[agg.level]

	rank := ap.receptionRanks[from]
	ap.receptionRanks[from] += n.proto.params.NodeCount
	if ap.receptionRanks[from] <= 0 {
		ap.receptionRanks[from] = maxInt
	}

	if !hl.isIncomingComplete() {
		hl.toVerifyAgg = append(hl.toVerifyAgg, &aggToVerify{
			From:  from,
			Level: agg.level,
			Hash:  agg.ownHash,
			Rank:  rank,
			Atts:  agg.attestations,
		})
	}
}
