package handel

import (
	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/sirupsen/logrus"
)

// aggregationProcess is one node's aggregation ladder for a single
// consensus height: one hLevel per level, bookkeeping for which peers
// have reported themselves finished or already sent a pending
// contribution this height, and a private clone of the node's reception
// ranks (they mutate per-process; the node's own array is the template
// copied at creation, see hNode.startNewAggregation).
type aggregationProcess struct {
	height  int
	ownHash int
	startAt int
	endAt   int

	receptionRanks []int

	finishedPeers *bitset.Set
	receivedPeers *bitset.Set

	levels            []*hLevel
	lastLevelVerified int
}

func newAggregationProcess(n *hNode, att *Attestation, startAt int) *aggregationProcess {
	nodeCount := n.proto.params.NodeCount
	ap := &aggregationProcess{
		height:         att.Height,
		ownHash:        att.Hash,
		startAt:        startAt,
		endAt:          startAt + PeriodTimeMs,
		receptionRanks: append([]int(nil), n.receptionRanks...),
		finishedPeers:  bitset.New(nodeCount),
		receivedPeers:  bitset.New(nodeCount),
	}
	ap.levels = append(ap.levels, newLevelZero(nodeCount, att))
	for l := 1; l < len(n.peersPerLevel); l++ {
		ap.levels = append(ap.levels, newLevel(nodeCount, l, n.peersPerLevel[l]))
	}
	return ap
}

// pastDeadline reports whether now has reached this process's global
// deadline -- the second trigger (alongside a level's own bitset
// reaching theoreticalComplete) for a level's Open -> IncomingComplete
// transition.
func (ap *aggregationProcess) pastDeadline(now int) bool {
	return now >= ap.endAt
}

// forceCompleteAll force-closes every still-Open level once the process
// is past its deadline, so the next doCycle sends each one's final batch
// and closes it even though it never collected its full theoretical set.
func (ap *aggregationProcess) forceCompleteAll() {
	for _, hl := range ap.levels {
		hl.forceComplete()
	}
}

// bestToVerify round-robins over levels starting at lastLevelVerified,
// wrapping, and returns the first level's best candidate.
func (ap *aggregationProcess) bestToVerify(curWindowsSize int, blacklist *bitset.Set) *aggToVerify {
	n := len(ap.levels)
	for i := 0; i < n; i++ {
		idx := (ap.lastLevelVerified + i) % n
		if res := ap.levels[idx].bestToVerify(curWindowsSize, blacklist); res != nil {
			ap.lastLevelVerified = idx
			return res
		}
	}
	return nil
}

// updateVerifiedSignatures is the pairing task's completion callback: if
// the contribution carries a known-faulty signer, verification fails --
// the sender goes on the node's blacklist and its window shrinks; an
// already-complete level silently drops the (now redundant) contribution;
// otherwise the contribution merges in and the window grows.
func (ap *aggregationProcess) updateVerifiedSignatures(vs *aggToVerify, n *hNode) {
	hl := ap.levels[vs.Level]
	if hl.isIncomingComplete() {
		return
	}
	if n.proto.containsFaultySigner(vs.Atts) {
		n.blacklist.Set(vs.From, true)
		n.failedVerification()
		logrus.Warnf("node %d blacklisting sender %d at height %d level %d: faulty signer in contribution",
			n.id, vs.From, ap.height, vs.Level)
		return
	}
	hl.mergeIncoming(vs)
	n.successfulVerification()
	if hl.isIncomingComplete() {
		logrus.Infof("node %d level %d at height %d reached IncomingComplete", n.id, vs.Level, ap.height)
	}
}

// updateAllOutgoing walks the levels bottom-up, accumulating incoming
// Attestations into a hash-keyed map and cardinality total. Each open
// level's outgoing is set to a snapshot of that accumulator *before* the
// level's own incoming is folded in, so outgoing at level l is always the
// union of incoming strictly below l.
func (ap *aggregationProcess) updateAllOutgoing() {
	atts := make(map[int]*Attestation)
	size := 0
	for _, hl := range ap.levels {
		if hl.isOpen() {
			snapshot := make(map[int]*Attestation, len(atts))
			for h, a := range atts {
				snapshot[h] = a
			}
			hl.outgoing = snapshot
			hl.outgoingCardinality = size
		}

		for _, a := range hl.incoming {
			size += a.Who.Cardinality()
			if existing, ok := atts[a.Hash]; ok {
				atts[a.Hash] = mergeAttestations(existing, a)
			} else {
				atts[a.Hash] = a
			}
		}
	}
}
