package handel

import (
	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/aggsim/aggsim/network"
)

type levelState int

const (
	levelOpen levelState = iota
	levelIncomingComplete
	levelClosed
)

// aggToVerify is one sender's pending contribution to a level, queued
// until the verification task gets around to pairing it.
type aggToVerify struct {
	From  int
	Level int
	Hash  int
	Rank  int
	Atts  []*Attestation
}

// hLevel is one rung of a node's aggregation ladder for one height: level
// 0 holds only the node's own attestation and has no peers; level l >= 1
// aggregates contributions from the peers newly reachable at that level
// (see buildPeersPerLevel) and tracks its own Open -> IncomingComplete ->
// Closed lifecycle.
type hLevel struct {
	level               int
	peers               []int // emission-rank order, fixed for the process's lifetime
	theoreticalComplete *bitset.Set

	incoming map[int]*Attestation // by hash
	outgoing map[int]*Attestation // accumulated from levels strictly below, by hash

	outgoingCardinality int
	toVerifyAgg         []*aggToVerify

	state      levelState
	emitCursor int
}

func newLevelZero(nodeCount int, own *Attestation) *hLevel {
	complete := bitset.New(nodeCount)
	complete.Or(own.Who)
	return &hLevel{
		level:               0,
		theoreticalComplete: complete,
		incoming:            map[int]*Attestation{own.Hash: own},
		outgoing:            make(map[int]*Attestation),
		state:               levelIncomingComplete,
	}
}

func newLevel(nodeCount, level int, peers []int) *hLevel {
	complete := bitset.New(nodeCount)
	for _, id := range peers {
		complete.Set(id, true)
	}
	state := levelOpen
	if len(peers) == 0 {
		state = levelIncomingComplete
	}
	return &hLevel{
		level:               level,
		peers:               peers,
		theoreticalComplete: complete,
		incoming:            make(map[int]*Attestation),
		outgoing:            make(map[int]*Attestation),
		state:               state,
	}
}

func (hl *hLevel) isOpen() bool             { return hl.state == levelOpen }
func (hl *hLevel) isIncomingComplete() bool { return hl.state != levelOpen }

// forceComplete transitions an Open level straight to IncomingComplete
// without its incoming union having reached theoreticalComplete -- the
// deadline path: once the owning process's endAt has passed, a level
// stops waiting for stragglers and emits whatever it has as final.
func (hl *hLevel) forceComplete() {
	if hl.state == levelOpen {
		hl.state = levelIncomingComplete
	}
}

// incomingUnion is the union of every incoming Attestation's Who set
// regardless of hash, the measure compared against theoreticalComplete to
// test the Open -> IncomingComplete transition.
func (hl *hLevel) incomingUnion() *bitset.Set {
	union := bitset.New(hl.theoreticalComplete.Cap())
	for _, a := range hl.incoming {
		union.Or(a.Who)
	}
	return union
}

// mergeIncoming folds a verified contribution into incoming, keyed by
// hash, and re-checks completeness.
func (hl *hLevel) mergeIncoming(vs *aggToVerify) {
	for _, a := range vs.Atts {
		if existing, ok := hl.incoming[a.Hash]; ok {
			hl.incoming[a.Hash] = mergeAttestations(existing, a)
		} else {
			hl.incoming[a.Hash] = a
		}
	}
	if hl.state == levelOpen && hl.incomingUnion().Equals(hl.theoreticalComplete) {
		hl.state = levelIncomingComplete
	}
}

// bestToVerify scans at most windowSize queued contributions (oldest
// first), skips blacklisted senders, and returns the one whose
// attestations carry the most signer bits -- removing it from the queue.
// Returns nil if the level is already complete or nothing qualifies.
func (hl *hLevel) bestToVerify(windowSize int, blacklist *bitset.Set) *aggToVerify {
	if hl.isIncomingComplete() {
		return nil
	}
	limit := windowSize
	if limit > len(hl.toVerifyAgg) {
		limit = len(hl.toVerifyAgg)
	}

	bestIdx, bestScore := -1, -1
	for i := 0; i < limit; i++ {
		cand := hl.toVerifyAgg[i]
		if blacklist.Get(cand.From) {
			continue
		}
		score := 0
		for _, a := range cand.Atts {
			score += a.Who.Cardinality()
		}
		if score > bestScore {
			bestScore, bestIdx = score, i
		}
	}
	if bestIdx < 0 {
		return nil
	}

	best := hl.toVerifyAgg[bestIdx]
	hl.toVerifyAgg = append(hl.toVerifyAgg[:bestIdx], hl.toVerifyAgg[bestIdx+1:]...)
	return best
}

// doCycle sends this level's current outgoing aggregate to up to
// windowSize peers not already in finishedPeers, rotating the starting
// point each cycle so repeated calls eventually reach every peer. Once
// the level is IncomingComplete it sends one final batch with
// levelFinished set and then closes -- doCycle becomes a no-op after
// that.
func (hl *hLevel) doCycle(proto *Protocol, from *network.Node, ownHash int, finishedPeers *bitset.Set, windowSize int) {
	if hl.state == levelClosed {
		return
	}
	closing := hl.state == levelIncomingComplete

	n := len(hl.peers)
	if n == 0 {
		if closing {
			hl.state = levelClosed
		}
		return
	}

	recipients := make([]int, 0, windowSize)
	for i := 0; i < n && len(recipients) < windowSize; i++ {
		id := hl.peers[(hl.emitCursor+i)%n]
		if finishedPeers.Get(id) {
			continue
		}
		recipients = append(recipients, id)
	}
	advance := windowSize
	if advance > n {
		advance = n
	}
	hl.emitCursor = (hl.emitCursor + advance) % n

	if len(recipients) == 0 || len(hl.outgoing) == 0 {
		if closing {
			hl.state = levelClosed
		}
		return
	}

	atts := make([]*Attestation, 0, len(hl.outgoing))
	for _, a := range hl.outgoing {
		atts = append(atts, a)
	}

	dests := make([]*network.Node, len(recipients))
	for i, id := range recipients {
		dests[i] = proto.net.NodeByID(id)
	}
	proto.net.Send(newSendAggregation(proto, hl.level, ownHash, closing, atts), proto.net.Time(), from, dests)

	if closing {
		hl.state = levelClosed
	}
}
