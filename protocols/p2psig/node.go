package p2psig

import (
	"sort"

	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/aggsim/aggsim/internal/moremath"
	"github.com/aggsim/aggsim/internal/xortree"
	"github.com/aggsim/aggsim/network"
	"github.com/sirupsen/logrus"
)

// p2pSigNode is the protocol-level state attached to one network.Node: its
// own view of verified signatures, unverified sets pending a simulated
// pairing check, and the most recent state it has heard from each peer.
type p2pSigNode struct {
	proto *Protocol
	id    int
	net   *network.Node

	justRelay bool
	done      bool
	doneAt    int

	verifiedSignatures *bitset.Set
	toVerify           map[string]*bitset.Set
	peersState         map[int]*stateMessage
}

func newP2PSigNode(proto *Protocol, n *network.Node, justRelay bool) *p2pSigNode {
	// Sized to the full node table, not just SigningNodeCount: a "signing"
	// role is assigned by a random draw over every node index (see Init),
	// so a signer's own id can land anywhere in [0, total), including past
	// SigningNodeCount when there are relays.
	capacity := proto.params.SigningNodeCount + proto.params.RelayingNodeCount
	node := &p2pSigNode{
		proto:              proto,
		id:                 n.ID,
		net:                n,
		justRelay:          justRelay,
		verifiedSignatures: bitset.New(capacity),
		toVerify:           make(map[string]*bitset.Set),
		peersState:         make(map[int]*stateMessage),
	}
	if !justRelay {
		node.verifiedSignatures.Set(n.ID, true)
	}
	return node
}

// sanFerminPeers returns the contiguous id range that shares the top
// log2(N)-round bits with this node, excluding self -- the San Fermin
// partner set for round. The range is computed over ids below
// SigningNodeCount only; relays are drawn from every node id at Init, so
// the range can still hold relay ids, and a round whose range holds one is
// never observed complete. The returned set's capacity matches verifiedSignatures
// (SigningNodeCount+RelayingNodeCount) so it can be AND/OR'd against it
// directly without a capacity mismatch.
func (n *p2pSigNode) sanFerminPeers(round int) *bitset.Set {
	narrow := xortree.PeerRange(n.id, round, n.proto.params.SigningNodeCount)
	return widen(narrow, n.proto.params.SigningNodeCount+n.proto.params.RelayingNodeCount)
}

// widen copies s into a new, larger-capacity Set. Used where a range built
// against a smaller logical domain (San Fermin's signer-only id space)
// must interoperate with a bitset sized over the full node table.
func widen(s *bitset.Set, capacity int) *bitset.Set {
	out := bitset.New(capacity)
	for i := s.NextSetBit(0); i >= 0; i = s.NextSetBit(i + 1) {
		out.Set(i, true)
	}
	return out
}

// onPeerState records a peer's verified-signature snapshot, but only if it
// represents real news: the peer hasn't already met threshold, and either
// we have no prior snapshot for it or this one has strictly more bits.
// Messages can arrive out of send order, so a later, smaller snapshot must
// not overwrite a larger earlier one.
func (n *p2pSigNode) onPeerState(msg *stateMessage) {
	newCard := msg.desc.Cardinality()
	old, has := n.peersState[msg.from]
	if newCard < n.proto.params.Threshold && (!has || old.desc.Cardinality() < newCard) {
		n.peersState[msg.from] = msg
	}
}

// updateVerifiedSignatures merges sigs into this node's verified set. If
// that grows the set, it re-broadcasts state, advances any San Fermin
// rounds the new bits completed, and checks for threshold completion.
func (n *p2pSigNode) updateVerifiedSignatures(sigs *bitset.Set) {
	oldCard := n.verifiedSignatures.Cardinality()
	n.verifiedSignatures.Or(sigs)
	newCard := n.verifiedSignatures.Cardinality()
	if newCard <= oldCard {
		return
	}

	if n.proto.params.WithState {
		n.sendStateToPeers()
	}

	if n.proto.params.SanFermin {
		n.advanceSanFerminRounds(sigs)
	}

	if !n.done && n.verifiedSignatures.Cardinality() >= n.proto.params.Threshold {
		n.doneAt = n.proto.net.Time()
		n.net.DoneAt = n.doneAt
		n.done = true
		logrus.Infof("node %d reached threshold (%d/%d) at %d ms",
			n.id, n.verifiedSignatures.Cardinality(), n.proto.params.Threshold, n.doneAt)
		for len(n.peersState) > 0 {
			n.sendSigs()
		}
	}
}

func (n *p2pSigNode) advanceSanFerminRounds(sigs *bitset.Set) {
	limit := moreMathLog2SigningNodeCount(n.proto.params.SigningNodeCount)
	for r := 2; r < 30 && r < limit; r++ {
		atRound := n.sanFerminPeers(r)
		atRound.And(sigs)
		if atRound.Length() == 0 {
			continue
		}

		atRound = n.sanFerminPeers(r)
		atRound.And(n.verifiedSignatures)
		full := n.sanFerminPeers(r)
		if !atRound.Equals(full) {
			continue
		}

		nextRound := n.sanFerminPeers(r + 1)
		nextRound.AndNot(atRound)
		dest := n.randomSubset(nextRound, 2)
		if len(dest) == 0 {
			continue
		}
		ss := newSendSigsMessageWithCount(n.proto, n.sanFerminPeers(r), 1)
		n.proto.net.Send(ss, n.proto.net.Time()+1, n.net, dest)
	}
}

// randomSubset resolves the set bits of nodes to live network nodes,
// drops any that are already direct peers, and returns at most nodeCt of
// them chosen uniformly at random.
func (n *p2pSigNode) randomSubset(nodes *bitset.Set, nodeCt int) []*network.Node {
	peerSet := make(map[int]bool)
	for _, pid := range n.proto.net.Peers(n.id) {
		peerSet[pid] = true
	}

	var res []*network.Node
	pos := 0
	for {
		cur := nodes.NextSetBit(pos)
		if cur < 0 {
			break
		}
		pos = cur + 1
		if peerSet[cur] {
			continue
		}
		res = append(res, n.proto.net.NodeByID(cur))
	}

	if len(res) > nodeCt {
		n.proto.shuffleRNG().Shuffle(len(res), func(i, j int) { res[i], res[j] = res[j], res[i] })
		res = res[:nodeCt]
	}
	return res
}

func (n *p2pSigNode) sendStateToPeers() {
	msg := newStateMessage(n.proto, n)
	dests := n.proto.netDests(n.proto.net.Peers(n.id))
	if len(dests) == 0 {
		return
	}
	n.proto.net.Send(msg, n.proto.net.Time(), n.net, dests)
}

// onNewSig queues a freshly received signature set for the verification
// task to pick up; it is not merged into verifiedSignatures until
// updateVerifiedSignatures runs, simulating the pairing cost.
func (n *p2pSigNode) onNewSig(sigs *bitset.Set) {
	n.toVerify[sigs.String()] = sigs
}

// sendSigs offers one peer the signatures it is missing, selecting the
// lowest-id peersState entry for which we have something new, then removes
// that entry so the same peer isn't offered twice in a row.
func (n *p2pSigNode) sendSigs() {
	var foundID int
	var found *stateMessage
	var toSend *bitset.Set

	peerIDs := make([]int, 0, len(n.peersState))
	for peerID := range n.peersState {
		peerIDs = append(peerIDs, peerID)
	}
	sort.Ints(peerIDs)
	for _, peerID := range peerIDs {
		state := n.peersState[peerID]
		candidate := n.verifiedSignatures.Clone()
		candidate.AndNot(state.desc)
		if candidate.Cardinality() > 0 {
			found = state
			foundID = peerID
			toSend = candidate
			break
		}
	}

	if !n.proto.params.WithState {
		peers := n.proto.net.Peers(n.id)
		if len(peers) > 0 {
			pid := peers[n.proto.shuffleRNG().Intn(len(peers))]
			found = &stateMessage{from: pid}
			foundID = pid
		}
	}

	if found == nil {
		return
	}
	delete(n.peersState, foundID)
	if toSend == nil {
		toSend = n.verifiedSignatures.Clone()
	}

	var ss *sendSigsMessage
	switch n.proto.params.SendSigsStrategy {
	case StrategyDiff:
		ss = newSendSigsMessage(n.proto, toSend)
	case StrategyCompressAll:
		ss = newSendSigsMessageWithCount(n.proto, n.verifiedSignatures, n.proto.compressedSize(n.verifiedSignatures))
	case StrategyCompressDiff:
		s1 := n.proto.compressedSize(n.verifiedSignatures)
		s2 := n.proto.compressedSize(toSend)
		ss = newSendSigsMessageWithCount(n.proto, n.verifiedSignatures, minInt(s1, s2))
	default:
		ss = newSendSigsMessage(n.proto, n.verifiedSignatures)
	}
	n.proto.net.Send(ss, n.delayToSend(ss.sigs), n.net, []*network.Node{n.proto.net.NodeByID(foundID)})
}

// delayToSend adds a small delay on top of the current time to account for
// message size: larger signature sets take longer to become ready to send.
func (n *p2pSigNode) delayToSend(sigs *bitset.Set) int {
	return n.proto.net.Time() + 1 + sigs.Cardinality()/100
}

// checkSigs dispatches to the configured verification strategy.
func (n *p2pSigNode) checkSigs() {
	if n.proto.params.DoubleAggregateStrategy {
		n.checkSigs2()
	} else {
		n.checkSigs1()
	}
}

// checkSigs1 verifies the single pending set with the most new bits,
// dropping any set that has become fully redundant while it waited.
func (n *p2pSigNode) checkSigs1() {
	var bestKey string
	var best *bitset.Set
	bestNew := 0

	for key, sigs := range n.toVerify {
		novel := sigs.Clone()
		novel.AndNot(n.verifiedSignatures)
		v := novel.Cardinality()
		if v == 0 {
			delete(n.toVerify, key)
			continue
		}
		if v > bestNew {
			bestNew = v
			best = sigs
			bestKey = key
		}
	}

	if best != nil {
		delete(n.toVerify, bestKey)
		target := best
		n.proto.net.RegisterTask(func() {
			n.updateVerifiedSignatures(target)
		}, n.proto.net.Time()+n.proto.params.PairingTimeMs*2, n.net)
	}
}

// checkSigs2 aggregates every pending set into one union and verifies that
// once: faster, but a single bad signature poisons the whole batch.
func (n *p2pSigNode) checkSigs2() {
	var agg *bitset.Set
	for _, sigs := range n.toVerify {
		if agg == nil {
			agg = sigs.Clone()
		} else {
			agg.Or(sigs)
		}
	}
	n.toVerify = make(map[string]*bitset.Set)

	if agg == nil {
		return
	}
	novel := agg.Clone()
	novel.AndNot(n.verifiedSignatures)
	if novel.Cardinality() == 0 {
		return
	}
	target := agg
	n.proto.net.RegisterTask(func() {
		n.updateVerifiedSignatures(target)
	}, n.proto.net.Time()+n.proto.params.PairingTimeMs*2, n.net)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// moreMathLog2SigningNodeCount guards against moremath.Log2's panic on
// N<=0, which cannot happen in a constructed Protocol but would otherwise
// make advanceSanFerminRounds's loop bound fragile under a zero-node test
// setup.
func moreMathLog2SigningNodeCount(n int) int {
	if n <= 0 {
		return 0
	}
	return moremath.Log2(n)
}
