package p2psig

import (
	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/aggsim/aggsim/network"
)

// stateMessage carries a snapshot of the sender's verified-signature set to
// one peer, so that peer knows what it still needs to offer. By
// convention trailing zero bits are never transmitted -- wire size is
// derived from the bitset's Length(), not its capacity.
type stateMessage struct {
	proto *Protocol
	from  int
	desc  *bitset.Set
}

func newStateMessage(proto *Protocol, n *p2pSigNode) *stateMessage {
	return &stateMessage{proto: proto, from: n.id, desc: n.verifiedSignatures.Clone()}
}

func (m *stateMessage) Size() int {
	sz := m.desc.Length() / 8
	if sz < 1 {
		sz = 1
	}
	return sz
}

func (m *stateMessage) Action(net *network.Network, from, to *network.Node) {
	m.proto.nodeByID(to.ID).onPeerState(m)
}

// sendSigsMessage carries a signature bitset plus an explicit wire-count of
// aggregated signatures it represents, which may be smaller than the
// bitset's cardinality under compression.
type sendSigsMessage struct {
	proto   *Protocol
	sigs    *bitset.Set
	sigCount int
}

// newSendSigsMessage mirrors the Java SendSigs(BitSet) constructor: the
// wire count defaults to the bitset's raw cardinality.
func newSendSigsMessage(proto *Protocol, sigs *bitset.Set) *sendSigsMessage {
	return newSendSigsMessageWithCount(proto, sigs, sigs.Cardinality())
}

func newSendSigsMessageWithCount(proto *Protocol, sigs *bitset.Set, sigCount int) *sendSigsMessage {
	return &sendSigsMessage{proto: proto, sigs: sigs.Clone(), sigCount: sigCount}
}

func (m *sendSigsMessage) Size() int {
	sz := m.sigs.Length()/8 + m.sigCount*48
	if sz < 1 {
		sz = 1
	}
	return sz
}

func (m *sendSigsMessage) Action(net *network.Network, from, to *network.Node) {
	m.proto.nodeByID(to.ID).onNewSig(m.sigs)
}
