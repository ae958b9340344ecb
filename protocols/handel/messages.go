package handel

import "github.com/aggsim/aggsim/network"

// sendAggregation carries one level's current outgoing aggregate to a
// subset of that level's peers. levelFinished tells the receiver not to
// bother contacting the sender about this level again.
type sendAggregation struct {
	proto *Protocol

	level         int
	height        int
	ownHash       int
	attestations  []*Attestation
	levelFinished bool
}

// newSendAggregation mirrors the original constructor: height is derived
// from the attestations rather than passed separately, and an empty list
// is a contract violation -- doCycle never calls this with nothing to send.
func newSendAggregation(proto *Protocol, level, ownHash int, levelFinished bool, atts []*Attestation) *sendAggregation {
	if len(atts) == 0 {
		panic("handel: SendAggregation requires at least one attestation")
	}
	return &sendAggregation{
		proto:         proto,
		level:         level,
		height:        atts[0].Height,
		ownHash:       ownHash,
		attestations:  atts,
		levelFinished: levelFinished,
	}
}

func (m *sendAggregation) Size() int { return 1 }

func (m *sendAggregation) Action(net *network.Network, from, to *network.Node) {
	m.proto.nodeByID(to.ID).onNewAgg(from.ID, m)
}
