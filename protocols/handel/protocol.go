package handel

import (
	"fmt"

	"github.com/aggsim/aggsim/internal/bitset"
	"github.com/aggsim/aggsim/internal/moremath"
	"github.com/aggsim/aggsim/latency"
	"github.com/aggsim/aggsim/network"
	"github.com/aggsim/aggsim/nodebuilder"
)

// Protocol wires a set of hNode instances onto a network.Network and
// drives them through level-based aggregation.
type Protocol struct {
	params Parameters
	net    *network.Network
	nodes  []*hNode

	// faulty marks nodes whose signature is never valid; any contribution
	// whose Who set touches one fails verification. Unset by default --
	// tests opt in via MarkFaulty to exercise the blacklist path.
	faulty *bitset.Set
}

// New constructs a Protocol and its backing Network, but does not
// register any nodes or tasks -- call Init for that.
func New(params Parameters) (*Protocol, error) {
	model, err := latency.Named(params.NetworkLatencyName)
	if err != nil {
		return nil, fmt.Errorf("handel: %w", err)
	}
	builder, err := nodebuilder.Named(params.NodeBuilderName)
	if err != nil {
		return nil, fmt.Errorf("handel: %w", err)
	}

	p := &Protocol{
		params: params,
		net:    network.New(params.Seed, model, builder, 0),
		faulty: bitset.New(params.NodeCount),
	}
	return p, nil
}

// Network returns the backing network.Network, for RunMs/Time access.
func (p *Protocol) Network() *network.Network { return p.net }

// Nodes returns the protocol-level node wrappers, in id order.
func (p *Protocol) Nodes() []*hNode { return p.nodes }

// MarkFaulty flags id's signature as always-invalid: any contribution
// whose Who set includes it fails verification wherever it is paired.
func (p *Protocol) MarkFaulty(id int) { p.faulty.Set(id, true) }

// IsBlacklisted reports whether node id has ever blacklisted sender
// directly. Blacklist scope is per-node, shared across that node's own
// running aggregation processes, not a single registry shared across the
// whole network -- see hNode.blacklist.
func (p *Protocol) IsBlacklisted(id, sender int) bool { return p.nodes[id].blacklist.Get(sender) }

// CurWindowSize returns node id's current adaptive verification window.
func (p *Protocol) CurWindowSize(id int) int { return p.nodes[id].curWindowsSize }

// TopLevelOutgoingCardinality returns node id's outgoing signer count at
// its highest level, for the given height, or 0 if no process is running
// at that height.
func (p *Protocol) TopLevelOutgoingCardinality(id, height int) int {
	ap, ok := p.nodes[id].runningAggs[height]
	if !ok {
		return 0
	}
	top := ap.levels[len(ap.levels)-1]
	return top.outgoingCardinality
}

func (p *Protocol) nodeByID(id int) *hNode { return p.nodes[id] }

// levelCount is ceil(log2(NodeCount)), the number of non-zero levels
// every node's ladder needs to reach every other node.
func (p *Protocol) levelCount() int {
	if p.params.NodeCount <= 1 {
		return 0
	}
	return moremath.CeilLog2(p.params.NodeCount)
}

func (p *Protocol) containsFaultySigner(atts []*Attestation) bool {
	if p.faulty.IsEmpty() {
		return false
	}
	for _, a := range atts {
		check := a.Who.Clone()
		check.And(p.faulty)
		if !check.IsEmpty() {
			return true
		}
	}
	return false
}

// Init creates NodeCount nodes, builds each one's static level-peer
// hierarchy, and registers the periodic dissemination/verify tasks and
// the PERIOD_TIME-cadenced startNewAggregation that opens each node's
// first aggregation round at t=1.
func (p *Protocol) Init() {
	p.nodes = make([]*hNode, 0, p.params.NodeCount)
	for i := 0; i < p.params.NodeCount; i++ {
		netNode := p.net.AddNode()
		n := newHNode(p, netNode, p.net.RNG().ForInstance(network.SubsystemNodeDraws, i))
		p.nodes = append(p.nodes, n)

		p.net.RegisterConditionalTask(n.dissemination, 1, p.params.DisseminationPeriodMs, netNode,
			func() bool { return true },
			func() bool { return true },
		)
		p.net.RegisterConditionalTask(n.verify, 1, p.params.VerifyPeriodMs, netNode,
			func() bool { return true },
			func() bool { return true },
		)
		p.net.RegisterConditionalTask(n.startNewAggregation, 1, PeriodTimeMs, netNode,
			func() bool { return true },
			func() bool { return true },
		)
	}
}
