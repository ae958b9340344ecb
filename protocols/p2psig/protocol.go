package p2psig

import (
	"fmt"
	"math/rand"

	"github.com/aggsim/aggsim/latency"
	"github.com/aggsim/aggsim/network"
	"github.com/aggsim/aggsim/nodebuilder"
)

// Protocol wires a set of p2pSigNode instances onto a network.Network and
// drives them through the gossip + San Fermin signature-aggregation
// protocol.
type Protocol struct {
	params Parameters
	net    *network.Network
	nodes  []*p2pSigNode
}

// New constructs a Protocol and its backing Network, but does not register
// any nodes or tasks -- call Init for that.
func New(params Parameters) (*Protocol, error) {
	params = params.normalized()

	model, err := latency.Named(params.NetworkLatencyName)
	if err != nil {
		return nil, fmt.Errorf("p2psig: %w", err)
	}
	builder, err := nodebuilder.Named(params.NodeBuilderName)
	if err != nil {
		return nil, fmt.Errorf("p2psig: %w", err)
	}

	p := &Protocol{
		params: params,
		net:    network.New(params.Seed, model, builder, params.ConnectionCount),
	}
	return p, nil
}

// Network returns the backing network.Network, for RunMs/Time access.
func (p *Protocol) Network() *network.Network { return p.net }

// Nodes returns the protocol-level node wrappers, in id order.
func (p *Protocol) Nodes() []*p2pSigNode { return p.nodes }

// Done reports whether node id has reached threshold.
func (p *Protocol) Done(id int) bool { return p.nodes[id].done }

// DoneAt returns the simulated time node id reached threshold, or 0 if it
// has not yet.
func (p *Protocol) DoneAt(id int) int { return p.nodes[id].doneAt }

// Cardinality returns node id's current verified-signature count.
func (p *Protocol) Cardinality(id int) int { return p.nodes[id].verifiedSignatures.Cardinality() }

// IsRelay reports whether node id was assigned the "just relay, no
// self-signature" role at Init.
func (p *Protocol) IsRelay(id int) bool { return p.nodes[id].justRelay }

func (p *Protocol) nodeByID(id int) *p2pSigNode { return p.nodes[id] }

// shuffleRNG is the isolated RNG stream for peer-shuffle and diff-pick
// draws -- kept separate from the relay-role draw so neither perturbs the
// other's sequence.
func (p *Protocol) shuffleRNG() *rand.Rand { return p.net.RNG().ForSubsystem(network.SubsystemGossipPeer) }

func (p *Protocol) netDests(ids []int) []*network.Node {
	if len(ids) == 0 {
		return nil
	}
	dests := make([]*network.Node, len(ids))
	for i, id := range ids {
		dests[i] = p.net.NodeByID(id)
	}
	return dests
}

// Init creates SigningNodeCount+RelayingNodeCount nodes, picks
// RelayingNodeCount of them uniformly at random as pure relays, registers
// each node's periodic sendSigs/checkSigs tasks, seeds one initial
// SendSigs per signer to its round-1 San Fermin partner when SanFermin is
// enabled (a signer whose round-1 range is empty sends none), and finally
// materializes the peer graph.
func (p *Protocol) Init() {
	total := p.params.SigningNodeCount + p.params.RelayingNodeCount

	relayRNG := p.net.RNG().ForSubsystem(network.SubsystemRelayRoles)
	justRelay := make(map[int]bool, p.params.RelayingNodeCount)
	for len(justRelay) < p.params.RelayingNodeCount {
		justRelay[relayRNG.Intn(total)] = true
	}

	p.nodes = make([]*p2pSigNode, 0, total)
	for i := 0; i < total; i++ {
		netNode := p.net.AddNode()
		n := newP2PSigNode(p, netNode, justRelay[i])
		p.nodes = append(p.nodes, n)

		if p.params.WithState && !p.params.SanFermin {
			p.net.RegisterTask(n.sendStateToPeers, 1, netNode)
		}
		p.net.RegisterConditionalTask(n.sendSigs, 1, p.params.SigsSendPeriodMs, netNode,
			func() bool { return len(n.peersState) != 0 },
			func() bool { return !n.done },
		)
		p.net.RegisterConditionalTask(n.checkSigs, 1, p.params.PairingTimeMs, netNode,
			func() bool { return len(n.toVerify) != 0 },
			func() bool { return !n.done },
		)
	}

	if p.params.SanFermin {
		for _, n := range p.nodes {
			if n.justRelay {
				continue
			}
			partner := n.sanFerminPeers(1)
			if partner.IsEmpty() {
				continue
			}
			sigs := newSendSigsMessage(p, n.verifiedSignatures)
			peerID := partner.Length() - 1
			p.net.Send(sigs, 1, n.net, []*network.Node{p.net.NodeByID(peerID)})
		}
	}

	p.net.SetPeers()
}
