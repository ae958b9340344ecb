package network

import (
	"sort"

	"github.com/aggsim/aggsim/latency"
	"github.com/aggsim/aggsim/nodebuilder"
)

// Node is a participant in the simulation. Identity is its index in the
// network's node table, assigned once at registration and never reused.
type Node struct {
	ID       int
	Position latency.Position

	BytesSent     int64
	BytesReceived int64
	MsgSent       int64
	MsgReceived   int64

	// SpeedRatio models CPU heterogeneity; protocols that care about
	// processing cost scale their own delays by it. Defaults to 1.0.
	SpeedRatio float64

	// DoneAt is the simulated time at which this node's protocol declared
	// itself finished; zero means "not yet done". Protocols set it
	// themselves; the kernel never reads it.
	DoneAt int

	// Dead nodes are skipped by both envelope delivery and task dispatch.
	Dead bool
}

// Network owns the Node table, the peer topology, and the Engine that
// drives message delivery and task dispatch.
type Network struct {
	nodes []*Node
	peers map[int][]int

	connectionCount int
	latencyModel    latency.LatencyModel
	builder         nodebuilder.NodeBuilder

	rng    *PartitionedRNG
	engine *engine
}

// New constructs an empty Network. connectionCount is the target degree
// for SetPeers' random peer graph.
func New(seed int64, model latency.LatencyModel, builder nodebuilder.NodeBuilder, connectionCount int) *Network {
	return &Network{
		peers:           make(map[int][]int),
		connectionCount: connectionCount,
		latencyModel:    model,
		builder:         builder,
		rng:             NewPartitionedRNG(NewSimulationKey(seed)),
		engine:          newEngine(),
	}
}

// Time returns the current simulated time, in ms.
func (net *Network) Time() int { return net.engine.currentTime }

// AllNodes returns the full node table, in registration order. Callers
// must not retain the slice across further AddNode calls.
func (net *Network) AllNodes() []*Node { return net.nodes }

// NodeByID returns the node with the given id.
func (net *Network) NodeByID(id int) *Node { return net.nodeByID(id) }

// RNG exposes the network's PartitionedRNG so protocol packages derive
// their own isolated, deterministic subsystems from the same seed instead
// of keeping a second, unrelated RNG of their own.
func (net *Network) RNG() *PartitionedRNG { return net.rng }

func (net *Network) nodeByID(id int) *Node {
	return net.nodes[id]
}

// AddNode registers a new node, assigning it the next free id, a position
// drawn from the configured NodeBuilder using the seeded RNG, and a speed
// ratio of 1.0 (no NodeBuilder models CPU heterogeneity).
func (net *Network) AddNode() *Node {
	id := len(net.nodes)
	rng := net.rng.ForSubsystem(SubsystemNodes)
	n := &Node{
		ID:         id,
		Position:   net.builder.NextPosition(rng),
		SpeedRatio: 1.0,
	}
	net.nodes = append(net.nodes, n)
	return n
}

// Peers returns the peer ids of node id, as built by the most recent
// SetPeers call.
func (net *Network) Peers(id int) []int { return net.peers[id] }

// SetPeers materializes a random, symmetric, self-edge-free peer graph
// targeting connectionCount degree per node. Drawn from the network's
// SubsystemTopology RNG, so the same seed always yields the same graph;
// each node's peer list is kept in ascending id order.
func (net *Network) SetPeers() {
	rng := net.rng.ForSubsystem(SubsystemTopology)
	n := len(net.nodes)
	net.peers = make(map[int][]int, n)
	have := make(map[int]map[int]bool, n)
	for i := 0; i < n; i++ {
		have[i] = make(map[int]bool)
	}

	degree := net.connectionCount
	if degree > n-1 {
		degree = n - 1
	}
	for i := 0; i < n; i++ {
		for len(have[i]) < degree {
			j := rng.Intn(n)
			if j == i || have[i][j] {
				continue
			}
			have[i][j] = true
			have[j][i] = true
		}
	}
	for i := 0; i < n; i++ {
		ids := make([]int, 0, len(have[i]))
		for j := range have[i] {
			ids = append(ids, j)
		}
		sort.Ints(ids)
		net.peers[i] = ids
	}
}

// Send computes each destination's arrival time, sorts destinations
// ascending by it, and enqueues a single- or multi-destination envelope
// accordingly. Byte and message counters on the sender are updated
// immediately, once per destination; receiver counters update on delivery.
func (net *Network) Send(msg Message, sendTime int, from *Node, dests []*Node) {
	if len(dests) == 0 {
		return
	}
	seed := net.drawSendSeed()

	arrivals := make([]destArrival, len(dests))
	for i, d := range dests {
		jitter := latencyPseudoRandom(d.ID, seed)
		at := sendTime + net.latencyModel.Latency(from.Position, d.Position, jitter)
		arrivals[i] = destArrival{destID: d.ID, arrivalTime: at}
	}
	sortByArrival(arrivals)

	from.BytesSent += int64(msg.Size()) * int64(len(dests))
	from.MsgSent += int64(len(dests))

	if len(arrivals) == 1 {
		env := newSingleDestEnvelope(msg, from.ID, arrivals[0].destID, arrivals[0].arrivalTime)
		net.engine.scheduleEnvelope(env, arrivals[0].arrivalTime)
		return
	}

	destIDs := make([]int, len(arrivals))
	for i, a := range arrivals {
		destIDs[i] = a.destID
	}
	env := newMultiDestEnvelope(msg, from.ID, sendTime, seed, destIDs)
	net.engine.scheduleEnvelope(env, arrivals[0].arrivalTime)
}

func (net *Network) drawSendSeed() int {
	return net.rng.ForSubsystem(SubsystemSend).Int()
}

// RegisterTask schedules fn to fire once at simulated time at, unless node
// is dead by then.
func (net *Network) RegisterTask(fn func(), at int, node *Node) {
	net.registerTask(fn, at, node)
}

// RegisterConditionalTask schedules a repeating task; see task.go for the
// start/continue predicate firing order.
func (net *Network) RegisterConditionalTask(fn func(), firstAt, periodMs int, node *Node, startCond, continueCond func() bool) {
	net.registerConditionalTask(fn, firstAt, periodMs, node, startCond, continueCond)
}

// RunMs advances the simulation by n ms, draining every envelope and task
// due in [currentTime, currentTime+n].
func (net *Network) RunMs(n int) {
	net.engine.runMs(n, net)
}

// latencyPseudoRandom is a thin indirection so envelope.go need not import
// the latency package directly for a single function call; keeps the
// dependency direction network -> latency explicit and in one place.
func latencyPseudoRandom(destID, seed int) int {
	return latency.PseudoRandom(destID, seed)
}
