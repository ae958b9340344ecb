package network

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// SimulationKey uniquely identifies a reproducible simulation run. Two
// networks constructed from the same SimulationKey and identical topology
// parameters produce bit-for-bit identical peer graphs and node positions.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

const (
	// SubsystemTopology seeds peer-graph construction (Network.SetPeers).
	SubsystemTopology = "topology"
	// SubsystemNodes seeds per-node draws: the position AddNode asks the
	// NodeBuilder for.
	SubsystemNodes = "nodes"
	// SubsystemSend seeds the per-send jitter seed drawn in Network.Send.
	SubsystemSend = "send"

	// SubsystemRelayRoles seeds p2psig's relay-vs-signer role draw at Init.
	SubsystemRelayRoles = "p2psig.relayRoles"
	// SubsystemGossipPeer seeds p2psig's peer-shuffle and diff-pick draws.
	SubsystemGossipPeer = "p2psig.gossipPeer"
	// SubsystemNodeDraws is the ForInstance base for handel's per-node RNG:
	// one isolated stream per node id, used for that node's attestation
	// forks so no two nodes' fork lengths are coupled to each other.
	SubsystemNodeDraws = "handel.nodeDraws"
)

// PartitionedRNG provides deterministic, isolated RNG instances per
// subsystem, so that, for example, adding a speed-ratio draw never perturbs
// the sequence of peer-graph draws. Derivation: masterSeed XOR fnv1a64(name).
//
// Not safe for concurrent use; the engine it backs is single-threaded.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named
// subsystem. The same name always returns the same cached *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derivedSeed := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// ForInstance returns a deterministically-seeded RNG isolated to one
// instance of a subsystem family, e.g. one node's own draws among a
// per-node family of streams, rather than one stream a whole node table
// shares. The same (base, id) pair always returns the same cached
// *rand.Rand, via the same derivation ForSubsystem uses for its name.
func (p *PartitionedRNG) ForInstance(base string, id int) *rand.Rand {
	return p.ForSubsystem(fmt.Sprintf("%s#%d", base, id))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
