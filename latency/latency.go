// Package latency provides the deterministic PRNG jitter source and the
// pluggable LatencyModel implementations consumed by the network package.
// The LatencyModel interface is defined here (not in network) so that
// network stays free of any model-specific math.
package latency

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Position is a node's location in an abstract plane used for
// distance-based latency. Units are arbitrary; only relative distance
// matters.
type Position struct {
	X, Y float64
}

// Distance returns the Euclidean distance between two positions.
func (p Position) Distance(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// LatencyModel computes the one-way delay, in ms, for a message traveling
// from one position to another, given a per-destination jitter value drawn
// from PseudoRandom. Implementations must be deterministic in all three
// arguments and must return at least 1ms for from != to.
type LatencyModel interface {
	Latency(from, to Position, jitter int) int
}

// PseudoRandom is the pure jitter source: a stable, deterministic function
// of a destination id and a send-time seed, with no hidden state. Envelope
// and Network both call this directly (rather than drawing from a stream)
// so that recomputing an arrival time twice, from different call sites,
// always agrees -- reproducible runs depend on it being a pure function,
// not a generator.
func PseudoRandom(destID, seed int) int {
	// A small multiplicative/xor mix; unrelated to math/rand, since that
	// package's generators are streams, not pure functions of two ints.
	h := uint64(destID)*2654435761 ^ uint64(seed)*0x9E3779B97F4A7C15
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	v := int(h & 0x7fffffff)
	return v
}

// ByDistance derives latency from the Euclidean distance between two node
// positions, plus jitter-scaled variance, floored at 1ms. This is the
// model named "NetworkLatencyByDistance" in the registry.
type ByDistance struct {
	// SpeedOfMessage is distance units traveled per ms of latency.
	SpeedOfMessage float64
	// JitterSpread bounds the jitter contribution, in ms, added on top of
	// the distance-derived delay: jitter is PseudoRandom(...) % JitterSpread.
	JitterSpread int
}

// NewByDistance returns a ByDistance model with defaults of one distance
// unit per ms and a 10 ms jitter spread: over nodebuilder.NewRandom's
// 1000 x 1000 plane, latencies run from a few ms up to about 1.4 s.
func NewByDistance() *ByDistance {
	return &ByDistance{SpeedOfMessage: 1.0, JitterSpread: 10}
}

func (m *ByDistance) Latency(from, to Position, jitter int) int {
	d := from.Distance(to)
	speed := m.SpeedOfMessage
	if speed <= 0 {
		speed = 1
	}
	base := int(d / speed)
	spread := m.JitterSpread
	if spread <= 0 {
		spread = 1
	}
	j := jitter % spread
	if j < 0 {
		j += spread
	}
	ms := base + j
	if ms < 1 {
		ms = 1
	}
	return ms
}

// Constant is a fixed-delay model used by tests that need predictable,
// position-independent arrival ordering: latency is Base plus jitter
// modulo Spread, regardless of distance.
type Constant struct {
	Base   int
	Spread int
}

func (m *Constant) Latency(from, to Position, jitter int) int {
	spread := m.Spread
	if spread <= 0 {
		spread = 1
	}
	j := jitter % spread
	if j < 0 {
		j += spread
	}
	ms := m.Base + j
	if ms < 1 {
		ms = 1
	}
	return ms
}

// Named looks up a built-in LatencyModel by name. Unknown names return an
// error -- a recoverable construction-time failure, not a panic, since
// this is reachable from untrusted config input (see config package).
func Named(name string) (LatencyModel, error) {
	switch name {
	case "NetworkLatencyByDistance", "by-distance", "":
		return NewByDistance(), nil
	case "constant":
		return &Constant{Base: 10, Spread: 5}, nil
	default:
		logrus.Warnf("latency: registry miss for model %q", name)
		return nil, fmt.Errorf("latency: unknown model %q", name)
	}
}
