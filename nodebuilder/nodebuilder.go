// Package nodebuilder provides the NodeBuilder interface and its concrete
// position generators, in the same interface-plus-implementations layout
// as the latency package: a Protocol picks a NodeBuilder by
// name (Parameters.nodeBuilderName) to seed the positions new Nodes are
// registered with.
package nodebuilder

import (
	"fmt"
	"math/rand"

	"github.com/aggsim/aggsim/latency"
	"github.com/sirupsen/logrus"
)

// NodeBuilder produces the next node's position, drawing randomness from
// the supplied RNG so builds stay reproducible under the network's seed.
type NodeBuilder interface {
	NextPosition(rng *rand.Rand) latency.Position
}

// Random scatters nodes uniformly over a [0, Width) x [0, Height) plane.
type Random struct {
	Width, Height float64
}

// NewRandom returns a Random builder over a 1000 x 1000 plane; with
// latency.NewByDistance's defaults, latencies reach up to about 1.4 s.
func NewRandom() *Random {
	return &Random{Width: 1000, Height: 1000}
}

func (b *Random) NextPosition(rng *rand.Rand) latency.Position {
	w, h := b.Width, b.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return latency.Position{X: rng.Float64() * w, Y: rng.Float64() * h}
}

// Homogeneous places every node at the same position, collapsing
// distance-based latency down to pure jitter. Useful for tests that want
// to isolate jitter behavior from distance behavior.
type Homogeneous struct {
	At latency.Position
}

func (b *Homogeneous) NextPosition(rng *rand.Rand) latency.Position {
	return b.At
}

// Named looks up a built-in NodeBuilder by name. Unknown names are a
// construction-time error, matching latency.Named's treatment of missing
// registry entries.
func Named(name string) (NodeBuilder, error) {
	switch name {
	case "random", "":
		return NewRandom(), nil
	case "homogeneous":
		return &Homogeneous{At: latency.Position{}}, nil
	default:
		logrus.Warnf("nodebuilder: registry miss for builder %q", name)
		return nil, fmt.Errorf("nodebuilder: unknown builder %q", name)
	}
}
