package nodebuilder

import (
	"math/rand"
	"testing"

	"github.com/aggsim/aggsim/latency"
	"github.com/stretchr/testify/assert"
)

func TestRandom_IsDeterministicGivenSeededRNG(t *testing.T) {
	b := NewRandom()
	p1 := b.NextPosition(rand.New(rand.NewSource(1)))
	p2 := b.NextPosition(rand.New(rand.NewSource(1)))
	assert.Equal(t, p1, p2)
}

func TestRandom_StaysInBounds(t *testing.T) {
	b := &Random{Width: 10, Height: 20}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		p := b.NextPosition(rng)
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, 10.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.Less(t, p.Y, 20.0)
	}
}

func TestHomogeneous_AlwaysSamePosition(t *testing.T) {
	b := &Homogeneous{At: latency.Position{X: 3, Y: 4}}
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, b.At, b.NextPosition(rng))
}

func TestNamed_UnknownNameIsAnError(t *testing.T) {
	_, err := Named("nope")
	assert.Error(t, err)
}
