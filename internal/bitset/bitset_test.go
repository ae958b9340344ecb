package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet_SetGet_RoundTrips(t *testing.T) {
	s := New(100)
	s.Set(3, true)
	s.Set(99, true)

	assert.True(t, s.Get(3))
	assert.True(t, s.Get(99))
	assert.False(t, s.Get(4))
}

func TestSet_Cardinality_CountsSetBits(t *testing.T) {
	s := New(16)
	s.SetRange(0, 5, true)
	assert.Equal(t, 5, s.Cardinality())

	s.Set(2, false)
	assert.Equal(t, 4, s.Cardinality())
}

func TestSet_Length_IsOnePastHighestSetBit(t *testing.T) {
	s := New(64)
	assert.Equal(t, 0, s.Length())

	s.Set(10, true)
	assert.Equal(t, 11, s.Length())

	s.Set(63, true)
	assert.Equal(t, 64, s.Length())
}

func TestSet_NextSetBit_SkipsToNextOne(t *testing.T) {
	s := New(128)
	s.Set(5, true)
	s.Set(70, true)

	assert.Equal(t, 5, s.NextSetBit(0))
	assert.Equal(t, 70, s.NextSetBit(6))
	assert.Equal(t, -1, s.NextSetBit(71))
}

func TestSet_OrAndAndNot(t *testing.T) {
	a := New(8)
	a.SetRange(0, 4, true) // 1111 0000

	b := New(8)
	b.SetRange(2, 6, true) // 0011 1100

	union := Union(a, b)
	assert.Equal(t, 6, union.Cardinality())

	inter := Intersect(a, b)
	assert.Equal(t, 2, inter.Cardinality())

	diff := a.Clone()
	diff.AndNot(b)
	assert.Equal(t, 2, diff.Cardinality())
	assert.True(t, diff.Get(0))
	assert.True(t, diff.Get(1))
	assert.False(t, diff.Get(2))
}

func TestSet_Equals(t *testing.T) {
	a := New(10)
	b := New(10)
	assert.True(t, a.Equals(b))

	a.Set(4, true)
	assert.False(t, a.Equals(b))

	b.Set(4, true)
	assert.True(t, a.Equals(b))
}

func TestSet_Clone_IsIndependent(t *testing.T) {
	a := New(8)
	a.Set(1, true)
	b := a.Clone()
	b.Set(2, true)

	assert.False(t, a.Get(2))
	assert.True(t, b.Get(1))
}

func TestSet_OutOfRange_Panics(t *testing.T) {
	s := New(4)
	assert.Panics(t, func() { s.Set(4, true) })
	assert.Panics(t, func() { s.Get(-1) })
}

func TestSet_CapacityMismatch_Panics(t *testing.T) {
	a := New(4)
	b := New(8)
	assert.Panics(t, func() { a.Or(b) })
}

func TestSet_IsEmpty(t *testing.T) {
	s := New(32)
	assert.True(t, s.IsEmpty())
	s.Set(17, true)
	assert.False(t, s.IsEmpty())
}
