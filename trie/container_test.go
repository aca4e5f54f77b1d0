package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainerLocalWrites(t *testing.T) {
	c := NewContainer("r1")
	assert.Equal(t, VV{"r1": 0}, c.Ver)

	c1, err := c.SetContainer([]string{"k"}, int64(1))
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), c1.Ver.Get("r1"))
	// the prior container is a valid historical state
	assert.Equal(t, uint64(0), c.Ver.Get("r1"))
	assert.False(t, c.Has([]string{"k"}))

	c2, err := c1.UpdateValue([]string{"k"}, int64(2))
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), c2.Ver.Get("r1"))
	assert.Equal(t, After, c2.Ver.Compare(c1.Ver))

	// a no-op remove is not a write
	assert.Same(t, c2, c2.RemoveValue([]string{"absent"}))
}

func TestMergeIdempotent(t *testing.T) {
	a, err := NewContainer("r1").SetContainer([]string{"k"}, int64(1))
	assert.NoError(t, err)
	assert.Same(t, a, MergeContainers(a, a))
}

func TestMergeSameReplicaFastPath(t *testing.T) {
	old, err := NewContainer("r1").SetContainer([]string{"k"}, int64(1))
	assert.NoError(t, err)
	cur, err := old.UpdateValue([]string{"k"}, int64(2))
	assert.NoError(t, err)

	assert.Same(t, cur, MergeContainers(cur, old))
	assert.Same(t, cur, MergeContainers(old, cur))
}

func TestMergeCommutative(t *testing.T) {
	a, err := NewContainer("r1").SetContainer([]string{"x"}, int64(1))
	assert.NoError(t, err)
	a, err = a.SetContainer([]string{"shared"}, "from-r1")
	assert.NoError(t, err)
	b, err := NewContainer("r2").SetContainer([]string{"y"}, int64(2))
	assert.NoError(t, err)
	b, err = b.SetContainer([]string{"shared"}, "from-r2")
	assert.NoError(t, err)

	assert.Equal(t, Concurrent, a.Ver.Compare(b.Ver))

	ab := MergeContainers(a, b)
	ba := MergeContainers(b, a)
	// the resulting id is the initiating side's; state converges
	assert.Equal(t, ab.Ver, ba.Ver)
	assert.Equal(t, ab.Root, ba.Root)

	// no write is lost on non-conflicting paths
	assert.Equal(t, int64(1), ab.Get([]string{"x"}).Payload())
	assert.Equal(t, int64(2), ab.Get([]string{"y"}).Payload())
	v1, _ := ab.Get([]string{"shared"}).Value()
	v2, _ := ba.Get([]string{"shared"}).Value()
	assert.Equal(t, v1, v2)
}

func TestMergeAssociative(t *testing.T) {
	mk := func(id, key string, v any) *Container {
		c, err := NewContainer(id).SetContainer([]string{key}, v)
		assert.NoError(t, err)
		return c
	}
	a := mk("r1", "k", int64(1))
	b := mk("r2", "k", int64(2))
	c := mk("r3", "k", int64(3))

	left := MergeContainers(MergeContainers(a, b), c)
	right := MergeContainers(a, MergeContainers(b, c))
	assert.Equal(t, left.Ver, right.Ver)
	assert.Equal(t, left.Root, right.Root)
}

func TestMergeVersionNeverRegresses(t *testing.T) {
	a, err := NewContainer("r1").SetContainer([]string{"x"}, int64(1))
	assert.NoError(t, err)
	b, err := NewContainer("r2").SetContainer([]string{"y"}, int64(2))
	assert.NoError(t, err)

	ab := MergeContainers(a, b)
	assert.NotEqual(t, Before, ab.Ver.Compare(a.Ver))
	assert.NotEqual(t, Before, ab.Ver.Compare(b.Ver))
	assert.NotEqual(t, Concurrent, ab.Ver.Compare(a.Ver))
}

func TestPairwiseConvergence(t *testing.T) {
	// three replicas, disjoint writes, exchanged pairwise in two orders
	a, err := NewContainer("r1").SetContainer([]string{"a"}, int64(1))
	assert.NoError(t, err)
	b, err := NewContainer("r2").SetContainer([]string{"b"}, int64(2))
	assert.NoError(t, err)
	c, err := NewContainer("r3").SetContainer([]string{"c"}, int64(3))
	assert.NoError(t, err)

	one := MergeContainers(MergeContainers(c, a), MergeContainers(b, b))
	two := MergeContainers(MergeContainers(b, c), a)
	assert.Equal(t, one.Ver, two.Ver)
	assert.Equal(t, one.Root, two.Root)
}
