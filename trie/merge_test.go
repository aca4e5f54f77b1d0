package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func set(t *testing.T, n *Node, path []string, v any) *Node {
	t.Helper()
	ret, err := n.SetValue(path, v)
	assert.NoError(t, err)
	return ret
}

func setc(t *testing.T, n *Node, path []string, v any, src string) *Node {
	t.Helper()
	ret, err := n.SetContainer(path, v, src)
	assert.NoError(t, err)
	return ret
}

func TestMergeIdentity(t *testing.T) {
	a := set(t, Empty(), []string{"a"}, int64(1))
	assert.Same(t, a, Merge(a, nil))
	assert.Same(t, a, Merge(nil, a))
	assert.Same(t, a, Merge(a, a))
}

func TestMergeBranchUnion(t *testing.T) {
	a := set(t, Empty(), []string{"x"}, int64(1))
	b := set(t, Empty(), []string{"y"}, int64(2))
	ab := Merge(a, b)
	assert.Equal(t, int64(1), ab.Get([]string{"x"}).Payload())
	assert.Equal(t, int64(2), ab.Get([]string{"y"}).Payload())
	// disjoint branches merge commutatively
	assert.Equal(t, ab, Merge(b, a))
}

func TestMergeValueIncomingWins(t *testing.T) {
	a := set(t, Empty(), []string{"k"}, "ours")
	b := set(t, Empty(), []string{"k"}, "theirs")

	var conflicts []Conflict
	m := Merger{OnConflict: func(c Conflict) { conflicts = append(conflicts, c) }}

	// plain values carry no causal metadata: the second argument wins
	assert.Equal(t, "theirs", m.Merge(a, b).Get([]string{"k"}).Payload())
	assert.Equal(t, "ours", m.Merge(b, a).Get([]string{"k"}).Payload())

	assert.Len(t, conflicts, 2)
	assert.Equal(t, ConflictValue, conflicts[0].Kind)
	assert.Equal(t, []string{"k"}, conflicts[0].Path)

	// equal values are interchangeable, no conflict
	conflicts = nil
	c := set(t, Empty(), []string{"k"}, "ours")
	m.Merge(a, c)
	assert.Empty(t, conflicts)
}

func TestMergeContainerCausal(t *testing.T) {
	base := setc(t, Empty(), []string{"t"}, int64(72), "r1")
	newer, err := base.UpdateValue([]string{"t"}, int64(73), "r2")
	assert.NoError(t, err)

	// the causally newer leaf wins in both argument orders
	assert.Equal(t, int64(73), Merge(base, newer).Get([]string{"t"}).Payload())
	assert.Equal(t, int64(73), Merge(newer, base).Get([]string{"t"}).Payload())
}

func TestMergeContainerConcurrent(t *testing.T) {
	base := setc(t, Empty(), []string{"t"}, int64(0), "r0")
	a, err := base.UpdateValue([]string{"t"}, int64(1), "r1")
	assert.NoError(t, err)
	b, err := base.UpdateValue([]string{"t"}, int64(2), "r2")
	assert.NoError(t, err)

	var kinds []ConflictKind
	m := Merger{OnConflict: func(c Conflict) { kinds = append(kinds, c.Kind) }}

	ab := m.Merge(a, b).Get([]string{"t"})
	ba := m.Merge(b, a).Get([]string{"t"})
	// deterministic winner, same from either side
	assert.Equal(t, ab.Payload(), ba.Payload())
	// merged clock dominates both inputs
	assert.Equal(t, VV{"r0": 1, "r1": 1, "r2": 1}, ab.Version())
	assert.Equal(t, ab.Version(), ba.Version())
	assert.Equal(t, []ConflictKind{ConflictConcurrent, ConflictConcurrent}, kinds)
}

func TestMergeMixedStructural(t *testing.T) {
	leaf := set(t, Empty(), []string{"k"}, int64(1))
	branch := set(t, Empty(), []string{"k", "sub"}, int64(2))

	var conflicts []Conflict
	m := Merger{OnConflict: func(c Conflict) { conflicts = append(conflicts, c) }}

	// a branch still holds uniquely addressable paths: it wins both ways
	assert.Equal(t, int64(2), m.Merge(leaf, branch).Get([]string{"k", "sub"}).Payload())
	assert.Equal(t, int64(2), m.Merge(branch, leaf).Get([]string{"k", "sub"}).Payload())
	assert.Len(t, conflicts, 2)
	assert.Equal(t, ConflictStructural, conflicts[0].Kind)

	// container leaf beats plain value leaf, both ways
	cont := setc(t, Empty(), []string{"k"}, int64(3), "r1")
	assert.Equal(t, KindContainer, m.Merge(leaf, cont).Get([]string{"k"}).Kind())
	assert.Equal(t, KindContainer, m.Merge(cont, leaf).Get([]string{"k"}).Kind())
}

func TestMergeTombstoneVsConcurrentUpdate(t *testing.T) {
	base := setc(t, Empty(), []string{"k"}, int64(1), "r1")
	removed := base.RemoveValue([]string{"k"})
	updated, err := base.UpdateValue([]string{"k"}, int64(2), "r2")
	assert.NoError(t, err)

	// the update still holds live data at the path: it survives the
	// concurrent remove from either side
	assert.Equal(t, int64(2), Merge(removed, updated).Get([]string{"k"}).Payload())
	assert.Equal(t, int64(2), Merge(updated, removed).Get([]string{"k"}).Payload())

	// same for a branch grown under the removed path
	grown := setc(t, Empty(), []string{"k", "sub"}, int64(3), "r2")
	assert.Equal(t, int64(3), Merge(removed, grown).Get([]string{"k", "sub"}).Payload())
	assert.Equal(t, int64(3), Merge(grown, removed).Get([]string{"k", "sub"}).Payload())
}

func TestMergeKeepsTombstones(t *testing.T) {
	a := set(t, Empty(), []string{"a", "b"}, int64(1))
	a = a.RemoveValue([]string{"a", "b"})
	b := set(t, Empty(), []string{"a", "c"}, int64(2))

	ab := Merge(a, b)
	assert.True(t, ab.Has([]string{"a", "b"}))
	_, ok := ab.Get([]string{"a", "b"}).Value()
	assert.False(t, ok)
	assert.Equal(t, int64(2), ab.Get([]string{"a", "c"}).Payload())
}
