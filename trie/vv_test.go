package trie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVVCompare(t *testing.T) {
	assert.Equal(t, Equal, VV{}.Compare(VV{}))
	assert.Equal(t, Equal, VV{"r1": 0}.Compare(VV{}))
	assert.Equal(t, Equal, VV{"r1": 1}.Compare(VV{"r1": 1}))

	assert.Equal(t, Before, VV{"r1": 1}.Compare(VV{"r1": 2}))
	assert.Equal(t, Before, VV{}.Compare(VV{"r1": 1}))
	assert.Equal(t, Before, VV{"r1": 1}.Compare(VV{"r1": 1, "r2": 1}))

	assert.Equal(t, After, VV{"r1": 2}.Compare(VV{"r1": 1}))
	assert.Equal(t, After, VV{"r1": 1, "r2": 1}.Compare(VV{"r2": 1}))

	assert.Equal(t, Concurrent, VV{"r1": 1}.Compare(VV{"r2": 1}))
	assert.Equal(t, Concurrent, VV{"r1": 2, "r2": 1}.Compare(VV{"r1": 1, "r2": 2}))

	self := VV{"r1": 3, "r2": 1}
	assert.Equal(t, Equal, self.Compare(self))
}

func TestVVMerge(t *testing.T) {
	a := VV{"r1": 1, "r2": 2}
	b := VV{"r2": 3, "r3": 1}
	assert.Equal(t, VV{"r1": 1, "r2": 3, "r3": 1}, a.Merge(b))
	assert.Equal(t, a.Merge(b), b.Merge(a))
	assert.Equal(t, a, a.Merge(a))

	c := VV{"r1": 4}
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
}

func TestVVInc(t *testing.T) {
	a := VV{"r1": 1}
	b := a.Inc("r1").Inc("r2")
	assert.Equal(t, VV{"r1": 1}, a) // untouched
	assert.Equal(t, VV{"r1": 2, "r2": 1}, b)
	assert.Equal(t, After, b.Compare(a))
}
