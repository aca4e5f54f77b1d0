package refactory

import (
	"io"
	"slices"

	"github.com/cockroachdb/pebble"
	"github.com/mangr3n/refactory/trie"
)

// containerMerger lets pebble reconcile concurrent writes to the head
// key by CRDT-merging the container payloads, oldest to newest. Merge
// convergence makes the operator safe under compaction reordering.
func containerMerger(key, value []byte) (pebble.ValueMerger, error) {
	a := &mergeAdaptor{}
	return a, a.MergeNewer(value)
}

type mergeAdaptor struct {
	old  bool
	vals [][]byte
}

func (a *mergeAdaptor) MergeNewer(value []byte) error {
	a.vals = append(a.vals, slices.Clone(value))
	return nil
}

func (a *mergeAdaptor) MergeOlder(value []byte) error {
	a.vals = append(a.vals, slices.Clone(value))
	a.old = true
	return nil
}

func (a *mergeAdaptor) Finish(includesBase bool) (res []byte, cl io.Closer, err error) {
	if a.old {
		slices.Reverse(a.vals)
	}
	if len(a.vals) == 0 {
		return nil, nil, nil
	}
	acc, err := trie.ContainerFromTLV(a.vals[0])
	if err != nil {
		return nil, nil, err
	}
	for _, val := range a.vals[1:] {
		next, err := trie.ContainerFromTLV(val)
		if err != nil {
			return nil, nil, err
		}
		// the newer side initiates, so its id prevails
		acc = trie.MergeContainers(next, acc)
	}
	return acc.TLV(), nil, nil
}
