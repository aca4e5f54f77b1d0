package trie

import (
	"errors"
	"slices"
)

// Kind tags the node variants.
type Kind uint8

const (
	// KindBranch maps path segments to child nodes.
	KindBranch Kind = iota + 1
	// KindValue is a plain immutable leaf; no causal metadata.
	KindValue
	// KindContainer is a versioned leaf tracked by a vector clock.
	KindContainer
)

var ErrPathThroughLeaf = errors.New("trie: path descends through a leaf")
var ErrTypeMismatch = errors.New("trie: leaf is not a container")

// Node is one immutable trie node. A node is never mutated after
// creation; every write returns a new root that shares all unchanged
// subtrees with the old one by reference. That makes any historical
// root safe to read concurrently with writers, lock-free.
type Node struct {
	kind Kind
	kids map[string]*Node
	val  any
	ver  VV
}

// Empty returns the canonical empty tree.
func Empty() *Node {
	return &Node{kind: KindBranch}
}

func (n *Node) Kind() Kind {
	return n.kind
}

// Payload returns the leaf payload; nil for branches.
func (n *Node) Payload() any {
	return n.val
}

// Version returns the node's vector clock: set on container leaves
// and on tombstones of container state, nil otherwise.
func (n *Node) Version() VV {
	return n.ver
}

// Keys lists a branch's segments, sorted. Nil for leaves.
func (n *Node) Keys() []string {
	if n == nil || n.kind != KindBranch || len(n.kids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(n.kids))
	for k := range n.kids {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (n *Node) Child(seg string) *Node {
	if n == nil || n.kind != KindBranch {
		return nil
	}
	return n.kids[seg]
}

// Get walks the branch structure segment by segment. Returns nil if a
// segment is missing or an intermediate node is a leaf.
func (n *Node) Get(path []string) *Node {
	cur := n
	for _, seg := range path {
		if cur == nil || cur.kind != KindBranch {
			return nil
		}
		cur = cur.kids[seg]
	}
	return cur
}

// Has reports presence at path, independent of value.
func (n *Node) Has(path []string) bool {
	return n.Get(path) != nil
}

// SetValue writes the payload at path as plain (unversioned) leaves,
// decomposing compound payloads segment by segment. Returns a new root.
func (n *Node) SetValue(path []string, payload any) (*Node, error) {
	sub, err := decompose(payload, newValue, 0)
	if err != nil {
		return nil, err
	}
	return graft(n, path, sub)
}

// SetContainer is SetValue with every scalar leaf written as a
// container versioned {src: 1}, establishing causal tracking.
func (n *Node) SetContainer(path []string, payload any, src string) (*Node, error) {
	sub, err := decompose(payload, containerMaker(VV{src: 1}), 0)
	if err != nil {
		return nil, err
	}
	return graft(n, path, sub)
}

// UpdateValue replaces the causally tracked state at path and advances
// its clock at src. A container leaf advances its own clock; a branch
// (a previously decomposed compound value) advances the fold of its
// leaf clocks, so the rewrite dominates every leaf it replaces. An
// absent path gets a fresh container; a plain value leaf is
// ErrTypeMismatch.
func (n *Node) UpdateValue(path []string, payload any, src string) (*Node, error) {
	old := n.Get(path)
	if old == nil {
		return n.SetContainer(path, payload, src)
	}
	if old.kind == KindValue {
		return nil, ErrTypeMismatch
	}
	var ver VV
	if old.kind == KindContainer {
		ver = old.ver.Inc(src)
	} else {
		ver = subtreeVersion(old).Inc(src)
	}
	sub, err := decompose(payload, containerMaker(ver), 0)
	if err != nil {
		return nil, err
	}
	return graft(n, path, sub)
}

// RemoveValue clears the leaf payloads at and below path but keeps the
// branch structure addressable (tombstone). A no-op on absent paths.
func (n *Node) RemoveValue(path []string) *Node {
	old := n.Get(path)
	if old == nil {
		return n
	}
	ret, err := graft(n, path, strip(old))
	if err != nil {
		return n // unreachable: Get already walked the path
	}
	return ret
}

// RemovePath removes the node at path and prunes every ancestor branch
// that becomes empty, up to the root.
func (n *Node) RemovePath(path []string) *Node {
	if !n.Has(path) {
		return n
	}
	ret := prune(n, path)
	if ret == nil {
		return Empty()
	}
	return ret
}

func newValue(v any) *Node {
	return &Node{kind: KindValue, val: v}
}

// subtreeVersion folds the clocks of every container leaf and
// tombstone at or below n into one causal upper bound. Nil when the
// subtree carries none.
func subtreeVersion(n *Node) VV {
	if n.kind == KindContainer {
		return n.ver
	}
	acc := n.ver
	for _, kid := range n.kids {
		if v := subtreeVersion(kid); len(v) > 0 {
			acc = acc.Merge(v)
		}
	}
	return acc
}

func containerMaker(ver VV) func(any) *Node {
	return func(v any) *Node {
		return &Node{kind: KindContainer, val: v, ver: ver.Clone()}
	}
}

// graft rebuilds the spine along path, replacing the target with sub.
// Off-path children are carried over by reference.
func graft(n *Node, path []string, sub *Node) (*Node, error) {
	if len(path) == 0 {
		return sub, nil
	}
	if n == nil {
		n = Empty()
	}
	if n.kind != KindBranch {
		return nil, ErrPathThroughLeaf
	}
	child, err := graft(n.kids[path[0]], path[1:], sub)
	if err != nil {
		return nil, err
	}
	kids := make(map[string]*Node, len(n.kids)+1)
	for k, v := range n.kids {
		kids[k] = v
	}
	kids[path[0]] = child
	return &Node{kind: KindBranch, kids: kids}, nil
}

// strip turns leaves into empty branches, keeping the skeleton. A
// tombstone keeps the clock of what it removed, so a later rewrite
// stays causally monotone.
func strip(n *Node) *Node {
	if n.kind != KindBranch || len(n.kids) == 0 {
		return &Node{kind: KindBranch, ver: subtreeVersion(n)}
	}
	kids := make(map[string]*Node, len(n.kids))
	for k, v := range n.kids {
		kids[k] = strip(v)
	}
	return &Node{kind: KindBranch, kids: kids}
}

// prune returns the subtree with path removed, nil once empty.
func prune(n *Node, path []string) *Node {
	if len(path) == 0 {
		return nil
	}
	if n == nil || n.kind != KindBranch {
		return n
	}
	child := prune(n.kids[path[0]], path[1:])
	kids := make(map[string]*Node, len(n.kids))
	for k, v := range n.kids {
		if k != path[0] {
			kids[k] = v
		}
	}
	if child != nil {
		kids[path[0]] = child
	}
	if len(kids) == 0 {
		return nil
	}
	return &Node{kind: KindBranch, kids: kids}
}
