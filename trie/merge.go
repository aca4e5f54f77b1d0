package trie

import (
	"fmt"
	"slices"
	"strings"
)

// ConflictKind classifies merge conflicts reported on the side channel.
type ConflictKind uint8

const (
	// ConflictValue: two plain value leaves with no causal metadata;
	// resolved last-write-wins, incoming side.
	ConflictValue ConflictKind = iota + 1
	// ConflictConcurrent: two container leaves with concurrent clocks;
	// resolved by the deterministic tie-break.
	ConflictConcurrent
	// ConflictStructural: leaf vs branch, or value vs container leaf;
	// a schema-evolution event.
	ConflictStructural
)

func (k ConflictKind) String() string {
	switch k {
	case ConflictValue:
		return "value"
	case ConflictConcurrent:
		return "concurrent"
	default:
		return "structural"
	}
}

// Conflict is a soft diagnostic: the merge already resolved it
// deterministically, callers needing an audit trail capture it here.
type Conflict struct {
	Path   []string
	Kind   ConflictKind
	Ours   *Node
	Theirs *Node
}

// Merger reconciles two tries. The zero value discards conflicts.
type Merger struct {
	OnConflict func(Conflict)
}

// Merge reconciles two tries with the default (silent) merger.
func Merge(a, b *Node) *Node {
	var m Merger
	return m.Merge(a, b)
}

// Merge reconciles two tries into one. The b side is "incoming": for
// plain Value/Value conflicts, which carry no causal metadata, b wins.
// That is the one documented order-dependent case; branch and
// container merges are commutative and associative.
func (m *Merger) Merge(a, b *Node) *Node {
	return m.merge(nil, a, b)
}

func (m *Merger) merge(path []string, a, b *Node) *Node {
	if a == nil {
		return b
	}
	if b == nil || a == b {
		return a
	}
	switch {
	case a.kind == KindBranch && b.kind == KindBranch:
		return m.mergeBranches(path, a, b)
	case a.kind == KindContainer && b.kind == KindContainer:
		return m.mergeContainers(path, a, b)
	case a.kind == KindValue && b.kind == KindValue:
		if !scalarEq(a.val, b.val) {
			m.report(path, ConflictValue, a, b)
		}
		return b
	default:
		return m.mergeMixed(path, a, b)
	}
}

// mergeBranches takes the union of segments, recursing where both
// sides are present. An empty branch is a tombstone and yields to
// data, here and in mergeMixed.
func (m *Merger) mergeBranches(path []string, a, b *Node) *Node {
	if len(a.kids) == 0 {
		return b
	}
	if len(b.kids) == 0 {
		return a
	}
	kids := make(map[string]*Node, len(a.kids)+len(b.kids))
	for k, v := range a.kids {
		kids[k] = v
	}
	shared := make([]string, 0, len(b.kids))
	for k, v := range b.kids {
		if _, ok := a.kids[k]; ok {
			shared = append(shared, k)
		} else {
			kids[k] = v
		}
	}
	slices.Sort(shared) // deterministic conflict reporting order
	for _, k := range shared {
		kids[k] = m.merge(append(path, k), a.kids[k], b.kids[k])
	}
	return &Node{kind: KindBranch, kids: kids}
}

func (m *Merger) mergeContainers(path []string, a, b *Node) *Node {
	switch a.ver.Compare(b.ver) {
	case Before:
		return b
	case After:
		return a
	case Equal:
		return a
	}
	m.report(path, ConflictConcurrent, a, b)
	win := a
	if canon(a) < canon(b) {
		win = b
	}
	return &Node{kind: KindContainer, val: win.val, ver: a.ver.Merge(b.ver)}
}

// mergeMixed resolves structural conflicts: a branch with data beats
// any leaf (it still holds uniquely addressable paths), an empty
// branch is a tombstone and yields to one, and a container leaf beats
// a plain value leaf (it carries causal metadata). Every rule is
// symmetric, keeping the merge commutative.
func (m *Merger) mergeMixed(path []string, a, b *Node) *Node {
	m.report(path, ConflictStructural, a, b)
	switch {
	case a.kind == KindBranch:
		if len(a.kids) == 0 {
			return b
		}
		return a
	case b.kind == KindBranch:
		if len(b.kids) == 0 {
			return a
		}
		return b
	case a.kind == KindContainer:
		return a
	default:
		return b
	}
}

func (m *Merger) report(path []string, kind ConflictKind, a, b *Node) {
	if m.OnConflict == nil {
		return
	}
	m.OnConflict(Conflict{Path: slices.Clone(path), Kind: kind, Ours: a, Theirs: b})
}

// scalarEq avoids the comparability panic on odd leaf payloads.
func scalarEq(a, b any) bool {
	return fmt.Sprintf("%T:%v", a, a) == fmt.Sprintf("%T:%v", b, b)
}

// canon is a total order on container leaves for concurrent
// tie-breaks: every replica picks the same winner from the same pair.
func canon(n *Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%T:%v;", n.val, n.val)
	srcs := make([]string, 0, len(n.ver))
	for src := range n.ver {
		srcs = append(srcs, src)
	}
	slices.Sort(srcs)
	for _, src := range srcs {
		if n.ver[src] == 0 {
			continue
		}
		fmt.Fprintf(&sb, "%s=%d,", src, n.ver[src])
	}
	return sb.String()
}
