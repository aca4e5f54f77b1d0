package trie

import (
	"errors"
	"strconv"
)

// Form is the decomposition shape of a payload, decided once at write
// time rather than re-inspected on every walk.
type Form uint8

const (
	FormScalar Form = iota
	FormSequence
	FormRecord
)

// MaxDepth bounds payload nesting; cyclic structures have no trie
// representation and are rejected at this depth.
const MaxDepth = 512

var ErrTooDeep = errors.New("trie: payload nesting exceeds MaxDepth")

// FormOf classifies a payload: ordered sequence, keyed record, or
// scalar (everything else).
func FormOf(v any) Form {
	switch v.(type) {
	case []any:
		return FormSequence
	case map[string]any:
		return FormRecord
	default:
		return FormScalar
	}
}

// decompose mounts a payload as a subtree: sequences become branches
// keyed "0".."n-1", records become branches keyed by field, scalars
// become leaves produced by leaf().
func decompose(v any, leaf func(any) *Node, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	switch FormOf(v) {
	case FormSequence:
		seq := v.([]any)
		if len(seq) == 0 {
			return Empty(), nil
		}
		kids := make(map[string]*Node, len(seq))
		for i, el := range seq {
			child, err := decompose(el, leaf, depth+1)
			if err != nil {
				return nil, err
			}
			kids[strconv.Itoa(i)] = child
		}
		return &Node{kind: KindBranch, kids: kids}, nil
	case FormRecord:
		rec := v.(map[string]any)
		if len(rec) == 0 {
			return Empty(), nil
		}
		kids := make(map[string]*Node, len(rec))
		for k, el := range rec {
			child, err := decompose(el, leaf, depth+1)
			if err != nil {
				return nil, err
			}
			kids[k] = child
		}
		return &Node{kind: KindBranch, kids: kids}, nil
	default:
		return leaf(normalize(v)), nil
	}
}

// normalize folds numeric scalars to int64/float64 so equal payloads
// written through different Go types land on the same representation.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// Value reconstructs the payload rooted at n: a branch whose keys are
// exactly the contiguous run "0".."n-1" rebuilds a sequence, any other
// branch a record. Tombstoned children are omitted; a branch with no
// reconstructable children yields (nil, false), same as an absent node.
func (n *Node) Value() (any, bool) {
	if n == nil {
		return nil, false
	}
	if n.kind != KindBranch {
		return n.val, true
	}
	if len(n.kids) == 0 {
		return nil, false
	}
	vals := make(map[string]any, len(n.kids))
	for k, kid := range n.kids {
		if v, ok := kid.Value(); ok {
			vals[k] = v
		}
	}
	if len(vals) == 0 {
		return nil, false
	}
	if seq, ok := asSequence(vals); ok {
		return seq, true
	}
	return vals, true
}

func asSequence(vals map[string]any) ([]any, bool) {
	seq := make([]any, len(vals))
	for k, v := range vals {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(seq) || k != strconv.Itoa(i) {
			return nil, false
		}
		seq[i] = v
	}
	return seq, true
}
