package trie

// VV is a version vector: the max counter seen from each known replica.
// A missing entry counts as zero.
type VV map[string]uint64

// Ordering is the causal relation between two version vectors.
type Ordering int

const (
	Equal Ordering = iota
	Before
	After
	Concurrent
)

func (o Ordering) String() string {
	switch o {
	case Equal:
		return "equal"
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "concurrent"
	}
}

func (vv VV) Get(src string) (pro uint64) {
	return vv[src]
}

func (vv VV) Clone() VV {
	ret := make(VV, len(vv))
	for src, pro := range vv {
		ret[src] = pro
	}
	return ret
}

// Compare relates two version vectors causally. Entries absent on
// either side compare as zero, so {a:1} and {a:1,b:0} are Equal.
func (vv VV) Compare(b VV) Ordering {
	var less, more bool
	for src, pro := range vv {
		bpro := b[src]
		if pro < bpro {
			less = true
		} else if pro > bpro {
			more = true
		}
	}
	for src, bpro := range b {
		if _, ok := vv[src]; ok {
			continue
		}
		if bpro > 0 {
			less = true
		}
	}
	switch {
	case less && more:
		return Concurrent
	case less:
		return Before
	case more:
		return After
	default:
		return Equal
	}
}

// Merge returns the pointwise maximum over the union of keys.
// Commutative, associative, idempotent.
func (vv VV) Merge(b VV) VV {
	ret := vv.Clone()
	for src, pro := range b {
		if cur, ok := ret[src]; !ok || pro > cur {
			ret[src] = pro
		}
	}
	return ret
}

// Inc returns a new vector with the src entry advanced by one;
// the receiver is left untouched.
func (vv VV) Inc(src string) VV {
	ret := vv.Clone()
	ret[src]++
	return ret
}
