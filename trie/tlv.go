package trie

import (
	"errors"
	"fmt"
	"slices"

	"github.com/learn-decentralized-systems/toytlv"
)

// TLV shape of the container exchange format:
//
//	I  replica id
//	V* version entries, one per replica: tiny T counter record + id bytes
//	B|P|C  the root node
//
// Node records:
//
//	B  branch: V* tombstone clock entries + repeated (K segment
//	   record + child node record)
//	P  plain value leaf: one scalar record
//	C  container leaf: V* version entries + one scalar record
//
// Scalars: S string, J zigzag int64, F float64, O bool, Z nil.

var ErrBadTLV = errors.New("trie: bad TLV record")

// TLV serializes the version vector as a run of V records, sorted by
// replica id. Zero entries are kept: {id:0} is a created-but-unwritten
// replica, not an unknown one.
func (vv VV) TLV() (ret []byte) {
	srcs := make([]string, 0, len(vv))
	for src := range vv {
		srcs = append(srcs, src)
	}
	slices.Sort(srcs)
	for _, src := range srcs {
		body := toytlv.AppendTiny(nil, 'T', ZipUint64(vv[src]))
		body = append(body, src...)
		ret = toytlv.Append(ret, 'V', body)
	}
	return
}

// VVFromTLV consumes the leading run of V records.
func VVFromTLV(data []byte) (vv VV, rest []byte, err error) {
	vv = make(VV)
	rest = data
	for {
		lit, hlen, blen := toytlv.ProbeHeader(rest)
		if lit != 'V' || hlen+blen > len(rest) {
			return
		}
		body := rest[hlen : hlen+blen]
		rest = rest[hlen+blen:]
		tl, thlen, tblen := toytlv.ProbeHeader(body)
		if (tl != 'T' && tl != '0') || thlen+tblen > len(body) {
			return nil, nil, ErrBadTLV
		}
		pro := UnzipUint64(body[thlen : thlen+tblen])
		src := string(body[thlen+tblen:])
		vv[src] = pro
	}
}

// TLV serializes the container per the exchange format.
func (c *Container) TLV() (ret []byte) {
	ret = toytlv.Record('I', []byte(c.ID))
	ret = append(ret, c.Ver.TLV()...)
	ret = appendNode(ret, c.Root)
	return
}

// ContainerFromTLV parses an exchanged container. Input is untrusted:
// malformed records return ErrBadTLV, never panic.
func ContainerFromTLV(data []byte) (*Container, error) {
	idb, rest, err := toytlv.TakeWary('I', data)
	if err != nil {
		return nil, ErrBadTLV
	}
	ver, rest, err := VVFromTLV(rest)
	if err != nil {
		return nil, err
	}
	root, rest, err := takeNode(rest, 0)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrBadTLV
	}
	return &Container{ID: string(idb), Root: root, Ver: ver}, nil
}

// NodeTLV serializes one node subtree.
func (n *Node) TLV() []byte {
	return appendNode(nil, n)
}

// NodeFromTLV parses one serialized subtree.
func NodeFromTLV(data []byte) (*Node, error) {
	n, rest, err := takeNode(data, 0)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrBadTLV
	}
	return n, nil
}

func appendNode(into []byte, n *Node) []byte {
	switch n.kind {
	case KindValue:
		return toytlv.Append(into, 'P', scalarTLV(n.val))
	case KindContainer:
		return toytlv.Append(into, 'C', n.ver.TLV(), scalarTLV(n.val))
	default:
		bookmark, buf := toytlv.OpenHeader(into, 'B')
		buf = append(buf, n.ver.TLV()...) // tombstone clock, if any
		for _, k := range n.Keys() {
			buf = toytlv.Append(buf, 'K', []byte(k))
			buf = appendNode(buf, n.kids[k])
		}
		toytlv.CloseHeader(buf, bookmark)
		return buf
	}
}

// takeNode parses bounded: nesting past MaxDepth is ErrTooDeep, not a
// blown stack.
func takeNode(data []byte, depth int) (n *Node, rest []byte, err error) {
	if depth > MaxDepth {
		return nil, nil, ErrTooDeep
	}
	lit, hlen, blen := toytlv.ProbeHeader(data)
	if lit == 0 || hlen+blen > len(data) {
		return nil, nil, ErrBadTLV
	}
	body := data[hlen : hlen+blen]
	rest = data[hlen+blen:]
	switch lit {
	case 'B':
		ver, body, err := VVFromTLV(body)
		if err != nil {
			return nil, nil, err
		}
		if len(ver) == 0 {
			ver = nil
		}
		var kids map[string]*Node
		for len(body) > 0 {
			var kb []byte
			kb, body, err = toytlv.TakeWary('K', body)
			if err != nil {
				return nil, nil, ErrBadTLV
			}
			var child *Node
			child, body, err = takeNode(body, depth+1)
			if err != nil {
				return nil, nil, err
			}
			if kids == nil {
				kids = make(map[string]*Node)
			}
			kids[string(kb)] = child
		}
		return &Node{kind: KindBranch, kids: kids, ver: ver}, rest, nil
	case 'P':
		val, err := scalarFromTLV(body)
		if err != nil {
			return nil, nil, err
		}
		return &Node{kind: KindValue, val: val}, rest, nil
	case 'C':
		ver, body, err := VVFromTLV(body)
		if err != nil {
			return nil, nil, err
		}
		val, err := scalarFromTLV(body)
		if err != nil {
			return nil, nil, err
		}
		return &Node{kind: KindContainer, val: val, ver: ver}, rest, nil
	default:
		return nil, nil, ErrBadTLV
	}
}

func scalarTLV(v any) []byte {
	switch x := v.(type) {
	case nil:
		return toytlv.Record('Z')
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return toytlv.Record('O', []byte{b})
	case int64:
		return toytlv.Record('J', ZipInt64(x))
	case float64:
		return toytlv.Record('F', ZipFloat64(x))
	case string:
		return toytlv.Record('S', []byte(x))
	default:
		return toytlv.Record('S', []byte(fmt.Sprint(x)))
	}
}

func scalarFromTLV(data []byte) (any, error) {
	lit, hlen, blen := toytlv.ProbeHeader(data)
	if lit == 0 || hlen+blen != len(data) {
		return nil, ErrBadTLV
	}
	body := data[hlen : hlen+blen]
	switch lit {
	case 'Z':
		return nil, nil
	case 'O':
		if len(body) != 1 {
			return nil, ErrBadTLV
		}
		return body[0] != 0, nil
	case 'J':
		return UnzipInt64(body), nil
	case 'F':
		return UnzipFloat64(body), nil
	case 'S':
		return string(body), nil
	default:
		return nil, ErrBadTLV
	}
}
