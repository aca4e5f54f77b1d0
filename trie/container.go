package trie

// Container is the root state boundary: one replica's current view of
// the shared trie, plus the vector clock that owns it. Containers are
// superseded by every write and every merge, never mutated; an old
// Container stays valid for as long as anyone holds it.
type Container struct {
	ID   string
	Root *Node
	Ver  VV
}

// NewContainer makes the initial state for a replica: an empty branch
// root versioned {id: 0}.
func NewContainer(id string) *Container {
	return &Container{ID: id, Root: Empty(), Ver: VV{id: 0}}
}

// bump supersedes the container after a local write: new root, own
// clock entry advanced by exactly one.
func (c *Container) bump(root *Node) *Container {
	return &Container{ID: c.ID, Root: root, Ver: c.Ver.Inc(c.ID)}
}

func (c *Container) Get(path []string) *Node {
	return c.Root.Get(path)
}

func (c *Container) Has(path []string) bool {
	return c.Root.Has(path)
}

func (c *Container) SetValue(path []string, payload any) (*Container, error) {
	root, err := c.Root.SetValue(path, payload)
	if err != nil {
		return nil, err
	}
	return c.bump(root), nil
}

func (c *Container) SetContainer(path []string, payload any) (*Container, error) {
	root, err := c.Root.SetContainer(path, payload, c.ID)
	if err != nil {
		return nil, err
	}
	return c.bump(root), nil
}

func (c *Container) UpdateValue(path []string, payload any) (*Container, error) {
	root, err := c.Root.UpdateValue(path, payload, c.ID)
	if err != nil {
		return nil, err
	}
	return c.bump(root), nil
}

// RemoveValue tombstones the path. Removing an absent path is not a
// write: the container is returned as is, clock untouched.
func (c *Container) RemoveValue(path []string) *Container {
	root := c.Root.RemoveValue(path)
	if root == c.Root {
		return c
	}
	return c.bump(root)
}

// RemovePath prunes the path and any branches it leaves empty.
func (c *Container) RemovePath(path []string) *Container {
	root := c.Root.RemovePath(path)
	if root == c.Root {
		return c
	}
	return c.bump(root)
}

// MergeContainers reconciles two containers with the default merger.
func MergeContainers(a, b *Container) *Container {
	var m Merger
	return m.MergeContainers(a, b)
}

// MergeContainers reconciles two replica states. Same-id pairs are an
// old and a new view of one replica: the dominating version wins
// outright, no structural merge. Otherwise the roots merge trie-wise
// and the clocks pointwise; the resulting ID is the initiating (a)
// side, since merged state is shared rather than owned.
func (m *Merger) MergeContainers(a, b *Container) *Container {
	if a.ID == b.ID {
		if a.Ver.Compare(b.Ver) == Before {
			return b
		}
		return a
	}
	return &Container{
		ID:   a.ID,
		Root: m.Merge(a.Root, b.Root),
		Ver:  a.Ver.Merge(b.Ver),
	}
}
