package refactory

import (
	"encoding/binary"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/learn-decentralized-systems/toyqueue"
	"github.com/learn-decentralized-systems/toytlv"
	"github.com/mangr3n/refactory/trie"
	"github.com/mangr3n/refactory/utils"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// Store is a replicated entity-attribute-value fact log kept in a CRDT
// trie and persisted in pebble. Facts live at path [entity, attr]; the
// store owns one live container and retains every superseded one in an
// on-disk history log.
type Store struct {
	db   *pebble.DB
	dir  string
	opts Options
	log  utils.Logger

	lock sync.Mutex
	head *trie.Container
	seq  uint64

	hooks *xsync.MapOf[string, []Hook]
	cache *lru.Cache[uint64, *trie.Container]

	writes    atomic.Uint64
	merges    atomic.Uint64
	conflicts [4]atomic.Uint64
	cacheHits atomic.Uint64
	cacheMiss atomic.Uint64
}

// Hook fires after the fact at [entity, attr] changes, locally or by
// merge. A removed fact reports a nil value.
type Hook func(entity, attr string, value any)

type Options struct {
	// Src is the replica id; a fresh uuid when empty. An existing
	// store keeps the id it was created with.
	Src      string
	Logger   utils.Logger
	Registry prometheus.Registerer
	// Audit receives one TLV X record per resolved merge conflict.
	Audit    toyqueue.DrainCloser
	MaxCache int
}

func (o *Options) SetDefaults() {
	if o.Src == "" {
		o.Src = uuid.NewString()
	}
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelInfo)
	}
	if o.MaxCache == 0 {
		o.MaxCache = 1024
	}
}

var ErrClosed = errors.New("refactory: store is closed")

var writeOptions = pebble.WriteOptions{Sync: false}

var (
	keyHead = []byte{'C'}
	keySeq  = []byte{'N'}
)

func historyKey(seq uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte{'H'}, seq)
}

// Open creates or loads a store in dir.
func Open(dir string, opts Options) (s *Store, err error) {
	opts.SetDefaults()
	s = &Store{
		dir:   dir,
		opts:  opts,
		log:   opts.Logger,
		hooks: xsync.NewMapOf[string, []Hook](),
	}
	s.cache, _ = lru.New[uint64, *trie.Container](opts.MaxCache)
	s.db, err = pebble.Open(dir, &pebble.Options{
		Merger: &pebble.Merger{
			Name:  "CRDT",
			Merge: containerMerger,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "refactory: open")
	}
	if err = s.loadHead(); err != nil {
		_ = s.db.Close()
		return nil, err
	}
	if opts.Registry != nil {
		if err := opts.Registry.Register(NewStoreCollector(s)); err != nil {
			s.log.Warn("metrics registration failed", "err", err)
		}
	}
	return s, nil
}

func (s *Store) loadHead() error {
	val, closer, err := s.db.Get(keyHead)
	if err == pebble.ErrNotFound {
		s.head = trie.NewContainer(s.opts.Src)
		return s.persist(s.head)
	}
	if err != nil {
		return errors.Wrap(err, "refactory: load head")
	}
	defer closer.Close()
	head, err := trie.ContainerFromTLV(val)
	if err != nil {
		return err
	}
	s.head = head
	if s.opts.Src != head.ID {
		s.log.Debug("existing replica id kept", "id", head.ID)
		s.opts.Src = head.ID
	}
	if val, closer, err := s.db.Get(keySeq); err == nil {
		s.seq = binary.BigEndian.Uint64(val)
		_ = closer.Close()
	}
	return nil
}

func (s *Store) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Src is this replica's id.
func (s *Store) Src() string {
	return s.opts.Src
}

// Head is the live container; safe to read and merge elsewhere, it is
// never mutated.
func (s *Store) Head() *trie.Container {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.head
}

// Snapshot is the head in the container exchange format.
func (s *Store) Snapshot() []byte {
	return s.Head().TLV()
}

// persist supersedes the head: the head key takes the new state
// through the CRDT merge operator, the history log retains it forever.
func (s *Store) persist(c *trie.Container) error {
	tlv := c.TLV()
	batch := s.db.NewBatch()
	_ = batch.Merge(keyHead, tlv, nil)
	_ = batch.Set(historyKey(s.seq), tlv, nil)
	_ = batch.Set(keySeq, binary.BigEndian.AppendUint64(nil, s.seq+1), nil)
	if err := batch.Commit(&writeOptions); err != nil {
		return errors.Wrap(err, "refactory: persist")
	}
	// the sequence only advances with the commit, failures leave no hole
	s.seq++
	s.head = c
	return nil
}

// Put records the fact [entity, attr] = value as causally tracked
// state: rewrites advance past whatever clocks the attribute held,
// scalar or compound, fresh attributes start a new one.
func (s *Store) Put(entity, attr string, value any) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	path := []string{entity, attr}
	next, err := s.head.UpdateValue(path, value)
	if err != nil {
		return err
	}
	if err = s.persist(next); err != nil {
		return err
	}
	s.writes.Add(1)
	// hooks see the stored reconstruction, same as on merge
	v, _ := next.Get(path).Value()
	s.fireHooks(entity, attr, v)
	return nil
}

// Get reads the fact at [entity, attr] from the live container.
func (s *Store) Get(entity, attr string) (any, bool) {
	return s.Head().Get([]string{entity, attr}).Value()
}

// Has reports path presence, tombstones included.
func (s *Store) Has(entity, attr string) bool {
	return s.Head().Has([]string{entity, attr})
}

// Remove tombstones the fact: the path stays addressable, the value is
// gone.
func (s *Store) Remove(entity, attr string) error {
	return s.remove(entity, attr, (*trie.Container).RemoveValue)
}

// Erase removes the fact and prunes branches it leaves empty.
func (s *Store) Erase(entity, attr string) error {
	return s.remove(entity, attr, (*trie.Container).RemovePath)
}

func (s *Store) remove(entity, attr string, op func(*trie.Container, []string) *trie.Container) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	next := op(s.head, []string{entity, attr})
	if next == s.head {
		return nil
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.writes.Add(1)
	s.fireHooks(entity, attr, nil)
	return nil
}

// Merge reconciles a remote replica's container into the store.
// Idempotent: replayed deliveries converge to the same head.
func (s *Store) Merge(remote *trie.Container) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	// already seen everything the remote has: replays are free
	if ord := s.head.Ver.Compare(remote.Ver); ord == trie.After || ord == trie.Equal {
		return nil
	}
	m := trie.Merger{OnConflict: s.onConflict}
	merged := m.MergeContainers(s.head, remote)
	if merged == s.head {
		return nil
	}
	old := s.head
	if err := s.persist(merged); err != nil {
		return err
	}
	s.merges.Add(1)
	s.fireChanged(old, merged)
	return nil
}

// MergeBytes merges a container in the exchange format. Decoded
// containers are cached by content hash, so at-least-once transports
// pay for decoding once.
func (s *Store) MergeBytes(data []byte) error {
	sum := xxhash.Sum64(data)
	remote, ok := s.cache.Get(sum)
	if ok {
		s.cacheHits.Add(1)
	} else {
		s.cacheMiss.Add(1)
		var err error
		remote, err = trie.ContainerFromTLV(data)
		if err != nil {
			return err
		}
		s.cache.Add(sum, remote)
	}
	return s.Merge(remote)
}

// AddHook subscribes to changes of attr across all entities.
func (s *Store) AddHook(attr string, h Hook) {
	s.hooks.Compute(attr, func(old []Hook, _ bool) ([]Hook, bool) {
		return append(old, h), false
	})
}

func (s *Store) fireHooks(entity, attr string, value any) {
	hs, ok := s.hooks.Load(attr)
	if !ok {
		return
	}
	for _, h := range hs {
		h(entity, attr, value)
	}
}

// fireChanged walks the two top levels; structural sharing makes the
// unchanged subtrees pointer-identical, so the walk is cheap.
func (s *Store) fireChanged(old, merged *trie.Container) {
	for _, entity := range merged.Root.Keys() {
		on := old.Root.Child(entity)
		mn := merged.Root.Child(entity)
		if on == mn {
			continue
		}
		for _, attr := range mn.Keys() {
			oa := on.Child(attr)
			ma := mn.Child(attr)
			if oa == ma {
				continue
			}
			v, _ := ma.Value()
			s.fireHooks(entity, attr, v)
		}
	}
}

func (s *Store) onConflict(c trie.Conflict) {
	if int(c.Kind) < len(s.conflicts) {
		s.conflicts[c.Kind].Add(1)
	}
	s.log.Warn("merge conflict", "kind", c.Kind.String(), "path", strings.Join(c.Path, "/"))
	if s.opts.Audit == nil {
		return
	}
	rec := toytlv.Record('X',
		toytlv.Record('K', []byte(c.Kind.String())),
		toytlv.Record('P', []byte(strings.Join(c.Path, "/"))),
	)
	if err := s.opts.Audit.Drain(toyqueue.Records{rec}); err != nil {
		s.log.Error("conflict audit drain failed", "err", err)
	}
}

// History feeds back a superseded container by sequence number.
func (s *Store) History(seq uint64) (*trie.Container, error) {
	s.lock.Lock()
	db := s.db
	s.lock.Unlock()
	if db == nil {
		return nil, ErrClosed
	}
	val, closer, err := db.Get(historyKey(seq))
	if err != nil {
		return nil, errors.Wrap(err, "refactory: history")
	}
	defer closer.Close()
	return trie.ContainerFromTLV(val)
}
