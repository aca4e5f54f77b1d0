package refactory

import (
	"github.com/cockroachdb/pebble"
	"github.com/mangr3n/refactory/trie"
	"github.com/prometheus/client_golang/prometheus"
)

// StoreCollector exposes store and pebble health to Prometheus.
type StoreCollector struct {
	store *Store

	writesTotal    *prometheus.Desc
	mergesTotal    *prometheus.Desc
	conflictsTotal *prometheus.Desc
	cacheHits      *prometheus.Desc
	cacheMisses    *prometheus.Desc

	memtableSize *prometheus.Desc
	walSize      *prometheus.Desc
}

func NewStoreCollector(store *Store) *StoreCollector {
	return &StoreCollector{
		store: store,

		writesTotal: prometheus.NewDesc(
			"refactory_writes_total",
			"Total number of local fact writes",
			nil, nil,
		),
		mergesTotal: prometheus.NewDesc(
			"refactory_merges_total",
			"Total number of applied remote merges",
			nil, nil,
		),
		conflictsTotal: prometheus.NewDesc(
			"refactory_merge_conflicts_total",
			"Total number of resolved merge conflicts",
			[]string{"kind"}, nil,
		),
		cacheHits: prometheus.NewDesc(
			"refactory_container_cache_hits_total",
			"Decoded-container cache hits",
			nil, nil,
		),
		cacheMisses: prometheus.NewDesc(
			"refactory_container_cache_misses_total",
			"Decoded-container cache misses",
			nil, nil,
		),
		memtableSize: prometheus.NewDesc(
			"refactory_pebble_memtable_size_bytes",
			"Current pebble memtable size",
			nil, nil,
		),
		walSize: prometheus.NewDesc(
			"refactory_pebble_wal_size_bytes",
			"Current pebble WAL size",
			nil, nil,
		),
	}
}

func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.writesTotal
	ch <- c.mergesTotal
	ch <- c.conflictsTotal
	ch <- c.cacheHits
	ch <- c.cacheMisses
	ch <- c.memtableSize
	ch <- c.walSize
}

func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.store
	ch <- prometheus.MustNewConstMetric(c.writesTotal, prometheus.CounterValue,
		float64(s.writes.Load()))
	ch <- prometheus.MustNewConstMetric(c.mergesTotal, prometheus.CounterValue,
		float64(s.merges.Load()))
	for _, kind := range []trie.ConflictKind{
		trie.ConflictValue, trie.ConflictConcurrent, trie.ConflictStructural,
	} {
		ch <- prometheus.MustNewConstMetric(c.conflictsTotal, prometheus.CounterValue,
			float64(s.conflicts[kind].Load()), kind.String())
	}
	ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue,
		float64(s.cacheHits.Load()))
	ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue,
		float64(s.cacheMiss.Load()))

	var m *pebble.Metrics
	s.lock.Lock()
	if s.db != nil {
		m = s.db.Metrics()
	}
	s.lock.Unlock()
	if m == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.memtableSize, prometheus.GaugeValue,
		float64(m.MemTable.Size))
	ch <- prometheus.MustNewConstMetric(c.walSize, prometheus.GaugeValue,
		float64(m.WAL.Size))
}
