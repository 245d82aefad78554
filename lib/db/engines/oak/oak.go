package oak

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"sync/atomic"

	"github.com/ValentinKolb/oak/lib/common"
	"github.com/ValentinKolb/oak/lib/db"
	"github.com/ValentinKolb/oak/lib/db/engines/oak/internal"
	"github.com/ValentinKolb/oak/lib/db/util"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// every sampleEvery-th new key is added to the size histogram
	sampleEvery = 64
	// per entry bookkeeping: node pointers, lock, index, slice headers
	entryOverhead = 96
)

// --------------------------------------------------------------------------
// Core Oak database structure
// --------------------------------------------------------------------------

// oakImpl implements db.KVDB on top of concurrent binary search trees
type oakImpl struct {
	seed      uint64
	shards    []*internal.Shard
	currIndex atomic.Uint64

	sizes  *util.SizeHistogram
	closed atomic.Bool

	metrics   *metrics.Set
	setTotal  *metrics.Counter
	setStale  *metrics.Counter
	getTotal  *metrics.Counter
	getMisses *metrics.Counter

	log logger.ILogger
}

// DBOptions configures the database during initialization
type DBOptions struct {
	// NumShards is the number of independent trees the key space is split into.
	// One shard keeps every key in a single tree.
	NumShards int
}

// DefaultOptions returns the default options (a single tree)
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: 1,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewOakDB creates a new database with the specified options (optional)
func NewOakDB(opts *DBOptions) db.KVDB {
	return newOak(opts)
}

func newOak(opts *DBOptions) *oakImpl {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards < 1 {
		opts.NumShards = 1
	}

	shards := make([]*internal.Shard, opts.NumShards)
	for i := range shards {
		shards[i] = internal.NewShard()
	}

	set := metrics.NewSet()
	o := &oakImpl{
		seed:      util.NewSeed(),
		shards:    shards,
		sizes:     util.NewSizeHistogram(),
		metrics:   set,
		setTotal:  set.NewCounter("oak_set_total"),
		setStale:  set.NewCounter("oak_set_stale_total"),
		getTotal:  set.NewCounter("oak_get_total"),
		getMisses: set.NewCounter("oak_get_miss_total"),
		log:       logger.GetLogger(common.LogDB),
	}

	o.log.Debugf("created oak database with %d shard(s)", opts.NumShards)
	return o
}

// shardFor returns the shard responsible for key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (o *oakImpl) shardFor(key string) *internal.Shard {
	if len(o.shards) == 1 {
		return o.shards[0]
	}
	return internal.GetShard(util.HashString(key, o.seed), o.shards)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set stores a copy of value under key. On an existing key the write with the
// higher write index wins; equal or lower indices are stale and ignored.
// Set on a closed database does nothing.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (o *oakImpl) Set(key string, value []byte, writeIndex uint64) {
	if o.closed.Load() {
		return
	}
	o.SetWriteIdx(writeIndex)
	o.setTotal.Inc()

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	shard := o.shardFor(key)
	prev, existed := shard.Data.Give(key, internal.Entry{Value: valueCopy, Index: writeIndex}).Get()
	if !existed {
		if shard.Size.Value()%sampleEvery == 0 {
			o.sizes.AddSample(len(key) + len(valueCopy) + entryOverhead)
		}
		shard.Size.Inc()
		return
	}

	if prev.Index >= writeIndex {
		o.setStale.Inc()
	}
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a copy of the value stored under key. A closed database has no keys.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (o *oakImpl) Get(key string) ([]byte, bool) {
	if o.closed.Load() {
		return nil, false
	}
	o.getTotal.Inc()

	entry, ok := o.shardFor(key).Data.Query(key).Get()
	if !ok {
		o.getMisses.Inc()
		return nil, false
	}

	data := make([]byte, len(entry.Value))
	copy(data, entry.Value)
	return data, true
}

// Has checks if a key exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (o *oakImpl) Has(key string) bool {
	if o.closed.Load() {
		return false
	}
	return o.shardFor(key).Data.Query(key).IsSome()
}

// --------------------------------------------------------------------------
// Diagnostics
// --------------------------------------------------------------------------

type dumpEntry struct {
	key   string
	entry internal.Entry
}

// Dump writes one line per key in ascending key order.
//
// Thread-safety: This method is NOT thread-safe.
func (o *oakImpl) Dump(w io.Writer) error {
	var all []dumpEntry
	for _, shard := range o.shards {
		shard.Data.Walk(func(key string, e internal.Entry) bool {
			all = append(all, dumpEntry{key, e})
			return true
		})
	}

	// each shard is already ordered, only multiple shards need merging
	if len(o.shards) > 1 {
		sort.Slice(all, func(i, j int) bool { return all[i].key < all[j].key })
	}

	bw := bufio.NewWriter(w)
	for _, d := range all {
		if _, err := fmt.Fprintf(bw, "%q = %s\n", d.key, d.entry); err != nil {
			return fmt.Errorf("dump %q: %w", d.key, err)
		}
	}
	return bw.Flush()
}

// WriteMetrics writes the operation counters of this database in Prometheus text format
func (o *oakImpl) WriteMetrics(w io.Writer) {
	o.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Info, Features and Write Index
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database. Sizes are estimates.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (o *oakImpl) GetInfo() db.DatabaseInfo {
	shardSizes := make([]float64, len(o.shards))
	var keys int64
	for i, shard := range o.shards {
		n := shard.Size.Value()
		shardSizes[i] = float64(n)
		keys += n
	}

	// weighted estimate (60% median, 40% average) per entry
	perEntry := (o.sizes.MedianEstimate()*60 + o.sizes.AverageSize()*40) / 100

	meta := &struct {
		CurrentWriteIndex uint64                 `json:"current_write_index"`
		Keys              int64                  `json:"keys"`
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
		Sets              uint64                 `json:"sets"`
		StaleSets         uint64                 `json:"stale_sets"`
		Gets              uint64                 `json:"gets"`
		GetMisses         uint64                 `json:"get_misses"`
		Info              string                 `json:"info"`
	}{
		CurrentWriteIndex: o.currIndex.Load(),
		Keys:              keys,
		ShardCount:        len(o.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
		Sets:              o.setTotal.Get(),
		StaleSets:         o.setStale.Get(),
		Gets:              o.getTotal.Get(),
		GetMisses:         o.getMisses.Get(),
		Info:              "SizeBytes is estimated from a sample of the inserted entries.",
	}

	return db.DatabaseInfo{
		SizeBytes:         perEntry * int(keys),
		DbType:            db.ImplOak,
		SupportedFeatures: []db.Feature{db.FeatureSet, db.FeatureGet, db.FeatureHas, db.FeatureDump},
		Metadata:          meta,
	}
}

// SupportsFeature checks if the database supports all given features
func (o *oakImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureHas |
		db.FeatureDump
	return supportedFeatures&feature == feature
}

// SetWriteIdx raises the current write index to newIdx if it is greater
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (o *oakImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := o.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if o.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current write index
func (o *oakImpl) WriteIdx() uint64 {
	return o.currIndex.Load()
}

// Close releases the database. Later writes are ignored and lookups report absence.
func (o *oakImpl) Close() error {
	if o.closed.CompareAndSwap(false, true) {
		o.log.Debugf("closed oak database (index %d)", o.currIndex.Load())
	}
	return nil
}
