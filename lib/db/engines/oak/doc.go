// Package oak implements the db.KVDB interface on top of the concurrent binary
// search tree from lib/tree.
//
// Key Components:
//
//   - oakImpl: The database structure implementing db.KVDB. It splits the key
//     space into one or more shards and keeps the write index, the size
//     histogram and the operation metrics.
//
//   - Shard: A partition of the key space holding one tree and a striped
//     counter of its keys. With a single shard (the default) all keys live in
//     one tree. With more shards, keys are assigned by a seeded FNV-1a hash so
//     that the upper levels of each tree see less contention.
//
//   - Entry: The stored value plus the write index it was written at.
//
// Write Index and Stale Writes:
//
// The tree keeps the larger of two values on a duplicate key. Entries are
// ordered by their write index, so the tree's merge rule is the database's
// stale write rule: a write is applied only if its index is greater than the
// stored one. Equal indices keep the first write.
//
// Concurrency:
//
// Set, Get, Has, GetInfo, SetWriteIdx and WriteIdx are safe for concurrent
// use. They never take a database-wide lock; the only shared state they touch
// besides the trees are atomic counters. Dump walks the trees without locks and
// must not run concurrently with anything else.
//
// Metrics:
//
// Each database owns a VictoriaMetrics metrics.Set with the counters
// oak_set_total, oak_set_stale_total, oak_get_total and oak_get_miss_total,
// exported by WriteMetrics (see db.MetricsWriter).
//
// Not supported:
//
// Keys can not be deleted or expire and the database can not be saved or
// loaded.
package oak
