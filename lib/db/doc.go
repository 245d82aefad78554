// Package db provides a standardized interface for key-value database implementations.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides Set, Get and Has, a diagnostic Dump, metadata retrieval (GetInfo)
//     and write index handling. Keys are append-only: the interface has no Delete,
//     no expiry and no persistence.
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for different database backends (currently "oak").
//
//   - Database Information: DatabaseInfo reports size estimates, the implementation
//     type and implementation specific metadata.
//
// Note on Write Indices:
//   - Every write carries a write index that serves as a logical timestamp. For an
//     existing key the write with the higher index wins, equal or lower indices
//     are stale and ignored. The database index only ever increases; SetWriteIdx
//     ignores lower values.
//
// Related Packages:
//
// The engines/oak package (github.com/ValentinKolb/oak/lib/db/engines/oak) implements
// KVDB on top of the concurrent binary search tree in lib/tree.
//
// The testing package (github.com/ValentinKolb/oak/lib/db/testing) provides
// standardized tests and benchmarks for KVDB implementations:
//   - RunKVDBTests: Runs a standardized test suite to validate implementations
//   - RunKVDBBenchmarks: Provides performance benchmarks for comparing implementations
package db
