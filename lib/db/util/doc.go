// Package util provides helpers for database implementations that satisfy the
// db.KVDB interface and for the benchmark harness.
//
// The package contains:
//   - statistics: summary and distribution statistics (Stats, DistributionStats)
//     and a SizeHistogram for tracking data size distribution
//   - functions: seed generation and the FNV-1a string hash used for sharding
package util
