package testing

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/oak/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {

		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("SetExisting", func(b *testing.B) {
			benchmarkSetExisting(b, factory())
		})

		b.Run("SetStale", func(b *testing.B) {
			benchmarkSetStale(b, factory())
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Has", func(b *testing.B) {
			benchmarkHas(b, factory())
		})

		b.Run("Has(not)", func(b *testing.B) {
			benchmarkHasNot(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// Parallel benchmarking for Set operation with new keys
func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var index atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		// random prefix per goroutine, sequential keys would degenerate the tree
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", r.Int63())
			database.Set(key, []byte("test-value"), index.Add(1))
		}
	})
}

// Parallel benchmarking for Set operation on existing keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	numKeys := 10000
	keys := randomKeys(numKeys)
	var index atomic.Uint64
	for _, key := range keys {
		database.Set(key, []byte("initial-value"), index.Add(1))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Set(keys[counter%numKeys], []byte("updated-value"), index.Add(1))
			counter++
		}
	})
}

// Parallel benchmarking for Set operation with writes that are always stale
func benchmarkSetStale(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	numKeys := 10000
	keys := randomKeys(numKeys)
	for _, key := range keys {
		database.Set(key, []byte("current-value"), 1<<62)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Set(keys[counter%numKeys], []byte("stale-value"), 1)
			counter++
		}
	})
}

// Parallel benchmarking for Set operation with large values
func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var index atomic.Uint64
	largeValue := make([]byte, 1*1024*1024) // 1MB

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", r.Int63())
			database.Set(key, largeValue, index.Add(1))
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	// Prepare data
	numKeys := 10000
	keys := randomKeys(numKeys)
	for i, key := range keys {
		database.Set(key, []byte(fmt.Sprintf("test-value-%d", i)), uint64(i+1))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Get(keys[counter%numKeys])
			counter++
		}
	})
}

// Parallel benchmarking for Has operation on existing keys
func benchmarkHas(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureHas)

	numKeys := 10000
	keys := randomKeys(numKeys)
	for i, key := range keys {
		database.Set(key, []byte("test-value"), uint64(i+1))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Has(keys[counter%numKeys])
			counter++
		}
	})
}

// Parallel benchmarking for Has operation on missing keys
func benchmarkHasNot(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureHas)

	numKeys := 10000
	keys := randomKeys(numKeys)
	for i, key := range keys {
		database.Set(key, []byte("test-value"), uint64(i+1))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Has(fmt.Sprintf("missing-%d", counter%numKeys))
			counter++
		}
	})
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureHas)

	// Number of pre-populated keys
	numKeys := 100000
	if b.N < numKeys {
		numKeys = b.N
	}

	// Prepare initial data
	keys := randomKeys(numKeys)
	var index atomic.Uint64
	for i, key := range keys {
		database.Set(key, []byte(fmt.Sprintf("test-value-%d", i)), index.Add(1))
	}

	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		localCounter := 0

		for pb.Next() {
			idx := int(counter.Add(1)-1) % numKeys

			// For every 10th operation, use a completely new key
			var key string
			if localCounter%10 == 0 {
				key = fmt.Sprintf("new-key-%d-%d", idx, localCounter)
			} else {
				key = keys[idx]
			}

			switch localCounter % 4 {
			case 0, 1:
				database.Get(key)
			case 2:
				database.Set(key, []byte(fmt.Sprintf("mixed-value-%d", localCounter)), index.Add(1))
			case 3:
				database.Has(key)
			}

			localCounter++
		}
	})
}

// randomKeys returns n distinct keys in random order
func randomKeys(n int) []string {
	keys := make([]string, n)
	for i, p := range rand.Perm(n) {
		keys[i] = fmt.Sprintf("test-key-%d", p)
	}
	return keys
}
