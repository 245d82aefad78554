package testing

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/oak/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation
type DBFactory func() db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("StaleWrites", func(t *testing.T) {
			testStaleWrites(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("WriteIndex", func(t *testing.T) {
			testWriteIndex(t, factory())
		})

		t.Run("Dump", func(t *testing.T) {
			testDump(t, factory())
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory())
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory())
		})

		t.Run("ManyKeys", func(t *testing.T) {
			testManyKeys(t, factory())
		})

		t.Run("ConcurrentDisjointWriters", func(t *testing.T) {
			testConcurrentDisjointWriters(t, factory())
		})

		t.Run("ConcurrentSameKey", func(t *testing.T) {
			testConcurrentSameKey(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1, 1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2, 2)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = database.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := database.Get(testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := database.Get(testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte("input-value")
	database.Set("copy-key", input, 3)
	input[0] = 'X'

	stored, _ := database.Get("copy-key")
	if !bytes.Equal(stored, []byte("input-value")) {
		t.Errorf("Set should store a copy, got %s after modifying the input", stored)
	}
}

func testStaleWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	key := "stale-key"
	database.Set(key, []byte("v10"), 10)

	// lower index -> ignored
	database.Set(key, []byte("v5"), 5)
	if result, _ := database.Get(key); !bytes.Equal(result, []byte("v10")) {
		t.Errorf("Stale write with lower index was applied: got %s", result)
	}

	// equal index -> ignored, the first write wins
	database.Set(key, []byte("v10b"), 10)
	if result, _ := database.Get(key); !bytes.Equal(result, []byte("v10")) {
		t.Errorf("Write with equal index was applied: got %s", result)
	}

	// higher index -> applied
	database.Set(key, []byte("v11"), 11)
	if result, _ := database.Get(key); !bytes.Equal(result, []byte("v11")) {
		t.Errorf("Newer write was not applied: got %s", result)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas)

	testKey := "has-exists-test-key"
	testValue := []byte("has-exists-test-value")

	if database.Has(testKey) {
		t.Errorf("Expected Has to return false for nonexistent key")
	}

	database.Set(testKey, testValue, 1)

	if !database.Has(testKey) {
		t.Errorf("Expected Has to return true after Set")
	}

	if database.Has(testKey + "-other") {
		t.Errorf("Expected Has to return false for a different key")
	}
}

func testWriteIndex(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	if idx := database.WriteIdx(); idx != 0 {
		t.Errorf("Expected initial write index 0, got %d", idx)
	}

	database.Set("a", []byte("a"), 5)
	if idx := database.WriteIdx(); idx != 5 {
		t.Errorf("Expected write index 5 after Set, got %d", idx)
	}

	database.SetWriteIdx(3)
	if idx := database.WriteIdx(); idx != 5 {
		t.Errorf("Write index must not decrease, got %d", idx)
	}

	database.SetWriteIdx(42)
	if idx := database.WriteIdx(); idx != 42 {
		t.Errorf("Expected write index 42, got %d", idx)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				database.SetWriteIdx(uint64(100 + w*1000 + i))
			}
		}(w)
	}
	wg.Wait()

	if idx := database.WriteIdx(); idx != uint64(100+7*1000+999) {
		t.Errorf("Expected the highest concurrent index to win, got %d", idx)
	}
}

func testDump(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureDump)

	for i, k := range []string{"5", "3", "8", "1", "4"} {
		database.Set(k, []byte("v"+k), uint64(i+1))
	}

	var buf bytes.Buffer
	if err := database.Dump(&buf); err != nil {
		t.Fatalf("Unexpected error during Dump: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 lines, got %d: %q", len(lines), buf.String())
	}

	expectedOrder := []string{"1", "3", "4", "5", "8"}
	for i, line := range lines {
		if !strings.HasPrefix(line, fmt.Sprintf("%q", expectedOrder[i])) {
			t.Errorf("Line %d: expected key %s first, got %q", i, expectedOrder[i], line)
		}
		if !strings.Contains(line, "v"+expectedOrder[i]) {
			t.Errorf("Line %d: value missing in %q", i, line)
		}
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	for i := 0; i < 100; i++ {
		database.Set(fmt.Sprintf("info-key-%d", i), make([]byte, 100), uint64(i+1))
	}

	info := database.GetInfo()
	if info.DbType == "" {
		t.Errorf("Expected a database type")
	}
	if info.SizeBytes <= 0 {
		t.Errorf("Expected a positive size estimate, got %d", info.SizeBytes)
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("Feature %s listed in info but not supported", f)
		}
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	database.Set(emptyKey, emptyKeyValue, 1)

	result, exists := database.Get(emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	emptyValueKey := "empty-value-key"
	database.Set(emptyValueKey, []byte{}, 2)

	result, exists = database.Get(emptyValueKey)
	if !exists {
		t.Errorf("Key for empty value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Empty value mismatch: %v", result)
	}

	nilValueKey := "nil-value-key"
	database.Set(nilValueKey, nil, 3)

	result, exists = database.Get(nilValueKey)
	if !exists {
		t.Errorf("Key for nil value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	largeKey := string(make([]byte, 1000))
	largeKeyValue := []byte("value for large key")

	database.Set(largeKey, largeKeyValue, 4)

	result, exists = database.Get(largeKey)
	if !exists {
		t.Errorf("Large key not found after Set")
	} else if !bytes.Equal(result, largeKeyValue) {
		t.Errorf("Value mismatch for large key")
	}

	largeValueKey := "large-value-key"
	largeValue := make([]byte, 10*1024*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	database.Set(largeValueKey, largeValue, 5)

	result, exists = database.Get(largeValueKey)
	if !exists {
		t.Errorf("Key for large value not found after Set")
	} else if !bytes.Equal(result, largeValue) {
		t.Errorf("Large value mismatch (len %d, expected %d)", len(result), len(largeValue))
	}
}

func testManyKeys(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureHas)

	prefix := "many-keys-"
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		database.Set(key, []byte(fmt.Sprintf("value-%d", i)), uint64(i+1))
	}

	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("%s%d", prefix, i)
		expectedValue := []byte(fmt.Sprintf("value-%d", i))

		actualValue, exists := database.Get(key)
		if !exists {
			t.Errorf("Key %s not found", key)
			continue
		}

		if !bytes.Equal(actualValue, expectedValue) {
			t.Errorf("Value for key %s does not match: expected %s, got %s",
				key, expectedValue, actualValue)
		}
	}

	for i := numKeys; i < 2*numKeys; i++ {
		if database.Has(fmt.Sprintf("%s%d", prefix, i)) {
			t.Errorf("Key %s%d should not exist", prefix, i)
		}
	}
}

func testConcurrentDisjointWriters(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	numWorkers := 8
	keysPerWorker := 1000

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()
			for i := 0; i < keysPerWorker; i++ {
				key := fmt.Sprintf("worker-%d-key-%d", workerId, i)
				database.Set(key, []byte(key), uint64(i+1))

				if value, ok := database.Get(key); !ok || !bytes.Equal(value, []byte(key)) {
					t.Errorf("Read-your-write failed for %s: found=%v value=%s", key, ok, value)
				}
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < numWorkers; w++ {
		for i := 0; i < keysPerWorker; i++ {
			key := fmt.Sprintf("worker-%d-key-%d", w, i)
			if value, ok := database.Get(key); !ok || !bytes.Equal(value, []byte(key)) {
				t.Errorf("Key %s lost: found=%v value=%s", key, ok, value)
			}
		}
	}
}

func testConcurrentSameKey(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	numWorkers := 8
	writesPerWorker := 1000
	var index atomic.Uint64

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < writesPerWorker; i++ {
				idx := index.Add(1)
				database.Set("hot-key", []byte(fmt.Sprintf("value-%d", idx)), idx)
			}
		}()
	}
	wg.Wait()

	// the write with the highest index must have won, no matter the interleaving
	expected := []byte(fmt.Sprintf("value-%d", numWorkers*writesPerWorker))
	if value, _ := database.Get("hot-key"); !bytes.Equal(value, expected) {
		t.Errorf("Expected %s to win, got %s", expected, value)
	}
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureHas)

	type operation struct {
		op    string
		key   string
		value []byte
	}

	numOperations := 10_000
	operations := make([]operation, numOperations)

	for i := 0; i < numOperations; i++ {
		var op string
		switch i % 10 {
		case 0, 1, 2, 3, 4, 5, 6:
			op = "set"
		case 7, 8:
			op = "get"
		case 9:
			op = "has"
		}

		var key string
		if i%5 == 0 {
			key = fmt.Sprintf("hot-key-%d", i%50)
		} else {
			key = fmt.Sprintf("key-%d", i)
		}

		var value []byte
		if op == "set" {
			valueSize := 64
			if i%10 == 0 {
				valueSize = 1024
			}
			value = make([]byte, valueSize)
			for j := 0; j < valueSize; j++ {
				value[j] = byte((i + j) % 256)
			}
		}

		operations[i] = operation{op, key, value}
	}

	numWorkers := 8
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	var index atomic.Uint64
	opsPerWorker := numOperations / numWorkers

	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()

			start := workerId * opsPerWorker
			end := start + opsPerWorker

			for i := start; i < end; i++ {
				op := operations[i]

				switch op.op {
				case "set":
					database.Set(op.key, op.value, index.Add(1))
				case "get":
					database.Get(op.key)
				case "has":
					database.Has(op.key)
				}
			}
		}(w)
	}

	wg.Wait()

	// every key that was set must be readable, and Get and Has must agree
	for _, op := range operations {
		_, found := database.Get(op.key)
		if op.op == "set" && !found {
			t.Errorf("Key %s was set but is not found", op.key)
		}
		if found != database.Has(op.key) {
			t.Errorf("Get and Has disagree for key %s", op.key)
		}
	}
}
