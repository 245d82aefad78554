package tree

import (
	"fmt"
	"math/rand"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/oak/lib/maybe"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const letters = "qwertyuiopasdfghjklzxcvbnm"

// TestGiveAndQueryLetters runs four goroutines, two per alphabet case, that
// give and immediately query back each letter.
func TestGiveAndQueryLetters(t *testing.T) {
	tr := NewStringTree()

	giver := func(chars string) func() {
		return func() {
			for _, c := range chars {
				s := string(c)
				tr.Give(s, s)
				runtime.Gosched()
				if got := tr.Query(s); !maybe.Equal(got, maybe.Some(s)) {
					t.Errorf("query %q: expected Some(%s), got %v", s, s, got)
				}
			}
		}
	}

	var wg sync.WaitGroup
	for _, fn := range []func(){
		giver(letters),
		giver(strings.ToUpper(letters)),
		giver(letters),
		giver(strings.ToUpper(letters)),
	} {
		wg.Add(1)
		go func(fn func()) {
			defer wg.Done()
			fn()
		}(fn)
	}
	wg.Wait()

	for _, c := range letters {
		lower, upper := string(c), strings.ToUpper(string(c))
		assert.Equal(t, maybe.Some(lower), tr.Get(lower))
		assert.Equal(t, maybe.Some(upper), tr.Get(upper))
	}
	assert.Equal(t, 2*len(letters), tr.Len())
}

// TestConcurrentDisjointGives checks that no key is lost when goroutines give
// disjoint key sets.
func TestConcurrentDisjointGives(t *testing.T) {
	const (
		workers   = 8
		perWorker = 2000
	)

	tr := NewIntTree()
	oracle := xsync.NewMapOf[int, int]()

	keys := rand.New(rand.NewSource(42)).Perm(workers * perWorker)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			<-start
			for i := w; i < len(keys); i += workers {
				k := keys[i]
				if res := tr.Give(k, k*2); res.IsSome() {
					t.Errorf("give %d: expected None, got %v", k, res)
				}
				oracle.Store(k, k*2)
			}
		}(w)
	}
	close(start)
	wg.Wait()

	require.Equal(t, oracle.Size(), tr.Len())
	oracle.Range(func(k, v int) bool {
		assert.Equal(t, maybe.Some(v), tr.Query(k), "key %d", k)
		return true
	})
	assertStrictlyAscending(t, tr)
}

// TestConcurrentSameKeyKeepsMax lets every goroutine fight over one key.
func TestConcurrentSameKeyKeepsMax(t *testing.T) {
	const (
		workers   = 16
		perWorker = 500
	)

	tr := NewIntTree()
	var (
		wg      sync.WaitGroup
		created atomic.Int64
		maxSeen atomic.Int64
	)
	start := make(chan struct{})
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			<-start
			for i := 0; i < perWorker; i++ {
				v := r.Intn(1_000_000)
				for {
					cur := maxSeen.Load()
					if int64(v) <= cur || maxSeen.CompareAndSwap(cur, int64(v)) {
						break
					}
				}
				if tr.Give(7, v).IsNone() {
					created.Add(1)
				}
			}
		}(int64(w))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), created.Load(), "exactly one give must create the key")
	assert.Equal(t, maybe.Some(int(maxSeen.Load())), tr.Query(7))
	assert.Equal(t, 1, tr.Len())
}

// TestConcurrentRootCreation races many goroutines on an empty tree.
func TestConcurrentRootCreation(t *testing.T) {
	const workers = 32

	for round := 0; round < 50; round++ {
		distinct := NewIntTree()
		same := NewIntTree()

		var (
			wg          sync.WaitGroup
			sameCreated atomic.Int64
		)
		start := make(chan struct{})
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				<-start
				if res := distinct.Give(w, w); res.IsSome() {
					t.Errorf("round %d: give %d returned %v", round, w, res)
				}
				if same.Give(0, w).IsNone() {
					sameCreated.Add(1)
				}
			}(w)
		}
		close(start)
		wg.Wait()

		require.Equal(t, workers, distinct.Len(), "round %d", round)
		require.Equal(t, int64(1), sameCreated.Load(), "round %d", round)
		require.Equal(t, maybe.Some(workers-1), same.Query(0), "round %d", round)
	}
}

// TestReadersDoNotBlockEachOther holds a read lock on the root and checks that
// queries, which need the same read lock, still complete.
func TestReadersDoNotBlockEachOther(t *testing.T) {
	tr := NewIntTree()
	for _, k := range []int{50, 25, 75, 10, 30} {
		tr.Give(k, k)
	}

	root := tr.root.Load()
	root.mu.RLock()
	defer root.mu.RUnlock()

	const readers = 16
	done := make(chan struct{}, readers)
	for i := 0; i < readers; i++ {
		go func(i int) {
			tr.Query(10)
			tr.Query(75)
			tr.Query(1000 + i)
			done <- struct{}{}
		}(i)
	}

	timeout := time.After(5 * time.Second)
	for i := 0; i < readers; i++ {
		select {
		case <-done:
		case <-timeout:
			t.Fatalf("only %d of %d readers finished while a read lock was held", i, readers)
		}
	}
}

// TestValuesOnlyGrowUnderConcurrentReads checks that readers never observe a
// value going backwards while writers raise it.
func TestValuesOnlyGrowUnderConcurrentReads(t *testing.T) {
	const (
		keys    = 200
		steps   = 20
		readers = 4
	)

	tr := NewIntTree()
	var (
		wg      sync.WaitGroup
		writing atomic.Bool
	)
	writing.Store(true)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer writing.Store(false)
		for s := 0; s < steps; s++ {
			for k := 0; k < keys; k++ {
				tr.Give((k*7919)%keys, s)
			}
		}
	}()

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := make([]int, keys)
			for i := range last {
				last[i] = -1
			}
			for writing.Load() {
				for k := 0; k < keys; k++ {
					v, ok := tr.Query(k).Get()
					if !ok {
						if last[k] != -1 {
							t.Errorf("key %d disappeared", k)
						}
						continue
					}
					if v < last[k] {
						t.Errorf("key %d went from %d back to %d", k, last[k], v)
					}
					last[k] = v
				}
			}
		}()
	}
	wg.Wait()

	for k := 0; k < keys; k++ {
		assert.Equal(t, maybe.Some(steps-1), tr.Query(k), fmt.Sprintf("key %d", k))
	}
}

// TestMixedWorkload gives random keys v -> v and some v -> v+1 and queries
// them back, the value must always be one of the two.
func TestMixedWorkload(t *testing.T) {
	const (
		workers = 6
		total   = 30_000
	)
	r := rand.New(rand.NewSource(7))
	values := make([]int, total)
	for i := range values {
		values[i] = r.Intn(1 << 30)
	}

	tr := NewIntTree()
	var wg sync.WaitGroup

	// one goroutine bumps random values to v+1
	wg.Add(1)
	go func() {
		defer wg.Done()
		r := rand.New(rand.NewSource(8))
		for i := 0; i < total/50; i++ {
			v := values[r.Intn(total)]
			tr.Give(v, v+1)
		}
	}()

	check := func(v int) {
		got, ok := tr.Query(v).Get()
		if !ok || (got != v && got != v+1) {
			t.Errorf("query %d: got %d (found=%v)", v, got, ok)
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < total; i += workers {
				tr.Give(values[i], values[i])
				check(values[i])
			}
			for i := w; i < total; i += workers {
				check(values[i])
			}
		}(w)
	}
	wg.Wait()
	assertStrictlyAscending(t, tr)
}
