package tree

import (
	"bytes"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/oak/lib/maybe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requirePanicsWith fails unless fn panics with an error matching target
func requirePanicsWith(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.Is(err, target), "expected %v, got %v", target, err)
	}()
	fn()
}

func intCompare(a, b int) int {
	return compareKeys(a, b)
}

func TestInsertAndGet(t *testing.T) {
	tr := New[string, int](WithCompare(intCompare))

	assert.True(t, tr.Insert("Basant", 175).IsNone())
	assert.True(t, tr.Insert("Yanny", 160).IsNone())
	assert.True(t, tr.Insert("Gries", 140).IsNone())
	assert.True(t, tr.Insert("Ambrose", 160).IsNone())
	assert.True(t, tr.Insert("Balll", 175).IsNone())
	assert.Equal(t, maybe.Some(175), tr.Insert("Balll", 176))
	assert.Equal(t, maybe.Some(176), tr.Get("Balll"))

	assert.Equal(t, maybe.Some(175), tr.Get("Basant"))
	assert.Equal(t, maybe.Some(140), tr.Get("Gries"))
	assert.True(t, tr.Get("Nobody").IsNone())
	assert.Equal(t, 5, tr.Len())
}

func TestGiveFromTwoGoroutines(t *testing.T) {
	tr := New[string, int](WithCompare(intCompare))
	tr.Insert("Basant", 175)
	tr.Insert("Yanny", 120)

	var (
		wg       sync.WaitGroup
		yanny    maybe.Maybe[int]
		ambrose  maybe.Maybe[int]
		ball     maybe.Maybe[int]
		gries    maybe.Maybe[int]
		startAll = make(chan struct{})
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		<-startAll
		yanny = tr.Give("Yanny", 160)
		gries = tr.Give("Gries", 140)
	}()
	go func() {
		defer wg.Done()
		<-startAll
		ambrose = tr.Give("Ambrose", 159)
		ball = tr.Give("Ball", 190)
	}()
	close(startAll)
	wg.Wait()

	assert.Equal(t, maybe.Some(120), yanny)
	assert.True(t, gries.IsNone())
	assert.True(t, ambrose.IsNone())
	assert.True(t, ball.IsNone())

	assert.Equal(t, maybe.Some(160), tr.Query("Yanny"))
	assert.Equal(t, maybe.Some(159), tr.Query("Ambrose"))
	assert.Equal(t, maybe.Some(190), tr.Query("Ball"))
	assert.Equal(t, maybe.Some(140), tr.Query("Gries"))
}

func TestQueryEmptyTree(t *testing.T) {
	tr := NewStringTree()
	assert.True(t, tr.Empty())
	assert.True(t, tr.Query("anything").IsNone())
	assert.True(t, tr.Query("").IsNone())
	assert.True(t, tr.Get("anything").IsNone())
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, tr.Depth())
}

func TestQueryAbsentKey(t *testing.T) {
	tr := NewIntTree()
	for _, k := range []int{50, 25, 75, 10, 30, 60, 90} {
		tr.Give(k, k)
	}
	for _, k := range []int{0, 11, 26, 55, 74, 76, 100} {
		assert.True(t, tr.Query(k).IsNone(), "key %d", k)
		assert.True(t, tr.Get(k).IsNone(), "key %d", k)
	}
}

func TestInOrderAfterGive(t *testing.T) {
	tr := NewIntTree()
	for _, k := range []int{5, 3, 8, 1, 4} {
		require.True(t, tr.Give(k, k).IsNone())
	}

	var keys []int
	tr.Walk(func(k, _ int) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []int{1, 3, 4, 5, 8}, keys)

	var buf bytes.Buffer
	require.NoError(t, tr.WriteInOrder(&buf))
	assert.Equal(t, "(1, 1) (3, 3) (4, 4) (5, 5) (8, 8) \n", buf.String())

	buf.Reset()
	require.NoError(t, tr.WritePreOrder(&buf))
	assert.Equal(t, "(5, 5) (3, 3) (1, 1) (4, 4) (8, 8) \n", buf.String())

	assert.Equal(t, 3, tr.Depth())
}

func TestWalkStopsEarly(t *testing.T) {
	tr := NewIntTree()
	for k := 0; k < 10; k++ {
		tr.Give(k, k)
	}
	var seen []int
	tr.Walk(func(k, _ int) bool {
		seen = append(seen, k)
		return k < 2
	})
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestDuplicateKeepsLarger(t *testing.T) {
	tr := NewStringTree()

	assert.True(t, tr.Give("k", "a").IsNone())
	assert.Equal(t, maybe.Some("a"), tr.Give("k", "b"))
	assert.Equal(t, maybe.Some("b"), tr.Query("k"))

	// a smaller value returns the current one and is not stored
	assert.Equal(t, maybe.Some("b"), tr.Give("k", "a"))
	assert.Equal(t, maybe.Some("b"), tr.Query("k"))
	assert.Equal(t, 1, tr.Len())
}

func TestDefaultCompareIsLexical(t *testing.T) {
	tr := New[string, int]()

	tr.Give("k", 9)
	// "10" < "9" in lexical order, so 9 stays
	assert.Equal(t, maybe.Some(9), tr.Give("k", 10))
	assert.Equal(t, maybe.Some(9), tr.Query("k"))

	num := NewIntTree()
	num.Give(1, 9)
	num.Give(1, 10)
	assert.Equal(t, maybe.Some(10), num.Query(1))
}

func TestSetCompare(t *testing.T) {
	tr := New[string, int]()
	tr.SetCompare(intCompare)
	tr.Give("k", 9)
	tr.Give("k", 10)
	assert.Equal(t, maybe.Some(10), tr.Query("k"))

	requirePanicsWith(t, ErrCompareAlreadySet, func() {
		tr.SetCompare(intCompare)
	})
	requirePanicsWith(t, ErrCompareAlreadySet, func() {
		NewIntTree().SetCompare(intCompare)
	})
	requirePanicsWith(t, ErrNilCompare, func() {
		New[string, int]().SetCompare(nil)
	})
}

func TestWithNilCompare(t *testing.T) {
	requirePanicsWith(t, ErrNilCompare, func() {
		New[string, int](WithCompare[int](nil))
	})

	// a later non-nil option wins over an earlier nil one
	tr := New[string, int](WithCompare[int](nil), WithCompare(intCompare))
	tr.Give("k", 9)
	tr.Give("k", 10)
	assert.Equal(t, maybe.Some(10), tr.Query("k"))
}

func TestInsertAndGiveAgree(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	viaInsert := NewIntTree()
	viaGive := NewIntTree()
	expected := make(map[int]int)

	for i := 0; i < 5000; i++ {
		k := r.Intn(2000)
		v := r.Intn(1000)

		want := maybe.None[int]()
		if old, ok := expected[k]; ok {
			want = maybe.Some(old)
			if v > old {
				expected[k] = v
			}
		} else {
			expected[k] = v
		}

		require.Equal(t, want, viaInsert.Insert(k, v))
		require.Equal(t, want, viaGive.Give(k, v))
	}

	for k, v := range expected {
		assert.Equal(t, maybe.Some(v), viaInsert.Get(k))
		assert.Equal(t, maybe.Some(v), viaGive.Query(k))
	}
	assert.Equal(t, len(expected), viaGive.Len())
	assert.Equal(t, viaInsert.Depth(), viaGive.Depth())
	assertStrictlyAscending(t, viaGive)
}

func TestDegenerateTree(t *testing.T) {
	const n = 5_000
	tr := NewIntTree()
	for k := 0; k < n; k++ {
		tr.Give(k, k)
	}
	assert.Equal(t, n, tr.Depth())
	assert.Equal(t, n, tr.Len())
	assert.Equal(t, maybe.Some(n-1), tr.Query(n-1))
	assert.Equal(t, maybe.Some(n-1), tr.Get(n-1))
}

func TestPoisonedByPanickingCompare(t *testing.T) {
	tr := New[string, int](WithCompare(func(a, b int) int {
		if a < 0 || b < 0 {
			panic("negative value")
		}
		return intCompare(a, b)
	}))

	tr.Give("k", 1)
	tr.Give("other", 2)

	requirePanicsWith(t, ErrPoisoned, func() {
		tr.Give("k", -1)
	})

	// the node lock was released, but the tree refuses further use
	requirePanicsWith(t, ErrPoisoned, func() { tr.Query("other") })
	requirePanicsWith(t, ErrPoisoned, func() { tr.Give("x", 3) })
	requirePanicsWith(t, ErrPoisoned, func() { tr.Get("other") })
	requirePanicsWith(t, ErrPoisoned, func() { tr.Insert("y", 4) })
}

func TestDebugChecksDetectOverlap(t *testing.T) {
	tr := New[int, int](WithDebugChecks[int]())
	for k := 0; k < 5; k++ {
		tr.Insert(k, k)
		tr.Give(k+10, k)
		tr.Get(k)
		tr.Query(k)
	}

	requirePanicsWith(t, ErrConcurrentAccess, func() {
		tr.Walk(func(k, _ int) bool {
			tr.Query(k)
			return true
		})
	})
	requirePanicsWith(t, ErrConcurrentAccess, func() {
		tr.Walk(func(k, v int) bool {
			tr.Insert(k, v)
			return true
		})
	})

	// the guard is released again after the panics
	assert.Equal(t, maybe.Some(3), tr.Get(3))
	assert.Equal(t, 10, tr.Len())
}

func TestDebugChecksRejectUnsyncDuringQuery(t *testing.T) {
	tr := New[int, int](WithDebugChecks[int]())
	tr.Give(1, 1)

	// simulate a Query in flight
	tr.guard.enterShared()
	requirePanicsWith(t, ErrConcurrentAccess, func() { tr.Get(1) })
	requirePanicsWith(t, ErrConcurrentAccess, func() { tr.Insert(2, 2) })
	tr.guard.leaveShared()

	assert.Equal(t, maybe.Some(1), tr.Get(1))
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "self", dirSelf.String())
	assert.Equal(t, "left", dirLeft.String())
	assert.Equal(t, "right", dirRight.String())
	assert.Equal(t, "unknown", direction(42).String())
}

func TestDescendStopsAtInsertionPoint(t *testing.T) {
	tr := NewIntTree()
	for _, k := range []int{5, 3, 8} {
		tr.Give(k, k)
	}
	root := tr.root.Load()

	n, dir := descend(root, 4)
	n.mu.RUnlock()
	assert.Equal(t, 3, n.key)
	assert.Equal(t, dirRight, dir)

	n, dir = descend(root, 8)
	n.mu.RUnlock()
	assert.Equal(t, 8, n.key)
	assert.Equal(t, dirSelf, dir)

	n, dir = descend(root, 1)
	n.mu.RUnlock()
	assert.Equal(t, 3, n.key)
	assert.Equal(t, dirLeft, dir)
}

func TestStringTreeDump(t *testing.T) {
	tr := NewStringTree()
	for _, c := range strings.Split("qwerty", "") {
		tr.Give(c, strings.ToUpper(c))
	}
	var buf bytes.Buffer
	require.NoError(t, tr.WriteInOrder(&buf))
	assert.Equal(t, "(e, E) (q, Q) (r, R) (t, T) (w, W) (y, Y) \n", buf.String())
}

func assertStrictlyAscending[V any](t *testing.T, tr *Tree[int, V]) {
	t.Helper()
	first := true
	prev := 0
	tr.Walk(func(k int, _ V) bool {
		if !first && k <= prev {
			t.Errorf("keys out of order: %d after %d", k, prev)
			return false
		}
		first = false
		prev = k
		return true
	})
}
