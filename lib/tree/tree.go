package tree

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrCompareAlreadySet is raised when the value ordering is configured a second time
	ErrCompareAlreadySet = errors.New("tree: value ordering already set")

	// ErrNilCompare is raised when a nil value ordering is configured
	ErrNilCompare = errors.New("tree: value ordering must not be nil")

	// ErrPoisoned is raised by every operation after a panic escaped while a node write lock was held
	ErrPoisoned = errors.New("tree: poisoned by a panic under a write lock")

	// ErrConcurrentAccess is raised (debug checks only) when Insert or Get overlaps with another operation
	ErrConcurrentAccess = errors.New("tree: unsynchronized operation used concurrently")
)

// --------------------------------------------------------------------------
// Tree
// --------------------------------------------------------------------------

// CompareFunc orders two values. It returns a negative number if a < b,
// zero if a == b and a positive number if a > b.
type CompareFunc[V any] func(a, b V) int

// Tree is a concurrent binary search tree map.
// The zero value is not usable, create trees with New.
type Tree[K constraints.Ordered, V any] struct {
	root   atomic.Pointer[node[K, V]]
	rootMu sync.Mutex // guards root creation only

	compare    CompareFunc[V]
	compareSet bool

	poisoned atomic.Bool
	guard    accessGuard
}

// Option configures a Tree at construction time
type Option[V any] func(*options[V])

type options[V any] struct {
	compare    CompareFunc[V]
	compareSet bool
	debug      bool
}

// WithCompare sets the value ordering used to merge duplicate keys.
// A tree built with this option rejects a later SetCompare. New panics with
// ErrNilCompare if cmp is nil.
func WithCompare[V any](cmp CompareFunc[V]) Option[V] {
	return func(o *options[V]) {
		o.compare = cmp
		o.compareSet = true
	}
}

// WithDebugChecks makes Insert and Get panic with ErrConcurrentAccess when they
// overlap with any other operation on the same tree. The check is best effort.
func WithDebugChecks[V any]() Option[V] {
	return func(o *options[V]) {
		o.debug = true
	}
}

// New creates an empty tree
func New[K constraints.Ordered, V any](opts ...Option[V]) *Tree[K, V] {
	o := options[V]{}
	for _, opt := range opts {
		opt(&o)
	}

	t := &Tree[K, V]{
		compare: defaultCompare[V],
		guard:   accessGuard{enabled: o.debug},
	}
	if o.compareSet {
		if o.compare == nil {
			panic(ErrNilCompare)
		}
		t.compare = o.compare
		t.compareSet = true
	}
	return t
}

// NewStringTree creates a tree of strings using the default (lexical) value ordering
func NewStringTree() *Tree[string, string] {
	return New[string, string]()
}

// NewIntTree creates a tree of ints that merges duplicates numerically
func NewIntTree() *Tree[int, int] {
	return New[int, int](WithCompare(func(a, b int) int {
		return compareKeys(a, b)
	}))
}

// SetCompare replaces the default value ordering.
// It may be called at most once per tree and must not run concurrently with
// any other operation; configure it before the tree is shared.
func (t *Tree[K, V]) SetCompare(cmp CompareFunc[V]) {
	if cmp == nil {
		panic(ErrNilCompare)
	}
	if t.compareSet {
		panic(ErrCompareAlreadySet)
	}
	t.compare = cmp
	t.compareSet = true
}

// Empty reports whether no key has been inserted yet
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (t *Tree[K, V]) Empty() bool {
	return t.root.Load() == nil
}

// merge returns the value to keep for a duplicate key
func (t *Tree[K, V]) merge(old, val V) V {
	if t.compare(val, old) > 0 {
		return val
	}
	return old
}

// checkPoisoned panics if an earlier panic left a node in an unknown state
func (t *Tree[K, V]) checkPoisoned() {
	if t.poisoned.Load() {
		panic(ErrPoisoned)
	}
}

// poisonOnPanic must be deferred while a node write lock is held (after the
// deferred unlock, so it runs first). It marks the tree poisoned and re-panics.
func (t *Tree[K, V]) poisonOnPanic() {
	if r := recover(); r != nil {
		t.poisoned.Store(true)
		panic(fmt.Errorf("%w: %v", ErrPoisoned, r))
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func compareKeys[K constraints.Ordered](a, b K) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func defaultCompare[V any](a, b V) int {
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// --------------------------------------------------------------------------
// Access guard (debug checks)
// --------------------------------------------------------------------------

// accessGuard detects unsynchronized operations overlapping with anything else.
// A disabled guard costs one branch per operation.
type accessGuard struct {
	enabled   bool
	shared    atomic.Int64
	exclusive atomic.Int32
}

func (g *accessGuard) enterShared() {
	if !g.enabled {
		return
	}
	g.shared.Add(1)
	if g.exclusive.Load() != 0 {
		g.shared.Add(-1)
		panic(ErrConcurrentAccess)
	}
}

func (g *accessGuard) leaveShared() {
	if g.enabled {
		g.shared.Add(-1)
	}
}

func (g *accessGuard) enterExclusive() {
	if !g.enabled {
		return
	}
	if !g.exclusive.CompareAndSwap(0, 1) {
		panic(ErrConcurrentAccess)
	}
	if g.shared.Load() != 0 {
		g.exclusive.Store(0)
		panic(ErrConcurrentAccess)
	}
}

func (g *accessGuard) leaveExclusive() {
	if g.enabled {
		g.exclusive.Store(0)
	}
}
