package tree

import (
	"sync"

	"golang.org/x/exp/constraints"
)

// direction tells which branch ended a descent
type direction int

const (
	dirSelf  direction = iota // the node holds the key
	dirLeft                   // the key belongs into the empty left slot
	dirRight                  // the key belongs into the empty right slot
)

func (d direction) String() string {
	switch d {
	case dirSelf:
		return "self"
	case dirLeft:
		return "left"
	case dirRight:
		return "right"
	default:
		return "unknown"
	}
}

// node is a single tree cell. key never changes after creation. value, left
// and right are guarded by mu in the synchronized operations. A child, once
// set, is never replaced.
type node[K constraints.Ordered, V any] struct {
	key   K
	value V
	left  *node[K, V]
	right *node[K, V]
	mu    sync.RWMutex
}

func newNode[K constraints.Ordered, V any](key K, value V) *node[K, V] {
	return &node[K, V]{key: key, value: value}
}

// child returns the child in the direction of key (nil if that slot is empty)
// and the direction itself. The caller must hold n.mu (or have exclusive access).
func (n *node[K, V]) child(key K) (*node[K, V], direction) {
	switch c := compareKeys(key, n.key); {
	case c < 0:
		return n.left, dirLeft
	case c > 0:
		return n.right, dirRight
	default:
		return nil, dirSelf
	}
}

// descend walks from start towards key with hand-over-hand read locks and
// stops at the node that holds key or whose slot for key is empty.
// The returned node is still read-locked; the caller must release it.
func descend[K constraints.Ordered, V any](start *node[K, V], key K) (*node[K, V], direction) {
	n := start
	n.mu.RLock()
	for {
		next, dir := n.child(key)
		if next == nil {
			return n, dir
		}
		next.mu.RLock()
		n.mu.RUnlock()
		n = next
	}
}
