package tree

import "github.com/ValentinKolb/oak/lib/maybe"

// --------------------------------------------------------------------------
// Unsynchronized operations
// --------------------------------------------------------------------------

// Insert is the unsynchronized counterpart of Give: same result, no locking.
//
// Thread-safety: This method is NOT thread-safe. Nothing else may access the tree while it runs.
func (t *Tree[K, V]) Insert(key K, val V) maybe.Maybe[V] {
	t.checkPoisoned()
	t.guard.enterExclusive()
	defer t.guard.leaveExclusive()

	n := t.root.Load()
	if n == nil {
		t.root.Store(newNode(key, val))
		return maybe.None[V]()
	}

	for {
		next, dir := n.child(key)
		if next != nil {
			n = next
			continue
		}

		switch dir {
		case dirLeft:
			n.left = newNode(key, val)
		case dirRight:
			n.right = newNode(key, val)
		default:
			old := n.value
			n.value = t.merge(old, val)
			return maybe.Some(old)
		}
		return maybe.None[V]()
	}
}

// Get is the unsynchronized counterpart of Query.
//
// Thread-safety: This method is NOT thread-safe. Nothing else may access the tree while it runs.
func (t *Tree[K, V]) Get(key K) maybe.Maybe[V] {
	t.checkPoisoned()
	t.guard.enterExclusive()
	defer t.guard.leaveExclusive()

	n := t.root.Load()
	for n != nil {
		next, dir := n.child(key)
		if dir == dirSelf {
			return maybe.Some(n.value)
		}
		n = next
	}
	return maybe.None[V]()
}
