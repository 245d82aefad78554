package tree

import "github.com/ValentinKolb/oak/lib/maybe"

// testHookBeforeCommit, if set, runs in Give between the read-locked descent
// and the write-locked commit, with no lock held.
var testHookBeforeCommit func()

// --------------------------------------------------------------------------
// Thread-safe operations
// --------------------------------------------------------------------------

// Give inserts val under key. If key already exists, the larger of the old and
// the new value (per the value ordering) is kept and the old value is returned.
// Otherwise None is returned.
//
// Thread-safety: This method is thread-safe and can be called concurrently with Give and Query.
func (t *Tree[K, V]) Give(key K, val V) maybe.Maybe[V] {
	t.checkPoisoned()
	t.guard.enterShared()
	defer t.guard.leaveShared()

	n := t.root.Load()
	if n == nil {
		var created bool
		if n, created = t.createRoot(key, val); created {
			return maybe.None[V]()
		}
	}

	for {
		n, _ = descend(n, key)
		n.mu.RUnlock()

		if testHookBeforeCommit != nil {
			testHookBeforeCommit()
		}

		// the slot may have been taken between the read unlock and the write lock
		res, next, done := t.commit(n, key, val)
		if done {
			return res
		}
		n = next
	}
}

// createRoot installs a root holding key if the tree is still empty.
// It returns the root and whether this call created it.
func (t *Tree[K, V]) createRoot(key K, val V) (*node[K, V], bool) {
	t.rootMu.Lock()
	defer t.rootMu.Unlock()

	if r := t.root.Load(); r != nil {
		return r, false
	}
	r := newNode(key, val)
	t.root.Store(r)
	return r, true
}

// commit write-locks n and applies key/val there. If the slot for key was
// claimed since the descent, it returns that child and done=false.
func (t *Tree[K, V]) commit(n *node[K, V], key K, val V) (res maybe.Maybe[V], next *node[K, V], done bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	defer t.poisonOnPanic()

	child, dir := n.child(key)
	switch {
	case child != nil:
		return maybe.None[V](), child, false
	case dir == dirLeft:
		n.left = newNode(key, val)
	case dir == dirRight:
		n.right = newNode(key, val)
	default:
		old := n.value
		n.value = t.merge(old, val)
		return maybe.Some(old), nil, true
	}
	return maybe.None[V](), nil, true
}

// Query returns the value stored under key, or None.
//
// Thread-safety: This method is thread-safe and can be called concurrently with Give and Query.
func (t *Tree[K, V]) Query(key K) maybe.Maybe[V] {
	t.checkPoisoned()
	t.guard.enterShared()
	defer t.guard.leaveShared()

	root := t.root.Load()
	if root == nil {
		return maybe.None[V]()
	}

	// descend keeps the terminal node read-locked, so the answer is taken
	// from the same state that ended the walk
	n, dir := descend(root, key)
	defer n.mu.RUnlock()

	if dir != dirSelf {
		return maybe.None[V]()
	}
	return maybe.Some(n.value)
}
