// Package tree implements an ordered key-value map backed by an unbalanced
// binary search tree that supports concurrent insertion and lookup without a
// single global lock.
//
// # Operations
//
// The tree offers two pairs of operations:
//
//   - Give and Query are safe to call concurrently with each other, in any
//     combination and from any number of goroutines.
//   - Insert and Get are unsynchronized fast paths. The caller must guarantee
//     that nothing else touches the tree while they run. This is a caller
//     obligation; the tree only checks it when built WithDebugChecks.
//
// All lookups return a maybe.Maybe. Absence of a key is never signalled by a
// nil pointer or an error.
//
// # Locking
//
// Every node carries its own sync.RWMutex. Give and Query descend from the root
// with hand-over-hand read locks: the child is read-locked before the parent is
// released, so at most two locks are held at once and locks are always taken
// root-to-leaf, which rules out deadlock. Give then takes the write lock of the
// single node it mutates and re-checks the position, because the tree may have
// grown between the descent and the write. If another goroutine claimed the
// slot first, Give continues the descent from that child.
//
// Before any node exists there is nothing to lock. Creating the root is guarded
// by a tree-wide mutex and the emptiness check is repeated inside it, so two
// goroutines can never both install a root.
//
// # Merge policy
//
// Giving a key that already exists keeps the larger of the old and the new
// value according to the tree's value ordering and returns the old value. The
// default ordering compares the textual representation (fmt.Sprint) of values.
// It can be replaced once, with WithCompare or SetCompare, before concurrent
// use begins.
//
// # Shape
//
// Nodes are only ever appended. There is no deletion and no rebalancing, so the
// shape of the tree is determined by insertion order and may degenerate into a
// list. All traversals are iterative to keep stack usage bounded.
//
// # Failure
//
// The tree has no error returns. Contract violations panic: setting the value
// ordering twice, a panic escaping while a node write lock is held (the tree is
// then poisoned and every later call panics with ErrPoisoned), and, with debug
// checks enabled, overlapping an unsynchronized call with any other call.
package tree
