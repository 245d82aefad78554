package tree

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// --------------------------------------------------------------------------
// Diagnostics
//
// None of the functions below take node locks. They must not run concurrently
// with any other operation on the tree.
// --------------------------------------------------------------------------

// Walk calls fn for every key in ascending order until fn returns false.
func (t *Tree[K, V]) Walk(fn func(key K, val V) bool) {
	t.guard.enterExclusive()
	defer t.guard.leaveExclusive()

	var stack []*node[K, V]
	n := t.root.Load()
	for n != nil || len(stack) > 0 {
		for n != nil {
			stack = append(stack, n)
			n = n.left
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(n.key, n.value) {
			return
		}
		n = n.right
	}
}

// walkPreOrder visits node before its left and right subtrees
func (t *Tree[K, V]) walkPreOrder(fn func(key K, val V)) {
	t.guard.enterExclusive()
	defer t.guard.leaveExclusive()

	root := t.root.Load()
	if root == nil {
		return
	}
	stack := []*node[K, V]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(n.key, n.value)
		// right first so that left is visited first
		if n.right != nil {
			stack = append(stack, n.right)
		}
		if n.left != nil {
			stack = append(stack, n.left)
		}
	}
}

// WriteInOrder writes all (key, value) pairs in ascending key order to w,
// followed by a newline.
func (t *Tree[K, V]) WriteInOrder(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var err error
	t.Walk(func(key K, val V) bool {
		_, err = fmt.Fprintf(bw, "(%v, %v) ", key, val)
		return err == nil
	})
	if err != nil {
		return err
	}
	if err = bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

// WritePreOrder writes all (key, value) pairs in pre-order to w, followed by a newline.
func (t *Tree[K, V]) WritePreOrder(w io.Writer) error {
	bw := bufio.NewWriter(w)
	var err error
	t.walkPreOrder(func(key K, val V) {
		if err == nil {
			_, err = fmt.Fprintf(bw, "(%v, %v) ", key, val)
		}
	})
	if err != nil {
		return err
	}
	if err = bw.WriteByte('\n'); err != nil {
		return err
	}
	return bw.Flush()
}

// InOrder prints the in-order traversal to standard output
func (t *Tree[K, V]) InOrder() {
	_ = t.WriteInOrder(os.Stdout)
}

// PreOrder prints the pre-order traversal to standard output
func (t *Tree[K, V]) PreOrder() {
	_ = t.WritePreOrder(os.Stdout)
}

// Len returns the number of keys
func (t *Tree[K, V]) Len() int {
	count := 0
	t.Walk(func(K, V) bool {
		count++
		return true
	})
	return count
}

// Depth returns the number of nodes on the longest root-to-leaf path (0 for an empty tree)
func (t *Tree[K, V]) Depth() int {
	t.guard.enterExclusive()
	defer t.guard.leaveExclusive()

	type level struct {
		n     *node[K, V]
		depth int
	}

	root := t.root.Load()
	if root == nil {
		return 0
	}
	maxDepth := 0
	stack := []level{{root, 1}}
	for len(stack) > 0 {
		l := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if l.depth > maxDepth {
			maxDepth = l.depth
		}
		if l.n.left != nil {
			stack = append(stack, level{l.n.left, l.depth + 1})
		}
		if l.n.right != nil {
			stack = append(stack, level{l.n.right, l.depth + 1})
		}
	}
	return maxDepth
}
