// Package maybe provides an explicit optional value.
//
// A Maybe is either Some(value) or None. It is used as the only channel for
// "not found" results so that callers always check presence explicitly instead
// of relying on nil pointers or zero values.
package maybe

import "fmt"

// Maybe holds either a value (Some) or nothing (None).
// The zero value is None.
type Maybe[T any] struct {
	value T
	ok    bool
}

// Some returns a Maybe holding v
func Some[T any](v T) Maybe[T] {
	return Maybe[T]{value: v, ok: true}
}

// None returns an empty Maybe
func None[T any]() Maybe[T] {
	return Maybe[T]{}
}

// IsSome reports whether m holds a value
func (m Maybe[T]) IsSome() bool {
	return m.ok
}

// IsNone reports whether m is empty
func (m Maybe[T]) IsNone() bool {
	return !m.ok
}

// Get returns the held value and whether it was present.
// For None the zero value of T is returned.
func (m Maybe[T]) Get() (T, bool) {
	return m.value, m.ok
}

// MustGet returns the held value and panics on None
func (m Maybe[T]) MustGet() T {
	if !m.ok {
		panic("maybe: MustGet called on None")
	}
	return m.value
}

// OrElse returns the held value or def if m is None
func (m Maybe[T]) OrElse(def T) T {
	if !m.ok {
		return def
	}
	return m.value
}

func (m Maybe[T]) String() string {
	if !m.ok {
		return "None"
	}
	return fmt.Sprintf("Some(%v)", m.value)
}

// Equal reports whether a and b are both None or both hold equal values
func Equal[T comparable](a, b Maybe[T]) bool {
	if a.ok != b.ok {
		return false
	}
	return !a.ok || a.value == b.value
}
