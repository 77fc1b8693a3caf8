package sets

import (
	"cmp"
	"slices"
)

// Set is a simple generic hash set for comparable keys.
// Usage: s := sets.New[string]("a","b"); s.Add("c"); if s.Has("b") {...}
type Set[T comparable] map[T]struct{}

// New creates a set pre-populated with the provided values.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts value into the set.
func (s Set[T]) Add(v T) { s[v] = struct{}{} }

// Has returns true if v is present.
func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Delete removes v if present.
func (s Set[T]) Delete(v T) { delete(s, v) }

// Clone returns a shallow copy.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Difference returns the elements of s not contained in other.
func (s Set[T]) Difference(other Set[T]) Set[T] {
	out := make(Set[T])
	for k := range s {
		if !other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Intersect returns the elements contained in both sets.
func (s Set[T]) Intersect(other Set[T]) Set[T] {
	out := make(Set[T])
	for k := range s {
		if other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// IsSubsetOf reports whether every element of s is in other.
func (s Set[T]) IsSubsetOf(other Set[T]) bool {
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Sorted returns the elements in ascending order.
func Sorted[T cmp.Ordered](s Set[T]) []T {
	out := make([]T, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
