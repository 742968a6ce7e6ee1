package hashtable

import "github.com/duskbound/xylu/internal/xymemory"

// Set is a value-less Table[K, struct{}], mirroring the original C++
// source's sentinel Unit value type for set-like usage — the same way
// Go's own runtime swiss map special-cases map[K]struct{}.
type Set[K comparable] struct {
	t *Table[K, struct{}]
}

// NewSet returns an empty Set drawing its backing storage from pool and
// hashing keys with hash.
func NewSet[K comparable](pool *xymemory.Pool, hash Hasher[K]) *Set[K] {
	return &Set[K]{t: New[K, struct{}](pool, hash)}
}

// Insert adds key, reporting whether it was newly added.
func (s *Set[K]) Insert(key K) bool {
	_, inserted := s.t.Insert(key, struct{}{})
	return inserted
}

// Contains reports whether key is a member.
func (s *Set[K]) Contains(key K) bool { return s.t.Contains(key) }

// Erase removes key, reporting whether it was present.
func (s *Set[K]) Erase(key K) bool { return s.t.Erase(key) }

// Len returns the number of members.
func (s *Set[K]) Len() int { return s.t.Len() }

// Release returns the set's backing storage to its pool.
func (s *Set[K]) Release() { s.t.Release() }

// Keys returns every member, in iteration order (spec.md §5).
func (s *Set[K]) Keys() []K {
	keys := make([]K, 0, s.t.Len())
	for it := s.t.Iterate(); it.Valid(); it.Advance() {
		keys = append(keys, it.Key())
	}
	return keys
}
