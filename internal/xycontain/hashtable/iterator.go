package hashtable

import "math/bits"

// Iterator is a pull-based cursor over a Table's live entries, visiting
// groups in ascending index order and, within a group, slots in ascending
// bit-position order (spec.md §5's defined iteration order). It is a
// cursor rather than a push-based callback, keeping allocation out of the
// hot path (spec.md §9); Format does not use it, since Format also prints
// EMPTY and DELETED slots.
//
// Any mutation of the Table invalidates outstanding Iterators.
type Iterator[K comparable, V any] struct {
	t     *Table[K, V]
	group int
	mask  uint16
	idx   int
	valid bool
}

// Iterate returns an Iterator positioned at t's first live entry, if any.
func (t *Table[K, V]) Iterate() *Iterator[K, V] {
	it := &Iterator[K, V]{t: t, group: -1}
	it.Advance()
	return it
}

// Advance moves the cursor to the next live entry and reports whether one
// was found. Call it once to prime the cursor (done automatically by
// Iterate) and once after consuming each entry.
func (it *Iterator[K, V]) Advance() bool {
	groups := it.t.groupCount()
	for it.mask == 0 {
		it.group++
		if it.group >= groups {
			it.valid = false
			return false
		}
		start := it.group * groupSize
		it.mask = ^matchAvailable(it.t.meta, start)
	}
	off := bits.TrailingZeros16(it.mask)
	it.idx = it.group*groupSize + off
	it.mask &= it.mask - 1
	it.valid = true
	return true
}

// Valid reports whether the cursor currently designates a live entry.
func (it *Iterator[K, V]) Valid() bool { return it.valid }

// Key returns the key at the cursor's current position.
func (it *Iterator[K, V]) Key() K { return it.t.slots[it.idx].key }

// Value returns the value at the cursor's current position.
func (it *Iterator[K, V]) Value() V { return it.t.slots[it.idx].val }

// All returns a range-over-func iterator (Go 1.23) yielding every live
// (key, value) pair, built on top of Iterate/Advance.
func (t *Table[K, V]) All() func(yield func(K, V) bool) {
	return func(yield func(K, V) bool) {
		for it := t.Iterate(); it.Valid(); it.Advance() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}
