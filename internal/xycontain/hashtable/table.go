package hashtable

import (
	"math"
	"math/bits"
	"unsafe"

	"github.com/duskbound/xylu/internal/xycore"
	"github.com/duskbound/xylu/internal/xyerr"
	"github.com/duskbound/xylu/internal/xylog"
	"github.com/duskbound/xylu/internal/xymemory"
)

// Spec.md §6 constants.
const (
	loadFactor   = 0.875
	shrinkFactor = 0.5
	minTotal     = 16
)

// maxTotal bounds calcNewTotal; spec.md §4.G's limit() is
// "floor(size_max * 0.875)" for an unspecified size_max. xylu fixes a
// generous but concrete ceiling instead of leaving it open-ended, since a
// Go slice index is bounded by int anyway; requests beyond it are the
// "capacity overflow" fatal error spec.md §7 calls for.
const maxTotal = 1 << 34

type entry[K comparable, V any] struct {
	key K
	val V
}

// Table is an open-addressed Swiss-style hash table over control groups
// (group.go) and a slot array, matching spec.md §3/§4.G. The meta array is
// plain bytes and is drawn from pool — xymemory.Pool's native currency —
// per spec.md §2's data-flow diagram. The slot array stays a conventional
// Go slice: K or V may embed live Go pointers, and an untyped byte arena
// handed out by Pool carries no type descriptor the garbage collector
// could use to scan it, so only the pointer-free meta bytes are actually
// routed through the allocator (see DESIGN.md).
//
// A Table is bound to one goroutine for its entire lifetime; it holds no
// internal synchronization (spec.md §5).
type Table[K comparable, V any] struct {
	pool  *xymemory.Pool
	hash  Hasher[K]
	meta  []byte
	slots []entry[K, V]
	count int
	capa  int
	total int
	log   xylog.Logger
}

// New returns an empty Table drawing its backing storage from pool and
// hashing keys with hash.
func New[K comparable, V any](pool *xymemory.Pool, hash Hasher[K]) *Table[K, V] {
	return &Table[K, V]{pool: pool, hash: hash, log: xylog.Default()}
}

// Len returns the number of live entries (spec.md's count).
func (t *Table[K, V]) Len() int { return t.count }

// Cap returns the number of entries that may be held before the next
// insert triggers a grow (spec.md's capa).
func (t *Table[K, V]) Cap() int { return t.capa }

// Total returns the number of slots currently allocated (spec.md's
// total), a power of two or 0.
func (t *Table[K, V]) Total() int { return t.total }

func (t *Table[K, V]) groupCount() int { return t.total / groupSize }

// h2 extracts the 7-bit tag stored in an occupied meta byte.
func h2(h uint64) byte { return byte(h & 0x7F) }

func capaFor(total int) int { return int(float64(total) * loadFactor) }

// calcNewTotal implements spec.md §4.G's calc_new_total.
func calcNewTotal(minCapa, currentTotal int) int {
	need := xycore.NextPow2(uint64(math.Ceil(float64(minCapa) / loadFactor)))
	if need < minTotal {
		need = minTotal
	}
	if doubled := uint64(currentTotal) * 2; doubled > need {
		need = doubled
	}
	if need > maxTotal {
		panic(xyerr.Fatalf("xycontain/hashtable: capacity overflow: requested total %d exceeds limit %d", need, uint64(maxTotal)))
	}
	return int(need)
}

// allocateBuffers draws a fresh total-slot meta arena from t.pool
// (EMPTY-filled) and a matching native Go slot slice.
func (t *Table[K, V]) allocateBuffers(total int) ([]byte, []entry[K, V]) {
	ptr := t.pool.Allocate(uintptr(total), groupSize)
	meta := unsafe.Slice((*byte)(ptr), total)
	for i := range meta {
		meta[i] = Empty
	}
	return meta, make([]entry[K, V], total)
}

func (t *Table[K, V]) freeMeta(meta []byte, total int) {
	if total == 0 {
		return
	}
	t.pool.Deallocate(unsafe.Pointer(&meta[0]), uintptr(total), groupSize)
}

// probeStart is the initial control-group index for hash h, spec.md
// §4.G's "(h >> 7) & (total/16 - 1)".
func (t *Table[K, V]) probeStart(h uint64) int {
	return int((h >> 7) % uint64(t.groupCount()))
}

// find scans the probe sequence for key. If found, idx is the slot index
// and found is true. Otherwise found is false and insertAt (when >= 0) is
// the first available (EMPTY or DELETED) slot seen along the way — the
// target an Insert/Update/Get would use, captured in the same walk so
// those operations never need a second pass (spec.md §4.G).
func (t *Table[K, V]) find(key K) (idx int, found bool, insertAt int, hash uint64) {
	insertAt = -1
	if t.total == 0 {
		return 0, false, -1, t.hash(key)
	}
	hash = t.hash(key)
	tag := h2(hash)
	groups := t.groupCount()
	g0 := t.probeStart(hash)
	g := g0
	for {
		start := g * groupSize
		matches := matchByte(t.meta, start, tag)
		for matches != 0 {
			off := bits.TrailingZeros16(matches)
			slotIdx := start + off
			if t.slots[slotIdx].key == key {
				return slotIdx, true, -1, hash
			}
			matches &= matches - 1
		}
		if insertAt < 0 {
			if avail := matchAvailable(t.meta, start); avail != 0 {
				insertAt = start + bits.TrailingZeros16(avail)
			}
		}
		if matchEmpty(t.meta, start) != 0 {
			return -1, false, insertAt, hash
		}
		g = (g + 1) % groups
		if g == g0 {
			// Every group probed (e.g. a table entirely EMPTY-free —
			// DELETED and occupied only). Spec.md §8's boundary case:
			// terminate after at most one full probe cycle.
			return -1, false, insertAt, hash
		}
	}
}

// insertUniqueSlot places a key known not to already be present (used
// only during rehash, where every key in the old table is unique by
// construction) and returns the slot it landed in, skipping the
// equality-check pass entirely.
func (t *Table[K, V]) insertUniqueSlot(hash uint64) int {
	groups := t.groupCount()
	g := t.probeStart(hash)
	for {
		start := g * groupSize
		if mask := matchAvailable(t.meta, start); mask != 0 {
			return start + bits.TrailingZeros16(mask)
		}
		g = (g + 1) % groups
	}
}

func (t *Table[K, V]) rehash(newTotal int) {
	oldMeta, oldSlots, oldTotal := t.meta, t.slots, t.total

	t.meta, t.slots = t.allocateBuffers(newTotal)
	t.total = newTotal
	t.capa = capaFor(newTotal)

	for i := 0; i < oldTotal; i++ {
		if !occupied(oldMeta[i]) {
			continue
		}
		e := oldSlots[i]
		hash := t.hash(e.key)
		idx := t.insertUniqueSlot(hash)
		t.meta[idx] = h2(hash)
		t.slots[idx] = e
	}

	t.freeMeta(oldMeta, oldTotal)
}

// reserve ensures room for extra more entries, rehashing first if
// necessary (spec.md §4.G Insert step 1).
func (t *Table[K, V]) reserve(extra int) {
	if t.count+extra <= t.capa {
		return
	}
	t.rehash(calcNewTotal(t.count+extra, t.total))
}

// Contains reports whether key is present.
func (t *Table[K, V]) Contains(key K) bool {
	_, found, _, _ := t.find(key)
	return found
}

// At returns the value mapped to key, or an error if key is absent
// (spec.md §9: the strict counterpart to Get's get-or-insert semantics).
func (t *Table[K, V]) At(key K) (V, error) {
	idx, found, _, _ := t.find(key)
	if !found {
		var zero V
		return zero, xyerr.Errorf("xycontain/hashtable: key not found")
	}
	return t.slots[idx].val, nil
}

// Insert inserts key with val if key is not already present; it is
// idempotent — a second Insert for the same key leaves the table
// unchanged and returns the existing value (spec.md §4.G: "idempotent, no
// update"). The returned bool reports whether an insertion happened.
func (t *Table[K, V]) Insert(key K, val V) (V, bool) {
	t.reserve(1)
	idx, found, insertAt, hash := t.find(key)
	if found {
		return t.slots[idx].val, false
	}
	t.meta[insertAt] = h2(hash)
	t.slots[insertAt] = entry[K, V]{key: key, val: val}
	t.count++
	return val, true
}

// Update inserts key with val, or assigns val over the existing value if
// key is already present (spec.md §4.G Update).
func (t *Table[K, V]) Update(key K, val V) {
	t.reserve(1)
	idx, found, insertAt, hash := t.find(key)
	if found {
		t.slots[idx].val = val
		return
	}
	t.meta[insertAt] = h2(hash)
	t.slots[insertAt] = entry[K, V]{key: key, val: val}
	t.count++
}

// Get returns a pointer to the value mapped to key, inserting a
// zero-valued entry first if key is absent. This implements spec.md §9's
// Open Question the way the original source's observable behavior
// resolves it: get-or-insert. Callers wanting a strict lookup use At.
func (t *Table[K, V]) Get(key K) *V {
	t.reserve(1)
	idx, found, insertAt, hash := t.find(key)
	if found {
		return &t.slots[idx].val
	}
	t.meta[insertAt] = h2(hash)
	t.slots[insertAt] = entry[K, V]{key: key}
	t.count++
	return &t.slots[insertAt].val
}

// Erase removes key if present, returning whether it was. The vacated
// slot's meta byte becomes DELETED, a tombstone that does not terminate
// later probes (spec.md §4.G Erase).
func (t *Table[K, V]) Erase(key K) bool {
	idx, found, _, _ := t.find(key)
	if !found {
		return false
	}
	var zero entry[K, V]
	t.slots[idx] = zero
	t.meta[idx] = Deleted
	t.count--
	return true
}

// Clear empties the table without shrinking it: count becomes 0, capa is
// unchanged, and every meta byte becomes EMPTY (spec.md §8).
func (t *Table[K, V]) Clear() {
	for i := range t.meta {
		t.meta[i] = Empty
	}
	var zero entry[K, V]
	for i := range t.slots {
		t.slots[i] = zero
	}
	t.count = 0
}

// Reduce rehashes downward if count is less than half of capa; it is a
// no-op (idempotent) otherwise (spec.md §4.G Grow/shrink, §8 round-trip
// property).
func (t *Table[K, V]) Reduce() {
	if t.total == 0 || float64(t.count) >= float64(t.capa)*shrinkFactor {
		return
	}
	newTotal := calcNewTotal(t.count, 0)
	if newTotal >= t.total {
		return
	}
	t.rehash(newTotal)
}

// Release returns the meta arena to the pool and drops the slot slice.
// Outstanding Iterators become invalid. A released Table is zero-valued
// and usable again (its next Insert/Get/Update will allocate fresh
// buffers from the same pool).
func (t *Table[K, V]) Release() {
	t.freeMeta(t.meta, t.total)
	t.meta = nil
	t.slots = nil
	t.total = 0
	t.capa = 0
	t.count = 0
}

// CopyFrom replaces t's contents with a copy of src's live entries.
// Mirrors spec.md §4.G's copy-assignment policy: t's existing allocation
// is reused in place when src's count already fits within
// [capa*shrinkFactor, capa]; otherwise t is released and rebuilt to fit
// src exactly. Self-copy (t == src) is a no-op. An empty src leaves t
// with Total() == 0 and no allocation, per spec.md §4.G's documented edge
// case.
func (t *Table[K, V]) CopyFrom(src *Table[K, V]) {
	if t == src {
		return
	}
	if src.count == 0 {
		t.Release()
		return
	}

	fits := t.total > 0 && src.count <= t.capa && float64(src.count) >= float64(t.capa)*shrinkFactor
	if fits {
		t.Clear()
	} else {
		t.Release()
		newTotal := calcNewTotal(src.count, 0)
		t.meta, t.slots = t.allocateBuffers(newTotal)
		t.total = newTotal
		t.capa = capaFor(newTotal)
	}

	for i := 0; i < src.total; i++ {
		if !occupied(src.meta[i]) {
			continue
		}
		e := src.slots[i]
		hash := t.hash(e.key)
		idx := t.insertUniqueSlot(hash)
		t.meta[idx] = h2(hash)
		t.slots[idx] = e
	}
	t.count = src.count
}
