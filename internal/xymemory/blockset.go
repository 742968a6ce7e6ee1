package xymemory

import (
	"math/bits"
	"unsafe"

	"github.com/duskbound/xylu/internal/xycore"
	"github.com/duskbound/xylu/internal/xylog"
)

const blockSetLoadFactor = 0.75

// defaultAlignShift is log2(xycore.DefaultAlign), the 16-byte
// granularity bucketIndex discards before mixing.
var defaultAlignShift = uint(bits.TrailingZeros(uint(xycore.DefaultAlign)))

// blockNode records one oversized allocation. The original C++ source
// packs this header into the same allocation as the user bytes, directly
// ahead of the returned pointer, so a single malloc serves both. Go's
// garbage collector does not allow a manually-placed struct containing
// live pointers (next) to be carved out of an untyped []byte — the GC
// would never scan it — so blockNode is a real, separately allocated Go
// struct instead, and buf is the slice that keeps the user bytes alive.
// It is adapted from, not a transliteration of, the source's layout;
// DESIGN.md records the reasoning.
type blockNode struct {
	next  *blockNode
	buf   []byte
	base  unsafe.Pointer
	size  uint64
	align uint64
}

// blockSet is a hash-indexed registry of oversized allocations, bucketed
// by an intrusive singly-linked list per bucket, grown by doubling when
// the load factor crosses 0.75. Mirrors spec.md §3's BlockSet entry and
// §4.D's operations.
type blockSet struct {
	buckets []*blockNode
	count   int
	log     xylog.Logger
}

func newBlockSet(log xylog.Logger) *blockSet {
	return &blockSet{
		buckets: make([]*blockNode, 16),
		log:     log,
	}
}

// bucketIndex mixes the pointer's DefaultAlign-granularity address into a
// bucket index, the way spec.md §4.D specifies: "index = mix(p >>
// log2(default_align)) & (bucket_count - 1); a multiply-xor mix is
// sufficient."
func bucketIndex(p unsafe.Pointer, bucketCount int) int {
	h := uint64(uintptr(p)) >> defaultAlignShift
	// MurmurHash3 fmix64 finalizer: a multiply-xor mix.
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return int(h & uint64(bucketCount-1))
}

func (b *blockSet) maybeGrow() {
	if float64(b.count+1) < float64(len(b.buckets))*blockSetLoadFactor {
		return
	}
	old := b.buckets
	b.buckets = make([]*blockNode, len(old)*2)
	for _, head := range old {
		for n := head; n != nil; {
			next := n.next
			idx := bucketIndex(n.base, len(b.buckets))
			n.next = b.buckets[idx]
			b.buckets[idx] = n
			n = next
		}
	}
}

// allocate reserves bytes with the requested alignment and registers the
// allocation so a later deallocate with the matching pointer can find it.
func (b *blockSet) allocate(bytes, align uint64) unsafe.Pointer {
	b.maybeGrow()

	buf := make([]byte, bytes+align-1)
	raw := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (raw + uintptr(align) - 1) &^ (uintptr(align) - 1)
	base := unsafe.Pointer(aligned)

	n := &blockNode{buf: buf, base: base, size: bytes, align: align}
	idx := bucketIndex(base, len(b.buckets))
	n.next = b.buckets[idx]
	b.buckets[idx] = n
	b.count++
	return base
}

// deallocate unlinks and frees the node owning p. If p is not found, the
// free is logged and dropped, per spec.md §7's misuse policy.
func (b *blockSet) deallocate(p unsafe.Pointer) {
	idx := bucketIndex(p, len(b.buckets))
	var prev *blockNode
	for n := b.buckets[idx]; n != nil; n = n.next {
		if n.base == p {
			if prev == nil {
				b.buckets[idx] = n.next
			} else {
				prev.next = n.next
			}
			b.count--
			return
		}
		prev = n
	}
	b.log.Warn("xymemory: deallocate: pointer %p not owned by any block", p)
}

func (b *blockSet) release() {
	b.buckets = make([]*blockNode, 16)
	b.count = 0
}
