package xymemory

import (
	"math/bits"
	"unsafe"

	"github.com/duskbound/xylu/internal/xycore"
)

// chunk is one contiguous run of fixed-size cells plus a bitmap of used
// cells, living in a shared state arena owned by the enclosing chunkGroup.
// Mirrors spec.md §3's Chunk record; data is a Go slice instead of a raw
// pointer + byte count, since Go's GC needs a real slice header to keep
// the backing array alive.
type chunk struct {
	data      []byte
	base      uintptr // uintptr(unsafe.Pointer(&data[0])), cached
	cellBytes uint32
	cellCount uint32
	statePos  uint32 // index of this chunk's first word in the shared arena
	stateCount uint16 // number of 64-bit words this chunk occupies
	stateNext  uint16 // index (relative to statePos) of first word with a zero bit
}

// minChunkAlign is the floor a chunk's base is always aligned to,
// matching the original C++ source's alignof(uint64).
const minChunkAlign = 8

// chunkAlign returns the alignment a chunk's base (and so every cell
// within it, cell 0 onward) is built to: the next power of two at or
// above cellBytes, floored at minChunkAlign. Pool.Allocate only ever
// routes a request into the chunk group whose cellBytes >= max(bytes,
// align), so aligning every chunk's base to (at least) cellBytes
// guarantees cell 0's pointer — and hence every cell's pointer, since
// cells are cellBytes apart — satisfies any align <= cellBytes the
// caller asked for (original_source/src/xymemory/pool.cpp:292,
// ChunkGroup::create's "align = max(bit_get_2ceil(cell_size),
// alignof(uint64))").
func chunkAlign(cellBytes uint32) uintptr {
	a := xycore.NextPow2(uint64(cellBytes))
	if a < minChunkAlign {
		a = minChunkAlign
	}
	return uintptr(a)
}

// newChunk allocates cellCount cells of cellBytes bytes each, aligned
// per chunkAlign, and reserves stateCount words starting at statePos in
// states, which the caller must have already grown to fit.
func newChunk(cellBytes, cellCount uint32, statePos uint32, states []uint64) *chunk {
	stateCount := uint16((uint32(cellCount) + 63) / 64)
	align := chunkAlign(cellBytes)
	data := make([]byte, uint64(cellBytes)*uint64(cellCount)+uint64(align)-1)
	base := alignedBase(data, align)

	c := &chunk{
		data:       data,
		base:       base,
		cellBytes:  cellBytes,
		cellCount:  cellCount,
		statePos:   statePos,
		stateCount: stateCount,
	}

	// Mark trailing bits beyond cellCount in the final word permanently
	// used, per spec.md §4.B's invariant.
	if rem := cellCount % 64; rem != 0 {
		mask := ^uint64(0) << rem
		states[uint32(statePos)+uint32(stateCount)-1] |= mask
	}
	return c
}

// alignedBase returns the uintptr of the first align-aligned byte within
// buf, which must have at least align-1 bytes of slack (as newChunk
// arranges by over-allocating).
func alignedBase(buf []byte, align uintptr) uintptr {
	if len(buf) == 0 {
		return 0
	}
	p := uintptr(unsafe.Pointer(&buf[0]))
	aligned := (p + align - 1) &^ (align - 1)
	return aligned
}

func (c *chunk) cellPtr(index uint32) unsafe.Pointer {
	return unsafe.Pointer(c.base + uintptr(index)*uintptr(c.cellBytes))
}

// allocate scans from stateNext for the first zero bit, sets it, and
// returns the corresponding cell pointer. Returns false when the chunk is
// exhausted (stateNext has reached stateCount).
func (c *chunk) allocate(states []uint64) (unsafe.Pointer, bool) {
	for w := c.stateNext; w < c.stateCount; w++ {
		word := states[c.statePos+uint32(w)]
		if word == ^uint64(0) {
			continue
		}
		bit := bits.TrailingZeros64(^word)
		states[c.statePos+uint32(w)] = word | (uint64(1) << uint(bit))
		index := uint32(w)*64 + uint32(bit)
		c.advanceStateNext(states, w)
		return c.cellPtr(index), true
	}
	return nil, false
}

// advanceStateNext bumps stateNext past w (and any already-saturated
// words following it), restoring the "every word < stateNext is all
// ones" invariant.
func (c *chunk) advanceStateNext(states []uint64, w uint16) {
	if w != c.stateNext {
		return
	}
	for c.stateNext < c.stateCount && states[c.statePos+uint32(c.stateNext)] == ^uint64(0) {
		c.stateNext++
	}
}

// contains reports whether ptr falls within this chunk's cell buffer.
func (c *chunk) contains(ptr unsafe.Pointer) bool {
	p := uintptr(ptr)
	end := c.base + uintptr(c.cellCount)*uintptr(c.cellBytes)
	return p >= c.base && p < end
}

// deallocate clears the bit for ptr's cell and moves stateNext leftward
// if that word was the old minimum.
func (c *chunk) deallocate(ptr unsafe.Pointer, states []uint64) {
	index := uint32((uintptr(ptr) - c.base) / uintptr(c.cellBytes))
	w := uint16(index / 64)
	bit := index % 64
	states[c.statePos+uint32(w)] &^= uint64(1) << uint(bit)
	if w < c.stateNext {
		c.stateNext = w
	}
}
