// Package hashtable implements the Swiss-style open-addressed hash table:
// 16-byte control groups holding one meta byte per slot, matched with a
// portable SWAR (SIMD-within-a-register) implementation of the two
// primitives spec.md §4.G specifies (msb16, cmpeq16), since plain Go
// source has no portable way to emit the SSE2 PCMPEQB the original C++
// source uses directly. Table buffers are drawn from a *xymemory.Pool,
// wiring the two core subsystems together per spec.md §2.
package hashtable

import "encoding/binary"

// groupSize is the number of control bytes per group (spec.md §3: "16
// consecutive meta bytes, 16-byte aligned").
const groupSize = 16

// Meta byte sentinels, spec.md §6.
const (
	Empty   byte = 0x80
	Deleted byte = 0xFF
)

// occupied reports whether a meta byte represents a live slot.
func occupied(b byte) bool { return b&0x80 == 0 }

const (
	loBits = 0x0101010101010101
	hiBits = 0x8080808080808080
)

// hasByteSWAR returns, for each byte of w, 0x80 in that byte's position
// iff the byte equals b. A byte of x = w^broadcast(b) is zero exactly when
// neither its low seven bits (adding 0x7F to them sets the high bit and
// cannot carry into the next byte) nor its high bit is set, so no lane
// can borrow from or carry into its neighbour. Branch-free.
func hasByteSWAR(w uint64, b byte) uint64 {
	x := w ^ (loBits * uint64(b))
	return ^(((x &^ hiBits) + (hiBits - loBits)) | x) & hiBits
}

// highBitsSWAR isolates the high bit of every byte of w.
func highBitsSWAR(w uint64) uint64 { return w & hiBits }

// compress8 packs the high bit of each of w's 8 bytes into the low 8 bits
// of the result, preserving byte order (bit 0 <-> byte 0). Each of the 8
// shift amounts (0, 7, 14, ..., 49) moves exactly one lane's bit down to
// its final position; branch-free.
func compress8(w uint64) uint8 {
	w >>= 7
	return uint8(
		(w & 1) |
			((w >> 7) & 2) |
			((w >> 14) & 4) |
			((w >> 21) & 8) |
			((w >> 28) & 16) |
			((w >> 35) & 32) |
			((w >> 42) & 64) |
			((w >> 49) & 128),
	)
}

// groupMask runs swar over both 8-byte halves of the 16-byte control
// group starting at meta[start:start+16] and compresses the result into
// a 16-bit mask, bit i set according to swar's semantics for byte i.
func groupMask(meta []byte, start int, swar func(uint64) uint64) uint16 {
	w0 := binary.LittleEndian.Uint64(meta[start : start+8])
	w1 := binary.LittleEndian.Uint64(meta[start+8 : start+16])
	return uint16(compress8(swar(w0))) | uint16(compress8(swar(w1)))<<8
}

// matchByte implements spec.md §4.G's cmpeq16: bit i set iff meta byte i
// of the group starting at start equals b.
func matchByte(meta []byte, start int, b byte) uint16 {
	return groupMask(meta, start, func(w uint64) uint64 { return hasByteSWAR(w, b) })
}

// matchEmpty is matchByte specialized to Empty, used to terminate probing.
func matchEmpty(meta []byte, start int) uint16 {
	return matchByte(meta, start, Empty)
}

// matchAvailable implements spec.md §4.G's msb16: bit i set iff meta byte
// i has its high bit set, i.e. the slot is EMPTY or DELETED and therefore
// available for insertion.
func matchAvailable(meta []byte, start int) uint16 {
	return groupMask(meta, start, highBitsSWAR)
}
