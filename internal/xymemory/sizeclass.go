// Package xymemory implements the block memory pool: size-class routing,
// chunked small-object pools (Chunk/ChunkGroup), and a hashed registry for
// oversized allocations (BlockSet), combined behind the Pool façade.
//
// The layout follows the original C++ source's MemPool_Block almost
// directly (see DESIGN.md); Go's GC forbids the source's trick of carving
// a header out of raw bytes ahead of the user pointer for anything that
// itself holds live Go pointers, so BlockSet's node is a real Go struct
// instead of a manually placed header — documented at the type.
package xymemory

import "sort"

// sizeClasses is the required table from spec.md §6, in order, with no
// omissions. classify never returns an index past the prefix a Pool
// actually built chunk groups for (see Pool.Init).
var sizeClasses = [30]uint32{
	8, 16, 24, 32, 48, 64, 80, 96, 112, 128,
	192, 256, 320, 384, 448, 512, 768, 1024, 1536, 2048,
	3072, 4096, 8192, 16384, 32768, 65536, 131072, 1048576, 2097152, 4194304,
}

// classPrefix returns the smallest prefix of sizeClasses whose last
// element is >= max, plus that last element. Pool uses this once, at
// Init, to decide how many chunk groups to build.
func classPrefix(max uint64) []uint32 {
	n := sort.Search(len(sizeClasses), func(i int) bool {
		return uint64(sizeClasses[i]) >= max
	})
	if n == len(sizeClasses) {
		return sizeClasses[:]
	}
	return sizeClasses[:n+1]
}

// classify returns the index into classes of the smallest entry >= bytes.
// classes must be sorted ascending (a prefix of sizeClasses, or the full
// table). It panics if bytes exceeds the largest entry in classes — a
// Pool never calls it that way, since it only classifies requests already
// known to satisfy max(bytes, align) <= cell_max_size.
func classify(classes []uint32, bytes uint32) int {
	idx := sort.Search(len(classes), func(i int) bool {
		return classes[i] >= bytes
	})
	if idx == len(classes) {
		panic("xymemory: classify: bytes exceeds largest size class")
	}
	return idx
}
