package xymemory

import (
	"testing"
	"unsafe"

	"github.com/duskbound/xylu/internal/xylog"
)

func TestChunkGroupGrowsAndReusesNewestFirst(t *testing.T) {
	opt := DefaultOption()
	opt.ChunkMinCells = 4
	opt.ChunkMinSize = 0 // isolate ChunkMinCells's effect on the first chunk's size
	g := newChunkGroup(32, opt, xylog.Default())

	var first []unsafe.Pointer
	for i := 0; i < 4; i++ {
		first = append(first, g.allocate())
	}
	if len(g.chunks) != 1 {
		t.Fatalf("expected exactly one chunk after filling chunk_min_cells, got %d", len(g.chunks))
	}

	// The first chunk is now full; the next allocate must create a second.
	second := g.allocate()
	if len(g.chunks) != 2 {
		t.Fatalf("expected a second chunk once the first filled, got %d", len(g.chunks))
	}

	g.deallocate(second)
	g.deallocate(first[0])

	// Newest-first: the freed cell in the newer (second) chunk should be
	// handed back out before anything from the older chunk.
	reused := g.allocate()
	if reused != second {
		t.Fatalf("allocate did not prefer the newest chunk's freed cell")
	}
}

func TestChunkGroupFirstChunkSizedByChunkMinSize(t *testing.T) {
	opt := DefaultOption()
	opt.ChunkMinCells = 1
	opt.ChunkMinSize = 1024
	g := newChunkGroup(32, opt, xylog.Default()) // 1024/32 = 32 cells, well above ChunkMinCells

	if g.nextCellCount != 32 {
		t.Fatalf("nextCellCount = %d, want 32 (ChunkMinSize/cellSize)", g.nextCellCount)
	}

	g.allocate() // creates the first chunk
	if got := g.chunks[0].cellCount; got != 32 {
		t.Fatalf("first chunk has %d cells, want 32 (ChunkMinSize/cellSize)", got)
	}
}

func TestChunkGroupDeallocateAcrossSortedPrefix(t *testing.T) {
	opt := DefaultOption()
	opt.ChunkMinCells = 2
	opt.ChunkMinSize = 0 // isolate ChunkMinCells's effect on the first chunk's size
	g := newChunkGroup(16, opt, xylog.Default())

	var ptrs []unsafe.Pointer
	for i := 0; i < 20; i++ {
		ptrs = append(ptrs, g.allocate())
	}
	if len(g.chunks) < 3 {
		t.Fatalf("expected multiple chunks, got %d", len(g.chunks))
	}

	for _, p := range ptrs {
		g.deallocate(p)
	}

	for i, p := range ptrs {
		got := g.allocate()
		if got != p {
			// Allocation order after a full free need not match exactly,
			// but every returned pointer must be one we recognize.
			found := false
			for _, q := range ptrs {
				if got == q {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("reallocate %d returned an unrecognized pointer %p", i, got)
			}
		}
	}
}
