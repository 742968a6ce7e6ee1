package xymemory

import "testing"

func TestChunkBaseAlignmentScalesWithCellBytes(t *testing.T) {
	for _, cellBytes := range []uint32{8, 64, 128, 4096} {
		states := make([]uint64, 1)
		c := newChunk(cellBytes, 1, 0, states)
		if c.base%uintptr(cellBytes) != 0 {
			t.Fatalf("newChunk(%d, ...): base %#x is not %d-aligned", cellBytes, c.base, cellBytes)
		}
	}
}

func TestChunkTrailingBitsPermanentlyUsed(t *testing.T) {
	states := make([]uint64, 1)
	c := newChunk(8, 5, 0, states) // 5 cells in a 64-bit word: bits 5..63 must be set

	want := ^uint64(0) << 5
	if got := states[0] &^ 0b11111; got != want {
		t.Fatalf("trailing bits not marked used: got %064b", got)
	}

	for i := 0; i < 5; i++ {
		if ptr, ok := c.allocate(states); !ok || ptr == nil {
			t.Fatalf("allocate %d failed inside a chunk with 5 free cells", i)
		}
	}
	if _, ok := c.allocate(states); ok {
		t.Fatalf("chunk allocated a 6th cell past cellCount")
	}
}

func TestChunkAllocateDeallocateCycle(t *testing.T) {
	states := make([]uint64, 2)
	c := newChunk(16, 100, 0, states)

	p1, ok := c.allocate(states)
	if !ok {
		t.Fatal("first allocate failed")
	}
	p2, ok := c.allocate(states)
	if !ok {
		t.Fatal("second allocate failed")
	}
	if p1 == p2 {
		t.Fatal("two allocations returned the same pointer")
	}

	c.deallocate(p1, states)
	if c.stateNext != 0 {
		t.Fatalf("deallocating the lowest-indexed cell must move stateNext back to its word, got %d", c.stateNext)
	}

	p3, ok := c.allocate(states)
	if !ok || p3 != p1 {
		t.Fatalf("allocate after deallocate did not reuse the freed cell: got %p want %p", p3, p1)
	}
}
