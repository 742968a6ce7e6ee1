package xymemory

import (
	"sort"
	"unsafe"

	"github.com/duskbound/xylu/internal/xylog"
)

// chunkGroup is a growable collection of chunks sharing one cell size,
// backed by a single contiguous state-bitmap arena. Mirrors spec.md §3's
// ChunkGroup: chunks are sorted by base address except the last, which is
// appended unsorted; the next append sorts the previous tail in.
type chunkGroup struct {
	cellSize      uint32
	nextCellCount uint32
	chunkMaxCells uint32
	growFactor    float32

	chunks []*chunk // sorted, except chunks[len-1]
	states []uint64 // single contiguous arena; each chunk owns a disjoint subrange

	log xylog.Logger
}

func newChunkGroup(cellSize uint32, opt Option, log xylog.Logger) *chunkGroup {
	return &chunkGroup{
		cellSize:      cellSize,
		nextCellCount: firstCellCount(cellSize, opt),
		chunkMaxCells: uint32(opt.ChunkMaxCells),
		growFactor:    opt.GrowFactor,
		log:           log,
	}
}

// firstCellCount sizes a group's first chunk: at least ChunkMinCells, and
// enough cells to cover ChunkMinSize total bytes at cellSize each
// (spec.md §3/§6's "minimum total bytes when sizing the first chunk of a
// group"; original_source/src/xymemory/pool.cpp:738's
// "max(op.chunk_min_cells, op.chunk_min_size / cell_size)"), clamped to
// ChunkMaxCells.
func firstCellCount(cellSize uint32, opt Option) uint32 {
	cells := opt.ChunkMinCells
	if bySize := opt.ChunkMinSize / uint64(cellSize); bySize > cells {
		cells = bySize
	}
	if cells > opt.ChunkMaxCells {
		cells = opt.ChunkMaxCells
	}
	if cells < 1 {
		cells = 1
	}
	return uint32(cells)
}

// mergeTail binary-insertion-sorts the current unsorted tail into the
// sorted prefix, amortizing sort cost across chunk creations.
func (g *chunkGroup) mergeTail() {
	n := len(g.chunks)
	if n <= 1 {
		return
	}
	tail := g.chunks[n-1]
	prefix := g.chunks[:n-1]
	pos := sort.Search(len(prefix), func(i int) bool {
		return prefix[i].base >= tail.base
	})
	g.chunks = append(g.chunks[:pos], append([]*chunk{tail}, g.chunks[pos:n-1]...)...)
}

// grow creates a new chunk of nextCellCount cells, merges the previous
// unsorted tail into the sorted prefix, appends the new chunk as the new
// tail, and advances nextCellCount by growFactor bounded by policy.
func (g *chunkGroup) grow() *chunk {
	g.mergeTail()

	cells := g.nextCellCount
	words := (cells + 63) / 64
	statePos := uint32(len(g.states))
	g.states = append(g.states, make([]uint64, words)...)

	c := newChunk(g.cellSize, cells, statePos, g.states)
	g.chunks = append(g.chunks, c)

	next := float64(g.nextCellCount) * float64(g.growFactor)
	if next > float64(g.chunkMaxCells) {
		next = float64(g.chunkMaxCells)
	}
	maxByCellSize := float64(^uint32(0)) / float64(g.cellSize)
	if next > maxByCellSize {
		next = maxByCellSize
	}
	g.nextCellCount = uint32(next)
	if g.nextCellCount == 0 {
		g.nextCellCount = 1
	}
	return c
}

// allocate walks chunks newest-first, trying Chunk.allocate; on total
// failure it creates a new chunk and allocates from that.
func (g *chunkGroup) allocate() unsafe.Pointer {
	for i := len(g.chunks) - 1; i >= 0; i-- {
		if ptr, ok := g.chunks[i].allocate(g.states); ok {
			return ptr
		}
	}
	c := g.grow()
	ptr, ok := c.allocate(g.states)
	if !ok {
		// A freshly grown chunk with at least chunk_min_cells >= 1 cells
		// always has room for one allocation.
		panic("xymemory: new chunk reports full immediately")
	}
	return ptr
}

// deallocate checks the unsorted tail first, then binary-searches the
// sorted prefix for the chunk whose base is closest below p. If p does
// not actually lie in that chunk's byte range, the free is logged and
// dropped rather than panicking — spec.md §4.C's documented misuse
// policy.
func (g *chunkGroup) deallocate(p unsafe.Pointer) {
	n := len(g.chunks)
	if n == 0 {
		g.log.Warn("xymemory: deallocate on empty chunk group")
		return
	}

	if tail := g.chunks[n-1]; tail.contains(p) {
		tail.deallocate(p, g.states)
		return
	}

	prefix := g.chunks[:n-1]
	idx := sort.Search(len(prefix), func(i int) bool {
		return prefix[i].base > uintptr(p)
	}) - 1
	if idx < 0 || !prefix[idx].contains(p) {
		g.log.Warn("xymemory: deallocate: pointer %p not owned by this chunk group", p)
		return
	}
	prefix[idx].deallocate(p, g.states)
}

// release drops every chunk and the state arena; the backing arrays
// become eligible for garbage collection once no other reference to this
// group's memory remains.
func (g *chunkGroup) release() {
	g.chunks = nil
	g.states = nil
}
