package xymemory

import (
	"unsafe"

	"github.com/duskbound/xylu/internal/xycore"
	"github.com/duskbound/xylu/internal/xyerr"
	"github.com/duskbound/xylu/internal/xylog"
)

// Option configures a Pool, mirroring the original C++ source's
// MemPool_Block::Option and spec.md §6's recognized keys.
type Option struct {
	ChunkMinSize  uint64
	ChunkMinCells uint64
	ChunkMaxCells uint64
	CellMaxSize   uint64
	GrowFactor    float32
}

// DefaultOption returns spec.md §6's documented defaults.
func DefaultOption() Option {
	return Option{
		ChunkMinSize:  1024,
		ChunkMinCells: 8,
		ChunkMaxCells: 1_048_576,
		CellMaxSize:   4096,
		GrowFactor:    2.0,
	}
}

// minCellMaxSize is the floor spec.md §4.E asks for ("cell_max_size >=
// sizeof(BlockSet::Node)"). xylu's blockNode is a separately heap-
// allocated Go struct rather than a header packed ahead of the user
// bytes (see blockset.go), so there is no literal sizeof to match; 64
// bytes is kept as a nominal floor matching the smallest cache-line-
// granularity allocation the pool is meant to chunk rather than route to
// BlockSet.
const minCellMaxSize = 64

// maxStateCells bounds chunk_max_cells so a chunk's bitmap fits the
// stateCount uint16 word-count field: 65535 words * 64 bits.
const maxStateCells = 65535 * 64

func clampOption(opt Option) Option {
	if opt.ChunkMinCells < 1 {
		opt.ChunkMinCells = 1
	}
	if opt.ChunkMaxCells < opt.ChunkMinCells {
		opt.ChunkMaxCells = opt.ChunkMinCells
	}
	if opt.ChunkMaxCells > maxStateCells {
		opt.ChunkMaxCells = maxStateCells
	}
	if opt.GrowFactor < 1.0 {
		opt.GrowFactor = 1.0
	}
	if opt.CellMaxSize < minCellMaxSize {
		opt.CellMaxSize = minCellMaxSize
	}
	if last := uint64(sizeClasses[len(sizeClasses)-1]); opt.CellMaxSize > last {
		opt.CellMaxSize = last
	}
	return opt
}

// Pool is the public allocator façade combining size-class routing,
// chunk groups, and the oversize block registry. A Pool is bound to a
// single goroutine for its entire lifetime (spec.md §5); it holds no
// internal synchronization.
type Pool struct {
	opt         Option
	classes     []uint32
	groups      []*chunkGroup
	blocks      *blockSet
	log         xylog.Logger
	initialized bool
}

// New allocates and initializes a Pool with opt.
func New(opt Option) *Pool {
	p := &Pool{log: xylog.Default()}
	p.Init(opt)
	return p
}

// Init sets the option bundle (clamped to sane floors and ceilings) and
// builds a chunk group per size class up to CellMaxSize. Idempotent: a
// second Init on an already-initialized pool is a no-op, matching
// spec.md §4.E.
func (p *Pool) Init(opt Option) {
	if p.initialized {
		return
	}
	opt = clampOption(opt)
	p.opt = opt
	p.classes = classPrefix(opt.CellMaxSize)
	p.groups = make([]*chunkGroup, len(p.classes))
	for i, size := range p.classes {
		p.groups[i] = newChunkGroup(size, opt, p.log)
	}
	p.blocks = newBlockSet(p.log)
	p.initialized = true
}

// Initialized reports whether the pool has live chunk groups, the Go
// equivalent of the source's explicit operator bool.
func (p *Pool) Initialized() bool { return p.initialized }

// Option returns the effective, clamped options currently in force.
func (p *Pool) Option() Option { return p.opt }

func (p *Pool) checkInit() {
	if !p.initialized {
		panic(xyerr.Fatal("xymemory: Pool used before Init (or after Release)"))
	}
}

// Allocate returns a non-nil pointer to at least bytes bytes, aligned to
// align (which must be a power of two). bytes == 0 is treated as 1.
// Requests with max(bytes, align) <= CellMaxSize route through a chunk
// group; larger requests route through the oversize block registry.
func (p *Pool) Allocate(bytes, align uintptr) unsafe.Pointer {
	p.checkInit()
	if bytes == 0 {
		bytes = 1
	}
	if !xycore.IsPowerOfTwo(align) {
		panic(xyerr.Fatalf("xymemory: Allocate: align %d is not a power of two", align))
	}

	need := uint64(xycore.Max(uint64(bytes), uint64(align)))
	if need <= p.opt.CellMaxSize {
		idx := classify(p.classes, uint32(need))
		return p.groups[idx].allocate()
	}
	return p.blocks.allocate(uint64(bytes), uint64(align))
}

// Deallocate frees a pointer previously returned by Allocate with the
// same bytes and align. p == nil is a no-op. Freeing a pointer the pool
// did not allocate is a recoverable misuse: it is logged and ignored.
func (p *Pool) Deallocate(ptr unsafe.Pointer, bytes, align uintptr) {
	p.checkInit()
	if ptr == nil {
		return
	}
	if bytes == 0 {
		bytes = 1
	}

	need := uint64(xycore.Max(uint64(bytes), uint64(align)))
	if need <= p.opt.CellMaxSize {
		idx := classify(p.classes, uint32(need))
		p.groups[idx].deallocate(ptr)
		return
	}
	p.blocks.deallocate(ptr)
}

// Release unconditionally frees every chunk and block. Outstanding
// pointers become invalid. A released pool requires a fresh Init before
// further use; there is no Clone, only Release then re-Init (spec.md §9
// supplemented behavior).
func (p *Pool) Release() {
	if !p.initialized {
		return
	}
	for _, g := range p.groups {
		g.release()
	}
	p.groups = nil
	if p.blocks != nil {
		p.blocks.release()
	}
	p.blocks = nil
	p.classes = nil
	p.initialized = false
}
