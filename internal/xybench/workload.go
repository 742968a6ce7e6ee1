// Package xybench turns an arbitrary byte stream into a stress workload
// for xymemory.Pool and internal/xycontain/hashtable, using content-
// defined chunking (github.com/restic/chunker, the same library restic's
// archiver uses to split file content into blobs) to derive a sequence of
// allocation sizes instead of a synthetic fixed distribution. It backs
// cmd/xylu's bench subcommand.
package xybench

import (
	"bytes"
	"io"
	"unsafe"

	"github.com/restic/chunker"

	"github.com/duskbound/xylu/internal/xycontain/hashtable"
	"github.com/duskbound/xylu/internal/xycore"
	"github.com/duskbound/xylu/internal/xyerr"
	"github.com/duskbound/xylu/internal/xymemory"
)

// uintptrHolder pairs an allocation with the size it was requested at,
// since Pool.Deallocate needs the original size and alignment back.
type uintptrHolder struct {
	ptr  unsafe.Pointer
	size uintptr
}

// Sample is one content-defined chunk's length, used as one allocation
// request's size.
type Sample struct {
	Length uint
}

// Split runs data through a content-defined chunker seeded with pol and
// returns one Sample per chunk.
func Split(data []byte, pol chunker.Pol) ([]Sample, error) {
	ch := chunker.New(bytes.NewReader(data), pol)
	buf := make([]byte, chunker.MaxSize)

	var samples []Sample
	for {
		chunk, err := ch.Next(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xyerr.Wrap(err, "xybench: chunker.Next")
		}
		samples = append(samples, Sample{Length: chunk.Length})
	}
	return samples, nil
}

// Stats summarizes one Run.
type Stats struct {
	Allocations    int
	Frees          int
	BytesRequested uint64
	TableLen       int
}

// Run allocates one pool cell per sample (recording its size in a Table
// keyed by sample index), frees every even-indexed allocation and erases
// its table entry, then checks that the table's iteration and Contains
// results agree with what was actually freed — exercising Pool and Table
// together per spec.md §2's data-flow diagram, with invariant checks
// after the run in the shape of internal/checker's post-run
// assertions.
func Run(pool *xymemory.Pool, samples []Sample) (Stats, error) {
	tbl := hashtable.New[int, uint32](pool, hashtable.XXHash64[int])
	defer tbl.Release()

	ptrs := make([]uintptrHolder, len(samples))
	var stats Stats
	for i, s := range samples {
		size := sampleSize(s)
		ptrs[i] = uintptrHolder{ptr: pool.Allocate(size, xycore.DefaultAlign), size: size}
		tbl.Update(i, uint32(size))
		stats.Allocations++
		stats.BytesRequested += uint64(size)
	}

	for i := 0; i < len(samples); i += 2 {
		pool.Deallocate(ptrs[i].ptr, ptrs[i].size, xycore.DefaultAlign)
		tbl.Erase(i)
		stats.Frees++
	}
	stats.TableLen = tbl.Len()

	if err := checkInvariants(tbl, samples); err != nil {
		return stats, err
	}
	return stats, nil
}

// Workload is Split followed by Run, the single call cmd/xylu's bench
// subcommand drives.
func Workload(pool *xymemory.Pool, data []byte, pol chunker.Pol) (Stats, error) {
	samples, err := Split(data, pol)
	if err != nil {
		return Stats{}, err
	}
	return Run(pool, samples)
}

func sampleSize(s Sample) uintptr {
	if s.Length == 0 {
		return 1
	}
	return uintptr(s.Length)
}

func checkInvariants(tbl *hashtable.Table[int, uint32], samples []Sample) error {
	count := 0
	for it := tbl.Iterate(); it.Valid(); it.Advance() {
		count++
	}
	if count != tbl.Len() {
		return xyerr.Fatalf("xybench: iteration yielded %d entries, Len() reports %d", count, tbl.Len())
	}
	for i := range samples {
		wantLive := i%2 != 0
		if got := tbl.Contains(i); got != wantLive {
			return xyerr.Errorf("xybench: Contains(%d) = %v, want %v", i, got, wantLive)
		}
	}
	return nil
}
