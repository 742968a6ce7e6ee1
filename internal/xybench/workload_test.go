package xybench

import (
	"math/rand"
	"testing"

	"github.com/restic/chunker"

	"github.com/duskbound/xylu/internal/xymemory"
)

func newTestPool() *xymemory.Pool { return xymemory.New(xymemory.DefaultOption()) }

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := rand.New(rand.NewSource(1)).Read(buf); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return buf
}

func TestSplitProducesNonEmptySamples(t *testing.T) {
	pol, err := chunker.RandomPolynomial()
	if err != nil {
		t.Fatalf("RandomPolynomial: %v", err)
	}

	data := randomBytes(t, 4*1024*1024)
	samples, err := Split(data, pol)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(samples) == 0 {
		t.Fatalf("Split returned no samples for 4MiB of input")
	}

	var total uint
	for _, s := range samples {
		if s.Length == 0 {
			t.Fatalf("Split produced a zero-length sample")
		}
		total += s.Length
	}
	if int(total) != len(data) {
		t.Fatalf("sample lengths summed to %d, want %d", total, len(data))
	}
}

func TestRunPreservesOddIndexedEntries(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	pol, err := chunker.RandomPolynomial()
	if err != nil {
		t.Fatalf("RandomPolynomial: %v", err)
	}
	data := randomBytes(t, 1024*1024)
	samples, err := Split(data, pol)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	stats, err := Run(pool, samples)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Allocations != len(samples) {
		t.Fatalf("Allocations = %d, want %d", stats.Allocations, len(samples))
	}
	wantFrees := (len(samples) + 1) / 2
	if stats.Frees != wantFrees {
		t.Fatalf("Frees = %d, want %d", stats.Frees, wantFrees)
	}
	if stats.TableLen != len(samples)-stats.Frees {
		t.Fatalf("TableLen = %d, want %d", stats.TableLen, len(samples)-stats.Frees)
	}
}

func TestWorkloadEndToEnd(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	pol, err := chunker.RandomPolynomial()
	if err != nil {
		t.Fatalf("RandomPolynomial: %v", err)
	}

	stats, err := Workload(pool, randomBytes(t, 512*1024), pol)
	if err != nil {
		t.Fatalf("Workload: %v", err)
	}
	if stats.BytesRequested == 0 {
		t.Fatalf("Workload reported zero bytes requested")
	}
}
