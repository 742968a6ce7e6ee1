package hashtable

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/duskbound/xylu/internal/xymemory"
)

func newTestPool() *xymemory.Pool { return xymemory.New(xymemory.DefaultOption()) }

func TestTableGrowthPreservesAllKeys(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, int](pool, XXHash64[int])
	defer tbl.Release()

	for i := 0; i < 100; i++ {
		tbl.Update(i, i*2)
		if !tbl.Contains(i) {
			t.Fatalf("after inserting %d, Contains(%d) = false", i, i)
		}
		if v, err := tbl.At(i); err != nil || v != i*2 {
			t.Fatalf("At(%d) = %d, %v; want %d, nil", i, v, err, i*2)
		}
	}

	if tbl.Len() != 100 {
		t.Fatalf("Len() = %d, want 100", tbl.Len())
	}
	total := tbl.Total()
	if total&(total-1) != 0 {
		t.Fatalf("Total() = %d is not a power of two", total)
	}
	const minTotalForHundred = 128 // ceil(100/0.875) = 115, next pow2 = 128
	if total < minTotalForHundred {
		t.Fatalf("Total() = %d, want >= %d", total, minTotalForHundred)
	}
}

func TestTableTombstones(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, struct{}](pool, XXHash64[int])
	defer tbl.Release()

	for i := 0; i < 32; i++ {
		tbl.Insert(i, struct{}{})
	}
	for i := 0; i < 16; i++ {
		if !tbl.Erase(i) {
			t.Fatalf("Erase(%d) = false", i)
		}
	}
	for i := 32; i < 48; i++ {
		tbl.Insert(i, struct{}{})
	}

	for i := 0; i < 16; i++ {
		if tbl.Contains(i) {
			t.Fatalf("Contains(%d) = true after erase", i)
		}
	}
	for i := 16; i < 48; i++ {
		if !tbl.Contains(i) {
			t.Fatalf("Contains(%d) = false, want true", i)
		}
	}
	if tbl.Len() != 32 {
		t.Fatalf("Len() = %d, want 32", tbl.Len())
	}
}

func TestTableIteration(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, string](pool, XXHash64[int])
	defer tbl.Release()

	want := map[int]string{10: "a", 20: "b", 30: "c"}
	for k, v := range want {
		tbl.Update(k, v)
	}

	got := map[int]string{}
	for it := tbl.Iterate(); it.Valid(); it.Advance() {
		got[it.Key()] = it.Value()
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("iteration mismatch (-want +got):\n%s", diff)
	}
}

func TestTableCopySemantics(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	a := New[int, int](pool, XXHash64[int])
	defer a.Release()
	for i := 0; i < 10; i++ {
		a.Update(i, i)
	}

	b := New[int, int](pool, XXHash64[int])
	defer b.Release()
	b.CopyFrom(a)

	a.Erase(5)

	if !b.Contains(5) {
		t.Fatalf("b.Contains(5) = false after erasing 5 from a only")
	}
	if a.Contains(5) {
		t.Fatalf("a.Contains(5) = true after Erase")
	}
}

func TestTableInsertIsIdempotentUpdateReplaces(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[string, int](pool, StringHash64)
	defer tbl.Release()

	v, inserted := tbl.Insert("k", 1)
	if !inserted || v != 1 {
		t.Fatalf("first Insert = %d, %v; want 1, true", v, inserted)
	}
	v, inserted = tbl.Insert("k", 2)
	if inserted || v != 1 {
		t.Fatalf("second Insert = %d, %v; want 1, false", v, inserted)
	}

	tbl.Update("k", 2)
	got, err := tbl.At("k")
	if err != nil || got != 2 {
		t.Fatalf("At(k) after Update = %d, %v; want 2, nil", got, err)
	}
}

func TestTableEraseThenReinsertPreservesCount(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, int](pool, XXHash64[int])
	defer tbl.Release()

	tbl.Insert(1, 1)
	before := tbl.Len()

	tbl.Erase(1)
	if tbl.Contains(1) {
		t.Fatalf("Contains(1) = true after Erase")
	}

	tbl.Insert(1, 1)
	if tbl.Len() != before {
		t.Fatalf("Len() = %d after re-insert, want %d", tbl.Len(), before)
	}
}

func TestTableReduceIdempotentAboveShrinkThreshold(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, int](pool, XXHash64[int])
	defer tbl.Release()
	for i := 0; i < 100; i++ {
		tbl.Insert(i, i)
	}

	totalBefore := tbl.Total()
	tbl.Reduce() // count (100) >= capa*0.5, must be a no-op
	if tbl.Total() != totalBefore {
		t.Fatalf("Reduce() changed Total() from %d to %d though count >= capa*0.5", totalBefore, tbl.Total())
	}
}

func TestTableReduceShrinksAfterManyErases(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, int](pool, XXHash64[int])
	defer tbl.Release()
	for i := 0; i < 100; i++ {
		tbl.Insert(i, i)
	}
	for i := 0; i < 90; i++ {
		tbl.Erase(i)
	}

	tbl.Reduce()
	if tbl.Total() >= 128 {
		t.Fatalf("Reduce() left Total() = %d, expected a shrink after erasing 90%% of entries", tbl.Total())
	}
	for i := 90; i < 100; i++ {
		if !tbl.Contains(i) {
			t.Fatalf("Contains(%d) = false after Reduce", i)
		}
	}
}

func TestTableGetInsertsDefaultOnMiss(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, int](pool, XXHash64[int])
	defer tbl.Release()

	v := tbl.Get(7)
	if *v != 0 {
		t.Fatalf("Get(7) on a fresh table = %d, want 0", *v)
	}
	*v = 42
	if got, err := tbl.At(7); err != nil || got != 42 {
		t.Fatalf("At(7) after mutating Get's pointer = %d, %v; want 42, nil", got, err)
	}
}

func TestTableAtMissingKeyErrors(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, int](pool, XXHash64[int])
	defer tbl.Release()

	if _, err := tbl.At(1); err == nil {
		t.Fatalf("At(1) on an empty table returned no error")
	}
}

func TestTableClear(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	tbl := New[int, int](pool, XXHash64[int])
	defer tbl.Release()
	for i := 0; i < 10; i++ {
		tbl.Insert(i, i)
	}
	capaBefore := tbl.Cap()

	tbl.Clear()
	if tbl.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", tbl.Len())
	}
	if tbl.Cap() != capaBefore {
		t.Fatalf("Cap() changed by Clear: had %d, now %d", capaBefore, tbl.Cap())
	}
	for _, b := range tbl.meta {
		if b != Empty {
			t.Fatalf("meta byte %#x left non-EMPTY after Clear", b)
		}
	}
}

func TestSetBasic(t *testing.T) {
	pool := newTestPool()
	defer pool.Release()

	s := NewSet[int](pool, XXHash64[int])
	defer s.Release()

	if !s.Insert(1) {
		t.Fatalf("first Insert(1) = false")
	}
	if s.Insert(1) {
		t.Fatalf("second Insert(1) = true, want idempotent false")
	}
	if !s.Contains(1) {
		t.Fatalf("Contains(1) = false")
	}
	if !s.Erase(1) {
		t.Fatalf("Erase(1) = false")
	}
	if s.Contains(1) {
		t.Fatalf("Contains(1) = true after Erase")
	}
}
