package xymemory

import "testing"

func TestClassifyFindsSmallestFit(t *testing.T) {
	classes := classPrefix(4096)
	cases := []struct {
		bytes uint32
		want  uint32
	}{
		{1, 8},
		{8, 8},
		{9, 16},
		{128, 128},
		{129, 192},
		{4096, 4096},
	}
	for _, c := range cases {
		idx := classify(classes, c.bytes)
		if got := classes[idx]; got != c.want {
			t.Errorf("classify(%d) = class %d, want %d", c.bytes, got, c.want)
		}
	}
}

func TestClassPrefixStopsAtCellMaxSize(t *testing.T) {
	classes := classPrefix(4096)
	if last := classes[len(classes)-1]; last != 4096 {
		t.Fatalf("classPrefix(4096) last entry = %d, want 4096", last)
	}

	classes = classPrefix(5000)
	if last := classes[len(classes)-1]; last != 8192 {
		t.Fatalf("classPrefix(5000) last entry = %d, want 8192", last)
	}
}

func TestClassifyPanicsBeyondTable(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("classify did not panic for an out-of-range size")
		}
	}()
	classes := classPrefix(128)
	classify(classes, 129)
}
