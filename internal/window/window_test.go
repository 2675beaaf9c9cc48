package window

import (
	"errors"
	"testing"
)

func collectOrder(seq func(yield func(int64, string) bool)) []int64 {
	var out []int64
	seq(func(rev int64, v string) bool {
		out = append(out, rev)
		return true
	})
	return out
}

func TestGetReturnsLatestAtOrBefore(t *testing.T) {
	var h Hist[string]
	h.Set(2, "a")
	h.Set(5, "b")
	h.Set(9, "c")

	tests := []struct {
		rev    int64
		want   string
		wantOK bool
	}{
		{1, "", false},
		{2, "a", true},
		{4, "a", true},
		{5, "b", true},
		{8, "b", true},
		{9, "c", true},
		{100, "c", true},
	}
	for _, tc := range tests {
		got, ok := h.Get(tc.rev)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("Get(%d) = %q, %v; want %q, %v", tc.rev, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestSeekBackAndForth(t *testing.T) {
	var h Hist[string]
	for i := int64(0); i < 10; i++ {
		h.Set(i*2, "v")
	}
	// Zig-zag seeks must keep the structure consistent.
	revs := []int64{0, 18, 5, 11, 3, 19, 0}
	for _, rev := range revs {
		h.Seek(rev)
		if got, ok := h.RevBefore(rev); !ok || got > rev {
			t.Fatalf("RevBefore(%d) = %d, %v", rev, got, ok)
		}
	}
	if h.Len() != 10 {
		t.Errorf("Len() = %d, want 10", h.Len())
	}
}

func TestSetOverwritesExactRevision(t *testing.T) {
	var h Hist[string]
	h.Set(3, "first")
	h.Set(3, "second")

	if got, _ := h.Get(3); got != "second" {
		t.Errorf("Get(3) = %q, want %q", got, "second")
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d, want 1", h.Len())
	}
}

func TestSetIntoThePast(t *testing.T) {
	var h Hist[string]
	h.Set(10, "late")
	h.Set(2, "early")

	if got, _ := h.Get(5); got != "early" {
		t.Errorf("Get(5) = %q, want %q", got, "early")
	}
	if got, _ := h.Get(10); got != "late" {
		t.Errorf("Get(10) = %q, want %q", got, "late")
	}
}

func TestSetStrict(t *testing.T) {
	var h Hist[string]
	if err := h.SetStrict(3, "a"); err != nil {
		t.Fatalf("SetStrict(3) on empty: %v", err)
	}
	if err := h.SetStrict(7, "b"); err != nil {
		t.Fatalf("SetStrict(7): %v", err)
	}
	// Rewriting the latest revision in place is allowed.
	if err := h.SetStrict(7, "b2"); err != nil {
		t.Fatalf("SetStrict(7) rewrite: %v", err)
	}
	if got, _ := h.Get(7); got != "b2" {
		t.Errorf("Get(7) = %q, want %q", got, "b2")
	}
	// Anything at or before recorded history is refused.
	if err := h.SetStrict(5, "x"); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("SetStrict(5) = %v, want ErrOutOfOrder", err)
	}
	if err := h.SetStrict(3, "x"); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("SetStrict(3) = %v, want ErrOutOfOrder", err)
	}
}

func TestDeleteExact(t *testing.T) {
	var h Hist[string]
	h.Set(1, "a")
	h.Set(4, "b")

	if !h.DeleteExact(4) {
		t.Fatal("DeleteExact(4) = false, want true")
	}
	if h.DeleteExact(4) {
		t.Error("DeleteExact(4) twice = true, want false")
	}
	if h.DeleteExact(3) {
		t.Error("DeleteExact(3) = true for unrecorded rev")
	}
	if got, _ := h.Get(10); got != "a" {
		t.Errorf("Get(10) after delete = %q, want %q", got, "a")
	}
}

func TestTruncate(t *testing.T) {
	var h Hist[string]
	h.Set(1, "a")
	h.Set(5, "b")
	h.Set(9, "c")

	h.Truncate(5)
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	if _, ok := h.Get(9); !ok {
		t.Fatal("Get(9) not ok after truncate")
	}
	if got, _ := h.Get(9); got != "b" {
		t.Errorf("Get(9) = %q, want %q", got, "b")
	}
}

func TestEarliestLatest(t *testing.T) {
	var h Hist[string]
	if _, _, ok := h.Earliest(); ok {
		t.Error("Earliest on empty = ok")
	}
	h.Set(3, "a")
	h.Set(8, "b")
	h.Seek(5) // split across both stacks

	if rev, v, ok := h.Earliest(); !ok || rev != 3 || v != "a" {
		t.Errorf("Earliest = %d, %q, %v", rev, v, ok)
	}
	if rev, v, ok := h.Latest(); !ok || rev != 8 || v != "b" {
		t.Errorf("Latest = %d, %q, %v", rev, v, ok)
	}
}

func TestAllAndDescendingOrder(t *testing.T) {
	var h Hist[string]
	h.Set(4, "b")
	h.Set(1, "a")
	h.Set(9, "c")
	h.Seek(4)

	asc := collectOrder(h.All())
	if len(asc) != 3 || asc[0] != 1 || asc[1] != 4 || asc[2] != 9 {
		t.Errorf("All order = %v", asc)
	}

	desc := collectOrder(h.Descending())
	if len(desc) != 3 || desc[0] != 9 || desc[1] != 4 || desc[2] != 1 {
		t.Errorf("Descending order = %v", desc)
	}
}

func TestBetween(t *testing.T) {
	var h Hist[string]
	for _, rev := range []int64{1, 3, 5, 7} {
		h.Set(rev, "v")
	}

	// Forward: from < rev <= to.
	fwd := collectOrder(h.Between(1, 5))
	if len(fwd) != 2 || fwd[0] != 3 || fwd[1] != 5 {
		t.Errorf("Between(1,5) = %v, want [3 5]", fwd)
	}

	// Backward: to < rev <= from, walked latest-first.
	bwd := collectOrder(h.Between(7, 3))
	if len(bwd) != 2 || bwd[0] != 7 || bwd[1] != 5 {
		t.Errorf("Between(7,3) = %v, want [7 5]", bwd)
	}

	if got := collectOrder(h.Between(3, 3)); len(got) != 0 {
		t.Errorf("Between(3,3) = %v, want empty", got)
	}
}

func TestRevAfter(t *testing.T) {
	var h Hist[string]
	h.Set(2, "a")
	h.Set(6, "b")

	if rev, ok := h.RevAfter(2); !ok || rev != 6 {
		t.Errorf("RevAfter(2) = %d, %v; want 6, true", rev, ok)
	}
	if _, ok := h.RevAfter(6); ok {
		t.Error("RevAfter(6) = ok, want none")
	}
	if rev, ok := h.RevAfter(0); !ok || rev != 2 {
		t.Errorf("RevAfter(0) = %d, %v; want 2, true", rev, ok)
	}
}
