// Package window implements the two-stack ordered history structure behind
// the point-in-time caches. A Hist keeps every value a variable has had
// across integer revisions and answers "latest value at or before rev".
//
// The two stacks, past and future, straddle a cursor. Seeking moves entries
// across the stacks, so repeated lookups at the same or neighboring
// revisions are O(1) amortized and a jump of size k costs O(k). That is the
// common access pattern here: time moves forward, or by small jumps.
package window

import (
	"errors"
	"fmt"
	"iter"
)

// ErrOutOfOrder is returned by SetStrict when a write lands at or before
// revisions that already have recorded history.
var ErrOutOfOrder = errors.New("history already recorded after this revision")

type entry[V any] struct {
	rev int64
	val V
}

// Hist is a mutable revision-indexed history of V. The zero value is ready
// to use. Not safe for concurrent mutation.
//
// Internal layout: past holds entries at or before the cursor in ascending
// rev order (top = last element). future holds entries after the cursor in
// DESCENDING rev order, so its top (the earliest future rev) is also the
// last element. Both stack tops are slice ends, keeping seeks allocation-free.
type Hist[V any] struct {
	past   []entry[V]
	future []entry[V]
}

// Len returns the number of recorded revisions.
func (h *Hist[V]) Len() int { return len(h.past) + len(h.future) }

// Empty reports whether nothing was ever recorded.
func (h *Hist[V]) Empty() bool { return h.Len() == 0 }

// Seek arranges the stacks so that the top of past is the latest revision
// at or before rev, and the top of future is the earliest revision after it.
func (h *Hist[V]) Seek(rev int64) {
	if len(h.past) > 0 && h.past[len(h.past)-1].rev <= rev &&
		(len(h.future) == 0 || h.future[len(h.future)-1].rev > rev) {
		return
	}
	for len(h.future) > 0 && h.future[len(h.future)-1].rev <= rev {
		h.past = append(h.past, h.future[len(h.future)-1])
		h.future = h.future[:len(h.future)-1]
	}
	for len(h.past) > 0 && h.past[len(h.past)-1].rev > rev {
		h.future = append(h.future, h.past[len(h.past)-1])
		h.past = h.past[:len(h.past)-1]
	}
}

// Get returns the value effective at rev: the one recorded at the latest
// revision at or before it. ok is false when rev precedes all history.
func (h *Hist[V]) Get(rev int64) (v V, ok bool) {
	h.Seek(rev)
	if len(h.past) == 0 {
		return v, false
	}
	return h.past[len(h.past)-1].val, true
}

// HasExact reports whether a value was recorded at exactly rev.
func (h *Hist[V]) HasExact(rev int64) bool {
	h.Seek(rev)
	return len(h.past) > 0 && h.past[len(h.past)-1].rev == rev
}

// RevBefore returns the latest recorded revision at or before rev.
func (h *Hist[V]) RevBefore(rev int64) (int64, bool) {
	h.Seek(rev)
	if len(h.past) == 0 {
		return 0, false
	}
	return h.past[len(h.past)-1].rev, true
}

// RevAfter returns the earliest recorded revision after rev.
func (h *Hist[V]) RevAfter(rev int64) (int64, bool) {
	h.Seek(rev)
	if len(h.future) == 0 {
		return 0, false
	}
	return h.future[len(h.future)-1].rev, true
}

// Set records v at rev, overwriting any value recorded at exactly rev.
// Writes into the past are permitted; they re-seek the stacks first.
func (h *Hist[V]) Set(rev int64, v V) {
	if len(h.past) == 0 && len(h.future) == 0 {
		h.past = append(h.past, entry[V]{rev, v})
		return
	}
	h.Seek(rev)
	if len(h.past) == 0 {
		// Before all history: becomes the new bottom of past.
		h.past = append(h.past, entry[V]{rev, v})
		return
	}
	if top := &h.past[len(h.past)-1]; top.rev == rev {
		top.val = v
		return
	}
	h.past = append(h.past, entry[V]{rev, v})
}

// SetStrict records v at rev but refuses to rewrite the past: if any
// revision at or after rev is already recorded (other than rev itself as
// the latest), it returns ErrOutOfOrder. Plans use this mode: a plan may
// only extend history, never contradict it.
func (h *Hist[V]) SetStrict(rev int64, v V) error {
	if len(h.past) == 0 && len(h.future) == 0 {
		h.past = append(h.past, entry[V]{rev, v})
		return nil
	}
	h.Seek(rev)
	if len(h.future) > 0 {
		return fmt.Errorf("set at rev %d: %w", rev, ErrOutOfOrder)
	}
	if len(h.past) == 0 || h.past[len(h.past)-1].rev < rev {
		h.past = append(h.past, entry[V]{rev, v})
		return nil
	}
	if h.past[len(h.past)-1].rev == rev {
		h.past[len(h.past)-1].val = v
		return nil
	}
	return fmt.Errorf("set at rev %d: %w", rev, ErrOutOfOrder)
}

// DeleteExact removes the entry recorded at exactly rev, reporting whether
// one existed. Used to retract planned writes.
func (h *Hist[V]) DeleteExact(rev int64) bool {
	h.Seek(rev)
	if len(h.past) == 0 || h.past[len(h.past)-1].rev != rev {
		return false
	}
	h.past = h.past[:len(h.past)-1]
	return true
}

// Truncate discards every revision strictly after rev.
func (h *Hist[V]) Truncate(rev int64) {
	h.Seek(rev)
	h.future = nil
}

// Earliest returns the first recorded revision and its value.
func (h *Hist[V]) Earliest() (rev int64, v V, ok bool) {
	if len(h.past) > 0 {
		e := h.past[0]
		return e.rev, e.val, true
	}
	if len(h.future) > 0 {
		e := h.future[len(h.future)-1]
		return e.rev, e.val, true
	}
	return 0, v, false
}

// Latest returns the last recorded revision and its value.
func (h *Hist[V]) Latest() (rev int64, v V, ok bool) {
	if len(h.future) > 0 {
		e := h.future[0]
		return e.rev, e.val, true
	}
	if len(h.past) > 0 {
		e := h.past[len(h.past)-1]
		return e.rev, e.val, true
	}
	return 0, v, false
}

// All yields every recorded (rev, value) pair in ascending revision order.
// The Hist must not be mutated during iteration.
func (h *Hist[V]) All() iter.Seq2[int64, V] {
	return func(yield func(int64, V) bool) {
		for _, e := range h.past {
			if !yield(e.rev, e.val) {
				return
			}
		}
		for i := len(h.future) - 1; i >= 0; i-- {
			if !yield(h.future[i].rev, h.future[i].val) {
				return
			}
		}
	}
}

// Descending yields every recorded (rev, value) pair from latest to earliest.
func (h *Hist[V]) Descending() iter.Seq2[int64, V] {
	return func(yield func(int64, V) bool) {
		for _, e := range h.future {
			if !yield(e.rev, e.val) {
				return
			}
		}
		for i := len(h.past) - 1; i >= 0; i-- {
			if !yield(h.past[i].rev, h.past[i].val) {
				return
			}
		}
	}
}

// Between yields (rev, value) pairs with from < rev <= to when from < to,
// walking forward; with to < rev <= from when to < from, walking backward.
// Deltas are built from this window: changes strictly after the start,
// up to and including the end.
func (h *Hist[V]) Between(from, to int64) iter.Seq2[int64, V] {
	return func(yield func(int64, V) bool) {
		if from <= to {
			for rev, v := range h.All() {
				if rev <= from {
					continue
				}
				if rev > to {
					return
				}
				if !yield(rev, v) {
					return
				}
			}
			return
		}
		for rev, v := range h.Descending() {
			if rev > from {
				continue
			}
			if rev <= to {
				return
			}
			if !yield(rev, v) {
				return
			}
		}
	}
}
