package engine

import (
	"sort"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

// Keyframe is a redundant full-state snapshot at one coordinate. It bounds
// how far back a retrieval has to search, and never overrides newer facts.
// Every creation is itself a fact, so deleting a keyframe changes the cost
// of queries, not their results.
type Keyframe struct {
	Branch string
	At     timeline.Time
	Snap   *wire.Snapshot
}

// keyframeStore keeps keyframes per branch, sorted by time. Keyframes are
// sparse (one per interval of turns at most), so plain sorted slices with
// binary search beat the two-stack structure here.
type keyframeStore struct {
	byBranch map[string][]*Keyframe
}

func newKeyframeStore() *keyframeStore {
	return &keyframeStore{byBranch: make(map[string][]*Keyframe)}
}

// put inserts or replaces the keyframe at kf's coordinate.
func (ks *keyframeStore) put(kf *Keyframe) {
	frames := ks.byBranch[kf.Branch]
	i := sort.Search(len(frames), func(i int) bool {
		return !frames[i].At.Before(kf.At)
	})
	if i < len(frames) && frames[i].At == kf.At {
		frames[i] = kf
		return
	}
	frames = append(frames, nil)
	copy(frames[i+1:], frames[i:])
	frames[i] = kf
	ks.byBranch[kf.Branch] = frames
}

// nearest returns the latest keyframe at or before t in the branch.
func (ks *keyframeStore) nearest(branch string, t timeline.Time) (*Keyframe, bool) {
	frames := ks.byBranch[branch]
	i := sort.Search(len(frames), func(i int) bool {
		return frames[i].At.After(t)
	})
	if i == 0 {
		return nil, false
	}
	return frames[i-1], true
}

// truncate removes every keyframe at or after t in the branch, reporting
// how many were dropped. Retraction calls this so no keyframe outlives the
// facts it summarizes.
func (ks *keyframeStore) truncate(branch string, t timeline.Time) int {
	frames := ks.byBranch[branch]
	i := sort.Search(len(frames), func(i int) bool {
		return !frames[i].At.Before(t)
	})
	n := len(frames) - i
	if n > 0 {
		ks.byBranch[branch] = frames[:i]
	}
	return n
}

// delete removes the keyframe at exactly (branch, t), reporting whether one
// existed.
func (ks *keyframeStore) delete(branch string, t timeline.Time) bool {
	frames := ks.byBranch[branch]
	i := sort.Search(len(frames), func(i int) bool {
		return !frames[i].At.Before(t)
	})
	if i >= len(frames) || frames[i].At != t {
		return false
	}
	ks.byBranch[branch] = append(frames[:i], frames[i+1:]...)
	return true
}

// all returns every keyframe, branch by branch in sorted order.
func (ks *keyframeStore) all(branchOrder []string) []*Keyframe {
	var out []*Keyframe
	for _, branch := range branchOrder {
		out = append(out, ks.byBranch[branch]...)
	}
	return out
}
