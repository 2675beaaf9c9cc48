package engine

import (
	"iter"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/window"
	"github.com/skeinworks/skein/internal/wire"
)

// logRec is one fact log entry: the fact itself plus the value it replaced,
// so deltas can report (old, new) without re-resolving history.
type logRec struct {
	fact       wire.Fact
	old        wire.Value
	oldDeleted bool
	oldSet     bool
}

// factLog is the in-memory, branch-partitioned, time-ordered record of
// every cache insertion. It is the ground truth the delta engine walks and
// the feed the durable store flushes; the caches can always be rebuilt
// from it.
//
// Layout mirrors the caches: per branch, a turn window over tick windows.
// The engine allocates one tick per fact, so each (branch, turn, tick)
// coordinate holds exactly one record.
type factLog struct {
	byBranch map[string]*window.Hist[*window.Hist[logRec]]
}

func newFactLog() *factLog {
	return &factLog{byBranch: make(map[string]*window.Hist[*window.Hist[logRec]])}
}

// append records a fact at its own coordinate.
func (fl *factLog) append(rec logRec) {
	branch := rec.fact.Branch
	th, ok := fl.byBranch[branch]
	if !ok {
		th = &window.Hist[*window.Hist[logRec]]{}
		fl.byBranch[branch] = th
	}
	var ticks *window.Hist[logRec]
	if th.HasExact(rec.fact.Turn) {
		ticks, _ = th.Get(rec.fact.Turn)
	} else {
		ticks = &window.Hist[logRec]{}
		th.Set(rec.fact.Turn, ticks)
	}
	ticks.Set(rec.fact.Tick, rec)
}

// removeExact deletes the record at exactly the given coordinate.
func (fl *factLog) removeExact(at timeline.Coord) (logRec, bool) {
	th, ok := fl.byBranch[at.Branch]
	if !ok || !th.HasExact(at.Turn) {
		return logRec{}, false
	}
	ticks, _ := th.Get(at.Turn)
	if !ticks.HasExact(at.Tick) {
		return logRec{}, false
	}
	rec, _ := ticks.Get(at.Tick)
	ticks.DeleteExact(at.Tick)
	if ticks.Empty() {
		th.DeleteExact(at.Turn)
	}
	return rec, true
}

// all yields every record in one branch in ascending time order.
func (fl *factLog) all(branch string) iter.Seq[logRec] {
	return func(yield func(logRec) bool) {
		th, ok := fl.byBranch[branch]
		if !ok {
			return
		}
		for _, ticks := range th.All() {
			for _, rec := range ticks.All() {
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// between yields the records in one branch with from < t <= to, in
// ascending time order. The starting coordinate is excluded because deltas
// are changes: what happened after the moment you were last looking.
func (fl *factLog) between(branch string, from, to timeline.Time) iter.Seq[logRec] {
	return func(yield func(logRec) bool) {
		th, ok := fl.byBranch[branch]
		if !ok {
			return
		}
		for turn, ticks := range th.All() {
			if turn < from.Turn || turn > to.Turn {
				continue
			}
			for tick, rec := range ticks.All() {
				t := timeline.Time{Turn: turn, Tick: tick}
				if !t.After(from) {
					continue
				}
				if t.After(to) {
					return
				}
				if !yield(rec) {
					return
				}
			}
		}
	}
}

// latest returns the time of the newest record in a branch.
func (fl *factLog) latest(branch string) (timeline.Time, bool) {
	th, ok := fl.byBranch[branch]
	if !ok || th.Empty() {
		return timeline.Time{}, false
	}
	turn, ticks, ok := th.Latest()
	if !ok {
		return timeline.Time{}, false
	}
	tick, _, ok := ticks.Latest()
	if !ok {
		return timeline.Time{}, false
	}
	return timeline.Time{Turn: turn, Tick: tick}, true
}

// after collects the coordinates of every record strictly after t in a
// branch. Paradox resolution retracts exactly these when a non-plan write
// lands in the past.
func (fl *factLog) after(branch string, t timeline.Time) []timeline.Coord {
	var out []timeline.Coord
	th, ok := fl.byBranch[branch]
	if !ok {
		return nil
	}
	for turn, ticks := range th.All() {
		if turn < t.Turn {
			continue
		}
		for tick := range ticks.All() {
			at := timeline.Time{Turn: turn, Tick: tick}
			if !at.After(t) {
				continue
			}
			out = append(out, timeline.Coord{Branch: branch, Time: at})
		}
	}
	return out
}
