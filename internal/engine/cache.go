package engine

import (
	"fmt"
	"sort"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/window"
	"github.com/skeinworks/skein/internal/wire"
)

// cell is one recorded state of a variable: its value, or a tombstone.
type cell struct {
	val     wire.Value // nil iff deleted
	deleted bool
	factID  string
}

// statKey identifies one variable: a stat key within an entity's namespace.
type statKey struct {
	ref wire.EntityRef
	key string
}

// turnHist is the per-(branch, variable) two-level history: a window over
// turns whose values are windows over ticks. Both levels use the two-stack
// seek discipline, so sequential time movement is amortized O(1) at each
// granularity.
type turnHist = window.Hist[*window.Hist[cell]]

// cache is a point-in-time cache for one family of variables (graph stats,
// node existence, node stats, edge existence, or edge stats). It owns the
// historical values; entity views only reference them by key.
type cache struct {
	branches map[statKey]map[string]*turnHist

	// keysByRef tracks every stat key ever recorded for an entity, in any
	// branch. Live-key iteration resolves each through retrieval.
	keysByRef map[wire.EntityRef]map[string]struct{}
}

func newCache() *cache {
	return &cache{
		branches:  make(map[statKey]map[string]*turnHist),
		keysByRef: make(map[wire.EntityRef]map[string]struct{}),
	}
}

// hist returns the turn history for a variable in a branch, creating it on
// first use.
func (c *cache) hist(sk statKey, branch string) *turnHist {
	byBranch, ok := c.branches[sk]
	if !ok {
		byBranch = make(map[string]*turnHist)
		c.branches[sk] = byBranch
	}
	th, ok := byBranch[branch]
	if !ok {
		th = &turnHist{}
		byBranch[branch] = th
	}
	return th
}

// lookupHist returns the turn history only if one was ever recorded.
func (c *cache) lookupHist(sk statKey, branch string) (*turnHist, bool) {
	byBranch, ok := c.branches[sk]
	if !ok {
		return nil, false
	}
	th, ok := byBranch[branch]
	return th, ok
}

// localGet finds the latest cell recorded at or before t in one branch's
// local history, without any ancestry fallback. The time the cell was
// recorded at comes back alongside it.
func (c *cache) localGet(sk statKey, branch string, t timeline.Time) (cell, timeline.Time, bool) {
	th, ok := c.lookupHist(sk, branch)
	if !ok || th.Empty() {
		return cell{}, timeline.Time{}, false
	}
	turn, found := th.RevBefore(t.Turn)
	if !found {
		return cell{}, timeline.Time{}, false
	}
	ticks, _ := th.Get(turn)
	if turn == t.Turn {
		// Same turn: only ticks at or before the target count. If the
		// whole turn is later than the target tick, fall back to the
		// previous recorded turn.
		if tick, ok := ticks.RevBefore(t.Tick); ok {
			cl, _ := ticks.Get(tick)
			return cl, timeline.Time{Turn: turn, Tick: tick}, true
		}
		prevTurn, ok := th.RevBefore(t.Turn - 1)
		if !ok {
			return cell{}, timeline.Time{}, false
		}
		turn = prevTurn
		ticks, _ = th.Get(turn)
	}
	tick, cl, ok := ticks.Latest()
	if !ok {
		return cell{}, timeline.Time{}, false
	}
	return cl, timeline.Time{Turn: turn, Tick: tick}, true
}

// record stores a cell at an exact coordinate. When strict is true (plan
// mode) a write at or before already-recorded history fails with
// window.ErrOutOfOrder; otherwise writes into the past are permitted and
// simply take their place in order (the caller handles paradox truncation
// before recording).
func (c *cache) record(sk statKey, at timeline.Coord, cl cell, strict bool) error {
	th := c.hist(sk, at.Branch)
	var ticks *window.Hist[cell]
	if th.HasExact(at.Turn) {
		if strict {
			// SetStrict on the tick level only sees this turn; history
			// recorded in later turns must also block the write.
			if _, ok := th.RevAfter(at.Turn); ok {
				return fmt.Errorf("set at turn %d: %w", at.Turn, window.ErrOutOfOrder)
			}
		}
		ticks, _ = th.Get(at.Turn)
	} else {
		ticks = &window.Hist[cell]{}
		if strict {
			if err := th.SetStrict(at.Turn, ticks); err != nil {
				return err
			}
		} else {
			th.Set(at.Turn, ticks)
		}
	}
	var err error
	if strict {
		err = ticks.SetStrict(at.Tick, cl)
	} else {
		ticks.Set(at.Tick, cl)
	}
	if err != nil {
		return err
	}

	keys, ok := c.keysByRef[sk.ref]
	if !ok {
		keys = make(map[string]struct{})
		c.keysByRef[sk.ref] = keys
	}
	keys[sk.key] = struct{}{}
	return nil
}

// removeExact deletes the cell recorded at exactly the given coordinate,
// reporting whether one existed. Plan retraction uses this.
func (c *cache) removeExact(sk statKey, at timeline.Coord) bool {
	th, ok := c.lookupHist(sk, at.Branch)
	if !ok || !th.HasExact(at.Turn) {
		return false
	}
	ticks, _ := th.Get(at.Turn)
	if !ticks.DeleteExact(at.Tick) {
		return false
	}
	if ticks.Empty() {
		th.DeleteExact(at.Turn)
	}
	return true
}

// truncate discards the variable's local history strictly after t in one
// branch: the paradox rule for writes into the past.
func (c *cache) truncate(sk statKey, branch string, t timeline.Time) {
	th, ok := c.lookupHist(sk, branch)
	if !ok {
		return
	}
	th.Truncate(t.Turn)
	if th.HasExact(t.Turn) {
		ticks, _ := th.Get(t.Turn)
		ticks.Truncate(t.Tick)
		if ticks.Empty() {
			th.DeleteExact(t.Turn)
		}
	}
}

// keysFor returns every stat key ever recorded for an entity, sorted.
func (c *cache) keysFor(ref wire.EntityRef) []string {
	keys := c.keysByRef[ref]
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
