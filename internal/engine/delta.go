package engine

import (
	"fmt"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

// deltaFold accumulates one variable's net change across a window: the old
// value comes from the first fact touching it, the new value from the last.
type deltaFold struct {
	oldVal     wire.Value
	oldSet     bool
	oldDeleted bool
	newVal     wire.Value
	newDeleted bool
}

// Delta computes the net change between two coordinates in one branch,
// always from the fact log. When from precedes to the walk runs forward;
// when to precedes from the same window is folded and then inverted, so
// a backward delta is exactly what undoes the forward one.
func (e *Engine) Delta(branch string, from, to timeline.Time) (*wire.Delta, error) {
	if !e.branches.Exists(branch) {
		return nil, fmt.Errorf("delta in %q: %w", branch, timeline.ErrNoSuchBranch)
	}
	backward := to.Before(from)
	lo, hi := from, to
	if backward {
		lo, hi = to, from
	}

	folds := make(map[statKey]*deltaFold)
	var order []statKey
	for rec := range e.facts.between(branch, lo, hi) {
		sk := statKey{ref: rec.fact.Ref, key: rec.fact.Key}
		f, ok := folds[sk]
		if !ok {
			f = &deltaFold{
				oldVal:     rec.old,
				oldSet:     rec.oldSet,
				oldDeleted: rec.oldDeleted,
			}
			folds[sk] = f
			order = append(order, sk)
		}
		f.newVal = rec.fact.Value
		f.newDeleted = rec.fact.Deleted
	}

	d := &wire.Delta{
		Branch:   branch,
		FromTurn: from.Turn, FromTick: from.Tick,
		ToTurn: to.Turn, ToTick: to.Tick,
	}
	for _, sk := range order {
		f := folds[sk]
		oldVal, oldDeleted := f.oldVal, f.oldDeleted
		newVal, newDeleted := f.newVal, f.newDeleted
		if backward {
			oldVal, newVal = newVal, oldVal
			oldDeleted, newDeleted = newDeleted, oldDeleted
			// Backward to before-first-set: the change is a retraction.
			if !f.oldSet {
				newVal, newDeleted = nil, true
			}
		}
		// A window that lands back where it started is no change at all.
		if oldDeleted == newDeleted && wire.Equal(oldVal, newVal) {
			continue
		}
		applyChange(d, sk, oldVal, newVal, newDeleted)
	}
	return d, nil
}

// DeltaTurns computes a delta between the ends of two turns: each bound
// expands to the last tick recorded in that turn of the branch.
func (e *Engine) DeltaTurns(branch string, fromTurn, toTurn int64) (*wire.Delta, error) {
	from := timeline.Time{Turn: fromTurn, Tick: e.branches.TurnEnd(branch, fromTurn)}
	to := timeline.Time{Turn: toTurn, Tick: e.branches.TurnEnd(branch, toTurn)}
	return e.Delta(branch, from, to)
}

// applyChange routes one folded change into the delta's graph/node/edge
// shape. Existence facts become Exists flags; everything else is a stat.
func applyChange(d *wire.Delta, sk statKey, oldVal, newVal wire.Value, deleted bool) {
	gd := d.Graph(sk.ref.Graph)
	if sk.key == wire.ExistenceKey {
		exists := !deleted
		switch sk.ref.Domain {
		case wire.DomainGraph:
			gd.Exists = &exists
		case wire.DomainNode:
			gd.Node(sk.ref.Node).Exists = &exists
		case wire.DomainEdge:
			gd.Edge(sk.ref.Orig, sk.ref.Dest).Exists = &exists
		}
		return
	}
	ch := wire.StatChange{Old: oldVal, New: newVal, Deleted: deleted}
	switch sk.ref.Domain {
	case wire.DomainGraph:
		if gd.Stats == nil {
			gd.Stats = make(map[string]wire.StatChange)
		}
		gd.Stats[sk.key] = ch
	case wire.DomainNode:
		nd := gd.Node(sk.ref.Node)
		if nd.Stats == nil {
			nd.Stats = make(map[string]wire.StatChange)
		}
		nd.Stats[sk.key] = ch
	case wire.DomainEdge:
		ed := gd.Edge(sk.ref.Orig, sk.ref.Dest)
		if ed.Stats == nil {
			ed.Stats = make(map[string]wire.StatChange)
		}
		ed.Stats[sk.key] = ch
	}
}
