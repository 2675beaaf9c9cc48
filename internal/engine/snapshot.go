package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

// Snapshot resolves the full state at the cursor, records it as a keyframe
// and returns it.
func (e *Engine) Snapshot() (*Keyframe, error) {
	return e.SnapshotAt(e.cursor)
}

// SnapshotAt resolves the full state at an arbitrary coordinate, records it
// as a keyframe and returns it. The snapshot is built by resolving every
// entity and key through the normal retrieval path, so it is exactly what a
// reader at that coordinate would see. Rejected while a plan is open:
// planned facts are provisional and must never be baked into a keyframe.
func (e *Engine) SnapshotAt(at timeline.Coord) (*Keyframe, error) {
	if e.openPlan != nil {
		return nil, fmt.Errorf("snapshot at %s: %w", at, ErrPlanOpen)
	}
	snap, err := e.resolveState(at)
	if err != nil {
		return nil, fmt.Errorf("snapshot at %s: %w", at, err)
	}
	kf := &Keyframe{Branch: at.Branch, At: at.Time, Snap: snap}
	e.keyframes.put(kf)
	e.log.Debug("keyframe recorded", "at", at.String(), "graphs", len(snap.Graphs))
	return kf, nil
}

// resolveState builds a Snapshot of everything live at a coordinate.
func (e *Engine) resolveState(at timeline.Coord) (*wire.Snapshot, error) {
	snap := &wire.Snapshot{}
	for _, graph := range sortedKeys(e.graphsSeen) {
		if !e.existsAt(wire.GraphRef(graph), at) {
			continue
		}
		gs := snap.Graph(graph)
		if err := e.resolveStats(wire.GraphRef(graph), at, gs.Stats, gs.StatTombs); err != nil {
			return nil, err
		}
		for _, node := range sortedKeys(e.nodesSeen[graph]) {
			ref := wire.NodeRef(graph, node)
			if !e.existsAt(ref, at) {
				continue
			}
			stats, tombs := wire.Map{}, wire.Tombs{}
			if err := e.resolveStats(ref, at, stats, tombs); err != nil {
				return nil, err
			}
			gs.Nodes[node] = stats
			if len(tombs) > 0 {
				gs.NodeTombs[node] = tombs
			}
		}
		for _, orig := range sortedKeys(e.edgesSeen[graph]) {
			for _, dest := range sortedKeys(e.edgesSeen[graph][orig]) {
				ref := wire.EdgeRef(graph, orig, dest)
				if !e.existsAt(ref, at) {
					continue
				}
				stats, tombs := wire.Map{}, wire.Tombs{}
				if err := e.resolveStats(ref, at, stats, tombs); err != nil {
					return nil, err
				}
				dests, ok := gs.Edges[orig]
				if !ok {
					dests = make(map[string]wire.Map)
					gs.Edges[orig] = dests
				}
				dests[dest] = stats
				if len(tombs) > 0 {
					byDest, ok := gs.EdgeTombs[orig]
					if !ok {
						byDest = make(map[string]wire.Tombs)
						gs.EdgeTombs[orig] = byDest
					}
					byDest[dest] = tombs
				}
			}
		}
	}
	return snap, nil
}

// resolveStats classifies every stat key ever recorded for one entity at a
// coordinate: live values fill into, tombstoned keys fill tombs, never-set
// keys are skipped. Recording the tombstones keeps the deleted/never-set
// distinction intact when a keyframe terminates an ancestry walk.
func (e *Engine) resolveStats(ref wire.EntityRef, at timeline.Coord, into wire.Map, tombs wire.Tombs) error {
	c := e.cacheFor(ref, "")
	for _, key := range e.statKeysEver(ref, at) {
		switch v, err := e.retrieve(c, statKey{ref: ref, key: key}, at); {
		case err == nil:
			into[key] = v
		case errors.Is(err, ErrDeleted):
			tombs[key] = true
		case errors.Is(err, ErrNotSet):
			// never set at this coordinate
		default:
			return err
		}
	}
	return nil
}

// NearestKeyframe returns the latest keyframe at or before a time in a
// branch, without consulting ancestors.
func (e *Engine) NearestKeyframe(branch string, t timeline.Time) (*Keyframe, bool) {
	return e.keyframes.nearest(branch, t)
}

// DeleteKeyframe removes a keyframe. Every write is on the fact log, so any
// keyframe, the initial one included, is redundant here: deleting it
// changes the cost of lookups that used it as a shortcut, never the answer.
func (e *Engine) DeleteKeyframe(branch string, t timeline.Time) error {
	if !e.keyframes.delete(branch, t) {
		return fmt.Errorf("delete keyframe at %s@%s: none recorded", branch, t)
	}
	return nil
}

// Keyframes returns every recorded keyframe, branches in forest order.
func (e *Engine) Keyframes() []*Keyframe {
	return e.keyframes.all(e.branches.Names())
}

// LoadKeyframe installs an externally stored keyframe without resolving
// state, for replay from durable storage.
func (e *Engine) LoadKeyframe(kf *Keyframe) error {
	if !e.branches.Exists(kf.Branch) {
		return fmt.Errorf("load keyframe: %q: %w", kf.Branch, timeline.ErrNoSuchBranch)
	}
	e.keyframes.put(kf)
	return nil
}

// Facts returns one branch's facts in time order.
func (e *Engine) Facts(branch string) []wire.Fact {
	var out []wire.Fact
	for rec := range e.facts.all(branch) {
		out = append(out, rec.fact)
	}
	return out
}

// AllFacts returns every fact, branches in forest order (parents before
// children), time ascending within each branch. Replaying this sequence
// into a fresh engine rebuilds identical state.
func (e *Engine) AllFacts() []wire.Fact {
	var out []wire.Fact
	for _, branch := range e.branches.Names() {
		out = append(out, e.Facts(branch)...)
	}
	return out
}

// BranchDef describes one branch for load and flush: its parent and
// divergence point, or a root.
type BranchDef struct {
	Name   string
	Parent string
	Turn   int64
	Tick   int64
	IsRoot bool
}

// BranchDefs describes the branch forest, parents before children.
func (e *Engine) BranchDefs() []BranchDef {
	var out []BranchDef
	for _, name := range e.branches.Names() {
		parent, err := e.branches.Parent(name)
		if err != nil {
			out = append(out, BranchDef{Name: name, IsRoot: true})
			continue
		}
		at, _ := e.branches.DivergencePoint(name)
		out = append(out, BranchDef{Name: name, Parent: parent, Turn: at.Turn, Tick: at.Tick})
	}
	return out
}

// Load replays externally stored history into the engine: branch
// definitions first (any order; they are sorted into forest order), then
// every fact in time order per branch, then keyframes. The fact log alone
// is sufficient; keyframes may be omitted entirely.
//
// Facts are verified against their content-addressed IDs as they are
// replayed; a mismatch means the stored history was tampered with or
// corrupted, and aborts the load.
func (e *Engine) Load(branches []BranchDef, facts []wire.Fact, keyframes []*Keyframe) error {
	for _, def := range e.sortBranchDefs(branches) {
		if def.IsRoot {
			if def.Name == timeline.Trunk {
				continue
			}
			if err := e.branches.CreateRoot(def.Name); err != nil {
				return fmt.Errorf("load branch %q: %w", def.Name, err)
			}
			continue
		}
		at := timeline.Time{Turn: def.Turn, Tick: def.Tick}
		if err := e.branches.Create(def.Name, def.Parent, at); err != nil {
			return fmt.Errorf("load branch %q: %w", def.Name, err)
		}
	}

	byBranch := make(map[string][]wire.Fact)
	for _, f := range facts {
		byBranch[f.Branch] = append(byBranch[f.Branch], f)
	}
	for _, branch := range e.branches.Names() {
		group := byBranch[branch]
		slices.SortFunc(group, func(a, b wire.Fact) int {
			at := timeline.Time{Turn: a.Turn, Tick: a.Tick}
			bt := timeline.Time{Turn: b.Turn, Tick: b.Tick}
			return at.Compare(bt)
		})
		for _, f := range group {
			if err := e.replayFact(f); err != nil {
				return err
			}
		}
		delete(byBranch, branch)
	}
	for branch := range byBranch {
		return fmt.Errorf("load facts: %q: %w", branch, timeline.ErrNoSuchBranch)
	}

	for _, kf := range keyframes {
		if err := e.LoadKeyframe(kf); err != nil {
			return err
		}
	}
	return nil
}

// sortBranchDefs orders definitions parents-first.
func (e *Engine) sortBranchDefs(defs []BranchDef) []BranchDef {
	byName := make(map[string]BranchDef, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	var out []BranchDef
	var emit func(name string)
	emitted := make(map[string]struct{})
	emit = func(name string) {
		if _, done := emitted[name]; done {
			return
		}
		def, ok := byName[name]
		if !ok {
			// Parent not in this load set; it must already exist.
			emitted[name] = struct{}{}
			return
		}
		if !def.IsRoot {
			emit(def.Parent)
		}
		emitted[name] = struct{}{}
		out = append(out, def)
	}
	for _, def := range defs {
		emit(def.Name)
	}
	return out
}

// replayFact installs one stored fact: the cache entry, the log record
// with its resolved prior value, and the bookkeeping a live write does.
func (e *Engine) replayFact(f wire.Fact) error {
	c := e.cacheFor(f.Ref, f.Key)
	if c == nil {
		return fmt.Errorf("replay fact %s: invalid entity domain %q", f.ID, f.Ref.Domain)
	}
	check := f
	if err := check.Identify(); err != nil {
		return fmt.Errorf("replay fact: %w", err)
	}
	if check.ID != f.ID {
		return &CorruptionError{
			Op: "replay", Ref: f.Ref, Key: f.Key,
			At:     timeline.Coord{Branch: f.Branch, Time: timeline.Time{Turn: f.Turn, Tick: f.Tick}},
			Detail: fmt.Sprintf("stored fact ID %s does not match content hash %s", f.ID, check.ID),
		}
	}

	sk := statKey{ref: f.Ref, key: f.Key}
	at := timeline.Coord{Branch: f.Branch, Time: timeline.Time{Turn: f.Turn, Tick: f.Tick}}

	rec := logRec{fact: f}
	switch v, err := e.retrieve(c, sk, at); {
	case err == nil:
		rec.old, rec.oldSet = v, true
	case errors.Is(err, ErrDeleted):
		rec.oldSet, rec.oldDeleted = true, true
	case errors.Is(err, ErrNotSet):
		// never set before this fact
	default:
		return err
	}

	if err := c.record(sk, at, cell{val: f.Value, deleted: f.Deleted, factID: f.ID}, false); err != nil {
		return fmt.Errorf("replay fact %s: %w", f.ID, err)
	}
	e.facts.append(rec)
	if err := e.branches.NoteWrite(f.Branch, at.Time); err != nil {
		return fmt.Errorf("replay fact %s: %w", f.ID, err)
	}
	e.noteEntity(f.Ref)
	if f.PlanID != "" {
		e.plans[f.PlanID] = append(e.plans[f.PlanID], at)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
