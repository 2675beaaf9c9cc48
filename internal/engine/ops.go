package engine

import (
	"fmt"
	"iter"
	"slices"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

// Entity lifecycle and stat operations. Existence is itself versioned
// state: creating or deleting an entity records a fact under the reserved
// existence key, so entity lifetimes branch and time-travel exactly like
// stat values do.

// AddGraph creates a graph at the cursor.
func (e *Engine) AddGraph(name string) error {
	ref := wire.GraphRef(name)
	if !ref.Valid() {
		return fmt.Errorf("add graph: invalid name %q", name)
	}
	if e.existsAt(ref, e.cursor) {
		return fmt.Errorf("add graph %q: %w", name, ErrEntityExists)
	}
	return e.write(ref, wire.ExistenceKey, wire.Bool(true), false)
}

// DelGraph tombstones a graph at the cursor. Its nodes, edges and stats
// stop resolving, but their history is untouched: a branch forked before
// the deletion still sees everything.
func (e *Engine) DelGraph(name string) error {
	ref := wire.GraphRef(name)
	if !e.existsAt(ref, e.cursor) {
		return fmt.Errorf("del graph %q: %w", name, ErrNoSuchEntity)
	}
	return e.write(ref, wire.ExistenceKey, nil, true)
}

// HasGraph reports whether a graph exists at the cursor.
func (e *Engine) HasGraph(name string) bool {
	return e.existsAt(wire.GraphRef(name), e.cursor)
}

// AddNode creates a node in a graph at the cursor.
func (e *Engine) AddNode(graph, node string) error {
	if !e.existsAt(wire.GraphRef(graph), e.cursor) {
		return fmt.Errorf("add node %s/%s: graph: %w", graph, node, ErrNoSuchEntity)
	}
	ref := wire.NodeRef(graph, node)
	if !ref.Valid() {
		return fmt.Errorf("add node: invalid name %q", node)
	}
	if e.existsAt(ref, e.cursor) {
		return fmt.Errorf("add node %s/%s: %w", graph, node, ErrEntityExists)
	}
	return e.write(ref, wire.ExistenceKey, wire.Bool(true), false)
}

// DelNode tombstones a node and every edge incident to it at the cursor.
// Edges cannot outlive their endpoints.
func (e *Engine) DelNode(graph, node string) error {
	ref := wire.NodeRef(graph, node)
	if !e.existsAt(ref, e.cursor) {
		return fmt.Errorf("del node %s/%s: %w", graph, node, ErrNoSuchEntity)
	}
	for _, dest := range e.Successors(graph, node) {
		if err := e.DelEdge(graph, node, dest); err != nil {
			return fmt.Errorf("del node %s/%s: %w", graph, node, err)
		}
	}
	for _, orig := range e.Predecessors(graph, node) {
		if err := e.DelEdge(graph, orig, node); err != nil {
			return fmt.Errorf("del node %s/%s: %w", graph, node, err)
		}
	}
	return e.write(ref, wire.ExistenceKey, nil, true)
}

// HasNode reports whether a node exists at the cursor.
func (e *Engine) HasNode(graph, node string) bool {
	return e.existsAt(wire.NodeRef(graph, node), e.cursor)
}

// AddEdge creates a directed edge at the cursor. Both endpoints must exist.
func (e *Engine) AddEdge(graph, orig, dest string) error {
	if !e.existsAt(wire.NodeRef(graph, orig), e.cursor) {
		return fmt.Errorf("add edge %s/%s->%s: origin: %w", graph, orig, dest, ErrNoSuchEntity)
	}
	if !e.existsAt(wire.NodeRef(graph, dest), e.cursor) {
		return fmt.Errorf("add edge %s/%s->%s: destination: %w", graph, orig, dest, ErrNoSuchEntity)
	}
	ref := wire.EdgeRef(graph, orig, dest)
	if e.existsAt(ref, e.cursor) {
		return fmt.Errorf("add edge %s/%s->%s: %w", graph, orig, dest, ErrEntityExists)
	}
	return e.write(ref, wire.ExistenceKey, wire.Bool(true), false)
}

// DelEdge tombstones an edge at the cursor.
func (e *Engine) DelEdge(graph, orig, dest string) error {
	ref := wire.EdgeRef(graph, orig, dest)
	if !e.existsAt(ref, e.cursor) {
		return fmt.Errorf("del edge %s/%s->%s: %w", graph, orig, dest, ErrNoSuchEntity)
	}
	return e.write(ref, wire.ExistenceKey, nil, true)
}

// HasEdge reports whether an edge exists at the cursor.
func (e *Engine) HasEdge(graph, orig, dest string) bool {
	return e.existsAt(wire.EdgeRef(graph, orig, dest), e.cursor)
}

// SetStat sets a stat value on an entity at the cursor. Setting a stat to
// the value it already holds still records a fact: the log mirrors the
// call sequence, not the state diff.
func (e *Engine) SetStat(ref wire.EntityRef, key string, val wire.Value) error {
	if key == wire.ExistenceKey {
		return fmt.Errorf("set stat %s[%s]: key is reserved", ref, key)
	}
	if val == nil {
		return fmt.Errorf("set stat %s[%s]: nil value (use DelStat)", ref, key)
	}
	if !e.existsAt(ref, e.cursor) {
		return fmt.Errorf("set stat %s[%s]: %w", ref, key, ErrNoSuchEntity)
	}
	return e.write(ref, key, val, false)
}

// DelStat tombstones a stat at the cursor. A deleted stat reads as
// ErrDeleted, which is distinct from a stat that was never set.
func (e *Engine) DelStat(ref wire.EntityRef, key string) error {
	if key == wire.ExistenceKey {
		return fmt.Errorf("del stat %s[%s]: key is reserved", ref, key)
	}
	if !e.existsAt(ref, e.cursor) {
		return fmt.Errorf("del stat %s[%s]: %w", ref, key, ErrNoSuchEntity)
	}
	return e.write(ref, key, nil, true)
}

// GetStat resolves a stat at the cursor.
func (e *Engine) GetStat(ref wire.EntityRef, key string) (wire.Value, error) {
	return e.GetStatAt(ref, key, e.cursor)
}

// GetStatAt resolves a stat at an arbitrary coordinate, without moving
// the cursor.
func (e *Engine) GetStatAt(ref wire.EntityRef, key string, at timeline.Coord) (wire.Value, error) {
	if !e.branches.Exists(at.Branch) {
		return nil, fmt.Errorf("get stat %s[%s]: %w", ref, key, timeline.ErrNoSuchBranch)
	}
	if !e.existsAt(ref, at) {
		return nil, fmt.Errorf("get stat %s[%s] at %s: %w", ref, key, at, ErrNoSuchEntity)
	}
	c := e.cacheFor(ref, key)
	v, err := e.retrieve(c, statKey{ref: ref, key: key}, at)
	if err != nil {
		return nil, fmt.Errorf("get stat %s[%s] at %s: %w", ref, key, at, err)
	}
	return v, nil
}

// Keys returns the stat keys that resolve to a live value on an entity at
// the cursor, sorted. Deleted and never-set keys are excluded.
func (e *Engine) Keys(ref wire.EntityRef) []string {
	return e.KeysAt(ref, e.cursor)
}

// KeysAt is Keys at an arbitrary coordinate.
func (e *Engine) KeysAt(ref wire.EntityRef, at timeline.Coord) []string {
	if !e.existsAt(ref, at) {
		return nil
	}
	var live []string
	for _, key := range e.statKeysEver(ref, at) {
		if _, err := e.GetStatAt(ref, key, at); err == nil {
			live = append(live, key)
		}
	}
	return live
}

// statKeysEver returns every stat key that could resolve for an entity at
// a coordinate, sorted: keys recorded in this engine's lifetime plus keys
// (live or tombstoned) carried by the nearest keyframe on the ancestry
// walk, which may predate the installed facts.
func (e *Engine) statKeysEver(ref wire.EntityRef, at timeline.Coord) []string {
	c := e.cacheFor(ref, "")
	seen := make(map[string]struct{})
	for _, key := range c.keysFor(ref) {
		seen[key] = struct{}{}
	}
	for anc := range e.branches.WalkAncestry(at) {
		kf, found := e.keyframes.nearest(anc.Branch, anc.Time)
		if !found {
			continue
		}
		if gs, ok := kf.Snap.Graphs[ref.Graph]; ok {
			var (
				m     wire.Map
				tombs wire.Tombs
			)
			switch ref.Domain {
			case wire.DomainGraph:
				m, tombs = gs.Stats, gs.StatTombs
			case wire.DomainNode:
				m, tombs = gs.Nodes[ref.Node], gs.NodeTombs[ref.Node]
			case wire.DomainEdge:
				m, tombs = gs.Edges[ref.Orig][ref.Dest], gs.EdgeTombs[ref.Orig][ref.Dest]
			}
			for k := range m {
				seen[k] = struct{}{}
			}
			for k := range tombs {
				seen[k] = struct{}{}
			}
		}
		break
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Successors returns the destinations of live edges out of a node at the
// cursor, sorted.
func (e *Engine) Successors(graph, node string) []string {
	var out []string
	for dest := range e.edgesSeen[graph][node] {
		if e.existsAt(wire.EdgeRef(graph, node, dest), e.cursor) {
			out = append(out, dest)
		}
	}
	slices.Sort(out)
	return out
}

// Predecessors returns the origins of live edges into a node at the
// cursor, sorted.
func (e *Engine) Predecessors(graph, node string) []string {
	var out []string
	for orig := range e.predsSeen[graph][node] {
		if e.existsAt(wire.EdgeRef(graph, orig, node), e.cursor) {
			out = append(out, orig)
		}
	}
	slices.Sort(out)
	return out
}

// GraphNames returns the graphs live at the cursor, sorted.
func (e *Engine) GraphNames() []string {
	var out []string
	for name := range e.graphsSeen {
		if e.existsAt(wire.GraphRef(name), e.cursor) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// NodeNames returns the nodes live in a graph at the cursor, sorted.
func (e *Engine) NodeNames(graph string) []string {
	var out []string
	for node := range e.nodesSeen[graph] {
		if e.existsAt(wire.NodeRef(graph, node), e.cursor) {
			out = append(out, node)
		}
	}
	slices.Sort(out)
	return out
}

// HistEntry is one recorded change of a variable, as yielded by History.
type HistEntry struct {
	At      timeline.Coord
	Value   wire.Value
	Deleted bool
}

// History yields every recorded change of a stat visible from a
// coordinate, oldest first: the full ancestry is walked root-down, each
// ancestor contributing its segment up to the descendant's divergence
// point, then the queried branch contributes its entire local history.
func (e *Engine) History(ref wire.EntityRef, key string, at timeline.Coord) iter.Seq[HistEntry] {
	c := e.cacheFor(ref, key)
	sk := statKey{ref: ref, key: key}
	var segments []timeline.Coord
	for anc := range e.branches.WalkAncestry(at) {
		segments = append(segments, anc)
	}
	slices.Reverse(segments)
	return func(yield func(HistEntry) bool) {
		for i, seg := range segments {
			last := i == len(segments)-1
			th, ok := c.lookupHist(sk, seg.Branch)
			if !ok {
				continue
			}
			for turn, ticks := range th.All() {
				for tick, cl := range ticks.All() {
					t := timeline.Time{Turn: turn, Tick: tick}
					if !last && seg.Time.Before(t) {
						break
					}
					entry := HistEntry{
						At:      timeline.Coord{Branch: seg.Branch, Time: t},
						Value:   cl.val,
						Deleted: cl.deleted,
					}
					if !yield(entry) {
						return
					}
				}
			}
		}
	}
}
