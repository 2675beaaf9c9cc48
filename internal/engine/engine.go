package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/window"
	"github.com/skeinworks/skein/internal/wire"
)

// Engine is the single-writer, branch-aware, time-indexed graph store.
//
// All mutation happens at the engine's time cursor (or at a plan's scoped
// cursor). Callers must serialize writes: one background goroutine per
// engine is the expected deployment. Reads are safe concurrently only while
// no mutation is in progress: retrieval seeks the two-stack caches, which
// mutates their internal layout.
//
// INVARIANTS:
//   - The fact log and the caches describe the same history at all times.
//     A detected disagreement is a CorruptionError and aborts the operation.
//   - Every fact's ID is its content-addressed hash; re-recording an
//     identical fact is harmless everywhere downstream.
//   - Keyframes are derived. Deleting any non-initial keyframe never
//     changes an answer.
type Engine struct {
	log      *slog.Logger
	branches *timeline.Branches
	cursor   timeline.Coord
	ticker   *timeline.Ticker // allocates cursor ticks; mirrors cursor.Tick

	// One point-in-time cache per variable family.
	graphs   *cache // graph existence
	graphVal *cache // graph stats
	nodes    *cache // node existence
	nodeVal  *cache // node stats
	edges    *cache // edge existence
	edgeVal  *cache // edge stats

	keyframes *keyframeStore
	facts     *factLog

	openPlan *Plan
	plans    map[string][]timeline.Coord

	kfInterval int64

	// Entity indexes: everything ever referenced, in any branch.
	// Existence at a particular time is resolved through the caches.
	graphsSeen map[string]struct{}
	nodesSeen  map[string]map[string]struct{}            // graph -> nodes
	edgesSeen  map[string]map[string]map[string]struct{} // graph -> orig -> dests
	predsSeen  map[string]map[string]map[string]struct{} // graph -> dest -> origs
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithKeyframeInterval makes AdvanceTurn take an automatic keyframe every n
// turns. Zero (the default) disables automatic keyframes; the store then
// relies on explicit Snapshot calls and pays an unbounded fallback walk.
func WithKeyframeInterval(n int64) Option {
	return func(e *Engine) { e.kfInterval = n }
}

// New creates an engine with a trunk branch and the cursor at
// (trunk, 0, 0).
func New(opts ...Option) *Engine {
	e := &Engine{
		log:        slog.Default(),
		branches:   timeline.NewBranches(),
		cursor:     timeline.Coord{Branch: timeline.Trunk},
		ticker:     timeline.NewTicker(),
		graphs:     newCache(),
		graphVal:   newCache(),
		nodes:      newCache(),
		nodeVal:    newCache(),
		edges:      newCache(),
		edgeVal:    newCache(),
		keyframes:  newKeyframeStore(),
		facts:      newFactLog(),
		plans:      make(map[string][]timeline.Coord),
		graphsSeen: make(map[string]struct{}),
		nodesSeen:  make(map[string]map[string]struct{}),
		edgesSeen:  make(map[string]map[string]map[string]struct{}),
		predsSeen:  make(map[string]map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Branches exposes the branch forest for read-only inspection.
func (e *Engine) Branches() *timeline.Branches { return e.branches }

// CurrentTime returns the cursor position. Inside a plan this is the
// plan's scoped position; it snaps back when the plan ends.
func (e *Engine) CurrentTime() timeline.Coord { return e.cursor }

// SetTime moves the cursor to an arbitrary coordinate in a known branch.
// Inside a plan the cursor may only move forward in the same branch.
func (e *Engine) SetTime(c timeline.Coord) error {
	if !e.branches.Exists(c.Branch) {
		return fmt.Errorf("set time to %s: %w", c, timeline.ErrNoSuchBranch)
	}
	if c.Turn < 0 || c.Tick < 0 {
		return fmt.Errorf("set time to %s: negative coordinate", c)
	}
	if e.openPlan != nil {
		if c.Branch != e.cursor.Branch {
			return fmt.Errorf("set time to %s: branch change inside plan: %w", c, ErrPlanOpen)
		}
		if c.Time.Before(e.cursor.Time) {
			return fmt.Errorf("set time to %s: %w", c, ErrPastWrite)
		}
	}
	e.cursor = c
	e.ticker.Reset(c.Tick)
	return nil
}

// AdvanceTurn moves the cursor to the next turn with the tick reset,
// returning the new position. Control returns to the caller (normally the
// rule scheduler) before any further writes are accepted as the new turn's
// facts. Automatic keyframes, when configured, are taken here, but not
// inside a plan, whose facts are provisional.
func (e *Engine) AdvanceTurn() (timeline.Coord, error) {
	e.cursor.Turn++
	e.cursor.Tick = 0
	e.ticker.Reset(0)
	if e.openPlan == nil && e.kfInterval > 0 && e.cursor.Turn%e.kfInterval == 0 {
		if _, err := e.Snapshot(); err != nil {
			return e.cursor, fmt.Errorf("advance turn: automatic keyframe: %w", err)
		}
	}
	e.log.Debug("turn advanced", "at", e.cursor.String())
	return e.cursor, nil
}

// Tick advances the cursor to the next tick without recording a fact,
// leaving a gap in the sequence. Callers use it to group the writes of one
// sub-turn step under distinct coordinates.
func (e *Engine) Tick() timeline.Coord {
	e.cursor.Tick = e.ticker.Next()
	return e.cursor
}

// CreateBranch forks a new branch off the cursor's branch at the cursor's
// position and moves the cursor into it.
func (e *Engine) CreateBranch(name string) error {
	return e.CreateBranchAt(name, e.cursor.Branch, e.cursor.Time)
}

// CreateBranchAt forks a new branch off parent at an explicit divergence
// point and moves the cursor into it. Rejected synchronously, before any
// mutation, when the name is taken or the divergence precedes the parent's
// own history.
func (e *Engine) CreateBranchAt(name, parent string, at timeline.Time) error {
	if e.openPlan != nil {
		return fmt.Errorf("create branch %q: %w", name, ErrPlanOpen)
	}
	if err := e.branches.Create(name, parent, at); err != nil {
		return err
	}
	e.cursor = timeline.Coord{Branch: name, Time: at}
	e.ticker.Reset(at.Tick)
	e.log.Info("branch created", "branch", name, "parent", parent, "at", at.String())
	return nil
}

// SwitchBranch moves the cursor into an existing branch, at that branch's
// divergence point.
func (e *Engine) SwitchBranch(name string) error {
	if !e.branches.Exists(name) {
		return fmt.Errorf("switch branch: %q: %w", name, timeline.ErrNoSuchBranch)
	}
	at, _ := e.branches.DivergencePoint(name)
	e.cursor = timeline.Coord{Branch: name, Time: at}
	e.ticker.Reset(at.Tick)
	return nil
}

// cacheFor routes a variable to the cache that owns it. Existence lives in
// its own family per entity domain so that key iteration over stats never
// sees the reserved key.
func (e *Engine) cacheFor(ref wire.EntityRef, key string) *cache {
	existence := key == wire.ExistenceKey
	switch ref.Domain {
	case wire.DomainGraph:
		if existence {
			return e.graphs
		}
		return e.graphVal
	case wire.DomainNode:
		if existence {
			return e.nodes
		}
		return e.nodeVal
	case wire.DomainEdge:
		if existence {
			return e.edges
		}
		return e.edgeVal
	default:
		return nil
	}
}

// retrieve resolves a variable at a coordinate: the core point-in-time
// lookup. It checks the branch's local history, then the nearest keyframe,
// then falls back through the branch ancestry. Facts always win over
// keyframes; a keyframe that explicitly lacks the key terminates the walk
// with "unset", because the keyframe already embodies everything older.
func (e *Engine) retrieve(c *cache, sk statKey, at timeline.Coord) (wire.Value, error) {
	for anc := range e.branches.WalkAncestry(at) {
		cl, _, ok := c.localGet(sk, anc.Branch, anc.Time)
		if ok {
			if cl.deleted {
				return nil, ErrDeleted
			}
			return cl.val, nil
		}
		if kf, found := e.keyframes.nearest(anc.Branch, anc.Time); found {
			v, deleted, present := kf.Snap.Lookup(sk.ref, sk.key)
			if deleted {
				return nil, ErrDeleted
			}
			if !present {
				return nil, ErrNotSet
			}
			return v, nil
		}
	}
	return nil, ErrNotSet
}

// existsAt reports whether an entity exists at a coordinate: its existence
// fact at or before the time, walking ancestry, is "created" and not
// subsequently tombstoned.
func (e *Engine) existsAt(ref wire.EntityRef, at timeline.Coord) bool {
	c := e.cacheFor(ref, wire.ExistenceKey)
	v, err := e.retrieve(c, statKey{ref: ref, key: wire.ExistenceKey}, at)
	if err != nil {
		return false
	}
	b, ok := v.(wire.Bool)
	return ok && bool(b)
}

// write records one fact at the cursor and inserts it into the owning
// cache. This is the single funnel every mutation goes through.
//
// Unchanged writes are recorded like any other (the uniform policy): replay
// and deltas mirror the call sequence exactly, at the cost of slightly
// larger logs.
func (e *Engine) write(ref wire.EntityRef, key string, val wire.Value, deleted bool) error {
	c := e.cacheFor(ref, key)
	if c == nil {
		return fmt.Errorf("write %s[%s]: invalid entity domain %q", ref, key, ref.Domain)
	}
	sk := statKey{ref: ref, key: key}
	at := e.cursor

	// Resolve the outgoing value first; the delta engine reports (old, new)
	// straight from the log.
	var (
		old        wire.Value
		oldSet     bool
		oldDeleted bool
	)
	switch v, err := e.retrieve(c, sk, at); {
	case err == nil:
		old, oldSet = v, true
	case errors.Is(err, ErrDeleted):
		oldSet, oldDeleted = true, true
	case errors.Is(err, ErrNotSet):
		// never set: zero values stand
	default:
		return err
	}

	fact := wire.Fact{
		Ref:     ref,
		Key:     key,
		Branch:  at.Branch,
		Turn:    at.Turn,
		Tick:    at.Tick,
		Value:   val,
		Deleted: deleted,
	}
	if e.openPlan != nil {
		fact.PlanID = e.openPlan.ID
	}
	if err := fact.Identify(); err != nil {
		return fmt.Errorf("write %s[%s]: %w", ref, key, err)
	}

	strict := e.openPlan != nil
	if !strict {
		if end, ok := e.branches.End(at.Branch); ok && at.Time.Before(end) {
			if err := e.retractFuture(at); err != nil {
				return err
			}
		}
	}

	if err := c.record(sk, at, cell{val: val, deleted: deleted, factID: fact.ID}, strict); err != nil {
		if errors.Is(err, window.ErrOutOfOrder) {
			return fmt.Errorf("write %s[%s] at %s: %w", ref, key, at, ErrPastWrite)
		}
		return fmt.Errorf("write %s[%s]: %w", ref, key, err)
	}
	e.facts.append(logRec{fact: fact, old: old, oldSet: oldSet, oldDeleted: oldDeleted})
	if err := e.branches.NoteWrite(at.Branch, at.Time); err != nil {
		return fmt.Errorf("write %s[%s]: %w", ref, key, err)
	}
	e.noteEntity(ref)

	if e.openPlan != nil {
		e.openPlan.coords = append(e.openPlan.coords, at)
		e.plans[e.openPlan.ID] = e.openPlan.coords
	}

	e.cursor.Tick = e.ticker.Next()
	e.log.Debug("fact recorded",
		"ref", ref.String(), "key", key, "at", at.String(),
		"deleted", deleted, "plan", fact.PlanID)
	return nil
}

// retractFuture erases the branch's recorded future strictly after the
// write time: the paradox rule. A write into the past invalidates every
// fact that was derived from the old timeline, so all of them leave the
// log and the caches together, keyframes covering the erased span (in this
// branch and in any fork that inherited it) are dropped, and the branch end
// is recomputed from what remains.
func (e *Engine) retractFuture(at timeline.Coord) error {
	for _, coord := range e.facts.after(at.Branch, at.Time) {
		rec, ok := e.facts.removeExact(coord)
		if !ok {
			return &CorruptionError{Op: "retract future", At: coord,
				Detail: "fact listed in log index but missing on removal"}
		}
		sk := statKey{ref: rec.fact.Ref, key: rec.fact.Key}
		c := e.cacheFor(rec.fact.Ref, rec.fact.Key)
		if !c.removeExact(sk, coord) {
			return &CorruptionError{Op: "retract future", Ref: sk.ref, Key: sk.key, At: coord,
				Detail: "fact present in log but absent from cache"}
		}
		if rec.fact.PlanID != "" {
			e.dropPlanCoord(rec.fact.PlanID, coord)
		}
	}
	e.dropKeyframes(at.Branch, at.Time)
	end, hasEnd := e.facts.latest(at.Branch)
	if err := e.branches.ResetEnd(at.Branch, end, hasEnd); err != nil {
		return err
	}
	return nil
}

// dropKeyframes removes keyframes at or after t in a branch, and in every
// descendant fork whose divergence point can still see the erased span.
// A keyframe covering retracted history would otherwise keep answering for
// facts that no longer exist.
func (e *Engine) dropKeyframes(branch string, t timeline.Time) {
	e.keyframes.truncate(branch, t)
	for _, child := range e.branches.Children(branch) {
		if div, _ := e.branches.DivergencePoint(child); div.Before(t) {
			continue
		}
		e.dropKeyframes(child, t)
	}
}

// noteEntity folds a ref into the entity indexes.
func (e *Engine) noteEntity(ref wire.EntityRef) {
	e.graphsSeen[ref.Graph] = struct{}{}
	switch ref.Domain {
	case wire.DomainNode:
		nodes, ok := e.nodesSeen[ref.Graph]
		if !ok {
			nodes = make(map[string]struct{})
			e.nodesSeen[ref.Graph] = nodes
		}
		nodes[ref.Node] = struct{}{}
	case wire.DomainEdge:
		origs, ok := e.edgesSeen[ref.Graph]
		if !ok {
			origs = make(map[string]map[string]struct{})
			e.edgesSeen[ref.Graph] = origs
		}
		dests, ok := origs[ref.Orig]
		if !ok {
			dests = make(map[string]struct{})
			origs[ref.Orig] = dests
		}
		dests[ref.Dest] = struct{}{}

		preds, ok := e.predsSeen[ref.Graph]
		if !ok {
			preds = make(map[string]map[string]struct{})
			e.predsSeen[ref.Graph] = preds
		}
		byDest, ok := preds[ref.Dest]
		if !ok {
			byDest = make(map[string]struct{})
			preds[ref.Dest] = byDest
		}
		byDest[ref.Orig] = struct{}{}
	}
}
