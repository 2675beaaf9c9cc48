package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeinworks/skein/internal/engine"
	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

// applyDelta replays a delta onto a snapshot, the way a remote client
// maintains its mirror of the world.
func applyDelta(snap *wire.Snapshot, d *wire.Delta) {
	for name, gd := range d.Graphs {
		if gd.Exists != nil && !*gd.Exists {
			delete(snap.Graphs, name)
			continue
		}
		gs := snap.Graph(name)
		applyStats(gs.Stats, gd.Stats)
		for node, nd := range gd.Nodes {
			if nd.Exists != nil && !*nd.Exists {
				delete(gs.Nodes, node)
				continue
			}
			stats, ok := gs.Nodes[node]
			if !ok {
				// Stat retractions on an entity this mirror never had are
				// no-ops; they must not conjure the entity up.
				if onlyDeletes(nd.Stats) && nd.Exists == nil {
					continue
				}
				stats = wire.Map{}
				gs.Nodes[node] = stats
			}
			applyStats(stats, nd.Stats)
		}
		for orig, dests := range gd.Edges {
			for dest, ed := range dests {
				if ed.Exists != nil && !*ed.Exists {
					delete(gs.Edges[orig], dest)
					if len(gs.Edges[orig]) == 0 {
						delete(gs.Edges, orig)
					}
					continue
				}
				byDest := gs.Edges[orig]
				stats, ok := byDest[dest]
				if !ok {
					if onlyDeletes(ed.Stats) && ed.Exists == nil {
						continue
					}
					if byDest == nil {
						byDest = make(map[string]wire.Map)
						gs.Edges[orig] = byDest
					}
					stats = wire.Map{}
					byDest[dest] = stats
				}
				applyStats(stats, ed.Stats)
			}
		}
	}
}

func onlyDeletes(changes map[string]wire.StatChange) bool {
	for _, ch := range changes {
		if !ch.Deleted {
			return false
		}
	}
	return true
}

func applyStats(into wire.Map, changes map[string]wire.StatChange) {
	for key, ch := range changes {
		if ch.Deleted {
			delete(into, key)
			continue
		}
		into[key] = ch.New
	}
}

// buildHistory records a few turns of changes and returns the engine plus
// the coordinates bracketing the interesting window.
func buildHistory(t *testing.T) (*engine.Engine, timeline.Time, timeline.Time) {
	t.Helper()
	e := engine.New()
	require.NoError(t, e.AddGraph("g"))
	require.NoError(t, e.AddNode("g", "A"))
	require.NoError(t, e.AddNode("g", "B"))
	require.NoError(t, e.SetStat(wire.NodeRef("g", "A"), "hp", wire.Int(10)))
	t1 := e.CurrentTime().Time

	_, err := e.AdvanceTurn()
	require.NoError(t, err)
	require.NoError(t, e.SetStat(wire.NodeRef("g", "A"), "hp", wire.Int(7)))
	require.NoError(t, e.AddEdge("g", "A", "B"))
	require.NoError(t, e.SetStat(wire.EdgeRef("g", "A", "B"), "weight", wire.Int(2)))

	_, err = e.AdvanceTurn()
	require.NoError(t, err)
	require.NoError(t, e.DelNode("g", "B")) // also tombstones the edge
	require.NoError(t, e.SetStat(wire.GraphRef("g"), "season", wire.Str("spring")))
	t2 := e.CurrentTime().Time
	return e, t1, t2
}

func TestDeltaRoundTrip(t *testing.T) {
	e, t1, t2 := buildHistory(t)

	before, err := e.SnapshotAt(timeline.Coord{Branch: "trunk", Time: t1})
	require.NoError(t, err)
	after, err := e.SnapshotAt(timeline.Coord{Branch: "trunk", Time: t2})
	require.NoError(t, err)

	d, err := e.Delta("trunk", t1, t2)
	require.NoError(t, err)
	applyDelta(before.Snap, d)
	assert.Equal(t, after.Snap, before.Snap, "state at t1 plus delta(t1,t2) is state at t2")
}

func TestDeltaBackwardInverts(t *testing.T) {
	e, t1, t2 := buildHistory(t)

	before, err := e.SnapshotAt(timeline.Coord{Branch: "trunk", Time: t1})
	require.NoError(t, err)
	after, err := e.SnapshotAt(timeline.Coord{Branch: "trunk", Time: t2})
	require.NoError(t, err)

	back, err := e.Delta("trunk", t2, t1)
	require.NoError(t, err)
	applyDelta(after.Snap, back)
	assert.Equal(t, before.Snap, after.Snap, "backward delta undoes the forward one")
}

func TestDeltaReportsOnlyChanges(t *testing.T) {
	e := engine.New()
	require.NoError(t, e.AddGraph("g"))
	require.NoError(t, e.AddNode("g", "A"))
	ref := wire.NodeRef("g", "A")
	require.NoError(t, e.SetStat(ref, "x", wire.Int(1)))
	require.NoError(t, e.SetStat(ref, "quiet", wire.Int(5)))
	t1 := e.CurrentTime().Time

	_, err := e.AdvanceTurn()
	require.NoError(t, err)
	require.NoError(t, e.SetStat(ref, "x", wire.Int(2)))
	require.NoError(t, e.SetStat(ref, "x", wire.Int(1))) // back where it started
	require.NoError(t, e.SetStat(ref, "y", wire.Str("new")))
	t2 := e.CurrentTime().Time

	d, err := e.Delta("trunk", t1, t2)
	require.NoError(t, err)

	nd := d.Graphs["g"].Nodes["A"]
	require.NotNil(t, nd)
	assert.NotContains(t, nd.Stats, "x", "a value that returned to its start is no net change")
	assert.NotContains(t, nd.Stats, "quiet")
	assert.Equal(t, wire.StatChange{New: wire.Str("new")}, nd.Stats["y"])
}

func TestDeltaEmptyWindow(t *testing.T) {
	e, t1, _ := buildHistory(t)
	d, err := e.Delta("trunk", t1, t1)
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestDeltaTurnsExpandsToTurnEnds(t *testing.T) {
	e, _, _ := buildHistory(t)
	d, err := e.DeltaTurns("trunk", 0, 2)
	require.NoError(t, err)
	require.Contains(t, d.Graphs, "g")
	gd := d.Graphs["g"]
	assert.Equal(t, wire.StatChange{New: wire.Str("spring")}, gd.Stats["season"])
	nd := gd.Nodes["B"]
	require.NotNil(t, nd)
	require.NotNil(t, nd.Exists)
	assert.False(t, *nd.Exists)
}
