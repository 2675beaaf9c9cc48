package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skeinworks/skein/internal/engine"
	"github.com/skeinworks/skein/internal/timeline"
	"github.com/skeinworks/skein/internal/wire"
)

func TestViewsResolveAtCursor(t *testing.T) {
	e := engine.New()
	require.NoError(t, e.AddGraph("city"))
	require.NoError(t, e.AddNode("city", "market"))
	require.NoError(t, e.AddNode("city", "gate"))
	require.NoError(t, e.AddEdge("city", "gate", "market"))

	g := e.GraphView("city")
	assert.True(t, g.Exists())
	assert.Equal(t, "city", g.Name())
	assert.Equal(t, []string{"gate", "market"}, g.Nodes())

	require.NoError(t, g.Set("population", wire.Int(500)))
	v, err := g.Get("population")
	require.NoError(t, err)
	assert.Equal(t, wire.Int(500), v)
	assert.Equal(t, []string{"population"}, g.Keys())

	n := g.Node("market")
	assert.True(t, n.Exists())
	require.NoError(t, n.Set("stalls", wire.Int(12)))
	v, err = n.Get("stalls")
	require.NoError(t, err)
	assert.Equal(t, wire.Int(12), v)
	assert.Equal(t, []string{"gate"}, n.Predecessors())
	assert.Empty(t, n.Successors())

	ed := g.Edge("gate", "market")
	assert.True(t, ed.Exists())
	assert.Equal(t, "gate", ed.Orig())
	assert.Equal(t, "market", ed.Dest())
	require.NoError(t, ed.Set("length", wire.Int(3)))
	assert.Equal(t, []string{"length"}, ed.Keys())

	require.NoError(t, ed.Del("length"))
	assert.Empty(t, ed.Keys())
	_, err = ed.Get("length")
	assert.ErrorIs(t, err, engine.ErrDeleted)
}

// A view holds only ids: it tracks the cursor through time travel instead
// of pinning the state it was created at.
func TestViewFollowsTimeTravel(t *testing.T) {
	e := engine.New()
	require.NoError(t, e.AddGraph("city"))
	g := e.GraphView("city")
	require.NoError(t, g.Set("population", wire.Int(100)))

	_, err := e.AdvanceTurn()
	require.NoError(t, err)
	require.NoError(t, g.Set("population", wire.Int(200)))

	require.NoError(t, e.SetTime(timeline.Coord{
		Branch: "trunk",
		Time:   timeline.Time{Turn: 0, Tick: 5},
	}))
	v, err := g.Get("population")
	require.NoError(t, err)
	assert.Equal(t, wire.Int(100), v)

	missing := e.GraphView("ghost")
	assert.False(t, missing.Exists())
	_, err = missing.Get("anything")
	assert.ErrorIs(t, err, engine.ErrNoSuchEntity)
}
