package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactID_Deterministic(t *testing.T) {
	ref := NodeRef("g", "n")
	a, err := FactID(ref, "hp", "trunk", 3, 1, Int(10), false)
	require.NoError(t, err)
	b, err := FactID(ref, "hp", "trunk", 3, 1, Int(10), false)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFactID_SensitiveToEveryField(t *testing.T) {
	ref := NodeRef("g", "n")
	base, err := FactID(ref, "hp", "trunk", 3, 1, Int(10), false)
	require.NoError(t, err)

	variants := []struct {
		name string
		id   func() (string, error)
	}{
		{"ref", func() (string, error) { return FactID(NodeRef("g", "m"), "hp", "trunk", 3, 1, Int(10), false) }},
		{"key", func() (string, error) { return FactID(ref, "mp", "trunk", 3, 1, Int(10), false) }},
		{"branch", func() (string, error) { return FactID(ref, "hp", "alt", 3, 1, Int(10), false) }},
		{"turn", func() (string, error) { return FactID(ref, "hp", "trunk", 4, 1, Int(10), false) }},
		{"tick", func() (string, error) { return FactID(ref, "hp", "trunk", 3, 2, Int(10), false) }},
		{"value", func() (string, error) { return FactID(ref, "hp", "trunk", 3, 1, Int(11), false) }},
		{"deleted", func() (string, error) { return FactID(ref, "hp", "trunk", 3, 1, nil, true) }},
	}
	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			id, err := v.id()
			require.NoError(t, err)
			assert.NotEqual(t, base, id)
		})
	}
}

// A plan is scheduling bookkeeping: committing a planned fact must keep the
// same identity.
func TestIdentify_IgnoresPlanID(t *testing.T) {
	planned := Fact{
		Ref: NodeRef("g", "n"), Key: "hp", Branch: "trunk",
		Turn: 3, Tick: 1, Value: Int(10), PlanID: "some-plan",
	}
	committed := planned
	committed.PlanID = ""

	require.NoError(t, planned.Identify())
	require.NoError(t, committed.Identify())
	assert.Equal(t, committed.ID, planned.ID)
}

func TestNodeAndEdgeRefsNeverCollide(t *testing.T) {
	// node "a" and edge "a"->"" must not hash alike on field padding.
	nodeID, err := FactID(NodeRef("g", "a"), "k", "trunk", 0, 0, Int(1), false)
	require.NoError(t, err)
	edgeID, err := FactID(EdgeRef("g", "a", "b"), "k", "trunk", 0, 0, Int(1), false)
	require.NoError(t, err)
	assert.NotEqual(t, nodeID, edgeID)
}

func TestKeyframeID(t *testing.T) {
	snap := []byte(`{"graphs":{}}`)
	a := KeyframeID("trunk", 4, 0, snap)
	assert.Equal(t, a, KeyframeID("trunk", 4, 0, snap))
	assert.NotEqual(t, a, KeyframeID("alt", 4, 0, snap))
	assert.NotEqual(t, a, KeyframeID("trunk", 5, 0, snap))
	assert.NotEqual(t, a, KeyframeID("trunk", 4, 0, []byte(`{"graphs":{"g":{}}}`)))
}

func TestSnapshotEncodeDecode(t *testing.T) {
	s := &Snapshot{}
	gs := s.Graph("g")
	gs.Stats["season"] = Str("spring")
	gs.Nodes["n"] = Map{"hp": Int(10)}
	gs.NodeTombs["n"] = Tombs{"mana": true}
	gs.Edges["a"] = map[string]Map{"b": {"weight": Int(2)}}

	data, err := s.Encode()
	require.NoError(t, err)

	back, err := DecodeSnapshot(data)
	require.NoError(t, err)

	v, deleted, ok := back.Lookup(NodeRef("g", "n"), "hp")
	require.True(t, ok)
	assert.False(t, deleted)
	assert.True(t, Equal(Int(10), v))

	_, deleted, ok = back.Lookup(NodeRef("g", "n"), "mana")
	require.True(t, ok)
	assert.True(t, deleted, "tombstoned keys survive the round trip")

	v, deleted, ok = back.Lookup(EdgeRef("g", "a", "b"), "weight")
	require.True(t, ok)
	assert.False(t, deleted)
	assert.True(t, Equal(Int(2), v))

	_, _, ok = back.Lookup(NodeRef("g", "missing"), ExistenceKey)
	assert.False(t, ok)

	v, _, ok = back.Lookup(GraphRef("g"), ExistenceKey)
	require.True(t, ok)
	assert.True(t, Equal(Bool(true), v))
}
