package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeCompare(t *testing.T) {
	assert.Equal(t, 0, Time{Turn: 2, Tick: 5}.Compare(Time{Turn: 2, Tick: 5}))
	assert.True(t, Time{Turn: 1, Tick: 9}.Before(Time{Turn: 2, Tick: 0}))
	assert.True(t, Time{Turn: 2, Tick: 1}.Before(Time{Turn: 2, Tick: 2}))
	assert.True(t, Time{Turn: 3}.After(Time{Turn: 2, Tick: 99}))
}

func TestBranchCreateValidation(t *testing.T) {
	b := NewBranches()

	require.NoError(t, b.Create("alpha", Trunk, Time{Turn: 3}))
	assert.True(t, b.Exists("alpha"))

	err := b.Create("alpha", Trunk, Time{Turn: 5})
	assert.ErrorIs(t, err, ErrBranchExists)

	err = b.Create("orphan", "ghost", Time{})
	assert.ErrorIs(t, err, ErrNoSuchBranch)

	err = b.Create("bad", Trunk, Time{Turn: -1})
	assert.ErrorIs(t, err, ErrInvalidDivergence)

	// A grandchild cannot diverge before its parent's own divergence.
	err = b.Create("beta", "alpha", Time{Turn: 1})
	assert.ErrorIs(t, err, ErrInvalidDivergence)
	require.NoError(t, b.Create("beta", "alpha", Time{Turn: 3, Tick: 2}))
}

func TestAncestry(t *testing.T) {
	b := NewBranches()
	require.NoError(t, b.Create("a", Trunk, Time{Turn: 2}))
	require.NoError(t, b.Create("b", "a", Time{Turn: 4}))
	require.NoError(t, b.Create("c", Trunk, Time{Turn: 1}))

	assert.True(t, b.IsAncestor(Trunk, "b"))
	assert.True(t, b.IsAncestor("a", "b"))
	assert.True(t, b.IsAncestor("b", "b"))
	assert.False(t, b.IsAncestor("c", "b"))
	assert.False(t, b.IsAncestor("ghost", "b"))

	parent, err := b.Parent("b")
	require.NoError(t, err)
	assert.Equal(t, "a", parent)

	assert.Equal(t, []string{"a", "c"}, b.Children(Trunk))
}

func TestNamesParentsFirst(t *testing.T) {
	b := NewBranches()
	require.NoError(t, b.Create("zeta", Trunk, Time{}))
	require.NoError(t, b.Create("alpha", "zeta", Time{}))
	require.NoError(t, b.Create("mid", Trunk, Time{}))

	names := b.Names()
	require.Len(t, names, 4)
	assert.Equal(t, Trunk, names[0])

	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	assert.Less(t, index[Trunk], index["zeta"])
	assert.Less(t, index["zeta"], index["alpha"])
	assert.Less(t, index[Trunk], index["mid"])
}

func TestWalkAncestryClampsToDivergence(t *testing.T) {
	b := NewBranches()
	require.NoError(t, b.Create("a", Trunk, Time{Turn: 5, Tick: 2}))
	require.NoError(t, b.Create("b", "a", Time{Turn: 8}))

	var walk []Coord
	for c := range b.WalkAncestry(Coord{Branch: "b", Time: Time{Turn: 12, Tick: 3}}) {
		walk = append(walk, c)
	}
	require.Len(t, walk, 3)
	assert.Equal(t, Coord{Branch: "b", Time: Time{Turn: 12, Tick: 3}}, walk[0])
	assert.Equal(t, Coord{Branch: "a", Time: Time{Turn: 8}}, walk[1])
	assert.Equal(t, Coord{Branch: Trunk, Time: Time{Turn: 5, Tick: 2}}, walk[2])
}

// A walk aimed before the divergence keeps its own earlier time.
func TestWalkAncestryBeforeDivergence(t *testing.T) {
	b := NewBranches()
	require.NoError(t, b.Create("a", Trunk, Time{Turn: 5}))

	var walk []Coord
	for c := range b.WalkAncestry(Coord{Branch: "a", Time: Time{Turn: 2, Tick: 1}}) {
		walk = append(walk, c)
	}
	require.Len(t, walk, 2)
	assert.Equal(t, Coord{Branch: Trunk, Time: Time{Turn: 2, Tick: 1}}, walk[1])
}

func TestEndTracking(t *testing.T) {
	b := NewBranches()
	_, ok := b.End(Trunk)
	assert.False(t, ok)

	require.NoError(t, b.NoteWrite(Trunk, Time{Turn: 1, Tick: 3}))
	require.NoError(t, b.NoteWrite(Trunk, Time{Turn: 2, Tick: 1}))
	require.NoError(t, b.NoteWrite(Trunk, Time{Turn: 1, Tick: 7})) // out of order, not the end

	end, ok := b.End(Trunk)
	require.True(t, ok)
	assert.Equal(t, Time{Turn: 2, Tick: 1}, end)

	assert.Equal(t, int64(7), b.TurnEnd(Trunk, 1))
	assert.Equal(t, int64(1), b.TurnEnd(Trunk, 2))
	assert.Equal(t, int64(0), b.TurnEnd(Trunk, 9))

	require.NoError(t, b.ResetEnd(Trunk, Time{Turn: 1, Tick: 7}, true))
	end, ok = b.End(Trunk)
	require.True(t, ok)
	assert.Equal(t, Time{Turn: 1, Tick: 7}, end)

	require.NoError(t, b.ResetEnd(Trunk, Time{}, false))
	_, ok = b.End(Trunk)
	assert.False(t, ok)

	assert.ErrorIs(t, b.NoteWrite("ghost", Time{}), ErrNoSuchBranch)
}

func TestTicker(t *testing.T) {
	tk := NewTicker()
	assert.Equal(t, int64(1), tk.Next())
	assert.Equal(t, int64(2), tk.Next())
	assert.Equal(t, int64(2), tk.Current())

	tk.Reset(0)
	assert.Equal(t, int64(1), tk.Next())

	tk2 := NewTickerAt(41)
	assert.Equal(t, int64(42), tk2.Next())
}
