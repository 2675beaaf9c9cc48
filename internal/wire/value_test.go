package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAny_Conversions(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{name: "string", in: "hello", want: Str("hello")},
		{name: "int", in: 42, want: Int(42)},
		{name: "int64", in: int64(-7), want: Int(-7)},
		{name: "bool", in: true, want: Bool(true)},
		{name: "already a value", in: Str("v"), want: Str("v")},
		{name: "list", in: []any{1, "two"}, want: List{Int(1), Str("two")}},
		{name: "map", in: map[string]any{"k": false}, want: Map{"k": Bool(false)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FromAny(tc.in)
			require.NoError(t, err)
			assert.True(t, Equal(tc.want, got), "got %#v", got)
		})
	}
}

func TestFromAny_Rejections(t *testing.T) {
	_, err := FromAny(nil)
	require.Error(t, err)

	_, err = FromAny(1.5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = FromAny([]any{1, 2.5})
	require.Error(t, err)

	_, err = FromAny(struct{}{})
	require.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(Str("a"), nil))
	assert.False(t, Equal(Str("1"), Int(1)))
	assert.True(t, Equal(List{Int(1), Int(2)}, List{Int(1), Int(2)}))
	assert.False(t, Equal(List{Int(1)}, List{Int(1), Int(2)}))
	assert.True(t, Equal(Map{"a": Int(1)}, Map{"a": Int(1)}))
	assert.False(t, Equal(Map{"a": Int(1)}, Map{"a": Int(2)}))
	assert.False(t, Equal(Map{"a": Int(1)}, Map{"b": Int(1)}))
}

func TestToAnyRoundTrip(t *testing.T) {
	v := Map{
		"name":  Str("oak"),
		"rings": Int(140),
		"alive": Bool(true),
		"tags":  List{Str("tree"), Str("old")},
	}
	back, err := FromAny(ToAny(v))
	require.NoError(t, err)
	assert.True(t, Equal(v, back))
}

func TestUnmarshalValue(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"hp":7,"name":"hero","flags":[true,false]}`))
	require.NoError(t, err)
	want := Map{"hp": Int(7), "name": Str("hero"), "flags": List{Bool(true), Bool(false)}}
	assert.True(t, Equal(want, v))

	_, err = UnmarshalValue([]byte(`null`))
	require.Error(t, err)

	_, err = UnmarshalValue([]byte(`1.25`))
	require.Error(t, err)
}

func TestEntityRefValid(t *testing.T) {
	assert.True(t, GraphRef("g").Valid())
	assert.True(t, NodeRef("g", "n").Valid())
	assert.True(t, EdgeRef("g", "a", "b").Valid())

	assert.False(t, GraphRef("").Valid())
	assert.False(t, NodeRef("g", "").Valid())
	assert.False(t, EdgeRef("g", "a", "").Valid())
	assert.False(t, EntityRef{Domain: "creature", Graph: "g"}.Valid())
	// A node ref must not carry edge endpoints.
	assert.False(t, EntityRef{Domain: DomainNode, Graph: "g", Node: "n", Orig: "a"}.Valid())
}
