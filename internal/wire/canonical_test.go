package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysByUTF16(t *testing.T) {
	// U+FF61 sorts before U+10000 in UTF-8 byte order but after it in
	// UTF-16 code units, because U+10000 encodes as a surrogate pair
	// starting at 0xD800. RFC 8785 requires the UTF-16 order.
	m := Map{
		"｡":     Int(1),
		"\U00010000": Int(2),
	}
	out, err := MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"｡\":1}", string(out))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(Str("<a> & </a>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a> & </a>"`, string(out))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "e" followed by a combining acute accent normalizes to U+00E9.
	out, err := MarshalCanonical(Str("é"))
	require.NoError(t, err)
	assert.Equal(t, "\"é\"", string(out))
}

func TestMarshalCanonical_RejectsFloats(t *testing.T) {
	_, err := MarshalCanonical(3.14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestMarshalCanonical_NestedStructures(t *testing.T) {
	m := Map{
		"b": List{Int(1), Str("two"), Bool(true)},
		"a": Map{"inner": Int(-5)},
	}
	out, err := MarshalCanonical(m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"inner":-5},"b":[1,"two",true]}`, string(out))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	m := Map{"x": Int(1), "y": Str("v"), "z": Bool(false)}
	first, err := MarshalCanonical(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(m)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	// U+2028 must stay a literal character, not a   escape.
	out, err := MarshalCanonical(Str("a b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a b\"", string(out))

	// A literal backslash-u sequence in the input must survive escaped.
	out, err = MarshalCanonical(Str(` `))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(out))
}
