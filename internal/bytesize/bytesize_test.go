package bytesize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	// ====================================================================
	// Plain numbers
	// ====================================================================

	size, err := Parse("4096")
	require.NoError(t, err)
	assert.Equal(t, 4*KiB, size)

	size, err = Parse("0")
	require.NoError(t, err)
	assert.Equal(t, ByteSize(0), size)

	// ====================================================================
	// Binary units
	// ====================================================================

	size, err = Parse("4Ki")
	require.NoError(t, err)
	assert.Equal(t, 4*KiB, size)

	size, err = Parse("16Ki")
	require.NoError(t, err)
	assert.Equal(t, 16*KiB, size)

	size, err = Parse("2MiB")
	require.NoError(t, err)
	assert.Equal(t, 2*MiB, size)

	size, err = Parse("1Gi")
	require.NoError(t, err)
	assert.Equal(t, GiB, size)

	// ====================================================================
	// Decimal units and case insensitivity
	// ====================================================================

	size, err = Parse("100MB")
	require.NoError(t, err)
	assert.Equal(t, 100*MB, size)

	size, err = Parse("8kb")
	require.NoError(t, err)
	assert.Equal(t, 8*KB, size)

	size, err = Parse("512B")
	require.NoError(t, err)
	assert.Equal(t, ByteSize(512), size)

	// ====================================================================
	// Fractional values and surrounding whitespace
	// ====================================================================

	size, err = Parse("1.5Ki")
	require.NoError(t, err)
	assert.Equal(t, ByteSize(1536), size)

	size, err = Parse("  16 Ki  ")
	require.NoError(t, err)
	assert.Equal(t, 16*KiB, size)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)

	_, err = Parse("   ")
	assert.Error(t, err)

	_, err = Parse("16Qi")
	assert.Error(t, err)

	_, err = Parse("Ki")
	assert.Error(t, err)

	_, err = Parse("1.2.3Ki")
	assert.Error(t, err)
}

func TestUnmarshalText(t *testing.T) {
	var size ByteSize
	require.NoError(t, size.UnmarshalText([]byte("16Ki")))
	assert.Equal(t, 16*KiB, size)

	err := size.UnmarshalText([]byte("bogus"))
	assert.Error(t, err)
	assert.Equal(t, 16*KiB, size, "failed unmarshal must not clobber the value")
}

func TestString(t *testing.T) {
	assert.Equal(t, "4Ki", (4 * KiB).String())
	assert.Equal(t, "16Ki", (16 * KiB).String())
	assert.Equal(t, "2Mi", (2 * MiB).String())
	assert.Equal(t, "1Gi", GiB.String())
	assert.Equal(t, "1000", KB.String())
	assert.Equal(t, "100", ByteSize(100).String())
}

func TestRoundTrip(t *testing.T) {
	for _, size := range []ByteSize{4 * KiB, 16 * KiB, 3 * MiB, 500} {
		text, err := size.MarshalText()
		require.NoError(t, err)

		var parsed ByteSize
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, size, parsed)
	}
}
