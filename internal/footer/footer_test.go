package footer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtmods/pak/internal/paktype"
)

func sampleFooter() *Footer {
	f := &Footer{
		Version:     Version11,
		IndexOffset: 4096,
		IndexSize:   512,
	}
	for i := range f.IndexHash {
		f.IndexHash[i] = byte(i)
	}
	f.CompressionMethods[0] = "Zlib"
	return f
}

func TestFooterRoundTrip(t *testing.T) {
	t.Parallel()

	f := sampleFooter()
	f.EncryptedIndex = true
	f.EncryptionKeyGUID[0] = 0x42

	data := f.Encode()
	require.Len(t, data, Size)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	t.Run("wrong length", func(t *testing.T) {
		t.Parallel()
		_, err := Parse(make([]byte, Size-1))
		assert.ErrorIs(t, err, paktype.ErrCorruptIndex)
	})

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()
		data := sampleFooter().Encode()
		data[17] ^= 0xff
		_, err := Parse(data)
		assert.ErrorIs(t, err, paktype.ErrCorruptIndex)
	})

	t.Run("unsupported version", func(t *testing.T) {
		t.Parallel()
		f := sampleFooter()
		f.Version = 9
		_, err := Parse(f.Encode())
		assert.ErrorIs(t, err, paktype.ErrUnsupportedVersion)
	})
}

func TestMethod(t *testing.T) {
	t.Parallel()

	f := sampleFooter()
	assert.Equal(t, paktype.CompressionNone, f.Method(0))
	assert.Equal(t, paktype.CompressionZlib, f.Method(1))
	assert.Equal(t, paktype.CompressionInvalid, f.Method(2))
	assert.Equal(t, paktype.CompressionInvalid, f.Method(6))

	f.CompressionMethods[0] = "zlib"
	assert.Equal(t, paktype.CompressionZlib, f.Method(1))

	f.CompressionMethods[0] = "Oodle"
	assert.Equal(t, paktype.CompressionInvalid, f.Method(1))
}
