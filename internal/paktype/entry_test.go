package paktype

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zlibMethod(index uint32) Compression {
	if index == 1 {
		return CompressionZlib
	}
	return CompressionInvalid
}

func roundTripIndexEntry(t *testing.T, e Entry) Entry {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, e.EncodeIndexEntry(&buf))
	got, err := DecodeIndexEntry(bytes.NewReader(buf.Bytes()), zlibMethod)
	require.NoError(t, err)
	return got
}

func TestIndexEntryRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("uncompressed", func(t *testing.T) {
		t.Parallel()
		e := Entry{
			Offset:           1024,
			CompressedSize:   100,
			UncompressedSize: 100,
		}
		got := roundTripIndexEntry(t, e)
		assert.Equal(t, e.Offset, got.Offset)
		assert.Equal(t, e.UncompressedSize, got.UncompressedSize)
		assert.Equal(t, e.CompressedSize, got.CompressedSize)
		assert.Equal(t, CompressionNone, got.Compression)
		assert.False(t, got.Encrypted)
		assert.Empty(t, got.Blocks)
	})

	t.Run("zlib single block", func(t *testing.T) {
		t.Parallel()
		e := Entry{
			Offset:           2048,
			CompressedSize:   40,
			UncompressedSize: 80,
			Compression:      CompressionZlib,
			BlockSize:        64 << 10,
			Blocks:           []Block{{Start: 73, End: 113}},
		}
		got := roundTripIndexEntry(t, e)
		assert.Equal(t, CompressionZlib, got.Compression)
		assert.Equal(t, e.BlockSize, got.BlockSize)
		assert.Equal(t, e.Blocks, got.Blocks)
		assert.Equal(t, e.CompressedSize, got.CompressedSize)
	})

	t.Run("zlib multiple blocks", func(t *testing.T) {
		t.Parallel()
		// Contiguous blocks starting just past the local record.
		base := uint64(53 + 4 + 16*3)
		e := Entry{
			Offset:           0,
			CompressedSize:   90,
			UncompressedSize: 200_000,
			Compression:      CompressionZlib,
			BlockSize:        64 << 10,
			Blocks: []Block{
				{Start: base, End: base + 30},
				{Start: base + 30, End: base + 70},
				{Start: base + 70, End: base + 90},
			},
		}
		got := roundTripIndexEntry(t, e)
		assert.Equal(t, e.Blocks, got.Blocks)
		assert.Equal(t, e.BlockSize, got.BlockSize)
	})

	t.Run("encrypted blocks align", func(t *testing.T) {
		t.Parallel()
		// Encrypted block payloads occupy aligned space in the stream.
		base := uint64(53 + 4 + 16*2)
		e := Entry{
			Offset:           512,
			CompressedSize:   30,
			UncompressedSize: 100,
			Compression:      CompressionZlib,
			Encrypted:        true,
			BlockSize:        64 << 10,
			Blocks: []Block{
				{Start: base, End: base + 20},
				{Start: base + Align(20), End: base + Align(20) + 10},
			},
		}
		got := roundTripIndexEntry(t, e)
		assert.True(t, got.Encrypted)
		assert.Equal(t, e.Blocks, got.Blocks)
	})

	t.Run("wide fields", func(t *testing.T) {
		t.Parallel()
		e := Entry{
			Offset:           1 << 40,
			CompressedSize:   1 << 36,
			UncompressedSize: 1 << 37,
			Compression:      CompressionZlib,
			BlockSize:        64 << 10,
			Blocks:           []Block{{Start: 73, End: 73 + 1<<36}},
		}
		got := roundTripIndexEntry(t, e)
		assert.Equal(t, e.Offset, got.Offset)
		assert.Equal(t, e.UncompressedSize, got.UncompressedSize)
		assert.Equal(t, e.CompressedSize, got.CompressedSize)
	})

	t.Run("explicit block size", func(t *testing.T) {
		t.Parallel()
		// A block size that is not a multiple of 2048 cannot be packed into
		// the flag bits and is carried as a full uint32.
		e := Entry{
			CompressedSize:   10,
			UncompressedSize: 1000,
			Compression:      CompressionZlib,
			BlockSize:        1000,
			Blocks:           []Block{{Start: 73, End: 83}},
		}
		got := roundTripIndexEntry(t, e)
		assert.Equal(t, uint32(1000), got.BlockSize)
	})
}

func TestRecordSize(t *testing.T) {
	t.Parallel()

	plain := Entry{CompressedSize: 10, UncompressedSize: 10}
	assert.Equal(t, uint64(53), plain.RecordSize())

	compressed := Entry{
		Compression: CompressionZlib,
		Blocks:      []Block{{Start: 89, End: 99}, {Start: 99, End: 109}},
	}
	assert.Equal(t, uint64(53+4+32), compressed.RecordSize())
}

func TestEncodeRecordLength(t *testing.T) {
	t.Parallel()

	e := Entry{
		CompressedSize:   10,
		UncompressedSize: 10,
		Encrypted:        true,
	}
	var buf bytes.Buffer
	require.NoError(t, e.EncodeRecord(&buf))
	assert.Equal(t, int(e.RecordSize()), buf.Len())
	// Encrypted flag sits right before the trailing block size field.
	assert.Equal(t, byte(1), buf.Bytes()[buf.Len()-5])
}

func TestStoredSize(t *testing.T) {
	t.Parallel()

	plain := Entry{CompressedSize: 30}
	assert.Equal(t, uint64(30), plain.StoredSize())

	encrypted := Entry{CompressedSize: 30, Encrypted: true}
	assert.Equal(t, uint64(32), encrypted.StoredSize())

	blocks := Entry{
		CompressedSize: 30,
		Compression:    CompressionZlib,
		Encrypted:      true,
		Blocks:         []Block{{Start: 0, End: 20}, {Start: 32, End: 42}},
	}
	assert.Equal(t, Align(20)+Align(10), blocks.StoredSize())
}

func TestAlign(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(0), Align(0))
	assert.Equal(t, uint64(16), Align(1))
	assert.Equal(t, uint64(16), Align(16))
	assert.Equal(t, uint64(32), Align(17))
}

func TestCompressionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", CompressionNone.String())
	assert.Equal(t, "zlib", CompressionZlib.String())
	assert.Equal(t, "Zlib", CompressionZlib.MethodName())
}
