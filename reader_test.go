package pak_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtmods/pak"
	"github.com/mtmods/pak/internal/testutil"
)

// footerSize mirrors the serialized footer width; corruption tests poke at
// fixed offsets inside it.
const footerSize = 221

func testKey() pak.Key {
	var key pak.Key
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}

func TestReaderEntryNotFound(t *testing.T) {
	t.Parallel()

	archive := testutil.BuildArchive(t, []testutil.File{
		{Path: "DataAsset/Cargos.uasset", Data: []byte("data")},
	})
	r, err := pak.OpenReader(testutil.Source(archive))
	require.NoError(t, err)

	_, err = r.Get("DataAsset/Missing.uasset")
	assert.ErrorIs(t, err, pak.ErrEntryNotFound)

	_, ok := r.Entry("DataAsset/Missing.uasset")
	assert.False(t, ok)
}

func TestReaderRepeatedGets(t *testing.T) {
	t.Parallel()

	files := []testutil.File{
		{Path: "DataAsset/A.uasset", Data: bytes.Repeat([]byte("aa"), 100), Compress: true},
		{Path: "DataAsset/B.uasset", Data: []byte("bb")},
		{Path: "DataAsset/C.uasset", Data: bytes.Repeat([]byte("cc"), 300), Compress: true},
	}
	archive := testutil.BuildArchive(t, files)
	r, err := pak.OpenReader(testutil.Source(archive))
	require.NoError(t, err)

	// Out of order and repeated: each Get re-derives its position from the
	// entry descriptor.
	for _, path := range []string{
		"DataAsset/C.uasset", "DataAsset/A.uasset", "DataAsset/C.uasset",
		"DataAsset/B.uasset", "DataAsset/A.uasset",
	} {
		got, err := r.Get(path)
		require.NoError(t, err, path)
		for _, f := range files {
			if f.Path == path {
				assert.Equal(t, f.Data, got, path)
			}
		}
	}
}

func TestReaderCorruptFooter(t *testing.T) {
	t.Parallel()

	archive := testutil.BuildArchive(t, []testutil.File{
		{Path: "DataAsset/Cargos.uasset", Data: []byte("data")},
	})

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()
		bad := append([]byte(nil), archive...)
		bad[len(bad)-footerSize+17] ^= 0xff
		_, err := pak.OpenReader(testutil.Source(bad))
		assert.ErrorIs(t, err, pak.ErrCorruptIndex)
	})

	t.Run("truncated stream", func(t *testing.T) {
		t.Parallel()
		_, err := pak.OpenReader(testutil.Source(archive[:footerSize-1]))
		assert.ErrorIs(t, err, pak.ErrCorruptIndex)
	})

	t.Run("index hash mismatch", func(t *testing.T) {
		t.Parallel()
		bad := append([]byte(nil), archive...)
		bad[len(bad)-footerSize+41] ^= 0xff
		_, err := pak.OpenReader(testutil.Source(bad))
		assert.ErrorIs(t, err, pak.ErrCorruptIndex)
	})
}

func TestReaderUnsupportedVersion(t *testing.T) {
	t.Parallel()

	archive := testutil.BuildArchive(t, []testutil.File{
		{Path: "DataAsset/Cargos.uasset", Data: []byte("data")},
	})
	bad := append([]byte(nil), archive...)
	bad[len(bad)-footerSize+21] = 9
	_, err := pak.OpenReader(testutil.Source(bad))
	assert.ErrorIs(t, err, pak.ErrUnsupportedVersion)
}

func TestReaderHashMismatch(t *testing.T) {
	t.Parallel()

	archive := testutil.BuildArchive(t, []testutil.File{
		{Path: "DataAsset/Cargos.uasset", Data: []byte("payload bytes")},
	})
	r, err := pak.OpenReader(testutil.Source(archive))
	require.NoError(t, err)
	entry, ok := r.Entry("DataAsset/Cargos.uasset")
	require.True(t, ok)

	// Flip one stored payload byte; the local record is 53 bytes for an
	// uncompressed entry.
	bad := append([]byte(nil), archive...)
	bad[entry.Offset+53] ^= 0xff
	r, err = pak.OpenReader(testutil.Source(bad))
	require.NoError(t, err)
	_, err = r.Get("DataAsset/Cargos.uasset")
	assert.ErrorIs(t, err, pak.ErrHashMismatch)
}

func TestReaderEncryptedArchive(t *testing.T) {
	t.Parallel()

	key := testKey()
	files := []testutil.File{
		{Path: "DataAsset/Cargos.uasset", Data: bytes.Repeat([]byte("secret"), 40)},
		{Path: "DataAsset/Cargos.uexp", Data: []byte("exports")},
	}
	archive := testutil.BuildEncryptedArchive(t, files, key)

	t.Run("right key", func(t *testing.T) {
		t.Parallel()
		r, err := pak.OpenReader(testutil.Source(archive), pak.WithKey(key))
		require.NoError(t, err)
		assert.Equal(t, len(files), r.Len())
		for _, f := range files {
			got, err := r.Get(f.Path)
			require.NoError(t, err, f.Path)
			assert.Equal(t, f.Data, got, f.Path)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()
		wrong := testKey()
		wrong[0] ^= 0xff
		_, err := pak.OpenReader(testutil.Source(archive), pak.WithKey(wrong))
		assert.ErrorIs(t, err, pak.ErrKeyMismatch)
	})

	t.Run("no key", func(t *testing.T) {
		t.Parallel()
		_, err := pak.OpenReader(testutil.Source(archive))
		assert.ErrorIs(t, err, pak.ErrKeyMismatch)
	})
}

func TestReaderOpenFile(t *testing.T) {
	t.Parallel()

	archive := testutil.BuildArchive(t, []testutil.File{
		{Path: "DataAsset/Cargos.uasset", Data: []byte("on disk")},
	})
	path := filepath.Join(t.TempDir(), "content.pak")
	require.NoError(t, os.WriteFile(path, archive, 0o644))

	r, err := pak.OpenFile(path)
	require.NoError(t, err)
	got, err := r.Get("DataAsset/Cargos.uasset")
	require.NoError(t, err)
	assert.Equal(t, []byte("on disk"), got)
	require.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
