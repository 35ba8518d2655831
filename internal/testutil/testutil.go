// Package testutil builds in-memory archives for tests, including encrypted
// variants the public Writer intentionally cannot produce.
package testutil

import (
	"bytes"
	"crypto/sha1"
	"testing"

	"github.com/mtmods/pak"
	"github.com/mtmods/pak/internal/crypt"
	"github.com/mtmods/pak/internal/footer"
	"github.com/mtmods/pak/internal/pakindex"
	"github.com/mtmods/pak/internal/paktype"
)

// File is one archive entry to build.
type File struct {
	Path     string
	Data     []byte
	Compress bool
}

// BuildArchive writes files through the public Writer and returns the
// archive bytes.
func BuildArchive(tb testing.TB, files []File, opts ...pak.WriterOption) []byte {
	tb.Helper()

	var buf bytes.Buffer
	w := pak.NewWriter(&buf, opts...)
	for _, f := range files {
		if err := w.WriteFile(f.Path, f.Compress, f.Data); err != nil {
			tb.Fatalf("WriteFile(%s): %v", f.Path, err)
		}
	}
	if err := w.WriteIndex(); err != nil {
		tb.Fatalf("WriteIndex: %v", err)
	}
	return buf.Bytes()
}

// BuildEncryptedArchive assembles an archive whose index and entry payloads
// are encrypted with key, the way shipped content archives are. Payloads are
// stored uncompressed.
func BuildEncryptedArchive(tb testing.TB, files []File, key [32]byte) []byte {
	tb.Helper()

	cipher, err := crypt.New(key)
	if err != nil {
		tb.Fatalf("crypt.New: %v", err)
	}

	var buf bytes.Buffer
	entries := make([]paktype.Entry, 0, len(files))
	for _, f := range files {
		entry := paktype.Entry{
			Path:             f.Path,
			Offset:           uint64(buf.Len()),
			CompressedSize:   uint64(len(f.Data)),
			UncompressedSize: uint64(len(f.Data)),
			Encrypted:        true,
			Hash:             sha1.Sum(f.Data),
		}
		if err := entry.EncodeRecord(&buf); err != nil {
			tb.Fatalf("EncodeRecord(%s): %v", f.Path, err)
		}
		padded := crypt.Pad(append([]byte(nil), f.Data...))
		if err := cipher.EncryptInPlace(padded); err != nil {
			tb.Fatalf("EncryptInPlace(%s): %v", f.Path, err)
		}
		buf.Write(padded)
		entries = append(entries, entry)
	}

	err = pakindex.Build(&buf, entries, pakindex.BuildConfig{
		Version:    footer.Version11,
		MountPoint: pak.DefaultMountPoint,
		DataSize:   uint64(buf.Len()),
		Cipher:     cipher,
	})
	if err != nil {
		tb.Fatalf("pakindex.Build: %v", err)
	}
	return buf.Bytes()
}

// Source wraps archive bytes as a pak.ByteSource.
func Source(data []byte) pak.ByteSource {
	return bytes.NewReader(data)
}
