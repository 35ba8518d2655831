package pakindex

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mtmods/pak/internal/crypt"
	"github.com/mtmods/pak/internal/footer"
	"github.com/mtmods/pak/internal/paktype"
	"github.com/mtmods/pak/internal/pathutil"
)

// BuildConfig describes the index to serialize.
type BuildConfig struct {
	Version      uint32
	MountPoint   string
	PathHashSeed uint64

	// DataSize is the length of the payload region preceding the index;
	// it becomes the footer's index offset.
	DataSize uint64

	// Cipher, when non-nil, encrypts the index buffers and sets the
	// footer's encrypted-index flag. Newly authored archives are written
	// without it; the hook exists so the decrypt path can be exercised.
	Cipher *crypt.Cipher
}

// Build serializes the primary index, path hash index, full directory index,
// and footer for the given entries and appends them to w.
func Build(w io.Writer, entries []paktype.Entry, cfg BuildConfig) error {
	encoded, offsets, err := encodeEntries(entries)
	if err != nil {
		return err
	}

	phi := buildPathHashIndex(entries, offsets, cfg.PathHashSeed)
	fdi := buildDirectoryIndex(entries, offsets)

	// The primary index embeds the absolute locations of the secondary
	// buffers, which sit directly after it. Its own length is fixed by its
	// contents, so it can be computed before assembly.
	primarySize := 4 + len(cfg.MountPoint) + 1 + // mount point fstring
		4 + 8 + // entry count, seed
		4 + 8 + 8 + 20 + // path hash index location
		4 + 8 + 8 + 20 + // directory index location
		4 + len(encoded) + // encoded entries
		4 // non-encoded entry count
	primaryStored := storedSize(primarySize, cfg.Cipher)
	phiStored := storedSize(len(phi), cfg.Cipher)

	phiOffset := cfg.DataSize + uint64(primaryStored)
	fdiOffset := phiOffset + uint64(phiStored)

	phiData, phiHash := sealIndexBuffer(phi, cfg.Cipher)
	fdiData, fdiHash := sealIndexBuffer(fdi, cfg.Cipher)

	var primary bytes.Buffer
	writeFString(&primary, cfg.MountPoint)
	write32(&primary, uint32(len(entries)))
	write64(&primary, cfg.PathHashSeed)
	write32(&primary, 1)
	write64(&primary, phiOffset)
	write64(&primary, uint64(len(phiData)))
	primary.Write(phiHash[:])
	write32(&primary, 1)
	write64(&primary, fdiOffset)
	write64(&primary, uint64(len(fdiData)))
	primary.Write(fdiHash[:])
	write32(&primary, uint32(len(encoded)))
	primary.Write(encoded)
	write32(&primary, 0)
	if primary.Len() != primarySize {
		return fmt.Errorf("pak: primary index size %d, computed %d", primary.Len(), primarySize)
	}

	primaryData, primaryHash := sealIndexBuffer(primary.Bytes(), cfg.Cipher)

	ftr := footer.Footer{
		EncryptedIndex: cfg.Cipher != nil,
		Version:        cfg.Version,
		IndexOffset:    cfg.DataSize,
		IndexSize:      uint64(len(primaryData)),
		IndexHash:      primaryHash,
	}
	ftr.CompressionMethods[0] = paktype.CompressionZlib.MethodName()

	for _, buf := range [][]byte{primaryData, phiData, fdiData, ftr.Encode()} {
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("pak: writing index: %w", err)
		}
	}
	return nil
}

// encodeEntries packs all entries and records each entry's byte offset
// within the encoded blob.
func encodeEntries(entries []paktype.Entry) ([]byte, []uint32, error) {
	var blob bytes.Buffer
	offsets := make([]uint32, len(entries))
	for i := range entries {
		offsets[i] = uint32(blob.Len())
		if err := entries[i].EncodeIndexEntry(&blob); err != nil {
			return nil, nil, err
		}
	}
	return blob.Bytes(), offsets, nil
}

func buildPathHashIndex(entries []paktype.Entry, offsets []uint32, seed uint64) []byte {
	var buf bytes.Buffer
	write32(&buf, uint32(len(entries)))
	for i := range entries {
		write64(&buf, PathHash(entries[i].Path, seed))
		write32(&buf, offsets[i])
	}
	return buf.Bytes()
}

func buildDirectoryIndex(entries []paktype.Entry, offsets []uint32) []byte {
	type dirFile struct {
		name   string
		offset uint32
	}

	// Directories appear in first-seen order; files keep insertion order.
	dirOrder := make([]string, 0)
	dirs := make(map[string][]dirFile)
	for i := range entries {
		dir := pathutil.Dir(entries[i].Path)
		if _, seen := dirs[dir]; !seen {
			dirOrder = append(dirOrder, dir)
		}
		dirs[dir] = append(dirs[dir], dirFile{
			name:   pathutil.Base(entries[i].Path),
			offset: offsets[i],
		})
	}

	var buf bytes.Buffer
	write32(&buf, uint32(len(dirOrder)))
	for _, dir := range dirOrder {
		name := "/"
		if dir != "" {
			name = dir + "/"
		}
		writeFString(&buf, name)
		files := dirs[dir]
		write32(&buf, uint32(len(files)))
		for _, f := range files {
			writeFString(&buf, f.name)
			write32(&buf, f.offset)
		}
	}
	return buf.Bytes()
}

// sealIndexBuffer pads, hashes, and optionally encrypts one index buffer.
// The hash always covers the padded plaintext, so readers can authenticate
// after decryption.
func sealIndexBuffer(data []byte, cipher *crypt.Cipher) ([]byte, [20]byte) {
	if cipher == nil {
		return data, sha1.Sum(data)
	}
	padded := crypt.Pad(append([]byte(nil), data...))
	hash := sha1.Sum(padded)
	_ = cipher.EncryptInPlace(padded) // length aligned by Pad
	return padded, hash
}

func storedSize(n int, cipher *crypt.Cipher) int {
	if cipher == nil {
		return n
	}
	return int(paktype.Align(uint64(n)))
}

func write32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func write64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// writeFString encodes a length-prefixed NUL-terminated string. Archive
// paths produced by this package are always ASCII-safe UTF-8, so the
// negative-length UTF-16 form is never written.
func writeFString(buf *bytes.Buffer, s string) {
	write32(buf, uint32(len(s)+1))
	buf.WriteString(s)
	buf.WriteByte(0)
}
