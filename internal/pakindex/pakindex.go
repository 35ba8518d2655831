// Package pakindex materializes the archive directory from the on-disk index
// structures and serializes it back when writing: the primary index, the
// path hash index, and the full directory index, each independently hashed
// and optionally encrypted as a whole.
package pakindex

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/mtmods/pak/internal/crypt"
	"github.com/mtmods/pak/internal/footer"
	"github.com/mtmods/pak/internal/paktype"
	"github.com/mtmods/pak/internal/sizing"
)

// Index is the immutable in-memory directory of an archive.
type Index struct {
	version      uint32
	mountPoint   string
	pathHashSeed uint64
	entries      []paktype.Entry
	byPath       map[string]int
}

// Version returns the archive format version.
func (idx *Index) Version() uint32 { return idx.version }

// MountPoint returns the path prefix all entries are conceptually relative to.
func (idx *Index) MountPoint() string { return idx.mountPoint }

// PathHashSeed returns the seed used by the path hash index.
func (idx *Index) PathHashSeed() uint64 { return idx.pathHashSeed }

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Paths returns all entry paths in index order.
func (idx *Index) Paths() []string {
	paths := make([]string, len(idx.entries))
	for i := range idx.entries {
		paths[i] = idx.entries[i].Path
	}
	return paths
}

// Lookup returns the entry for an exact path match.
func (idx *Index) Lookup(path string) (paktype.Entry, bool) {
	i, ok := idx.byPath[path]
	if !ok {
		return paktype.Entry{}, false
	}
	return idx.entries[i], true
}

// Parse reads and validates the index structures addressed by ftr.
//
// When the footer flags an encrypted index, cipher must be non-nil; the
// decrypted buffers are authenticated against their recorded SHA-1 hashes,
// so a wrong key surfaces as ErrKeyMismatch rather than garbage entries.
func Parse(src io.ReaderAt, ftr *footer.Footer, cipher *crypt.Cipher) (*Index, error) {
	if ftr.EncryptedIndex && cipher == nil {
		return nil, fmt.Errorf("%w: index is encrypted and no key was provided", paktype.ErrKeyMismatch)
	}

	primary, err := readIndexBuffer(src, ftr, ftr.IndexOffset, ftr.IndexSize, ftr.IndexHash, cipher)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(primary)
	idx := &Index{version: ftr.Version}

	if idx.mountPoint, err = readFString(r); err != nil {
		return nil, fmt.Errorf("%w: mount point: %v", paktype.ErrCorruptIndex, err)
	}
	entryCount, err := read32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: entry count: %v", paktype.ErrCorruptIndex, err)
	}
	if idx.pathHashSeed, err = read64(r); err != nil {
		return nil, fmt.Errorf("%w: path hash seed: %v", paktype.ErrCorruptIndex, err)
	}

	phi, err := readSecondaryLocation(r)
	if err != nil {
		return nil, fmt.Errorf("%w: path hash index location: %v", paktype.ErrCorruptIndex, err)
	}
	fdi, err := readSecondaryLocation(r)
	if err != nil {
		return nil, fmt.Errorf("%w: directory index location: %v", paktype.ErrCorruptIndex, err)
	}
	if fdi == nil {
		return nil, fmt.Errorf("%w: full directory index missing", paktype.ErrCorruptIndex)
	}

	encodedSize, err := read32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: encoded entries size: %v", paktype.ErrCorruptIndex, err)
	}
	if uint64(encodedSize) > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: encoded entries truncated", paktype.ErrCorruptIndex)
	}
	encoded := make([]byte, encodedSize)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return nil, fmt.Errorf("%w: encoded entries: %v", paktype.ErrCorruptIndex, err)
	}
	nonEncoded, err := read32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: entry list: %v", paktype.ErrCorruptIndex, err)
	}
	if nonEncoded != 0 {
		return nil, fmt.Errorf("%w: archive carries %d non-encoded entries", paktype.ErrCorruptIndex, nonEncoded)
	}

	// The path hash index is not needed for exact-match lookup, but its
	// checksum still participates in index validation when present.
	if phi != nil {
		if _, err := readIndexBuffer(src, ftr, phi.offset, phi.size, phi.hash, cipher); err != nil {
			return nil, err
		}
	}

	fdiData, err := readIndexBuffer(src, ftr, fdi.offset, fdi.size, fdi.hash, cipher)
	if err != nil {
		return nil, err
	}
	if err := idx.parseDirectoryIndex(fdiData, encoded, ftr); err != nil {
		return nil, err
	}
	if uint32(len(idx.entries)) != entryCount {
		return nil, fmt.Errorf("%w: directory index lists %d entries, primary index %d",
			paktype.ErrCorruptIndex, len(idx.entries), entryCount)
	}
	return idx, nil
}

// parseDirectoryIndex decodes the full directory index and, per listed file,
// the bit-packed entry it references.
func (idx *Index) parseDirectoryIndex(data, encoded []byte, ftr *footer.Footer) error {
	r := bytes.NewReader(data)
	dirCount, err := read32(r)
	if err != nil {
		return fmt.Errorf("%w: directory count: %v", paktype.ErrCorruptIndex, err)
	}

	idx.byPath = make(map[string]int)
	for di := uint32(0); di < dirCount; di++ {
		dirName, err := readFString(r)
		if err != nil {
			return fmt.Errorf("%w: directory name: %v", paktype.ErrCorruptIndex, err)
		}
		fileCount, err := read32(r)
		if err != nil {
			return fmt.Errorf("%w: file count: %v", paktype.ErrCorruptIndex, err)
		}
		for fi := uint32(0); fi < fileCount; fi++ {
			fileName, err := readFString(r)
			if err != nil {
				return fmt.Errorf("%w: file name: %v", paktype.ErrCorruptIndex, err)
			}
			encodedOffset, err := read32(r)
			if err != nil {
				return fmt.Errorf("%w: entry offset: %v", paktype.ErrCorruptIndex, err)
			}
			if uint64(encodedOffset) >= uint64(len(encoded)) {
				return fmt.Errorf("%w: entry offset %d out of range", paktype.ErrCorruptIndex, encodedOffset)
			}

			entry, err := paktype.DecodeIndexEntry(bytes.NewReader(encoded[encodedOffset:]), ftr.Method)
			if err != nil {
				return fmt.Errorf("%w: decoding entry: %v", paktype.ErrCorruptIndex, err)
			}
			entry.Path = joinDir(dirName, fileName)
			if _, dup := idx.byPath[entry.Path]; dup {
				return fmt.Errorf("%w: duplicate path %q", paktype.ErrCorruptIndex, entry.Path)
			}
			idx.byPath[entry.Path] = len(idx.entries)
			idx.entries = append(idx.entries, entry)
		}
	}
	return nil
}

// readIndexBuffer loads one index buffer, decrypts it when the footer flags
// an encrypted index, and authenticates it against the recorded hash.
func readIndexBuffer(src io.ReaderAt, ftr *footer.Footer, offset, size uint64, hash [20]byte, cipher *crypt.Cipher) ([]byte, error) {
	off, err := sizing.ToInt64(offset, paktype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("%w: index offset", paktype.ErrCorruptIndex)
	}
	n, err := sizing.ToInt(size, paktype.ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("%w: index size", paktype.ErrCorruptIndex)
	}

	data := make([]byte, n)
	if _, err := src.ReadAt(data, off); err != nil {
		return nil, fmt.Errorf("%w: reading index: %v", paktype.ErrCorruptIndex, err)
	}
	if ftr.EncryptedIndex {
		if err := cipher.DecryptInPlace(data); err != nil {
			return nil, fmt.Errorf("%w: %v", paktype.ErrCorruptIndex, err)
		}
	}
	if sha1.Sum(data) != hash {
		if ftr.EncryptedIndex {
			return nil, fmt.Errorf("%w: index hash check failed after decryption", paktype.ErrKeyMismatch)
		}
		return nil, fmt.Errorf("%w: index hash check failed", paktype.ErrCorruptIndex)
	}
	return data, nil
}

type secondaryLocation struct {
	offset uint64
	size   uint64
	hash   [20]byte
}

func readSecondaryLocation(r *bytes.Reader) (*secondaryLocation, error) {
	present, err := read32(r)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	var loc secondaryLocation
	if loc.offset, err = read64(r); err != nil {
		return nil, err
	}
	if loc.size, err = read64(r); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, loc.hash[:]); err != nil {
		return nil, err
	}
	return &loc, nil
}

// joinDir combines a directory-index directory name (trailing slash, "/" for
// the root) with a file name.
func joinDir(dir, file string) string {
	if dir == "/" || dir == "" {
		return file
	}
	return dir + file
}

// PathHash computes the hash used by the path hash index: an FNV-1a-64
// variant whose basis is offset by the archive's seed, taken over the
// UTF-16LE bytes of the lowercased path.
func PathHash(path string, seed uint64) uint64 {
	const prime = 0x00000100000001b3
	h := uint64(0xcbf29ce484222325) + seed
	for _, cu := range utf16.Encode([]rune(strings.ToLower(path))) {
		h ^= uint64(cu & 0xff)
		h *= prime
		h ^= uint64(cu >> 8)
		h *= prime
	}
	return h
}

func read32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func read64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// readFString decodes a length-prefixed string: a positive length counts
// UTF-8 bytes including the terminating NUL, a negative length counts
// UTF-16LE code units including the terminator.
func readFString(r *bytes.Reader) (string, error) {
	n32, err := read32(r)
	if err != nil {
		return "", err
	}
	n := int32(n32)
	switch {
	case n == 0:
		return "", nil
	case n > 0:
		if int(n) > r.Len() {
			return "", fmt.Errorf("string of %d bytes truncated", n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		if buf[n-1] != 0 {
			return "", fmt.Errorf("string missing terminator")
		}
		return string(buf[:n-1]), nil
	default:
		count := int(-n)
		if count*2 > r.Len() {
			return "", fmt.Errorf("string of %d code units truncated", count)
		}
		buf := make([]byte, count*2)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		units := make([]uint16, count)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(buf[i*2:])
		}
		if units[count-1] != 0 {
			return "", fmt.Errorf("string missing terminator")
		}
		return string(utf16.Decode(units[:count-1])), nil
	}
}
