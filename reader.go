package pak

import (
	"crypto/sha1"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mtmods/pak/internal/codec"
	"github.com/mtmods/pak/internal/crypt"
	"github.com/mtmods/pak/internal/footer"
	"github.com/mtmods/pak/internal/pakindex"
	"github.com/mtmods/pak/internal/paktype"
	"github.com/mtmods/pak/internal/sizing"
)

// ByteSource provides random access to an archive stream.
//
// *os.File satisfies it via the fileSource adapter returned by OpenFile;
// *bytes.Reader satisfies it directly.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithKey supplies the archive's cipher key. Required when the index or any
// entry is encrypted. The key's scope is the duration of this open call and
// the returned Reader's lifetime.
func WithKey(key Key) ReaderOption {
	return func(r *Reader) {
		r.key = key
		r.keySet = true
	}
}

// WithLogger attaches a logger for operational detail. The key is never logged.
func WithLogger(logger *slog.Logger) ReaderOption {
	return func(r *Reader) {
		r.logger = logger
	}
}

// Reader provides random-access entry retrieval over an archive stream.
//
// A Reader owns or exclusively borrows its backing stream for its full
// lifetime; repeated Get calls re-derive the stream position from the entry
// descriptor, so entries may be fetched in any order, any number of times.
type Reader struct {
	idx    *pakindex.Index
	src    ByteSource
	cipher *crypt.Cipher
	closer io.Closer
	logger *slog.Logger
	key    Key
	keySet bool
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Reader) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.logger
}

// OpenReader parses and validates the archive index from source.
//
// It fails with ErrCorruptIndex when the footer or index structures cannot
// be parsed, ErrUnsupportedVersion for any pak version other than 11, and
// ErrKeyMismatch when the index is encrypted and the supplied key does not
// authenticate it (or no key was supplied).
func OpenReader(source ByteSource, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{src: source}
	for _, opt := range opts {
		opt(r)
	}

	if r.keySet {
		cipher, err := crypt.New(r.key)
		if err != nil {
			return nil, err
		}
		r.cipher = cipher
	}

	size := source.Size()
	if size < footer.Size {
		return nil, fmt.Errorf("%w: stream of %d bytes is too small for a footer", ErrCorruptIndex, size)
	}
	ftrData := make([]byte, footer.Size)
	if _, err := source.ReadAt(ftrData, size-footer.Size); err != nil {
		return nil, fmt.Errorf("%w: reading footer: %v", ErrCorruptIndex, err)
	}
	ftr, err := footer.Parse(ftrData)
	if err != nil {
		return nil, err
	}

	idx, err := pakindex.Parse(source, ftr, r.cipher)
	if err != nil {
		return nil, err
	}
	r.idx = idx

	r.log().Debug("archive opened",
		"entries", idx.Len(),
		"version", idx.Version(),
		"mount_point", idx.MountPoint(),
		"encrypted_index", ftr.EncryptedIndex,
	)
	return r, nil
}

// OpenFile opens the archive at path and returns a Reader that owns the
// underlying file; Close releases it.
func OpenFile(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := OpenReader(&fileSource{File: f, size: info.Size()}, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Close releases the backing stream when the Reader owns it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// List returns all entry paths in index order.
func (r *Reader) List() []string {
	return r.idx.Paths()
}

// Len returns the number of entries in the archive.
func (r *Reader) Len() int {
	return r.idx.Len()
}

// MountPoint returns the path prefix all entries are conceptually relative to.
func (r *Reader) MountPoint() string {
	return r.idx.MountPoint()
}

// Version returns the archive format version.
func (r *Reader) Version() int {
	return int(r.idx.Version())
}

// Entry returns the descriptor for an exact path match.
func (r *Reader) Entry(path string) (Entry, bool) {
	return r.idx.Lookup(path)
}

// Get retrieves an entry's payload by exact path match, decrypting and
// decompressing on demand.
//
// Get performs no caching: repeated lookups re-read from the backing stream.
// Failure modes: ErrEntryNotFound for an absent path, ErrDecryption when the
// key does not produce structurally valid plaintext, ErrDecompression when
// the codec rejects the stored bytes, and ErrHashMismatch when an
// unencrypted entry fails its integrity check.
func (r *Reader) Get(path string) ([]byte, error) {
	entry, ok := r.idx.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
	}
	if entry.Encrypted && r.cipher == nil {
		return nil, fmt.Errorf("%w: entry %s is encrypted and no key was provided", ErrDecryption, path)
	}
	if entry.Compression == paktype.CompressionInvalid {
		return nil, fmt.Errorf("%w: entry %s uses an unsupported compression method", ErrDecompression, path)
	}

	// The bit-packed index encoding does not carry the payload digest; it
	// lives in the local data record ahead of the payload.
	recordHash, err := r.recordHash(&entry)
	if err != nil {
		return nil, fmt.Errorf("pak: reading %s: %w", path, err)
	}

	blocks, err := r.readStored(&entry)
	if err != nil {
		return nil, fmt.Errorf("pak: reading %s: %w", path, err)
	}

	hasher := sha1.New()
	for _, block := range blocks {
		hasher.Write(block)
	}
	if [20]byte(hasher.Sum(nil)) != recordHash {
		if entry.Encrypted {
			return nil, fmt.Errorf("%w: entry %s failed its integrity check after decryption", ErrDecryption, path)
		}
		return nil, fmt.Errorf("%w: entry %s", ErrHashMismatch, path)
	}

	if entry.Compression == CompressionNone {
		r.log().Debug("entry read", "path", path, "bytes", len(blocks[0]), "compression", "none")
		return blocks[0], nil
	}

	out, err := r.inflate(&entry, blocks)
	if err != nil {
		return nil, err
	}
	r.log().Debug("entry read",
		"path", path,
		"bytes", len(out),
		"compressed_bytes", entry.CompressedSize,
		"compression", entry.Compression.String(),
	)
	return out, nil
}

// recordHash reads the SHA-1 digest from the entry's local data record: 20
// bytes past the record's offset, compressed size, uncompressed size, and
// method fields. Record headers are stored in the clear even for encrypted
// entries.
func (r *Reader) recordHash(entry *Entry) ([20]byte, error) {
	var hash [20]byte
	off, err := sizing.ToInt64(entry.Offset+8+8+8+4, ErrSizeOverflow)
	if err != nil {
		return hash, err
	}
	if _, err := r.src.ReadAt(hash[:], off); err != nil {
		return hash, err
	}
	return hash, nil
}

// readStored reads the entry's stored payload block by block, decrypting in
// place and trimming encryption padding. Uncompressed entries yield a single
// block.
func (r *Reader) readStored(entry *Entry) ([][]byte, error) {
	blocks := entry.Blocks
	if len(blocks) == 0 {
		record := entry.RecordSize()
		blocks = []paktype.Block{{Start: record, End: record + entry.CompressedSize}}
	}

	out := make([][]byte, 0, len(blocks))
	for _, block := range blocks {
		size := block.Size()
		stored := size
		if entry.Encrypted {
			stored = paktype.Align(size)
		}
		n, err := sizing.ToInt(stored, ErrSizeOverflow)
		if err != nil {
			return nil, err
		}
		offset, err := sizing.ToInt64(entry.Offset+block.Start, ErrSizeOverflow)
		if err != nil {
			return nil, err
		}

		data := make([]byte, n)
		if _, err := r.src.ReadAt(data, offset); err != nil {
			return nil, err
		}
		if entry.Encrypted {
			if err := r.cipher.DecryptInPlace(data); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
			}
			data = data[:size]
		}
		out = append(out, data)
	}
	return out, nil
}

// inflate decompresses the stored blocks and validates the total size.
func (r *Reader) inflate(entry *Entry, blocks [][]byte) ([]byte, error) {
	total, err := sizing.ToInt(entry.UncompressedSize, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	blockSize := int(entry.BlockSize)
	if blockSize == 0 {
		blockSize = total
	}

	out := make([]byte, 0, total)
	remaining := total
	for _, block := range blocks {
		expected := min(blockSize, remaining)
		plain, err := codec.Decompress(block, expected)
		if err != nil {
			return nil, fmt.Errorf("pak: entry %s: %w", entry.Path, err)
		}
		out = append(out, plain...)
		remaining -= expected
	}
	if remaining != 0 {
		return nil, fmt.Errorf("%w: entry %s inflated to %d bytes, want %d",
			ErrDecompression, entry.Path, total-remaining, total)
	}
	return out, nil
}

// fileSource adapts an *os.File to ByteSource with a size captured at open.
type fileSource struct {
	*os.File
	size int64
}

func (s *fileSource) Size() int64 {
	return s.size
}
