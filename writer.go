package pak

import (
	"crypto/sha1"
	"fmt"
	"io"
	"log/slog"

	"github.com/mtmods/pak/internal/codec"
	"github.com/mtmods/pak/internal/footer"
	"github.com/mtmods/pak/internal/pakindex"
	"github.com/mtmods/pak/internal/paktype"
)

const (
	// DefaultMountPoint is the mount point written to new archives.
	DefaultMountPoint = "../../../"

	// compressionBlockSize is the uncompressed input per compression block.
	compressionBlockSize = 64 << 10
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMountPoint sets the archive mount point (default "../../../").
func WithMountPoint(mountPoint string) WriterOption {
	return func(w *Writer) {
		w.mountPoint = mountPoint
	}
}

// WithPathHashSeed sets the seed recorded in the path hash index (default 0).
func WithPathHashSeed(seed uint64) WriterOption {
	return func(w *Writer) {
		w.pathHashSeed = seed
	}
}

// WithWriterLogger attaches a logger for operational detail.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// Writer builds a new archive from scratch, one entry at a time.
//
// Entries are appended sequentially; WriteIndex finalizes the archive by
// serializing the index footer. A Writer that errors or is abandoned before
// WriteIndex leaves a stream with payload bytes but no valid footer, which a
// Reader correctly reports as ErrCorruptIndex. Entries written for mod
// content are never encrypted.
type Writer struct {
	dst          io.Writer
	written      uint64
	entries      []paktype.Entry
	byPath       map[string]struct{}
	mountPoint   string
	pathHashSeed uint64
	finalized    bool
	logger       *slog.Logger
}

// NewWriter creates a Writer producing a version 11 archive on dst.
func NewWriter(dst io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{
		dst:        dst,
		byPath:     make(map[string]struct{}),
		mountPoint: DefaultMountPoint,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// log returns the logger, falling back to a discard logger if nil.
func (w *Writer) log() *slog.Logger {
	if w.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return w.logger
}

// WriteFile appends one entry. When compress is set the payload is
// deflate-compressed in 64 KiB blocks; if compression does not shrink the
// payload it is stored uncompressed instead, preserving the invariant that
// the stored size never exceeds the original.
//
// Writing a path that already exists fails with ErrDuplicatePath and leaves
// the first entry in place. Calling WriteFile after WriteIndex fails with
// ErrWriterFinalized.
func (w *Writer) WriteFile(path string, compress bool, data []byte) error {
	if w.finalized {
		return fmt.Errorf("%w: WriteFile(%s) after WriteIndex", ErrWriterFinalized, path)
	}
	if _, dup := w.byPath[path]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, path)
	}

	entry := paktype.Entry{
		Path:             path,
		Offset:           w.written,
		UncompressedSize: uint64(len(data)),
	}

	stored := [][]byte{data}
	if compress {
		blocks, total, err := deflateBlocks(data)
		if err != nil {
			return err
		}
		if total < uint64(len(data)) {
			entry.Compression = paktype.CompressionZlib
			entry.CompressedSize = total
			entry.BlockSize = compressionBlockSize
			stored = blocks
		}
	}
	if entry.Compression == paktype.CompressionNone {
		entry.CompressedSize = entry.UncompressedSize
	}

	hasher := sha1.New()
	for _, block := range stored {
		hasher.Write(block)
	}
	copy(entry.Hash[:], hasher.Sum(nil))

	if entry.Compression != paktype.CompressionNone {
		entry.Blocks = make([]paktype.Block, len(stored))
		// Block offsets are relative to the record start; the record size
		// depends on the block count, which is already known.
		entry.Blocks[0].Start = 8 + 8 + 8 + 4 + 20 + 1 + 4 + 4 + 16*uint64(len(stored))
		entry.Blocks[0].End = entry.Blocks[0].Start + uint64(len(stored[0]))
		for i := 1; i < len(stored); i++ {
			entry.Blocks[i].Start = entry.Blocks[i-1].End
			entry.Blocks[i].End = entry.Blocks[i].Start + uint64(len(stored[i]))
		}
	}

	if err := entry.EncodeRecord(w.dst); err != nil {
		return fmt.Errorf("pak: writing record for %s: %w", path, err)
	}
	w.written += entry.RecordSize()
	for _, block := range stored {
		if _, err := w.dst.Write(block); err != nil {
			return fmt.Errorf("pak: writing payload for %s: %w", path, err)
		}
		w.written += uint64(len(block))
	}

	w.byPath[path] = struct{}{}
	w.entries = append(w.entries, entry)
	w.log().Debug("entry written",
		"path", path,
		"bytes", entry.UncompressedSize,
		"stored_bytes", entry.CompressedSize,
		"compression", entry.Compression.String(),
	)
	return nil
}

// WriteIndex serializes the accumulated index as a footer, finalizing the
// archive. It must be called exactly once, after all WriteFile calls; a
// second call fails with ErrWriterFinalized.
func (w *Writer) WriteIndex() error {
	if w.finalized {
		return fmt.Errorf("%w: WriteIndex called twice", ErrWriterFinalized)
	}
	err := pakindex.Build(w.dst, w.entries, pakindex.BuildConfig{
		Version:      footer.Version11,
		MountPoint:   w.mountPoint,
		PathHashSeed: w.pathHashSeed,
		DataSize:     w.written,
	})
	if err != nil {
		return err
	}
	w.finalized = true
	w.log().Debug("archive finalized", "entries", len(w.entries), "payload_bytes", w.written)
	return nil
}

// Len returns the number of entries written so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// deflateBlocks compresses data in fixed-size blocks and returns the blocks
// with their total compressed size.
func deflateBlocks(data []byte) ([][]byte, uint64, error) {
	blockCount := (len(data) + compressionBlockSize - 1) / compressionBlockSize
	if blockCount == 0 {
		blockCount = 1
	}

	blocks := make([][]byte, 0, blockCount)
	var total uint64
	for start := 0; start < len(data) || len(blocks) == 0; start += compressionBlockSize {
		end := min(start+compressionBlockSize, len(data))
		block, err := codec.Compress(data[start:end])
		if err != nil {
			return nil, 0, err
		}
		blocks = append(blocks, block)
		total += uint64(len(block))
	}
	return blocks, total, nil
}
