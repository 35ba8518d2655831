// Package paktype defines the entry descriptor and its two wire encodings:
// the local data record preceding each payload and the bit-packed form stored
// in the archive index.
package paktype

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// EncryptionAlign is the block alignment applied to encrypted stored bytes.
const EncryptionAlign = 16

// Block describes one compressed block of an entry's stored payload.
// Offsets are relative to the start of the entry's data record.
type Block struct {
	Start uint64
	End   uint64
}

// Size returns the stored (unpadded) size of the block.
func (b Block) Size() uint64 {
	return b.End - b.Start
}

// Entry describes one archived file. Entries are created when the index is
// built (parse-time for reading, append-time for writing) and never mutated.
type Entry struct {
	// Path is the entry's archive path, forward-slash separated, case-preserving.
	Path string

	// Offset is the absolute byte position of the entry's data record.
	Offset uint64

	// CompressedSize is the stored payload size, excluding encryption padding.
	CompressedSize uint64

	// UncompressedSize is the payload size after decompression.
	UncompressedSize uint64

	// Compression is the algorithm applied to the stored payload.
	Compression Compression

	// Encrypted reports whether the stored payload is encrypted.
	Encrypted bool

	// Hash is the SHA-1 digest of the stored payload bytes, taken after
	// compression and before encryption. It is recorded in the entry's local
	// data record only; entries decoded from the index leave it zero.
	Hash [20]byte

	// Blocks lists the compressed blocks. Empty for uncompressed entries.
	Blocks []Block

	// BlockSize is the uncompressed size of each compression block except
	// possibly the last. Zero for uncompressed entries.
	BlockSize uint32
}

// Align rounds n up to the encryption block alignment.
func Align(n uint64) uint64 {
	return (n + EncryptionAlign - 1) &^ (EncryptionAlign - 1)
}

// RecordSize returns the serialized size of the entry's local data record.
// The payload begins this many bytes past Offset.
func (e *Entry) RecordSize() uint64 {
	n := uint64(8 + 8 + 8 + 4 + 20 + 1 + 4)
	if e.Compression != CompressionNone {
		n += 4 + 16*uint64(len(e.Blocks))
	}
	return n
}

// StoredSize returns the number of payload bytes occupied in the stream,
// including encryption padding.
func (e *Entry) StoredSize() uint64 {
	if !e.Encrypted {
		return e.CompressedSize
	}
	if len(e.Blocks) == 0 {
		return Align(e.CompressedSize)
	}
	var n uint64
	for _, b := range e.Blocks {
		n += Align(b.Size())
	}
	return n
}

// EncodeRecord writes the entry's local data record. The offset field of the
// local copy is always zero; the authoritative offset lives in the index.
func (e *Entry) EncodeRecord(w io.Writer) error {
	var buf bytes.Buffer
	le := binary.LittleEndian

	var scratch [8]byte
	put64 := func(v uint64) {
		le.PutUint64(scratch[:], v)
		buf.Write(scratch[:8])
	}
	put32 := func(v uint32) {
		le.PutUint32(scratch[:4], v)
		buf.Write(scratch[:4])
	}

	put64(0)
	put64(e.CompressedSize)
	put64(e.UncompressedSize)
	put32(uint32(e.Compression))
	buf.Write(e.Hash[:])
	if e.Compression != CompressionNone {
		put32(uint32(len(e.Blocks)))
		for _, b := range e.Blocks {
			put64(b.Start)
			put64(b.End)
		}
	}
	if e.Encrypted {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	put32(e.BlockSize)

	_, err := w.Write(buf.Bytes())
	return err
}

// Flag layout of the bit-packed index encoding.
const (
	flagOffset32       = 1 << 31
	flagUncompressed32 = 1 << 30
	flagCompressed32   = 1 << 29
	flagEncrypted      = 1 << 22

	methodShift     = 23
	methodMask      = 0x3f
	blockCountShift = 6
	blockCountMask  = 0xffff
	blockSizeMask   = 0x3f
	blockSizeShift  = 11

	// blockSizeExplicit in the size bits means the real block size follows
	// as a full uint32.
	blockSizeExplicit = 0x3f
)

// EncodeIndexEntry appends the entry's bit-packed index form to buf.
func (e *Entry) EncodeIndexEntry(buf *bytes.Buffer) error {
	blockCount := len(e.Blocks)
	if blockCount > blockCountMask {
		return fmt.Errorf("%w: %d compression blocks", ErrSizeOverflow, blockCount)
	}
	if e.Compression != CompressionNone && e.Compression != CompressionZlib {
		return fmt.Errorf("pak: cannot encode compression method %d", e.Compression)
	}

	flags := uint32(e.Compression&methodMask) << methodShift
	if e.Encrypted {
		flags |= flagEncrypted
	}
	flags |= uint32(blockCount) << blockCountShift

	explicitBlockSize := false
	if blockCount > 0 {
		packed := e.BlockSize >> blockSizeShift
		if packed<<blockSizeShift == e.BlockSize && packed < blockSizeExplicit {
			flags |= packed
		} else {
			flags |= blockSizeExplicit
			explicitBlockSize = true
		}
	}

	if e.Offset <= math.MaxUint32 {
		flags |= flagOffset32
	}
	if e.UncompressedSize <= math.MaxUint32 {
		flags |= flagUncompressed32
	}
	if e.CompressedSize <= math.MaxUint32 {
		flags |= flagCompressed32
	}

	le := binary.LittleEndian
	var scratch [8]byte
	put32 := func(v uint32) {
		le.PutUint32(scratch[:4], v)
		buf.Write(scratch[:4])
	}
	putVar := func(v uint64, narrow bool) {
		if narrow {
			put32(uint32(v))
			return
		}
		le.PutUint64(scratch[:], v)
		buf.Write(scratch[:8])
	}

	put32(flags)
	putVar(e.Offset, flags&flagOffset32 != 0)
	putVar(e.UncompressedSize, flags&flagUncompressed32 != 0)
	if e.Compression != CompressionNone {
		putVar(e.CompressedSize, flags&flagCompressed32 != 0)
	}
	if explicitBlockSize {
		put32(e.BlockSize)
	}
	if blockCount > 0 && (e.Encrypted || blockCount != 1) {
		for _, b := range e.Blocks {
			size := b.Size()
			if size > math.MaxUint32 {
				return fmt.Errorf("%w: compression block of %d bytes", ErrSizeOverflow, size)
			}
			put32(uint32(size))
		}
	}
	return nil
}

// DecodeIndexEntry reads one bit-packed entry from r. The caller supplies the
// path and the method mapping from the footer's compression name table.
func DecodeIndexEntry(r *bytes.Reader, methods func(index uint32) Compression) (Entry, error) {
	le := binary.LittleEndian
	var scratch [8]byte

	read32 := func() (uint32, error) {
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return 0, err
		}
		return le.Uint32(scratch[:4]), nil
	}
	readVar := func(narrow bool) (uint64, error) {
		if narrow {
			v, err := read32()
			return uint64(v), err
		}
		if _, err := io.ReadFull(r, scratch[:8]); err != nil {
			return 0, err
		}
		return le.Uint64(scratch[:8]), nil
	}

	flags, err := read32()
	if err != nil {
		return Entry{}, err
	}

	var e Entry
	methodIndex := (flags >> methodShift) & methodMask
	if methodIndex == 0 {
		e.Compression = CompressionNone
	} else {
		e.Compression = methods(methodIndex)
	}
	e.Encrypted = flags&flagEncrypted != 0

	if e.Offset, err = readVar(flags&flagOffset32 != 0); err != nil {
		return Entry{}, err
	}
	if e.UncompressedSize, err = readVar(flags&flagUncompressed32 != 0); err != nil {
		return Entry{}, err
	}
	if methodIndex != 0 {
		if e.CompressedSize, err = readVar(flags&flagCompressed32 != 0); err != nil {
			return Entry{}, err
		}
	} else {
		e.CompressedSize = e.UncompressedSize
	}

	blockCount := (flags >> blockCountShift) & blockCountMask
	if blockCount > 0 {
		sizeBits := flags & blockSizeMask
		if sizeBits == blockSizeExplicit {
			if e.BlockSize, err = read32(); err != nil {
				return Entry{}, err
			}
		} else {
			e.BlockSize = sizeBits << blockSizeShift
		}

		e.Blocks = make([]Block, 0, blockCount)
		base := uint64(8+8+8+4+20+1+4) + 4 + 16*uint64(blockCount)
		if blockCount == 1 && !e.Encrypted {
			e.Blocks = append(e.Blocks, Block{Start: base, End: base + e.CompressedSize})
		} else {
			off := base
			for i := uint32(0); i < blockCount; i++ {
				size, err := read32()
				if err != nil {
					return Entry{}, err
				}
				e.Blocks = append(e.Blocks, Block{Start: off, End: off + uint64(size)})
				if e.Encrypted {
					off += Align(uint64(size))
				} else {
					off += uint64(size)
				}
			}
		}
	}
	return e, nil
}
