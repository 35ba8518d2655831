// Package codec wraps the archive's deflate-family compressor over byte
// buffers. The pak format names the method "Zlib" in its footer table.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/mtmods/pak/internal/paktype"
)

// Compress deflates data and returns the zlib stream.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, fmt.Errorf("pak: compressing: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("pak: compressing: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates a zlib stream, enforcing the expected uncompressed
// size. A stream the codec rejects, or one that inflates to the wrong size,
// yields ErrDecompression.
func Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", paktype.ErrDecompression, err)
	}
	defer zr.Close()

	out := make([]byte, uncompressedSize)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("%w: %v", paktype.ErrDecompression, err)
	}

	// A conforming stream ends exactly at the recorded size.
	var extra [1]byte
	if n, _ := zr.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: stream longer than recorded size", paktype.ErrDecompression)
	}
	return out, nil
}
