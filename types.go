package pak

import "github.com/mtmods/pak/internal/paktype"

// Entry describes one archived file: its path, storage location, sizes,
// compression method, encryption flag, and content hash.
type Entry = paktype.Entry

// Compression identifies the compression algorithm used for an entry.
type Compression = paktype.Compression

// Compression constants.
const (
	CompressionNone = paktype.CompressionNone
	CompressionZlib = paktype.CompressionZlib
)
