package paktype

// Compression identifies the compression algorithm used for an entry.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZlib

	// CompressionInvalid marks entries whose footer method name is not
	// recognized. Such entries fail on read, not at index parse time.
	CompressionInvalid Compression = 0xff
)

// String returns the human-readable name of the compression algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	default:
		return "unknown"
	}
}

// MethodName returns the name recorded in the footer's compression method
// table, or "" for uncompressed entries.
func (c Compression) MethodName() string {
	if c == CompressionZlib {
		return "Zlib"
	}
	return ""
}
