package paktype

import "errors"

// Sentinel errors for pak operations.
var (
	// ErrCorruptIndex is returned when the archive footer or index cannot be parsed.
	ErrCorruptIndex = errors.New("pak: corrupt index")

	// ErrUnsupportedVersion is returned when the footer carries a pak version
	// other than the one this package reads and writes.
	ErrUnsupportedVersion = errors.New("pak: unsupported pak version")

	// ErrKeyMismatch is returned when an encrypted index does not validate
	// against the supplied key, or when the index is encrypted and no key
	// was provided.
	ErrKeyMismatch = errors.New("pak: index key mismatch")

	// ErrEntryNotFound is returned when a path has no entry in the index.
	ErrEntryNotFound = errors.New("pak: entry not found")

	// ErrDecryption is returned when decrypting an entry does not produce
	// structurally valid plaintext.
	ErrDecryption = errors.New("pak: decryption failed")

	// ErrDecompression is returned when the codec rejects an entry's stored bytes.
	ErrDecompression = errors.New("pak: decompression failed")

	// ErrHashMismatch is returned when an unencrypted entry's stored bytes do
	// not match the hash recorded in its descriptor.
	ErrHashMismatch = errors.New("pak: hash verification failed")

	// ErrDuplicatePath is returned when a path is written twice to one archive.
	ErrDuplicatePath = errors.New("pak: duplicate path")

	// ErrWriterFinalized is returned when a Writer is used after WriteIndex.
	ErrWriterFinalized = errors.New("pak: writer finalized")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("pak: size overflow")
)
