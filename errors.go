package pak

import "github.com/mtmods/pak/internal/paktype"

// Errors re-exported from the internal wire packages.
var (
	// ErrCorruptIndex is returned when the archive footer or index cannot be parsed.
	ErrCorruptIndex = paktype.ErrCorruptIndex

	// ErrUnsupportedVersion is returned for pak versions this package does not handle.
	ErrUnsupportedVersion = paktype.ErrUnsupportedVersion

	// ErrKeyMismatch is returned when an encrypted index does not validate
	// against the supplied key.
	ErrKeyMismatch = paktype.ErrKeyMismatch

	// ErrEntryNotFound is returned when a path has no entry in the index.
	ErrEntryNotFound = paktype.ErrEntryNotFound

	// ErrDecryption is returned when decrypting an entry does not produce
	// structurally valid plaintext.
	ErrDecryption = paktype.ErrDecryption

	// ErrDecompression is returned when the codec rejects an entry's stored bytes.
	ErrDecompression = paktype.ErrDecompression

	// ErrHashMismatch is returned when an unencrypted entry's stored bytes
	// fail their integrity check.
	ErrHashMismatch = paktype.ErrHashMismatch

	// ErrDuplicatePath is returned when a path is written twice to one archive.
	ErrDuplicatePath = paktype.ErrDuplicatePath

	// ErrWriterFinalized is returned when a Writer is used after WriteIndex.
	ErrWriterFinalized = paktype.ErrWriterFinalized

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = paktype.ErrSizeOverflow
)
