// Package footer parses and serializes the fixed-size structure at the end
// of a pak stream: the index location, its integrity hash, the encryption
// flag, and the compression method name table.
package footer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mtmods/pak/internal/paktype"
)

const (
	// Magic identifies a pak footer.
	Magic = 0x5A6F12E1

	// Version11 is the only pak format version in active use.
	Version11 = 11

	// methodSlots is the number of compression method name slots (version 11).
	methodSlots = 5

	// methodNameLen is the fixed width of each method name slot.
	methodNameLen = 32

	// Size is the serialized footer size for version 11:
	// key GUID + encrypted flag + magic + version + index offset/size +
	// index hash + method name table.
	Size = 16 + 1 + 4 + 4 + 8 + 8 + 20 + methodSlots*methodNameLen
)

// Footer is the parsed footer of a pak stream.
type Footer struct {
	EncryptionKeyGUID  [16]byte
	EncryptedIndex     bool
	Version            uint32
	IndexOffset        uint64
	IndexSize          uint64
	IndexHash          [20]byte
	CompressionMethods [methodSlots]string
}

// Parse decodes the final Size bytes of a stream.
func Parse(data []byte) (*Footer, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("%w: footer is %d bytes, want %d", paktype.ErrCorruptIndex, len(data), Size)
	}

	var f Footer
	le := binary.LittleEndian

	copy(f.EncryptionKeyGUID[:], data[:16])
	f.EncryptedIndex = data[16] != 0

	if magic := le.Uint32(data[17:]); magic != Magic {
		return nil, fmt.Errorf("%w: bad magic %#08x", paktype.ErrCorruptIndex, magic)
	}
	f.Version = le.Uint32(data[21:])
	if f.Version != Version11 {
		return nil, fmt.Errorf("%w: version %d", paktype.ErrUnsupportedVersion, f.Version)
	}

	f.IndexOffset = le.Uint64(data[25:])
	f.IndexSize = le.Uint64(data[33:])
	copy(f.IndexHash[:], data[41:61])

	for i := 0; i < methodSlots; i++ {
		slot := data[61+i*methodNameLen : 61+(i+1)*methodNameLen]
		f.CompressionMethods[i] = string(bytes.TrimRight(slot, "\x00"))
	}
	return &f, nil
}

// Method maps an entry's compression method index onto the algorithm named in
// the footer table. Index 0 means no compression; unknown names map to
// paktype.CompressionInvalid and fail at read time, not parse time.
func (f *Footer) Method(index uint32) paktype.Compression {
	if index == 0 {
		return paktype.CompressionNone
	}
	if int(index) > methodSlots {
		return paktype.CompressionInvalid
	}
	switch f.CompressionMethods[index-1] {
	case "Zlib", "zlib":
		return paktype.CompressionZlib
	default:
		return paktype.CompressionInvalid
	}
}

// Encode serializes the footer.
func (f *Footer) Encode() []byte {
	out := make([]byte, Size)
	le := binary.LittleEndian

	copy(out[:16], f.EncryptionKeyGUID[:])
	if f.EncryptedIndex {
		out[16] = 1
	}
	le.PutUint32(out[17:], Magic)
	le.PutUint32(out[21:], f.Version)
	le.PutUint64(out[25:], f.IndexOffset)
	le.PutUint64(out[33:], f.IndexSize)
	copy(out[41:61], f.IndexHash[:])

	for i, name := range f.CompressionMethods {
		copy(out[61+i*methodNameLen:61+(i+1)*methodNameLen], name)
	}
	return out
}
