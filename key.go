package pak

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/mtmods/pak/internal/crypt"
)

// KeySize is the required cipher key length in bytes.
const KeySize = crypt.KeySize

// Key is the archive's fixed-size symmetric key. It is held for the lifetime
// of one invocation and must never be persisted or logged.
type Key [KeySize]byte

// ParseKey decodes a 64-character hexadecimal key string, with or without a
// leading "0x" prefix.
func ParseKey(s string) (Key, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("pak: key is not valid hex: %w", err)
	}
	if len(raw) != KeySize {
		return Key{}, fmt.Errorf("pak: key must be %d bytes, got %d", KeySize, len(raw))
	}
	var key Key
	copy(key[:], raw)
	return key, nil
}

// KeyFromEnv reads and parses the key from the named environment variable.
// An unset variable is an error: callers requiring a key must fail before
// any archive I/O.
func KeyFromEnv(name string) (Key, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return Key{}, fmt.Errorf("pak: environment variable %s is not set", name)
	}
	return ParseKey(value)
}
