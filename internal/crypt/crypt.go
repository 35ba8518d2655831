// Package crypt wraps the archive's symmetric cipher: AES-256 applied
// independently to each 16-byte block (the pak convention), over byte buffers.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// KeySize is the required key length in bytes.
const KeySize = 32

// Cipher encrypts and decrypts 16-byte-aligned buffers in place.
type Cipher struct {
	block cipher.Block
}

// New creates a Cipher from a 32-byte key.
func New(key [KeySize]byte) (*Cipher, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("pak: creating cipher: %w", err)
	}
	return &Cipher{block: block}, nil
}

// DecryptInPlace decrypts data block by block. The length must be a multiple
// of the cipher block size.
func (c *Cipher) DecryptInPlace(data []byte) error {
	if len(data)%c.block.BlockSize() != 0 {
		return fmt.Errorf("pak: ciphertext length %d is not block aligned", len(data))
	}
	bs := c.block.BlockSize()
	for off := 0; off < len(data); off += bs {
		c.block.Decrypt(data[off:off+bs], data[off:off+bs])
	}
	return nil
}

// EncryptInPlace encrypts data block by block. The length must be a multiple
// of the cipher block size.
func (c *Cipher) EncryptInPlace(data []byte) error {
	if len(data)%c.block.BlockSize() != 0 {
		return fmt.Errorf("pak: plaintext length %d is not block aligned", len(data))
	}
	bs := c.block.BlockSize()
	for off := 0; off < len(data); off += bs {
		c.block.Encrypt(data[off:off+bs], data[off:off+bs])
	}
	return nil
}

// Pad returns data extended with zero bytes to the cipher block alignment.
// The original slice is returned unchanged when already aligned.
func Pad(data []byte) []byte {
	rem := len(data) % 16
	if rem == 0 {
		return data
	}
	return append(data, make([]byte, 16-rem)...)
}
