// Package cryptox provides the cryptographic primitives used by the session
// protocol: AES-CBC with PKCS7 padding for credential and token payloads,
// X25519 key agreement for the per-session shared secret, and the credential
// digest scheme.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

// ErrDecode reports malformed ciphertext: a length that is not a multiple of
// the block size, or invalid PKCS7 padding after decryption. Callers must not
// distinguish further; a wrong key and corrupted data look the same.
var ErrDecode = errors.New("cryptox: malformed ciphertext")

// EncryptCBC encrypts plaintext with AES in CBC mode using PKCS7 padding.
// The IV is caller-supplied and must be one block (16 bytes) long; it is
// transmitted alongside the ciphertext, never derived from it.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("cryptox: iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}

	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// DecryptCBC reverses EncryptCBC. It returns ErrDecode when the ciphertext
// length is not a multiple of the block size or the padding is invalid.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("cryptox: iv must be %d bytes, got %d", block.BlockSize(), len(iv))
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, ErrDecode
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrDecode
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrDecode
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrDecode
		}
	}
	return data[:len(data)-n], nil
}
