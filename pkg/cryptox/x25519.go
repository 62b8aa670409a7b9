package cryptox

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the raw encoding size of X25519 public keys, private keys and
// derived shared secrets.
const KeySize = 32

// GenerateX25519 creates a fresh X25519 key pair. The private key is random
// scalar material; the public key is its raw 32-byte curve point encoding.
func GenerateX25519() (public, private [KeySize]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, private[:]); err != nil {
		return public, private, fmt.Errorf("cryptox: generate private key: %w", err)
	}

	pub, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return public, private, fmt.Errorf("cryptox: derive public key: %w", err)
	}
	copy(public[:], pub)
	return public, private, nil
}

// SharedSecret computes the Diffie-Hellman shared secret between our private
// key and the peer's raw public key. Both honest sides of an exchange arrive
// at the same 32-byte value.
func SharedSecret(private [KeySize]byte, peerPublic []byte) ([KeySize]byte, error) {
	var secret [KeySize]byte
	if len(peerPublic) != KeySize {
		return secret, fmt.Errorf("cryptox: peer public key must be %d bytes, got %d", KeySize, len(peerPublic))
	}

	s, err := curve25519.X25519(private[:], peerPublic)
	if err != nil {
		return secret, fmt.Errorf("cryptox: compute shared secret: %w", err)
	}
	copy(secret[:], s)
	return secret, nil
}
