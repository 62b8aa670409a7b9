package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
)

// CredentialDigest returns the stored form of a password: lowercase hex of
// SHA-256 over "password:email". The email acts as the salt-like component
// so that a username change does not invalidate stored digests. This is a
// single unkeyed hash with no per-user random salt; a known weakness carried
// over from the deployed client protocol.
func CredentialDigest(password, email string) string {
	sum := sha256.Sum256([]byte(password + ":" + email))
	return hex.EncodeToString(sum[:])
}
