package service

import (
	"fmt"

	"github.com/kartenwerk/geopunkt/pkg/cryptox"
)

// KeyExchangeService establishes per-session shared secrets via X25519.
// No authentication happens here: any caller may claim any session id, and
// the id only becomes meaningful once the auth protocol binds a username to
// it.
type KeyExchangeService struct {
	Sessions *SessionRegistry
}

// Exchange generates a fresh server key pair, derives the Diffie-Hellman
// shared secret with the client's raw public key and stores it under the
// session id, replacing any prior secret. It returns the server's raw
// public key for the client to complete its side of the derivation.
func (s *KeyExchangeService) Exchange(sessionID string, clientPublic []byte) ([]byte, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("service: key exchange requires a session id")
	}

	public, private, err := cryptox.GenerateX25519()
	if err != nil {
		return nil, err
	}

	secret, err := cryptox.SharedSecret(private, clientPublic)
	if err != nil {
		return nil, err
	}

	s.Sessions.Put(sessionID, secret)
	return public[:], nil
}
