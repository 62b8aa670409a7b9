package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kartenwerk/geopunkt/pkg/cryptox"
	"github.com/kartenwerk/geopunkt/pkg/httpx"
)

// ErrInvalidToken covers every way a session token can fail verification:
// malformed encoding, unknown session, secret mismatch, clock skew outside
// the window, stale login. Handlers must not distinguish these to the
// client.
var ErrInvalidToken = errors.New("service: invalid session token")

// Freshness values reported alongside a verified token.
const (
	FreshnessOK   = "OK"
	FreshnessSoon = "SOON"
)

const (
	// maxSkew bounds the disagreement between the client clock embedded in
	// a token and the server clock, in either direction.
	maxSkew = 600 * time.Second

	freshnessSoonAfter = 12 * 24 * time.Hour
	freshnessDeadAfter = 24 * 24 * time.Hour
)

// sessionToken is the wire form of a token: base64 of this JSON document.
// Now carries the issue time as decimal milliseconds since epoch; NowEnc is
// the same string encrypted under the session secret, proving the issuer
// held the secret currently on file.
type sessionToken struct {
	ID     string `json:"id"`
	Now    string `json:"now"`
	NowEnc string `json:"nowEnc"`
	IV     string `json:"iv"`
}

// TokenService issues and verifies session tokens. Now is injectable for
// skew and freshness tests and defaults to time.Now.
type TokenService struct {
	Sessions *SessionRegistry
	Now      func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue builds a fresh token for an established session.
func (s *TokenService) Issue(sessionID string) (string, error) {
	sess, ok := s.Sessions.Get(sessionID)
	if !ok {
		return "", fmt.Errorf("%w: unknown session", ErrInvalidToken)
	}

	now := strconv.FormatInt(s.now().UnixMilli(), 10)

	iv := make([]byte, 16)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	enc, err := cryptox.EncryptCBC(sess.Secret[:], iv, []byte(now))
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(sessionToken{
		ID:     sessionID,
		Now:    now,
		NowEnc: base64.StdEncoding.EncodeToString(enc),
		IV:     base64.StdEncoding.EncodeToString(iv),
	})
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Verify checks a token echoed back by a client and returns the session id,
// bound username and freshness tag. Any failure is ErrInvalidToken.
func (s *TokenService) Verify(raw string) (sessionID, username, freshness string, err error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	var tok sessionToken
	if err := json.Unmarshal(decoded, &tok); err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sess, ok := s.Sessions.Get(tok.ID)
	if !ok {
		return "", "", "", fmt.Errorf("%w: unknown session", ErrInvalidToken)
	}
	if sess.Username == "" {
		return "", "", "", fmt.Errorf("%w: session not authenticated", ErrInvalidToken)
	}

	// The encrypted timestamp must decrypt to exactly the plaintext one;
	// otherwise the token was built against a different shared secret than
	// the one on file, e.g. after the session was re-established.
	iv, err := base64.StdEncoding.DecodeString(tok.IV)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	enc, err := base64.StdEncoding.DecodeString(tok.NowEnc)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	plain, err := cryptox.DecryptCBC(sess.Secret[:], iv, enc)
	if err != nil || !bytes.Equal(plain, []byte(tok.Now)) {
		return "", "", "", fmt.Errorf("%w: secret mismatch", ErrInvalidToken)
	}

	tokenMillis, err := strconv.ParseInt(tok.Now, 10, 64)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := s.now()
	diff := now.Sub(time.UnixMilli(tokenMillis))
	if diff <= -maxSkew || diff >= maxSkew {
		return "", "", "", fmt.Errorf("%w: clock skew %s outside window", ErrInvalidToken, diff)
	}

	age := now.Sub(sess.LastLogin)
	switch {
	case age < freshnessSoonAfter:
		freshness = FreshnessOK
	case age < freshnessDeadAfter:
		freshness = FreshnessSoon
	default:
		return "", "", "", fmt.Errorf("%w: login expired", ErrInvalidToken)
	}

	return tok.ID, sess.Username, freshness, nil
}

// VerifySessionToken implements httpx.SessionVerifier: on success it also
// issues a refreshed token for the response header.
func (s *TokenService) VerifySessionToken(ctx context.Context, raw string) (httpx.SessionIdentity, string, error) {
	sessionID, username, freshness, err := s.Verify(raw)
	if err != nil {
		return httpx.SessionIdentity{}, "", err
	}
	refreshed, err := s.Issue(sessionID)
	if err != nil {
		return httpx.SessionIdentity{}, "", err
	}
	return httpx.SessionIdentity{
		SessionID: sessionID,
		Username:  username,
		Freshness: freshness,
	}, refreshed, nil
}
