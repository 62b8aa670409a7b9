package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kartenwerk/geopunkt/internal/server/domain"
	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/cryptox"
)

// Contract error messages surfaced to clients. The wording is fixed; the
// deployed apps match on it.
var (
	ErrBadCredentials    = errors.New("unknown user or bad password")
	ErrUsernameImmutable = errors.New("user name can not be changed")
	ErrUsernameTaken     = errors.New("user name already in use")
)

// AuthService implements login and signup over an established key-exchange
// session. Credentials travel encrypted under the session secret; plaintext
// passwords are digested immediately and never stored or logged.
type AuthService struct {
	Store    store.Store
	Sessions *SessionRegistry
	Tokens   *TokenService
}

// Login authenticates the credentials carried in req, binds the username to
// the session and returns the username and a fresh session token.
func (s *AuthService) Login(ctx context.Context, req api.AuthRequest) (username, token string, err error) {
	creds, err := s.decryptCredentials(req)
	if err != nil {
		return "", "", err
	}

	cred, err := s.Store.Credentials().GetByEmail(ctx, creds.Email)
	if errors.Is(err, store.ErrNotFound) {
		return "", "", ErrBadCredentials
	}
	if err != nil {
		return "", "", err
	}
	if cryptox.CredentialDigest(creds.Password, creds.Email) != cred.PasswordHash {
		return "", "", ErrBadCredentials
	}

	return s.establish(req.ID, cred.Username)
}

// Signup registers the credentials carried in req. Re-submitting credentials
// that already exist verbatim is treated as a login, so a client retrying a
// lost signup response succeeds; the same email with a different username is
// rejected because the username is fixed at first signup.
func (s *AuthService) Signup(ctx context.Context, req api.AuthRequest) (username, token string, err error) {
	creds, err := s.decryptCredentials(req)
	if err != nil {
		return "", "", err
	}
	if creds.Email == "" || creds.Password == "" || creds.Username == "" {
		return "", "", ErrBadCredentials
	}

	digest := cryptox.CredentialDigest(creds.Password, creds.Email)

	existing, err := s.Store.Credentials().GetByEmail(ctx, creds.Email)
	switch {
	case err == nil:
		if existing.PasswordHash != digest {
			return "", "", ErrBadCredentials
		}
		if existing.Username != creds.Username {
			return "", "", ErrUsernameImmutable
		}
		return s.establish(req.ID, existing.Username)
	case errors.Is(err, store.ErrNotFound):
		// fall through to create
	default:
		return "", "", err
	}

	taken, err := s.Store.Credentials().UsernameTaken(ctx, creds.Username)
	if err != nil {
		return "", "", err
	}
	if taken {
		return "", "", ErrUsernameTaken
	}

	err = s.Store.Credentials().Create(ctx, domain.Credential{
		Email:        creds.Email,
		Username:     creds.Username,
		PasswordHash: digest,
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost the race against a concurrent signup for the same email or
		// username.
		return "", "", ErrUsernameTaken
	}
	if err != nil {
		return "", "", err
	}

	return s.establish(req.ID, creds.Username)
}

func (s *AuthService) establish(sessionID, username string) (string, string, error) {
	if !s.Sessions.Bind(sessionID, username, s.Tokens.now()) {
		return "", "", fmt.Errorf("%w: unknown session", ErrInvalidToken)
	}
	token, err := s.Tokens.Issue(sessionID)
	if err != nil {
		return "", "", err
	}
	return username, token, nil
}

// decryptCredentials recovers the credential payload from an auth request:
// base64 fields, then AES-CBC under the session's shared secret, then JSON.
func (s *AuthService) decryptCredentials(req api.AuthRequest) (api.Credentials, error) {
	sess, ok := s.Sessions.Get(req.ID)
	if !ok {
		return api.Credentials{}, fmt.Errorf("%w: unknown session", ErrInvalidToken)
	}

	iv, err := base64.StdEncoding.DecodeString(req.IV)
	if err != nil {
		return api.Credentials{}, fmt.Errorf("%w: %v", cryptox.ErrDecode, err)
	}
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return api.Credentials{}, fmt.Errorf("%w: %v", cryptox.ErrDecode, err)
	}

	plain, err := cryptox.DecryptCBC(sess.Secret[:], iv, data)
	if err != nil {
		return api.Credentials{}, err
	}

	var creds api.Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return api.Credentials{}, fmt.Errorf("%w: %v", cryptox.ErrDecode, err)
	}
	return creds, nil
}
