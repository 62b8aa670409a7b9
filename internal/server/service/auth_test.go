package service

import (
	"testing"
	"time"

	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *KeyExchangeService) {
	t.Helper()

	sessions := NewSessionRegistry()
	tokens := &TokenService{
		Sessions: sessions,
		Now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	auth := &AuthService{
		Store:    newTestStore(t),
		Sessions: sessions,
		Tokens:   tokens,
	}
	return auth, &KeyExchangeService{Sessions: sessions}
}

var annaCreds = api.Credentials{
	Email:    "anna@example.de",
	Password: "geheim",
	Username: "anna",
}

func TestSignupAndLogin(t *testing.T) {
	t.Parallel()

	auth, kex := newAuthService(t)
	secret := clientSession(t, kex, "sess-1")

	username, token, err := auth.Signup(t.Context(), encryptCredentials(t, "sess-1", secret, annaCreds))
	require.NoError(t, err)
	require.Equal(t, "anna", username)
	require.NotEmpty(t, token)

	// The issued token verifies against the same session.
	_, verified, freshness, err := auth.Tokens.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "anna", verified)
	require.Equal(t, FreshnessOK, freshness)

	t.Run("login with the stored credentials", func(t *testing.T) {
		secret := clientSession(t, kex, "sess-2")
		username, token, err := auth.Login(t.Context(), encryptCredentials(t, "sess-2", secret, annaCreds))
		require.NoError(t, err)
		require.Equal(t, "anna", username)
		require.NotEmpty(t, token)
	})

	t.Run("login with wrong password", func(t *testing.T) {
		secret := clientSession(t, kex, "sess-3")
		bad := annaCreds
		bad.Password = "falsch"
		_, _, err := auth.Login(t.Context(), encryptCredentials(t, "sess-3", secret, bad))
		require.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("login with unknown email", func(t *testing.T) {
		secret := clientSession(t, kex, "sess-4")
		bad := annaCreds
		bad.Email = "niemand@example.de"
		_, _, err := auth.Login(t.Context(), encryptCredentials(t, "sess-4", secret, bad))
		require.ErrorIs(t, err, ErrBadCredentials)
	})
}

func TestSignupIdempotent(t *testing.T) {
	t.Parallel()

	auth, kex := newAuthService(t)

	secret := clientSession(t, kex, "sess-1")
	_, _, err := auth.Signup(t.Context(), encryptCredentials(t, "sess-1", secret, annaCreds))
	require.NoError(t, err)

	// A retry with the exact same credentials acts like a login.
	secret = clientSession(t, kex, "sess-2")
	username, token, err := auth.Signup(t.Context(), encryptCredentials(t, "sess-2", secret, annaCreds))
	require.NoError(t, err)
	require.Equal(t, "anna", username)
	require.NotEmpty(t, token)
}

func TestSignupConflicts(t *testing.T) {
	t.Parallel()

	auth, kex := newAuthService(t)
	secret := clientSession(t, kex, "sess-1")
	_, _, err := auth.Signup(t.Context(), encryptCredentials(t, "sess-1", secret, annaCreds))
	require.NoError(t, err)

	t.Run("same email, different username", func(t *testing.T) {
		secret := clientSession(t, kex, "sess-2")
		changed := annaCreds
		changed.Username = "annika"
		_, _, err := auth.Signup(t.Context(), encryptCredentials(t, "sess-2", secret, changed))
		require.ErrorIs(t, err, ErrUsernameImmutable)
		require.EqualError(t, err, "user name can not be changed")
	})

	t.Run("same email, different password", func(t *testing.T) {
		secret := clientSession(t, kex, "sess-3")
		changed := annaCreds
		changed.Password = "anders"
		_, _, err := auth.Signup(t.Context(), encryptCredentials(t, "sess-3", secret, changed))
		require.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("new email, taken username", func(t *testing.T) {
		secret := clientSession(t, kex, "sess-4")
		taken := api.Credentials{Email: "neu@example.de", Password: "pw", Username: "anna"}
		_, _, err := auth.Signup(t.Context(), encryptCredentials(t, "sess-4", secret, taken))
		require.ErrorIs(t, err, ErrUsernameTaken)
		require.EqualError(t, err, "user name already in use")
	})
}

func TestAuthRequiresEstablishedSession(t *testing.T) {
	t.Parallel()

	auth, kex := newAuthService(t)
	secret := clientSession(t, kex, "sess-1")

	// Request claims a session id no key exchange ever established.
	req := encryptCredentials(t, "sess-1", secret, annaCreds)
	req.ID = "unbekannt"

	_, _, err := auth.Login(t.Context(), req)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthRejectsGarbledPayload(t *testing.T) {
	t.Parallel()

	auth, kex := newAuthService(t)
	secret := clientSession(t, kex, "sess-1")

	req := encryptCredentials(t, "sess-1", secret, annaCreds)
	req.Data = "nicht base64 !!!"

	_, _, err := auth.Login(t.Context(), req)
	require.ErrorIs(t, err, cryptox.ErrDecode)

	t.Run("encrypted under a stale secret", func(t *testing.T) {
		req := encryptCredentials(t, "sess-1", secret, annaCreds)
		// Re-running the exchange rotates the secret; the old payload no
		// longer decrypts cleanly.
		clientSession(t, kex, "sess-1")

		_, _, err := auth.Signup(t.Context(), req)
		require.Error(t, err)
	})
}
