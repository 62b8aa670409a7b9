package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/internal/server/store/drivers/sqlite"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
	"name": "Abstellanlagen",
	"version": 1,
	"db_tabellenname": "anlagen",
	"gps": {"nachkommastellen": 4, "min_zoom": 15},
	"daten": {
		"felder": [
			{"name": "art", "hint_text": "Art", "helper_text": "", "type": "string"},
			{"name": "anzahl", "hint_text": "Anzahl", "helper_text": "", "type": "int"}
		]
	},
	"zusatz": {
		"felder": [
			{"name": "bemerkung", "hint_text": "Bemerkung", "helper_text": "", "type": "string"}
		]
	}
}`

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestRegistry(t *testing.T) *tables.Registry {
	t.Helper()
	doc, err := tables.ParseDocument([]byte(testConfig))
	require.NoError(t, err)
	r := tables.NewRegistry()
	r.Add(doc)
	return r
}

// newTestFamily migrates the test family tables into st and returns the
// registry describing them.
func newTestFamily(t *testing.T, st store.Store) *tables.Registry {
	t.Helper()
	registry := newTestRegistry(t)
	m := &MigrationService{Store: st, Registry: registry}
	require.NoError(t, m.EnsureAll(t.Context()))
	return registry
}

// clientSession plays the client side of the key exchange and returns the
// derived shared secret.
func clientSession(t *testing.T, kex *KeyExchangeService, sessionID string) [32]byte {
	t.Helper()

	clientPub, clientPriv, err := cryptox.GenerateX25519()
	require.NoError(t, err)

	serverPub, err := kex.Exchange(sessionID, clientPub[:])
	require.NoError(t, err)

	secret, err := cryptox.SharedSecret(clientPriv, serverPub)
	require.NoError(t, err)
	return secret
}

// encryptCredentials builds the AuthRequest a client would send: JSON
// credentials encrypted under the session secret with a fresh IV.
func encryptCredentials(t *testing.T, sessionID string, secret [32]byte, creds api.Credentials) api.AuthRequest {
	t.Helper()

	plain, err := json.Marshal(creds)
	require.NoError(t, err)

	iv := make([]byte, 16)
	_, err = rand.Read(iv)
	require.NoError(t, err)

	enc, err := cryptox.EncryptCBC(secret[:], iv, plain)
	require.NoError(t, err)

	return api.AuthRequest{
		ID:   sessionID,
		IV:   base64.StdEncoding.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(enc),
	}
}
