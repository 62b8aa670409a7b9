package http

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kartenwerk/geopunkt/internal/server/blob"
	"github.com/kartenwerk/geopunkt/internal/server/service"
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
	}
}`

// newTestServer assembles a full server over a throwaway database and blob
// root, mirroring the wiring in the app package.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	doc, err := tables.ParseDocument([]byte(testConfig))
	require.NoError(t, err)
	registry := tables.NewRegistry()
	registry.Add(doc)

	sessions := service.NewSessionRegistry()
	tokens := &service.TokenService{Sessions: sessions}
	migrations := &service.MigrationService{Store: st, Registry: registry}
	require.NoError(t, migrations.EnsureAll(t.Context()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter("admin", "test", st, registry, blob.NewStore(t.TempDir()), logger)
	router.KeyExchangeService = &service.KeyExchangeService{Sessions: sessions}
	router.TokenService = tokens
	router.AuthService = &service.AuthService{Store: st, Sessions: sessions, Tokens: tokens}
	router.RowService = &service.RowService{Store: st, Registry: registry}
	router.UpsertService = &service.UpsertService{Store: st, Registry: registry, AdminUser: "admin"}
	router.MigrationService = migrations
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

// testClient drives the wire protocol the way the mobile apps do: key
// exchange, encrypted signup, then token echo on every protected request.
type testClient struct {
	t       *testing.T
	baseURL string
	session string
	secret  [32]byte
	token   string
}

func newTestClient(t *testing.T, srv *httptest.Server, session string) *testClient {
	t.Helper()
	c := &testClient{t: t, baseURL: srv.URL, session: session}
	c.exchangeKeys()
	return c
}

func (c *testClient) exchangeKeys() {
	clientPub, clientPriv, err := cryptox.GenerateX25519()
	require.NoError(c.t, err)

	resp := c.postJSON("/v1/kex", api.KeyExchangeRequest{
		ID:     c.session,
		PubKey: base64.StdEncoding.EncodeToString(clientPub[:]),
	})
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var kexResp api.KeyExchangeResponse
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&kexResp))

	serverPub, err := base64.StdEncoding.DecodeString(kexResp.PubKey)
	require.NoError(c.t, err)
	c.secret, err = cryptox.SharedSecret(clientPriv, serverPub)
	require.NoError(c.t, err)
}

func (c *testClient) authRequest(creds api.Credentials) api.AuthRequest {
	plain, err := json.Marshal(creds)
	require.NoError(c.t, err)

	iv := make([]byte, 16)
	_, err = rand.Read(iv)
	require.NoError(c.t, err)

	enc, err := cryptox.EncryptCBC(c.secret[:], iv, plain)
	require.NoError(c.t, err)

	return api.AuthRequest{
		ID:   c.session,
		IV:   base64.StdEncoding.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(enc),
	}
}

// signup performs the signup round and stores the issued token.
func (c *testClient) signup(creds api.Credentials) *http.Response {
	resp := c.postJSON("/v1/auth/signup", c.authRequest(creds))
	if tok := resp.Header.Get(api.HeaderAuthToken); tok != "" {
		c.token = tok
	}
	return resp
}

func (c *testClient) login(creds api.Credentials) *http.Response {
	resp := c.postJSON("/v1/auth/login", c.authRequest(creds))
	if tok := resp.Header.Get(api.HeaderAuthToken); tok != "" {
		c.token = tok
	}
	return resp
}

func (c *testClient) postJSON(path string, v any) *http.Response {
	c.t.Helper()
	body, err := json.Marshal(v)
	require.NoError(c.t, err)
	return c.do(http.MethodPost, path, "application/json", bytes.NewReader(body))
}

// do sends a request carrying the current token and adopts the refreshed
// one from the response.
func (c *testClient) do(method, path, contentType string, body io.Reader) *http.Response {
	c.t.Helper()

	req, err := http.NewRequest(method, c.baseURL+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set(api.HeaderAuthToken, c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)

	if tok := resp.Header.Get(api.HeaderAuthToken); tok != "" {
		c.token = tok
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
