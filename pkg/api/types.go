// Package api defines the wire types of the geopunkt HTTP protocol. Both the
// server handlers and client code marshal these shapes; the field names are
// part of the deployed client contract and must not change.
package api

// Header names used by the session protocol.
const (
	// HeaderAuthToken carries the opaque session token. Clients echo the
	// most recently received value on every protected request; the server
	// returns a refreshed token on every authenticated response.
	HeaderAuthToken = "x-auth"

	// HeaderAuthState reports token freshness on authenticated responses:
	// "OK", or "SOON" when the client should re-authenticate shortly.
	HeaderAuthState = "x-auth-state"
)

// KeyExchangeRequest starts a session: the client picks the session id and
// sends its raw 32-byte X25519 public key, base64 encoded.
type KeyExchangeRequest struct {
	ID     string `json:"id"`
	PubKey string `json:"pubkey"`
}

// KeyExchangeResponse returns the server's raw X25519 public key.
type KeyExchangeResponse struct {
	PubKey string `json:"pubkey"`
}

// AuthRequest carries encrypted credentials for login and signup. Data is
// the AES-CBC ciphertext of a JSON-encoded Credentials value under the
// session's shared secret, IV is the one-off initialisation vector; both
// base64 encoded.
type AuthRequest struct {
	ID   string `json:"id"`
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// Credentials is the plaintext auth payload recovered from AuthRequest.Data.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// AuthResponse reports the username the session was bound to. On login this
// is the stored username, which may differ from the submitted one.
type AuthResponse struct {
	Username string `json:"username"`
}

// RowsResponse wraps query results the way the original service did: a
// "result" array of column->value mappings.
type RowsResponse struct {
	Result []map[string]any `json:"result"`
}

// AddRowsResponse reports the outcome of a bulk row upsert.
type AddRowsResponse struct {
	Table    string `json:"table"`
	Inserted int    `json:"inserted"`
	Deleted  int64  `json:"deleted"`
	Replaced bool   `json:"replaced"`
}

// TableInfo describes one registered table family.
type TableInfo struct {
	Name      string `json:"name"`
	TableName string `json:"table_name"`
	Version   int    `json:"version"`
	HasZusatz bool   `json:"has_zusatz"`
}

// ImageResponse reports where an uploaded photo was stored.
type ImageResponse struct {
	Path string `json:"path"`
}

// ErrorResponse is the error envelope for all non-2xx responses.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
