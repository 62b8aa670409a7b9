// Package service implements the protocol logic: key exchange, the session
// registry, the session-token codec, login/signup, the conflict-resolving
// row upsert and the table-family schema migration.
package service

import (
	"sync"
	"time"
)

// Session is the in-memory state of one client session. The session id is
// client-chosen and carries no identity of its own; a session only gains an
// identity when login or signup binds a username to it.
type Session struct {
	Secret    [32]byte
	Username  string
	LastLogin time.Time
}

// SessionRegistry is the process-wide session table. It is empty at startup
// and never persisted: a restart invalidates every session by design, and
// clients re-run the key exchange. Key exchange, authentication and token
// verification all touch it from concurrent request goroutines.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]Session)}
}

// Put stores the shared secret for a session id, overwriting any previous
// session state under that id including a bound username.
func (r *SessionRegistry) Put(id string, secret [32]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = Session{Secret: secret}
}

// Get returns the session for an id.
func (r *SessionRegistry) Get(id string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Bind attaches a username and login time to an established session.
// Returns false when the session id is unknown.
func (r *SessionRegistry) Bind(id, username string, loginTime time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.Username = username
	s.LastLogin = loginTime
	r.sessions[id] = s
	return true
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
