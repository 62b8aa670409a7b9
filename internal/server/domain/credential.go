// Package domain holds the persistent entities of the service.
package domain

import "time"

// Credential maps an email to an account. Email and username are each
// unique; the password digest is hex(SHA-256(password + ":" + email)).
// Credentials are immutable after creation except that re-signup with
// identical values is accepted idempotently.
type Credential struct {
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
