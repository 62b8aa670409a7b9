// Package store defines the data access contracts. Concrete drivers
// (sqlite) implement them.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kartenwerk/geopunkt/internal/server/domain"
)

// Named builds a named parameter for Tables statements.
func Named(name string, value any) sql.NamedArg {
	return sql.Named(name, value)
}

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// ConstraintKind classifies a uniqueness violation by the constraint that
// fired. Drivers derive it from structured result codes, never from error
// message text.
type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota
	ConstraintPrimaryKey
)

func (k ConstraintKind) String() string {
	if k == ConstraintPrimaryKey {
		return "primary key"
	}
	return "unique"
}

// ConstraintError reports a rejected insert due to a primary-key or
// unique-constraint collision. The upsert protocol branches on Kind to pick
// the natural key used for conflict resolution.
type ConstraintError struct {
	Kind   ConstraintKind
	Detail string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("store: %s constraint violated: %s", e.Kind, e.Detail)
}

// Store is the root data access interface.
type Store interface {
	Credentials() Credentials
	SchemaVersions() SchemaVersions
	Tables() Tables

	// ApplyMigrations brings the static service schema (credentials,
	// schema_versions) up to date. Table-family DDL is managed separately
	// by the migration service.
	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing when fn returns
	// nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It exposes the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Credentials interface {
	// GetByEmail returns the credential for an email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (domain.Credential, error)

	// UsernameTaken reports whether any credential holds the username.
	UsernameTaken(ctx context.Context, username string) (bool, error)

	// Create inserts a new credential. Uniqueness of email and username is
	// expected to have been pre-checked by the caller; a lost race still
	// surfaces as ErrAlreadyExists.
	Create(ctx context.Context, c domain.Credential) error
}

type SchemaVersions interface {
	// Get returns the applied schema version for a table family, or
	// ErrNotFound when the family has never been initialised.
	Get(ctx context.Context, tableFamily string) (int, error)

	// Set records the applied version for a table family, inserting or
	// updating as needed.
	Set(ctx context.Context, tableFamily string, version int) error
}

// Tables executes statements against the dynamically-named family tables.
// Statements are built by the callers (registry DDL, upsert protocol, region
// queries) and passed through with named parameters; the repo only runs them
// and maps driver errors.
type Tables interface {
	// Exec runs a statement and returns the number of affected rows.
	// Uniqueness violations come back as *ConstraintError.
	Exec(ctx context.Context, stmt string, args ...any) (int64, error)

	// Query runs a select and returns the rows as column->value mappings.
	Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error)
}
