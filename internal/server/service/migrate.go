package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
)

// MigrationService brings family tables in line with the current registry
// schema at startup: creating the tables of families seen for the first
// time and applying column diffs to families whose config version moved
// forward. The applied version is persisted per family, so diffs are only
// computed against schemas that were actually deployed.
type MigrationService struct {
	Store    store.Store
	Registry *tables.Registry
}

// EnsureAll runs EnsureFamily for every registered config.
func (m *MigrationService) EnsureAll(ctx context.Context) error {
	for _, name := range m.Registry.Names() {
		if err := m.EnsureFamily(ctx, name); err != nil {
			return fmt.Errorf("service: migrate family %q: %w", name, err)
		}
	}
	return nil
}

// EnsureFamily creates or evolves the tables of one family. A family whose
// stored version already matches (or exceeds) the declared one is left
// untouched; downgrades are never applied.
func (m *MigrationService) EnsureFamily(ctx context.Context, name string) error {
	doc, ok := m.Registry.Current(name)
	if !ok {
		return fmt.Errorf("service: no config registered for %q", name)
	}

	stored, err := m.Store.SchemaVersions().Get(ctx, doc.TableName)
	if errors.Is(err, store.ErrNotFound) {
		// First sight of this family: create at the declared version
		// directly, no need to replay intermediate diffs.
		return m.apply(ctx, doc.TableName, doc.Version, doc.CreateStatements())
	}
	if err != nil {
		return err
	}
	if stored >= doc.Version {
		return nil
	}

	old, ok := m.Registry.Version(name, stored)
	if !ok {
		return fmt.Errorf("service: family %q is at version %d but no config snapshot for it is loaded", name, stored)
	}
	return m.apply(ctx, doc.TableName, doc.Version, doc.DiffStatements(old))
}

func (m *MigrationService) apply(ctx context.Context, tableFamily string, version int, stmts []string) error {
	return m.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.Tables().Exec(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", stmt, err)
			}
		}
		return tx.SchemaVersions().Set(ctx, tableFamily, version)
	})
}
