package sqlite

import (
	"context"

	"github.com/kartenwerk/geopunkt/internal/server/store"
)

type schemaVersionsRepo struct {
	db dbtx
}

var _ store.SchemaVersions = (*schemaVersionsRepo)(nil)

func (r *schemaVersionsRepo) Get(ctx context.Context, tableFamily string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT version FROM schema_versions WHERE table_family = :table_family`,
		namedArg("table_family", tableFamily),
	)

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, mapNotFound(err)
	}
	return version, nil
}

func (r *schemaVersionsRepo) Set(ctx context.Context, tableFamily string, version int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schema_versions (table_family, version, updated_at)
		VALUES (:table_family, :version, CURRENT_TIMESTAMP)
		ON CONFLICT (table_family) DO UPDATE
		SET version = excluded.version, updated_at = CURRENT_TIMESTAMP`,
		namedArg("table_family", tableFamily),
		namedArg("version", version),
	)
	return err
}
