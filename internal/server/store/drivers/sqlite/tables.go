package sqlite

import (
	"context"
	"time"
)

// tablesRepo runs pre-built statements against the dynamically-named family
// tables. Statement construction lives with the callers (registry DDL, the
// upsert protocol, region queries); this repo only executes and maps errors.
type tablesRepo struct {
	db dbtx
}

func (r *tablesRepo) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, mapConstraint(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *tablesRepo) Query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeValue converts driver-specific scan results into JSON-friendly
// values: byte slices become strings, timestamps RFC3339 strings.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
