package service

import (
	"context"
	"errors"
	"strings"

	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
)

// Row is one client-submitted record, column name to scalar value.
type Row = map[string]any

// Outcome tags how an upsert batch landed.
type Outcome string

const (
	// OutcomeInserted: the batch inserted cleanly on the first attempt.
	OutcomeInserted Outcome = "inserted"
	// OutcomeReplaced: the first attempt hit a uniqueness violation and
	// the batch landed on the retry after deleting the colliding rows.
	OutcomeReplaced Outcome = "replaced"
)

// UpsertResult reports what an accepted batch did to the table.
type UpsertResult struct {
	Outcome  Outcome
	Inserted int
	Deleted  int64
}

// UpsertService emulates insert-or-replace on a store that only rejects on
// conflict: bulk insert, and on a uniqueness violation delete the colliding
// rows by the family's natural key and retry the insert exactly once. A
// violation on the retry is fatal and propagated unchanged.
type UpsertService struct {
	Store     store.Store
	Registry  *tables.Registry
	AdminUser string
}

// Upsert writes a batch of rows into a family table on behalf of actor.
// Unless actor is the admin account, every row's creator is overwritten
// with actor first, so authorship cannot be spoofed.
func (s *UpsertService) Upsert(ctx context.Context, table string, rows []Row, actor string) (UpsertResult, error) {
	if len(rows) == 0 {
		return UpsertResult{Outcome: OutcomeInserted}, nil
	}

	doc, family, err := s.Registry.ByTable(table)
	if err != nil {
		return UpsertResult{}, err
	}
	cols, err := doc.Columns(family)
	if err != nil {
		return UpsertResult{}, err
	}

	if actor != "" && actor != s.AdminUser {
		for _, row := range rows {
			row["creator"] = actor
		}
	}

	stmt, args := buildInsert(table, cols, rows)

	_, err = s.Store.Tables().Exec(ctx, stmt, args...)
	if err == nil {
		return UpsertResult{Outcome: OutcomeInserted, Inserted: len(rows)}, nil
	}
	var ce *store.ConstraintError
	if !errors.As(err, &ce) {
		return UpsertResult{}, err
	}

	// One retry: delete whatever occupies the batch's natural keys, then
	// reinsert. Delete and reinsert share a transaction so a crash between
	// them cannot leave the family half-deleted. A second violation here
	// is not recovered.
	var deleted int64
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, row := range rows {
			delStmt, delArgs := deleteByNaturalKey(table, family, ce.Kind, row)
			n, err := tx.Tables().Exec(ctx, delStmt, delArgs...)
			if err != nil {
				return err
			}
			deleted += n
		}
		_, err := tx.Tables().Exec(ctx, stmt, args...)
		return err
	})
	if err != nil {
		return UpsertResult{}, err
	}
	return UpsertResult{Outcome: OutcomeReplaced, Inserted: len(rows), Deleted: deleted}, nil
}

// buildInsert builds one multi-row INSERT over the columns the first row
// actually provides, kept in the registry's declaration order. Rows in a
// batch share one column set; missing values in later rows insert as NULL.
func buildInsert(table string, cols []string, rows []Row) (string, []any) {
	used := make([]string, 0, len(cols))
	for _, c := range cols {
		if _, ok := rows[0][c]; ok {
			used = append(used, c)
		}
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(used)), ", ") + ")"

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(used, ", "))
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(used)*len(rows))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(placeholders)
		for _, c := range used {
			args = append(args, row[c])
		}
	}
	return b.String(), args
}

// naturalKey returns the column set enforcing uniqueness for a family. For
// _zusatz the violated constraint decides: the integer primary key when the
// violation named it, the five-column unique constraint otherwise.
func naturalKey(family tables.Family, kind store.ConstraintKind) []string {
	switch family {
	case tables.FamilyDaten:
		return []string{"creator", "lat_round", "lon_round"}
	case tables.FamilyImages:
		return []string{"image_path"}
	case tables.FamilyZusatz:
		if kind == store.ConstraintPrimaryKey {
			return []string{"nr"}
		}
		return []string{"creator", "created", "modified", "lat_round", "lon_round"}
	}
	return nil
}

func deleteByNaturalKey(table string, family tables.Family, kind store.ConstraintKind, row Row) (string, []any) {
	key := naturalKey(family, kind)

	conds := make([]string, 0, len(key))
	args := make([]any, 0, len(key))
	for _, c := range key {
		conds = append(conds, c+" = ?")
		args = append(args, row[c])
	}
	return "DELETE FROM " + table + " WHERE " + strings.Join(conds, " AND "), args
}
