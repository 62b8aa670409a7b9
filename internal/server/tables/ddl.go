package tables

import (
	"fmt"
	"strings"
)

// Family identifies one of the three tables making up a table family.
type Family string

const (
	FamilyDaten  Family = "daten"
	FamilyImages Family = "images"
	FamilyZusatz Family = "zusatz"
)

// ErrUnknownFamily reports a table name whose suffix is not one of the known
// family suffixes.
type ErrUnknownFamily struct {
	Table string
}

func (e *ErrUnknownFamily) Error() string {
	return fmt.Sprintf("tables: %q is not a known table family", e.Table)
}

// Fixed base columns shared by every family, in declaration order. The
// client-declared felder follow them.
var (
	datenBaseColumns  = []string{"creator", "created", "modified", "lat", "lon", "lat_round", "lon_round"}
	imagesColumns     = []string{"creator", "created", "lat", "lon", "lat_round", "lon_round", "image_path", "image_url"}
	zusatzBaseColumns = []string{"nr", "creator", "created", "modified", "lat", "lon", "lat_round", "lon_round"}
)

var baseColumnDefs = map[string]string{
	"nr":         "nr INTEGER PRIMARY KEY",
	"creator":    "creator TEXT NOT NULL",
	"created":    "created DATETIME NOT NULL",
	"modified":   "modified DATETIME NOT NULL",
	"lat":        "lat REAL NOT NULL",
	"lon":        "lon REAL NOT NULL",
	"lat_round":  "lat_round TEXT NOT NULL",
	"lon_round":  "lon_round TEXT NOT NULL",
	"image_path": "image_path TEXT",
	"image_url":  "image_url TEXT",
}

// SplitTableName splits a full table name such as "anlagen_daten" into its
// base name and family suffix.
func SplitTableName(table string) (base string, family Family, err error) {
	i := strings.LastIndex(table, "_")
	if i > 0 {
		switch Family(table[i+1:]) {
		case FamilyDaten, FamilyImages, FamilyZusatz:
			return table[:i], Family(table[i+1:]), nil
		}
	}
	return "", "", &ErrUnknownFamily{Table: table}
}

// Table returns the full table name of one family member.
func (d Document) Table(f Family) string {
	return d.TableName + "_" + string(f)
}

// Columns returns the column list of one family table in declaration order:
// the fixed base columns followed by the declared felder.
func (d Document) Columns(f Family) ([]string, error) {
	switch f {
	case FamilyDaten:
		return appendFieldNames(datenBaseColumns, d.Daten), nil
	case FamilyImages:
		return append([]string(nil), imagesColumns...), nil
	case FamilyZusatz:
		if d.Zusatz == nil {
			return nil, &ErrUnknownFamily{Table: d.Table(f)}
		}
		return appendFieldNames(zusatzBaseColumns, d.Zusatz), nil
	}
	return nil, &ErrUnknownFamily{Table: d.TableName + "_" + string(f)}
}

func appendFieldNames(base []string, s *Section) []string {
	cols := append([]string(nil), base...)
	for _, f := range s.Felder {
		cols = append(cols, f.Name)
	}
	return cols
}

// CreateStatements builds the CREATE TABLE / CREATE INDEX statements that
// fully initialise a family from this document's schema.
func (d Document) CreateStatements() []string {
	var stmts []string

	// _daten: one row per surveyed location, keyed by who recorded it and
	// the rounded coordinates.
	defs := columnDefs(datenBaseColumns, d.Daten)
	defs = append(defs, "PRIMARY KEY (creator, lat_round, lon_round)")
	stmts = append(stmts,
		createTable(d.Table(FamilyDaten), defs),
		createLatLonIndex(d.Table(FamilyDaten)),
	)

	// _images: photo metadata keyed by the stored file path.
	defs = columnDefs(imagesColumns, nil)
	defs = append(defs, "PRIMARY KEY (image_path)")
	stmts = append(stmts,
		createTable(d.Table(FamilyImages), defs),
		createLatLonIndex(d.Table(FamilyImages)),
	)

	if d.Zusatz != nil {
		defs = columnDefs(zusatzBaseColumns, d.Zusatz)
		defs = append(defs, "UNIQUE (creator, created, modified, lat_round, lon_round)")
		stmts = append(stmts,
			createTable(d.Table(FamilyZusatz), defs),
			createLatLonIndex(d.Table(FamilyZusatz)),
		)
	}
	return stmts
}

func columnDefs(base []string, s *Section) []string {
	defs := make([]string, 0, len(base))
	for _, c := range base {
		defs = append(defs, baseColumnDefs[c])
	}
	if s != nil {
		for _, f := range s.Felder {
			defs = append(defs, f.Name+" "+columnType[f.Type])
		}
	}
	return defs
}

func createTable(name string, defs []string) string {
	return "CREATE TABLE IF NOT EXISTS " + name + " (" + strings.Join(defs, ", ") + ")"
}

func createLatLonIndex(table string) string {
	return "CREATE INDEX IF NOT EXISTS " + table + "_latlonrnd ON " + table + " (lat_round, lon_round)"
}

// DiffStatements builds the ALTER TABLE statements that evolve the family
// tables from the schema in old to the schema in d. Fields are matched by
// name; additions and removals are emitted in declaration order. Column
// position is not adjustable in sqlite, so added columns append; the
// declaration order in the registry stays authoritative for inserts.
func (d Document) DiffStatements(old Document) []string {
	stmts := diffSection(d.Table(FamilyDaten), old.Daten, d.Daten)

	switch {
	case d.Zusatz != nil && old.Zusatz == nil:
		// The family gained a zusatz table; create it from scratch.
		defs := columnDefs(zusatzBaseColumns, d.Zusatz)
		defs = append(defs, "UNIQUE (creator, created, modified, lat_round, lon_round)")
		stmts = append(stmts,
			createTable(d.Table(FamilyZusatz), defs),
			createLatLonIndex(d.Table(FamilyZusatz)),
		)
	case d.Zusatz != nil && old.Zusatz != nil:
		stmts = append(stmts, diffSection(d.Table(FamilyZusatz), old.Zusatz, d.Zusatz)...)
	}
	return stmts
}

func diffSection(table string, old, new *Section) []string {
	oldNames := make(map[string]struct{}, len(old.Felder))
	for _, f := range old.Felder {
		oldNames[f.Name] = struct{}{}
	}
	newNames := make(map[string]struct{}, len(new.Felder))
	for _, f := range new.Felder {
		newNames[f.Name] = struct{}{}
	}

	var stmts []string
	for _, f := range new.Felder {
		if _, ok := oldNames[f.Name]; !ok {
			stmts = append(stmts, "ALTER TABLE "+table+" ADD COLUMN "+f.Name+" "+columnType[f.Type])
		}
	}
	for _, f := range old.Felder {
		if _, ok := newNames[f.Name]; !ok {
			stmts = append(stmts, "ALTER TABLE "+table+" DROP COLUMN "+f.Name)
		}
	}
	return stmts
}
