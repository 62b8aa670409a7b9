// Package tables manages table-family config documents: parsing and
// validating the JSON schema descriptions, keeping every loaded version in a
// registry, and building the DDL that creates and evolves the family tables.
package tables

import (
	"encoding/json"
	"fmt"
)

// FieldType enumerates the value types a config document may declare for a
// field. The German names are part of the deployed config format.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeBool    FieldType = "bool"
	TypeInt     FieldType = "int"
	TypeFloat   FieldType = "float"
	TypeProzent FieldType = "prozent"
)

// columnType maps a field type to its sqlite column type.
var columnType = map[FieldType]string{
	TypeString:  "TEXT",
	TypeBool:    "INTEGER",
	TypeInt:     "INTEGER",
	TypeFloat:   "REAL",
	TypeProzent: "INTEGER",
}

// Field describes one client-editable column of a family table.
type Field struct {
	Name       string    `json:"name"`
	HintText   string    `json:"hint_text"`
	HelperText string    `json:"helper_text"`
	Type       FieldType `json:"type"`
	Limited    []string  `json:"limited,omitempty"`
	Required   bool      `json:"required,omitempty"`
}

// Section declares the fields of the _daten or _zusatz table.
type Section struct {
	Protected bool    `json:"protected,omitempty"`
	Felder    []Field `json:"felder"`
}

// GPS configures coordinate rounding and map display for a dataset.
type GPS struct {
	Nachkommastellen int `json:"nachkommastellen"`
	MinZoom          int `json:"min_zoom"`
}

// Document is one version of a table-family configuration. Documents with
// the same Name but different Version values describe the schema history of
// a family; migrations diff consecutive versions.
type Document struct {
	Name      string   `json:"name"`
	Version   int      `json:"version"`
	DBName    string   `json:"db_name"`
	TableName string   `json:"db_tabellenname"`
	Protected bool     `json:"protected,omitempty"`
	GPS       GPS      `json:"gps"`
	Daten     *Section `json:"daten"`
	Zusatz    *Section `json:"zusatz,omitempty"`
}

// ParseDocument decodes and validates a config document. A missing version
// defaults to 1.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("tables: parse config: %w", err)
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks the structural rules the original config checker enforced:
// required keys present, field types drawn from the known set, field names
// unique within a section and distinct from the fixed base columns.
func (d Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("tables: config: name wurde nicht spezifiziert")
	}
	if d.TableName == "" {
		return fmt.Errorf("tables: config %q: db_tabellenname wurde nicht spezifiziert", d.Name)
	}
	if d.Version < 1 {
		return fmt.Errorf("tables: config %q: version must be >= 1, got %d", d.Name, d.Version)
	}
	if d.GPS.Nachkommastellen < 0 {
		return fmt.Errorf("tables: config %q: gps.nachkommastellen must not be negative", d.Name)
	}
	if d.Daten == nil {
		return fmt.Errorf("tables: config %q: daten wurde nicht spezifiziert", d.Name)
	}
	if err := validateSection(d.Name, "daten", d.Daten, datenBaseColumns); err != nil {
		return err
	}
	if d.Zusatz != nil {
		if err := validateSection(d.Name, "zusatz", d.Zusatz, zusatzBaseColumns); err != nil {
			return err
		}
	}
	return nil
}

func validateSection(configName, sectionName string, s *Section, baseColumns []string) error {
	if len(s.Felder) == 0 {
		return fmt.Errorf("tables: config %q: %s.felder wurde nicht spezifiziert", configName, sectionName)
	}

	reserved := make(map[string]struct{}, len(baseColumns))
	for _, c := range baseColumns {
		reserved[c] = struct{}{}
	}

	seen := make(map[string]struct{}, len(s.Felder))
	for _, f := range s.Felder {
		if f.Name == "" {
			return fmt.Errorf("tables: config %q: %s field without a name", configName, sectionName)
		}
		if _, ok := columnType[f.Type]; !ok {
			return fmt.Errorf("tables: config %q: field %s.%s has unknown type %q", configName, sectionName, f.Name, f.Type)
		}
		if _, ok := reserved[f.Name]; ok {
			return fmt.Errorf("tables: config %q: field %s.%s shadows a base column", configName, sectionName, f.Name)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("tables: config %q: duplicate field %s.%s", configName, sectionName, f.Name)
		}
		seen[f.Name] = struct{}{}

		for _, v := range f.Limited {
			if v == "" {
				return fmt.Errorf("tables: config %q: field %s.%s has an empty limited value", configName, sectionName, f.Name)
			}
		}
	}
	return nil
}
