package tables

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry holds every loaded version of each table-family config, keyed by
// config name. The highest version is the current schema; older versions
// stay available as snapshots for migration diffs. Safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	docs map[string][]Document // sorted by ascending version
}

func NewRegistry() *Registry {
	return &Registry{docs: make(map[string][]Document)}
}

// Add registers a document version, replacing an existing document with the
// same name and version.
func (r *Registry) Add(doc Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.docs[doc.Name]
	for i, d := range list {
		if d.Version == doc.Version {
			list[i] = doc
			return
		}
	}
	list = append(list, doc)
	sort.Slice(list, func(i, j int) bool { return list[i].Version < list[j].Version })
	r.docs[doc.Name] = list
}

// Remove drops one registered version of a named config. Removing the last
// remaining version unregisters the name entirely.
func (r *Registry) Remove(name string, version int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.docs[name]
	for i, d := range list {
		if d.Version == version {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(r.docs, name)
			} else {
				r.docs[name] = list
			}
			return
		}
	}
}

// Current returns the highest version of a named config.
func (r *Registry) Current(name string) (Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.docs[name]
	if len(list) == 0 {
		return Document{}, false
	}
	return list[len(list)-1], true
}

// Version returns one specific version of a named config.
func (r *Registry) Version(name string, version int) (Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.docs[name] {
		if d.Version == version {
			return d, true
		}
	}
	return Document{}, false
}

// Names returns the registered config names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.docs))
	for name := range r.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByTable resolves a full table name such as "anlagen_zusatz" to the current
// document of the owning family and the family suffix.
func (r *Registry) ByTable(table string) (Document, Family, error) {
	base, family, err := SplitTableName(table)
	if err != nil {
		return Document{}, "", err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, list := range r.docs {
		if len(list) > 0 && list[len(list)-1].TableName == base {
			doc := list[len(list)-1]
			if family == FamilyZusatz && doc.Zusatz == nil {
				return Document{}, "", &ErrUnknownFamily{Table: table}
			}
			return doc, family, nil
		}
	}
	return Document{}, "", &ErrUnknownFamily{Table: table}
}

// LoadDir reads every *.json config in dir into the registry. Documents that
// fail to parse are skipped and reported; one broken file must not prevent
// the remaining configs from loading.
func (r *Registry) LoadDir(dir string) []error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return []error{err}
	}
	sort.Strings(matches)

	var errs []error
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("tables: read %s: %w", path, err))
			continue
		}
		doc, err := ParseDocument(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("tables: %s: %w", path, err))
			continue
		}
		r.Add(doc)
	}
	return errs
}
