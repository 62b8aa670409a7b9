// Package blob stores photo files on the local filesystem, sharded into
// per-day directories derived from the upload filename.
package blob

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrBadFilename reports an upload filename that does not carry a parsable
// date segment or tries to escape the storage root.
var ErrBadFilename = errors.New("blob: malformed filename")

// Store writes and reads photo blobs below a single root directory. Files
// land at <root>/images/<base>/<yyyy>/<mm>/<dd>/<filename>, where the date
// comes out of the filename itself, so the layout is reproducible from the
// name alone.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// PathFor resolves the relative storage path for an upload. Filenames look
// like <creator>_<seq>_<yyyymmdd>_<hhmmss>.jpg; the third underscore-
// delimited segment must be an 8-digit date.
func PathFor(base, filename string) (string, error) {
	if base == "" || strings.ContainsAny(base, "/\\") || base != filepath.Base(base) {
		return "", fmt.Errorf("%w: base %q", ErrBadFilename, base)
	}
	if filename == "" || filename != filepath.Base(filename) {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, filename)
	}

	parts := strings.Split(filename, "_")
	if len(parts) < 3 {
		return "", fmt.Errorf("%w: %q has no date segment", ErrBadFilename, filename)
	}
	date := parts[2]
	if len(date) != 8 || !digitsOnly(date) {
		return "", fmt.Errorf("%w: %q date segment %q", ErrBadFilename, filename, date)
	}

	return filepath.Join("images", base, date[:4], date[4:6], date[6:8], filename), nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Save streams an upload into its storage path, creating the day directory
// as needed. An existing file under the same name is overwritten; re-uploads
// of the same photo are idempotent.
func (s *Store) Save(base, filename string, r io.Reader) (string, error) {
	rel, err := PathFor(base, filename)
	if err != nil {
		return "", err
	}

	abs := filepath.Join(s.root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(abs)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return rel, nil
}

// Open returns a reader over a stored blob. The caller closes it.
func (s *Store) Open(base, filename string) (io.ReadCloser, error) {
	rel, err := PathFor(base, filename)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.root, rel))
}
