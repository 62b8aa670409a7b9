package blob

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathFor(t *testing.T) {
	t.Parallel()

	path, err := PathFor("anlagen", "anna_17_20260301_120533.jpg")
	require.NoError(t, err)
	require.Equal(t,
		filepath.Join("images", "anlagen", "2026", "03", "01", "anna_17_20260301_120533.jpg"),
		path)

	tests := []struct {
		name     string
		base     string
		filename string
	}{
		{"no date segment", "anlagen", "foto.jpg"},
		{"short date", "anlagen", "anna_1_2026_120533.jpg"},
		{"non-numeric date", "anlagen", "anna_1_2026030x_120533.jpg"},
		{"empty filename", "anlagen", ""},
		{"empty base", "", "anna_1_20260301_120533.jpg"},
		{"traversal in base", "../etc", "anna_1_20260301_120533.jpg"},
		{"traversal in filename", "anlagen", "../../anna_1_20260301_1.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PathFor(tt.base, tt.filename)
			require.ErrorIs(t, err, ErrBadFilename)
		})
	}
}

func TestSaveAndOpen(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())

	rel, err := s.Save("anlagen", "anna_17_20260301_120533.jpg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)
	require.Equal(t,
		filepath.Join("images", "anlagen", "2026", "03", "01", "anna_17_20260301_120533.jpg"),
		rel)

	f, err := s.Open("anlagen", "anna_17_20260301_120533.jpg")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "jpegbytes", string(data))

	t.Run("overwrite is idempotent", func(t *testing.T) {
		_, err := s.Save("anlagen", "anna_17_20260301_120533.jpg", strings.NewReader("neu"))
		require.NoError(t, err)

		f, err := s.Open("anlagen", "anna_17_20260301_120533.jpg")
		require.NoError(t, err)
		defer f.Close()

		data, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "neu", string(data))
	})

	t.Run("missing blob", func(t *testing.T) {
		_, err := s.Open("anlagen", "nie_1_20260301_120533.jpg")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
