package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryVersions(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	v1 := sampleDoc(t)
	v1.Version = 1
	v2 := sampleDoc(t)
	v2.Version = 2

	// Insert out of order; Current must still pick the highest.
	r.Add(v2)
	r.Add(v1)

	cur, ok := r.Current("Abstellanlagen")
	require.True(t, ok)
	require.Equal(t, 2, cur.Version)

	old, ok := r.Version("Abstellanlagen", 1)
	require.True(t, ok)
	require.Equal(t, 1, old.Version)

	_, ok = r.Version("Abstellanlagen", 7)
	require.False(t, ok)
	_, ok = r.Current("unbekannt")
	require.False(t, ok)

	require.Equal(t, []string{"Abstellanlagen"}, r.Names())

	t.Run("same version replaces", func(t *testing.T) {
		repl := sampleDoc(t)
		repl.Version = 2
		repl.GPS.MinZoom = 99
		r.Add(repl)

		cur, ok := r.Current("Abstellanlagen")
		require.True(t, ok)
		require.Equal(t, 99, cur.GPS.MinZoom)
	})
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	r := NewRegistry()

	v1 := sampleDoc(t)
	v1.Version = 1
	v2 := sampleDoc(t)
	v2.Version = 2
	r.Add(v1)
	r.Add(v2)

	r.Remove("Abstellanlagen", 2)
	cur, ok := r.Current("Abstellanlagen")
	require.True(t, ok)
	require.Equal(t, 1, cur.Version)

	t.Run("removing the last version unregisters the name", func(t *testing.T) {
		r.Remove("Abstellanlagen", 1)
		_, ok := r.Current("Abstellanlagen")
		require.False(t, ok)
		require.Empty(t, r.Names())
	})

	t.Run("unknown versions are ignored", func(t *testing.T) {
		r.Remove("Abstellanlagen", 9)
		r.Remove("Unbekannt", 1)
	})
}

func TestRegistryByTable(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add(sampleDoc(t))

	doc, family, err := r.ByTable("anlagen_daten")
	require.NoError(t, err)
	require.Equal(t, FamilyDaten, family)
	require.Equal(t, "Abstellanlagen", doc.Name)

	_, family, err = r.ByTable("anlagen_zusatz")
	require.NoError(t, err)
	require.Equal(t, FamilyZusatz, family)

	var unknown *ErrUnknownFamily

	_, _, err = r.ByTable("fremd_daten")
	require.ErrorAs(t, err, &unknown)

	_, _, err = r.ByTable("anlagen")
	require.ErrorAs(t, err, &unknown)

	t.Run("zusatz rejected when family has none", func(t *testing.T) {
		r := NewRegistry()
		doc := sampleDoc(t)
		doc.Zusatz = nil
		r.Add(doc)

		_, _, err := r.ByTable("anlagen_zusatz")
		require.ErrorAs(t, err, &unknown)
	})
}

func TestRegistryLoadDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anlagen_v2.json"), []byte(sampleConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kaputt.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notizen.txt"), []byte("ignored"), 0o644))

	r := NewRegistry()
	errs := r.LoadDir(dir)
	require.Len(t, errs, 1, "the broken document is reported, not fatal")
	require.Contains(t, errs[0].Error(), "kaputt.json")

	_, ok := r.Current("Abstellanlagen")
	require.True(t, ok)
}
