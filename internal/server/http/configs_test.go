package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kartenwerk/geopunkt/internal/server/service"
	"github.com/kartenwerk/geopunkt/internal/server/store/drivers/sqlite"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
	"github.com/stretchr/testify/require"
)

const testConfigV2 = `{
	"name": "Abstellanlagen",
	"version": 2,
	"db_tabellenname": "anlagen",
	"gps": {"nachkommastellen": 4, "min_zoom": 15},
	"daten": {
		"felder": [
			{"name": "art", "hint_text": "Art", "helper_text": "", "type": "string"},
			{"name": "anzahl", "hint_text": "Anzahl", "helper_text": "", "type": "int"},
			{"name": "zustand", "hint_text": "Zustand", "helper_text": "", "type": "string"}
		]
	}
}`

func TestConfigUploadRollsBackOnMigrationFailure(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	doc, err := tables.ParseDocument([]byte(testConfig))
	require.NoError(t, err)
	registry := tables.NewRegistry()
	registry.Add(doc)

	migrations := &service.MigrationService{Store: st, Registry: registry}
	require.NoError(t, migrations.EnsureAll(ctx))

	// Sabotage the v1 -> v2 diff: the column it wants to add already
	// exists, so the migration's ALTER TABLE fails and rolls back.
	_, err = st.Tables().Exec(ctx, "ALTER TABLE anlagen_daten ADD COLUMN zustand TEXT")
	require.NoError(t, err)

	h := &ConfigsHandler{Registry: registry, MigrationService: migrations}
	rec := httptest.NewRecorder()
	h.HandleUpload(rec, httptest.NewRequest(http.MethodPost, "/v1/configs", strings.NewReader(testConfigV2)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	cur, ok := registry.Current("Abstellanlagen")
	require.True(t, ok)
	require.Equal(t, 1, cur.Version, "the never-applied version must not stay registered")

	version, err := st.SchemaVersions().Get(ctx, "anlagen")
	require.NoError(t, err)
	require.Equal(t, 1, version)

	// Writes against the family keep working on the old schema.
	upserts := &service.UpsertService{Store: st, Registry: registry, AdminUser: "admin"}
	_, err = upserts.Upsert(ctx, "anlagen_daten", []service.Row{{
		"creator":   "anna",
		"created":   "2026-03-01 12:00:00",
		"modified":  "2026-03-01 12:00:00",
		"lat":       48.1374,
		"lon":       11.5755,
		"lat_round": "48.1374",
		"lon_round": "11.5755",
		"art":       "Buegel",
		"anzahl":    int64(8),
	}}, "anna")
	require.NoError(t, err)
}
