package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testAppConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		DatabaseFile:        filepath.Join(dir, "test.db"),
		ConfigDir:           filepath.Join(dir, "configs"),
		ImagesDir:           filepath.Join(dir, "images"),
		AdminUser:           "admin",
		Env:                 "test",
		LogLevel:            "error",
		LogFormat:           "text",
		ShutdownGracePeriod: time.Second,
	}
}

func TestNewAssemblesServer(t *testing.T) {
	application, err := New(testAppConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.db.Close() })

	require.Equal(t, 3*time.Second, application.server.ReadHeaderTimeout,
		"stalled header reads must not hold connections open")

	// The assembled router answers the health probe.
	rec := httptest.NewRecorder()
	application.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
