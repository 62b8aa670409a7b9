package http

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kartenwerk/geopunkt/internal/server/service"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/httpx"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// maxConfigBytes bounds an uploaded config document.
const maxConfigBytes = 1 << 20

// ConfigsHandler serves the table-family config routes. Listing is open to
// any authenticated user; upload is admin-gated in the router because a new
// config version migrates live tables.
type ConfigsHandler struct {
	Registry         *tables.Registry
	MigrationService *service.MigrationService

	// ConfigDir, when set, receives a copy of every accepted upload so the
	// registry can be rebuilt from disk on restart.
	ConfigDir string
}

// HandleList serves GET /v1/configs: the current document of every family,
// fields included, so client apps can render their forms from it.
func (h *ConfigsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	names := h.Registry.Names()
	docs := make([]tables.Document, 0, len(names))
	for _, name := range names {
		if doc, ok := h.Registry.Current(name); ok {
			docs = append(docs, doc)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, docs)
}

// HandleUpload serves POST /v1/configs: register a config document version
// and create or migrate its family tables.
func (h *ConfigsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	data, err := io.ReadAll(io.LimitReader(r.Body, maxConfigBytes))
	if err != nil {
		api.ErrInvalidRequest.WriteError(w)
		return
	}

	doc, err := tables.ParseDocument(data)
	if err != nil {
		api.NewError(http.StatusBadRequest, api.ErrorCodeInvalidRequest, err.Error()).WriteError(w)
		return
	}

	// The migration resolves the document through the registry, so it is
	// staged there first. A failed migration must not leave the registry
	// serving a schema version the database never got: roll the staged
	// document back, restoring whatever this version held before.
	prev, hadVersion := h.Registry.Version(doc.Name, doc.Version)
	h.Registry.Add(doc)

	if err := h.MigrationService.EnsureFamily(ctx, doc.Name); err != nil {
		if hadVersion {
			h.Registry.Add(prev)
		} else {
			h.Registry.Remove(doc.Name, doc.Version)
		}
		log.Error("family migration failed", "config", doc.Name, "err", err)
		api.ErrServerError.WriteError(w)
		return
	}

	if h.ConfigDir != "" {
		path := filepath.Join(h.ConfigDir, fmt.Sprintf("%s_v%d.json", doc.TableName, doc.Version))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			// The tables are already migrated; losing the disk copy only
			// costs the registry rebuild on restart.
			log.Warn("could not persist config document", "path", path, "err", err)
		}
	}

	httpx.WriteJSON(w, http.StatusCreated, api.TableInfo{
		Name:      doc.Name,
		TableName: doc.TableName,
		Version:   doc.Version,
		HasZusatz: doc.Zusatz != nil,
	})
}
