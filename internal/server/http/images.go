package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kartenwerk/geopunkt/internal/server/blob"
	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/httpx"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// ImagesHandler serves photo upload and download under
// /v1/images/{base}/{filename}. The storage path is derived from the
// filename's embedded date, so GET needs no lookup table.
type ImagesHandler struct {
	Blobs *blob.Store
}

func (h *ImagesHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	path, err := h.Blobs.Save(r.PathValue("base"), r.PathValue("filename"), r.Body)
	if err != nil {
		if errors.Is(err, blob.ErrBadFilename) {
			api.ErrInvalidRequest.WriteError(w)
			return
		}
		log.Error("image store failed", "err", err)
		api.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, api.ImageResponse{Path: path})
}

func (h *ImagesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())
	filename := r.PathValue("filename")

	f, err := h.Blobs.Open(r.PathValue("base"), filename)
	if err != nil {
		switch {
		case errors.Is(err, blob.ErrBadFilename):
			api.ErrInvalidRequest.WriteError(w)
		case errors.Is(err, os.ErrNotExist):
			api.ErrNotFound.WriteError(w)
		default:
			log.Error("image read failed", "err", err)
			api.ErrServerError.WriteError(w)
		}
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, f); err != nil {
		log.Warn("image transfer aborted", "err", err)
	}
}
