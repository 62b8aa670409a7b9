package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kartenwerk/geopunkt/internal/server/service"
	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
	"github.com/kartenwerk/geopunkt/pkg/api"
	"github.com/kartenwerk/geopunkt/pkg/httpx"
	"github.com/kartenwerk/geopunkt/pkg/slogx"
)

// RowsHandler serves the row read and write routes of the family tables.
type RowsHandler struct {
	RowService    *service.RowService
	UpsertService *service.UpsertService
	Registry      *tables.Registry
}

// HandleTables serves GET /v1/tables: the registered table families.
func (h *RowsHandler) HandleTables(w http.ResponseWriter, r *http.Request) {
	names := h.Registry.Names()
	infos := make([]api.TableInfo, 0, len(names))
	for _, name := range names {
		doc, ok := h.Registry.Current(name)
		if !ok {
			continue
		}
		infos = append(infos, api.TableInfo{
			Name:      doc.Name,
			TableName: doc.TableName,
			Version:   doc.Version,
			HasZusatz: doc.Zusatz != nil,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, infos)
}

// HandleList serves GET /v1/table/{table}: every row of one family table.
func (h *RowsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	rows, err := h.RowService.List(ctx, r.PathValue("table"))
	if err != nil {
		var unknown *tables.ErrUnknownFamily
		if errors.As(err, &unknown) {
			api.ErrUnknownTable.WriteError(w)
			return
		}
		log.Error("row listing failed", "err", err)
		api.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, api.RowsResponse{Result: rows})
}

// HandleRegion serves GET /v1/region/{table}: rows inside a bounding box
// given as minlat/maxlat/minlon/maxlon query parameters.
func (h *RowsHandler) HandleRegion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	q := r.URL.Query()
	reg := service.Region{
		MinLat: q.Get("minlat"),
		MaxLat: q.Get("maxlat"),
		MinLon: q.Get("minlon"),
		MaxLon: q.Get("maxlon"),
	}
	if reg.MinLat == "" || reg.MaxLat == "" || reg.MinLon == "" || reg.MaxLon == "" {
		api.ErrInvalidRequest.WriteError(w)
		return
	}

	rows, err := h.RowService.InRegion(ctx, r.PathValue("table"), reg)
	if err != nil {
		var unknown *tables.ErrUnknownFamily
		if errors.As(err, &unknown) {
			api.ErrUnknownTable.WriteError(w)
			return
		}
		log.Error("region query failed", "err", err)
		api.ErrServerError.WriteError(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, api.RowsResponse{Result: rows})
}

// HandleAdd serves POST /v1/table/{table}/rows: bulk upsert of a row batch.
// The body is a JSON array of rows; a single JSON object is accepted as a
// batch of one.
func (h *RowsHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)
	table := r.PathValue("table")

	rows, err := decodeRows(r)
	if err != nil {
		api.ErrInvalidRequest.WriteError(w)
		return
	}

	res, err := h.UpsertService.Upsert(ctx, table, rows, httpx.UsernameFromCtx(ctx))
	if err != nil {
		var unknown *tables.ErrUnknownFamily
		var conflict *store.ConstraintError
		switch {
		case errors.As(err, &unknown):
			api.ErrUnknownTable.WriteError(w)
		case errors.As(err, &conflict):
			// The single delete-and-retry pass did not clear the
			// collision.
			log.Warn("upsert conflict not resolvable", "table", table, "err", err)
			api.ErrConflict.WriteError(w)
		default:
			log.Error("upsert failed", "table", table, "err", err)
			api.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, api.AddRowsResponse{
		Table:    table,
		Inserted: res.Inserted,
		Deleted:  res.Deleted,
		Replaced: res.Outcome == service.OutcomeReplaced,
	})
}

func decodeRows(r *http.Request) ([]service.Row, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var rows []service.Row
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}
	var row service.Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, err
	}
	return []service.Row{row}, nil
}
