package service

import (
	"context"

	"github.com/kartenwerk/geopunkt/internal/server/store"
	"github.com/kartenwerk/geopunkt/internal/server/tables"
)

// RowService reads rows back out of family tables. The table name from the
// request path is only interpolated into SQL after the registry has
// resolved it to a registered family, so unregistered names never reach the
// database.
type RowService struct {
	Store    store.Store
	Registry *tables.Registry
}

// List returns every row of a family table.
func (s *RowService) List(ctx context.Context, table string) ([]map[string]any, error) {
	if _, _, err := s.Registry.ByTable(table); err != nil {
		return nil, err
	}
	return s.Store.Tables().Query(ctx, "SELECT * FROM "+table)
}

// Region is a bounding box over the rounded coordinate columns. The bounds
// are kept as strings because lat_round/lon_round are stored as text and
// compared lexically; clients send them pre-rounded to the configured
// precision.
type Region struct {
	MinLat, MaxLat string
	MinLon, MaxLon string
}

// InRegion returns the rows of a family table whose rounded coordinates
// fall inside the bounding box.
func (s *RowService) InRegion(ctx context.Context, table string, reg Region) ([]map[string]any, error) {
	if _, _, err := s.Registry.ByTable(table); err != nil {
		return nil, err
	}
	return s.Store.Tables().Query(ctx,
		"SELECT * FROM "+table+
			" WHERE lat_round >= :minlat AND lat_round <= :maxlat"+
			" AND lon_round >= :minlon AND lon_round <= :maxlon",
		namedBounds(reg)...)
}

func namedBounds(reg Region) []any {
	return []any{
		store.Named("minlat", reg.MinLat),
		store.Named("maxlat", reg.MaxLat),
		store.Named("minlon", reg.MinLon),
		store.Named("maxlon", reg.MaxLon),
	}
}
