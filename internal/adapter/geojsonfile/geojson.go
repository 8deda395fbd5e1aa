// Package geojsonfile renders hex cells as GeoJSON polygons.
package geojsonfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// CellFeature builds a polygon feature for a cell. The feature id is the cell
// id and props are copied onto the feature properties.
func CellFeature(indexer domain.HexIndexer, id domain.CellID, props map[string]any) (*geojson.Feature, error) {
	boundary, err := indexer.CellBoundary(id)
	if err != nil {
		return nil, err
	}
	if len(boundary) < 3 {
		return nil, fmt.Errorf("cell %s: boundary has %d vertices", id, len(boundary))
	}

	ring := make(orb.Ring, 0, len(boundary)+1)
	for _, p := range boundary {
		ring = append(ring, orb.Point{p.Lon, p.Lat})
	}
	ring = append(ring, ring[0])

	f := geojson.NewFeature(orb.Polygon{ring})
	f.ID = string(id)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f, nil
}

// RowProperties returns the GeoJSON properties of an enriched row.
func RowProperties(row domain.EnrichedRow, countColumns []string) map[string]any {
	props := map[string]any{
		domain.ColumnID:         string(row.ID),
		domain.ColumnCenterLat:  row.Center.Lat,
		domain.ColumnCenterLon:  row.Center.Lon,
		domain.ColumnTentStatus: row.TentStatus,
	}
	for i, col := range countColumns {
		if i < len(row.Counts) {
			props[col] = row.Counts[i]
		}
	}
	return props
}

// FromEnriched converts every row of the enriched table into a feature.
func FromEnriched(indexer domain.HexIndexer, tbl domain.EnrichedTable) (*geojson.FeatureCollection, error) {
	cols := tbl.CountColumns()
	fc := geojson.NewFeatureCollection()
	for _, row := range tbl.Rows {
		f, err := CellFeature(indexer, row.ID, RowProperties(row, cols))
		if err != nil {
			return nil, err
		}
		fc.Append(f)
	}
	return fc, nil
}

// WriteFile marshals fc to path, creating parent directories.
func WriteFile(path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal geojson: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
