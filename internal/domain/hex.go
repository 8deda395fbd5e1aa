package domain

import "math"

// Point is a WGS-84 latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both coordinates are finite and within range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// CellID is an H3 index in its canonical lowercase hex string form.
type CellID string

// HexIndexer maps points onto a hierarchical hexagonal grid.
type HexIndexer interface {
	// PointToCell returns the cell containing p at the given resolution.
	PointToCell(p Point, resolution int) (CellID, error)

	// CellToCenter returns the representative center of a cell.
	CellToCenter(id CellID) (Point, error)

	// RingExpand returns every cell within grid distance radius of id,
	// including id itself. Implementations fall back to {id} when the
	// expansion cannot be computed.
	RingExpand(id CellID, radius int) []CellID

	// CellBoundary returns the vertices of the cell outline.
	CellBoundary(id CellID) ([]Point, error)
}

// FocusedCell is one row of the focused-hex table.
type FocusedCell struct {
	ID         CellID `json:"h3_id"`
	Center     Point  `json:"center"`
	TentStatus int    `json:"tent_status"`
}

// EnrichedRow is a focused cell with one count per catalogue category,
// in catalogue order.
type EnrichedRow struct {
	FocusedCell
	Counts []int `json:"counts"`
}

// EnrichedTable is the terminal artifact of a pipeline run.
type EnrichedTable struct {
	Catalogue Catalogue
	Rows      []EnrichedRow
}

// CountColumns returns the "<prefix>_count" column names in catalogue order.
func (t EnrichedTable) CountColumns() []string {
	return t.Catalogue.CountColumns()
}

// Core column names shared by the focused and enriched tables.
const (
	ColumnID         = "h3_id"
	ColumnCenterLat  = "center_lat"
	ColumnCenterLon  = "center_lon"
	ColumnTentStatus = "tent_status"
)

// FocusedColumns is the header of the focused-hex table.
var FocusedColumns = []string{ColumnID, ColumnCenterLat, ColumnCenterLon, ColumnTentStatus}

// Table is a header plus string records, as read from a CSV file.
// Records may be shorter than the header; missing trailing fields read as empty.
type Table struct {
	Header []string
	Rows   [][]string
}

// Field returns the value at column col of row, or "" when the row is short.
func (t Table) Field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// ColumnIndex returns the index of an exact header match, or -1.
func (t Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// RunInfo identifies the pipeline run that produced a table.
type RunInfo struct {
	ID         string `json:"run_id"`
	Resolution int    `json:"resolution"`
	Ring       int    `json:"ring"`
}
