package domain

import "fmt"

// CountByCell maps each point to a cell and returns the per-cell frequency.
func CountByCell(points []Point, indexer HexIndexer, resolution int) (map[CellID]int, error) {
	counts := make(map[CellID]int)
	for _, p := range points {
		id, err := indexer.PointToCell(p, resolution)
		if err != nil {
			return nil, fmt.Errorf("count by cell: index point (%g, %g): %w", p.Lat, p.Lon, err)
		}
		counts[id]++
	}
	return counts, nil
}

// JoinCounts returns the count for each focused cell, in row order, with 0
// for cells absent from counts.
func JoinCounts(cells []FocusedCell, counts map[CellID]int) []int {
	col := make([]int, len(cells))
	for i, c := range cells {
		col[i] = counts[c.ID]
	}
	return col
}

// AssembleEnriched combines focused cells with per-category count columns.
// columns[j] holds the counts for the j-th catalogue category; a nil column
// is treated as all zeros.
func AssembleEnriched(cells []FocusedCell, catalogue Catalogue, columns [][]int) (EnrichedTable, error) {
	if len(columns) != catalogue.Len() {
		return EnrichedTable{}, fmt.Errorf("assemble enriched: %d columns for %d categories", len(columns), catalogue.Len())
	}
	for j, col := range columns {
		if col != nil && len(col) != len(cells) {
			return EnrichedTable{}, fmt.Errorf("assemble enriched: column %d has %d rows, want %d", j, len(col), len(cells))
		}
	}

	rows := make([]EnrichedRow, len(cells))
	for i, c := range cells {
		counts := make([]int, len(columns))
		for j, col := range columns {
			if col != nil {
				counts[j] = col[i]
			}
		}
		rows[i] = EnrichedRow{FocusedCell: c, Counts: counts}
	}
	return EnrichedTable{Catalogue: catalogue, Rows: rows}, nil
}
