package domain

import (
	"errors"
	"fmt"
	"slices"
)

// BuildFocusSet maps detections to cells, grows each detection cell by ring,
// and returns one row per distinct cell sorted by id. Cells that contain a
// detection carry TentStatus 1; cells reached only by expansion carry 0.
func BuildFocusSet(points []Point, indexer HexIndexer, resolution, ring int) ([]FocusedCell, error) {
	if ring < 0 {
		return nil, errors.New("focus set: ring must be non-negative")
	}

	detected := make(map[CellID]struct{}, len(points))
	for _, p := range points {
		id, err := indexer.PointToCell(p, resolution)
		if err != nil {
			return nil, fmt.Errorf("focus set: index point (%g, %g): %w", p.Lat, p.Lon, err)
		}
		detected[id] = struct{}{}
	}

	focused := make(map[CellID]struct{}, len(detected)*(1+3*ring*(ring+1)))
	for id := range detected {
		for _, n := range indexer.RingExpand(id, ring) {
			focused[n] = struct{}{}
		}
		// A failed expansion may drop the origin; keep it regardless.
		focused[id] = struct{}{}
	}

	ids := make([]CellID, 0, len(focused))
	for id := range focused {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	cells := make([]FocusedCell, 0, len(ids))
	for _, id := range ids {
		center, err := indexer.CellToCenter(id)
		if err != nil {
			return nil, fmt.Errorf("focus set: center of %s: %w", id, err)
		}
		status := 0
		if _, ok := detected[id]; ok {
			status = 1
		}
		cells = append(cells, FocusedCell{ID: id, Center: center, TentStatus: status})
	}
	return cells, nil
}
