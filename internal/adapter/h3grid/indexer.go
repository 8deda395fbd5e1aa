// Package h3grid implements domain.HexIndexer on top of Uber's H3 library.
package h3grid

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/uber/h3-go/v4"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// MaxResolution is the finest H3 resolution.
const MaxResolution = 15

// Indexer maps points to H3 cells.
// It implements domain.HexIndexer.
type Indexer struct {
	logger *slog.Logger
}

// NewIndexer creates an H3-backed indexer.
func NewIndexer(logger *slog.Logger) *Indexer {
	return &Indexer{logger: logger}
}

// PointToCell returns the cell containing p at resolution.
func (x *Indexer) PointToCell(p domain.Point, resolution int) (domain.CellID, error) {
	if resolution < 0 || resolution > MaxResolution {
		return "", fmt.Errorf("h3: resolution %d out of range [0, %d]", resolution, MaxResolution)
	}
	if !p.Valid() {
		return "", fmt.Errorf("h3: invalid point (%g, %g)", p.Lat, p.Lon)
	}
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), resolution)
	if err != nil {
		return "", fmt.Errorf("h3: lat/lng to cell: %w", err)
	}
	return domain.CellID(cell.String()), nil
}

// CellToCenter returns the centroid of a cell.
func (x *Indexer) CellToCenter(id domain.CellID) (domain.Point, error) {
	cell, err := parseCell(id)
	if err != nil {
		return domain.Point{}, err
	}
	ll, err := h3.CellToLatLng(cell)
	if err != nil {
		return domain.Point{}, fmt.Errorf("h3: cell to lat/lng %s: %w", id, err)
	}
	return domain.Point{Lat: ll.Lat, Lon: ll.Lng}, nil
}

// RingExpand returns the grid disk of radius around id. Any failure (invalid
// id, pentagon distortion) degrades to {id}.
func (x *Indexer) RingExpand(id domain.CellID, radius int) []domain.CellID {
	if radius <= 0 {
		return []domain.CellID{id}
	}
	cell, err := parseCell(id)
	if err != nil {
		x.logger.Warn("ring expansion skipped", "h3_id", id, "radius", radius, "error", err)
		return []domain.CellID{id}
	}
	disk, err := h3.GridDisk(cell, radius)
	if err != nil || len(disk) == 0 {
		x.logger.Warn("ring expansion failed, keeping origin only", "h3_id", id, "radius", radius, "error", err)
		return []domain.CellID{id}
	}

	out := make([]domain.CellID, 0, len(disk))
	for _, c := range disk {
		if c == 0 {
			continue
		}
		out = append(out, domain.CellID(c.String()))
	}
	return out
}

// CellBoundary returns the cell outline vertices in counter-clockwise order.
func (x *Indexer) CellBoundary(id domain.CellID) ([]domain.Point, error) {
	cell, err := parseCell(id)
	if err != nil {
		return nil, err
	}
	boundary, err := h3.CellToBoundary(cell)
	if err != nil {
		return nil, fmt.Errorf("h3: cell boundary %s: %w", id, err)
	}
	pts := make([]domain.Point, len(boundary))
	for i, ll := range boundary {
		pts[i] = domain.Point{Lat: ll.Lat, Lon: ll.Lng}
	}
	return pts, nil
}

// Resolution returns the resolution encoded in id.
func (x *Indexer) Resolution(id domain.CellID) (int, error) {
	cell, err := parseCell(id)
	if err != nil {
		return 0, err
	}
	return cell.Resolution(), nil
}

func parseCell(id domain.CellID) (h3.Cell, error) {
	v, err := strconv.ParseUint(string(id), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("h3: parse cell id %q: %w", id, err)
	}
	cell := h3.Cell(v)
	if !cell.IsValid() {
		return 0, fmt.Errorf("h3: invalid cell id %q", id)
	}
	return cell, nil
}
