package domain

import (
	"errors"
	"fmt"
	"math"
)

// squareGrid is a deterministic stand-in for H3: cells are step-degree
// squares and rings use Chebyshev distance.
type squareGrid struct {
	step      float64
	failRings map[CellID]bool
	calls     int
}

func newSquareGrid() *squareGrid {
	return &squareGrid{step: 0.01}
}

func (g *squareGrid) PointToCell(p Point, res int) (CellID, error) {
	g.calls++
	if !p.Valid() {
		return "", errors.New("invalid point")
	}
	i := int(math.Floor(p.Lat / g.step))
	j := int(math.Floor(p.Lon / g.step))
	return g.id(res, i, j), nil
}

func (g *squareGrid) id(res, i, j int) CellID {
	return CellID(fmt.Sprintf("%d:%d:%d", res, i, j))
}

func (g *squareGrid) parse(id CellID) (res, i, j int, err error) {
	_, err = fmt.Sscanf(string(id), "%d:%d:%d", &res, &i, &j)
	return res, i, j, err
}

func (g *squareGrid) CellToCenter(id CellID) (Point, error) {
	_, i, j, err := g.parse(id)
	if err != nil {
		return Point{}, err
	}
	return Point{Lat: (float64(i) + 0.5) * g.step, Lon: (float64(j) + 0.5) * g.step}, nil
}

func (g *squareGrid) RingExpand(id CellID, radius int) []CellID {
	if g.failRings[id] {
		return nil
	}
	res, i, j, err := g.parse(id)
	if err != nil {
		return []CellID{id}
	}
	var out []CellID
	for di := -radius; di <= radius; di++ {
		for dj := -radius; dj <= radius; dj++ {
			out = append(out, g.id(res, i+di, j+dj))
		}
	}
	return out
}

func (g *squareGrid) CellBoundary(id CellID) ([]Point, error) {
	c, err := g.CellToCenter(id)
	if err != nil {
		return nil, err
	}
	h := g.step / 2
	return []Point{
		{Lat: c.Lat - h, Lon: c.Lon - h},
		{Lat: c.Lat - h, Lon: c.Lon + h},
		{Lat: c.Lat + h, Lon: c.Lon + h},
		{Lat: c.Lat + h, Lon: c.Lon - h},
	}, nil
}

// brokenGrid fails every point lookup.
type brokenGrid struct{ squareGrid }

func (g *brokenGrid) PointToCell(Point, int) (CellID, error) {
	return "", errors.New("grid unavailable")
}
