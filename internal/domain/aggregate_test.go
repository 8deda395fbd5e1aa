package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountByCell(t *testing.T) {
	g := newSquareGrid()
	points := []Point{
		{Lat: 32.701, Lon: -117.161},
		{Lat: 32.709, Lon: -117.169}, // same 0.01° square
		{Lat: 32.751, Lon: -117.161},
	}

	counts, err := CountByCell(points, g, 10)
	require.NoError(t, err)

	x, _ := g.PointToCell(points[0], 10)
	y, _ := g.PointToCell(points[2], 10)
	assert.Equal(t, map[CellID]int{x: 2, y: 1}, counts)
}

func TestCountByCell_Empty(t *testing.T) {
	counts, err := CountByCell(nil, newSquareGrid(), 10)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestCountByCell_IndexerError(t *testing.T) {
	_, err := CountByCell([]Point{{Lat: 1, Lon: 1}}, &brokenGrid{}, 10)
	require.Error(t, err)
}

func TestJoinCounts(t *testing.T) {
	cells := []FocusedCell{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	counts := map[CellID]int{"b": 2, "z": 7}

	assert.Equal(t, []int{0, 2, 0}, JoinCounts(cells, counts))
	assert.Equal(t, []int{0, 0, 0}, JoinCounts(cells, nil))
}

func TestAssembleEnriched(t *testing.T) {
	cat := MustCatalogue([]FacilityCategory{
		{Name: "Transit", Prefix: "transit"},
		{Name: "Health", Prefix: "health"},
	})
	cells := []FocusedCell{{ID: "a", TentStatus: 1}, {ID: "b"}}

	tbl, err := AssembleEnriched(cells, cat, [][]int{{2, 0}, nil})
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []int{2, 0}, tbl.Rows[0].Counts)
	assert.Equal(t, []int{0, 0}, tbl.Rows[1].Counts)
	assert.Equal(t, CellID("a"), tbl.Rows[0].ID)
	assert.Equal(t, 1, tbl.Rows[0].TentStatus)
	assert.Equal(t, []string{"transit_count", "health_count"}, tbl.CountColumns())
}

func TestAssembleEnriched_ShapeMismatch(t *testing.T) {
	cat := MustCatalogue([]FacilityCategory{{Name: "Transit", Prefix: "transit"}})
	cells := []FocusedCell{{ID: "a"}}

	_, err := AssembleEnriched(cells, cat, [][]int{{1}, {2}})
	require.Error(t, err)

	_, err = AssembleEnriched(cells, cat, [][]int{{1, 2}})
	require.Error(t, err)
}
