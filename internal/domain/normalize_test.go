package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectColumns(t *testing.T) {
	tests := []struct {
		name    string
		header  []string
		aliases Aliases
		lat     int
		lon     int
	}{
		{"plain", []string{"id", "lat", "lon"}, DetectionAliases, 1, 2},
		{"case insensitive", []string{"Latitude", "LONGITUDE"}, DetectionAliases, 0, 1},
		{"alias priority beats column order", []string{"y", "x", "lat", "lng"}, DetectionAliases, 2, 3},
		{"gis export", []string{"OBJECTID", "POINT_X", "POINT_Y"}, FacilityAliases, 2, 1},
		{"gtfs stops", []string{"stop_id", "stop_lat", "stop_lon"}, FacilityAliases, 1, 2},
		{"repeated alias keeps first column", []string{"LAT", "lat", "lon"}, DetectionAliases, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := DetectColumns(tt.header, tt.aliases)
			require.NoError(t, err)
			assert.Equal(t, tt.lat, cols.Lat)
			assert.Equal(t, tt.lon, cols.Lon)
		})
	}
}

func TestDetectColumns_Missing(t *testing.T) {
	_, err := DetectColumns([]string{"name", "lat"}, DetectionAliases)
	require.Error(t, err)

	var cde *ColumnDetectionError
	require.True(t, errors.As(err, &cde))
	assert.Equal(t, []string{"longitude"}, cde.Missing)
	assert.Equal(t, []string{"name", "lat"}, cde.Columns)
	assert.Contains(t, err.Error(), "longitude")

	_, err = DetectColumns([]string{"name"}, DetectionAliases)
	require.True(t, errors.As(err, &cde))
	assert.Equal(t, []string{"latitude", "longitude"}, cde.Missing)
}

func TestCoerceNumeric(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"32.70", 32.70, true},
		{" -117.16 ", -117.16, true},
		{"32.70°", 32.70, true},
		{"$1,234.5", 1234.5, true},
		{"1.5e2", 150, true},
		{"+7", 7, true},
		{"", 0, false},
		{"N/A", 0, false},
		{"nan", 0, false},
		{"1e999", 0, false},
		{"--5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := CoerceNumeric(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestNormalizePoints_DropsInvalidRows(t *testing.T) {
	tbl := Table{
		Header: []string{"Lat", "Lon", "note"},
		Rows: [][]string{
			{"32.70", "-117.16", "ok"},
			{"N/A", "-117.16", "missing lat"},
			{"32.71", "", "missing lon"},
			{"95", "-117.16", "lat out of range"},
			{"32.72", "-190", "lon out of range"},
			{"32.73"}, // short row
			{" 32.74° ", "-117.17", "noisy"},
		},
	}

	points, stats, err := NormalizePoints(tbl, DetectionAliases)
	require.NoError(t, err)

	assert.Equal(t, []Point{{Lat: 32.70, Lon: -117.16}, {Lat: 32.74, Lon: -117.17}}, points)
	assert.Equal(t, 7, stats.Rows)
	assert.Equal(t, 3, stats.Missing)
	assert.Equal(t, 2, stats.OutOfRange)
	assert.Equal(t, 2, stats.Kept())
	assert.False(t, stats.Swapped)
}

func TestNormalizePoints_SwapsReversedAxes(t *testing.T) {
	tbl := Table{
		Header: []string{"latitude", "longitude"},
		Rows: [][]string{
			{"-117.16", "32.70"},
			{"-117.15", "32.71"},
			{"-117.14", "32.72"},
		},
	}

	points, stats, err := NormalizePoints(tbl, DetectionAliases)
	require.NoError(t, err)

	assert.True(t, stats.Swapped)
	require.Len(t, points, 3)
	assert.Equal(t, Point{Lat: 32.70, Lon: -117.16}, points[0])
	assert.Zero(t, stats.OutOfRange, "swap must happen before range filtering")
}

func TestNormalizePoints_SwapUsesMedianNotOutliers(t *testing.T) {
	// One stray longitude-scale value in the latitude column is not enough.
	tbl := Table{
		Header: []string{"lat", "lon"},
		Rows: [][]string{
			{"32.70", "-117.16"},
			{"32.71", "-117.15"},
			{"-117.14", "32.72"},
		},
	}

	points, stats, err := NormalizePoints(tbl, DetectionAliases)
	require.NoError(t, err)
	assert.False(t, stats.Swapped)
	assert.Len(t, points, 2)
	assert.Equal(t, 1, stats.OutOfRange)
}

func TestNormalizePoints_SwapBoundary(t *testing.T) {
	tests := []struct {
		name    string
		lat     []string
		lon     []string
		swapped bool
	}{
		{"lon median exactly 90 swaps", []string{"100", "120"}, []string{"90", "90"}, true},
		{"lat median exactly 90 does not swap", []string{"90", "90"}, []string{"10", "10"}, false},
		{"both medians above 90", []string{"100", "120"}, []string{"100", "120"}, false},
		{"longitude-scale latitude column", []string{"-117", "-117"}, []string{"32", "32"}, true},
		{"swapped but both under 90 is not detected", []string{"-80", "-80"}, []string{"25", "25"}, false},
		{"even count averages middle values", []string{"80", "100", "110", "170"}, []string{"1", "2", "3", "4"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := Table{Header: []string{"lat", "lon"}}
			for i := range tt.lat {
				tbl.Rows = append(tbl.Rows, []string{tt.lat[i], tt.lon[i]})
			}
			_, stats, err := NormalizePoints(tbl, DetectionAliases)
			require.NoError(t, err)
			assert.Equal(t, tt.swapped, stats.Swapped)
		})
	}
}

func TestNormalizePoints_MedianIgnoresMissingValues(t *testing.T) {
	tbl := Table{
		Header: []string{"lat", "lon"},
		Rows: [][]string{
			{"-117.16", "32.70"},
			{"-117.15", "bad"},
			{"bad", "bad"},
		},
	}

	points, stats, err := NormalizePoints(tbl, DetectionAliases)
	require.NoError(t, err)
	assert.True(t, stats.Swapped)
	assert.Equal(t, []Point{{Lat: 32.70, Lon: -117.16}}, points)
	assert.Equal(t, 2, stats.Missing)
}

func TestNormalizePoints_NoColumns(t *testing.T) {
	_, _, err := NormalizePoints(Table{Header: []string{"name", "address"}}, FacilityAliases)

	var cde *ColumnDetectionError
	require.True(t, errors.As(err, &cde))
}

func TestNormalizePoints_EmptyTable(t *testing.T) {
	points, stats, err := NormalizePoints(Table{Header: []string{"lat", "lon"}}, DetectionAliases)
	require.NoError(t, err)
	assert.Empty(t, points)
	assert.Zero(t, stats.Rows)
	assert.False(t, stats.Swapped)
}
