package domain

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// nonNumericRe matches every character that cannot appear in a decimal or
// exponent float literal.
var nonNumericRe = regexp.MustCompile(`[^0-9.\-+eE]`)

// Aliases lists candidate column names for each axis in priority order.
type Aliases struct {
	Lat []string
	Lon []string
}

var (
	// DetectionAliases resolves coordinate columns in tent detection exports.
	DetectionAliases = Aliases{
		Lat: []string{"lat", "latitude", "y"},
		Lon: []string{"lon", "lng", "longitude", "x"},
	}

	// FacilityAliases resolves coordinate columns in facility exports, which
	// include GIS (POINT_X/POINT_Y) and GTFS (stop_lat/stop_lon) conventions.
	FacilityAliases = Aliases{
		Lat: []string{"lat", "latitude", "y", "ycoord", "y_coordinate", "point_y", "stop_lat"},
		Lon: []string{"lon", "lng", "longitude", "x", "xcoord", "x_coordinate", "point_x", "stop_lon"},
	}
)

// ColumnPair holds the resolved header indexes of the coordinate columns.
type ColumnPair struct {
	Lat int
	Lon int
}

// NormalizeStats counts what happened to each row during normalization.
type NormalizeStats struct {
	Rows       int  // rows read
	Missing    int  // dropped: unparsable or empty coordinate
	OutOfRange int  // dropped: outside lat/lon bounds
	Swapped    bool // latitude and longitude columns were exchanged
}

// Kept returns the number of rows that survived normalization.
func (s NormalizeStats) Kept() int {
	return s.Rows - s.Missing - s.OutOfRange
}

// DetectColumns resolves the latitude and longitude columns of header.
// Matching is case-insensitive; the first alias present wins.
func DetectColumns(header []string, aliases Aliases) (ColumnPair, error) {
	lat := pickColumn(header, aliases.Lat)
	lon := pickColumn(header, aliases.Lon)
	if lat >= 0 && lon >= 0 {
		return ColumnPair{Lat: lat, Lon: lon}, nil
	}

	var missing []string
	if lat < 0 {
		missing = append(missing, "latitude")
	}
	if lon < 0 {
		missing = append(missing, "longitude")
	}
	return ColumnPair{}, &ColumnDetectionError{
		Missing: missing,
		Columns: append([]string(nil), header...),
	}
}

func pickColumn(header, candidates []string) int {
	for _, c := range candidates {
		for i, h := range header {
			if strings.EqualFold(h, c) {
				return i
			}
		}
	}
	return -1
}

// CoerceNumeric strips everything but digits, sign, decimal point, and
// exponent markers, then parses the rest. ok is false for unparsable or
// non-finite values.
func CoerceNumeric(s string) (float64, bool) {
	cleaned := nonNumericRe.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// NormalizePoints detects the coordinate columns of t, coerces their values,
// corrects swapped axes, and returns the valid points in row order.
func NormalizePoints(t Table, aliases Aliases) ([]Point, NormalizeStats, error) {
	cols, err := DetectColumns(t.Header, aliases)
	if err != nil {
		return nil, NormalizeStats{}, err
	}

	n := len(t.Rows)
	stats := NormalizeStats{Rows: n}
	lats := make([]float64, n)
	lons := make([]float64, n)
	latOK := make([]bool, n)
	lonOK := make([]bool, n)
	for i, row := range t.Rows {
		lats[i], latOK[i] = CoerceNumeric(t.Field(row, cols.Lat))
		lons[i], lonOK[i] = CoerceNumeric(t.Field(row, cols.Lon))
	}

	if shouldSwapAxes(lats, latOK, lons, lonOK) {
		lats, lons = lons, lats
		latOK, lonOK = lonOK, latOK
		stats.Swapped = true
	}

	points := make([]Point, 0, n)
	for i := range n {
		if !latOK[i] || !lonOK[i] {
			stats.Missing++
			continue
		}
		p := Point{Lat: lats[i], Lon: lons[i]}
		if !p.Valid() {
			stats.OutOfRange++
			continue
		}
		points = append(points, p)
	}
	return points, stats, nil
}

// shouldSwapAxes applies the reversed-column heuristic: latitude values that
// look like longitudes (median magnitude above 90) next to longitude values
// that fit in the latitude range. Medians ignore missing values per column.
func shouldSwapAxes(lats []float64, latOK []bool, lons []float64, lonOK []bool) bool {
	latMed, ok := medianAbs(lats, latOK)
	if !ok {
		return false
	}
	lonMed, ok := medianAbs(lons, lonOK)
	if !ok {
		return false
	}
	return latMed > 90 && lonMed >= 0 && lonMed <= 90
}

// medianAbs returns the median of |v| over present values, averaging the two
// middle values for even counts.
func medianAbs(values []float64, present []bool) (float64, bool) {
	abs := make([]float64, 0, len(values))
	for i, v := range values {
		if present[i] {
			abs = append(abs, math.Abs(v))
		}
	}
	if len(abs) == 0 {
		return 0, false
	}
	slices.Sort(abs)
	mid := len(abs) / 2
	if len(abs)%2 == 1 {
		return abs[mid], true
	}
	return (abs[mid-1] + abs[mid]) / 2, true
}
