// Package lookup holds the enriched hex table in memory for id and point
// lookups.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/csvfile"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

const countSuffix = "_count"

// Record is one enriched hex row.
type Record struct {
	ID         domain.CellID
	Center     domain.Point
	TentStatus int
	// Facilities maps each *_count column to its value.
	Facilities map[string]int
}

// Table is an immutable, id-indexed enriched table.
type Table struct {
	source       string
	columns      []string
	countColumns []string
	order        []domain.CellID
	rows         map[domain.CellID]Record
}

// Load reads an enriched CSV. The h3_id column is required and its trimmed
// values must be unique; violations yield a *domain.SchemaError.
func Load(path string) (*Table, error) {
	raw, err := csvfile.Read(path)
	if err != nil {
		return nil, err
	}
	return newTable(filepath.Base(path), raw)
}

func newTable(source string, raw domain.Table) (*Table, error) {
	idCol := raw.ColumnIndex(domain.ColumnID)
	if idCol < 0 {
		return nil, &domain.SchemaError{Source: source, Reason: fmt.Sprintf("missing primary key column %q", domain.ColumnID)}
	}
	latCol := raw.ColumnIndex(domain.ColumnCenterLat)
	lonCol := raw.ColumnIndex(domain.ColumnCenterLon)
	statusCol := raw.ColumnIndex(domain.ColumnTentStatus)

	t := &Table{
		source:  source,
		columns: append([]string(nil), raw.Header...),
		order:   make([]domain.CellID, 0, len(raw.Rows)),
		rows:    make(map[domain.CellID]Record, len(raw.Rows)),
	}
	var countIdx []int
	for i, h := range raw.Header {
		if strings.HasSuffix(h, countSuffix) {
			t.countColumns = append(t.countColumns, h)
			countIdx = append(countIdx, i)
		}
	}

	for n, row := range raw.Rows {
		line := n + 2
		id := domain.CellID(strings.TrimSpace(raw.Field(row, idCol)))
		if id == "" {
			return nil, &domain.SchemaError{Source: source, Reason: fmt.Sprintf("line %d: empty %s", line, domain.ColumnID)}
		}
		if _, dup := t.rows[id]; dup {
			return nil, &domain.SchemaError{Source: source, Reason: fmt.Sprintf("line %d: duplicate %s %s", line, domain.ColumnID, id)}
		}

		lat, errLat := parseFloat(raw.Field(row, latCol))
		lon, errLon := parseFloat(raw.Field(row, lonCol))
		status, errStatus := parseInt(raw.Field(row, statusCol))
		rec := Record{
			ID:         id,
			Center:     domain.Point{Lat: lat, Lon: lon},
			TentStatus: status,
			Facilities: make(map[string]int, len(countIdx)),
		}
		errs := []error{errLat, errLon, errStatus}
		for j, col := range countIdx {
			v, err := parseInt(raw.Field(row, col))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.countColumns[j], err))
			}
			rec.Facilities[t.countColumns[j]] = v
		}
		if err := errors.Join(errs...); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", source, line, err)
		}

		t.rows[id] = rec
		t.order = append(t.order, id)
	}
	return t, nil
}

// Get returns the record for id after trimming surrounding whitespace.
func (t *Table) Get(id string) (Record, bool) {
	rec, ok := t.rows[domain.CellID(strings.TrimSpace(id))]
	return rec, ok
}

// Records returns every record in file order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.order))
	for i, id := range t.order {
		out[i] = t.rows[id]
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.order) }

// Columns returns the header of the loaded file.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// CountColumns returns the *_count columns in header order.
func (t *Table) CountColumns() []string { return append([]string(nil), t.countColumns...) }

// Source is the base name of the file the table was loaded from.
func (t *Table) Source() string { return t.source }

// Missing core numeric columns read as zero.
func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// Counts written by float-typed tools ("2.0").
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.Abs(f) > math.MaxInt32 || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

// Store holds the currently served table. It is safe for concurrent use and
// implements the readiness check for the lookup API.
type Store struct {
	table atomic.Pointer[Table]
}

// NewStore returns an empty store; it reports not ready until Set is called.
func NewStore() *Store {
	return &Store{}
}

// Set swaps in a new table.
func (s *Store) Set(t *Table) { s.table.Store(t) }

// Table returns the current table, or nil before the first Set.
func (s *Store) Table() *Table { return s.table.Load() }

// Reload loads path and swaps it in. The previous table keeps serving when
// loading fails.
func (s *Store) Reload(path string) (*Table, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	s.Set(t)
	return t, nil
}

func (s *Store) CheckReadiness(_ context.Context) error {
	if s.Table() == nil {
		return errors.New("enriched table not loaded")
	}
	return nil
}
