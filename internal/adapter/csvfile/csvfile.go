// Package csvfile reads raw datasets and reads/writes the focused and enriched
// hex tables as CSV files.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// Read loads a CSV file into a table. A UTF-8 or UTF-16 byte order mark is
// stripped so the first header name matches its alias. Rows may have fewer
// or more fields than the header.
func Read(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	tbl, err := Decode(f)
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return tbl, nil
}

// Decode parses CSV from r.
func Decode(r io.Reader) (domain.Table, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	// Free-text columns carry bare quotes (`Joe's 5" Stop`); keep them literal.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, errors.New("empty file")
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("header: %w", err)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("records: %w", err)
	}
	return domain.Table{Header: header, Rows: rows}, nil
}

// WriteFocused writes the focused-hex table.
func WriteFocused(path string, cells []domain.FocusedCell) error {
	return writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(domain.FocusedColumns); err != nil {
			return err
		}
		for _, c := range cells {
			if err := w.Write(focusedRecord(c)); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteEnriched writes the enriched table: the focused columns followed by
// one "<prefix>_count" column per catalogue category.
func WriteEnriched(path string, tbl domain.EnrichedTable) error {
	header := append(append([]string(nil), domain.FocusedColumns...), tbl.CountColumns()...)
	return writeAtomic(path, func(w *csv.Writer) error {
		if err := w.Write(header); err != nil {
			return err
		}
		for _, row := range tbl.Rows {
			if len(row.Counts) != tbl.Catalogue.Len() {
				return fmt.Errorf("row %s has %d counts, want %d", row.ID, len(row.Counts), tbl.Catalogue.Len())
			}
			rec := focusedRecord(row.FocusedCell)
			for _, n := range row.Counts {
				rec = append(rec, strconv.Itoa(n))
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadFocused loads a focused-hex table written by WriteFocused. Extra
// columns are ignored; missing core columns yield a *domain.SchemaError.
func ReadFocused(path string) ([]domain.FocusedCell, error) {
	tbl, err := Read(path)
	if err != nil {
		return nil, err
	}
	source := filepath.Base(path)

	idx := make([]int, len(domain.FocusedColumns))
	for i, col := range domain.FocusedColumns {
		idx[i] = tbl.ColumnIndex(col)
		if idx[i] < 0 {
			return nil, &domain.SchemaError{Source: source, Reason: fmt.Sprintf("missing column %q", col)}
		}
	}

	cells := make([]domain.FocusedCell, 0, len(tbl.Rows))
	seen := make(map[domain.CellID]struct{}, len(tbl.Rows))
	for n, row := range tbl.Rows {
		line := n + 2
		id := domain.CellID(strings.TrimSpace(tbl.Field(row, idx[0])))
		if id == "" {
			return nil, &domain.SchemaError{Source: source, Reason: fmt.Sprintf("line %d: empty %s", line, domain.ColumnID)}
		}
		if _, dup := seen[id]; dup {
			return nil, &domain.SchemaError{Source: source, Reason: fmt.Sprintf("line %d: duplicate %s %s", line, domain.ColumnID, id)}
		}
		seen[id] = struct{}{}

		lat, err := strconv.ParseFloat(strings.TrimSpace(tbl.Field(row, idx[1])), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %s: %w", source, line, domain.ColumnCenterLat, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(tbl.Field(row, idx[2])), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %s: %w", source, line, domain.ColumnCenterLon, err)
		}
		status, err := strconv.Atoi(strings.TrimSpace(tbl.Field(row, idx[3])))
		if err != nil || (status != 0 && status != 1) {
			return nil, fmt.Errorf("%s line %d: %s must be 0 or 1", source, line, domain.ColumnTentStatus)
		}
		cells = append(cells, domain.FocusedCell{
			ID:         id,
			Center:     domain.Point{Lat: lat, Lon: lon},
			TentStatus: status,
		})
	}
	return cells, nil
}

func focusedRecord(c domain.FocusedCell) []string {
	return []string{
		string(c.ID),
		FormatFloat(c.Center.Lat),
		FormatFloat(c.Center.Lon),
		strconv.Itoa(c.TentStatus),
	}
}

// FormatFloat renders v with the fewest digits that parse back to v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeAtomic writes to a temporary file in the target directory and renames
// it into place, so readers never observe a partial table.
func writeAtomic(path string, fill func(w *csv.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	w := csv.NewWriter(tmp)
	if err := fill(w); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
