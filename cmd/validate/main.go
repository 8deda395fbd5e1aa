// Command validate checks an enriched hex table for structural and spatial
// integrity: schema, per-row values, catalogue coverage, and that every tent
// cell's ring neighbors made it into the focus set.
//
// Usage:
//
//	go run ./cmd/validate -enriched data/processed/<run>/focused_hexes_enriched_ring1_res10.csv
//	go run ./cmd/validate -enriched ... -tents data/raw/Tents.csv
//
// Resolution, ring, and the catalogue come from the usual configuration
// (CONFIG_PATH and environment).
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/csvfile"
	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/h3grid"
	"github.com/couchcryptid/tent-hex-enrichment/internal/config"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// maxReported caps the per-phase error listing.
const maxReported = 25

func main() {
	enriched := flag.String("enriched", "", "path to the enriched hex CSV")
	tents := flag.String("tents", "", "optional tent detections CSV to cross-check tent_status")
	flag.Parse()

	if *enriched == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*enriched, *tents))
}

// row is a parsed enriched row; fields that failed to parse stay zero and
// are reported by the schema phase.
type row struct {
	line   int
	id     domain.CellID
	center domain.Point
	status int
	counts map[string]int
}

func run(enrichedPath, tentsPath string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	indexer := h3grid.NewIndexer(slog.New(slog.NewTextHandler(io.Discard, nil)))

	fmt.Println("=== Enriched Hex Table Validation ===")
	fmt.Printf("table: %s  resolution: %d  ring: %d  categories: %d\n\n",
		enrichedPath, cfg.HexResolution, cfg.TentRing, cfg.Catalogue.Len())

	tbl, err := csvfile.Read(enrichedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	schema, rows := validateSchema(tbl, cfg.Catalogue)
	phases := []*phase{
		schema,
		validateCells(rows, indexer, cfg.HexResolution),
		validateFocus(rows, indexer, cfg.TentRing),
	}
	if tentsPath != "" {
		phases = append(phases, validateTents(rows, tentsPath, indexer, cfg.HexResolution))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	tentsN := 0
	for _, r := range rows {
		tentsN += r.status
	}
	fmt.Printf("\nRows: %d (%d tent cells, %d neighbor cells)\n", len(rows), tentsN, len(rows)-tentsN)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			if i == maxReported {
				fmt.Printf("  ... %d more\n", len(p.errors)-maxReported)
				break
			}
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Schema ──
// Core columns present, one count column per category, values well formed.

func validateSchema(tbl domain.Table, catalogue domain.Catalogue) (*phase, []row) {
	p := &phase{name: "Phase 1: Schema and Values"}

	idx := map[string]int{}
	for _, col := range domain.FocusedColumns {
		i := tbl.ColumnIndex(col)
		if i < 0 {
			p.errorf("missing core column %q", col)
			continue
		}
		idx[col] = i
	}
	if _, ok := idx[domain.ColumnID]; !ok {
		return p, nil
	}

	countCols := catalogue.CountColumns()
	for _, col := range countCols {
		i := tbl.ColumnIndex(col)
		if i < 0 {
			p.errorf("missing count column %q", col)
			continue
		}
		idx[col] = i
	}
	for _, h := range tbl.Header {
		if strings.HasSuffix(h, "_count") && !slices.Contains(countCols, h) {
			p.errorf("count column %q is not in the catalogue", h)
		}
	}

	field := func(r []string, col string) (string, bool) {
		i, ok := idx[col]
		if !ok {
			return "", false
		}
		return strings.TrimSpace(tbl.Field(r, i)), true
	}

	seen := map[domain.CellID]int{}
	rows := make([]row, 0, len(tbl.Rows))
	for n, raw := range tbl.Rows {
		line := n + 2
		r := row{line: line, counts: map[string]int{}}

		id, _ := field(raw, domain.ColumnID)
		r.id = domain.CellID(id)
		if id == "" {
			p.errorf("line %d: empty h3_id", line)
		} else if prev, dup := seen[r.id]; dup {
			p.errorf("line %d: duplicate h3_id %s (first on line %d)", line, id, prev)
		} else {
			seen[r.id] = line
		}

		if s, ok := field(raw, domain.ColumnCenterLat); ok {
			r.center.Lat = parseFloat(p, line, domain.ColumnCenterLat, s)
		}
		if s, ok := field(raw, domain.ColumnCenterLon); ok {
			r.center.Lon = parseFloat(p, line, domain.ColumnCenterLon, s)
		}
		if s, ok := field(raw, domain.ColumnTentStatus); ok {
			if s != "0" && s != "1" {
				p.errorf("line %d: tent_status %q not in {0,1}", line, s)
			}
			r.status, _ = strconv.Atoi(s)
		}
		for _, col := range countCols {
			s, ok := field(raw, col)
			if !ok {
				continue
			}
			v, err := strconv.Atoi(s)
			switch {
			case err != nil:
				p.errorf("line %d: %s %q is not an integer", line, col, s)
			case v < 0:
				p.errorf("line %d: %s is negative (%d)", line, col, v)
			}
			r.counts[col] = v
		}
		rows = append(rows, r)
	}
	return p, rows
}

func parseFloat(p *phase, line int, col, s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.errorf("line %d: %s %q is not a finite number", line, col, s)
		return 0
	}
	return v
}

// ── Phase 2: Cells ──
// Every id is a valid cell at the configured resolution and its center
// matches the stored coordinates.

func validateCells(rows []row, indexer *h3grid.Indexer, resolution int) *phase {
	p := &phase{name: "Phase 2: Cell Geometry"}
	const tolerance = 1e-6

	for _, r := range rows {
		if r.id == "" {
			continue
		}
		res, err := indexer.Resolution(r.id)
		if err != nil {
			p.errorf("line %d: %s is not a valid cell: %v", r.line, r.id, err)
			continue
		}
		if res != resolution {
			p.errorf("line %d: %s has resolution %d, want %d", r.line, r.id, res, resolution)
		}
		c, err := indexer.CellToCenter(r.id)
		if err != nil {
			p.errorf("line %d: center of %s: %v", r.line, r.id, err)
			continue
		}
		if math.Abs(c.Lat-r.center.Lat) > tolerance || math.Abs(c.Lon-r.center.Lon) > tolerance {
			p.errorf("line %d: %s center (%g, %g) differs from cell center (%g, %g)",
				r.line, r.id, r.center.Lat, r.center.Lon, c.Lat, c.Lon)
		}
	}
	return p
}

// ── Phase 3: Focus Coverage ──
// At least one tent cell, and every cell within ring of a tent cell present.

func validateFocus(rows []row, indexer *h3grid.Indexer, ring int) *phase {
	p := &phase{name: "Phase 3: Focus Coverage"}

	present := make(map[domain.CellID]bool, len(rows))
	tents := 0
	for _, r := range rows {
		present[r.id] = true
		tents += r.status
	}
	if tents == 0 {
		p.errorf("no cell has tent_status 1")
	}

	for _, r := range rows {
		if r.status != 1 {
			continue
		}
		for _, n := range indexer.RingExpand(r.id, ring) {
			if !present[n] {
				p.errorf("line %d: neighbor %s of tent cell %s missing from table", r.line, n, r.id)
			}
		}
	}
	return p
}

// ── Phase 4: Tent Cross-Check ──
// Re-derives detection cells from the raw file; each must be a tent cell.

func validateTents(rows []row, tentsPath string, indexer *h3grid.Indexer, resolution int) *phase {
	p := &phase{name: "Phase 4: Tent Cross-Check"}

	tbl, err := csvfile.Read(tentsPath)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	points, _, err := domain.NormalizePoints(tbl, domain.DetectionAliases)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	counts, err := domain.CountByCell(points, indexer, resolution)
	if err != nil {
		p.errorf("%v", err)
		return p
	}

	status := make(map[domain.CellID]int, len(rows))
	for _, r := range rows {
		status[r.id] = r.status
	}
	for id := range counts {
		s, ok := status[id]
		switch {
		case !ok:
			p.errorf("detection cell %s missing from table", id)
		case s != 1:
			p.errorf("detection cell %s has tent_status %d", id, s)
		}
	}
	for _, r := range rows {
		if _, detected := counts[r.id]; r.status == 1 && !detected {
			p.errorf("line %d: %s marked as tent cell but has no detection", r.line, r.id)
		}
	}
	return p
}
