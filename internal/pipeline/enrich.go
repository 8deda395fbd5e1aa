package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/csvfile"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

// Category outcomes recorded per run.
const (
	outcomeLoaded  = "loaded"
	outcomeEmpty   = "empty"
	outcomeMissing = "missing"
	outcomeFailed  = "failed"
)

// Enrich reads the focused table at focusedPath, counts each catalogue
// category's facilities per focused cell, and writes the enriched table to
// outPath. A missing or unreadable facility file contributes a zero column
// rather than failing the run.
func (p *Pipeline) Enrich(ctx context.Context, focusedPath, facilitiesDir, outPath string) (domain.EnrichedTable, error) {
	start := time.Now()
	defer p.observeStage("enrich", start)

	cells, err := csvfile.ReadFocused(focusedPath)
	if err != nil {
		return domain.EnrichedTable{}, fmt.Errorf("read focused hexes: %w", err)
	}

	categories := p.catalogue.Categories()
	columns := make([][]int, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, cat := range categories {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			columns[i] = p.countCategory(cat, filepath.Join(facilitiesDir, cat.FileName()), cells)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.EnrichedTable{}, fmt.Errorf("enrich: %w", err)
	}

	tbl, err := domain.AssembleEnriched(cells, p.catalogue, columns)
	if err != nil {
		return domain.EnrichedTable{}, err
	}
	if err := csvfile.WriteEnriched(outPath, tbl); err != nil {
		return domain.EnrichedTable{}, err
	}
	p.logger.Info("focused hexes enriched", "rows", len(tbl.Rows), "categories", len(categories), "out", outPath)
	return tbl, nil
}

// countCategory returns the count column for one category, or nil (zeros)
// when its file is missing or cannot be used.
func (p *Pipeline) countCategory(cat domain.FacilityCategory, path string, cells []domain.FocusedCell) []int {
	log := p.logger.With("category", cat.Name, "file", filepath.Base(path))

	tbl, err := csvfile.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("facility file not found, counts set to zero")
			p.categoryOutcome(cat, outcomeMissing, 0)
			return nil
		}
		log.Warn("facility file unreadable, counts set to zero", "error", err)
		p.categoryOutcome(cat, outcomeFailed, 0)
		return nil
	}

	points, stats, err := domain.NormalizePoints(tbl, domain.FacilityAliases)
	if err != nil {
		var cde *domain.ColumnDetectionError
		if errors.As(err, &cde) {
			cde.Source = filepath.Base(path)
		}
		log.Warn("facility coordinates not detected, counts set to zero", "error", err)
		p.categoryOutcome(cat, outcomeFailed, 0)
		return nil
	}
	p.recordNormalize(cat.Prefix, stats)
	if stats.Swapped {
		log.Warn("latitude and longitude columns appear swapped, exchanging")
	}
	if len(points) == 0 {
		log.Info("no valid facility points", "rows", stats.Rows)
		p.categoryOutcome(cat, outcomeEmpty, 0)
		return nil
	}

	counts, err := domain.CountByCell(points, p.indexer, p.resolution)
	if err != nil {
		log.Warn("facility indexing failed, counts set to zero", "error", err)
		p.categoryOutcome(cat, outcomeFailed, 0)
		return nil
	}
	col := domain.JoinCounts(cells, counts)

	matched := 0
	for _, n := range col {
		matched += n
	}
	log.Debug("facility counts joined", "points", len(points), "in_focus", matched)
	p.categoryOutcome(cat, outcomeLoaded, len(points))
	return col
}

func (p *Pipeline) categoryOutcome(cat domain.FacilityCategory, outcome string, points int) {
	p.metrics.CategoryOutcome.WithLabelValues(cat.Prefix, outcome).Inc()
	p.metrics.CategoryPoints.WithLabelValues(cat.Prefix).Set(float64(points))
}
