// Package pipeline runs the two enrichment stages: indexing tent detections
// into a focused hex set, and counting facilities per focused hex.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/geojsonfile"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
	"github.com/couchcryptid/tent-hex-enrichment/internal/observability"
)

// Options configures a Pipeline.
type Options struct {
	Resolution int
	Ring       int
	Workers    int
	Catalogue  domain.Catalogue
}

// Pipeline wires the grid, catalogue, and sinks for enrichment runs.
type Pipeline struct {
	indexer    domain.HexIndexer
	catalogue  domain.Catalogue
	resolution int
	ring       int
	workers    int
	sinks      []Sink
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline. Sinks receive the enriched table after each full run.
func New(indexer domain.HexIndexer, opts Options, logger *slog.Logger, metrics *observability.Metrics, sinks ...Sink) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		indexer:    indexer,
		catalogue:  opts.Catalogue,
		resolution: opts.Resolution,
		ring:       opts.Ring,
		workers:    workers,
		sinks:      sinks,
		logger:     logger,
		metrics:    metrics,
	}
}

// FocusedFileName is the focused-hex table name for a ring and resolution.
func FocusedFileName(ring, resolution int) string {
	return fmt.Sprintf("focused_hexes_ring%d_res%d.csv", ring, resolution)
}

// EnrichedFileName is the enriched table name for a ring and resolution.
func EnrichedFileName(ring, resolution int) string {
	return fmt.Sprintf("focused_hexes_enriched_ring%d_res%d.csv", ring, resolution)
}

// GeoJSONFileName is the enriched GeoJSON artifact name.
func GeoJSONFileName(ring, resolution int) string {
	return fmt.Sprintf("focused_hexes_enriched_ring%d_res%d.geojson", ring, resolution)
}

// RunInput names the inputs and output root of a full run.
type RunInput struct {
	TentsCSV      string
	FacilitiesDir string
	ProcessedDir  string
}

// RunResult reports where a full run wrote its artifacts.
type RunResult struct {
	Info         domain.RunInfo
	Dir          string
	FocusedPath  string
	EnrichedPath string
	GeoJSONPath  string
	Rows         int
}

// Run executes both stages into a fresh timestamped directory under
// in.ProcessedDir, writes the GeoJSON artifact, and publishes the enriched
// table to every sink. Sink failures are joined and returned after all sinks
// have been tried; the files on disk are complete either way.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (res RunResult, err error) {
	defer func() {
		if err != nil {
			p.metrics.LastRunSuccess.Set(0)
			return
		}
		p.metrics.LastRunSuccess.Set(1)
	}()

	info := domain.RunInfo{ID: domain.RunID(), Resolution: p.resolution, Ring: p.ring}
	// The artifact writers create dir on first write, so a run that fails
	// before producing a file leaves nothing behind.
	dir := filepath.Join(in.ProcessedDir, info.ID)
	res = RunResult{
		Info:         info,
		Dir:          dir,
		FocusedPath:  filepath.Join(dir, FocusedFileName(p.ring, p.resolution)),
		EnrichedPath: filepath.Join(dir, EnrichedFileName(p.ring, p.resolution)),
		GeoJSONPath:  filepath.Join(dir, GeoJSONFileName(p.ring, p.resolution)),
	}
	p.logger.Info("pipeline run started", "run_id", info.ID, "resolution", p.resolution, "ring", p.ring, "dir", dir)

	if _, err := p.IndexTents(ctx, in.TentsCSV, res.FocusedPath); err != nil {
		return res, err
	}
	tbl, err := p.Enrich(ctx, res.FocusedPath, in.FacilitiesDir, res.EnrichedPath)
	if err != nil {
		return res, err
	}
	res.Rows = len(tbl.Rows)

	fc, err := geojsonfile.FromEnriched(p.indexer, tbl)
	if err != nil {
		return res, fmt.Errorf("build geojson: %w", err)
	}
	if err := geojsonfile.WriteFile(res.GeoJSONPath, fc); err != nil {
		return res, err
	}

	if err := p.publish(ctx, info, tbl); err != nil {
		return res, err
	}
	p.logger.Info("pipeline run complete", "run_id", info.ID, "rows", res.Rows, "enriched", res.EnrichedPath)
	return res, nil
}

func (p *Pipeline) publish(ctx context.Context, info domain.RunInfo, tbl domain.EnrichedTable) error {
	if len(p.sinks) == 0 {
		return nil
	}
	start := time.Now()
	defer p.observeStage("publish", start)

	var errs []error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, info, tbl); err != nil {
			p.logger.Error("sink publish failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}
		p.logger.Info("sink published", "sink", s.Name(), "rows", len(tbl.Rows))
	}
	return errors.Join(errs...)
}

func (p *Pipeline) observeStage(stage string, start time.Time) {
	p.metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
