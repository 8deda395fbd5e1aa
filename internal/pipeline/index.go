package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/csvfile"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
)

const detectionsDataset = "detections"

// IndexTents reads tent detections from tentsPath, builds the focused hex
// set, and writes it to outPath. Unrecognizable coordinate columns are fatal.
func (p *Pipeline) IndexTents(ctx context.Context, tentsPath, outPath string) ([]domain.FocusedCell, error) {
	start := time.Now()
	defer p.observeStage("index", start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tbl, err := csvfile.Read(tentsPath)
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	points, stats, err := domain.NormalizePoints(tbl, domain.DetectionAliases)
	if err != nil {
		var cde *domain.ColumnDetectionError
		if errors.As(err, &cde) {
			cde.Source = filepath.Base(tentsPath)
		}
		return nil, fmt.Errorf("read detections: %w", err)
	}
	p.recordNormalize(detectionsDataset, stats)
	if stats.Swapped {
		p.logger.Warn("latitude and longitude columns appear swapped, exchanging", "dataset", detectionsDataset, "file", filepath.Base(tentsPath))
	}
	if len(points) == 0 {
		p.logger.Warn("no valid tent detections", "file", filepath.Base(tentsPath), "rows", stats.Rows)
	}

	cells, err := domain.BuildFocusSet(points, p.indexer, p.resolution, p.ring)
	if err != nil {
		return nil, fmt.Errorf("build focus set: %w", err)
	}
	if err := csvfile.WriteFocused(outPath, cells); err != nil {
		return nil, err
	}

	tents := 0
	for _, c := range cells {
		tents += c.TentStatus
	}
	p.metrics.FocusedCells.WithLabelValues("1").Set(float64(tents))
	p.metrics.FocusedCells.WithLabelValues("0").Set(float64(len(cells) - tents))

	p.logger.Info("tent detections indexed",
		"rows", stats.Rows,
		"valid", len(points),
		"dropped_missing", stats.Missing,
		"dropped_out_of_range", stats.OutOfRange,
		"tent_cells", tents,
		"focused_cells", len(cells),
		"out", outPath,
	)
	return cells, nil
}

func (p *Pipeline) recordNormalize(dataset string, stats domain.NormalizeStats) {
	p.metrics.RowsRead.WithLabelValues(dataset).Add(float64(stats.Rows))
	p.metrics.RowsDropped.WithLabelValues(dataset, "missing").Add(float64(stats.Missing))
	p.metrics.RowsDropped.WithLabelValues(dataset, "out_of_range").Add(float64(stats.OutOfRange))
	if stats.Swapped {
		p.metrics.AxisSwaps.WithLabelValues(dataset).Inc()
	}
}
