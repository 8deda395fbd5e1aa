// Command pipeline indexes tent detections into focused hexes and enriches
// them with facility counts.
//
// Usage:
//
//	go run ./cmd/pipeline                      # both stages into a new run directory
//	go run ./cmd/pipeline -stage index
//	go run ./cmd/pipeline -stage enrich -focused data/processed/<run>/focused_hexes_ring1_res10.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/h3grid"
	kafkaadapter "github.com/couchcryptid/tent-hex-enrichment/internal/adapter/kafka"
	"github.com/couchcryptid/tent-hex-enrichment/internal/adapter/sqlite"
	"github.com/couchcryptid/tent-hex-enrichment/internal/config"
	"github.com/couchcryptid/tent-hex-enrichment/internal/domain"
	"github.com/couchcryptid/tent-hex-enrichment/internal/observability"
	"github.com/couchcryptid/tent-hex-enrichment/internal/pipeline"
)

func main() {
	stage := flag.String("stage", "all", "stage to run: index, enrich, or all")
	focused := flag.String("focused", "", "focused hex CSV to enrich (required for -stage enrich)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := run(ctx, cfg, logger, metrics, *stage, *focused); err != nil {
		logger.Error("pipeline failed", "stage", *stage, "error", err)
		code = 1
	}

	if cfg.MetricsTextfile != "" {
		if err := observability.WriteTextfile(cfg.MetricsTextfile, nil); err != nil {
			logger.Error("write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}
	stop()
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, stage, focused string) error {
	indexer := h3grid.NewIndexer(logger)
	opts := pipeline.Options{
		Resolution: cfg.HexResolution,
		Ring:       cfg.TentRing,
		Workers:    cfg.Workers,
		Catalogue:  cfg.Catalogue,
	}

	switch stage {
	case "index":
		out := filepath.Join(cfg.ProcessedDir, domain.RunID(), pipeline.FocusedFileName(cfg.TentRing, cfg.HexResolution))
		_, err := pipeline.New(indexer, opts, logger, metrics).IndexTents(ctx, cfg.TentsCSV, out)
		return err

	case "enrich":
		if focused == "" {
			return errors.New("-focused is required for -stage enrich")
		}
		out := filepath.Join(filepath.Dir(focused), pipeline.EnrichedFileName(cfg.TentRing, cfg.HexResolution))
		_, err := pipeline.New(indexer, opts, logger, metrics).Enrich(ctx, focused, cfg.FacilitiesDir, out)
		return err

	case "all":
		sinks, closeSinks, err := openSinks(cfg, logger)
		if err != nil {
			return err
		}
		defer closeSinks()

		res, err := pipeline.New(indexer, opts, logger, metrics, sinks...).Run(ctx, pipeline.RunInput{
			TentsCSV:      cfg.TentsCSV,
			FacilitiesDir: cfg.FacilitiesDir,
			ProcessedDir:  cfg.ProcessedDir,
		})
		if err != nil {
			return err
		}
		logger.Info("run artifacts written",
			"focused", res.FocusedPath,
			"enriched", res.EnrichedPath,
			"geojson", res.GeoJSONPath,
		)
		return nil

	default:
		return fmt.Errorf("unknown stage %q (want index, enrich, or all)", stage)
	}
}

// openSinks builds the optional publish targets. The returned func closes
// every sink that was opened.
func openSinks(cfg *config.Config, logger *slog.Logger) ([]pipeline.Sink, func(), error) {
	var sinks []pipeline.Sink
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("sink close error", "error", err)
			}
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		w := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaEnrichedTopic, logger)
		sinks = append(sinks, w)
		closers = append(closers, w.Close)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaEnrichedTopic)
	}
	if cfg.SQLiteExportPath != "" {
		s, err := sqlite.Open(cfg.SQLiteExportPath)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, s)
		closers = append(closers, s.Close)
		logger.Info("sqlite sink enabled", "path", cfg.SQLiteExportPath)
	}
	return sinks, closeAll, nil
}
